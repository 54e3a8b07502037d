package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

type point struct{ X, Y float64 }

type segKind uint8

const (
	segMove segKind = iota
	segLine
	segCubic
	segClose
)

// segment is one path element in device pixels
type segment struct {
	kind segKind
	pts  [3]point
}

// path accumulates device-space segments between painting operators
type path struct {
	segs  []segment
	cur   point
	start point
	open  bool
}

func (p *path) moveTo(pt point) {
	p.segs = append(p.segs, segment{kind: segMove, pts: [3]point{pt}})
	p.cur, p.start, p.open = pt, pt, true
}

func (p *path) lineTo(pt point) {
	if !p.open {
		p.moveTo(p.cur)
	}
	p.segs = append(p.segs, segment{kind: segLine, pts: [3]point{pt}})
	p.cur = pt
}

func (p *path) cubicTo(c1, c2, end point) {
	if !p.open {
		p.moveTo(p.cur)
	}
	p.segs = append(p.segs, segment{kind: segCubic, pts: [3]point{c1, c2, end}})
	p.cur = end
}

func (p *path) close() {
	if !p.open {
		return
	}
	p.segs = append(p.segs, segment{kind: segClose})
	p.cur = p.start
}

func (p *path) reset() {
	p.segs = p.segs[:0]
	p.open = false
}

func (p *path) empty() bool { return len(p.segs) == 0 }

// bounds returns the integer pixel box covering every point, clipped to clip
func (p *path) bounds(clip image.Rectangle) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, s := range p.segs {
		n := 1
		switch s.kind {
		case segClose:
			continue
		case segCubic:
			n = 3
		}
		for _, pt := range s.pts[:n] {
			minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
			minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
		}
	}
	if minX > maxX {
		return image.Rectangle{}
	}
	r := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1,
	)
	return r.Intersect(clip)
}

// coverage rasterizes the path (nonzero winding, anti-aliased) into an
// alpha mask covering r. Every subpath is closed implicitly.
func (p *path) coverage(r image.Rectangle) *image.Alpha {
	mask := image.NewAlpha(r)
	if r.Empty() {
		return mask
	}
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	f := func(pt point) (float32, float32) {
		return float32(pt.X - ox), float32(pt.Y - oy)
	}
	open := false
	for _, s := range p.segs {
		switch s.kind {
		case segMove:
			if open {
				z.ClosePath()
			}
			z.MoveTo(f(s.pts[0]))
			open = true
		case segLine:
			z.LineTo(f(s.pts[0]))
		case segCubic:
			bx, by := f(s.pts[0])
			cx, cy := f(s.pts[1])
			dx, dy := f(s.pts[2])
			z.CubeTo(bx, by, cx, cy, dx, dy)
		case segClose:
			if open {
				z.ClosePath()
				open = false
			}
		}
	}
	if open {
		z.ClosePath()
	}
	z.DrawOp = draw.Src
	z.Draw(mask, mask.Bounds(), image.Opaque, r.Min)
	return mask
}

// flatten converts each subpath to a polyline. closed reports whether the
// subpath ended with a close operator.
func (p *path) flatten() (lines [][]point, closed []bool) {
	var cur []point
	flush := func(c bool) {
		if len(cur) > 0 {
			lines = append(lines, cur)
			closed = append(closed, c)
		}
		cur = nil
	}
	var last, start point
	for _, s := range p.segs {
		switch s.kind {
		case segMove:
			flush(false)
			last, start = s.pts[0], s.pts[0]
			cur = []point{last}
		case segLine:
			last = s.pts[0]
			cur = append(cur, last)
		case segCubic:
			cur = append(cur, flattenCubic(last, s.pts[0], s.pts[1], s.pts[2])...)
			last = s.pts[2]
		case segClose:
			if len(cur) > 0 && (last != start) {
				cur = append(cur, start)
			}
			flush(true)
			last = start
			cur = []point{start}
		}
	}
	if len(cur) > 1 {
		flush(false)
	}
	return lines, closed
}

func flattenCubic(p0, p1, p2, p3 point) []point {
	length := dist(p0, p1) + dist(p1, p2) + dist(p2, p3)
	steps := int(math.Ceil(length / 2))
	if steps < 1 {
		steps = 1
	}
	if steps > 256 {
		steps = 256
	}
	out := make([]point, 0, steps)
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		mt := 1 - t
		a, b, c, d := mt*mt*mt, 3*mt*mt*t, 3*mt*t*t, t*t*t
		out = append(out, point{
			X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
			Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
		})
	}
	return out
}

func dist(a, b point) float64 { return math.Hypot(b.X-a.X, b.Y-a.Y) }

// strokeOutline expands the path into a fillable outline of the given
// device width. Dash patterns are not applied.
func (p *path) strokeOutline(width float64, capStyle, joinStyle int) *path {
	hw := width / 2
	out := &path{}
	lines, closed := p.flatten()
	for i, pts := range lines {
		pts = dedupe(pts)
		if len(pts) == 1 {
			if capStyle == 1 {
				addDisc(out, pts[0], hw)
			} else if capStyle == 2 {
				addSquare(out, pts[0], hw)
			}
			continue
		}
		for j := 0; j+1 < len(pts); j++ {
			a, b := pts[j], pts[j+1]
			if capStyle == 2 && !closed[i] {
				if j == 0 {
					a = extend(b, a, hw)
				}
				if j+2 == len(pts) {
					b = extend(a, b, hw)
				}
			}
			addQuad(out, a, b, hw)
		}
		for j := 1; j+1 < len(pts); j++ {
			addJoin(out, pts[j], hw, joinStyle)
		}
		if closed[i] {
			addJoin(out, pts[0], hw, joinStyle)
		} else if capStyle == 1 {
			addDisc(out, pts[0], hw)
			addDisc(out, pts[len(pts)-1], hw)
		}
	}
	return out
}

func dedupe(pts []point) []point {
	out := pts[:1]
	for _, pt := range pts[1:] {
		if dist(pt, out[len(out)-1]) > 1e-9 {
			out = append(out, pt)
		}
	}
	return out
}

func extend(from, to point, by float64) point {
	d := dist(from, to)
	if d == 0 {
		return to
	}
	return point{to.X + (to.X-from.X)/d*by, to.Y + (to.Y-from.Y)/d*by}
}

// addQuad appends a segment rectangle. All quads and discs share the same
// orientation so overlaps union under the nonzero rule.
func addQuad(out *path, a, b point, hw float64) {
	d := dist(a, b)
	nx, ny := -(b.Y-a.Y)/d*hw, (b.X-a.X)/d*hw
	out.moveTo(point{a.X + nx, a.Y + ny})
	out.lineTo(point{b.X + nx, b.Y + ny})
	out.lineTo(point{b.X - nx, b.Y - ny})
	out.lineTo(point{a.X - nx, a.Y - ny})
	out.close()
}

func addJoin(out *path, c point, hw float64, joinStyle int) {
	if joinStyle == 2 || hw < 1 {
		addSquare(out, c, hw*0.7071)
		return
	}
	addDisc(out, c, hw)
}

func addDisc(out *path, c point, r float64) {
	const n = 12
	for i := 0; i <= n; i++ {
		a := -2 * math.Pi * float64(i) / n
		pt := point{c.X + r*math.Cos(a), c.Y + r*math.Sin(a)}
		if i == 0 {
			out.moveTo(pt)
		} else {
			out.lineTo(pt)
		}
	}
	out.close()
}

func addSquare(out *path, c point, r float64) {
	out.moveTo(point{c.X - r, c.Y - r})
	out.lineTo(point{c.X - r, c.Y + r})
	out.lineTo(point{c.X + r, c.Y + r})
	out.lineTo(point{c.X + r, c.Y - r})
	out.close()
}

// canvas is the premultiplied drawing surface. Ink starts transparent and
// is flattened onto white once the page is complete.
type canvas struct {
	img *image.RGBA
}

func newCanvas(w, h int) *canvas {
	return &canvas{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// fill paints col through the path coverage, limited by clip
func (c *canvas) fill(p *path, col color.NRGBA, clip *image.Alpha) {
	r := p.bounds(c.img.Bounds())
	if clip != nil {
		r = r.Intersect(clip.Rect)
	}
	if r.Empty() {
		return
	}
	mask := p.coverage(r)
	if clip != nil {
		applyClip(mask, clip)
	}
	draw.DrawMask(c.img, r, image.NewUniform(col), image.Point{}, mask, r.Min, draw.Over)
}

// clipMask rasterizes p over the whole canvas and intersects it with prev
func (c *canvas) clipMask(p *path, prev *image.Alpha) *image.Alpha {
	mask := p.coverage(c.img.Bounds())
	if prev != nil {
		applyClip(mask, prev)
	}
	return mask
}

func applyClip(mask, clip *image.Alpha) {
	r := mask.Rect
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			i := mask.PixOffset(x, y)
			if mask.Pix[i] == 0 {
				continue
			}
			mask.Pix[i] = uint8(uint32(mask.Pix[i]) * uint32(clip.AlphaAt(x, y).A) / 255)
		}
	}
}

// flatten composites the canvas over opaque white and drops alpha
func (c *canvas) flatten() *image.RGBA {
	out := image.NewRGBA(c.img.Rect)
	src, dst := c.img.Pix, out.Pix
	for i := 0; i+3 < len(src); i += 4 {
		bg := 255 - src[i+3]
		dst[i] = src[i] + bg
		dst[i+1] = src[i+1] + bg
		dst[i+2] = src[i+2] + bg
		dst[i+3] = 255
	}
	return out
}
