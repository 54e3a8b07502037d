package imaging

// Dilate replaces each color sample with the maximum over a square of
// side 2*radius+1 centered on it. Square kernels are separable, so rows
// and columns are filtered in two passes.
func (c *Canvas) Dilate(radius int) {
	if radius <= 0 {
		return
	}
	w, h := c.img.Rect.Dx(), c.img.Rect.Dy()
	for ch := 0; ch < 3; ch++ {
		plane := c.plane(ch)
		plane = extremum(plane, w, h, radius, true)
		c.setPlane(ch, plane)
	}
}

// Edge marks the boundaries between regions with white on black. The edge
// is the morphological gradient (max minus min) over a square whose radius
// is half the width; any non-zero gradient becomes white.
func (c *Canvas) Edge(width int) {
	r := width / 2
	if r < 1 {
		r = 1
	}
	w, h := c.img.Rect.Dx(), c.img.Rect.Dy()
	for ch := 0; ch < 3; ch++ {
		plane := c.plane(ch)
		hi := extremum(plane, w, h, r, true)
		lo := extremum(plane, w, h, r, false)
		for i := range plane {
			if hi[i] != lo[i] {
				plane[i] = 255
			} else {
				plane[i] = 0
			}
		}
		c.setPlane(ch, plane)
	}
}

func (c *Canvas) plane(ch int) []uint8 {
	w, h := c.img.Rect.Dx(), c.img.Rect.Dy()
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := c.img.Pix[y*c.img.Stride:]
		for x := 0; x < w; x++ {
			out[y*w+x] = row[x*4+ch]
		}
	}
	return out
}

func (c *Canvas) setPlane(ch int, plane []uint8) {
	w, h := c.img.Rect.Dx(), c.img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := c.img.Pix[y*c.img.Stride:]
		for x := 0; x < w; x++ {
			row[x*4+ch] = plane[y*w+x]
		}
	}
}

// extremum runs a separable square max (or min) filter over a w×h plane.
// Samples outside the plane are ignored.
func extremum(src []uint8, w, h, r int, takeMax bool) []uint8 {
	better := func(a, b uint8) bool {
		if takeMax {
			return a > b
		}
		return a < b
	}
	tmp := make([]uint8, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := src[y*w+x]
			for k := x - r; k <= x+r; k++ {
				if k >= 0 && k < w && better(src[y*w+k], v) {
					v = src[y*w+k]
				}
			}
			tmp[y*w+x] = v
		}
	}
	out := make([]uint8, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := tmp[y*w+x]
			for k := y - r; k <= y+r; k++ {
				if k >= 0 && k < h && better(tmp[k*w+x], v) {
					v = tmp[k*w+x]
				}
			}
			out[y*w+x] = v
		}
	}
	return out
}
