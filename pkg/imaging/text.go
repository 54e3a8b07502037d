package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/math/fixed"
)

// LabelFont is Go Bold, the weight used for placeholder labels
var LabelFont = mustParse(gobold.TTF)

func mustParse(ttf []byte) *truetype.Font {
	f, err := truetype.Parse(ttf)
	if err != nil {
		panic(err)
	}
	return f
}

// TextOptions describes how a centered label is drawn
type TextOptions struct {
	Font        *truetype.Font // defaults to LabelFont
	Size        float64        // points
	DPI         float64        // defaults to 72
	Fill        color.NRGBA
	Stroke      color.NRGBA
	StrokeWidth int // pixels; zero draws no outline
}

// DrawCenteredText draws text centered on the canvas. Lines are separated
// by "\n" and centered as a block.
//
// The label is drawn twice: first filled and outlined with the stroke
// color, then filled again, so the outline only shows outside the glyphs.
func (c *Canvas) DrawCenteredText(text string, opts TextOptions) error {
	if opts.Font == nil {
		opts.Font = LabelFont
	}
	if opts.DPI <= 0 {
		opts.DPI = 72
	}
	if opts.Size <= 0 {
		return fmt.Errorf("invalid font size %g", opts.Size)
	}

	mask, err := textMask(c.img.Bounds(), text, opts)
	if err != nil {
		return err
	}

	fill := image.NewUniform(opts.Fill)
	c.paint(fill, mask)
	if opts.StrokeWidth > 0 {
		c.paint(image.NewUniform(opts.Stroke), strokeBand(mask, opts.StrokeWidth))
	}
	c.paint(fill, mask)
	return nil
}

func (c *Canvas) paint(src image.Image, mask *image.Alpha) {
	draw.DrawMask(c.img, c.img.Bounds(), src, image.Point{}, mask, image.Point{}, draw.Over)
}

// textMask renders the glyph coverage of the centered text block
func textMask(bounds image.Rectangle, text string, opts TextOptions) (*image.Alpha, error) {
	mask := image.NewAlpha(bounds)

	face := truetype.NewFace(opts.Font, &truetype.Options{Size: opts.Size, DPI: opts.DPI})
	defer face.Close()
	metrics := face.Metrics()
	lineHeight := metrics.Height
	if lineHeight == 0 {
		lineHeight = metrics.Ascent + metrics.Descent
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(opts.DPI)
	ctx.SetFont(opts.Font)
	ctx.SetFontSize(opts.Size)
	ctx.SetClip(bounds)
	ctx.SetDst(mask)
	ctx.SetSrc(image.Opaque)
	ctx.SetHinting(font.HintingNone)

	lines := strings.Split(text, "\n")
	block := lineHeight.Mul(fixed.I(len(lines)-1)) + metrics.Ascent + metrics.Descent
	top := fixed.I(bounds.Dy())/2 - block/2 + fixed.I(bounds.Min.Y)

	for i, line := range lines {
		width := font.MeasureString(face, line)
		x := fixed.I(bounds.Dx())/2 - width/2 + fixed.I(bounds.Min.X)
		y := top + metrics.Ascent + lineHeight.Mul(fixed.I(i))
		if _, err := ctx.DrawString(line, fixed.Point26_6{X: x, Y: y}); err != nil {
			return nil, fmt.Errorf("draw label: %w", err)
		}
	}
	return mask, nil
}

// strokeBand returns the coverage of an outline of the given width centered
// on the glyph edges: the dilated mask minus the eroded mask
func strokeBand(mask *image.Alpha, width int) *image.Alpha {
	r := (width + 1) / 2
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	plane := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		copy(plane[y*w:(y+1)*w], mask.Pix[y*mask.Stride:y*mask.Stride+w])
	}
	outer := extremum(plane, w, h, r, true)
	inner := extremum(plane, w, h, r, false)

	band := image.NewAlpha(mask.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			band.Pix[y*band.Stride+x] = outer[i] - inner[i]
		}
	}
	return band
}
