// Package imaging provides the raster page operations used to turn a
// difference mask into a highlight overlay: morphology, edge extraction,
// color replacement, alpha activation and centered labels.
package imaging

import (
	"image"
	"image/color"
	"image/draw"
)

// RasterPage is a page image that the highlight pipeline can transform in
// place
type RasterPage interface {
	Bounds() image.Rectangle
	Dilate(radius int)
	Negate()
	Edge(width int)
	OpaquePaint(target, fill color.NRGBA)
	ActivateAlpha()
	DrawCenteredText(text string, opts TextOptions) error
	Image() *image.NRGBA
}

// Canvas is an NRGBA raster page. Until ActivateAlpha is called the alpha
// channel is ignored by OpaquePaint and every pixel stays opaque.
type Canvas struct {
	img   *image.NRGBA
	alpha bool
}

var _ RasterPage = (*Canvas)(nil)

// NewCanvas creates a canvas filled with bg
func NewCanvas(width, height int, bg color.Color) *Canvas {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return &Canvas{img: img}
}

// FromImage copies src into a new opaque canvas anchored at the origin
func FromImage(src image.Image) *Canvas {
	b := src.Bounds()
	img := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return &Canvas{img: img}
}

// Bounds returns the canvas bounds
func (c *Canvas) Bounds() image.Rectangle { return c.img.Bounds() }

// Image returns the underlying pixels
func (c *Canvas) Image() *image.NRGBA { return c.img }

// HasAlpha reports whether the alpha channel was activated
func (c *Canvas) HasAlpha() bool { return c.alpha }

// Negate inverts the color channels
func (c *Canvas) Negate() {
	p := c.img.Pix
	for i := 0; i < len(p); i += 4 {
		p[i] = 255 - p[i]
		p[i+1] = 255 - p[i+1]
		p[i+2] = 255 - p[i+2]
	}
}

// ActivateAlpha turns on the alpha channel. Pixels keep their current
// opacity.
func (c *Canvas) ActivateAlpha() {
	c.alpha = true
}

// OpaquePaint replaces every pixel of exactly the target color with fill.
// Alpha takes part in the match only once the alpha channel is active.
func (c *Canvas) OpaquePaint(target, fill color.NRGBA) {
	p := c.img.Pix
	for i := 0; i < len(p); i += 4 {
		if p[i] != target.R || p[i+1] != target.G || p[i+2] != target.B {
			continue
		}
		if c.alpha && p[i+3] != target.A {
			continue
		}
		p[i], p[i+1], p[i+2] = fill.R, fill.G, fill.B
		if c.alpha {
			p[i+3] = fill.A
		}
	}
}
