// Package highlight turns difference masks into translucent overlays that
// circle the changed regions in red.
package highlight

import (
	"image"
	"image/color"

	"github.com/novvoo/go-pdfdiff/pkg/diff"
	"github.com/novvoo/go-pdfdiff/pkg/imaging"
)

// Placeholder labels
const (
	NoDifferencesText = "NO DIFFERENCES"
	MissingPageText   = "MISSING\nPAGE"
)

var (
	// ContourColor outlines differing regions
	ContourColor = color.NRGBA{R: 255, A: 255}
	// TintColor covers everything else, rgba(240,255,255,0.4)
	TintColor = color.NRGBA{R: 240, G: 255, B: 255, A: 102}
	// LabelStroke outlines placeholder text
	LabelStroke = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

	maskOn  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	maskOff = color.NRGBA{A: 255}
)

// Options controls overlay rendering
type Options struct {
	DilateRadius int     // default 2
	EdgeWidth    int     // default 2
	FontSize     float64 // label size in points, default 40
	DPI          float64 // raster resolution of the masks, default 72
}

// Overlay is one page of the overlay document
type Overlay struct {
	Image *image.NRGBA
	DPI   float64
}

// Width returns the overlay width in points
func (o *Overlay) Width() float64 { return float64(o.Image.Bounds().Dx()) * 72 / o.DPI }

// Height returns the overlay height in points
func (o *Overlay) Height() float64 { return float64(o.Image.Bounds().Dy()) * 72 / o.DPI }

// Renderer builds overlays with fixed options
type Renderer struct {
	opts Options
}

// New creates a renderer, applying defaults to zero options
func New(opts Options) *Renderer {
	if opts.DilateRadius <= 0 {
		opts.DilateRadius = 2
	}
	if opts.EdgeWidth <= 0 {
		opts.EdgeWidth = 2
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 40
	}
	if opts.DPI <= 0 {
		opts.DPI = 72
	}
	return &Renderer{opts: opts}
}

// Highlight converts a difference mask into an overlay
func (r *Renderer) Highlight(mask *diff.Mask) *Overlay {
	page := imaging.FromImage(mask)
	r.outline(page)
	return &Overlay{Image: page.Image(), DPI: r.opts.DPI}
}

// outline grows the marked pixels, then keeps only a red contour around
// them over a translucent tint
func (r *Renderer) outline(page imaging.RasterPage) {
	page.Dilate(r.opts.DilateRadius)
	page.Negate()
	page.Edge(r.opts.EdgeWidth)
	page.OpaquePaint(maskOn, ContourColor)
	page.ActivateAlpha()
	page.OpaquePaint(maskOff, TintColor)
}

// NoDifferences returns the placeholder for a page pair without changes
func (r *Renderer) NoDifferences(width, height int) (*Overlay, error) {
	return r.placeholder(width, height, NoDifferencesText)
}

// MissingPage returns the placeholder for a page present on one side only,
// sized like the page that exists
func (r *Renderer) MissingPage(width, height int) (*Overlay, error) {
	return r.placeholder(width, height, MissingPageText)
}

func (r *Renderer) placeholder(width, height int, text string) (*Overlay, error) {
	page := imaging.NewCanvas(width, height, maskOff)
	if err := r.centeredText(page, text); err != nil {
		return nil, err
	}
	return &Overlay{Image: page.Image(), DPI: r.opts.DPI}, nil
}

func (r *Renderer) centeredText(page imaging.RasterPage, text string) error {
	page.ActivateAlpha()
	page.OpaquePaint(maskOff, TintColor)
	return page.DrawCenteredText(text, imaging.TextOptions{
		Size:        r.opts.FontSize,
		DPI:         r.opts.DPI,
		Fill:        ContourColor,
		Stroke:      LabelStroke,
		StrokeWidth: 2,
	})
}
