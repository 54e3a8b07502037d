// Package raster renders PDF pages to RGBA images on a white background.
package raster

import (
	"context"
	"fmt"
	"image"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/novvoo/go-pdfdiff/pkg/pdf"
)

// DefaultDPI renders one pixel per PDF point
const DefaultDPI = 72

// Options controls rasterization
type Options struct {
	DPI     float64 // Resolution in DPI (default 72)
	Workers int     // Pages rendered concurrently (default 1)
	Logger  *zap.Logger
}

// Rasterizer converts documents into page images
type Rasterizer struct {
	options Options
	log     *zap.Logger
}

// New creates a rasterizer, filling in defaults for zero options
func New(options Options) *Rasterizer {
	if options.DPI <= 0 {
		options.DPI = DefaultDPI
	}
	if options.Workers < 1 {
		options.Workers = 1
	}
	log := options.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Rasterizer{options: options, log: log}
}

// DPI returns the effective resolution
func (r *Rasterizer) DPI() float64 { return r.options.DPI }

// Page is a rendered page. Every pixel of Image is opaque.
type Page struct {
	Index  int // 0-based page index
	Image  *image.RGBA
	Width  float64 // page width in points
	Height float64 // page height in points
	DPI    float64
}

// Bounds returns the pixel bounds of the page image
func (p *Page) Bounds() image.Rectangle { return p.Image.Bounds() }

// RasterizeFile opens path and renders every page
func (r *Rasterizer) RasterizeFile(ctx context.Context, path string) ([]*Page, error) {
	doc, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	return r.RasterizeDocument(ctx, doc)
}

// RasterizeDocument renders every page of doc. The result is in page order
// regardless of the worker count.
func (r *Rasterizer) RasterizeDocument(ctx context.Context, doc *pdf.Document) ([]*Page, error) {
	pages := doc.Pages()
	out := make([]*Page, len(pages))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.options.Workers)
	for i, page := range pages {
		i, page := i, page
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rendered, err := r.RenderPage(page)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			rendered.Index = i
			out[i] = rendered
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// RenderPage renders a single page
func (r *Rasterizer) RenderPage(page *pdf.Page) (*Page, error) {
	scale := r.options.DPI / 72.0
	width := int(math.Ceil(page.Width()*scale - 1e-9))
	height := int(math.Ceil(page.Height()*scale - 1e-9))
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	device := page.DisplayMatrix().Multiply(pdf.Matrix{A: scale, D: -scale, F: page.Height() * scale})
	c := newCanvas(width, height)
	in := newInterpreter(page.Document(), c, r.log)

	content, err := page.Contents()
	if err != nil {
		return nil, fmt.Errorf("read contents: %w", err)
	}
	if err := in.run(content, page.Resources, device); err != nil {
		return nil, err
	}
	in.annotations(page, device)

	r.log.Debug("rendered page",
		zap.Int("page", page.Number),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("ops", in.ops),
	)

	return &Page{
		Index:  page.Number - 1,
		Image:  c.flatten(),
		Width:  page.Width(),
		Height: page.Height(),
		DPI:    r.options.DPI,
	}, nil
}
