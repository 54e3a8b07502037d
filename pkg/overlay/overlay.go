// Package overlay collects highlight overlays into a PDF document with one
// page per compared page pair.
package overlay

import (
	"errors"
	"fmt"

	"github.com/novvoo/go-pdfdiff/pkg/highlight"
	"github.com/novvoo/go-pdfdiff/pkg/pdf"
)

// ErrEmpty is returned when serializing an aggregator without pages
var ErrEmpty = errors.New("overlay document has no pages")

// Aggregator accumulates overlays in page order
type Aggregator struct {
	pages []*highlight.Overlay
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Append adds the overlay for the next page
func (a *Aggregator) Append(ov *highlight.Overlay) {
	a.pages = append(a.pages, ov)
}

// Len returns the number of collected pages
func (a *Aggregator) Len() int { return len(a.pages) }

// Bytes serializes the overlays as a PDF. Each page holds a single image
// sized to cover the page, with the alpha channel as a soft mask.
func (a *Aggregator) Bytes() ([]byte, error) {
	if len(a.pages) == 0 {
		return nil, ErrEmpty
	}
	w := pdf.NewWriter()
	w.SetInfo("Producer", "go-pdfdiff")
	for i, ov := range a.pages {
		if err := addPage(w, ov); err != nil {
			return nil, fmt.Errorf("overlay page %d: %w", i, err)
		}
	}
	return w.Bytes()
}

// Document parses the serialized overlays back into a document
func (a *Aggregator) Document() (*pdf.Document, error) {
	data, err := a.Bytes()
	if err != nil {
		return nil, err
	}
	return pdf.NewDocument(data)
}

func addPage(w *pdf.Writer, ov *highlight.Overlay) error {
	img := ov.Image
	b := img.Bounds()
	pw, ph := b.Dx(), b.Dy()

	rgb := make([]byte, 0, pw*ph*3)
	alpha := make([]byte, 0, pw*ph)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			rgb = append(rgb, c.R, c.G, c.B)
			alpha = append(alpha, c.A)
		}
	}

	smask, err := w.AddStream(pdf.Dictionary{
		"Type":             pdf.Name("XObject"),
		"Subtype":          pdf.Name("Image"),
		"Width":            pdf.Integer(pw),
		"Height":           pdf.Integer(ph),
		"ColorSpace":       pdf.Name("DeviceGray"),
		"BitsPerComponent": pdf.Integer(8),
	}, alpha)
	if err != nil {
		return err
	}
	xobj, err := w.AddStream(pdf.Dictionary{
		"Type":             pdf.Name("XObject"),
		"Subtype":          pdf.Name("Image"),
		"Width":            pdf.Integer(pw),
		"Height":           pdf.Integer(ph),
		"ColorSpace":       pdf.Name("DeviceRGB"),
		"BitsPerComponent": pdf.Integer(8),
		"SMask":            smask,
	}, rgb)
	if err != nil {
		return err
	}

	width, height := ov.Width(), ov.Height()
	content := fmt.Sprintf("q %s 0 0 %s 0 0 cm /Im0 Do Q", pdf.Real(width), pdf.Real(height))
	resources := pdf.Dictionary{"XObject": pdf.Dictionary{"Im0": xobj}}
	_, err = w.AddPage(width, height, resources, []byte(content))
	return err
}
