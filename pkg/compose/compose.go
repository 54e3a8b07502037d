// Package compose builds the side-by-side difference document: both inputs
// next to each other with the highlight overlay on top of each half.
package compose

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/novvoo/go-pdfdiff/pkg/pdf"
)

// ErrOverlayMismatch is returned when the overlay document has fewer pages
// than the longer input
var ErrOverlayMismatch = errors.New("overlay page missing")

// VectorPage is a page that can be placed on a sheet
type VectorPage interface {
	Width() float64
	Height() float64
}

// BlankPage stands in for a page missing from one input. It contributes
// geometry only.
type BlankPage struct {
	W, H float64
}

// Width returns the page width
func (b BlankPage) Width() float64 { return b.W }

// Height returns the page height
func (b BlankPage) Height() float64 { return b.H }

// BlankLike returns a blank page with the size of p
func BlankLike(p VectorPage) BlankPage {
	return BlankPage{W: p.Width(), H: p.Height()}
}

// Composer writes sheets into a new document
type Composer struct {
	writer *pdf.Writer
	forms  map[*pdf.Page]pdf.Reference
}

// NewComposer creates an empty output document
func NewComposer() *Composer {
	w := pdf.NewWriter()
	w.SetInfo("Producer", "go-pdfdiff")
	return &Composer{writer: w, forms: make(map[*pdf.Page]pdf.Reference)}
}

// Sheet is an output page under construction
type Sheet struct {
	c       *Composer
	width   float64
	height  float64
	xobject pdf.Dictionary
	content bytes.Buffer
}

// NewSheet starts an output page of the given size
func (c *Composer) NewSheet(width, height float64) *Sheet {
	return &Sheet{c: c, width: width, height: height, xobject: pdf.Dictionary{}}
}

// MergeTranslated draws page on the sheet with its lower-left corner at
// (tx, ty). Pages without content only reserve space.
func (s *Sheet) MergeTranslated(page VectorPage, tx, ty float64) error {
	name, err := s.place(page)
	if name == "" || err != nil {
		return err
	}
	fmt.Fprintf(&s.content, "q 1 0 0 1 %s %s cm /%s Do Q\n", pdf.Real(tx), pdf.Real(ty), name)
	return nil
}

// MergeClipped is MergeTranslated with drawing limited to clip, given in
// sheet coordinates
func (s *Sheet) MergeClipped(page VectorPage, tx, ty float64, clip Rect) error {
	name, err := s.place(page)
	if name == "" || err != nil {
		return err
	}
	fmt.Fprintf(&s.content, "q %s %s %s %s re W n 1 0 0 1 %s %s cm /%s Do Q\n",
		pdf.Real(clip.X), pdf.Real(clip.Y), pdf.Real(clip.W), pdf.Real(clip.H),
		pdf.Real(tx), pdf.Real(ty), name)
	return nil
}

// Rect is a rectangle in points with its lower-left corner at (X, Y)
type Rect struct {
	X, Y, W, H float64
}

// place registers page as an XObject of the sheet and returns its resource
// name. Blank pages get no name.
func (s *Sheet) place(page VectorPage) (string, error) {
	p, ok := page.(*pdf.Page)
	if !ok {
		return "", nil
	}
	ref, ok := s.c.forms[p]
	if !ok {
		var err error
		ref, err = s.c.writer.ImportPage(p)
		if err != nil {
			return "", fmt.Errorf("import page %d: %w", p.Number, err)
		}
		s.c.forms[p] = ref
	}
	name := fmt.Sprintf("Fx%d", len(s.xobject))
	s.xobject[pdf.Name(name)] = ref
	return name, nil
}

// Finish adds the sheet to the document
func (s *Sheet) Finish() error {
	res := pdf.Dictionary{}
	if len(s.xobject) > 0 {
		res["XObject"] = s.xobject
	}
	_, err := s.c.writer.AddPage(s.width, s.height, res, s.content.Bytes())
	return err
}

// NumPages returns the number of finished sheets
func (c *Composer) NumPages() int { return c.writer.NumPages() }

// WriteTo writes the composed document
func (c *Composer) WriteTo(w io.Writer) (int64, error) { return c.writer.WriteTo(w) }

// SideBySide lays out a and b next to each other, one sheet per index of
// the longer sequence, and stamps overlay i over each half that has a
// counterpart on the other side. Pages sit on the bottom edge of the sheet.
// Overlays are rasterized from top-left anchored images, so each stamp is
// aligned with the top edge of its page and clipped to that page.
func (c *Composer) SideBySide(a, b, overlays []VectorPage) error {
	n := max(len(a), len(b))
	if len(overlays) < n {
		return fmt.Errorf("%w: %d overlay pages for %d sheets", ErrOverlayMismatch, len(overlays), n)
	}
	for i := 0; i < n; i++ {
		var left, right VectorPage
		if i < len(a) {
			left = a[i]
		}
		if i < len(b) {
			right = b[i]
		}
		missingA, missingB := left == nil, right == nil
		if missingA {
			left = BlankLike(right)
		}
		if missingB {
			right = BlankLike(left)
		}

		xoffset := left.Width()
		sheet := c.NewSheet(xoffset+right.Width(), max(left.Height(), right.Height()))
		if err := sheet.MergeTranslated(left, 0, 0); err != nil {
			return err
		}
		if err := sheet.MergeTranslated(right, xoffset, 0); err != nil {
			return err
		}
		if !missingB {
			if err := stamp(sheet, overlays[i], left, 0); err != nil {
				return err
			}
		}
		if !missingA {
			if err := stamp(sheet, overlays[i], right, xoffset); err != nil {
				return err
			}
		}
		if err := sheet.Finish(); err != nil {
			return fmt.Errorf("sheet %d: %w", i, err)
		}
	}
	return nil
}

// stamp draws overlay over page, which sits at (tx, 0) on the sheet
func stamp(sheet *Sheet, overlay, page VectorPage, tx float64) error {
	ty := page.Height() - overlay.Height()
	return sheet.MergeClipped(overlay, tx, ty, Rect{X: tx, W: page.Width(), H: page.Height()})
}

// Pages returns the pages of doc as placeable pages
func Pages(doc *pdf.Document) []VectorPage {
	pages := doc.Pages()
	out := make([]VectorPage, len(pages))
	for i, p := range pages {
		out[i] = p
	}
	return out
}

// Compose writes the side-by-side document for a and b to output
func Compose(a, b, overlay *pdf.Document, output string) error {
	c := NewComposer()
	if err := c.SideBySide(Pages(a), Pages(b), Pages(overlay)); err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", output, err)
	}
	return f.Close()
}
