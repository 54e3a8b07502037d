package raster

import (
	"github.com/novvoo/go-pdfdiff/pkg/pdf"
)

// defaultFont is used when text is shown before any usable Tf
var defaultFont = &pdfFont{
	name:       "Helvetica",
	face:       goRegular,
	encoding:   baseEncoding("WinAnsiEncoding"),
	widthScale: 0.001,
}

// font resolves a font resource, caching indirect fonts per page
func (in *interpreter) font(res pdf.Dictionary, name pdf.Name) *pdfFont {
	fonts, ok := in.doc.ResolveDict(res.Get("Font"))
	if !ok {
		return defaultFont
	}
	obj := fonts.Get(string(name))
	ref, isRef := obj.(pdf.Reference)
	if isRef {
		if f, ok := in.fonts[ref]; ok {
			return f
		}
	}
	dict, ok := in.doc.ResolveDict(obj)
	if !ok {
		return defaultFont
	}
	f := loadFont(in.doc, dict)
	if isRef {
		in.fonts[ref] = f
	}
	return f
}

func (in *interpreter) moveText(tx, ty float64) {
	in.tlm = pdf.Translate(tx, ty).Multiply(in.tlm)
	in.tm = in.tlm
}

func (in *interpreter) showArray(obj pdf.Object) {
	arr, ok := obj.(pdf.Array)
	if !ok {
		return
	}
	st := &in.state
	for _, o := range arr {
		if adj, ok := pdf.Number(o); ok {
			tx := -adj / 1000 * st.fontSize * st.hscale
			in.tm = pdf.Translate(tx, 0).Multiply(in.tm)
			continue
		}
		in.showString(o)
	}
}

// showString draws one string operand and advances the text matrix.
// Glyphs of a string are collected into one path and painted together.
func (in *interpreter) showString(obj pdf.Object) {
	s, ok := obj.(pdf.String)
	if !ok {
		return
	}
	st := &in.state
	f := st.font
	if f == nil {
		f = defaultFont
	}

	// render modes 3 and 7 are invisible
	visible := st.render != 3 && st.render != 7
	var glyphs path
	fs, th := st.fontSize, st.hscale

	for _, cc := range f.decode(s.Value) {
		if visible {
			if idx := f.glyph(cc.code); idx != 0 {
				trm := pdf.Matrix{A: fs * th, D: fs, F: st.rise}.Multiply(in.tm).Multiply(st.ctm)
				appendGlyph(&glyphs, in.glyphs.get(f.face, idx), trm)
			}
		}
		tx := f.width(cc.code)*fs + st.charSpace
		if cc.single && cc.code == ' ' {
			tx += st.wordSpace
		}
		in.tm = pdf.Translate(tx*th, 0).Multiply(in.tm)
	}

	if glyphs.empty() {
		return
	}
	switch st.render % 4 {
	case 0:
		in.paintGlyphs(&glyphs, true, false)
	case 1:
		in.paintGlyphs(&glyphs, false, true)
	case 2:
		in.paintGlyphs(&glyphs, true, true)
	}
}

func (in *interpreter) paintGlyphs(p *path, fill, stroke bool) {
	if fill {
		if col, ok := in.fillColor(); ok {
			in.canvas.fill(p, col, in.state.clip)
		}
	}
	if stroke {
		if col, ok := in.strokeColor(); ok {
			outline := p.strokeOutline(in.strokeWidth(), in.state.lineCap, in.state.lineJoin)
			in.canvas.fill(outline, col, in.state.clip)
		}
	}
}
