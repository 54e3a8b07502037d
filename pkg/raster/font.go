package raster

import (
	"strings"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/novvoo/go-pdfdiff/pkg/pdf"
)

// glyph outlines are loaded at 1000 units per em, in 26.6 fixed point
const emScale = fixed.Int26_6(1000 << 6)

// Substitutes for fonts that are not embedded or cannot be parsed
var (
	goRegular    = mustParse(goregular.TTF)
	goBold       = mustParse(gobold.TTF)
	goItalic     = mustParse(goitalic.TTF)
	goBoldItalic = mustParse(gobolditalic.TTF)
	goMono       = mustParse(gomono.TTF)
)

func mustParse(ttf []byte) *truetype.Font {
	f, err := truetype.Parse(ttf)
	if err != nil {
		panic(err)
	}
	return f
}

// substitute picks a Go font family member from a PostScript font name
func substitute(baseFont string) *truetype.Font {
	name := strings.ToLower(baseFont)
	switch {
	case strings.Contains(name, "courier"), strings.Contains(name, "mono"):
		return goMono
	}
	bold := strings.Contains(name, "bold") || strings.Contains(name, "black") || strings.Contains(name, "heavy")
	italic := strings.Contains(name, "italic") || strings.Contains(name, "oblique")
	switch {
	case bold && italic:
		return goBoldItalic
	case bold:
		return goBold
	case italic:
		return goItalic
	}
	return goRegular
}

// pdfFont is a font resource prepared for showing text
type pdfFont struct {
	name     string
	face     *truetype.Font
	embedded bool
	twoByte  bool
	type3    bool

	// simple fonts
	encoding  [256]rune
	firstChar int
	widths    []float64

	// composite fonts
	cidWidths map[uint32]float64
	cidToGID  []uint16
	identity  bool

	missingWidth float64
	widthScale   float64
	toUnicode    *pdf.CMap
}

// charCode is one decoded character of a text string
type charCode struct {
	code   uint32
	single bool
}

// loadFont builds a pdfFont from a /Font dictionary
func loadFont(doc *pdf.Document, dict pdf.Dictionary) *pdfFont {
	f := &pdfFont{widthScale: 0.001}
	base, _ := dict.GetName("BaseFont")
	f.name = string(base)
	subtype, _ := dict.GetName("Subtype")

	if s, ok := doc.ResolveStream(dict.Get("ToUnicode")); ok {
		if data, err := s.Decode(); err == nil {
			f.toUnicode, _ = pdf.ParseCMap(data)
		}
	}

	if subtype == "Type0" {
		f.loadComposite(doc, dict)
		return f
	}

	f.encoding = baseEncoding("WinAnsiEncoding")
	switch enc := doc.Resolve(dict.Get("Encoding")).(type) {
	case pdf.Name:
		f.encoding = baseEncoding(string(enc))
	case pdf.Dictionary:
		if b, ok := enc.GetName("BaseEncoding"); ok {
			f.encoding = baseEncoding(string(b))
		}
		if diffs, ok := doc.ResolveArray(enc.Get("Differences")); ok {
			code := 0
			for _, o := range diffs {
				switch v := doc.Resolve(o).(type) {
				case pdf.Integer:
					code = int(v)
				case pdf.Name:
					if code >= 0 && code < 256 {
						f.encoding[code] = runeForGlyph(string(v))
					}
					code++
				}
			}
		}
	}

	if fc, ok := doc.ResolveNumber(dict.Get("FirstChar")); ok {
		f.firstChar = int(fc)
	}
	if ws, ok := doc.ResolveArray(dict.Get("Widths")); ok {
		f.widths = make([]float64, len(ws))
		for i, w := range ws {
			f.widths[i], _ = doc.ResolveNumber(w)
		}
	}

	if subtype == "Type3" {
		f.type3 = true
		if m, ok := doc.ResolveArray(dict.Get("FontMatrix")); ok && len(m) == 6 {
			f.widthScale, _ = doc.ResolveNumber(m[0])
		}
		return f
	}

	desc, _ := doc.ResolveDict(dict.Get("FontDescriptor"))
	f.loadDescriptor(doc, desc)
	return f
}

func (f *pdfFont) loadComposite(doc *pdf.Document, dict pdf.Dictionary) {
	f.twoByte = true
	f.missingWidth = 1000
	descendants, _ := doc.ResolveArray(dict.Get("DescendantFonts"))
	if len(descendants) == 0 {
		f.face = substitute(f.name)
		return
	}
	cid, _ := doc.ResolveDict(descendants[0])
	if dw, ok := doc.ResolveNumber(cid.Get("DW")); ok {
		f.missingWidth = dw
	}
	f.cidWidths = parseCIDWidths(doc, cid.Get("W"))

	switch m := doc.Resolve(cid.Get("CIDToGIDMap")).(type) {
	case pdf.Stream:
		if data, err := m.Decode(); err == nil {
			f.cidToGID = make([]uint16, len(data)/2)
			for i := range f.cidToGID {
				f.cidToGID[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
			}
		}
	default:
		f.identity = true
	}

	desc, _ := doc.ResolveDict(cid.Get("FontDescriptor"))
	missing := f.missingWidth
	f.loadDescriptor(doc, desc)
	f.missingWidth = missing
}

// loadDescriptor picks up the embedded program and MissingWidth
func (f *pdfFont) loadDescriptor(doc *pdf.Document, desc pdf.Dictionary) {
	if desc != nil {
		if mw, ok := doc.ResolveNumber(desc.Get("MissingWidth")); ok {
			f.missingWidth = mw
		}
		if s, ok := doc.ResolveStream(desc.Get("FontFile2")); ok {
			if data, err := s.Decode(); err == nil {
				if face, err := truetype.Parse(data); err == nil {
					f.face, f.embedded = face, true
				}
			}
		}
	}
	if f.face == nil {
		f.face = substitute(f.name)
	}
}

func parseCIDWidths(doc *pdf.Document, obj pdf.Object) map[uint32]float64 {
	w, ok := doc.ResolveArray(obj)
	if !ok {
		return nil
	}
	out := make(map[uint32]float64)
	for i := 0; i < len(w); {
		first, ok := doc.ResolveNumber(w[i])
		if !ok || i+1 >= len(w) {
			break
		}
		if list, ok := doc.ResolveArray(w[i+1]); ok {
			for j, o := range list {
				if v, ok := doc.ResolveNumber(o); ok {
					out[uint32(first)+uint32(j)] = v
				}
			}
			i += 2
			continue
		}
		if i+2 >= len(w) {
			break
		}
		last, _ := doc.ResolveNumber(w[i+1])
		v, _ := doc.ResolveNumber(w[i+2])
		for c := uint32(first); c <= uint32(last) && c-uint32(first) < 0x10000; c++ {
			out[c] = v
		}
		i += 3
	}
	return out
}

// decode splits a string operand into character codes
func (f *pdfFont) decode(s []byte) []charCode {
	if f.twoByte {
		out := make([]charCode, 0, len(s)/2)
		for i := 0; i+1 < len(s); i += 2 {
			out = append(out, charCode{code: uint32(s[i])<<8 | uint32(s[i+1])})
		}
		return out
	}
	out := make([]charCode, len(s))
	for i, b := range s {
		out[i] = charCode{code: uint32(b), single: true}
	}
	return out
}

// width returns the glyph advance in text space units before font size
func (f *pdfFont) width(code uint32) float64 {
	if f.twoByte {
		if w, ok := f.cidWidths[code]; ok {
			return w * f.widthScale
		}
		return f.missingWidth * f.widthScale
	}
	if i := int(code) - f.firstChar; f.widths != nil && i >= 0 && i < len(f.widths) {
		return f.widths[i] * f.widthScale
	}
	if f.missingWidth > 0 || f.type3 {
		return f.missingWidth * f.widthScale
	}
	if idx := f.glyph(code); idx != 0 {
		return float64(f.face.HMetric(emScale, idx).AdvanceWidth) / 64 * f.widthScale
	}
	return 0.5
}

// unicode returns the text for a code, preferring /ToUnicode
func (f *pdfFont) unicode(code uint32) rune {
	if r, ok := f.toUnicode.Lookup(code); ok && len(r) > 0 {
		return r[0]
	}
	if !f.twoByte && code < 256 {
		return f.encoding[code]
	}
	return 0
}

// glyph returns the glyph index to draw for a code, 0 when there is none
func (f *pdfFont) glyph(code uint32) truetype.Index {
	if f.type3 || f.face == nil {
		return 0
	}
	if f.twoByte && f.embedded {
		if f.cidToGID != nil {
			if int(code) < len(f.cidToGID) {
				return truetype.Index(f.cidToGID[code])
			}
			return 0
		}
		return truetype.Index(code)
	}
	r := f.unicode(code)
	if r != 0 {
		if idx := f.face.Index(r); idx != 0 {
			return idx
		}
	}
	if f.embedded && !f.twoByte {
		if idx := f.face.Index(rune(0xF000 + code)); idx != 0 {
			return idx
		}
		return f.face.Index(rune(code))
	}
	return 0
}

// glyphSeg is a glyph outline element in 1/1000 em units, y up
type glyphSeg struct {
	kind segKind
	pts  [3]point
}

type glyphKey struct {
	face *truetype.Font
	idx  truetype.Index
}

// outlines caches decoded glyph outlines for one rendering pass
type outlines struct {
	buf   truetype.GlyphBuf
	cache map[glyphKey][]glyphSeg
}

func (o *outlines) get(face *truetype.Font, idx truetype.Index) []glyphSeg {
	key := glyphKey{face, idx}
	if segs, ok := o.cache[key]; ok {
		return segs
	}
	if o.cache == nil {
		o.cache = make(map[glyphKey][]glyphSeg)
	}
	var segs []glyphSeg
	if err := o.buf.Load(face, emScale, idx, font.HintingNone); err == nil {
		start := 0
		for _, end := range o.buf.Ends {
			segs = appendContour(segs, o.buf.Points[start:end])
			start = end
		}
	}
	o.cache[key] = segs
	return segs
}

func fromFixed(p truetype.Point) point {
	return point{X: float64(p.X) / 64, Y: float64(p.Y) / 64}
}

func mid(a, b point) point { return point{(a.X + b.X) / 2, (a.Y + b.Y) / 2} }

// appendContour converts one quadratic TrueType contour. Quadratic arcs are
// raised to cubics so glyphs share the path representation.
func appendContour(segs []glyphSeg, ps []truetype.Point) []glyphSeg {
	if len(ps) == 0 {
		return segs
	}
	onCurve := func(p truetype.Point) bool { return p.Flags&0x01 != 0 }

	start := fromFixed(ps[0])
	others := ps[1:]
	if !onCurve(ps[0]) {
		last := ps[len(ps)-1]
		if onCurve(last) {
			start = fromFixed(last)
			others = ps[:len(ps)-1]
		} else {
			start = mid(start, fromFixed(last))
			others = ps
		}
	}

	segs = append(segs, glyphSeg{kind: segMove, pts: [3]point{start}})
	cur := start
	quad := func(ctrl, end point) {
		c1 := point{cur.X + 2.0/3*(ctrl.X-cur.X), cur.Y + 2.0/3*(ctrl.Y-cur.Y)}
		c2 := point{end.X + 2.0/3*(ctrl.X-end.X), end.Y + 2.0/3*(ctrl.Y-end.Y)}
		segs = append(segs, glyphSeg{kind: segCubic, pts: [3]point{c1, c2, end}})
		cur = end
	}

	q0, on0 := start, true
	for _, p := range others {
		q, on := fromFixed(p), onCurve(p)
		switch {
		case on && on0:
			segs = append(segs, glyphSeg{kind: segLine, pts: [3]point{q}})
			cur = q
		case on:
			quad(q0, q)
		case !on0:
			quad(q0, mid(q0, q))
		}
		q0, on0 = q, on
	}
	if on0 {
		segs = append(segs, glyphSeg{kind: segLine, pts: [3]point{start}})
	} else {
		quad(q0, start)
	}
	return append(segs, glyphSeg{kind: segClose})
}

// appendGlyph transforms an outline from 1/1000 em into device space
func appendGlyph(p *path, segs []glyphSeg, m pdf.Matrix) {
	tr := func(pt point) point {
		x, y := m.Transform(pt.X/1000, pt.Y/1000)
		return point{x, y}
	}
	for _, s := range segs {
		switch s.kind {
		case segMove:
			p.moveTo(tr(s.pts[0]))
		case segLine:
			p.lineTo(tr(s.pts[0]))
		case segCubic:
			p.cubicTo(tr(s.pts[0]), tr(s.pts[1]), tr(s.pts[2]))
		case segClose:
			p.close()
		}
	}
}
