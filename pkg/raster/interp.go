package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"go.uber.org/zap"

	"github.com/novvoo/go-pdfdiff/pkg/pdf"
)

// forms nested deeper than this are not drawn
const maxFormDepth = 16

// gstate is the subset of the PDF graphics state that affects pixels
type gstate struct {
	ctm pdf.Matrix

	fillSpace, strokeSpace *colorSpace
	fillColor, strokeColor []float64
	fillAlpha, strokeAlpha float64

	lineWidth         float64
	lineCap, lineJoin int
	clip              *image.Alpha

	font      *pdfFont
	fontSize  float64
	charSpace float64
	wordSpace float64
	hscale    float64
	leading   float64
	rise      float64
	render    int
}

func newGState(ctm pdf.Matrix) gstate {
	return gstate{
		ctm:         ctm,
		fillSpace:   deviceGray,
		strokeSpace: deviceGray,
		fillColor:   []float64{0},
		strokeColor: []float64{0},
		fillAlpha:   1,
		strokeAlpha: 1,
		lineWidth:   1,
		hscale:      1,
	}
}

type clipRule int

const (
	clipNone clipRule = iota
	clipNonZero
	clipEvenOdd
)

// interpreter executes content streams for one page
type interpreter struct {
	doc    *pdf.Document
	canvas *canvas
	log    *zap.Logger

	state gstate
	stack []gstate
	floor int // Q never pops below this depth
	path  path
	clip  clipRule

	tm, tlm pdf.Matrix

	fonts   map[pdf.Reference]*pdfFont
	glyphs  outlines
	depth   int
	ops     int
	skipped map[string]bool
}

func newInterpreter(doc *pdf.Document, c *canvas, log *zap.Logger) *interpreter {
	return &interpreter{
		doc:     doc,
		canvas:  c,
		log:     log,
		fonts:   make(map[pdf.Reference]*pdfFont),
		skipped: make(map[string]bool),
	}
}

// run executes a top-level content stream with ctm mapping user space to pixels
func (in *interpreter) run(content []byte, res pdf.Dictionary, ctm pdf.Matrix) error {
	ops, err := pdf.ParseContent(content)
	if err != nil {
		return fmt.Errorf("parse content: %w", err)
	}
	in.state = newGState(ctm)
	in.stack = in.stack[:0]
	in.path.reset()
	return in.exec(ops, res)
}

func (in *interpreter) exec(ops []pdf.Operation, res pdf.Dictionary) error {
	for _, op := range ops {
		in.ops++
		if err := in.do(op, res); err != nil {
			return err
		}
	}
	return nil
}

func (in *interpreter) save() { in.stack = append(in.stack, in.state) }

func (in *interpreter) restore() {
	if n := len(in.stack); n > in.floor {
		in.state = in.stack[n-1]
		in.stack = in.stack[:n-1]
	}
}

func (in *interpreter) skip(op string) {
	if !in.skipped[op] {
		in.skipped[op] = true
		in.log.Debug("operator not rendered", zap.String("op", op))
	}
}

func nums(operands []pdf.Object) []float64 {
	out := make([]float64, 0, len(operands))
	for _, o := range operands {
		if v, ok := pdf.Number(o); ok {
			out = append(out, v)
		}
	}
	return out
}

func (in *interpreter) pt(x, y float64) point {
	dx, dy := in.state.ctm.Transform(x, y)
	return point{dx, dy}
}

func (in *interpreter) do(op pdf.Operation, res pdf.Dictionary) error {
	st := &in.state
	args := op.Operands
	n := nums(args)

	switch op.Operator {
	// graphics state
	case "q":
		in.save()
	case "Q":
		in.restore()
	case "cm":
		if m, ok := pdf.MatrixFrom(args); ok {
			st.ctm = m.Multiply(st.ctm)
		}
	case "w":
		if len(n) > 0 {
			st.lineWidth = n[0]
		}
	case "J":
		if len(n) > 0 {
			st.lineCap = int(n[0])
		}
	case "j":
		if len(n) > 0 {
			st.lineJoin = int(n[0])
		}
	case "M", "d", "ri", "i":
	case "gs":
		if name, ok := firstName(args); ok {
			in.extGState(res, name)
		}

	// path construction
	case "m":
		if len(n) >= 2 {
			in.path.moveTo(in.pt(n[0], n[1]))
		}
	case "l":
		if len(n) >= 2 {
			in.path.lineTo(in.pt(n[0], n[1]))
		}
	case "c":
		if len(n) >= 6 {
			in.path.cubicTo(in.pt(n[0], n[1]), in.pt(n[2], n[3]), in.pt(n[4], n[5]))
		}
	case "v":
		if len(n) >= 4 {
			in.path.cubicTo(in.path.cur, in.pt(n[0], n[1]), in.pt(n[2], n[3]))
		}
	case "y":
		if len(n) >= 4 {
			end := in.pt(n[2], n[3])
			in.path.cubicTo(in.pt(n[0], n[1]), end, end)
		}
	case "h":
		in.path.close()
	case "re":
		if len(n) >= 4 {
			x, y, w, h := n[0], n[1], n[2], n[3]
			in.path.moveTo(in.pt(x, y))
			in.path.lineTo(in.pt(x+w, y))
			in.path.lineTo(in.pt(x+w, y+h))
			in.path.lineTo(in.pt(x, y+h))
			in.path.close()
		}

	// path painting
	case "S":
		in.strokePath()
		in.endPath()
	case "s":
		in.path.close()
		in.strokePath()
		in.endPath()
	case "f", "F", "f*":
		in.fillPath()
		in.endPath()
	case "B", "B*":
		in.fillPath()
		in.strokePath()
		in.endPath()
	case "b", "b*":
		in.path.close()
		in.fillPath()
		in.strokePath()
		in.endPath()
	case "n":
		in.endPath()
	case "W":
		in.clip = clipNonZero
	case "W*":
		in.clip = clipEvenOdd

	// color
	case "g":
		st.fillSpace, st.fillColor = deviceGray, n
	case "G":
		st.strokeSpace, st.strokeColor = deviceGray, n
	case "rg":
		st.fillSpace, st.fillColor = deviceRGB, n
	case "RG":
		st.strokeSpace, st.strokeColor = deviceRGB, n
	case "k":
		st.fillSpace, st.fillColor = deviceCMYK, n
	case "K":
		st.strokeSpace, st.strokeColor = deviceCMYK, n
	case "cs":
		if len(args) > 0 {
			st.fillSpace = colorSpaceFrom(in.doc, args[0], res)
			st.fillColor = st.fillSpace.initial()
		}
	case "CS":
		if len(args) > 0 {
			st.strokeSpace = colorSpaceFrom(in.doc, args[0], res)
			st.strokeColor = st.strokeSpace.initial()
		}
	case "sc", "scn":
		st.fillColor = n
	case "SC", "SCN":
		st.strokeColor = n

	// external objects
	case "Do":
		if name, ok := firstName(args); ok {
			return in.xobject(res, name)
		}
	case "BI":
		if len(args) == 2 {
			dict, _ := args[0].(pdf.Dictionary)
			raw, _ := args[1].(pdf.String)
			in.drawImage(pdf.Stream{Dict: dict, Data: raw.Value}, res)
		}

	// text
	case "BT":
		in.tm, in.tlm = pdf.IdentityMatrix(), pdf.IdentityMatrix()
	case "ET":
	case "Tc":
		if len(n) > 0 {
			st.charSpace = n[0]
		}
	case "Tw":
		if len(n) > 0 {
			st.wordSpace = n[0]
		}
	case "Tz":
		if len(n) > 0 {
			st.hscale = n[0] / 100
		}
	case "TL":
		if len(n) > 0 {
			st.leading = n[0]
		}
	case "Tr":
		if len(n) > 0 {
			st.render = int(n[0])
		}
	case "Ts":
		if len(n) > 0 {
			st.rise = n[0]
		}
	case "Tf":
		if len(args) >= 2 {
			name, _ := args[0].(pdf.Name)
			st.font = in.font(res, name)
			st.fontSize, _ = pdf.Number(args[1])
		}
	case "Td":
		if len(n) >= 2 {
			in.moveText(n[0], n[1])
		}
	case "TD":
		if len(n) >= 2 {
			st.leading = -n[1]
			in.moveText(n[0], n[1])
		}
	case "Tm":
		if m, ok := pdf.MatrixFrom(args); ok {
			in.tm, in.tlm = m, m
		}
	case "T*":
		in.moveText(0, -st.leading)
	case "Tj":
		if len(args) > 0 {
			in.showString(args[0])
		}
	case "'":
		in.moveText(0, -st.leading)
		if len(args) > 0 {
			in.showString(args[0])
		}
	case "\"":
		if len(args) >= 3 {
			st.wordSpace, _ = pdf.Number(args[0])
			st.charSpace, _ = pdf.Number(args[1])
			in.moveText(0, -st.leading)
			in.showString(args[2])
		}
	case "TJ":
		if len(args) > 0 {
			in.showArray(args[0])
		}

	// marked content and compatibility sections draw nothing
	case "BMC", "BDC", "EMC", "MP", "DP", "BX", "EX", "d0", "d1":
	default:
		in.skip(op.Operator)
	}
	return nil
}

func firstName(args []pdf.Object) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	name, ok := args[0].(pdf.Name)
	return string(name), ok
}

func (in *interpreter) extGState(res pdf.Dictionary, name string) {
	states, ok := in.doc.ResolveDict(res.Get("ExtGState"))
	if !ok {
		return
	}
	gs, ok := in.doc.ResolveDict(states.Get(name))
	if !ok {
		return
	}
	st := &in.state
	if v, ok := in.doc.ResolveNumber(gs.Get("CA")); ok {
		st.strokeAlpha = clamp01(v)
	}
	if v, ok := in.doc.ResolveNumber(gs.Get("ca")); ok {
		st.fillAlpha = clamp01(v)
	}
	if v, ok := in.doc.ResolveNumber(gs.Get("LW")); ok {
		st.lineWidth = v
	}
	if v, ok := in.doc.ResolveNumber(gs.Get("LC")); ok {
		st.lineCap = int(v)
	}
	if v, ok := in.doc.ResolveNumber(gs.Get("LJ")); ok {
		st.lineJoin = int(v)
	}
}

func (in *interpreter) fillColor() (color.NRGBA, bool) {
	st := &in.state
	if st.fillSpace.kind == csPattern {
		return color.NRGBA{}, false
	}
	r, g, b := st.fillSpace.rgb(st.fillColor)
	return nrgba(r, g, b, st.fillAlpha), true
}

func (in *interpreter) strokeColor() (color.NRGBA, bool) {
	st := &in.state
	if st.strokeSpace.kind == csPattern {
		return color.NRGBA{}, false
	}
	r, g, b := st.strokeSpace.rgb(st.strokeColor)
	return nrgba(r, g, b, st.strokeAlpha), true
}

func (in *interpreter) fillPath() {
	if in.path.empty() {
		return
	}
	if col, ok := in.fillColor(); ok {
		in.canvas.fill(&in.path, col, in.state.clip)
	} else {
		in.skip("pattern fill")
	}
}

// strokeWidth converts the line width to pixels. Zero-width lines are one
// pixel wide.
func (in *interpreter) strokeWidth() float64 {
	w := in.state.lineWidth * in.state.ctm.Expansion()
	return math.Max(w, 1)
}

func (in *interpreter) strokePath() {
	if in.path.empty() {
		return
	}
	col, ok := in.strokeColor()
	if !ok {
		in.skip("pattern stroke")
		return
	}
	outline := in.path.strokeOutline(in.strokeWidth(), in.state.lineCap, in.state.lineJoin)
	in.canvas.fill(outline, col, in.state.clip)
}

// endPath applies a pending clip and discards the current path
func (in *interpreter) endPath() {
	if in.clip != clipNone {
		in.state.clip = in.canvas.clipMask(&in.path, in.state.clip)
		in.clip = clipNone
	}
	in.path.reset()
}

// clipRect intersects the clip with a user-space rectangle
func (in *interpreter) clipRect(r pdf.Rectangle) {
	var p path
	p.moveTo(in.pt(r.LLX, r.LLY))
	p.lineTo(in.pt(r.URX, r.LLY))
	p.lineTo(in.pt(r.URX, r.URY))
	p.lineTo(in.pt(r.LLX, r.URY))
	p.close()
	in.state.clip = in.canvas.clipMask(&p, in.state.clip)
}

func (in *interpreter) xobject(res pdf.Dictionary, name string) error {
	xobjs, ok := in.doc.ResolveDict(res.Get("XObject"))
	if !ok {
		return nil
	}
	s, ok := in.doc.ResolveStream(xobjs.Get(name))
	if !ok {
		return nil
	}
	switch subtype, _ := s.Dict.GetName("Subtype"); subtype {
	case "Image":
		in.drawImage(s, res)
	case "Form":
		return in.form(s, res)
	default:
		in.skip("XObject " + string(subtype))
	}
	return nil
}

// form draws a form XObject through its /Matrix, clipped to its /BBox
func (in *interpreter) form(s pdf.Stream, res pdf.Dictionary) error {
	if in.depth >= maxFormDepth {
		in.skip("nested form")
		return nil
	}
	data, err := s.Decode()
	if err != nil {
		return fmt.Errorf("form xobject: %w", err)
	}
	ops, err := pdf.ParseContent(data)
	if err != nil {
		return fmt.Errorf("form xobject: %w", err)
	}

	formRes, ok := in.doc.ResolveDict(s.Dict.Get("Resources"))
	if !ok {
		formRes = res
	}

	in.save()
	floor := in.floor
	in.floor = len(in.stack)
	savedPath := in.path
	in.path = path{}

	if arr, ok := in.doc.ResolveArray(s.Dict.Get("Matrix")); ok {
		if m, ok := pdf.MatrixFrom(arr); ok {
			in.state.ctm = m.Multiply(in.state.ctm)
		}
	}
	if bbox, ok := rectFrom(in.doc, s.Dict.Get("BBox")); ok {
		in.clipRect(bbox)
	}

	in.depth++
	err = in.exec(ops, formRes)
	in.depth--

	in.stack = in.stack[:in.floor]
	in.floor = floor
	in.restore()
	in.path = savedPath
	return err
}

func rectFrom(doc *pdf.Document, obj pdf.Object) (pdf.Rectangle, bool) {
	v := floatsOr(doc, obj, nil)
	if len(v) != 4 {
		return pdf.Rectangle{}, false
	}
	return pdf.Rectangle{
		LLX: math.Min(v[0], v[2]), LLY: math.Min(v[1], v[3]),
		URX: math.Max(v[0], v[2]), URY: math.Max(v[1], v[3]),
	}, true
}

// annotations draws the normal appearance streams of visible annotations
func (in *interpreter) annotations(page *pdf.Page, device pdf.Matrix) {
	annots, ok := in.doc.ResolveArray(page.Dict.Get("Annots"))
	if !ok {
		return
	}
	for _, a := range annots {
		annot, ok := in.doc.ResolveDict(a)
		if !ok {
			continue
		}
		if flags, _ := in.doc.ResolveNumber(annot.Get("F")); int(flags)&(2|32) != 0 {
			continue
		}
		ap, ok := in.appearance(annot)
		if !ok {
			continue
		}
		rect, ok := rectFrom(in.doc, annot.Get("Rect"))
		if !ok {
			continue
		}
		bbox, ok := rectFrom(in.doc, ap.Dict.Get("BBox"))
		if !ok {
			continue
		}
		m := pdf.IdentityMatrix()
		if arr, ok := in.doc.ResolveArray(ap.Dict.Get("Matrix")); ok {
			if am, ok := pdf.MatrixFrom(arr); ok {
				m = am
			}
		}
		box := transformRect(bbox, m)
		if box.Width() <= 0 || box.Height() <= 0 {
			continue
		}
		fit := pdf.Translate(-box.LLX, -box.LLY).
			Multiply(pdf.Scale(rect.Width()/box.Width(), rect.Height()/box.Height())).
			Multiply(pdf.Translate(rect.LLX, rect.LLY))

		in.state = newGState(fit.Multiply(device))
		in.stack = in.stack[:0]
		if err := in.form(ap, page.Resources); err != nil {
			in.log.Debug("annotation appearance failed", zap.Error(err))
		}
	}
}

func (in *interpreter) appearance(annot pdf.Dictionary) (pdf.Stream, bool) {
	ap, ok := in.doc.ResolveDict(annot.Get("AP"))
	if !ok {
		return pdf.Stream{}, false
	}
	switch n := in.doc.Resolve(ap.Get("N")).(type) {
	case pdf.Stream:
		return n, true
	case pdf.Dictionary:
		state, ok := annot.GetName("AS")
		if !ok {
			return pdf.Stream{}, false
		}
		return in.doc.ResolveStream(n.Get(string(state)))
	}
	return pdf.Stream{}, false
}

func transformRect(r pdf.Rectangle, m pdf.Matrix) pdf.Rectangle {
	xs := make([]float64, 0, 4)
	ys := make([]float64, 0, 4)
	for _, c := range [][2]float64{{r.LLX, r.LLY}, {r.URX, r.LLY}, {r.URX, r.URY}, {r.LLX, r.URY}} {
		x, y := m.Transform(c[0], c[1])
		xs, ys = append(xs, x), append(ys, y)
	}
	out := pdf.Rectangle{LLX: xs[0], LLY: ys[0], URX: xs[0], URY: ys[0]}
	for i := 1; i < 4; i++ {
		out.LLX, out.URX = math.Min(out.LLX, xs[i]), math.Max(out.URX, xs[i])
		out.LLY, out.URY = math.Min(out.LLY, ys[i]), math.Max(out.URY, ys[i])
	}
	return out
}
