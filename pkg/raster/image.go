package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/novvoo/go-pdfdiff/pkg/pdf"
)

// drawImage paints an image XObject or inline image into the unit square
// of the current transformation
func (in *interpreter) drawImage(s pdf.Stream, res pdf.Dictionary) {
	img, err := in.decodeImage(s, res)
	if err != nil {
		in.log.Debug("image not rendered", zap.Error(err))
		return
	}
	if img == nil {
		return
	}
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if w == 0 || h == 0 {
		return
	}

	// image space has y down; the unit square maps through the CTM
	m := pdf.Matrix{A: 1 / w, D: -1 / h, F: 1}.Multiply(in.state.ctm)
	if math.Abs(m.A*m.D-m.B*m.C) < 1e-12 {
		return
	}
	s2d := f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F}

	var interp draw.Interpolator = draw.ApproxBiLinear
	if m.Expansion() > 2 {
		interp = draw.NearestNeighbor
	}
	var opts *draw.Options
	if clip := in.state.clip; clip != nil {
		opts = &draw.Options{DstMask: clip}
	}
	interp.Transform(in.canvas.img, s2d, img, b, draw.Over, opts)
}

// decodeImage returns the image as NRGBA with soft masks and fill alpha
// applied. Unsupported codecs return a nil image.
func (in *interpreter) decodeImage(s pdf.Stream, res pdf.Dictionary) (*image.NRGBA, error) {
	doc := in.doc
	filters, _ := s.Filters()
	data, err := s.Decode()
	if err != nil {
		return nil, err
	}

	width, _ := doc.ResolveNumber(s.Dict.Get("Width"))
	height, _ := doc.ResolveNumber(s.Dict.Get("Height"))
	w, h := int(width), int(height)
	if w <= 0 || h <= 0 || w*h > 1<<26 {
		return nil, nil
	}

	var out *image.NRGBA
	codec := ""
	if len(filters) > 0 {
		codec = string(filters[len(filters)-1])
	}

	isMask := false
	if v, ok := doc.Resolve(s.Dict.Get("ImageMask")).(pdf.Boolean); ok {
		isMask = bool(v)
	}
	decode := floatsOr(doc, s.Dict.Get("Decode"), nil)

	switch {
	case codec == "DCTDecode":
		src, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		out = toNRGBA(src)
	case codec == "JPXDecode" || codec == "CCITTFaxDecode" || codec == "JBIG2Decode":
		in.skip("image codec " + codec)
		return nil, nil
	case isMask:
		col, ok := in.fillColor()
		if !ok {
			return nil, nil
		}
		paintOn := uint32(0)
		if len(decode) >= 2 && decode[0] > decode[1] {
			paintOn = 1
		}
		out = image.NewNRGBA(image.Rect(0, 0, w, h))
		stride := (w + 7) / 8
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if bits(data, y*stride*8+x, 1) == paintOn {
					out.SetNRGBA(x, y, col)
				}
			}
		}
		return out, nil
	default:
		bpc := 8
		if v, ok := doc.ResolveNumber(s.Dict.Get("BitsPerComponent")); ok {
			bpc = int(v)
		}
		cs := colorSpaceFrom(doc, s.Dict.Get("ColorSpace"), res)
		if s.Dict.Get("ColorSpace") == nil {
			cs = deviceGray
		}
		out = samples(data, w, h, bpc, cs, decode)
	}

	if sm, ok := doc.ResolveStream(s.Dict.Get("SMask")); ok {
		in.applySoftMask(out, sm)
	} else if mk, ok := doc.ResolveStream(s.Dict.Get("Mask")); ok {
		in.applyStencilMask(out, mk)
	}
	if a := in.state.fillAlpha; a < 1 {
		for i := 3; i < len(out.Pix); i += 4 {
			out.Pix[i] = uint8(float64(out.Pix[i]) * a)
		}
	}
	return out, nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), src, b.Min, draw.Src)
	return out
}

// bits reads n bits starting at bit offset off, most significant first
func bits(data []byte, off, n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		pos := off + i
		if pos/8 >= len(data) {
			return v << uint(n-i)
		}
		v = v<<1 | uint32(data[pos/8]>>(7-uint(pos%8))&1)
	}
	return v
}

// samples unpacks raw image samples through a color space
func samples(data []byte, w, h, bpc int, cs *colorSpace, decode []float64) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	n := cs.n
	if n == 0 {
		n = 1
	}
	if bpc != 1 && bpc != 2 && bpc != 4 && bpc != 8 && bpc != 16 {
		bpc = 8
	}

	if bpc == 8 && decode == nil && (cs == deviceRGB || cs == deviceGray) {
		copy8(out, data, n)
		return out
	}

	maxV := float64(uint32(1)<<uint(bpc) - 1)
	rowBits := ((w*n*bpc + 7) / 8) * 8
	comps := make([]float64, n)
	for y := 0; y < h; y++ {
		off := y * rowBits
		if off/8 >= len(data) {
			break
		}
		for x := 0; x < w; x++ {
			for c := 0; c < n; c++ {
				v := float64(bits(data, off, bpc))
				off += bpc
				lo, hi := 0.0, 1.0
				if cs.kind == csIndexed {
					hi = maxV
				}
				if len(decode) >= 2*c+2 {
					lo, hi = decode[2*c], decode[2*c+1]
				}
				comps[c] = lo + v*(hi-lo)/maxV
			}
			r, g, b := cs.rgb(comps)
			out.SetNRGBA(x, y, nrgba(r, g, b, 1))
		}
	}
	return out
}

func copy8(out *image.NRGBA, data []byte, n int) {
	b := out.Bounds()
	i := 0
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if i+n > len(data) {
				return
			}
			c := color.NRGBA{A: 255}
			if n == 1 {
				c.R, c.G, c.B = data[i], data[i], data[i]
			} else {
				c.R, c.G, c.B = data[i], data[i+1], data[i+2]
			}
			out.SetNRGBA(x, y, c)
			i += n
		}
	}
}

// maskValue samples a gray mask image at the position matching (x, y) of img
func maskValue(mask *image.NRGBA, img image.Rectangle, x, y int) uint8 {
	mb := mask.Bounds()
	mx := x * mb.Dx() / img.Dx()
	my := y * mb.Dy() / img.Dy()
	return mask.NRGBAAt(mx, my).R
}

func (in *interpreter) applySoftMask(img *image.NRGBA, sm pdf.Stream) {
	sm.Dict = sm.Dict.Clone()
	sm.Dict["ColorSpace"] = pdf.Name("DeviceGray")
	delete(sm.Dict, "SMask")
	delete(sm.Dict, "Mask")
	saved := in.state.fillAlpha
	in.state.fillAlpha = 1
	mask, err := in.decodeImage(sm, nil)
	in.state.fillAlpha = saved
	if err != nil || mask == nil {
		return
	}
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := img.PixOffset(x, y) + 3
			img.Pix[i] = uint8(uint32(img.Pix[i]) * uint32(maskValue(mask, b, x, y)) / 255)
		}
	}
}

// applyStencilMask hides pixels where an explicit /Mask stencil samples 1
func (in *interpreter) applyStencilMask(img *image.NRGBA, mk pdf.Stream) {
	data, err := mk.Decode()
	if err != nil {
		return
	}
	mw, _ := in.doc.ResolveNumber(mk.Dict.Get("Width"))
	mh, _ := in.doc.ResolveNumber(mk.Dict.Get("Height"))
	w, h := int(mw), int(mh)
	if w <= 0 || h <= 0 {
		return
	}
	hidden := uint32(1)
	if d := floatsOr(in.doc, mk.Dict.Get("Decode"), nil); len(d) >= 2 && d[0] > d[1] {
		hidden = 0
	}
	stride := (w + 7) / 8
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			mx, my := x*w/b.Dx(), y*h/b.Dy()
			if bits(data, my*stride*8+mx, 1) == hidden {
				img.Pix[img.PixOffset(x, y)+3] = 0
			}
		}
	}
}
