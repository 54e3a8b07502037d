package raster

import (
	"image/color"
	"math"

	"github.com/novvoo/go-pdfdiff/pkg/pdf"
)

type csKind int

const (
	csGray csKind = iota
	csRGB
	csCMYK
	csLab
	csIndexed
	csTint
	csPattern
)

// colorSpace converts color operands into device RGB
type colorSpace struct {
	kind csKind
	n    int

	// Indexed
	base   *colorSpace
	hival  int
	lookup []byte

	// Separation and DeviceN: a type 2 tint transform when present,
	// otherwise the tint is shown as gray
	alt    *colorSpace
	c0, c1 []float64
	exp    float64
}

var (
	deviceGray = &colorSpace{kind: csGray, n: 1}
	deviceRGB  = &colorSpace{kind: csRGB, n: 3}
	deviceCMYK = &colorSpace{kind: csCMYK, n: 4}
	patternCS  = &colorSpace{kind: csPattern, n: 0}
)

// initial returns the initial color of the space
func (cs *colorSpace) initial() []float64 {
	switch cs.kind {
	case csCMYK:
		return []float64{0, 0, 0, 1}
	case csTint:
		v := make([]float64, cs.n)
		for i := range v {
			v[i] = 1
		}
		return v
	case csLab:
		return []float64{0, 0, 0}
	}
	return make([]float64, cs.n)
}

// rgb converts operand values to an RGB triple in [0,1]
func (cs *colorSpace) rgb(v []float64) (r, g, b float64) {
	at := func(i int) float64 {
		if i < len(v) {
			return clamp01(v[i])
		}
		return 0
	}
	switch cs.kind {
	case csGray:
		g := at(0)
		return g, g, g
	case csRGB:
		return at(0), at(1), at(2)
	case csCMYK:
		c, m, y, k := at(0), at(1), at(2), at(3)
		return (1 - c) * (1 - k), (1 - m) * (1 - k), (1 - y) * (1 - k)
	case csLab:
		if len(v) < 3 {
			return 0, 0, 0
		}
		return labToRGB(v[0], v[1], v[2])
	case csIndexed:
		if len(v) == 0 || cs.base == nil {
			return 0, 0, 0
		}
		idx := int(math.Round(v[0]))
		if idx < 0 {
			idx = 0
		}
		if idx > cs.hival {
			idx = cs.hival
		}
		n := cs.base.n
		comps := make([]float64, n)
		for i := 0; i < n; i++ {
			off := idx*n + i
			if off < len(cs.lookup) {
				comps[i] = float64(cs.lookup[off]) / 255
			}
		}
		if cs.base.kind == csLab {
			comps = labRange(comps)
		}
		return cs.base.rgb(comps)
	case csTint:
		if cs.alt != nil && cs.c1 != nil && len(v) > 0 {
			t := math.Pow(at(0), cs.exp)
			out := make([]float64, len(cs.c1))
			for i := range out {
				out[i] = cs.c0[i] + t*(cs.c1[i]-cs.c0[i])
			}
			return cs.alt.rgb(out)
		}
		sum := 0.0
		for i := range v {
			sum += at(i)
		}
		if len(v) > 0 {
			sum /= float64(len(v))
		}
		g := 1 - sum
		return g, g, g
	}
	return 0, 0, 0
}

func labRange(c []float64) []float64 {
	return []float64{c[0] * 100, c[1]*200 - 100, c[2]*200 - 100}
}

// labToRGB converts CIE L*a*b* (D50 white) to sRGB
func labToRGB(l, a, b float64) (float64, float64, float64) {
	fy := (l + 16) / 116
	fx := fy + a/500
	fz := fy - b/200
	inv := func(t float64) float64 {
		if t > 6.0/29 {
			return t * t * t
		}
		return 3 * (6.0 / 29) * (6.0 / 29) * (t - 4.0/29)
	}
	x, y, z := 0.9642*inv(fx), inv(fy), 0.8249*inv(fz)
	r := 3.1339*x - 1.6169*y - 0.4906*z
	g := -0.9785*x + 1.9160*y + 0.0334*z
	bl := 0.0720*x - 0.2290*y + 1.4057*z
	gamma := func(c float64) float64 {
		c = clamp01(c)
		if c <= 0.0031308 {
			return 12.92 * c
		}
		return 1.055*math.Pow(c, 1/2.4) - 0.055
	}
	return gamma(r), gamma(g), gamma(bl)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func toByte(v float64) uint8 { return uint8(math.Round(clamp01(v) * 255)) }

// nrgba builds a non-premultiplied color from an RGB triple and alpha
func nrgba(r, g, b, alpha float64) color.NRGBA {
	return color.NRGBA{R: toByte(r), G: toByte(g), B: toByte(b), A: toByte(alpha)}
}

// colorSpaceFrom resolves a color space operand or /ColorSpace entry. Named
// spaces are looked up in the resource dictionary.
func colorSpaceFrom(doc *pdf.Document, obj pdf.Object, res pdf.Dictionary) *colorSpace {
	return resolveColorSpace(doc, obj, res, 0)
}

func resolveColorSpace(doc *pdf.Document, obj pdf.Object, res pdf.Dictionary, depth int) *colorSpace {
	if depth > 8 {
		return deviceGray
	}
	obj = doc.Resolve(obj)
	switch v := obj.(type) {
	case pdf.Name:
		switch v {
		case "DeviceGray", "G", "CalGray":
			return deviceGray
		case "DeviceRGB", "RGB", "CalRGB":
			return deviceRGB
		case "DeviceCMYK", "CMYK":
			return deviceCMYK
		case "Pattern":
			return patternCS
		}
		if res != nil {
			if spaces, ok := doc.ResolveDict(res.Get("ColorSpace")); ok {
				if named := spaces.Get(string(v)); named != nil {
					return resolveColorSpace(doc, named, nil, depth+1)
				}
			}
		}
		return deviceGray
	case pdf.Array:
		if len(v) == 0 {
			return deviceGray
		}
		family, _ := doc.Resolve(v[0]).(pdf.Name)
		switch family {
		case "CalGray":
			return deviceGray
		case "CalRGB":
			return deviceRGB
		case "Lab":
			return &colorSpace{kind: csLab, n: 3}
		case "ICCBased":
			if len(v) > 1 {
				if s, ok := doc.ResolveStream(v[1]); ok {
					if alt := s.Dict.Get("Alternate"); alt != nil {
						return resolveColorSpace(doc, alt, res, depth+1)
					}
					if n, ok := s.Dict.GetInt("N"); ok {
						switch n {
						case 1:
							return deviceGray
						case 4:
							return deviceCMYK
						}
					}
				}
			}
			return deviceRGB
		case "Indexed", "I":
			if len(v) < 4 {
				return deviceGray
			}
			base := resolveColorSpace(doc, v[1], res, depth+1)
			hival, _ := doc.ResolveNumber(v[2])
			var lookup []byte
			switch l := doc.Resolve(v[3]).(type) {
			case pdf.String:
				lookup = l.Value
			case pdf.Stream:
				lookup, _ = l.Decode()
			}
			return &colorSpace{kind: csIndexed, n: 1, base: base, hival: int(hival), lookup: lookup}
		case "Separation", "DeviceN":
			n := 1
			if family == "DeviceN" && len(v) > 1 {
				if names, ok := doc.ResolveArray(v[1]); ok && len(names) > 0 {
					n = len(names)
				}
			}
			cs := &colorSpace{kind: csTint, n: n}
			if len(v) > 3 && n == 1 {
				cs.alt = resolveColorSpace(doc, v[2], res, depth+1)
				if fn, ok := doc.ResolveDict(v[3]); ok {
					if t, _ := fn.GetInt("FunctionType"); t == 2 {
						cs.c0 = floatsOr(doc, fn.Get("C0"), []float64{0})
						cs.c1 = floatsOr(doc, fn.Get("C1"), []float64{1})
						cs.exp = 1
						if e, ok := doc.ResolveNumber(fn.Get("N")); ok {
							cs.exp = e
						}
						if len(cs.c0) != len(cs.c1) {
							cs.c1 = nil
						}
					}
				}
			}
			return cs
		case "Pattern":
			return patternCS
		}
		return resolveColorSpace(doc, family, res, depth+1)
	}
	return deviceGray
}

func floatsOr(doc *pdf.Document, obj pdf.Object, def []float64) []float64 {
	arr, ok := doc.ResolveArray(obj)
	if !ok {
		return def
	}
	out := make([]float64, 0, len(arr))
	for _, o := range arr {
		f, ok := doc.ResolveNumber(o)
		if !ok {
			return def
		}
		out = append(out, f)
	}
	return out
}
