package pdf

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedFilter is returned for stream filters the reader cannot decode.
var ErrUnsupportedFilter = errors.New("unsupported filter")

type filterFunc func(data []byte, params Dictionary) ([]byte, error)

var filterTable = map[Name]filterFunc{
	"FlateDecode":     flateDecode,
	"Fl":              flateDecode,
	"ASCIIHexDecode":  func(d []byte, _ Dictionary) ([]byte, error) { return asciiHexDecode(d) },
	"AHx":             func(d []byte, _ Dictionary) ([]byte, error) { return asciiHexDecode(d) },
	"ASCII85Decode":   func(d []byte, _ Dictionary) ([]byte, error) { return ascii85Decode(d) },
	"A85":             func(d []byte, _ Dictionary) ([]byte, error) { return ascii85Decode(d) },
	"LZWDecode":       lzwDecode,
	"LZW":             lzwDecode,
	"RunLengthDecode": func(d []byte, _ Dictionary) ([]byte, error) { return runLengthDecode(d) },
	"RL":              func(d []byte, _ Dictionary) ([]byte, error) { return runLengthDecode(d) },
}

func isImageCodec(f Name) bool {
	switch f {
	case "DCTDecode", "DCT", "JPXDecode", "CCITTFaxDecode", "CCF", "JBIG2Decode":
		return true
	}
	return false
}

// applyFilter applies a single filter to decode data
func applyFilter(data []byte, filter Name, params Dictionary) ([]byte, error) {
	fn, ok := filterTable[filter]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, filter)
	}
	out, err := fn(data, params)
	if err != nil {
		return nil, err
	}
	return applyPredictor(out, params)
}

// flateDecode inflates zlib data. A truncated stream keeps what was inflated.
func flateDecode(data []byte, _ Dictionary) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil && !(errors.Is(err, io.ErrUnexpectedEOF) && len(out) > 0) {
		return nil, err
	}
	return out, nil
}

func lzwDecode(data []byte, params Dictionary) ([]byte, error) {
	early := 1
	if v, ok := params.GetInt("EarlyChange"); ok {
		early = int(v)
	}
	return lzwDecompress(data, early)
}

// applyPredictor reverses TIFF (2) and PNG (10+) predictors.
func applyPredictor(data []byte, params Dictionary) ([]byte, error) {
	if params == nil {
		return data, nil
	}
	predictor, _ := params.GetInt("Predictor")
	if predictor <= 1 {
		return data, nil
	}
	columns := intOr(params, "Columns", 1)
	colors := intOr(params, "Colors", 1)
	bpc := intOr(params, "BitsPerComponent", 8)

	bpp := (colors*bpc + 7) / 8
	rowLen := (columns*colors*bpc + 7) / 8
	if rowLen <= 0 {
		return data, nil
	}

	if predictor == 2 {
		if bpc != 8 {
			return data, nil
		}
		out := append([]byte(nil), data...)
		for row := 0; row+rowLen <= len(out); row += rowLen {
			for i := bpp; i < rowLen; i++ {
				out[row+i] += out[row+i-bpp]
			}
		}
		return out, nil
	}

	stride := rowLen + 1
	rows := len(data) / stride
	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen)
	for row := 0; row < rows; row++ {
		src := data[row*stride : row*stride+stride]
		cur := out[row*rowLen : row*rowLen+rowLen]
		tag, line := src[0], src[1:]
		for i := 0; i < rowLen; i++ {
			var left, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch tag {
			case 1:
				cur[i] = line[i] + left
			case 2:
				cur[i] = line[i] + up
			case 3:
				cur[i] = line[i] + byte((int(left)+int(up))/2)
			case 4:
				cur[i] = line[i] + paeth(left, up, upLeft)
			default:
				cur[i] = line[i]
			}
		}
		prev = cur
	}
	return out, nil
}

func intOr(d Dictionary, key string, def int) int {
	if v, ok := d.GetInt(key); ok && v > 0 {
		return int(v)
	}
	return def
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func asciiHexDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)/2)
	var hi byte
	half := false
	for _, c := range data {
		if c == '>' {
			break
		}
		if isWhitespace(c) {
			continue
		}
		v, ok := hexValue(c)
		if !ok {
			return nil, fmt.Errorf("invalid hex digit %q", c)
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return out, nil
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func ascii85Decode(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte("<~"))
	out := make([]byte, 0, len(data)*4/5)
	var group uint32
	n := 0
scan:
	for _, c := range data {
		switch {
		case c == '~':
			break scan
		case isWhitespace(c):
			continue
		case c == 'z' && n == 0:
			out = append(out, 0, 0, 0, 0)
			continue
		case c < '!' || c > 'u':
			return nil, fmt.Errorf("invalid ASCII85 byte %q", c)
		}
		group = group*85 + uint32(c-'!')
		n++
		if n == 5 {
			out = append(out, byte(group>>24), byte(group>>16), byte(group>>8), byte(group))
			group, n = 0, 0
		}
	}
	if n > 1 {
		for i := n; i < 5; i++ {
			group = group*85 + 84
		}
		for i := 0; i < n-1; i++ {
			out = append(out, byte(group>>(24-8*i)))
		}
	}
	return out, nil
}

// lzwDecompress decodes MSB-first LZW with variable code width (9 to 12 bits).
func lzwDecompress(data []byte, earlyChange int) ([]byte, error) {
	const (
		clearCode = 256
		eodCode   = 257
	)
	table := make([][]byte, 4096)
	for i := 0; i < 256; i++ {
		table[i] = []byte{byte(i)}
	}
	next, width := 258, 9
	var out, prev []byte
	bit := 0

	read := func() int {
		if bit+width > len(data)*8 {
			return eodCode
		}
		code := 0
		for i := 0; i < width; i++ {
			pos := bit + i
			if data[pos/8]&(0x80>>(pos%8)) != 0 {
				code |= 1 << (width - 1 - i)
			}
		}
		bit += width
		return code
	}

	for {
		code := read()
		if code == eodCode {
			break
		}
		if code == clearCode {
			next, width, prev = 258, 9, nil
			continue
		}
		var entry []byte
		switch {
		case code < next && table[code] != nil:
			entry = table[code]
		case code == next && prev != nil:
			entry = append(append([]byte(nil), prev...), prev[0])
		default:
			return nil, fmt.Errorf("invalid LZW code %d", code)
		}
		out = append(out, entry...)
		if prev != nil && next < 4096 {
			table[next] = append(append([]byte(nil), prev...), entry[0])
			next++
			if next+earlyChange >= 1<<width && width < 12 {
				width++
			}
		}
		prev = entry
	}
	return out, nil
}

func runLengthDecode(data []byte) ([]byte, error) {
	var out []byte
	for i := 0; i < len(data); {
		n := int(data[i])
		i++
		switch {
		case n == 128:
			return out, nil
		case n < 128:
			if i+n+1 > len(data) {
				return nil, io.ErrUnexpectedEOF
			}
			out = append(out, data[i:i+n+1]...)
			i += n + 1
		default:
			if i >= len(data) {
				return nil, io.ErrUnexpectedEOF
			}
			out = append(out, bytes.Repeat(data[i:i+1], 257-n)...)
			i++
		}
	}
	return out, nil
}
