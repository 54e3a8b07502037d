package pdf

import (
	"bytes"
	"fmt"
)

// Operation is one content stream operator with its operands
type Operation struct {
	Operator string
	Operands []Object
}

// ParseContent splits a decoded content stream into operations. Inline
// images come back as a single "BI" operation with the image dictionary and
// the raw sample bytes as operands.
func ParseContent(data []byte) ([]Operation, error) {
	p := NewParser(data)
	var ops []Operation
	var operands []Object

	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return ops, err
		}
		if tok.Type == TokenEOF {
			return ops, nil
		}
		if tok.Type != TokenKeyword {
			obj, err := p.operandFrom(tok)
			if err != nil {
				return ops, err
			}
			operands = append(operands, obj)
			continue
		}

		switch kw := tok.Keyword(); kw {
		case "true":
			operands = append(operands, Boolean(true))
		case "false":
			operands = append(operands, Boolean(false))
		case "null":
			operands = append(operands, Null{})
		case "BI":
			img, err := p.parseInlineImage()
			if err != nil {
				return ops, fmt.Errorf("inline image at offset %d: %w", tok.Pos, err)
			}
			ops = append(ops, img)
			operands = nil
		default:
			ops = append(ops, Operation{Operator: kw, Operands: operands})
			operands = nil
		}
	}
}

// operandFrom is like objectFrom but never treats "n g R" as a reference;
// content streams have no indirect objects.
func (p *Parser) operandFrom(tok Token) (Object, error) {
	if tok.Type == TokenInteger {
		return Integer(tok.Value.(int64)), nil
	}
	return p.objectFrom(tok)
}

var inlineKeys = map[Name]Name{
	"BPC": "BitsPerComponent",
	"CS":  "ColorSpace",
	"D":   "Decode",
	"DP":  "DecodeParms",
	"F":   "Filter",
	"H":   "Height",
	"IM":  "ImageMask",
	"I":   "Interpolate",
	"W":   "Width",
}

var inlineValues = map[Name]Name{
	"G":    "DeviceGray",
	"RGB":  "DeviceRGB",
	"CMYK": "DeviceCMYK",
	"I":    "Indexed",
	"AHx":  "ASCIIHexDecode",
	"A85":  "ASCII85Decode",
	"LZW":  "LZWDecode",
	"Fl":   "FlateDecode",
	"RL":   "RunLengthDecode",
	"DCT":  "DCTDecode",
	"CCF":  "CCITTFaxDecode",
}

func expandInline(obj Object) Object {
	switch v := obj.(type) {
	case Name:
		if full, ok := inlineValues[v]; ok {
			return full
		}
	case Array:
		out := make(Array, len(v))
		for i, o := range v {
			out[i] = expandInline(o)
		}
		return out
	}
	return obj
}

func (p *Parser) parseInlineImage() (Operation, error) {
	dict := Dictionary{}
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return Operation{}, err
		}
		if tok.Keyword() == "ID" {
			break
		}
		if tok.Type != TokenName {
			return Operation{}, fmt.Errorf("expected key, got token at offset %d", tok.Pos)
		}
		val, err := p.ParseObject()
		if err != nil {
			return Operation{}, err
		}
		key := tok.Value.(Name)
		if full, ok := inlineKeys[key]; ok {
			key = full
		}
		dict[key] = expandInline(val)
	}

	l := p.lexer
	if l.pos < len(l.data) && isWhitespace(l.data[l.pos]) {
		l.pos++
	}
	start := l.pos
	end := findInlineEnd(l.data, start)
	if end < 0 {
		return Operation{}, fmt.Errorf("missing EI")
	}
	raw := bytes.TrimRight(l.data[start:end], "\r\n ")
	l.pos = end + 2
	return Operation{Operator: "BI", Operands: []Object{dict, String{Value: raw}}}, nil
}

// findInlineEnd returns the offset of an "EI" bounded by whitespace (or the
// end of data) on both sides.
func findInlineEnd(data []byte, from int) int {
	for i := from; i+1 < len(data); i++ {
		if data[i] != 'E' || data[i+1] != 'I' {
			continue
		}
		if i > from && !isWhitespace(data[i-1]) {
			continue
		}
		if i+2 < len(data) && !isWhitespace(data[i+2]) && !isDelimiter(data[i+2]) {
			continue
		}
		return i
	}
	return -1
}
