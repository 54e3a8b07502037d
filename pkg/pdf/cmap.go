package pdf

// CMap maps character codes to Unicode text, as read from a /ToUnicode stream
type CMap struct {
	// CodeBytes is the code width taken from the codespace ranges (1 or 2)
	CodeBytes int
	Map       map[uint32][]rune
}

// Lookup returns the text for a character code
func (c *CMap) Lookup(code uint32) ([]rune, bool) {
	if c == nil {
		return nil, false
	}
	r, ok := c.Map[code]
	return r, ok
}

// ParseCMap reads the bfchar, bfrange and codespacerange sections of a CMap
// program. Unknown operators are ignored.
func ParseCMap(data []byte) (*CMap, error) {
	cm := &CMap{CodeBytes: 1, Map: make(map[uint32][]rune)}
	p := NewParser(data)
	var operands []Object

	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return cm, err
		}
		if tok.Type == TokenEOF {
			return cm, nil
		}
		if tok.Type != TokenKeyword {
			obj, err := p.operandFrom(tok)
			if err != nil {
				return cm, err
			}
			operands = append(operands, obj)
			continue
		}
		switch tok.Keyword() {
		case "endcodespacerange":
			for _, o := range operands {
				if s, ok := o.(String); ok && len(s.Value) > cm.CodeBytes {
					cm.CodeBytes = len(s.Value)
				}
			}
		case "endbfchar":
			for i := 0; i+1 < len(operands); i += 2 {
				src, ok1 := operands[i].(String)
				dst, ok2 := operands[i+1].(String)
				if ok1 && ok2 {
					cm.Map[codeValue(src.Value)] = utf16Runes(dst.Value)
				}
			}
		case "endbfrange":
			for i := 0; i+2 < len(operands); i += 3 {
				lo, ok1 := operands[i].(String)
				hi, ok2 := operands[i+1].(String)
				if !ok1 || !ok2 {
					continue
				}
				start, end := codeValue(lo.Value), codeValue(hi.Value)
				if end < start || end-start > 0xFFFF {
					continue
				}
				switch dst := operands[i+2].(type) {
				case String:
					base := utf16Runes(dst.Value)
					if len(base) == 0 {
						continue
					}
					for c := start; c <= end; c++ {
						out := append([]rune(nil), base...)
						out[len(out)-1] += rune(c - start)
						cm.Map[c] = out
					}
				case Array:
					for j, o := range dst {
						if s, ok := o.(String); ok && start+uint32(j) <= end {
							cm.Map[start+uint32(j)] = utf16Runes(s.Value)
						}
					}
				}
			}
		}
		operands = nil
	}
}

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func utf16Runes(b []byte) []rune {
	if len(b) == 1 {
		return []rune{rune(b[0])}
	}
	var out []rune
	for i := 0; i+1 < len(b); i += 2 {
		r := rune(b[i])<<8 | rune(b[i+1])
		if r >= 0xD800 && r <= 0xDBFF && i+3 < len(b) {
			lo := rune(b[i+2])<<8 | rune(b[i+3])
			r = 0x10000 + (r-0xD800)<<10 + (lo - 0xDC00)
			i += 2
		}
		out = append(out, r)
	}
	return out
}
