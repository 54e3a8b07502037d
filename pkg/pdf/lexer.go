package pdf

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// TokenType represents the type of a lexical token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenInteger
	TokenReal
	TokenString
	TokenHexString
	TokenName
	TokenArrayStart
	TokenArrayEnd
	TokenDictStart
	TokenDictEnd
	TokenKeyword
)

// Token represents a lexical token. Value holds int64, float64, []byte,
// Name or the keyword text depending on Type.
type Token struct {
	Type  TokenType
	Value interface{}
	Pos   int
}

// Keyword returns the keyword text, or "" for non-keyword tokens.
func (t Token) Keyword() string {
	if t.Type != TokenKeyword {
		return ""
	}
	s, _ := t.Value.(string)
	return s
}

// Lexer splits PDF bytes into tokens. It works on an in-memory buffer so
// callers can reposition it for xref offsets and binary stream payloads.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer creates a lexer positioned at the start of data
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Position returns the current offset
func (l *Lexer) Position() int { return l.pos }

// Seek moves the lexer to an absolute offset
func (l *Lexer) Seek(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(l.data) {
		pos = len(l.data)
	}
	l.pos = pos
}

// isWhitespace checks if a byte is PDF whitespace
func isWhitespace(b byte) bool {
	return b == 0 || b == '\t' || b == '\n' || b == '\f' || b == '\r' || b == ' '
}

// isDelimiter checks if a byte is a PDF delimiter
func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isWhitespace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

// NextToken returns the next token
func (l *Lexer) NextToken() (Token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.data) {
		return Token{Type: TokenEOF, Pos: start}, nil
	}

	c := l.data[l.pos]
	switch {
	case c == '[':
		l.pos++
		return Token{Type: TokenArrayStart, Pos: start}, nil
	case c == ']':
		l.pos++
		return Token{Type: TokenArrayEnd, Pos: start}, nil
	case c == '<':
		if l.peekAt(1) == '<' {
			l.pos += 2
			return Token{Type: TokenDictStart, Pos: start}, nil
		}
		b, err := l.readHexString()
		return Token{Type: TokenHexString, Value: b, Pos: start}, err
	case c == '>':
		if l.peekAt(1) == '>' {
			l.pos += 2
			return Token{Type: TokenDictEnd, Pos: start}, nil
		}
		return Token{}, fmt.Errorf("unexpected '>' at offset %d", start)
	case c == '(':
		b, err := l.readLiteralString()
		return Token{Type: TokenString, Value: b, Pos: start}, err
	case c == '/':
		return Token{Type: TokenName, Value: l.readName(), Pos: start}, nil
	case c == '{' || c == '}':
		l.pos++
		return Token{Type: TokenKeyword, Value: string(c), Pos: start}, nil
	case c == ')':
		return Token{}, fmt.Errorf("unbalanced ')' at offset %d", start)
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return l.readNumber()
	}
	return Token{Type: TokenKeyword, Value: l.readRegular(), Pos: start}, nil
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off < len(l.data) {
		return l.data[l.pos+off]
	}
	return 0
}

func (l *Lexer) readRegular() string {
	start := l.pos
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		l.pos++
	}
	if l.pos == start {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	word := l.readRegular()
	if i, err := strconv.ParseInt(word, 10, 64); err == nil {
		return Token{Type: TokenInteger, Value: i, Pos: start}, nil
	}
	// producers emit oddities such as "--1" or "1.2.3"; keep the leading number
	clean := word
	for len(clean) > 1 && (clean[0] == '-' || clean[0] == '+') && (clean[1] == '-' || clean[1] == '+') {
		clean = clean[1:]
	}
	if f, err := strconv.ParseFloat(clean, 64); err == nil {
		return Token{Type: TokenReal, Value: f, Pos: start}, nil
	}
	end := 0
	dot := false
	for end < len(clean) {
		ch := clean[end]
		if ch == '.' && !dot {
			dot = true
		} else if !(ch >= '0' && ch <= '9') && !(end == 0 && (ch == '-' || ch == '+')) {
			break
		}
		end++
	}
	if f, err := strconv.ParseFloat(clean[:end], 64); err == nil {
		return Token{Type: TokenReal, Value: f, Pos: start}, nil
	}
	if clean == "-" || clean == "+" || clean == "." {
		return Token{Type: TokenInteger, Value: int64(0), Pos: start}, nil
	}
	return Token{Type: TokenKeyword, Value: word, Pos: start}, nil
}

func (l *Lexer) readName() Name {
	l.pos++ // '/'
	var buf bytes.Buffer
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		if c == '#' && l.pos+2 < len(l.data) {
			hi, ok1 := hexValue(l.data[l.pos+1])
			lo, ok2 := hexValue(l.data[l.pos+2])
			if ok1 && ok2 {
				buf.WriteByte(hi<<4 | lo)
				l.pos += 3
				continue
			}
		}
		buf.WriteByte(c)
		l.pos++
	}
	return Name(buf.String())
}

func (l *Lexer) readLiteralString() ([]byte, error) {
	l.pos++ // '('
	var buf bytes.Buffer
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return buf.Bytes(), nil
			}
		case '\\':
			if l.pos >= len(l.data) {
				return buf.Bytes(), io.ErrUnexpectedEOF
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data); i++ {
						d := l.data[l.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						l.pos++
					}
					buf.WriteByte(byte(v))
				} else {
					buf.WriteByte(e)
				}
			}
			continue
		}
		buf.WriteByte(c)
	}
	return buf.Bytes(), io.ErrUnexpectedEOF
}

func (l *Lexer) readHexString() ([]byte, error) {
	l.pos++ // '<'
	end := bytes.IndexByte(l.data[l.pos:], '>')
	if end < 0 {
		return nil, io.ErrUnexpectedEOF
	}
	raw := l.data[l.pos : l.pos+end]
	l.pos += end + 1
	return asciiHexDecode(raw)
}

// ReadLine reads up to the next end-of-line marker and consumes it.
func (l *Lexer) ReadLine() []byte {
	start := l.pos
	for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
		l.pos++
	}
	line := l.data[start:l.pos]
	if l.pos < len(l.data) && l.data[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\n' {
		l.pos++
	}
	return line
}

// ReadBytes returns the next n bytes, clipped at the end of the buffer.
func (l *Lexer) ReadBytes(n int) []byte {
	end := l.pos + n
	if end > len(l.data) || n < 0 {
		end = len(l.data)
	}
	b := l.data[l.pos:end]
	l.pos = end
	return b
}
