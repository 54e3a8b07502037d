package pdf

import (
	"bytes"
	"fmt"
	"io"
)

// Parser builds objects from lexer tokens. Lookahead for "n g R" references
// is done by saving and restoring the lexer offset.
type Parser struct {
	lexer *Lexer

	// resolve follows an indirect /Length. It may be nil.
	resolve func(Object) Object
}

// NewParser creates a parser over data
func NewParser(data []byte) *Parser {
	return &Parser{lexer: NewLexer(data)}
}

// Seek positions the parser at an absolute offset
func (p *Parser) Seek(pos int) { p.lexer.Seek(pos) }

// ParseObject parses a single direct object
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	return p.objectFrom(tok)
}

func (p *Parser) objectFrom(tok Token) (Object, error) {
	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF
	case TokenInteger:
		if ref, ok := p.tryReference(tok.Value.(int64)); ok {
			return ref, nil
		}
		return Integer(tok.Value.(int64)), nil
	case TokenReal:
		return Real(tok.Value.(float64)), nil
	case TokenString:
		return String{Value: tok.Value.([]byte)}, nil
	case TokenHexString:
		return String{Value: tok.Value.([]byte), IsHex: true}, nil
	case TokenName:
		return tok.Value.(Name), nil
	case TokenArrayStart:
		return p.parseArray()
	case TokenDictStart:
		return p.parseDictionary()
	case TokenKeyword:
		switch tok.Keyword() {
		case "true":
			return Boolean(true), nil
		case "false":
			return Boolean(false), nil
		case "null":
			return Null{}, nil
		}
		return nil, fmt.Errorf("unexpected keyword %q at offset %d", tok.Keyword(), tok.Pos)
	}
	return nil, fmt.Errorf("unexpected token at offset %d", tok.Pos)
}

func (p *Parser) tryReference(num int64) (Reference, bool) {
	save := p.lexer.Position()
	gen, err := p.lexer.NextToken()
	if err == nil && gen.Type == TokenInteger {
		r, err := p.lexer.NextToken()
		if err == nil && r.Keyword() == "R" {
			return Reference{Num: int(num), Gen: int(gen.Value.(int64))}, true
		}
	}
	p.lexer.Seek(save)
	return Reference{}, false
}

func (p *Parser) parseArray() (Array, error) {
	arr := Array{}
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			return arr, nil
		case TokenEOF:
			return nil, fmt.Errorf("unterminated array: %w", io.ErrUnexpectedEOF)
		}
		obj, err := p.objectFrom(tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDictionary() (Dictionary, error) {
	dict := Dictionary{}
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenEOF:
			return nil, fmt.Errorf("unterminated dictionary: %w", io.ErrUnexpectedEOF)
		case TokenName:
		default:
			return nil, fmt.Errorf("dictionary key must be a name at offset %d", tok.Pos)
		}
		val, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		if _, isNull := val.(Null); !isNull {
			dict[tok.Value.(Name)] = val
		}
	}
}

// ParseIndirectObject parses "num gen obj ... endobj" at the current offset.
func (p *Parser) ParseIndirectObject() (Reference, Object, error) {
	var ref Reference
	numTok, err := p.lexer.NextToken()
	if err != nil {
		return ref, nil, err
	}
	genTok, err := p.lexer.NextToken()
	if err != nil {
		return ref, nil, err
	}
	objTok, err := p.lexer.NextToken()
	if err != nil {
		return ref, nil, err
	}
	if numTok.Type != TokenInteger || genTok.Type != TokenInteger || objTok.Keyword() != "obj" {
		return ref, nil, fmt.Errorf("no object header at offset %d", numTok.Pos)
	}
	ref = Reference{Num: int(numTok.Value.(int64)), Gen: int(genTok.Value.(int64))}

	obj, err := p.ParseObject()
	if err != nil {
		return ref, nil, fmt.Errorf("object %d: %w", ref.Num, err)
	}

	save := p.lexer.Position()
	tok, err := p.lexer.NextToken()
	if err != nil {
		return ref, nil, err
	}
	if tok.Keyword() != "stream" {
		p.lexer.Seek(save)
		return ref, obj, nil
	}
	dict, ok := obj.(Dictionary)
	if !ok {
		return ref, nil, fmt.Errorf("object %d: stream without dictionary", ref.Num)
	}
	data := p.readStreamData(dict)
	return ref, Stream{Dict: dict, Data: data}, nil
}

// readStreamData reads the payload after the "stream" keyword. When /Length
// is missing or inconsistent it scans for "endstream".
func (p *Parser) readStreamData(dict Dictionary) []byte {
	l := p.lexer
	if l.pos < len(l.data) && l.data[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\n' {
		l.pos++
	}
	start := l.pos

	lengthObj := dict.Get("Length")
	if ref, isRef := lengthObj.(Reference); isRef && p.resolve != nil {
		lengthObj = p.resolve(ref)
	}
	if n, ok := lengthObj.(Integer); ok && n >= 0 && start+int(n) <= len(l.data) {
		end := start + int(n)
		rest := l.data[end:]
		trimmed := bytes.TrimLeft(rest, "\r\n \t")
		if bytes.HasPrefix(trimmed, []byte("endstream")) {
			l.pos = end + (len(rest) - len(trimmed)) + len("endstream")
			return l.data[start:end]
		}
	}

	idx := bytes.Index(l.data[start:], []byte("endstream"))
	if idx < 0 {
		l.pos = len(l.data)
		return l.data[start:]
	}
	end := start + idx
	l.pos = end + len("endstream")
	if end > start && l.data[end-1] == '\n' {
		end--
		if end > start && l.data[end-1] == '\r' {
			end--
		}
	} else if end > start && l.data[end-1] == '\r' {
		end--
	}
	return l.data[start:end]
}
