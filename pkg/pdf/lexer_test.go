package pdf

import (
	"bytes"
	"testing"
)

// TestLexerReadLine tests reading lines from lexer
func TestLexerReadLine(t *testing.T) {
	lexer := NewLexer([]byte("line1\nline2\rline3\r\nline4"))

	for _, want := range []string{"line1", "line2", "line3", "line4"} {
		if got := string(lexer.ReadLine()); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}

// TestIsWhitespace tests whitespace detection
func TestIsWhitespace(t *testing.T) {
	for _, ws := range []byte{' ', '\t', '\n', '\r', '\f', 0} {
		if !isWhitespace(ws) {
			t.Errorf("Expected %d to be whitespace", ws)
		}
	}
	for _, nws := range []byte{'a', '1', '/', '('} {
		if isWhitespace(nws) {
			t.Errorf("Expected %c to not be whitespace", nws)
		}
	}
}

// TestIsDelimiter tests delimiter detection
func TestIsDelimiter(t *testing.T) {
	for _, d := range []byte{'(', ')', '<', '>', '[', ']', '{', '}', '/', '%'} {
		if !isDelimiter(d) {
			t.Errorf("Expected %c to be delimiter", d)
		}
	}
	for _, nd := range []byte{'a', '1', '.', '-'} {
		if isDelimiter(nd) {
			t.Errorf("Expected %c to not be delimiter", nd)
		}
	}
}

// TestLexerTokens tests token classification
func TestLexerTokens(t *testing.T) {
	lexer := NewLexer([]byte("<< /Type /Page >> [1 -2.5 .5] (a\\(b\\)) <48 69> T* ' % comment\nRG"))

	want := []TokenType{
		TokenDictStart, TokenName, TokenName, TokenDictEnd,
		TokenArrayStart, TokenInteger, TokenReal, TokenReal, TokenArrayEnd,
		TokenString, TokenHexString, TokenKeyword, TokenKeyword, TokenKeyword, TokenEOF,
	}
	for i, w := range want {
		tok, err := lexer.NextToken()
		if err != nil {
			t.Fatalf("token %d: %v", i, err)
		}
		if tok.Type != w {
			t.Fatalf("token %d: expected type %d, got %d (%v)", i, w, tok.Type, tok.Value)
		}
	}
}

// TestLexerStrings tests literal and hex string decoding
func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input    string
		expected []byte
	}{
		{`(Hello)`, []byte("Hello")},
		{`(a (nested) b)`, []byte("a (nested) b")},
		{`(tab\there)`, []byte("tab\there")},
		{`(\101\102)`, []byte("AB")},
		{"(line\\\ncontinued)", []byte("linecontinued")},
		{`<48656C6C6F>`, []byte("Hello")},
		{`<4 8 6>`, []byte{0x48, 0x60}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok, err := NewLexer([]byte(tt.input)).NextToken()
			if err != nil {
				t.Fatalf("NextToken failed: %v", err)
			}
			if got := tok.Value.([]byte); !bytes.Equal(got, tt.expected) {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

// TestLexerNames tests name decoding including #xx escapes
func TestLexerNames(t *testing.T) {
	tok, err := NewLexer([]byte("/A#20B")).NextToken()
	if err != nil {
		t.Fatalf("NextToken failed: %v", err)
	}
	if tok.Value.(Name) != "A B" {
		t.Errorf("Expected %q, got %q", "A B", tok.Value)
	}
	if got := Name("A B").String(); got != "/A#20B" {
		t.Errorf("Expected escaped name /A#20B, got %s", got)
	}
}

// TestParserReferences tests "n g R" detection
func TestParserReferences(t *testing.T) {
	p := NewParser([]byte("[1 0 R 2 3 4 R]"))
	obj, err := p.ParseObject()
	if err != nil {
		t.Fatalf("ParseObject failed: %v", err)
	}
	arr := obj.(Array)
	if len(arr) != 3 {
		t.Fatalf("Expected 3 elements, got %d: %v", len(arr), arr)
	}
	if arr[0] != (Reference{Num: 1, Gen: 0}) {
		t.Errorf("Expected 1 0 R, got %v", arr[0])
	}
	if arr[1] != Integer(2) {
		t.Errorf("Expected 2, got %v", arr[1])
	}
	if arr[2] != (Reference{Num: 3, Gen: 4}) {
		t.Errorf("Expected 3 4 R, got %v", arr[2])
	}
}

// TestParserStreamWithoutLength tests the endstream scan fallback
func TestParserStreamWithoutLength(t *testing.T) {
	p := NewParser([]byte("7 0 obj\n<< >>\nstream\nabc def\nendstream\nendobj"))
	ref, obj, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatalf("ParseIndirectObject failed: %v", err)
	}
	if ref.Num != 7 {
		t.Errorf("Expected object 7, got %d", ref.Num)
	}
	s, ok := obj.(Stream)
	if !ok {
		t.Fatalf("Expected stream, got %T", obj)
	}
	if string(s.Data) != "abc def" {
		t.Errorf("Expected %q, got %q", "abc def", s.Data)
	}
}
