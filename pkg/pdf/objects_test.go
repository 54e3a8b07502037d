package pdf

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"testing"
)

// TestObjectStrings tests serialization of direct objects
func TestObjectStrings(t *testing.T) {
	tests := []struct {
		obj      Object
		expected string
	}{
		{Null{}, "null"},
		{Boolean(true), "true"},
		{Integer(-42), "-42"},
		{Real(1.5), "1.5"},
		{Real(612), "612"},
		{Real(-0.000001), "0"},
		{Name("Type"), "/Type"},
		{String{Value: []byte("a(b)")}, `(a\(b\))`},
		{String{Value: []byte{0xAB}, IsHex: true}, "<AB>"},
		{Array{Integer(1), Name("X")}, "[1 /X]"},
		{Dictionary{"B": Integer(2), "A": Integer(1)}, "<</A 1 /B 2 >>"},
		{Reference{Num: 5}, "5 0 R"},
	}

	for _, tt := range tests {
		if got := tt.obj.String(); got != tt.expected {
			t.Errorf("Expected %q, got %q", tt.expected, got)
		}
	}
}

// TestStringText tests text string decoding
func TestStringText(t *testing.T) {
	utf16 := String{Value: []byte{0xFE, 0xFF, 0x00, 'H', 0x00, 'i'}}
	if got := utf16.Text(); got != "Hi" {
		t.Errorf("Expected Hi, got %q", got)
	}
	latin := String{Value: []byte{'c', 'a', 'f', 0xE9}}
	if got := latin.Text(); got != "café" {
		t.Errorf("Expected café, got %q", got)
	}
}

// TestDictionaryAccessors tests typed getters
func TestDictionaryAccessors(t *testing.T) {
	d := Dictionary{
		"N": Name("X"),
		"I": Integer(3),
		"R": Real(2.5),
		"A": Array{Integer(1)},
		"D": Dictionary{},
	}
	if n, ok := d.GetName("N"); !ok || n != "X" {
		t.Error("GetName failed")
	}
	if i, ok := d.GetInt("I"); !ok || i != 3 {
		t.Error("GetInt failed")
	}
	if f, ok := d.GetNumber("R"); !ok || f != 2.5 {
		t.Error("GetNumber failed")
	}
	if _, ok := d.GetArray("A"); !ok {
		t.Error("GetArray failed")
	}
	if _, ok := d.GetDict("D"); !ok {
		t.Error("GetDict failed")
	}
	if _, ok := d.GetDict("N"); ok {
		t.Error("GetDict should fail on a name")
	}
}

// TestFlateWithPNGPredictor tests Flate decoding with the Up predictor
func TestFlateWithPNGPredictor(t *testing.T) {
	raw := []byte{
		2, 1, 2, 3,
		2, 1, 1, 1,
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(raw)
	zw.Close()

	s := Stream{
		Dict: Dictionary{
			"Filter":      Name("FlateDecode"),
			"DecodeParms": Dictionary{"Predictor": Integer(12), "Columns": Integer(3)},
		},
		Data: buf.Bytes(),
	}
	got, err := s.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []byte{1, 2, 3, 2, 3, 4}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

// TestFilterChain tests ASCII85 followed by Flate
func TestFilterChain(t *testing.T) {
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	zw.Write([]byte("0 0 1 rg 0 0 10 10 re f"))
	zw.Close()

	enc := make([]byte, ascii85.MaxEncodedLen(z.Len()))
	n := ascii85.Encode(enc, z.Bytes())
	enc = append(enc[:n], '~', '>')

	s := Stream{
		Dict: Dictionary{"Filter": Array{Name("ASCII85Decode"), Name("FlateDecode")}},
		Data: enc,
	}
	got, err := s.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if string(got) != "0 0 1 rg 0 0 10 10 re f" {
		t.Errorf("Unexpected decoded data %q", got)
	}
}

// TestSimpleFilters tests the byte-oriented decoders
func TestSimpleFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter Name
		input  []byte
		want   []byte
	}{
		{"hex", "ASCIIHexDecode", []byte("48 65 6c6C 6f>"), []byte("Hello")},
		{"hex odd", "ASCIIHexDecode", []byte("414>"), []byte{0x41, 0x40}},
		{"runlength", "RunLengthDecode", []byte{2, 'a', 'b', 'c', 254, 'z', 128}, []byte("abczzz")},
		{"lzw", "LZWDecode", []byte{0x80, 0x10, 0x48, 0x50, 0x28, 0x08}, []byte("ABAB")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := applyFilter(tt.input, tt.filter, nil)
			if err != nil {
				t.Fatalf("applyFilter failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestImageCodecsPassThrough tests that DCT data is left encoded
func TestImageCodecsPassThrough(t *testing.T) {
	s := Stream{Dict: Dictionary{"Filter": Name("DCTDecode")}, Data: []byte{0xFF, 0xD8}}
	got, err := s.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(got, s.Data) {
		t.Errorf("Expected data unchanged, got %v", got)
	}

	bad := Stream{Dict: Dictionary{"Filter": Name("Bogus")}, Data: []byte("x")}
	if _, err := bad.Decode(); err == nil {
		t.Error("Expected error for unsupported filter")
	}
}
