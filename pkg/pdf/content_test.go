package pdf

import (
	"testing"
)

// TestParseContent tests splitting a content stream into operations
func TestParseContent(t *testing.T) {
	ops, err := ParseContent([]byte("q 1 0 0 1 10 20 cm /F1 12 Tf [(A) -120 (B)] TJ 0.5 g T* (x) ' Q"))
	if err != nil {
		t.Fatalf("ParseContent failed: %v", err)
	}

	want := []struct {
		op       string
		operands int
	}{
		{"q", 0}, {"cm", 6}, {"Tf", 2}, {"TJ", 1}, {"g", 1}, {"T*", 0}, {"'", 1}, {"Q", 0},
	}
	if len(ops) != len(want) {
		t.Fatalf("Expected %d operations, got %d: %v", len(want), len(ops), ops)
	}
	for i, w := range want {
		if ops[i].Operator != w.op || len(ops[i].Operands) != w.operands {
			t.Errorf("op %d: expected %s/%d, got %s/%d", i, w.op, w.operands, ops[i].Operator, len(ops[i].Operands))
		}
	}
	if arr, ok := ops[3].Operands[0].(Array); !ok || len(arr) != 3 {
		t.Errorf("Expected TJ array with 3 elements, got %v", ops[3].Operands[0])
	}
}

// TestParseContentIntegersNotReferences tests that "1 0 R" style runs stay numbers
func TestParseContentIntegersNotReferences(t *testing.T) {
	ops, err := ParseContent([]byte("1 0 0 RG"))
	if err != nil {
		t.Fatalf("ParseContent failed: %v", err)
	}
	if len(ops) != 1 || ops[0].Operator != "RG" || len(ops[0].Operands) != 3 {
		t.Fatalf("Unexpected operations %v", ops)
	}
}

// TestParseInlineImage tests BI/ID/EI handling with binary data
func TestParseInlineImage(t *testing.T) {
	data := []byte("q BI /W 2 /H 1 /CS /G /BPC 8 /F /AHx ID 00FF> EI Q")
	ops, err := ParseContent(data)
	if err != nil {
		t.Fatalf("ParseContent failed: %v", err)
	}
	if len(ops) != 3 || ops[1].Operator != "BI" {
		t.Fatalf("Unexpected operations %v", ops)
	}
	dict := ops[1].Operands[0].(Dictionary)
	if w, _ := dict.GetInt("Width"); w != 2 {
		t.Errorf("Expected Width 2, got %d", w)
	}
	if cs, _ := dict.GetName("ColorSpace"); cs != "DeviceGray" {
		t.Errorf("Expected DeviceGray, got %s", cs)
	}
	if f, _ := dict.GetName("Filter"); f != "ASCIIHexDecode" {
		t.Errorf("Expected ASCIIHexDecode, got %s", f)
	}
	if raw := string(ops[1].Operands[1].(String).Value); raw != "00FF>" {
		t.Errorf("Expected raw data 00FF>, got %q", raw)
	}
	if ops[2].Operator != "Q" {
		t.Errorf("Expected Q after image, got %s", ops[2].Operator)
	}
}
