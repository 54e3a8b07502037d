package pdf

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestWriterRoundTrip tests that written documents parse back
func TestWriterRoundTrip(t *testing.T) {
	w := NewWriter()
	w.SetInfo("Producer", "go-pdfdiff test")
	if _, err := w.AddPage(200, 100, nil, []byte("0 0 0 rg 0 0 10 10 re f")); err != nil {
		t.Fatalf("AddPage failed: %v", err)
	}
	if _, err := w.AddPage(50, 60, nil, nil); err != nil {
		t.Fatalf("AddPage failed: %v", err)
	}

	data, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	doc, err := NewDocument(data)
	if err != nil {
		t.Fatalf("NewDocument failed: %v", err)
	}
	defer doc.Close()

	if doc.NumPages() != 2 {
		t.Fatalf("Expected 2 pages, got %d", doc.NumPages())
	}
	p1 := doc.Pages()[0]
	if p1.Width() != 200 || p1.Height() != 100 {
		t.Errorf("Expected 200x100, got %gx%g", p1.Width(), p1.Height())
	}
	content, err := p1.Contents()
	if err != nil {
		t.Fatalf("Contents failed: %v", err)
	}
	if !bytes.Contains(content, []byte("0 0 10 10 re f")) {
		t.Errorf("Unexpected content %q", content)
	}
	if got := doc.Info.Get("Producer"); got == nil || got.(String).Text() != "go-pdfdiff test" {
		t.Errorf("Expected Producer in Info, got %v", got)
	}

	// serializing twice yields the same bytes
	again, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Error("Expected deterministic output")
	}
}

// TestWriteFile tests writing a document to disk
func TestWriteFile(t *testing.T) {
	w := NewWriter()
	if _, err := w.AddPage(10, 10, nil, nil); err != nil {
		t.Fatalf("AddPage failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.pdf")
	if err := w.WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF-1.5") || !strings.HasSuffix(string(data), "%%EOF\n") {
		t.Error("Expected a complete PDF file")
	}
}

// TestImportPage tests copying pages between documents as form XObjects
func TestImportPage(t *testing.T) {
	src := assemblePDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 /Resources << /Font << /F1 5 0 R >> >> >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 100 50] /Contents 6 0 R >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 100 50] /Rotate 90 /Contents 6 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		"<< /Length 22 >>\nstream\nBT /F1 12 Tf (x) Tj ET\nendstream",
	}, "")
	doc, err := NewDocument(src)
	if err != nil {
		t.Fatalf("NewDocument failed: %v", err)
	}
	defer doc.Close()

	w := NewWriter()
	var forms []Reference
	for _, p := range doc.Pages() {
		ref, err := w.ImportPage(p)
		if err != nil {
			t.Fatalf("ImportPage failed: %v", err)
		}
		forms = append(forms, ref)
	}
	if len(w.imports[doc]) != 1 {
		t.Errorf("Expected the shared font to be copied once, got %d imports", len(w.imports[doc]))
	}

	res := Dictionary{"XObject": Dictionary{"P0": forms[0], "P1": forms[1]}}
	if _, err := w.AddPage(150, 100, res, []byte("/P0 Do /P1 Do")); err != nil {
		t.Fatalf("AddPage failed: %v", err)
	}
	data, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}

	out, err := NewDocument(data)
	if err != nil {
		t.Fatalf("NewDocument failed: %v", err)
	}
	defer out.Close()

	xobjs, _ := out.Pages()[0].Resources.GetDict("XObject")
	rotated, ok := out.ResolveStream(xobjs.Get("P1"))
	if !ok {
		t.Fatal("Expected P1 form stream")
	}
	m, _ := rotated.Dict.GetArray("Matrix")
	if got := m.String(); got != "[0 -1 1 0 0 100]" {
		t.Errorf("Unexpected rotated form matrix %s", got)
	}
	body, err := rotated.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Contains(body, []byte("(x) Tj")) {
		t.Errorf("Expected copied content, got %q", body)
	}
	fres, _ := out.ResolveDict(rotated.Dict.Get("Resources"))
	fonts, _ := out.ResolveDict(fres.Get("Font"))
	font, ok := out.ResolveDict(fonts.Get("F1"))
	if !ok || font.Get("BaseFont") != Name("Helvetica") {
		t.Errorf("Expected imported Helvetica font, got %v", font)
	}
}
