package pdf

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"os"
)

// Writer assembles a new PDF document object by object. Object numbers are
// allocated up front so objects can reference each other before they are set.
type Writer struct {
	objects  []Object
	pages    []Reference
	pagesRef Reference
	info     Dictionary

	// imports maps source object numbers to local references, per document
	imports map[*Document]map[int]Reference
}

// NewWriter creates an empty document writer
func NewWriter() *Writer {
	w := &Writer{
		info:    Dictionary{},
		imports: make(map[*Document]map[int]Reference),
	}
	w.pagesRef = w.Alloc()
	return w
}

// Alloc reserves an object number
func (w *Writer) Alloc() Reference {
	w.objects = append(w.objects, nil)
	return Reference{Num: len(w.objects)}
}

// Set stores the object for a reserved number
func (w *Writer) Set(ref Reference, obj Object) {
	w.objects[ref.Num-1] = obj
}

// Add stores obj as a new indirect object
func (w *Writer) Add(obj Object) Reference {
	ref := w.Alloc()
	w.Set(ref, obj)
	return ref
}

// AddStream stores a Flate-compressed stream. Keys already present in dict
// are kept; Filter and Length are set by the writer.
func (w *Writer) AddStream(dict Dictionary, data []byte) (Reference, error) {
	compressed, err := deflate(data)
	if err != nil {
		return Reference{}, err
	}
	d := dict.Clone()
	d["Filter"] = Name("FlateDecode")
	return w.Add(Stream{Dict: d, Data: compressed}), nil
}

// AddPage appends a page of the given size in points
func (w *Writer) AddPage(width, height float64, resources Dictionary, content []byte) (Reference, error) {
	contents, err := w.AddStream(Dictionary{}, content)
	if err != nil {
		return Reference{}, err
	}
	if resources == nil {
		resources = Dictionary{}
	}
	ref := w.Add(Dictionary{
		"Type":      Name("Page"),
		"Parent":    w.pagesRef,
		"MediaBox":  Array{Integer(0), Integer(0), Real(width), Real(height)},
		"Resources": resources,
		"Contents":  contents,
	})
	w.pages = append(w.pages, ref)
	return ref, nil
}

// NumPages returns the number of pages added so far
func (w *Writer) NumPages() int { return len(w.pages) }

// SetInfo sets a document information entry such as Title or Producer
func (w *Writer) SetInfo(key, value string) {
	w.info[Name(key)] = String{Value: []byte(value)}
}

// WriteTo serializes the document
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	w.Set(w.pagesRef, Dictionary{
		"Type":  Name("Pages"),
		"Kids":  refsArray(w.pages),
		"Count": Integer(len(w.pages)),
	})
	catalog := w.Add(Dictionary{"Type": Name("Catalog"), "Pages": w.pagesRef})
	var info Reference
	if len(w.info) > 0 {
		info = w.Add(w.info)
	}
	defer func() {
		// catalog and info are appended per call
		w.objects = w.objects[:catalog.Num-1]
	}()

	cw := &countingWriter{w: bufio.NewWriter(out)}
	fmt.Fprint(cw, "%PDF-1.5\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int64, len(w.objects))
	for i, obj := range w.objects {
		offsets[i] = cw.n
		if obj == nil {
			obj = Null{}
		}
		fmt.Fprintf(cw, "%d 0 obj\n", i+1)
		writeObject(cw, obj)
		fmt.Fprint(cw, "\nendobj\n")
	}

	xref := cw.n
	fmt.Fprintf(cw, "xref\n0 %d\n0000000000 65535 f \n", len(w.objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(cw, "%010d 00000 n \n", off)
	}
	trailer := Dictionary{"Size": Integer(len(w.objects) + 1), "Root": catalog}
	if info.Num != 0 {
		trailer["Info"] = info
	}
	fmt.Fprint(cw, "trailer\n")
	writeObject(cw, trailer)
	fmt.Fprintf(cw, "\nstartxref\n%d\n%%%%EOF\n", xref)

	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, cw.w.(*bufio.Writer).Flush()
}

// Bytes serializes the document into memory
func (w *Writer) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile serializes the document to path
func (w *Writer) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := w.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeObject(out io.Writer, obj Object) {
	switch v := obj.(type) {
	case Stream:
		d := v.Dict.Clone()
		d["Length"] = Integer(len(v.Data))
		io.WriteString(out, d.String())
		io.WriteString(out, "\nstream\n")
		out.Write(v.Data)
		io.WriteString(out, "\nendstream")
	default:
		io.WriteString(out, objectString(obj))
	}
}

func refsArray(refs []Reference) Array {
	a := make(Array, len(refs))
	for i, r := range refs {
		a[i] = r
	}
	return a
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
