package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"sync"
)

var (
	// ErrNotPDF is returned when the data does not start with a PDF header.
	ErrNotPDF = errors.New("not a PDF file")
	// ErrEncrypted is returned for documents protected by a security handler.
	ErrEncrypted = errors.New("encrypted PDF documents are not supported")
)

// Document represents a parsed PDF document. It is safe for concurrent
// object resolution.
type Document struct {
	data    []byte
	Version string
	Trailer Dictionary
	Root    Dictionary
	Info    Dictionary

	pages []*Page
	xref  map[int]xrefEntry

	mu      sync.Mutex
	objects map[int]Object
	objStms map[int]*objectStream
}

// xrefEntry locates an object either at a file offset or inside an object stream
type xrefEntry struct {
	Offset     int
	Generation int
	InUse      bool
	StreamNum  int
	Index      int
	Compressed bool
}

type objectStream struct {
	data    []byte
	offsets map[int]int
}

// Page represents a PDF page with its inherited attributes resolved
type Page struct {
	doc       *Document
	Dict      Dictionary
	Ref       Reference
	Number    int
	MediaBox  Rectangle
	CropBox   Rectangle
	Resources Dictionary
	Rotate    int
}

// Rectangle represents a PDF rectangle
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Width returns the rectangle width
func (r Rectangle) Width() float64 { return r.URX - r.LLX }

// Height returns the rectangle height
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

// Open reads and parses a PDF file
func Open(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	doc, err := NewDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return doc, nil
}

// NewDocument parses PDF data held in memory
func NewDocument(data []byte) (*Document, error) {
	doc := &Document{
		data:    data,
		xref:    make(map[int]xrefEntry),
		objects: make(map[int]Object),
		objStms: make(map[int]*objectStream),
	}
	if err := doc.parse(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Close releases the document buffers
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = nil
	d.objects = nil
	d.objStms = nil
	return nil
}

func (d *Document) parse() error {
	head := d.data
	if len(head) > 1024 {
		head = head[:1024]
	}
	hdr := bytes.Index(head, []byte("%PDF-"))
	if hdr < 0 {
		return ErrNotPDF
	}
	if hdr > 0 {
		// junk before the header shifts every offset
		d.data = d.data[hdr:]
	}
	v := d.data[5:]
	end := bytes.IndexAny(v, "\r\n ")
	if end > 0 && end < 16 {
		d.Version = string(v[:end])
	}

	xrefErr := d.readXRefChain()
	if xrefErr == nil {
		if _, ok := d.ResolveDict(d.Trailer.Get("Root")); !ok {
			xrefErr = fmt.Errorf("document catalog missing")
		}
	}
	if xrefErr != nil {
		if err := d.reconstruct(); err != nil {
			return fmt.Errorf("%w (reconstruction failed: %v)", xrefErr, err)
		}
	}

	if d.Trailer.Get("Encrypt") != nil {
		return ErrEncrypted
	}

	root, ok := d.ResolveDict(d.Trailer.Get("Root"))
	if !ok {
		return fmt.Errorf("document catalog missing")
	}
	d.Root = root
	d.Info, _ = d.ResolveDict(d.Trailer.Get("Info"))

	return d.parsePages()
}

func (d *Document) findStartXRef() (int, error) {
	tail := d.data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	fields := bytes.Fields(tail[idx+len("startxref"):])
	if len(fields) == 0 {
		return 0, fmt.Errorf("startxref offset missing")
	}
	off, err := strconv.Atoi(string(fields[0]))
	if err != nil || off < 0 || off >= len(d.data) {
		return 0, fmt.Errorf("invalid startxref offset")
	}
	return off, nil
}

// readXRefChain follows startxref and every /Prev (and /XRefStm) section.
// Newer sections are read first so their entries win.
func (d *Document) readXRefChain() error {
	off, err := d.findStartXRef()
	if err != nil {
		return err
	}
	seen := map[int]bool{}
	queue := []int{off}
	for len(queue) > 0 {
		off, queue = queue[0], queue[1:]
		if seen[off] || off < 0 || off >= len(d.data) {
			continue
		}
		seen[off] = true

		trailer, err := d.readXRefSection(off)
		if err != nil {
			return err
		}
		if d.Trailer == nil {
			d.Trailer = trailer.Clone()
		} else {
			for k, v := range trailer {
				if _, exists := d.Trailer[k]; !exists {
					d.Trailer[k] = v
				}
			}
		}
		if stm, ok := trailer.GetInt("XRefStm"); ok {
			queue = append(queue, int(stm))
		}
		if prev, ok := trailer.GetInt("Prev"); ok {
			queue = append(queue, int(prev))
		}
	}
	return nil
}

func (d *Document) readXRefSection(off int) (Dictionary, error) {
	pos := off
	for pos < len(d.data) && isWhitespace(d.data[pos]) {
		pos++
	}
	if bytes.HasPrefix(d.data[pos:], []byte("xref")) {
		return d.readXRefTable(pos)
	}
	return d.readXRefStream(pos)
}

func (d *Document) readXRefTable(off int) (Dictionary, error) {
	lex := NewLexer(d.data)
	lex.Seek(off + len("xref"))
	for {
		lex.skipSpace()
		if bytes.HasPrefix(d.data[lex.pos:], []byte("trailer")) {
			lex.pos += len("trailer")
			break
		}
		header := bytes.Fields(lex.ReadLine())
		if len(header) != 2 {
			if lex.pos >= len(d.data) {
				return nil, fmt.Errorf("xref table at %d: missing trailer", off)
			}
			continue
		}
		start, err1 := strconv.Atoi(string(header[0]))
		count, err2 := strconv.Atoi(string(header[1]))
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("xref table at %d: bad subsection header", off)
		}
		for i := 0; i < count; i++ {
			lex.skipSpace()
			f := bytes.Fields(lex.ReadLine())
			if len(f) < 3 {
				continue
			}
			num := start + i
			if _, exists := d.xref[num]; exists {
				continue
			}
			o, _ := strconv.Atoi(string(f[0]))
			g, _ := strconv.Atoi(string(f[1]))
			d.xref[num] = xrefEntry{Offset: o, Generation: g, InUse: f[2][0] == 'n'}
		}
	}

	p := &Parser{lexer: lex}
	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("trailer: %w", err)
	}
	trailer, ok := obj.(Dictionary)
	if !ok {
		return nil, fmt.Errorf("trailer is not a dictionary")
	}
	return trailer, nil
}

func (d *Document) readXRefStream(off int) (Dictionary, error) {
	p := NewParser(d.data)
	p.resolve = d.resolveLength
	p.Seek(off)
	_, obj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("xref stream at %d: %w", off, err)
	}
	stream, ok := obj.(Stream)
	if !ok {
		return nil, fmt.Errorf("xref stream expected at offset %d", off)
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("xref stream at %d: %w", off, err)
	}

	wArr, _ := stream.Dict.GetArray("W")
	w, ok := Numbers(wArr)
	if !ok || len(w) != 3 {
		return nil, fmt.Errorf("xref stream at %d: invalid W", off)
	}
	w0, w1, w2 := int(w[0]), int(w[1]), int(w[2])

	var index []float64
	if arr, ok := stream.Dict.GetArray("Index"); ok {
		index, _ = Numbers(arr)
	} else if size, ok := stream.Dict.GetInt("Size"); ok {
		index = []float64{0, float64(size)}
	}

	field := func(b []byte, def int) int {
		if len(b) == 0 {
			return def
		}
		v := 0
		for _, c := range b {
			v = v<<8 | int(c)
		}
		return v
	}

	rowLen := w0 + w1 + w2
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		start, count := int(index[i]), int(index[i+1])
		for j := 0; j < count && pos+rowLen <= len(data); j++ {
			row := data[pos : pos+rowLen]
			pos += rowLen
			num := start + j
			if _, exists := d.xref[num]; exists {
				continue
			}
			kind := field(row[:w0], 1)
			a := field(row[w0:w0+w1], 0)
			b := field(row[w0+w1:], 0)
			switch kind {
			case 0:
				d.xref[num] = xrefEntry{}
			case 1:
				d.xref[num] = xrefEntry{Offset: a, Generation: b, InUse: true}
			case 2:
				d.xref[num] = xrefEntry{StreamNum: a, Index: b, InUse: true, Compressed: true}
			}
		}
	}
	return stream.Dict, nil
}

var objHeader = regexp.MustCompile(`(\d+)[ \t\r\n]+(\d+)[ \t\r\n]+obj\b`)

// reconstruct rebuilds the xref by scanning for object headers. It is used
// when the cross-reference data is missing or damaged.
func (d *Document) reconstruct() error {
	d.xref = make(map[int]xrefEntry)
	d.mu.Lock()
	d.objects = make(map[int]Object)
	d.mu.Unlock()

	for _, m := range objHeader.FindAllSubmatchIndex(d.data, -1) {
		num, _ := strconv.Atoi(string(d.data[m[2]:m[3]]))
		gen, _ := strconv.Atoi(string(d.data[m[4]:m[5]]))
		// later definitions override earlier ones, as in incremental updates
		d.xref[num] = xrefEntry{Offset: m[0], Generation: gen, InUse: true}
	}
	if len(d.xref) == 0 {
		return fmt.Errorf("no objects found")
	}

	trailer := Dictionary{}
	if idx := bytes.LastIndex(d.data, []byte("trailer")); idx >= 0 {
		p := NewParser(d.data)
		p.Seek(idx + len("trailer"))
		if obj, err := p.ParseObject(); err == nil {
			if t, ok := obj.(Dictionary); ok {
				trailer = t
			}
		}
	}
	if trailer.Get("Root") == nil {
		nums := make([]int, 0, len(d.xref))
		for num := range d.xref {
			nums = append(nums, num)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(nums)))
		for _, num := range nums {
			obj, err := d.GetObject(num)
			if err != nil {
				continue
			}
			dict, ok := obj.(Dictionary)
			if s, isStream := obj.(Stream); isStream {
				dict, ok = s.Dict, true
			}
			if !ok {
				continue
			}
			if t, _ := dict.GetName("Type"); t == "Catalog" {
				trailer["Root"] = Reference{Num: num, Gen: d.xref[num].Generation}
				break
			}
			if t, _ := dict.GetName("Type"); t == "XRef" && dict.Get("Root") != nil {
				trailer["Root"] = dict.Get("Root")
				break
			}
		}
	}
	if trailer.Get("Root") == nil {
		return fmt.Errorf("document catalog not found")
	}
	d.Trailer = trailer
	return nil
}

// GetObject returns the object with the given number, or Null for free and
// missing objects.
func (d *Document) GetObject(num int) (Object, error) {
	d.mu.Lock()
	if d.objects == nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("document is closed")
	}
	if obj, ok := d.objects[num]; ok {
		d.mu.Unlock()
		return obj, nil
	}
	d.mu.Unlock()

	entry, ok := d.xref[num]
	if !ok || !entry.InUse {
		return Null{}, nil
	}

	var obj Object
	var err error
	if entry.Compressed {
		obj, err = d.compressedObject(entry.StreamNum, num)
	} else {
		p := NewParser(d.data)
		p.resolve = d.resolveLength
		p.Seek(entry.Offset)
		_, obj, err = p.ParseIndirectObject()
	}
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", num, err)
	}

	d.mu.Lock()
	if d.objects != nil {
		d.objects[num] = obj
	}
	d.mu.Unlock()
	return obj, nil
}

func (d *Document) compressedObject(streamNum, num int) (Object, error) {
	d.mu.Lock()
	stm := d.objStms[streamNum]
	d.mu.Unlock()

	if stm == nil {
		obj, err := d.GetObject(streamNum)
		if err != nil {
			return nil, err
		}
		s, ok := obj.(Stream)
		if !ok {
			return nil, fmt.Errorf("object stream %d is not a stream", streamNum)
		}
		data, err := s.Decode()
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", streamNum, err)
		}
		first, _ := s.Dict.GetInt("First")
		n, _ := s.Dict.GetInt("N")
		stm = &objectStream{data: data, offsets: make(map[int]int, n)}
		lex := NewLexer(data)
		for i := int64(0); i < n; i++ {
			numTok, _ := lex.NextToken()
			offTok, _ := lex.NextToken()
			if numTok.Type != TokenInteger || offTok.Type != TokenInteger {
				break
			}
			stm.offsets[int(numTok.Value.(int64))] = int(first) + int(offTok.Value.(int64))
		}
		d.mu.Lock()
		if d.objStms != nil {
			d.objStms[streamNum] = stm
		}
		d.mu.Unlock()
	}

	off, ok := stm.offsets[num]
	if !ok {
		return Null{}, nil
	}
	p := NewParser(stm.data)
	p.Seek(off)
	return p.ParseObject()
}

func (d *Document) resolveLength(obj Object) Object {
	ref, ok := obj.(Reference)
	if !ok {
		return obj
	}
	entry, ok := d.xref[ref.Num]
	if !ok || entry.Compressed {
		resolved, _ := d.ResolveObject(ref)
		return resolved
	}
	// parse in place; the length object is a plain integer
	p := NewParser(d.data)
	p.Seek(entry.Offset)
	_, resolved, err := p.ParseIndirectObject()
	if err != nil {
		return nil
	}
	return resolved
}

// ResolveObject follows references until a direct object is reached
func (d *Document) ResolveObject(obj Object) (Object, error) {
	for depth := 0; depth < 32; depth++ {
		ref, ok := obj.(Reference)
		if !ok {
			return obj, nil
		}
		next, err := d.GetObject(ref.Num)
		if err != nil {
			return nil, err
		}
		obj = next
	}
	return nil, fmt.Errorf("reference chain too deep")
}

// Resolve is ResolveObject for callers that treat unresolvable objects as absent.
func (d *Document) Resolve(obj Object) Object {
	out, err := d.ResolveObject(obj)
	if err != nil {
		return nil
	}
	return out
}

// ResolveDict resolves obj and returns it as a dictionary. A stream yields
// its dictionary.
func (d *Document) ResolveDict(obj Object) (Dictionary, bool) {
	switch v := d.Resolve(obj).(type) {
	case Dictionary:
		return v, true
	case Stream:
		return v.Dict, true
	}
	return nil, false
}

// ResolveArray resolves obj and returns it as an array
func (d *Document) ResolveArray(obj Object) (Array, bool) {
	a, ok := d.Resolve(obj).(Array)
	return a, ok
}

// ResolveStream resolves obj and returns it as a stream
func (d *Document) ResolveStream(obj Object) (Stream, bool) {
	s, ok := d.Resolve(obj).(Stream)
	return s, ok
}

// ResolveNumber resolves obj and returns it as a number
func (d *Document) ResolveNumber(obj Object) (float64, bool) {
	return Number(d.Resolve(obj))
}

func (d *Document) parsePages() error {
	pagesRef := d.Root.Get("Pages")
	node, ok := d.ResolveDict(pagesRef)
	if !ok {
		return fmt.Errorf("page tree missing")
	}
	ref, _ := pagesRef.(Reference)
	seen := map[Reference]bool{}
	return d.walkPages(node, ref, inherited{}, seen)
}

type inherited struct {
	resources Dictionary
	mediaBox  *Rectangle
	cropBox   *Rectangle
	rotate    int
}

func (d *Document) walkPages(node Dictionary, ref Reference, inh inherited, seen map[Reference]bool) error {
	if ref.Num != 0 {
		if seen[ref] {
			return fmt.Errorf("page tree cycle at object %d", ref.Num)
		}
		seen[ref] = true
	}

	if res, ok := d.ResolveDict(node.Get("Resources")); ok {
		inh.resources = res
	}
	if r, ok := d.rectangle(node.Get("MediaBox")); ok {
		inh.mediaBox = &r
	}
	if r, ok := d.rectangle(node.Get("CropBox")); ok {
		inh.cropBox = &r
	}
	if rot, ok := d.ResolveNumber(node.Get("Rotate")); ok {
		inh.rotate = int(rot)
	}

	kidsObj := node.Get("Kids")
	t, _ := node.GetName("Type")
	if t == "Pages" || (t == "" && kidsObj != nil) {
		kids, _ := d.ResolveArray(kidsObj)
		for _, kid := range kids {
			kidDict, ok := d.ResolveDict(kid)
			if !ok {
				continue
			}
			kidRef, _ := kid.(Reference)
			if err := d.walkPages(kidDict, kidRef, inh, seen); err != nil {
				return err
			}
		}
		return nil
	}

	page := &Page{
		doc:       d,
		Dict:      node,
		Ref:       ref,
		Number:    len(d.pages) + 1,
		MediaBox:  Rectangle{0, 0, 612, 792},
		Resources: inh.resources,
		Rotate:    normalizeRotation(inh.rotate),
	}
	if inh.mediaBox != nil {
		page.MediaBox = *inh.mediaBox
	}
	page.CropBox = page.MediaBox
	if inh.cropBox != nil {
		page.CropBox = *inh.cropBox
	}
	if page.Resources == nil {
		page.Resources = Dictionary{}
	}
	d.pages = append(d.pages, page)
	return nil
}

func (d *Document) rectangle(obj Object) (Rectangle, bool) {
	arr, ok := d.ResolveArray(obj)
	if !ok || len(arr) != 4 {
		return Rectangle{}, false
	}
	v := make([]float64, 4)
	for i, o := range arr {
		n, ok := d.ResolveNumber(o)
		if !ok {
			return Rectangle{}, false
		}
		v[i] = n
	}
	r := Rectangle{LLX: v[0], LLY: v[1], URX: v[2], URY: v[3]}
	if r.LLX > r.URX {
		r.LLX, r.URX = r.URX, r.LLX
	}
	if r.LLY > r.URY {
		r.LLY, r.URY = r.URY, r.LLY
	}
	if r.Width() == 0 || r.Height() == 0 {
		return Rectangle{}, false
	}
	return r, true
}

func normalizeRotation(r int) int {
	r %= 360
	if r < 0 {
		r += 360
	}
	return r / 90 * 90
}

// NumPages returns the number of pages
func (d *Document) NumPages() int { return len(d.pages) }

// Pages returns the pages in document order
func (d *Document) Pages() []*Page { return d.pages }

// GetPage returns the page with the given 1-based number
func (d *Document) GetPage(num int) (*Page, error) {
	if num < 1 || num > len(d.pages) {
		return nil, fmt.Errorf("page %d out of range (1-%d)", num, len(d.pages))
	}
	return d.pages[num-1], nil
}

// Document returns the document the page belongs to
func (p *Page) Document() *Document { return p.doc }

// Contents returns the page content streams decoded and concatenated
func (p *Page) Contents() ([]byte, error) {
	obj := p.doc.Resolve(p.Dict.Get("Contents"))
	var streams []Object
	switch v := obj.(type) {
	case Stream:
		streams = []Object{v}
	case Array:
		streams = v
	case nil, Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("page %d: invalid Contents", p.Number)
	}

	var buf bytes.Buffer
	for _, s := range streams {
		stream, ok := p.doc.ResolveStream(s)
		if !ok {
			continue
		}
		data, err := stream.Decode()
		if err != nil {
			return nil, fmt.Errorf("page %d contents: %w", p.Number, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Width returns the displayed page width in points, honoring /Rotate
func (p *Page) Width() float64 {
	if p.Rotate == 90 || p.Rotate == 270 {
		return p.MediaBox.Height()
	}
	return p.MediaBox.Width()
}

// Height returns the displayed page height in points, honoring /Rotate
func (p *Page) Height() float64 {
	if p.Rotate == 90 || p.Rotate == 270 {
		return p.MediaBox.Width()
	}
	return p.MediaBox.Height()
}

// DisplayMatrix maps default user space onto the displayed page, with the
// origin at its lower-left corner and /Rotate applied clockwise.
func (p *Page) DisplayMatrix() Matrix {
	b := p.MediaBox
	switch p.Rotate {
	case 90:
		return Matrix{0, -1, 1, 0, -b.LLY, b.URX}
	case 180:
		return Matrix{-1, 0, 0, -1, b.URX, b.URY}
	case 270:
		return Matrix{0, 1, -1, 0, b.URY, -b.LLX}
	}
	return Matrix{1, 0, 0, 1, -b.LLX, -b.LLY}
}
