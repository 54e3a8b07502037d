// Package pdf reads PDF documents into an object model and writes new
// documents that reuse pages from existing ones.
package pdf

import (
	"fmt"
	"strconv"
	"strings"
)

// ObjectType represents the type of a PDF object
type ObjectType int

const (
	ObjNull ObjectType = iota
	ObjBoolean
	ObjInteger
	ObjReal
	ObjString
	ObjName
	ObjArray
	ObjDictionary
	ObjStream
	ObjReference
)

// Object represents a PDF object
type Object interface {
	Type() ObjectType
	String() string
}

// Null represents a PDF null object
type Null struct{}

func (Null) Type() ObjectType { return ObjNull }
func (Null) String() string   { return "null" }

// Boolean represents a PDF boolean object
type Boolean bool

func (Boolean) Type() ObjectType { return ObjBoolean }
func (b Boolean) String() string { return strconv.FormatBool(bool(b)) }

// Integer represents a PDF integer object
type Integer int64

func (Integer) Type() ObjectType { return ObjInteger }
func (i Integer) String() string { return strconv.FormatInt(int64(i), 10) }

// Real represents a PDF real number object
type Real float64

func (Real) Type() ObjectType { return ObjReal }
func (r Real) String() string { return formatReal(float64(r)) }

// String represents a PDF string object. Value holds the raw bytes.
type String struct {
	Value []byte
	IsHex bool
}

func (String) Type() ObjectType { return ObjString }
func (s String) String() string {
	if s.IsHex {
		return fmt.Sprintf("<%X>", s.Value)
	}
	return "(" + escapeLiteral(s.Value) + ")"
}

// Text decodes the string as a PDF text string (UTF-16BE with BOM or
// PDFDocEncoding approximated as Latin-1).
func (s String) Text() string {
	v := s.Value
	if len(v) >= 2 && v[0] == 0xFE && v[1] == 0xFF {
		runes := make([]rune, 0, len(v)/2)
		for i := 2; i+1 < len(v); i += 2 {
			r := rune(v[i])<<8 | rune(v[i+1])
			if r >= 0xD800 && r <= 0xDBFF && i+3 < len(v) {
				lo := rune(v[i+2])<<8 | rune(v[i+3])
				if lo >= 0xDC00 && lo <= 0xDFFF {
					r = 0x10000 + (r-0xD800)<<10 + (lo - 0xDC00)
					i += 2
				}
			}
			runes = append(runes, r)
		}
		return string(runes)
	}
	runes := make([]rune, len(v))
	for i, b := range v {
		runes[i] = rune(b)
	}
	return string(runes)
}

// Name represents a PDF name object
type Name string

func (Name) Type() ObjectType { return ObjName }
func (n Name) String() string { return "/" + escapeName(string(n)) }

// Array represents a PDF array object
type Array []Object

func (Array) Type() ObjectType { return ObjArray }
func (a Array) String() string {
	parts := make([]string, len(a))
	for i, obj := range a {
		parts[i] = objectString(obj)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Dictionary represents a PDF dictionary object
type Dictionary map[Name]Object

func (Dictionary) Type() ObjectType { return ObjDictionary }

// String renders the dictionary with sorted keys so output is stable.
func (d Dictionary) String() string {
	var sb strings.Builder
	sb.WriteString("<<")
	for _, k := range d.sortedKeys() {
		sb.WriteString(k.String())
		sb.WriteByte(' ')
		sb.WriteString(objectString(d[k]))
		sb.WriteByte(' ')
	}
	sb.WriteString(">>")
	return sb.String()
}

// Get returns the value for a key without resolving references
func (d Dictionary) Get(key string) Object {
	return d[Name(key)]
}

// GetName returns the name value for a key
func (d Dictionary) GetName(key string) (Name, bool) {
	n, ok := d.Get(key).(Name)
	return n, ok
}

// GetInt returns the integer value for a key
func (d Dictionary) GetInt(key string) (int64, bool) {
	switch v := d.Get(key).(type) {
	case Integer:
		return int64(v), true
	case Real:
		return int64(v), true
	}
	return 0, false
}

// GetNumber returns an integer or real value for a key as float64
func (d Dictionary) GetNumber(key string) (float64, bool) {
	return Number(d.Get(key))
}

// GetArray returns the array value for a key
func (d Dictionary) GetArray(key string) (Array, bool) {
	a, ok := d.Get(key).(Array)
	return a, ok
}

// GetDict returns the dictionary value for a key
func (d Dictionary) GetDict(key string) (Dictionary, bool) {
	dict, ok := d.Get(key).(Dictionary)
	return dict, ok
}

// Clone returns a shallow copy of the dictionary
func (d Dictionary) Clone() Dictionary {
	out := make(Dictionary, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func (d Dictionary) sortedKeys() []Name {
	keys := make([]Name, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	// insertion sort, dictionaries are small
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

// Stream represents a PDF stream object. Data holds the encoded bytes as
// stored in the file.
type Stream struct {
	Dict Dictionary
	Data []byte
}

func (Stream) Type() ObjectType { return ObjStream }
func (s Stream) String() string {
	return s.Dict.String() + " stream...endstream"
}

// Decode applies the stream's filter chain and returns the decoded bytes.
// Image codecs (DCTDecode, JPXDecode) end the chain and are left encoded.
func (s Stream) Decode() ([]byte, error) {
	data := s.Data
	filters, params := s.Filters()
	for i, f := range filters {
		if isImageCodec(f) {
			return data, nil
		}
		var err error
		data, err = applyFilter(data, f, params[i])
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", f, err)
		}
	}
	return data, nil
}

// Filters returns the filter names with their decode parameters.
func (s Stream) Filters() ([]Name, []Dictionary) {
	var filters []Name
	switch f := s.Dict.Get("Filter").(type) {
	case Name:
		filters = []Name{f}
	case Array:
		for _, item := range f {
			if n, ok := item.(Name); ok {
				filters = append(filters, n)
			}
		}
	}
	params := make([]Dictionary, len(filters))
	switch p := s.Dict.Get("DecodeParms").(type) {
	case Dictionary:
		if len(params) > 0 {
			params[0] = p
		}
	case Array:
		for i := range params {
			if i < len(p) {
				params[i], _ = p[i].(Dictionary)
			}
		}
	}
	return filters, params
}

// Reference represents a PDF indirect object reference
type Reference struct {
	Num int
	Gen int
}

func (Reference) Type() ObjectType { return ObjReference }
func (r Reference) String() string {
	return fmt.Sprintf("%d %d R", r.Num, r.Gen)
}

// Number converts an Integer or Real to float64.
func Number(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// Numbers converts an array of numbers. It fails if any element is not numeric.
func Numbers(a Array) ([]float64, bool) {
	out := make([]float64, len(a))
	for i, o := range a {
		v, ok := Number(o)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func objectString(obj Object) string {
	if obj == nil {
		return "null"
	}
	return obj.String()
}

func formatReal(v float64) string {
	s := strconv.FormatFloat(v, 'f', 5, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" || s == "-0" {
		return "0"
	}
	return s
}

func escapeLiteral(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		switch c {
		case '(', ')', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\r':
			sb.WriteString(`\r`)
		case '\n':
			sb.WriteString(`\n`)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func escapeName(n string) string {
	var sb strings.Builder
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c < '!' || c > '~' || c == '#' || isDelimiter(c) {
			fmt.Fprintf(&sb, "#%02X", c)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
