package pdf

import "fmt"

// ImportPage copies a page of another document into w as a Form XObject.
// The form's user space is the displayed page: origin at the lower-left
// corner, Width() by Height() points, rotation already applied. Objects
// shared between pages of the same source are copied once.
func (w *Writer) ImportPage(page *Page) (Reference, error) {
	content, err := page.Contents()
	if err != nil {
		return Reference{}, err
	}
	res, err := w.importObject(page.doc, page.Resources)
	if err != nil {
		return Reference{}, fmt.Errorf("page %d resources: %w", page.Number, err)
	}
	b := page.MediaBox
	return w.AddStream(Dictionary{
		"Type":      Name("XObject"),
		"Subtype":   Name("Form"),
		"BBox":      Array{Real(b.LLX), Real(b.LLY), Real(b.URX), Real(b.URY)},
		"Matrix":    page.DisplayMatrix().Array(),
		"Resources": res,
	}, content)
}

func (w *Writer) importObject(src *Document, obj Object) (Object, error) {
	switch v := obj.(type) {
	case Reference:
		return w.importReference(src, v)
	case Dictionary:
		out := make(Dictionary, len(v))
		for k, val := range v {
			if k == "Parent" {
				continue
			}
			c, err := w.importObject(src, val)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case Array:
		out := make(Array, len(v))
		for i, val := range v {
			c, err := w.importObject(src, val)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case Stream:
		d, err := w.importObject(src, v.Dict)
		if err != nil {
			return nil, err
		}
		return Stream{Dict: d.(Dictionary), Data: v.Data}, nil
	}
	return obj, nil
}

func (w *Writer) importReference(src *Document, ref Reference) (Object, error) {
	table := w.imports[src]
	if table == nil {
		table = make(map[int]Reference)
		w.imports[src] = table
	}
	if local, ok := table[ref.Num]; ok {
		return local, nil
	}
	local := w.Alloc()
	table[ref.Num] = local

	obj, err := src.GetObject(ref.Num)
	if err != nil {
		return nil, err
	}
	c, err := w.importObject(src, obj)
	if err != nil {
		return nil, err
	}
	w.Set(local, c)
	return local, nil
}
