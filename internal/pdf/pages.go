// Package pdf contains helpers on top of github.com/digitorus/pdf for
// walking the page tree and writing objects back out.
package pdf

import (
	"fmt"

	pdflib "github.com/digitorus/pdf"

	"github.com/digitorus/pdfstamp/geometry"
)

// maxDepth bounds /Parent walks on malformed, cyclic page trees.
const maxDepth = 64

// PageInfo is a page dictionary together with its resolved geometry.
type PageInfo struct {
	Number int
	Value  pdflib.Value
	ID     uint32
	Gen    uint16
	Box    geometry.Box
	Rotate int
}

// Geometry returns the page as a geometry.Page in points.
func (p PageInfo) Geometry() geometry.Page {
	return geometry.Page{Number: p.Number, Box: p.Box, Rotate: p.Rotate, Unit: geometry.Points}
}

// Pages resolves every page of the document.
func Pages(r *pdflib.Reader) ([]PageInfo, error) {
	if r == nil {
		return nil, fmt.Errorf("no reader available")
	}
	n := r.NumPage()
	if n < 1 {
		return nil, fmt.Errorf("document has no pages")
	}
	pages := make([]PageInfo, 0, n)
	for i := 1; i <= n; i++ {
		p, err := Page(r, i)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// Page resolves page number (1-based).
func Page(r *pdflib.Reader, number int) (PageInfo, error) {
	if number < 1 || number > r.NumPage() {
		return PageInfo{}, fmt.Errorf("page %d out of range (1-%d)", number, r.NumPage())
	}
	v := r.Page(number).V
	if v.IsNull() {
		return PageInfo{}, fmt.Errorf("page %d not found", number)
	}
	ptr := v.GetPtr()
	return PageInfo{
		Number: number,
		Value:  v,
		ID:     uint32(ptr.GetID()),
		Gen:    uint16(ptr.GetGen()),
		Box:    PageBox(v),
		Rotate: geometry.NormalizeRotation(int(Inherited(v, "Rotate").Int64())),
	}, nil
}

// Inherited looks key up on the page and then on its /Parent chain.
func Inherited(page pdflib.Value, key string) pdflib.Value {
	v := page
	for i := 0; i < maxDepth && !v.IsNull(); i++ {
		if val := v.Key(key); !val.IsNull() {
			return val
		}
		v = v.Key("Parent")
	}
	return pdflib.Value{}
}

// InheritedOwner returns the dictionary (page or ancestor) that defines
// key, or a null value.
func InheritedOwner(page pdflib.Value, key string) pdflib.Value {
	v := page
	for i := 0; i < maxDepth && !v.IsNull(); i++ {
		if !v.Key(key).IsNull() {
			return v
		}
		v = v.Key("Parent")
	}
	return pdflib.Value{}
}

// PageBox returns the visible page area: the CropBox when present and
// well formed, otherwise the MediaBox, otherwise US Letter.
func PageBox(page pdflib.Value) geometry.Box {
	for _, key := range []string{"CropBox", "MediaBox"} {
		if b, ok := readBox(Inherited(page, key)); ok {
			return b
		}
	}
	return geometry.Letter
}

func readBox(v pdflib.Value) (geometry.Box, bool) {
	if v.Kind() != pdflib.Array || v.Len() != 4 {
		return geometry.Box{}, false
	}
	var b geometry.Box
	for i := 0; i < 4; i++ {
		b[i] = v.Index(i).Float64()
	}
	b = b.Normalize()
	if b.Width() <= 0 || b.Height() <= 0 {
		return geometry.Box{}, false
	}
	return b, true
}
