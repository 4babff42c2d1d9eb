package pdf

import (
	"sort"

	pdflib "github.com/digitorus/pdf"
)

// FontInfo describes a font resource used by the document.
type FontInfo struct {
	BaseFont string
	Subtype  string
	ID       uint32
	Pages    []int
}

// ScanFonts collects the font resources reachable from the AcroForm
// default resources and from every page, following inherited /Resources.
// Fonts are reported once per object, with the pages that use them.
func ScanFonts(r *pdflib.Reader) []FontInfo {
	if r == nil {
		return nil
	}

	byID := make(map[uint32]*FontInfo)
	var order []uint32

	visit := func(fonts pdflib.Value, page int) {
		if fonts.Kind() != pdflib.Dict {
			return
		}
		for _, name := range fonts.Keys() {
			f := fonts.Key(name)
			if f.Kind() != pdflib.Dict {
				continue
			}
			id := uint32(f.GetPtr().GetID())
			info, ok := byID[id]
			if !ok {
				info = &FontInfo{
					BaseFont: f.Key("BaseFont").Name(),
					Subtype:  f.Key("Subtype").Name(),
					ID:       id,
				}
				byID[id] = info
				order = append(order, id)
			}
			if page > 0 && (len(info.Pages) == 0 || info.Pages[len(info.Pages)-1] != page) {
				info.Pages = append(info.Pages, page)
			}
		}
	}

	visit(r.Trailer().Key("Root").Key("AcroForm").Key("DR").Key("Font"), 0)
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i).V
		visit(Inherited(page, "Resources").Key("Font"), i)
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]FontInfo, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}
