package fonts

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Substitutes for the standard fonts when rasterizing.
var substitutes = map[string][]byte{
	"Helvetica":         goregular.TTF,
	"Helvetica-Bold":    gobold.TTF,
	"Helvetica-Oblique": goitalic.TTF,
	"Times-Roman":       gomedium.TTF,
	"Times-Bold":        gobold.TTF,
	"Courier":           gomono.TTF,
	"Courier-Bold":      gomonobold.TTF,
}

// Bundled fonts for typed signatures.
var (
	Script    = mustParse("GoItalic", goitalic.TTF)
	Sans      = mustParse("GoRegular", goregular.TTF)
	Serif     = mustParse("GoMedium", gomedium.TTF)
	Mono      = mustParse("GoMono", gomono.TTF)
	SmallCaps = mustParse("GoSmallcaps", gosmallcaps.TTF)
)

func mustParse(name string, data []byte) *Font {
	f, err := Parse(name, data)
	if err != nil {
		panic(err)
	}
	return f
}

var parsed sync.Map // string -> *opentype.Font

func load(key string, data []byte) (*opentype.Font, error) {
	if v, ok := parsed.Load(key); ok {
		return v.(*opentype.Font), nil
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	v, _ := parsed.LoadOrStore(key, f)
	return v.(*opentype.Font), nil
}

// Face returns a rasterizer face for f at size pixels per em. Standard
// fonts are drawn with a bundled Go font of similar style.
func Face(f *Font, size float64) (font.Face, error) {
	if f == nil {
		f = Standard(Helvetica)
	}
	data, key := f.Data, f.Key()
	if len(data) == 0 {
		sub, ok := substitutes[f.Name]
		if !ok {
			sub = goregular.TTF
		}
		data, key = sub, "std:"+f.Name
	}
	otf, err := load(key, data)
	if err != nil {
		return nil, fmt.Errorf("failed to load font %s: %w", f.Name, err)
	}
	return opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// Measure returns the advance width of text and the ascent and descent
// of face, all in pixels.
func Measure(face font.Face, text string) (width, ascent, descent float64) {
	m := face.Metrics()
	return fix(font.MeasureString(face, text)), fix(m.Ascent), fix(m.Descent)
}

func fix(v fixed.Int26_6) float64 { return float64(v) / 64 }
