// Package fonts resolves the fonts used for text elements, both as PDF
// font resources and as rasterizer faces.
package fonts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// StandardType is one of the base fonts every PDF reader provides.
type StandardType int

const (
	Helvetica StandardType = iota
	HelveticaBold
	HelveticaOblique
	TimesRoman
	TimesBold
	Courier
	CourierBold
)

var standardNames = map[StandardType]string{
	Helvetica:        "Helvetica",
	HelveticaBold:    "Helvetica-Bold",
	HelveticaOblique: "Helvetica-Oblique",
	TimesRoman:       "Times-Roman",
	TimesBold:        "Times-Bold",
	Courier:          "Courier",
	CourierBold:      "Courier-Bold",
}

// Font is a font resource. Standard fonts have no Data and are referenced
// by name; other fonts are embedded.
type Font struct {
	Name     string // PostScript name
	Data     []byte // TrueType data, nil for standard fonts
	Hash     string // SHA-256 of Data
	Embedded bool
	Metrics  *Metrics
}

// Standard returns the standard font ft.
func Standard(ft StandardType) *Font {
	return &Font{Name: standardNames[ft]}
}

// Parse returns an embeddable font for the TrueType data.
func Parse(name string, data []byte) (*Font, error) {
	m, err := ParseTTFMetrics(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", name, err)
	}
	sum := sha256.Sum256(data)
	return &Font{
		Name:     strings.ReplaceAll(name, " ", ""),
		Data:     data,
		Hash:     hex.EncodeToString(sum[:]),
		Embedded: true,
		Metrics:  m,
	}, nil
}

// Key identifies the font for deduplication.
func (f *Font) Key() string {
	if f.Hash != "" {
		return f.Hash
	}
	return f.Name
}

// FromFamily maps a CSS style font-family list to a standard font. The
// first recognised family wins; unknown lists fall back to Helvetica.
func FromFamily(family string) *Font {
	for _, part := range strings.Split(family, ",") {
		name := strings.ToLower(strings.Trim(strings.TrimSpace(part), `"'`))
		switch name {
		case "helvetica", "arial", "sans-serif", "system-ui", "verdana":
			return Standard(Helvetica)
		case "helvetica-bold", "arial bold":
			return Standard(HelveticaBold)
		case "times", "times new roman", "times-roman", "serif", "georgia":
			return Standard(TimesRoman)
		case "times-bold":
			return Standard(TimesBold)
		case "courier", "courier new", "monospace":
			return Standard(Courier)
		case "courier-bold":
			return Standard(CourierBold)
		}
	}
	return Standard(Helvetica)
}

// Metrics holds glyph advances for width calculations.
type Metrics struct {
	UnitsPerEm  int
	GlyphWidths map[rune]int // advance in font units
}

// ParseTTFMetrics reads the advances of the Latin-1 range from a
// TrueType font.
func ParseTTFMetrics(data []byte) (*Metrics, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, err
	}

	upem := f.UnitsPerEm()
	ppem := fixed.Int26_6(upem) << 6
	widths := make(map[rune]int)
	var buf sfnt.Buffer
	for r := rune(32); r <= 255; r++ {
		idx, err := f.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			continue
		}
		adv, err := f.GlyphAdvance(&buf, idx, ppem, font.HintingNone)
		if err != nil {
			continue
		}
		widths[r] = int(adv >> 6)
	}
	return &Metrics{UnitsPerEm: int(upem), GlyphWidths: widths}, nil
}

// StringWidth returns the width of text in points at size.
func (m *Metrics) StringWidth(text string, size float64) float64 {
	if m == nil || m.UnitsPerEm == 0 {
		return float64(len([]rune(text))) * size * 0.5
	}
	total := 0
	for _, r := range text {
		if w, ok := m.GlyphWidths[r]; ok {
			total += w
		} else {
			total += m.UnitsPerEm / 2
		}
	}
	return float64(total) / float64(m.UnitsPerEm) * size
}

// GetWidthsArray returns the /Widths array for FirstChar 32 to LastChar
// 255 in thousandths of an em.
func (m *Metrics) GetWidthsArray() []int {
	widths := make([]int, 256-32)
	if m == nil || m.UnitsPerEm <= 0 {
		for i := range widths {
			widths[i] = 500
		}
		return widths
	}
	scale := 1000.0 / float64(m.UnitsPerEm)
	for i := range widths {
		w, ok := m.GlyphWidths[rune(i+32)]
		if !ok {
			w = m.UnitsPerEm / 2
		}
		widths[i] = int(float64(w) * scale)
	}
	return widths
}
