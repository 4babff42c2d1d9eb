package render

import (
	"fmt"
	"image/color"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color represents an RGB color.
type Color struct {
	R, G, B uint8
}

// Black is the default text and border color.
var Black = Color{}

// Ink is the dark blue used for check marks.
var Ink = Color{R: 51, G: 51, B: 153}

// FromColor converts any color.Color, dropping alpha.
func FromColor(c color.Color) Color {
	r, g, b, _ := c.RGBA()
	return Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
}

// ParseColor parses a "#rgb" or "#rrggbb" color.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if len(s) == 4 && s[0] == '#' {
		s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Black, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return Color{R: r, G: g, B: b}, nil
}

// RGBA returns c as an opaque color.RGBA.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// fill returns the "rg" operator for c.
func (c Color) fill() string {
	return fmt.Sprintf("%.3f %.3f %.3f rg", float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
}

// stroke returns the "RG" operator for c.
func (c Color) stroke() string {
	return fmt.Sprintf("%.3f %.3f %.3f RG", float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
}

// Resource is a named entry of a page resource category.
type Resource struct {
	Name string
	ID   uint32
}

// Context is the object sink of the update being built.
type Context interface {
	AddObject(body []byte) (uint32, error)
	CompressLevel() int
}
