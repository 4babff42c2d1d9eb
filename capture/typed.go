package capture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/digitorus/pdfstamp/fonts"
	"github.com/digitorus/pdfstamp/internal/render"
)

// Style selects a bundled font for typed signatures.
type Style string

const (
	Script    Style = "script"
	Sans      Style = "sans"
	Serif     Style = "serif"
	Mono      Style = "mono"
	SmallCaps Style = "smallcaps"
)

// Styles lists the bundled styles.
var Styles = []Style{Script, Sans, Serif, Mono, SmallCaps}

func (s Style) font() (*fonts.Font, error) {
	switch s {
	case Script, "":
		return fonts.Script, nil
	case Sans:
		return fonts.Sans, nil
	case Serif:
		return fonts.Serif, nil
	case Mono:
		return fonts.Mono, nil
	case SmallCaps:
		return fonts.SmallCaps, nil
	}
	return nil, fmt.Errorf("unknown style %q", s)
}

// TypedOptions describes a typed signature.
type TypedOptions struct {
	Text  string
	Style Style
	Font  *fonts.Font // overrides Style
	Size  float64     // pixels per em at density 1; default 48
	Color string      // "#rrggbb"; default black
	// Supersample is the bitmap density; default 3.
	Supersample int
	// Padding is the margin around the measured text; default 4.
	Padding float64
}

// RenderTyped draws the text on a bitmap sized to its measured extent.
func RenderTyped(o TypedOptions) (*Asset, error) {
	text := strings.TrimSpace(o.Text)
	if text == "" {
		return nil, errors.New("no text to render")
	}
	f := o.Font
	if f == nil {
		var err error
		if f, err = o.Style.font(); err != nil {
			return nil, err
		}
	}
	size := o.Size
	if size <= 0 {
		size = 48
	}
	ss := o.Supersample
	if ss < 1 {
		ss = 3
	}
	padding := o.Padding
	if padding <= 0 {
		padding = 4
	}
	var ink color.Color = color.Black
	if o.Color != "" {
		c, err := render.ParseColor(o.Color)
		if err != nil {
			return nil, err
		}
		ink = c.RGBA()
	}

	face, err := fonts.Face(f, size*float64(ss))
	if err != nil {
		return nil, err
	}
	defer func() { _ = face.Close() }()

	width, ascent, descent := fonts.Measure(face, text)
	pad := padding * float64(ss)
	w := int(math.Ceil(width + 2*pad))
	h := int(math.Ceil(ascent + descent + 2*pad))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(ink),
		Face: face,
		Dot:  fixed.P(int(math.Round(pad)), int(math.Round(pad+ascent))),
	}
	d.DrawString(text)
	return encode(dst, ss)
}
