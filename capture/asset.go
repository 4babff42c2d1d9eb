// Package capture produces the bitmaps placed by signature, initials and
// image elements: freehand ink, typed names and uploaded pictures.
package capture

import (
	"bytes"
	"errors"
	"image"
	"image/png"

	"github.com/vincent-petithory/dataurl"

	"github.com/digitorus/pdfstamp/geometry"
)

var (
	// ErrEmptyPad is returned when saving a pad without ink.
	ErrEmptyPad = errors.New("signature pad is empty")

	// ErrUnsupportedImage is returned for uploads outside the allow-list.
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// Asset is a captured bitmap.
type Asset struct {
	Data   []byte // PNG
	MIME   string
	Width  int // natural size in display pixels
	Height int
	// Density is the number of bitmap pixels per natural pixel.
	Density int
}

// NaturalSize returns the size the asset wants to be shown at.
func (a *Asset) NaturalSize() geometry.Size {
	return geometry.Size{Width: float64(a.Width), Height: float64(a.Height)}
}

// DataURI returns the asset as element content.
func (a *Asset) DataURI() string {
	return dataurl.New(a.Data, a.MIME).String()
}

// FitDisplaySize returns the on-canvas size for an asset: no side larger
// than max and, where that allows it, none smaller than min. The aspect
// ratio is kept.
func FitDisplaySize(natural geometry.Size, min, max float64) geometry.Size {
	return geometry.FitWithin(natural, min, max)
}

func encode(img image.Image, density int) (*Asset, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	b := img.Bounds()
	if density < 1 {
		density = 1
	}
	return &Asset{
		Data:    buf.Bytes(),
		MIME:    "image/png",
		Width:   (b.Dx() + density - 1) / density,
		Height:  (b.Dy() + density - 1) / density,
		Density: density,
	}, nil
}
