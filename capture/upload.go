package capture

import (
	"errors"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/digitorus/pdfstamp/images"
)

// NormalizeUpload validates an uploaded picture, shrinks it so neither
// side exceeds maxDim (0 for no limit) and re-encodes it as PNG.
func NormalizeUpload(data []byte, maxDim int) (*Asset, error) {
	img, err := images.New("", data)
	if err != nil {
		if errors.Is(err, images.ErrUnsupported) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
		}
		return nil, err
	}
	src, err := img.Decode()
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	if maxDim > 0 && (b.Dx() > maxDim || b.Dy() > maxDim) {
		k := math.Min(float64(maxDim)/float64(b.Dx()), float64(maxDim)/float64(b.Dy()))
		w := int(math.Max(1, math.Round(float64(b.Dx())*k)))
		h := int(math.Max(1, math.Round(float64(b.Dy())*k)))
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		src = dst
	}
	return encode(src, 1)
}
