package export

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/digitorus/pdfstamp/images"
)

type decoded struct {
	hash string
	img  image.Image
}

// decode returns the bitmap of a data URI, decoding each distinct URI
// once per export.
func (x *exporter) decode(uri string) (*decoded, error) {
	if d, ok := x.cache[uri]; ok {
		return d, nil
	}
	src, err := images.FromDataURI(uri)
	if err != nil {
		return nil, err
	}
	img, err := src.Decode()
	if err != nil {
		return nil, err
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("bitmap has no pixels")
	}
	d := &decoded{hash: src.Hash, img: img}
	x.cache[uri] = d
	return d, nil
}

// pixelSize rounds a native extent to whole pixels, at least one.
func pixelSize(w, h float64) (int, int) {
	return int(math.Max(1, math.Round(w))), int(math.Max(1, math.Round(h)))
}

// resample draws src onto an intermediate surface of supersample times
// the target size and reduces it to exactly w x h pixels.
func resample(src image.Image, w, h, supersample int) *image.RGBA {
	hi := image.NewRGBA(image.Rect(0, 0, w*supersample, h*supersample))
	draw.CatmullRom.Scale(hi, hi.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(out, out.Bounds(), hi, hi.Bounds(), draw.Src, nil)
	return out
}
