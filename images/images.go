// Package images holds the bitmap assets placed by signature, initials
// and image elements.
package images

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/gabriel-vasile/mimetype"
	"github.com/vincent-petithory/dataurl"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrUnsupported is returned for data that is not a supported bitmap.
var ErrUnsupported = errors.New("unsupported image format")

// Supported lists the accepted MIME types.
var Supported = []string{"image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp"}

// Image is an encoded bitmap.
type Image struct {
	Name string
	Data []byte
	Hash string // SHA-256 of Data
	MIME string
}

// New wraps data after checking its format.
func New(name string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no data", ErrUnsupported)
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), Supported...) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mt.String())
	}
	sum := sha256.Sum256(data)
	return &Image{
		Name: name,
		Data: data,
		Hash: hex.EncodeToString(sum[:]),
		MIME: mt.String(),
	}, nil
}

// FromDataURI decodes a data: URI as stored in element content.
func FromDataURI(uri string) (*Image, error) {
	du, err := dataurl.DecodeString(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid data URI: %w", err)
	}
	return New("", du.Data)
}

// FromImage encodes img as PNG.
func FromImage(name string, img image.Image) (*Image, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return New(name, buf.Bytes())
}

// DataURI returns the image as a data: URI.
func (i *Image) DataURI() string {
	return dataurl.New(i.Data, i.MIME).String()
}

// Decode decodes the bitmap.
func (i *Image) Decode() (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(i.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", i.MIME, err)
	}
	return img, nil
}

// Config returns the pixel dimensions without decoding the pixels.
func (i *Image) Config() (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(i.Data))
	return cfg, err
}
