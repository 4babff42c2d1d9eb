// Package document loads source files and rasterizes their pages at
// display resolution.
//
// PDF pages are measured in points and rendered at 72 dpi, so the
// unscaled surface has one pixel per point. Images use their natural
// pixel size as both display and native size.
package document

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	pdflib "github.com/digitorus/pdf"
	"github.com/gabriel-vasile/mimetype"

	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/internal/pdf"
)

// Accepted source formats.
const (
	MIMEPDF  = "application/pdf"
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
)

var accepted = []string{MIMEPDF, MIMEPNG, MIMEJPEG}

// Detect sniffs the format of data and rejects anything but PDF, PNG and
// JPEG.
func Detect(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), accepted...) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mt.String())
	}
	return mt.String(), nil
}

// Document is a loaded source file.
type Document struct {
	Name  string
	MIME  string
	Data  []byte
	Pages []geometry.Page

	reader *pdflib.Reader
	info   []pdf.PageInfo
	image  image.Image
}

// Load parses data. Errors are returned as *LoadError.
func Load(name string, data []byte) (doc *Document, err error) {
	defer func() {
		// The PDF reader panics on some malformed input.
		if r := recover(); r != nil {
			doc, err = nil, &LoadError{Name: name, Err: fmt.Errorf("malformed document: %v", r)}
		}
	}()

	mime, err := Detect(data)
	if err != nil {
		return nil, &LoadError{Name: name, Err: err}
	}

	d := &Document{Name: name, MIME: mime, Data: data}
	if mime == MIMEPDF {
		err = d.loadPDF()
	} else {
		err = d.loadImage()
	}
	if err != nil {
		return nil, &LoadError{Name: name, Err: err}
	}
	return d, nil
}

func (d *Document) loadPDF() error {
	r, err := pdflib.NewReader(bytes.NewReader(d.Data), int64(len(d.Data)))
	if err != nil {
		return err
	}
	if !r.Trailer().Key("Encrypt").IsNull() {
		return ErrEncrypted
	}
	info, err := pdf.Pages(r)
	if err != nil {
		return err
	}
	if len(info) == 0 {
		return fmt.Errorf("document has no pages")
	}
	d.reader = r
	d.info = info
	d.Pages = make([]geometry.Page, len(info))
	for i, p := range info {
		d.Pages[i] = p.Geometry()
	}
	return nil
}

func (d *Document) loadImage() error {
	img, _, err := image.Decode(bytes.NewReader(d.Data))
	if err != nil {
		return err
	}
	b := img.Bounds()
	if b.Empty() {
		return fmt.Errorf("image has no pixels")
	}
	d.image = img
	d.Pages = []geometry.Page{{
		Number: 1,
		Box:    geometry.Box{0, 0, float64(b.Dx()), float64(b.Dy())},
		Unit:   geometry.Pixels,
	}}
	return nil
}

// IsPDF reports whether the source is a PDF.
func (d *Document) IsPDF() bool { return d.MIME == MIMEPDF }

// NumPages returns the page count; images have one page.
func (d *Document) NumPages() int { return len(d.Pages) }

// Page returns the geometry of page n (1-based).
func (d *Document) Page(n int) (geometry.Page, error) {
	if n < 1 || n > len(d.Pages) {
		return geometry.Page{}, fmt.Errorf("page %d out of range (1-%d)", n, len(d.Pages))
	}
	return d.Pages[n-1], nil
}

// Reader returns the PDF reader, or nil for images.
func (d *Document) Reader() *pdflib.Reader { return d.reader }

// PageInfo returns the PDF page object of page n.
func (d *Document) PageInfo(n int) (pdf.PageInfo, error) {
	if d.reader == nil {
		return pdf.PageInfo{}, fmt.Errorf("%s has no PDF pages", d.MIME)
	}
	if n < 1 || n > len(d.info) {
		return pdf.PageInfo{}, fmt.Errorf("page %d out of range (1-%d)", n, len(d.info))
	}
	return d.info[n-1], nil
}

// Image returns the decoded source image, or nil for PDFs.
func (d *Document) Image() image.Image { return d.image }

// Fonts lists the fonts referenced by the PDF.
func (d *Document) Fonts() []pdf.FontInfo {
	if d.reader == nil {
		return nil
	}
	return pdf.ScanFonts(d.reader)
}
