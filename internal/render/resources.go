package render

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/digitorus/pdfstamp/fonts"
	"github.com/digitorus/pdfstamp/internal/pdf"
)

// RegisterImage embeds img as an 8-bit DeviceRGB image XObject. Images
// with transparency get a DeviceGray soft mask.
func RegisterImage(ctx Context, img image.Image) (uint32, error) {
	if img == nil {
		return 0, errors.New("no image data")
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return 0, fmt.Errorf("invalid image size %dx%d", w, h)
	}

	rgb := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	opaque := true
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			rgb = append(rgb, c.R, c.G, c.B)
			alpha = append(alpha, c.A)
			if c.A != 255 {
				opaque = false
			}
		}
	}

	smask := ""
	if !opaque {
		id, err := addImageStream(ctx, w, h, "/DeviceGray", alpha, "")
		if err != nil {
			return 0, fmt.Errorf("failed to write soft mask: %w", err)
		}
		smask = fmt.Sprintf(" /SMask %d 0 R", id)
	}
	return addImageStream(ctx, w, h, "/DeviceRGB", rgb, smask)
}

func addImageStream(ctx Context, w, h int, colorSpace string, data []byte, extra string) (uint32, error) {
	data, filter, err := compress(data, ctx.CompressLevel())
	if err != nil {
		return 0, err
	}
	var obj bytes.Buffer
	fmt.Fprintf(&obj, "<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace %s /BitsPerComponent 8%s%s /Length %d >>\nstream\n",
		w, h, colorSpace, filter, extra, len(data))
	obj.Write(data)
	obj.WriteString("\nendstream")
	return ctx.AddObject(obj.Bytes())
}

// RegisterFont writes the font dictionary for f. Fonts with data are
// embedded as TrueType with WinAnsi widths; others reference a standard
// Type1 font by name.
func RegisterFont(ctx Context, f *fonts.Font) (uint32, error) {
	if f == nil || len(f.Data) == 0 {
		baseFont := "Helvetica"
		if f != nil && f.Name != "" {
			baseFont = f.Name
		}
		return ctx.AddObject([]byte(fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont %s /Encoding /WinAnsiEncoding >>", pdf.Name(baseFont))))
	}

	data, filter, err := compress(f.Data, ctx.CompressLevel())
	if err != nil {
		return 0, err
	}
	var stream bytes.Buffer
	fmt.Fprintf(&stream, "<< /Length %d /Length1 %d%s >>\nstream\n", len(data), len(f.Data), filter)
	stream.Write(data)
	stream.WriteString("\nendstream")
	fileID, err := ctx.AddObject(stream.Bytes())
	if err != nil {
		return 0, fmt.Errorf("failed to embed font %s: %w", f.Name, err)
	}

	descriptor := fmt.Sprintf("<< /Type /FontDescriptor /FontName %s /Flags 32 /FontBBox [-500 -200 1000 900] /ItalicAngle 0 /Ascent 800 /Descent -200 /CapHeight 700 /StemV 80 /FontFile2 %d 0 R >>",
		pdf.Name(f.Name), fileID)
	descriptorID, err := ctx.AddObject([]byte(descriptor))
	if err != nil {
		return 0, err
	}

	var dict bytes.Buffer
	fmt.Fprintf(&dict, "<< /Type /Font /Subtype /TrueType /BaseFont %s /FontDescriptor %d 0 R /FirstChar 32 /LastChar 255 /Encoding /WinAnsiEncoding /Widths [",
		pdf.Name(f.Name), descriptorID)
	for _, w := range f.Metrics.GetWidthsArray() {
		fmt.Fprintf(&dict, " %d", w)
	}
	dict.WriteString(" ] >>")
	return ctx.AddObject(dict.Bytes())
}

func compress(data []byte, level int) ([]byte, string, error) {
	if level == zlib.NoCompression {
		return data, "", nil
	}
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, "", err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, "", err
	}
	if err := zw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), " /Filter /FlateDecode", nil
}
