package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/digitorus/pdfstamp/document"
	"github.com/digitorus/pdfstamp/element"
	"github.com/digitorus/pdfstamp/fonts"
	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/internal/raster"
	"github.com/digitorus/pdfstamp/internal/render"
)

// writeRaster draws the elements of page 1 onto a copy of the source
// image at its native pixel size.
func (x *exporter) writeRaster() error {
	src := x.job.Document.Image()
	if src == nil {
		return &Error{Op: "read image", Err: ErrNoSurface}
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	for _, n := range x.pages {
		if err := x.ctx.Err(); err != nil {
			return &Error{Op: "export", Err: err}
		}
		pr, err := x.projection(n)
		if err != nil {
			return &Error{Op: "project", Err: err}
		}
		for _, el := range x.byPage[n] {
			if err := x.drawRaster(dst, pr, el); err != nil {
				x.skipped(x.res, el, err)
				continue
			}
			x.res.Drawn++
		}
		x.res.Pages = append(x.res.Pages, n)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return &Error{Op: "encode image", Err: err}
	}
	x.res.Data = buf.Bytes()
	x.res.MIME = document.MIMEPNG
	return nil
}

// drawRaster draws one element in pixel space; the top-left origin is
// shared with display space, so no flip applies.
func (x *exporter) drawRaster(dst *image.RGBA, pr geometry.Projection, el element.Element) error {
	n := pr.Rect(el.Rect())

	switch {
	case el.Type.IsBitmap():
		d, err := x.decode(el.Content)
		if err != nil {
			return err
		}
		w, h := pixelSize(n.Width, n.Height)
		at := image.Pt(int(math.Round(n.X)), int(math.Round(n.Y)))
		img := resample(d.img, w, h, x.supersample)
		draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(image.Pt(w, h))}, img, image.Point{}, draw.Over)
		return nil

	case el.Type.IsText():
		s := pr.Scale()
		text, c, size := x.text(el, s)
		if strings.TrimSpace(text) == "" {
			return nil
		}
		face, err := fonts.Face(x.font(el.FontFamily), size)
		if err != nil {
			return err
		}
		defer func() { _ = face.Close() }()
		d := font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(c.RGBA()),
			Face: face,
			Dot: fixed.Point26_6{
				X: fixed.Int26_6(math.Round((n.X + textInset*s.X) * 64)),
				Y: fixed.Int26_6(math.Round((n.Y + n.Height - baseline(n.Height, size)) * 64)),
			},
		}
		d.DrawString(text)
		return nil

	case el.Type == element.Checkbox:
		side := math.Min(n.Width, n.Height)
		lw := math.Max(1, side*0.06)
		raster.StrokeRect(dst, geometry.Rect{
			X: n.X + lw/2, Y: n.Y + lw/2, Width: n.Width - lw, Height: n.Height - lw,
		}, lw, render.Black.RGBA())
		if el.Checked {
			pts := render.CheckMark(n.Width, n.Height)
			path := make([]geometry.Point, len(pts))
			for i, p := range pts {
				path[i] = geometry.Point{X: n.X + p.X, Y: n.Y + n.Height - p.Y}
			}
			raster.Stroke(dst, [][]geometry.Point{path}, side*0.12, render.Ink.RGBA())
		}
		return nil
	}
	return fmt.Errorf("unsupported element type %q", el.Type)
}
