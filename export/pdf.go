package export

import (
	"bytes"
	"fmt"
	"strings"

	pdflib "github.com/digitorus/pdf"

	"github.com/digitorus/pdfstamp/document"
	"github.com/digitorus/pdfstamp/element"
	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/internal/incremental"
	"github.com/digitorus/pdfstamp/internal/pdf"
	"github.com/digitorus/pdfstamp/internal/render"
)

func (x *exporter) writePDF() error {
	doc := x.job.Document
	w, err := incremental.New(doc.Data, doc.Reader())
	if err != nil {
		return &Error{Op: "open document", Err: err}
	}
	w.SetCompressLevel(x.compressLevel)

	for _, n := range x.pages {
		if err := x.ctx.Err(); err != nil {
			return &Error{Op: "export", Err: err}
		}
		info, err := doc.PageInfo(n)
		if err != nil {
			return &Error{Op: "read page", Err: err}
		}
		pr, err := x.projection(n)
		if err != nil {
			return &Error{Op: "project", Err: err}
		}

		res := pdf.Inherited(info.Value, "Resources")
		ov := render.NewOverlay(w, func(category, name string) bool {
			return pdf.HasName(res, category, name)
		})
		for _, el := range x.byPage[n] {
			if err := x.drawPDF(ov, pr, el); err != nil {
				x.skipped(x.res, el, err)
				continue
			}
			x.res.Drawn++
		}
		if ov.Empty() {
			continue
		}
		if err := writePage(w, info, res, ov); err != nil {
			return &Error{Op: fmt.Sprintf("write page %d", n), Err: err}
		}
		x.res.Pages = append(x.res.Pages, n)
	}

	data, err := w.Finish()
	if err != nil {
		return &Error{Op: "write document", Err: err}
	}
	x.res.Data = data
	x.res.MIME = document.MIMEPDF
	return nil
}

// drawPDF adds one element to the page overlay.
func (x *exporter) drawPDF(ov *render.Overlay, pr geometry.Projection, el element.Element) error {
	n := pr.Rect(el.Rect())
	m := pr.Placement(n)

	switch {
	case el.Type.IsBitmap():
		d, err := x.decode(el.Content)
		if err != nil {
			return err
		}
		w, h := pixelSize(n.Width, n.Height)
		key := fmt.Sprintf("%s@%dx%d", d.hash, w, h)
		return ov.Image(m, n.Width, n.Height, key, resample(d.img, w, h, x.supersample))

	case el.Type.IsText():
		s := pr.Scale()
		text, c, size := x.text(el, s)
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return ov.Text(m, render.TextRun{
			Text:  text,
			Font:  x.font(el.FontFamily),
			Size:  size,
			Color: c,
			X:     textInset * s.X,
			Y:     baseline(n.Height, size),
		})

	case el.Type == element.Checkbox:
		ov.Checkbox(m, n.Width, n.Height, el.Checked, render.Black, render.Ink)
		return nil
	}
	return fmt.Errorf("unsupported element type %q", el.Type)
}

// writePage replaces the page dictionary with one whose contents wrap the
// original streams in q/Q, followed by the overlay, and whose resources
// include the overlay's.
func writePage(w *incremental.Writer, info pdf.PageInfo, res pdflib.Value, ov *render.Overlay) error {
	pre, err := w.AddStream("", []byte("q\n"))
	if err != nil {
		return err
	}
	post, err := w.AddStream("", append([]byte("Q\n"), ov.Content()...))
	if err != nil {
		return err
	}

	var contents bytes.Buffer
	contents.WriteString("[" + pdf.Ref(pre, 0))
	switch orig := info.Value.Key("Contents"); orig.Kind() {
	case pdflib.Array:
		for i := 0; i < orig.Len(); i++ {
			contents.WriteString(" " + pdf.RefOf(orig.Index(i)))
		}
	case pdflib.Stream:
		contents.WriteString(" " + pdf.RefOf(orig))
	}
	contents.WriteString(" " + pdf.Ref(post, 0) + "]")

	add := make(map[string][]pdf.Entry)
	for category, list := range ov.Resources() {
		for _, r := range list {
			add[category] = append(add[category], pdf.Entry{Key: r.Name, Value: pdf.Ref(r.ID, 0)})
		}
	}
	var resources bytes.Buffer
	pdf.MergeResources(&resources, res, add)

	var page bytes.Buffer
	pdf.WriteDict(&page, info.Value,
		func(key string) bool { return key == "Contents" || key == "Resources" },
		pdf.Entry{Key: "Contents", Value: contents.String()},
		pdf.Entry{Key: "Resources", Value: resources.String()},
	)
	return w.UpdateObject(info.ID, page.Bytes())
}
