// Package testpdf builds small, valid PDF files in memory for tests.
package testpdf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Page describes one page of a generated document.
type Page struct {
	MediaBox []float64 // nil inherits from the page tree root
	CropBox  []float64
	Rotate   int
	Content  string

	// OwnResources puts the font resources on the page instead of
	// inheriting them from the page tree root.
	OwnResources bool
}

// Options controls document-wide settings.
type Options struct {
	MediaBox   []float64 // inherited box; defaults to US Letter
	Rotate     int       // inherited rotation
	XRefStream bool      // write a cross-reference stream instead of a table
}

// Letter returns an n-page US Letter document with a line of text on each
// page.
func Letter(n int) []byte {
	pages := make([]Page, n)
	for i := range pages {
		pages[i].Content = fmt.Sprintf("BT /F1 24 Tf 72 720 Td (Page %d) Tj ET", i+1)
	}
	return Build(Options{}, pages...)
}

// Build assembles a document. Object 1 is the catalog, 2 the page tree,
// 3 a Helvetica font and pages follow as (page, content) pairs.
func Build(opts Options, pages ...Page) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := []int{0}
	add := func(body string) int {
		id := len(offsets)
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, body)
		return id
	}

	mediaBox := opts.MediaBox
	if mediaBox == nil {
		mediaBox = []float64{0, 0, 612, 792}
	}
	fontRes := "<< /Font << /F1 3 0 R >> >>"

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	add("<< /Type /Catalog /Pages 2 0 R >>")
	root := fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox %s /Resources %s",
		strings.Join(kids, " "), len(pages), array(mediaBox), fontRes)
	if opts.Rotate != 0 {
		root += fmt.Sprintf(" /Rotate %d", opts.Rotate)
	}
	add(root + " >>")
	add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, p := range pages {
		dict := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Contents %d 0 R", 5+2*i)
		if p.MediaBox != nil {
			dict += " /MediaBox " + array(p.MediaBox)
		}
		if p.CropBox != nil {
			dict += " /CropBox " + array(p.CropBox)
		}
		if p.Rotate != 0 {
			dict += fmt.Sprintf(" /Rotate %d", p.Rotate)
		}
		if p.OwnResources {
			dict += " /Resources " + fontRes
		}
		add(dict + " >>")
		add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(p.Content)+1, p.Content))
	}

	id := "<00112233445566778899aabbccddeeff><00112233445566778899aabbccddeeff>"
	if opts.XRefStream {
		writeXRefStream(&buf, offsets, id)
	} else {
		writeXRefTable(&buf, offsets, id)
	}
	return buf.Bytes()
}

func writeXRefTable(buf *bytes.Buffer, offsets []int, id string) {
	start := buf.Len()
	fmt.Fprintf(buf, "xref\n0 %d\n", len(offsets))
	buf.WriteString("0000000000 65535 f\r\n")
	for _, off := range offsets[1:] {
		fmt.Fprintf(buf, "%010d 00000 n\r\n", off)
	}
	fmt.Fprintf(buf, "trailer\n<< /Size %d /Root 1 0 R /ID [%s] >>\nstartxref\n%d\n%%%%EOF\n", len(offsets), id, start)
}

func writeXRefStream(buf *bytes.Buffer, offsets []int, id string) {
	start := buf.Len()
	self := len(offsets)
	offsets = append(offsets, start)

	var rows bytes.Buffer
	for i, off := range offsets {
		if i == 0 {
			rows.Write([]byte{0, 0, 0, 0, 0, 0xff})
			continue
		}
		rows.WriteByte(1)
		_ = binary.Write(&rows, binary.BigEndian, uint32(off))
		rows.WriteByte(0)
	}

	fmt.Fprintf(buf, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 1] /Root 1 0 R /ID [%s] /Length %d >>\nstream\n",
		self, len(offsets), id, rows.Len())
	buf.Write(rows.Bytes())
	fmt.Fprintf(buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", start)
}

func array(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
