// Package incremental appends an incremental update to an existing PDF:
// new and replaced objects, a cross-reference section and a trailer
// pointing back at the previous revision. The original bytes are never
// modified.
package incremental

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"

	pdflib "github.com/digitorus/pdf"
	"github.com/mattetti/filebuffer"
)

// ErrEncrypted is returned for documents with an /Encrypt dictionary.
var ErrEncrypted = errors.New("encrypted documents are not supported")

type xrefEntry struct {
	ID     uint32
	Offset int64
}

// Writer collects the objects of one incremental update.
type Writer struct {
	reader *pdflib.Reader
	buf    *filebuffer.Buffer

	nextID  uint32
	entries []xrefEntry
	updated map[uint32]bool

	compressLevel int
}

// New starts an update of the document in data, parsed as r.
func New(data []byte, r *pdflib.Reader) (*Writer, error) {
	if r == nil {
		return nil, errors.New("no reader available")
	}
	if !r.Trailer().Key("Encrypt").IsNull() {
		return nil, ErrEncrypted
	}

	size := r.Trailer().Key("Size").Int64()
	if size < r.XrefInformation.ItemCount {
		size = r.XrefInformation.ItemCount
	}
	if size < 1 {
		return nil, errors.New("trailer has no /Size")
	}

	w := &Writer{
		reader:        r,
		buf:           filebuffer.New([]byte{}),
		nextID:        uint32(size),
		updated:       make(map[uint32]bool),
		compressLevel: zlib.DefaultCompression,
	}

	// Copy the original revision, followed by the newline that has to
	// separate %%EOF from the update.
	if _, err := w.buf.Write(data); err != nil {
		return nil, err
	}
	if _, err := w.buf.Write([]byte("\n")); err != nil {
		return nil, err
	}
	return w, nil
}

// Reader returns the reader of the previous revision.
func (w *Writer) Reader() *pdflib.Reader { return w.reader }

// SetCompressLevel sets the zlib level used for streams.
func (w *Writer) SetCompressLevel(level int) { w.compressLevel = level }

// CompressLevel returns the zlib level used for streams.
func (w *Writer) CompressLevel() int { return w.compressLevel }

// Changed reports whether any object was added or replaced.
func (w *Writer) Changed() bool { return len(w.entries) > 0 }

// AddObject writes body as a new object and returns its number.
func (w *Writer) AddObject(body []byte) (uint32, error) {
	id := w.nextID
	w.nextID++
	if err := w.writeObject(id, body); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateObject writes body as the new version of object id.
func (w *Writer) UpdateObject(id uint32, body []byte) error {
	if w.updated[id] {
		return fmt.Errorf("object %d already updated", id)
	}
	w.updated[id] = true
	return w.writeObject(id, body)
}

// AddStream writes a stream object. dict holds extra dictionary entries
// (without << >>); Length and, when compressing, Filter are added.
func (w *Writer) AddStream(dict string, data []byte) (uint32, error) {
	filter := ""
	if w.compressLevel != zlib.NoCompression {
		var b bytes.Buffer
		zw, err := zlib.NewWriterLevel(&b, w.compressLevel)
		if err != nil {
			return 0, err
		}
		if _, err := zw.Write(data); err != nil {
			return 0, err
		}
		if err := zw.Close(); err != nil {
			return 0, err
		}
		data = b.Bytes()
		filter = " /Filter /FlateDecode"
	}

	var obj bytes.Buffer
	fmt.Fprintf(&obj, "<< %s%s /Length %d >>\nstream\n", dict, filter, len(data))
	obj.Write(data)
	obj.WriteString("\nendstream")
	return w.AddObject(obj.Bytes())
}

func (w *Writer) writeObject(id uint32, body []byte) error {
	if _, err := w.buf.Write([]byte("\n")); err != nil {
		return err
	}
	w.entries = append(w.entries, xrefEntry{ID: id, Offset: int64(w.buf.Buff.Len())})

	if _, err := fmt.Fprintf(w.buf, "%d 0 obj\n", id); err != nil {
		return fmt.Errorf("failed to write object header: %w", err)
	}
	if _, err := w.buf.Write(bytes.TrimSpace(body)); err != nil {
		return fmt.Errorf("failed to write object %d: %w", id, err)
	}
	if _, err := w.buf.Write([]byte("\nendobj\n")); err != nil {
		return fmt.Errorf("failed to write object footer: %w", err)
	}
	return nil
}

// Finish writes the cross-reference section and trailer and returns the
// complete file. An update without objects returns the original bytes.
func (w *Writer) Finish() ([]byte, error) {
	if !w.Changed() {
		out := w.buf.Buff.Bytes()
		return append([]byte(nil), out[:len(out)-1]...), nil
	}

	var err error
	switch w.reader.XrefInformation.Type {
	case "stream":
		err = w.writeXrefStream()
	default:
		err = w.writeXrefTable()
	}
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), w.buf.Buff.Bytes()...), nil
}

// sections groups entries into runs of consecutive object numbers.
func sections(entries []xrefEntry) [][]xrefEntry {
	sorted := append([]xrefEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var out [][]xrefEntry
	for i, e := range sorted {
		if i == 0 || e.ID != sorted[i-1].ID+1 {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], e)
	}
	return out
}

func (w *Writer) writeXrefTable() error {
	start := int64(w.buf.Buff.Len())

	var b bytes.Buffer
	b.WriteString("xref\n")
	for _, sec := range sections(w.entries) {
		fmt.Fprintf(&b, "%d %d\n", sec[0].ID, len(sec))
		for _, e := range sec {
			fmt.Fprintf(&b, "%010d 00000 n\r\n", e.Offset)
		}
	}

	b.WriteString("trailer\n<<")
	b.WriteString(w.trailerEntries(w.nextID))
	b.WriteString(" >>\n")
	fmt.Fprintf(&b, "startxref\n%d\n%%%%EOF\n", start)

	if _, err := w.buf.Write(b.Bytes()); err != nil {
		return fmt.Errorf("failed to write xref table: %w", err)
	}
	return nil
}

func (w *Writer) writeXrefStream() error {
	// The stream object describes itself, so its entry is known up front.
	id := w.nextID
	w.nextID++
	if _, err := w.buf.Write([]byte("\n")); err != nil {
		return err
	}
	start := int64(w.buf.Buff.Len())
	entries := append(w.entries, xrefEntry{ID: id, Offset: start})

	var rows bytes.Buffer
	var index bytes.Buffer
	for _, sec := range sections(entries) {
		fmt.Fprintf(&index, " %d %d", sec[0].ID, len(sec))
		for _, e := range sec {
			rows.WriteByte(1)
			if err := binary.Write(&rows, binary.BigEndian, uint32(e.Offset)); err != nil {
				return err
			}
			rows.WriteByte(0)
		}
	}

	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	if _, err := zw.Write(rows.Bytes()); err != nil {
		return fmt.Errorf("failed to encode xref stream: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to encode xref stream: %w", err)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "%d 0 obj\n<< /Type /XRef /W [1 4 1] /Index [%s ] /Filter /FlateDecode /Length %d",
		id, index.String(), z.Len())
	b.WriteString(w.trailerEntries(w.nextID))
	b.WriteString(" >>\nstream\n")
	b.Write(z.Bytes())
	b.WriteString("\nendstream\nendobj\n")
	fmt.Fprintf(&b, "startxref\n%d\n%%%%EOF\n", start)

	if _, err := w.buf.Write(b.Bytes()); err != nil {
		return fmt.Errorf("failed to write xref stream: %w", err)
	}
	return nil
}

// trailerEntries returns the /Size, /Root, /Prev, /Info and /ID entries
// of the new trailer.
func (w *Writer) trailerEntries(size uint32) string {
	trailer := w.reader.Trailer()

	var b bytes.Buffer
	fmt.Fprintf(&b, " /Size %d", size)

	root := trailer.Key("Root").GetPtr()
	fmt.Fprintf(&b, " /Root %d %d R", root.GetID(), root.GetGen())
	b.WriteString(" /Prev " + strconv.FormatInt(w.reader.XrefInformation.StartPos, 10))

	if info := trailer.Key("Info"); !info.IsNull() {
		ptr := info.GetPtr()
		if ptr.GetID() != 0 {
			fmt.Fprintf(&b, " /Info %d %d R", ptr.GetID(), ptr.GetGen())
		}
	}

	if id := trailer.Key("ID"); id.Len() == 2 {
		fmt.Fprintf(&b, " /ID [<%s><%s>]",
			hex.EncodeToString([]byte(id.Index(0).RawString())),
			hex.EncodeToString([]byte(id.Index(1).RawString())))
	}
	return b.String()
}
