package seal

import (
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"iter"

	pdflib "github.com/digitorus/pdf"
	"github.com/digitorus/pkcs7"
)

// Signature is a signed signature field of a document.
type Signature struct {
	Field     string
	Name      string
	Reason    string
	SubFilter string
	ByteRange []int64
	Contents  []byte
}

// Signatures iterates over the signature fields of r that carry a value,
// descending into field kids.
func Signatures(r *pdflib.Reader) iter.Seq[Signature] {
	return func(yield func(Signature) bool) {
		form := r.Trailer().Key("Root").Key("AcroForm")
		if form.Key("SigFlags").IsNull() {
			return
		}

		var walk func(pdflib.Value, string) bool
		walk = func(fields pdflib.Value, prefix string) bool {
			if fields.Kind() != pdflib.Array {
				return true
			}
			for i := 0; i < fields.Len(); i++ {
				field := fields.Index(i)
				name := field.Key("T").Text()
				if prefix != "" {
					name = prefix + "." + name
				}
				if field.Key("FT").Name() == "Sig" {
					v := field.Key("V")
					if t := v.Key("Type").Name(); t == "Sig" || t == "DocTimeStamp" || !v.Key("Contents").IsNull() {
						if !yield(newSignature(name, v)) {
							return false
						}
					}
				}
				if !walk(field.Key("Kids"), name) {
					return false
				}
			}
			return true
		}
		walk(form.Key("Fields"), "")
	}
}

func newSignature(field string, v pdflib.Value) Signature {
	s := Signature{
		Field:     field,
		Name:      v.Key("Name").Text(),
		Reason:    v.Key("Reason").Text(),
		SubFilter: v.Key("SubFilter").Name(),
		Contents:  []byte(v.Key("Contents").RawString()),
	}
	br := v.Key("ByteRange")
	for i := 0; i < br.Len(); i++ {
		s.ByteRange = append(s.ByteRange, br.Index(i).Int64())
	}
	return s
}

// Covers reports whether the signature spans a file of size bytes, i.e.
// no revision was appended after it.
func (s Signature) Covers(size int64) bool {
	n := len(s.ByteRange)
	return n >= 2 && n%2 == 0 && s.ByteRange[n-2]+s.ByteRange[n-1] == size
}

// Verify checks the signature over the bytes of file it covers and returns
// the signing certificate. With a nil roots pool only the integrity of the
// signed bytes is checked, not the certificate chain.
func (s Signature) Verify(file io.ReaderAt, roots *x509.CertPool) (*x509.Certificate, error) {
	if len(s.ByteRange) == 0 || len(s.ByteRange)%2 != 0 {
		return nil, errors.New("invalid or missing ByteRange")
	}
	p7, err := pkcs7.Parse(s.Contents)
	if err != nil {
		return nil, fmt.Errorf("parse signature: %w", err)
	}
	content, err := io.ReadAll(&byteRangeReader{file: file, ranges: s.ByteRange})
	if err != nil {
		return nil, fmt.Errorf("read signed bytes: %w", err)
	}
	p7.Content = content
	if err := p7.VerifyWithChain(roots); err != nil {
		return nil, err
	}
	return p7.GetOnlySigner(), nil
}

// byteRangeReader reads the (offset, length) ranges of file as one stream.
type byteRangeReader struct {
	file   io.ReaderAt
	ranges []int64
	idx    int
	off    int64
}

func (r *byteRangeReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) && r.idx < len(r.ranges) {
		start, length := r.ranges[r.idx], r.ranges[r.idx+1]
		remaining := length - r.off
		if remaining <= 0 {
			r.idx += 2
			r.off = 0
			continue
		}
		want := int64(len(p) - n)
		if want > remaining {
			want = remaining
		}
		read, err := r.file.ReadAt(p[n:n+int(want)], start+r.off)
		n += read
		r.off += int64(read)
		if err != nil {
			if err == io.EOF && r.off == length {
				continue
			}
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return n, err
		}
	}
	if n == 0 && r.idx >= len(r.ranges) {
		return 0, io.EOF
	}
	return n, nil
}
