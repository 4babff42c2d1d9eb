// Package seal applies an invisible approval signature to an exported PDF.
//
// The seal is written as an incremental update: a signature dictionary, a
// hidden signature field on the first page and an updated AcroForm. The
// detached PKCS#7 signature covers the whole file except the /Contents
// value, as described by /ByteRange.
package seal

import (
	"bytes"
	"context"
	"crypto"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	pdflib "github.com/digitorus/pdf"

	"github.com/digitorus/pdfstamp/internal/incremental"
	"github.com/digitorus/pdfstamp/internal/pdf"
)

var (
	ErrNoCertificate = errors.New("seal: no signing certificate")
	ErrNoKey         = errors.New("seal: no private key")
	ErrDigest        = errors.New("seal: unsupported digest algorithm")
)

const byteRangePlaceholder = "/ByteRange[0 ********** ********** **********]"

// FieldName is the name of the signature field added to the AcroForm.
const FieldName = "Approval"

// TSA configures an RFC 3161 timestamp authority.
type TSA struct {
	URL      string
	Username string
	Password string
}

// Signer holds the identity and options of an approval seal.
type Signer struct {
	Certificate *x509.Certificate
	Key         crypto.Signer
	// Chain holds the issuers of Certificate, without Certificate itself.
	Chain []*x509.Certificate
	// Digest defaults to SHA-256.
	Digest crypto.Hash

	Name        string
	Reason      string
	Location    string
	ContactInfo string

	TSA TSA
	// Revocation embeds OCSP responses and CRLs; nil disables it.
	Revocation *Revocation

	Client *http.Client
	Now    func() time.Time
}

func (s *Signer) validate() error {
	if s.Certificate == nil {
		return ErrNoCertificate
	}
	if s.Key == nil {
		return ErrNoKey
	}
	if _, ok := hashOIDs[s.digest()]; !ok {
		return fmt.Errorf("%w: %v", ErrDigest, s.Digest)
	}
	return nil
}

func (s *Signer) digest() crypto.Hash {
	if s.Digest == 0 {
		return crypto.SHA256
	}
	return s.Digest
}

func (s *Signer) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

func (s *Signer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// placeholderSize estimates the number of hex digits reserved for the
// signature.
func (s *Signer) placeholderSize(info *revocationInfo) int {
	n := len(s.Certificate.Raw) + 2048 + info.size()/2
	for _, c := range s.Chain {
		n += len(c.Raw)
	}
	if s.TSA.URL != "" {
		n += 9000
	}
	return n * 2
}

// Seal returns data with an approval signature appended.
func (s *Signer) Seal(ctx context.Context, data []byte) ([]byte, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	r, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("seal: parse document: %w", err)
	}

	info, err := s.revocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}

	size := s.placeholderSize(info)
	for attempt := 0; attempt < 3; attempt++ {
		out, err := s.prepare(data, r, size)
		if err != nil {
			return nil, fmt.Errorf("seal: %w", err)
		}

		contents, content, err := fillByteRange(out, size)
		if err != nil {
			return nil, fmt.Errorf("seal: %w", err)
		}
		sig, err := s.sign(ctx, content, info)
		if err != nil {
			return nil, fmt.Errorf("seal: %w", err)
		}

		encoded := hex.EncodeToString(sig)
		if len(encoded) > size {
			size = len(encoded) + 1024
			continue
		}
		copy(out[contents:], encoded)
		return out, nil
	}
	return nil, errors.New("seal: signature does not fit its placeholder")
}

// prepare writes the signature update with placeholders for /ByteRange
// and /Contents.
func (s *Signer) prepare(data []byte, r *pdflib.Reader, size int) ([]byte, error) {
	w, err := incremental.New(data, r)
	if err != nil {
		return nil, err
	}

	sigID, err := w.AddObject(s.signatureDict(size))
	if err != nil {
		return nil, fmt.Errorf("write signature: %w", err)
	}

	page, err := pdf.Page(r, 1)
	if err != nil {
		return nil, err
	}
	widget := fmt.Sprintf("<< /Type /Annot /Subtype /Widget /FT /Sig /Rect [0 0 0 0] /F 132 /T %s /V %s /P %s >>",
		pdf.String(FieldName), pdf.Ref(sigID, 0), pdf.Ref(page.ID, page.Gen))
	widgetID, err := w.AddObject([]byte(widget))
	if err != nil {
		return nil, fmt.Errorf("write widget: %w", err)
	}
	ref := pdf.Ref(widgetID, 0)

	var pb bytes.Buffer
	pdf.WriteDict(&pb, page.Value,
		func(key string) bool { return key == "Annots" },
		pdf.Entry{Key: "Annots", Value: appendRef(page.Value.Key("Annots"), page.Value, ref)},
	)
	if err := w.UpdateObject(page.ID, pb.Bytes()); err != nil {
		return nil, fmt.Errorf("update page: %w", err)
	}

	root := r.Trailer().Key("Root")
	if root.Kind() != pdflib.Dict {
		return nil, errors.New("document has no catalog")
	}
	form := root.Key("AcroForm")
	var fb bytes.Buffer
	pdf.WriteDict(&fb, form,
		func(key string) bool { return key == "Fields" || key == "SigFlags" || key == "NeedAppearances" },
		pdf.Entry{Key: "Fields", Value: appendRef(form.Key("Fields"), form, ref)},
		pdf.Entry{Key: "SigFlags", Value: "3"},
	)
	var cb bytes.Buffer
	pdf.WriteDict(&cb, root,
		func(key string) bool { return key == "AcroForm" },
		pdf.Entry{Key: "AcroForm", Value: fb.String()},
	)
	if err := w.UpdateObject(uint32(root.GetPtr().GetID()), cb.Bytes()); err != nil {
		return nil, fmt.Errorf("update catalog: %w", err)
	}

	return w.Finish()
}

func (s *Signer) signatureDict(size int) []byte {
	var b bytes.Buffer
	b.WriteString("<< /Type /Sig /Filter /Adobe.PPKLite /SubFilter /adbe.pkcs7.detached ")
	b.WriteString(byteRangePlaceholder)
	b.WriteString(" /Contents<")
	b.WriteString(strings.Repeat("0", size))
	b.WriteString(">")
	for _, e := range []pdf.Entry{
		{Key: "Name", Value: s.Name},
		{Key: "Reason", Value: s.Reason},
		{Key: "Location", Value: s.Location},
		{Key: "ContactInfo", Value: s.ContactInfo},
	} {
		if e.Value != "" {
			b.WriteString(" /" + e.Key + " " + pdf.String(e.Value))
		}
	}
	b.WriteString(" /M " + pdf.Date(s.now()))
	b.WriteString(" >>")
	return b.Bytes()
}

// appendRef writes the array v (possibly absent) with ref appended.
func appendRef(v, container pdflib.Value, ref string) string {
	var b bytes.Buffer
	b.WriteString("[")
	if v.Kind() == pdflib.Array {
		for i := 0; i < v.Len(); i++ {
			pdf.Serialize(&b, v.Index(i), v)
			b.WriteString(" ")
		}
	}
	b.WriteString(ref + "]")
	return b.String()
}

// fillByteRange replaces the last /ByteRange placeholder in out and
// returns the offset of the first hex digit of /Contents together with the
// bytes the signature covers.
func fillByteRange(out []byte, size int) (int, []byte, error) {
	start := bytes.LastIndex(out, []byte(byteRangePlaceholder))
	if start < 0 {
		return 0, nil, errors.New("byte range placeholder not found")
	}
	i := bytes.Index(out[start:], []byte("/Contents<"))
	if i < 0 {
		return 0, nil, errors.New("contents placeholder not found")
	}
	lt := start + i + len("/Contents")
	gt := lt + size + 1
	if gt >= len(out) || out[gt] != '>' {
		return 0, nil, errors.New("contents placeholder is malformed")
	}

	br := fmt.Sprintf("/ByteRange[%d %d %d %d]", 0, lt, gt+1, len(out)-gt-1)
	if len(br) > len(byteRangePlaceholder) {
		return 0, nil, errors.New("document too large for byte range")
	}
	copy(out[start:], br+strings.Repeat(" ", len(byteRangePlaceholder)-len(br)))

	content := make([]byte, 0, len(out)-size-2)
	content = append(content, out[:lt]...)
	content = append(content, out[gt+1:]...)
	return lt + 1, content, nil
}
