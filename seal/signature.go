package seal

import (
	"bytes"
	"context"
	"crypto"
	"encoding/asn1"
	"fmt"
	"io"
	"net/http"

	"github.com/digitorus/pkcs7"
	"github.com/digitorus/timestamp"
	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var hashOIDs = map[crypto.Hash]asn1.ObjectIdentifier{
	crypto.SHA1:   asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26},
	crypto.SHA256: asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1},
	crypto.SHA384: asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2},
	crypto.SHA512: asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3},
}

var (
	oidSigningCertificate   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 12}
	oidSigningCertificateV2 = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 47}
	oidTimeStampToken       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 14}
)

// sign creates the detached PKCS#7 signature of content.
func (s *Signer) sign(ctx context.Context, content []byte, revocation *revocationInfo) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(content)
	if err != nil {
		return nil, fmt.Errorf("new signed data: %w", err)
	}
	sd.SetDigestAlgorithm(hashOIDs[s.digest()])

	attr, err := s.signingCertificate()
	if err != nil {
		return nil, fmt.Errorf("signing certificate attribute: %w", err)
	}
	attrs := []pkcs7.Attribute{attr}
	if !revocation.empty() {
		attrs = append(attrs, pkcs7.Attribute{Type: oidRevocationInfoArchival, Value: *revocation})
	}
	if err := sd.AddSignerChain(s.Certificate, s.Key, s.Chain, pkcs7.SignerInfoConfig{
		ExtraSignedAttributes: attrs,
	}); err != nil {
		return nil, fmt.Errorf("add signer chain: %w", err)
	}
	sd.Detach()

	if s.TSA.URL != "" {
		info := &sd.GetSignedData().SignerInfos[0]
		token, err := s.timestamp(ctx, info.EncryptedDigest)
		if err != nil {
			return nil, fmt.Errorf("get timestamp: %w", err)
		}
		if err := info.SetUnauthenticatedAttributes([]pkcs7.Attribute{{
			Type:  oidTimeStampToken,
			Value: asn1.RawValue{FullBytes: token},
		}}); err != nil {
			return nil, err
		}
	}
	return sd.Finish()
}

// signingCertificate builds the ESS signing-certificate attribute binding
// the signer certificate to the signature.
func (s *Signer) signingCertificate() (pkcs7.Attribute, error) {
	digest := s.digest()
	h := digest.New()
	h.Write(s.Certificate.Raw)

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // SigningCertificate
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // certs
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // ESSCertID(v2)
				if digest != crypto.SHA1 && digest != crypto.SHA256 {
					b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
						b.AddASN1ObjectIdentifier(hashOIDs[digest])
					})
				}
				b.AddASN1OctetString(h.Sum(nil))
			})
		})
	})
	der, err := b.Bytes()
	if err != nil {
		return pkcs7.Attribute{}, err
	}

	attr := pkcs7.Attribute{Type: oidSigningCertificateV2, Value: asn1.RawValue{FullBytes: der}}
	if digest == crypto.SHA1 {
		attr.Type = oidSigningCertificate
	}
	return attr, nil
}

// timestamp requests an RFC 3161 token over the signature value.
func (s *Signer) timestamp(ctx context.Context, signature []byte) ([]byte, error) {
	query, err := timestamp.CreateRequest(bytes.NewReader(signature), &timestamp.RequestOptions{
		Certificates: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TSA.URL, bytes.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("prepare request (%s): %w", s.TSA.URL, err)
	}
	req.Header.Add("Content-Type", "application/timestamp-query")
	req.Header.Add("Content-Transfer-Encoding", "binary")
	if s.TSA.Username != "" && s.TSA.Password != "" {
		req.SetBasicAuth(s.TSA.Username, s.TSA.Password)
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("non success response (%d): %s", resp.StatusCode, body)
	}

	ts, err := timestamp.ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	if _, err := pkcs7.Parse(ts.RawToken); err != nil {
		return nil, fmt.Errorf("parse timestamp token: %w", err)
	}
	return ts.RawToken, nil
}
