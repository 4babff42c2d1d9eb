package seal

import (
	"context"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/ocsp"
)

var oidRevocationInfoArchival = asn1.ObjectIdentifier{1, 2, 840, 113583, 1, 1, 8}

// revocationInfo is the adbe-revocationInfoArchival attribute value.
type revocationInfo struct {
	CRL  []asn1.RawValue `asn1:"tag:0,optional,explicit"`
	OCSP []asn1.RawValue `asn1:"tag:1,optional,explicit"`
}

func (r *revocationInfo) empty() bool { return len(r.CRL) == 0 && len(r.OCSP) == 0 }

// size is the number of hex digits the embedded responses add to the
// signature.
func (r *revocationInfo) size() int {
	n := 0
	for _, v := range r.CRL {
		n += len(v.FullBytes)
	}
	for _, v := range r.OCSP {
		n += len(v.FullBytes)
	}
	return n * 2
}

// RevocationCache stores downloaded OCSP responses and CRLs by URL.
type RevocationCache interface {
	Get(key string) ([]byte, bool)
	Put(key string, data []byte)
}

// MemoryCache is a RevocationCache kept in memory.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string][]byte)}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.items[key]
	return data, ok
}

func (c *MemoryCache) Put(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = data
}

// Revocation configures embedding the revocation status of the signing
// chain into the signature, so that it can be validated later without
// network access.
type Revocation struct {
	OCSP bool
	CRL  bool
	// PreferCRL tries the CRL before OCSP.
	PreferCRL bool
	// StopOnSuccess embeds at most one status per certificate.
	StopOnSuccess bool
	Cache         RevocationCache
}

// revocation collects the status of the certificate and every issuer that
// advertises an OCSP responder or CRL distribution point.
func (s *Signer) revocation(ctx context.Context) (*revocationInfo, error) {
	info := &revocationInfo{}
	if s.Revocation == nil {
		return info, nil
	}
	certs := append([]*x509.Certificate{s.Certificate}, s.Chain...)
	for i, cert := range certs {
		var issuer *x509.Certificate
		if i+1 < len(certs) {
			issuer = certs[i+1]
		}
		if err := s.embedStatus(ctx, cert, issuer, info); err != nil {
			return nil, fmt.Errorf("revocation status of %s: %w", cert.Subject.CommonName, err)
		}
	}
	return info, nil
}

func (s *Signer) embedStatus(ctx context.Context, cert, issuer *x509.Certificate, info *revocationInfo) error {
	opts := s.Revocation
	// Both need the issuer to check the response signature.
	tryOCSP := func() (bool, error) {
		if !opts.OCSP || issuer == nil || len(cert.OCSPServer) == 0 {
			return false, nil
		}
		return true, s.embedOCSP(ctx, cert, issuer, info)
	}
	tryCRL := func() (bool, error) {
		if !opts.CRL || issuer == nil || len(cert.CRLDistributionPoints) == 0 {
			return false, nil
		}
		return true, s.embedCRL(ctx, cert, issuer, info)
	}

	first, second := tryOCSP, tryCRL
	if opts.PreferCRL {
		first, second = tryCRL, tryOCSP
	}

	tried, err := first()
	embedded := tried && err == nil
	if embedded && opts.StopOnSuccess {
		return nil
	}
	tried2, err2 := second()
	switch {
	case embedded || (tried2 && err2 == nil):
		return nil
	case err != nil && err2 != nil:
		return fmt.Errorf("primary=%v, secondary=%v", err, err2)
	case err != nil:
		return err
	}
	return err2
}

func (s *Signer) embedOCSP(ctx context.Context, cert, issuer *x509.Certificate, info *revocationInfo) error {
	req, err := ocsp.CreateRequest(cert, issuer, nil)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/%s", strings.TrimRight(cert.OCSPServer[0], "/"), base64.StdEncoding.EncodeToString(req))

	body, err := s.fetch(ctx, url)
	if err != nil {
		return err
	}
	resp, err := ocsp.ParseResponseForCert(body, cert, issuer)
	if err != nil {
		return err
	}
	if resp.Status != ocsp.Good {
		return fmt.Errorf("OCSP status is not 'Good': %v", resp.Status)
	}
	s.cachePut(url, body)
	info.OCSP = append(info.OCSP, asn1.RawValue{FullBytes: body})
	return nil
}

func (s *Signer) embedCRL(ctx context.Context, cert, issuer *x509.Certificate, info *revocationInfo) error {
	url := cert.CRLDistributionPoints[0]
	body, err := s.fetch(ctx, url)
	if err != nil {
		return err
	}
	crl, err := x509.ParseRevocationList(body)
	if err != nil {
		return fmt.Errorf("failed to parse CRL: %w", err)
	}
	if err := crl.CheckSignatureFrom(issuer); err != nil {
		return fmt.Errorf("CRL signature invalid: %w", err)
	}
	for _, revoked := range crl.RevokedCertificateEntries {
		if revoked.SerialNumber.Cmp(cert.SerialNumber) == 0 {
			return fmt.Errorf("certificate is revoked in CRL")
		}
	}
	s.cachePut(url, body)
	info.CRL = append(info.CRL, asn1.RawValue{FullBytes: body})
	return nil
}

// fetch returns the cached body of url or downloads it.
func (s *Signer) fetch(ctx context.Context, url string) ([]byte, error) {
	if c := s.Revocation.Cache; c != nil {
		if data, ok := c.Get(url); ok {
			return data, nil
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non success response (%d) from %s", resp.StatusCode, url)
	}
	return body, nil
}

func (s *Signer) cachePut(url string, data []byte) {
	if c := s.Revocation.Cache; c != nil {
		c.Put(url, data)
	}
}
