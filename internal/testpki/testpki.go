// Package testpki issues throwaway certificate hierarchies for seal tests.
package testpki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// KeyProfile defines the cryptographic settings for the PKI.
type KeyProfile string

const (
	RSA_2048   KeyProfile = "RSA_2048"
	ECDSA_P256 KeyProfile = "ECDSA_P256"
	ECDSA_P384 KeyProfile = "ECDSA_P384"
)

type TestPKIConfig struct {
	Profile         KeyProfile
	IntermediateCAs int
}

// TestPKI is a temporary root CA with optional intermediates.
type TestPKI struct {
	T                 *testing.T
	RootKey           crypto.Signer
	RootCert          *x509.Certificate
	IntermediateKeys  []crypto.Signer
	IntermediateCerts []*x509.Certificate
	Profile           KeyProfile
}

// NewTestPKI creates a P-256 root with one intermediate.
func NewTestPKI(t *testing.T) *TestPKI {
	return NewTestPKIWithConfig(t, TestPKIConfig{
		Profile:         ECDSA_P256,
		IntermediateCAs: 1,
	})
}

// NewTestPKIWithConfig allows detailed configuration of the PKI.
func NewTestPKIWithConfig(t *testing.T, config TestPKIConfig) *TestPKI {
	t.Helper()
	rootKey := GenerateKey(t, config.Profile)
	rootTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   "PDFStamp Test Root CA",
			Organization: []string{"PDFStamp Test Org"},
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		SubjectKeyId:          []byte{1, 2, 3, 4},
	}
	rootCert := create(t, rootTemplate, rootTemplate, rootKey.Public(), rootKey)

	p := &TestPKI{T: t, RootKey: rootKey, RootCert: rootCert, Profile: config.Profile}

	parentKey, parentCert := rootKey, rootCert
	for i := 0; i < config.IntermediateCAs; i++ {
		key := GenerateKey(t, config.Profile)
		cert := create(t, &x509.Certificate{
			SerialNumber: big.NewInt(int64(i + 2)),
			Subject: pkix.Name{
				CommonName:   fmt.Sprintf("PDFStamp Test Intermediate CA %d", i+1),
				Organization: []string{"PDFStamp Test Org"},
			},
			NotBefore:             time.Now().Add(-1 * time.Hour),
			NotAfter:              time.Now().Add(24 * time.Hour),
			KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
			BasicConstraintsValid: true,
			IsCA:                  true,
			MaxPathLenZero:        i == config.IntermediateCAs-1,
			SubjectKeyId:          []byte{5, 6, 7, 8, byte(i)},
			AuthorityKeyId:        parentCert.SubjectKeyId,
		}, parentCert, key.Public(), parentKey)

		p.IntermediateKeys = append(p.IntermediateKeys, key)
		p.IntermediateCerts = append(p.IntermediateCerts, cert)
		parentKey, parentCert = key, cert
	}
	return p
}

func create(t *testing.T, template, parent *x509.Certificate, pub crypto.PublicKey, priv crypto.Signer) *x509.Certificate {
	t.Helper()
	der, err := x509.CreateCertificate(rand.Reader, template, parent, pub, priv)
	if err != nil {
		t.Fatalf("failed to create certificate %s: %v", template.Subject.CommonName, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate %s: %v", template.Subject.CommonName, err)
	}
	return cert
}

// IssueLeaf issues a document signing certificate from the last CA.
func (p *TestPKI) IssueLeaf(commonName string) (crypto.Signer, *x509.Certificate) {
	p.T.Helper()
	priv := GenerateKey(p.T, p.Profile)

	issuerCert, issuerKey := p.RootCert, p.RootKey
	if n := len(p.IntermediateCerts); n > 0 {
		issuerCert, issuerKey = p.IntermediateCerts[n-1], p.IntermediateKeys[n-1]
	}

	serial, _ := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	cert := create(p.T, &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"PDFStamp Test Org"},
		},
		NotBefore:      time.Now().Add(-1 * time.Hour),
		NotAfter:       time.Now().Add(1 * time.Hour),
		KeyUsage:       x509.KeyUsageDigitalSignature,
		AuthorityKeyId: issuerCert.SubjectKeyId,
	}, issuerCert, priv.Public(), issuerKey)
	return priv, cert
}

// Chain returns the issuing chain of a leaf (intermediates, then root).
func (p *TestPKI) Chain() []*x509.Certificate {
	var chain []*x509.Certificate
	for i := len(p.IntermediateCerts) - 1; i >= 0; i-- {
		chain = append(chain, p.IntermediateCerts[i])
	}
	return append(chain, p.RootCert)
}

// Pool returns a pool holding the root certificate.
func (p *TestPKI) Pool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(p.RootCert)
	return pool
}

// WriteLeaf issues a leaf and writes it as PEM files into dir: cert.pem,
// key.pem (PKCS#8) and chain.pem.
func (p *TestPKI) WriteLeaf(dir, commonName string) (certPath, keyPath, chainPath string) {
	p.T.Helper()
	key, cert := p.IssueLeaf(commonName)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		p.T.Fatalf("failed to marshal key: %v", err)
	}

	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")
	chainPath = filepath.Join(dir, "chain.pem")

	var chain []byte
	for _, c := range p.Chain() {
		chain = append(chain, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})...)
	}
	for path, data := range map[string][]byte{
		certPath:  pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}),
		keyPath:   pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}),
		chainPath: chain,
	} {
		if err := os.WriteFile(path, data, 0o600); err != nil {
			p.T.Fatal(err)
		}
	}
	return certPath, keyPath, chainPath
}

func GenerateKey(t *testing.T, profile KeyProfile) crypto.Signer {
	t.Helper()
	var (
		k   crypto.Signer
		err error
	)
	switch profile {
	case RSA_2048:
		k, err = rsa.GenerateKey(rand.Reader, 2048)
	case ECDSA_P256:
		k, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case ECDSA_P384:
		k, err = ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	default:
		t.Fatalf("unknown key profile: %s", profile)
	}
	if err != nil {
		t.Fatalf("failed to generate %s key: %v", profile, err)
	}
	return k
}
