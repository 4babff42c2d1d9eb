package cli

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// LoadCertificatesAndKey reads a PEM or DER certificate, a PEM private key
// (PKCS#8, PKCS#1 or SEC 1) and, when chainPath is set, the PEM issuer
// chain.
func LoadCertificatesAndKey(certPath, keyPath, chainPath string) (*x509.Certificate, crypto.Signer, []*x509.Certificate, error) {
	certData, err := os.ReadFile(certPath)
	if err != nil {
		return nil, nil, nil, err
	}
	var cert *x509.Certificate
	if certBlock, _ := pem.Decode(certData); certBlock != nil {
		cert, err = x509.ParseCertificate(certBlock.Bytes)
	} else if len(certData) > 0 {
		// Try DER
		cert, err = x509.ParseCertificate(certData)
	} else {
		err = errors.New("certificate data is empty")
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("certificate %s: %w", certPath, err)
	}

	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, nil, nil, err
	}
	keyBlock, _ := pem.Decode(keyData)
	if keyBlock == nil {
		return nil, nil, nil, errors.New("failed to parse PEM block containing the private key")
	}
	key, err := parseKey(keyBlock.Bytes)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("private key %s: %w", keyPath, err)
	}

	var chain []*x509.Certificate
	if chainPath != "" {
		if chain, err = LoadCertificateChain(chainPath); err != nil {
			return nil, nil, nil, err
		}
	}
	return cert, key, chain, nil
}

func parseKey(der []byte) (crypto.Signer, error) {
	if k, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		if s, ok := k.(crypto.Signer); ok {
			return s, nil
		}
		return nil, fmt.Errorf("unsupported key type %T", k)
	}
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}
	if k, err := x509.ParseECPrivateKey(der); err == nil {
		return k, nil
	}
	return nil, errors.New("unsupported private key format")
}

// LoadCertificateChain reads every certificate of a PEM file.
func LoadCertificateChain(chainPath string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(chainPath)
	if err != nil {
		return nil, err
	}
	var chain []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("chain %s: %w", chainPath, err)
		}
		chain = append(chain, c)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("chain %s: no certificates found", chainPath)
	}
	return chain, nil
}
