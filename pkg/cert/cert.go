// Package cert converts caller-supplied byte buffers into the
// credential objects a TLS session owns: a certificate chain with its
// signing key, or a pool of trusted CAs.
//
// Buffers may be PEM (one or more blocks) or raw DER. Credentials are
// loaded once at session construction and are immutable afterwards.
package cert

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// Credential parsing errors. Sessions surface these distinctly so
// callers can tell bad credentials from a broken protocol.
var (
	// ErrInvalidKey indicates the private key buffer could not be parsed.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidCert indicates the certificate buffer could not be parsed.
	ErrInvalidCert = errors.New("invalid cert")
)

// Credentials holds an endpoint's certificate chain and the signing
// key for its leaf. Immutable after construction.
type Credentials struct {
	// Chain is the certificate chain, leaf first.
	Chain []*x509.Certificate

	// Signer is the private key matching the leaf certificate.
	Signer crypto.Signer
}

// Leaf returns the endpoint certificate, or nil for empty credentials.
func (c *Credentials) Leaf() *x509.Certificate {
	if c == nil || len(c.Chain) == 0 {
		return nil
	}
	return c.Chain[0]
}

// New parses a key buffer and a certificate buffer into owned
// credentials. A key that fails to parse yields ErrInvalidKey; a
// certificate that fails to parse yields ErrInvalidCert.
func New(key, certificate []byte) (*Credentials, error) {
	signer, err := ParseKey(key)
	if err != nil {
		return nil, err
	}
	chain, err := ParseCertificates(certificate)
	if err != nil {
		return nil, err
	}
	return &Credentials{Chain: chain, Signer: signer}, nil
}

// ParseKey parses a PEM- or DER-encoded private key. EC, PKCS#1 and
// PKCS#8 keys are accepted.
func ParseKey(data []byte) (crypto.Signer, error) {
	if len(data) == 0 {
		return nil, ErrInvalidKey
	}
	der := data
	if block, _ := pem.Decode(data); block != nil {
		der = block.Bytes
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		return k, nil
	case *rsa.PrivateKey:
		return k, nil
	case ed25519.PrivateKey:
		return k, nil
	default:
		return nil, fmt.Errorf("%w: unsupported key type %T", ErrInvalidKey, key)
	}
}

// ParseCertificates parses a PEM bundle or a single DER certificate
// into a chain, preserving order.
func ParseCertificates(data []byte) ([]*x509.Certificate, error) {
	if len(data) == 0 {
		return nil, ErrInvalidCert
	}
	var chain []*x509.Certificate
	rest := data
	for {
		block, remaining := pem.Decode(rest)
		if block == nil {
			break
		}
		rest = remaining
		if block.Type != "CERTIFICATE" {
			continue
		}
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCert, err)
		}
		chain = append(chain, c)
	}
	if len(chain) > 0 {
		return chain, nil
	}
	// Not PEM; try raw DER.
	c, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCert, err)
	}
	return []*x509.Certificate{c}, nil
}

// NewCAPool parses a trusted-CA buffer into a verification pool.
func NewCAPool(data []byte) (*x509.CertPool, error) {
	chain, err := ParseCertificates(data)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	for _, c := range chain {
		pool.AddCert(c)
	}
	return pool, nil
}

// EncodeCertPEM encodes an X.509 certificate to PEM format.
func EncodeCertPEM(c *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: c.Raw,
	})
}

// EncodeKeyPEM encodes an ECDSA private key to PEM format.
func EncodeKeyPEM(key *ecdsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: der,
	}), nil
}
