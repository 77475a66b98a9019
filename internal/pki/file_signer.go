package pki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"os"
)

// FileSigner signs with a private key loaded from a PEM file. This is
// intended for local development only - not for production use.
type FileSigner struct {
	key       crypto.Signer
	algorithm SigningAlgorithm
}

// NewFileSigner loads an RSA or EC private key from a PEM file and
// derives the signing algorithm from the key's public half.
func NewFileSigner(keyPath string) (*FileSigner, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode key PEM from %s", keyPath)
	}

	key, err := parsePrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	alg, err := AlgorithmForPublicKey(key.Public())
	if err != nil {
		return nil, err
	}

	return &FileSigner{key: key, algorithm: alg}, nil
}

// parsePrivateKey tries the three PEM private key encodings in turn:
// PKCS#8, PKCS#1 (RSA) and SEC1 (EC).
func parsePrivateKey(der []byte) (crypto.Signer, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		switch k := key.(type) {
		case *rsa.PrivateKey:
			return k, nil
		case *ecdsa.PrivateKey:
			return k, nil
		default:
			return nil, fmt.Errorf("unsupported private key type %T", key)
		}
	}

	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}

	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}

	return nil, fmt.Errorf("key is not PKCS#8, PKCS#1 or SEC1 encoded")
}

// Public returns the public key.
func (s *FileSigner) Public() crypto.PublicKey {
	return s.key.Public()
}

// Algorithm returns the signing algorithm derived from the key.
func (s *FileSigner) Algorithm() SigningAlgorithm {
	return s.algorithm
}

// PublicKeyPEM returns the key's public half as a PKIX PEM block.
func (s *FileSigner) PublicKeyPEM() ([]byte, error) {
	return EncodePublicKeyPEM(s.key.Public())
}

// Sign signs the digest with the local key.
func (s *FileSigner) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	if opts.HashFunc() != s.algorithm.Hash {
		return nil, fmt.Errorf("file signer for %s expects %v digest, got %v", s.algorithm.KeySpec, s.algorithm.Hash, opts.HashFunc())
	}

	return s.key.Sign(rand, digest, opts)
}
