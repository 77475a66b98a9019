package pki

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedPublicKey is returned when a compared key is not an RSA
// or EC public key.
var ErrUnsupportedPublicKey = errors.New("unsupported public key type")

// NormalizePEM canonicalizes PEM text for comparison: CRLF and bare CR
// become LF, trailing whitespace is stripped, and exactly one trailing
// newline remains.
func NormalizePEM(data []byte) []byte {
	s := strings.ReplaceAll(string(data), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimRight(s, " \t\n") + "\n"
	return []byte(s)
}

// PublicKeysEqual reports whether two PEM-encoded public keys are
// byte-identical after normalization. The comparison is on normalized
// text, not on decoded ASN.1: the same key under a different PEM
// wrapping will not match, so callers canonicalize both sides through
// EncodePublicKeyPEM first.
func PublicKeysEqual(pemA, pemB []byte) (bool, error) {
	if err := checkSupportedPublicKey(pemA); err != nil {
		return false, err
	}
	if err := checkSupportedPublicKey(pemB); err != nil {
		return false, err
	}

	return bytes.Equal(NormalizePEM(pemA), NormalizePEM(pemB)), nil
}

// checkSupportedPublicKey gates comparison inputs to RSA and EC keys.
func checkSupportedPublicKey(pemBytes []byte) error {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return fmt.Errorf("failed to decode public key PEM")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("failed to parse public key: %w", err)
	}

	switch pub.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey:
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedPublicKey, pub)
	}
}
