package pki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/kms/types"
)

// Sentinel errors for signing algorithm resolution
var (
	ErrUnsupportedKeySpec    = errors.New("unsupported key spec")
	ErrWrongKeyUsage         = errors.New("key usage is not SIGN_VERIFY")
	ErrIncompatibleKeyFamily = errors.New("key family is not RSA")
)

// KeyFamily is the broad family of a signing key.
type KeyFamily string

const (
	KeyFamilyRSA KeyFamily = "RSA"
	KeyFamilyECC KeyFamily = "ECC"
)

// SigningAlgorithm bundles everything needed to sign an X.509 certificate
// with a key of a given spec: the KMS signing algorithm, the certificate
// signature algorithm, and the digest both of them expect.
type SigningAlgorithm struct {
	KeySpec       types.KeySpec
	Family        KeyFamily
	KMSAlgorithm  types.SigningAlgorithmSpec
	X509Algorithm x509.SignatureAlgorithm
	Hash          crypto.Hash
}

// ResolveOptions holds caller-supplied compatibility constraints.
type ResolveOptions struct {
	// RequireRSA rejects non-RSA keys with ErrIncompatibleKeyFamily.
	RequireRSA bool
}

// signingAlgorithms is the single source of truth mapping key specs to
// signing algorithms. Key specs outside this table are unsupported.
var signingAlgorithms = map[types.KeySpec]SigningAlgorithm{
	types.KeySpecRsa2048: {
		KeySpec:       types.KeySpecRsa2048,
		Family:        KeyFamilyRSA,
		KMSAlgorithm:  types.SigningAlgorithmSpecRsassaPkcs1V15Sha256,
		X509Algorithm: x509.SHA256WithRSA,
		Hash:          crypto.SHA256,
	},
	types.KeySpecRsa3072: {
		KeySpec:       types.KeySpecRsa3072,
		Family:        KeyFamilyRSA,
		KMSAlgorithm:  types.SigningAlgorithmSpecRsassaPkcs1V15Sha256,
		X509Algorithm: x509.SHA256WithRSA,
		Hash:          crypto.SHA256,
	},
	types.KeySpecRsa4096: {
		KeySpec:       types.KeySpecRsa4096,
		Family:        KeyFamilyRSA,
		KMSAlgorithm:  types.SigningAlgorithmSpecRsassaPkcs1V15Sha256,
		X509Algorithm: x509.SHA256WithRSA,
		Hash:          crypto.SHA256,
	},
	types.KeySpecEccNistP256: {
		KeySpec:       types.KeySpecEccNistP256,
		Family:        KeyFamilyECC,
		KMSAlgorithm:  types.SigningAlgorithmSpecEcdsaSha256,
		X509Algorithm: x509.ECDSAWithSHA256,
		Hash:          crypto.SHA256,
	},
	types.KeySpecEccNistP384: {
		KeySpec:       types.KeySpecEccNistP384,
		Family:        KeyFamilyECC,
		KMSAlgorithm:  types.SigningAlgorithmSpecEcdsaSha384,
		X509Algorithm: x509.ECDSAWithSHA384,
		Hash:          crypto.SHA384,
	},
	types.KeySpecEccNistP521: {
		KeySpec:       types.KeySpecEccNistP521,
		Family:        KeyFamilyECC,
		KMSAlgorithm:  types.SigningAlgorithmSpecEcdsaSha512,
		X509Algorithm: x509.ECDSAWithSHA512,
		Hash:          crypto.SHA512,
	},
}

// ResolveSigningAlgorithm maps a KMS key spec and usage to a signing
// algorithm. Resolution is pure: no network calls, no side effects.
func ResolveSigningAlgorithm(keySpec types.KeySpec, keyUsage types.KeyUsageType, opts ResolveOptions) (SigningAlgorithm, error) {
	alg, ok := signingAlgorithms[keySpec]
	if !ok {
		return SigningAlgorithm{}, fmt.Errorf("%w: %s", ErrUnsupportedKeySpec, keySpec)
	}

	if keyUsage != types.KeyUsageTypeSignVerify {
		return SigningAlgorithm{}, fmt.Errorf("%w: got %s", ErrWrongKeyUsage, keyUsage)
	}

	if opts.RequireRSA && alg.Family != KeyFamilyRSA {
		return SigningAlgorithm{}, fmt.Errorf("%w: got %s", ErrIncompatibleKeyFamily, alg.Family)
	}

	return alg, nil
}

// AlgorithmForPublicKey derives the signing algorithm for a local key by
// mapping it onto the same table used for KMS keys (RSA by modulus size,
// ECDSA by curve).
func AlgorithmForPublicKey(pub crypto.PublicKey) (SigningAlgorithm, error) {
	switch key := pub.(type) {
	case *rsa.PublicKey:
		switch key.N.BitLen() {
		case 2048:
			return signingAlgorithms[types.KeySpecRsa2048], nil
		case 3072:
			return signingAlgorithms[types.KeySpecRsa3072], nil
		case 4096:
			return signingAlgorithms[types.KeySpecRsa4096], nil
		}
		return SigningAlgorithm{}, fmt.Errorf("%w: RSA-%d", ErrUnsupportedKeySpec, key.N.BitLen())
	case *ecdsa.PublicKey:
		switch key.Curve {
		case elliptic.P256():
			return signingAlgorithms[types.KeySpecEccNistP256], nil
		case elliptic.P384():
			return signingAlgorithms[types.KeySpecEccNistP384], nil
		case elliptic.P521():
			return signingAlgorithms[types.KeySpecEccNistP521], nil
		}
		return SigningAlgorithm{}, fmt.Errorf("%w: ECDSA curve %s", ErrUnsupportedKeySpec, key.Curve.Params().Name)
	default:
		return SigningAlgorithm{}, fmt.Errorf("%w: %T", ErrUnsupportedKeySpec, pub)
	}
}
