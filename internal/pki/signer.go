package pki

import (
	"crypto"
)

// CertificateSigner is a signing handle usable by the certificate builder.
// Implementations include KMSSigner (remote key, production) and
// FileSigner (local key file, development).
type CertificateSigner interface {
	crypto.Signer

	// Algorithm returns the signing algorithm resolved for the key.
	Algorithm() SigningAlgorithm

	// PublicKeyPEM returns the signing key's public half as a PKIX PEM block.
	PublicKeyPEM() ([]byte, error)
}
