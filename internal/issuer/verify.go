package issuer

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	"github.com/hongkongkiwi/kmscert/internal/pki"
)

// VerifyAgainstKMS compares a certificate's embedded public key against
// the current public key of a KMS key. Both sides are canonicalized
// through the same PKIX PEM encoder before the byte comparison.
func (i *Issuer) VerifyAgainstKMS(ctx context.Context, region, endpoint, kmsKeyID string, certPEM []byte) (bool, error) {
	client, err := i.newKMSClient(ctx, region, endpoint)
	if err != nil {
		return false, err
	}

	pubKeyOutput, err := client.GetPublicKey(ctx, &kms.GetPublicKeyInput{
		KeyId: aws.String(kmsKeyID),
	})
	if err != nil {
		return false, fmt.Errorf("failed to get public key from KMS: %w", err)
	}

	kmsPublicKey, err := x509.ParsePKIXPublicKey(pubKeyOutput.PublicKey)
	if err != nil {
		return false, fmt.Errorf("failed to parse KMS public key: %w", err)
	}

	kmsKeyPEM, err := pki.EncodePublicKeyPEM(kmsPublicKey)
	if err != nil {
		return false, err
	}

	certKeyPEM, err := pki.CertificatePublicKeyPEM(certPEM)
	if err != nil {
		return false, err
	}

	return pki.PublicKeysEqual(certKeyPEM, kmsKeyPEM)
}

// VerifyAgainstPublicKey compares a certificate's embedded public key
// against a PEM-encoded reference public key, re-encoding the reference
// through the canonical encoder first.
func VerifyAgainstPublicKey(certPEM, referencePEM []byte) (bool, error) {
	block, _ := pem.Decode(referencePEM)
	if block == nil {
		return false, fmt.Errorf("failed to decode reference public key PEM")
	}

	referenceKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return false, fmt.Errorf("failed to parse reference public key: %w", err)
	}

	canonicalPEM, err := pki.EncodePublicKeyPEM(referenceKey)
	if err != nil {
		return false, err
	}

	certKeyPEM, err := pki.CertificatePublicKeyPEM(certPEM)
	if err != nil {
		return false, err
	}

	return pki.PublicKeysEqual(certKeyPEM, canonicalPEM)
}
