package pki

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"io"
	"math/big"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
)

// KMSClient is the subset of the KMS API used by the signer.
type KMSClient interface {
	DescribeKey(ctx context.Context, params *kms.DescribeKeyInput, optFns ...func(*kms.Options)) (*kms.DescribeKeyOutput, error)
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
}

// KMSSigner exposes a KMS signing key as a crypto.Signer. The private key
// never leaves KMS: x509.CreateCertificate assembles and digests the
// certificate locally and only the final digest crosses the wire.
type KMSSigner struct {
	client    KMSClient
	keyID     string
	publicKey crypto.PublicKey
	algorithm SigningAlgorithm
	ctx       context.Context
}

// NewKMSSigner discovers the key's spec and usage, resolves the signing
// algorithm, and fetches the public key. The kmsKeyID can be a key ID,
// key ARN, alias name, or alias ARN. KMS calls are made once each and
// failures are never retried here.
func NewKMSSigner(ctx context.Context, client KMSClient, kmsKeyID string, opts ResolveOptions) (*KMSSigner, error) {
	describeOutput, err := client.DescribeKey(ctx, &kms.DescribeKeyInput{
		KeyId: aws.String(kmsKeyID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe KMS key %s: %w", kmsKeyID, err)
	}

	meta := describeOutput.KeyMetadata
	alg, err := ResolveSigningAlgorithm(meta.KeySpec, meta.KeyUsage, opts)
	if err != nil {
		return nil, err
	}

	pubKeyOutput, err := client.GetPublicKey(ctx, &kms.GetPublicKeyInput{
		KeyId: aws.String(kmsKeyID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get public key from KMS: %w", err)
	}

	publicKey, err := x509.ParsePKIXPublicKey(pubKeyOutput.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse KMS public key: %w", err)
	}

	// The reported key spec and the fetched key material must agree.
	switch publicKey.(type) {
	case *rsa.PublicKey:
		if alg.Family != KeyFamilyRSA {
			return nil, fmt.Errorf("KMS key spec %s does not match RSA public key", meta.KeySpec)
		}
	case *ecdsa.PublicKey:
		if alg.Family != KeyFamilyECC {
			return nil, fmt.Errorf("KMS key spec %s does not match ECDSA public key", meta.KeySpec)
		}
	default:
		return nil, fmt.Errorf("KMS key is neither RSA nor ECDSA (got %T)", publicKey)
	}

	return &KMSSigner{
		client:    client,
		keyID:     kmsKeyID,
		publicKey: publicKey,
		algorithm: alg,
		ctx:       ctx,
	}, nil
}

// Public returns the public key fetched from KMS.
func (s *KMSSigner) Public() crypto.PublicKey {
	return s.publicKey
}

// Algorithm returns the signing algorithm resolved for the key.
func (s *KMSSigner) Algorithm() SigningAlgorithm {
	return s.algorithm
}

// PublicKeyPEM returns the KMS public key as a PKIX PEM block.
func (s *KMSSigner) PublicKeyPEM() ([]byte, error) {
	return EncodePublicKeyPEM(s.publicKey)
}

// Sign forwards a precomputed digest to KMS using the resolved signing
// algorithm. The digest hash must match the one the algorithm expects.
func (s *KMSSigner) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	if opts.HashFunc() != s.algorithm.Hash {
		return nil, fmt.Errorf("KMS signer for %s expects %v digest, got %v", s.algorithm.KeySpec, s.algorithm.Hash, opts.HashFunc())
	}

	signOutput, err := s.client.Sign(s.ctx, &kms.SignInput{
		KeyId:            aws.String(s.keyID),
		Message:          digest,
		MessageType:      types.MessageTypeDigest,
		SigningAlgorithm: s.algorithm.KMSAlgorithm,
	})
	if err != nil {
		return nil, fmt.Errorf("KMS sign operation failed: %w", err)
	}

	if s.algorithm.Family == KeyFamilyRSA {
		// RSA PKCS#1 v1.5 signatures come back in the form x509 expects.
		return signOutput.Signature, nil
	}

	// ECDSA signatures are a DER SEQUENCE of two INTEGERs (r, s).
	// Round-trip the encoding to validate it before handing it to x509.
	var ecdsaSig struct {
		R, S *big.Int
	}
	if _, err := asn1.Unmarshal(signOutput.Signature, &ecdsaSig); err != nil {
		return nil, fmt.Errorf("failed to parse KMS signature: %w", err)
	}

	signature, err := asn1.Marshal(ecdsaSig)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signature: %w", err)
	}

	return signature, nil
}
