package issuer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hongkongkiwi/kmscert/internal/pki"
	"github.com/hongkongkiwi/kmscert/internal/sink"
)

// Request carries everything needed for one issuance run. Built once
// from parsed input and not mutated afterwards.
type Request struct {
	// Exactly one of KMSKeyID and KeyFile selects the signing key.
	KMSKeyID string
	KeyFile  string

	Region      string
	AWSEndpoint string
	RequireRSA  bool

	Certificate pki.CertificateRequest

	// Output is the destination string, parsed by sink.ParseTarget.
	Output string
}

// Issuer runs the issuance pipeline: resolve the signing key, build the
// self-signed certificate, deliver it to the output target. One
// invocation is fully sequential; nothing is retried internally.
type Issuer struct {
	sink         *sink.Sink
	newKMSClient func(ctx context.Context, region, endpoint string) (pki.KMSClient, error)
}

// New creates an Issuer delivering through the given sink.
func New(s *sink.Sink) *Issuer {
	return &Issuer{
		sink:         s,
		newKMSClient: newKMSClient,
	}
}

// newKMSClient builds a real KMS client, with an optional endpoint
// override for local stacks.
func newKMSClient(ctx context.Context, region, endpoint string) (pki.KMSClient, error) {
	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return kms.NewFromConfig(cfg), nil
}

// signer builds the signing handle for the request: a KMS-backed signer,
// or a local file signer for development.
func (i *Issuer) signer(ctx context.Context, req *Request) (pki.CertificateSigner, error) {
	if req.KeyFile != "" {
		return pki.NewFileSigner(req.KeyFile)
	}

	client, err := i.newKMSClient(ctx, req.Region, req.AWSEndpoint)
	if err != nil {
		return nil, err
	}

	return pki.NewKMSSigner(ctx, client, req.KMSKeyID, pki.ResolveOptions{RequireRSA: req.RequireRSA})
}

// Issue runs one issuance. The output target is parsed before any
// signing work so a bad destination never wastes a KMS call, and the
// certificate PEM is logged if delivery fails so the artifact is not
// lost.
func (i *Issuer) Issue(ctx context.Context, req *Request) error {
	runID := uuid.New().String()
	logger := log.With().Str("run_id", runID).Logger()

	target, err := sink.ParseTarget(req.Output)
	if err != nil {
		return err
	}

	signer, err := i.signer(ctx, req)
	if err != nil {
		return err
	}

	alg := signer.Algorithm()
	logger.Debug().
		Str("key_spec", string(alg.KeySpec)).
		Str("signing_algorithm", string(alg.KMSAlgorithm)).
		Msg("Resolved signing algorithm")

	der, err := pki.BuildCertificate(&req.Certificate, signer)
	if err != nil {
		return err
	}

	certPEM := pki.EncodeCertificatePEM(der)

	if err := i.sink.Write(ctx, target, certPEM); err != nil {
		// The signing work is already done; keep the artifact recoverable.
		logger.Error().
			Str("output", req.Output).
			Str("certificate", string(certPEM)).
			Msg("Failed to deliver certificate, artifact logged for recovery")
		return fmt.Errorf("failed to write certificate to %s: %w", req.Output, err)
	}

	logger.Info().
		Str("common_name", req.Certificate.CommonName).
		Str("output", req.Output).
		Int("validity_days", req.Certificate.ValidityDays).
		Msg("Certificate issued")

	return nil
}

// CheckKey runs key discovery and algorithm resolution only. It is the
// pre-flight check behind the check-key command.
func (i *Issuer) CheckKey(ctx context.Context, region, endpoint, kmsKeyID string, requireRSA bool) (pki.SigningAlgorithm, error) {
	client, err := i.newKMSClient(ctx, region, endpoint)
	if err != nil {
		return pki.SigningAlgorithm{}, err
	}

	signer, err := pki.NewKMSSigner(ctx, client, kmsKeyID, pki.ResolveOptions{RequireRSA: requireRSA})
	if err != nil {
		return pki.SigningAlgorithm{}, err
	}

	return signer.Algorithm(), nil
}
