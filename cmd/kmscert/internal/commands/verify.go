package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/hongkongkiwi/kmscert/internal/issuer"
	"github.com/hongkongkiwi/kmscert/internal/pki"
	"github.com/hongkongkiwi/kmscert/internal/sink"
)

// Exit codes for the verify command. A key mismatch is a warning, not a
// hard failure, so scripts can branch on it separately.
const (
	exitInvalidInput = 2
	exitKeyMismatch  = 3
)

type VerifyCmd struct {
	Certificate string `help:"Certificate PEM file to verify" required:""`
	KMSKeyID    string `help:"KMS key ID, ARN, or alias to verify against" short:"k"`
	PublicKey   string `help:"Reference public key PEM file to verify against"`
	Region      string `help:"AWS region" env:"AWS_REGION"`
	AWSEndpoint string `help:"AWS endpoint (for LocalStack)" env:"AWS_ENDPOINT" default:""`
}

func (cmd *VerifyCmd) Run(ctx context.Context, globals *Globals) error {
	if cmd.KMSKeyID == "" && cmd.PublicKey == "" {
		return fmt.Errorf("a reference key is required (use --kms-key-id or --public-key)")
	}
	if cmd.KMSKeyID != "" && cmd.PublicKey != "" {
		return fmt.Errorf("--kms-key-id and --public-key are mutually exclusive")
	}

	certPEM, err := os.ReadFile(cmd.Certificate)
	if err != nil {
		return &ExitError{Code: exitInvalidInput, Message: fmt.Sprintf("failed to read certificate file %s: %v", cmd.Certificate, err)}
	}

	if _, err := pki.ParseCertificatePEM(certPEM); err != nil {
		return &ExitError{Code: exitInvalidInput, Message: fmt.Sprintf("failed to parse certificate file %s: %v", cmd.Certificate, err)}
	}

	var match bool

	if cmd.PublicKey != "" {
		referencePEM, err := os.ReadFile(cmd.PublicKey)
		if err != nil {
			return &ExitError{Code: exitInvalidInput, Message: fmt.Sprintf("failed to read public key file %s: %v", cmd.PublicKey, err)}
		}

		match, err = issuer.VerifyAgainstPublicKey(certPEM, referencePEM)
		if err != nil {
			return &ExitError{Code: exitInvalidInput, Message: fmt.Sprintf("failed to compare against public key file %s: %v", cmd.PublicKey, err)}
		}
	} else {
		i := issuer.New(sink.New(sink.Options{AWSEndpoint: cmd.AWSEndpoint}))

		match, err = i.VerifyAgainstKMS(ctx, cmd.Region, cmd.AWSEndpoint, cmd.KMSKeyID, certPEM)
		if err != nil {
			return err
		}
	}

	if !match {
		return &ExitError{Code: exitKeyMismatch, Message: "certificate public key does not match the reference key"}
	}

	log.Info().Str("certificate", cmd.Certificate).Msg("Certificate public key matches the reference key")
	return nil
}
