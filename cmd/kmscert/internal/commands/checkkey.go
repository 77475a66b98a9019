package commands

import (
	"context"
	"fmt"

	"github.com/hongkongkiwi/kmscert/internal/issuer"
	"github.com/hongkongkiwi/kmscert/internal/sink"
)

type CheckKeyCmd struct {
	KMSKeyID    string `help:"KMS key ID, ARN, or alias" short:"k" required:""`
	RequireRSA  bool   `help:"Fail unless the key family is RSA" default:"false"`
	Region      string `help:"AWS region" env:"AWS_REGION"`
	AWSEndpoint string `help:"AWS endpoint (for LocalStack)" env:"AWS_ENDPOINT" default:""`
}

func (cmd *CheckKeyCmd) Run(ctx context.Context, globals *Globals) error {
	i := issuer.New(sink.New(sink.Options{AWSEndpoint: cmd.AWSEndpoint}))

	alg, err := i.CheckKey(ctx, cmd.Region, cmd.AWSEndpoint, cmd.KMSKeyID, cmd.RequireRSA)
	if err != nil {
		return err
	}

	fmt.Printf("Key ID:            %s\n", cmd.KMSKeyID)
	fmt.Printf("Key spec:          %s\n", alg.KeySpec)
	fmt.Printf("Key family:        %s\n", alg.Family)
	fmt.Printf("Signing algorithm: %s\n", alg.KMSAlgorithm)
	fmt.Printf("X.509 signature:   %s\n", alg.X509Algorithm)

	return nil
}
