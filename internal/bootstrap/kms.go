package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/rs/zerolog/log"
)

// ensureSigningKey resolves the alias to an existing key, or creates a
// new signing key and aliases it. The alias must carry the "alias/"
// prefix; a bare name gets it prepended.
func ensureSigningKey(ctx context.Context, client *kms.Client, alias string, keySpec types.KeySpec) (string, error) {
	if alias == "" {
		return "", fmt.Errorf("key alias is required")
	}
	if !strings.HasPrefix(alias, "alias/") {
		alias = "alias/" + alias
	}

	describeOutput, err := client.DescribeKey(ctx, &kms.DescribeKeyInput{
		KeyId: aws.String(alias),
	})
	if err == nil {
		keyID := aws.ToString(describeOutput.KeyMetadata.KeyId)
		log.Info().Str("alias", alias).Str("key_id", keyID).Msg("Signing key already exists, reusing")
		return keyID, nil
	}

	var notFound *types.NotFoundException
	if !errors.As(err, &notFound) {
		return "", fmt.Errorf("failed to describe key %s: %w", alias, err)
	}

	createOutput, err := client.CreateKey(ctx, &kms.CreateKeyInput{
		KeySpec:     keySpec,
		KeyUsage:    types.KeyUsageTypeSignVerify,
		Description: aws.String("kmscert development signing key"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create key: %w", err)
	}

	keyID := aws.ToString(createOutput.KeyMetadata.KeyId)

	_, err = client.CreateAlias(ctx, &kms.CreateAliasInput{
		AliasName:   aws.String(alias),
		TargetKeyId: aws.String(keyID),
	})
	if err != nil {
		var exists *types.AlreadyExistsException
		if !errors.As(err, &exists) {
			return "", fmt.Errorf("failed to create alias %s: %w", alias, err)
		}
	}

	log.Info().Str("alias", alias).Str("key_id", keyID).Str("key_spec", string(keySpec)).Msg("Created signing key")
	return keyID, nil
}
