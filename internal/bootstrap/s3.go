package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// ensureBucket creates the destination bucket if it does not exist.
func ensureBucket(ctx context.Context, client *s3.Client, bucket string) error {
	if client == nil {
		return fmt.Errorf("S3Client is required when a bucket is configured")
	}

	_, err := client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			log.Info().Str("bucket", bucket).Msg("Bucket already exists, reusing")
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	log.Info().Str("bucket", bucket).Msg("Created bucket")
	return nil
}
