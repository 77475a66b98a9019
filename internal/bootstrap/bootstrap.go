package bootstrap

import (
	"context"
	"fmt"

	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
)

// Bootstrap provisions the signing key and every sink destination the
// tool can write to. Existing resources are tolerated and reused;
// nothing is deleted.
func Bootstrap(ctx context.Context, cfg Config) (*Resources, error) {
	if cfg.KMSClient == nil {
		return nil, fmt.Errorf("KMSClient is required")
	}
	if cfg.KeySpec == "" {
		cfg.KeySpec = kmstypes.KeySpecEccNistP256
	}
	if cfg.HashKeyName == "" {
		cfg.HashKeyName = "name"
	}

	resources := &Resources{}

	keyID, err := ensureSigningKey(ctx, cfg.KMSClient, cfg.KeyAlias, cfg.KeySpec)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure signing key: %w", err)
	}
	resources.KeyID = keyID
	resources.KeyAlias = cfg.KeyAlias

	if cfg.Bucket != "" {
		if err := ensureBucket(ctx, cfg.S3Client, cfg.Bucket); err != nil {
			return nil, fmt.Errorf("failed to ensure bucket: %w", err)
		}
		resources.Bucket = cfg.Bucket
	}

	if cfg.Table != "" {
		if err := ensureTable(ctx, cfg.DynamoClient, cfg.Table, cfg.HashKeyName); err != nil {
			return nil, fmt.Errorf("failed to ensure table: %w", err)
		}
		resources.Table = cfg.Table
	}

	if cfg.Queue != "" {
		queueURL, err := ensureQueue(ctx, cfg.SQSClient, cfg.Queue)
		if err != nil {
			return nil, fmt.Errorf("failed to ensure queue: %w", err)
		}
		resources.QueueURL = queueURL
	}

	if cfg.Topic != "" {
		topicARN, err := ensureTopic(ctx, cfg.SNSClient, cfg.Topic)
		if err != nil {
			return nil, fmt.Errorf("failed to ensure topic: %w", err)
		}
		resources.TopicARN = topicARN
	}

	return resources, nil
}
