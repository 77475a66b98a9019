package commands

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"

	"github.com/hongkongkiwi/kmscert/internal/bootstrap"
)

type BootstrapCmd struct {
	Region      string `help:"AWS region" env:"AWS_REGION" default:"us-east-1"`
	AWSEndpoint string `help:"AWS endpoint (for LocalStack)" env:"AWS_ENDPOINT" default:"http://localhost:4566"`
	KeySpec     string `help:"Key spec for the signing key" default:"ECC_NIST_P256" enum:"RSA_2048,RSA_3072,RSA_4096,ECC_NIST_P256,ECC_NIST_P384,ECC_NIST_P521"`
	KeyAlias    string `help:"Alias for the signing key" default:"alias/kmscert-dev"`
	Bucket      string `help:"S3 bucket to create" default:""`
	Table       string `help:"DynamoDB table to create" default:""`
	Queue       string `help:"SQS queue to create" default:""`
	Topic       string `help:"SNS topic to create" default:""`
}

func (cmd *BootstrapCmd) Run(ctx context.Context, globals *Globals) error {
	log.Info().
		Str("region", cmd.Region).
		Str("endpoint", cmd.AWSEndpoint).
		Msg("Starting bootstrap")

	awsConfig, err := cmd.loadAWSConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	resources, err := bootstrap.Bootstrap(ctx, bootstrap.Config{
		KMSClient:    kms.NewFromConfig(awsConfig),
		S3Client:     s3.NewFromConfig(awsConfig),
		DynamoClient: dynamodb.NewFromConfig(awsConfig),
		SQSClient:    sqs.NewFromConfig(awsConfig),
		SNSClient:    sns.NewFromConfig(awsConfig),
		KeySpec:      kmstypes.KeySpec(cmd.KeySpec),
		KeyAlias:     cmd.KeyAlias,
		Bucket:       cmd.Bucket,
		Table:        cmd.Table,
		Queue:        cmd.Queue,
		Topic:        cmd.Topic,
	})
	if err != nil {
		return err
	}

	cmd.printSummary(resources)

	return nil
}

// loadAWSConfig loads AWS configuration with optional endpoint override
func (cmd *BootstrapCmd) loadAWSConfig(ctx context.Context) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cmd.Region),
	}

	if cmd.AWSEndpoint != "" {
		// Use BaseEndpoint for LocalStack support
		opts = append(opts, config.WithBaseEndpoint(cmd.AWSEndpoint))
	}

	return config.LoadDefaultConfig(ctx, opts...)
}

func (cmd *BootstrapCmd) printSummary(resources *bootstrap.Resources) {
	fmt.Println("\nBootstrap complete")
	fmt.Printf("  Signing key: %s (%s)\n", resources.KeyID, resources.KeyAlias)
	if resources.Bucket != "" {
		fmt.Printf("  S3 bucket:   %s\n", resources.Bucket)
	}
	if resources.Table != "" {
		fmt.Printf("  Table:       %s\n", resources.Table)
	}
	if resources.QueueURL != "" {
		fmt.Printf("  Queue:       %s\n", resources.QueueURL)
	}
	if resources.TopicARN != "" {
		fmt.Printf("  Topic:       %s\n", resources.TopicARN)
	}

	fmt.Println("\nIssue a certificate with:")
	fmt.Printf("  kmscert issue -k %s -c example.com --region %s --aws-endpoint %s\n",
		resources.KeyAlias, cmd.Region, cmd.AWSEndpoint)
}
