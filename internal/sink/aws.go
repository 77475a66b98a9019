package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// Narrow per-service interfaces so writers can be unit tested with fakes.

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type secretsAPI interface {
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
}

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type ssmAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type awsClients struct {
	s3      s3API
	secrets secretsAPI
	sns     snsAPI
	sqs     sqsAPI
	ssm     ssmAPI
	dynamo  dynamoAPI
}

// loadClients builds the service clients for the target's region. Each
// AWS target carries its own region; an endpoint override covers local
// stacks such as LocalStack.
func (s *Sink) loadClients(ctx context.Context, region string) (*awsClients, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if s.awsEndpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(s.awsEndpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &awsClients{
		s3:      s3.NewFromConfig(cfg),
		secrets: secretsmanager.NewFromConfig(cfg),
		sns:     sns.NewFromConfig(cfg),
		sqs:     sqs.NewFromConfig(cfg),
		ssm:     ssm.NewFromConfig(cfg),
		dynamo:  dynamodb.NewFromConfig(cfg),
	}, nil
}

// writeS3 is a direct single PutObject; no existence probe.
func (s *Sink) writeS3(ctx context.Context, target *Target, body []byte, contentType string) error {
	clients, err := s.clientsFor(ctx, target.Region)
	if err != nil {
		return err
	}

	_, err = clients.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(target.Bucket),
		Key:         aws.String(target.Key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to put object s3://%s/%s: %w", target.Bucket, target.Key, err)
	}

	return nil
}

// writeSecretsManager is an idempotent upsert. The existence probe is a
// required side effect: only ResourceNotFoundException counts as absent,
// any other probe error propagates as a write failure.
func (s *Sink) writeSecretsManager(ctx context.Context, target *Target, body []byte) error {
	clients, err := s.clientsFor(ctx, target.Region)
	if err != nil {
		return err
	}

	_, err = clients.secrets.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(target.Name),
	})

	var notFound *smtypes.ResourceNotFoundException
	switch {
	case err == nil:
		_, err = clients.secrets.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
			SecretId:     aws.String(target.Name),
			SecretString: aws.String(string(body)),
		})
		if err != nil {
			return fmt.Errorf("failed to update secret %s: %w", target.Name, err)
		}
	case errors.As(err, &notFound):
		_, err = clients.secrets.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
			Name:         aws.String(target.Name),
			SecretString: aws.String(string(body)),
		})
		if err != nil {
			return fmt.Errorf("failed to create secret %s: %w", target.Name, err)
		}
	default:
		return fmt.Errorf("failed to probe secret %s: %w", target.Name, err)
	}

	return nil
}

// writeSNS is a direct single Publish.
func (s *Sink) writeSNS(ctx context.Context, target *Target, body []byte) error {
	clients, err := s.clientsFor(ctx, target.Region)
	if err != nil {
		return err
	}

	_, err = clients.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(target.TopicARN),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", target.TopicARN, err)
	}

	return nil
}

// writeSQS is a direct single SendMessage.
func (s *Sink) writeSQS(ctx context.Context, target *Target, body []byte) error {
	clients, err := s.clientsFor(ctx, target.Region)
	if err != nil {
		return err
	}

	_, err = clients.sqs.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(target.QueueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to queue %s: %w", target.QueueURL, err)
	}

	return nil
}

// writeSSM is an idempotent upsert with the same probe contract as
// Secrets Manager: only ParameterNotFound counts as absent.
func (s *Sink) writeSSM(ctx context.Context, target *Target, body []byte) error {
	clients, err := s.clientsFor(ctx, target.Region)
	if err != nil {
		return err
	}

	_, err = clients.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(target.Name),
	})

	var notFound *ssmtypes.ParameterNotFound
	overwrite := false
	switch {
	case err == nil:
		overwrite = true
	case errors.As(err, &notFound):
		// create below, without overwrite
	default:
		return fmt.Errorf("failed to probe parameter %s: %w", target.Name, err)
	}

	_, err = clients.ssm.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(target.Name),
		Value:     aws.String(string(body)),
		Type:      ssmtypes.ParameterTypeString,
		Overwrite: aws.Bool(overwrite),
	})
	if err != nil {
		return fmt.Errorf("failed to put parameter %s: %w", target.Name, err)
	}

	return nil
}

// writeDynamoDB is a single unconditional PutItem; the store itself is
// upsert-native so no probe is needed.
func (s *Sink) writeDynamoDB(ctx context.Context, target *Target, body []byte) error {
	clients, err := s.clientsFor(ctx, target.Region)
	if err != nil {
		return err
	}

	record := map[string]string{
		target.HashKey:          target.HashValue,
		target.PayloadAttribute: string(body),
	}
	if target.SortKey != "" {
		record[target.SortKey] = target.SortValue
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal item for table %s: %w", target.Table, err)
	}

	_, err = clients.dynamo.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(target.Table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put item to table %s: %w", target.Table, err)
	}

	return nil
}
