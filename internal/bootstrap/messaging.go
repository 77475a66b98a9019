package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
)

// ensureQueue creates the destination queue, reusing one that already
// exists with the same name.
func ensureQueue(ctx context.Context, client *sqs.Client, queue string) (string, error) {
	if client == nil {
		return "", fmt.Errorf("SQSClient is required when a queue is configured")
	}

	createOutput, err := client.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName: aws.String(queue),
	})
	if err == nil {
		log.Info().Str("queue", queue).Msg("Created queue")
		return aws.ToString(createOutput.QueueUrl), nil
	}

	var exists *types.QueueNameExists
	if !errors.As(err, &exists) {
		return "", fmt.Errorf("failed to create queue %s: %w", queue, err)
	}

	urlOutput, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(queue),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get queue URL for %s: %w", queue, err)
	}

	log.Info().Str("queue", queue).Msg("Queue already exists, reusing")
	return aws.ToString(urlOutput.QueueUrl), nil
}

// ensureTopic creates the destination topic. SNS CreateTopic is
// idempotent, so an existing topic with the same name is returned as-is.
func ensureTopic(ctx context.Context, client *sns.Client, topic string) (string, error) {
	if client == nil {
		return "", fmt.Errorf("SNSClient is required when a topic is configured")
	}

	createOutput, err := client.CreateTopic(ctx, &sns.CreateTopicInput{
		Name: aws.String(topic),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create topic %s: %w", topic, err)
	}

	log.Info().Str("topic", topic).Msg("Topic ready")
	return aws.ToString(createOutput.TopicArn), nil
}
