package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

const tableWaitTimeout = 30 * time.Second

// ensureTable creates the certificate table keyed on the configured
// hash attribute. The sink's PutItem is upsert-native so no indexes are
// needed.
func ensureTable(ctx context.Context, client *dynamodb.Client, table, hashKeyName string) error {
	if client == nil {
		return fmt.Errorf("DynamoClient is required when a table is configured")
	}

	input := &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String(hashKeyName),
				KeyType:       types.KeyTypeHash,
			},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String(hashKeyName),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	}

	_, err := client.CreateTable(ctx, input)
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			log.Info().Str("table", table).Msg("Table already exists, reusing")
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(table),
	}, tableWaitTimeout); err != nil {
		return fmt.Errorf("failed waiting for table %s: %w", table, err)
	}

	log.Info().Str("table", table).Str("hash_key", hashKeyName).Msg("Created table")
	return nil
}
