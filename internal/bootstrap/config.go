package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Config holds the clients and resource names used to provision a
// development stack (LocalStack or a test account).
type Config struct {
	KMSClient    *kms.Client
	S3Client     *s3.Client
	DynamoClient *dynamodb.Client
	SQSClient    *sqs.Client
	SNSClient    *sns.Client

	// KeySpec of the signing key to create. Defaults to ECC_NIST_P256.
	KeySpec kmstypes.KeySpec

	KeyAlias string
	Bucket   string
	Table    string
	// HashKeyName is the table's partition key attribute. Defaults to "name".
	HashKeyName string
	Queue       string
	Topic       string
}

// Resources describes what Bootstrap provisioned (or found existing).
type Resources struct {
	KeyID    string
	KeyAlias string
	Bucket   string
	Table    string
	QueueURL string
	TopicARN string
}
