package sink

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeSecrets is an in-memory Secrets Manager recording which write path
// the upsert took.
type fakeSecrets struct {
	values   map[string]string
	probeErr error
	creates  int
	puts     int
}

func (f *fakeSecrets) DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	if _, ok := f.values[aws.ToString(params.SecretId)]; !ok {
		return nil, &smtypes.ResourceNotFoundException{}
	}
	return &secretsmanager.DescribeSecretOutput{Name: params.SecretId}, nil
}

func (f *fakeSecrets) CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	f.creates++
	f.values[aws.ToString(params.Name)] = aws.ToString(params.SecretString)
	return &secretsmanager.CreateSecretOutput{}, nil
}

func (f *fakeSecrets) PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error) {
	f.puts++
	f.values[aws.ToString(params.SecretId)] = aws.ToString(params.SecretString)
	return &secretsmanager.PutSecretValueOutput{}, nil
}

// fakeSSM is an in-memory Parameter Store tracking overwrite flags.
type fakeSSM struct {
	values     map[string]string
	probeErr   error
	overwrites []bool
}

func (f *fakeSSM) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	value, ok := f.values[aws.ToString(params.Name)]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{}
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Name: params.Name, Value: aws.String(value)}}, nil
}

func (f *fakeSSM) PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	f.overwrites = append(f.overwrites, aws.ToBool(params.Overwrite))
	f.values[aws.ToString(params.Name)] = aws.ToString(params.Value)
	return &ssm.PutParameterOutput{}, nil
}

type fakeS3 struct {
	puts []*s3.PutObjectInput
	err  error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.puts = append(f.puts, params)
	return &s3.PutObjectOutput{}, nil
}

type fakeSNS struct {
	messages []string
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.messages = append(f.messages, aws.ToString(params.Message))
	return &sns.PublishOutput{}, nil
}

type fakeSQS struct {
	messages []string
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.messages = append(f.messages, aws.ToString(params.MessageBody))
	return &sqs.SendMessageOutput{}, nil
}

type fakeDynamo struct {
	items []map[string]dynamotypes.AttributeValue
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.items = append(f.items, params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// newFakeSink wires a Sink to the given fake clients.
func newFakeSink(clients *awsClients) *Sink {
	s := New(Options{Stdout: io.Discard})
	s.clientsFor = func(ctx context.Context, region string) (*awsClients, error) {
		return clients, nil
	}
	return s
}

func TestSink_WriteSecretsManager(t *testing.T) {
	t.Run("creates when absent", func(t *testing.T) {
		secrets := &fakeSecrets{values: map[string]string{}}
		s := newFakeSink(&awsClients{secrets: secrets})

		target, err := ParseTarget("secretsmanager:us-east-1|prod/cert")
		require.NoError(t, err)

		require.NoError(t, s.Write(context.Background(), target, testCertPEM))
		require.Equal(t, 1, secrets.creates)
		require.Equal(t, 0, secrets.puts)
		require.Equal(t, string(testCertPEM), secrets.values["prod/cert"])
	})

	t.Run("updates when present", func(t *testing.T) {
		secrets := &fakeSecrets{values: map[string]string{"prod/cert": "stale"}}
		s := newFakeSink(&awsClients{secrets: secrets})

		target, err := ParseTarget("secretsmanager:us-east-1|prod/cert")
		require.NoError(t, err)

		require.NoError(t, s.Write(context.Background(), target, testCertPEM))
		require.Equal(t, 0, secrets.creates)
		require.Equal(t, 1, secrets.puts)
		require.Equal(t, string(testCertPEM), secrets.values["prod/cert"])
	})

	t.Run("writing twice is idempotent", func(t *testing.T) {
		secrets := &fakeSecrets{values: map[string]string{}}
		s := newFakeSink(&awsClients{secrets: secrets})

		target, err := ParseTarget("secretsmanager:us-east-1|prod/cert")
		require.NoError(t, err)

		require.NoError(t, s.Write(context.Background(), target, testCertPEM))
		require.NoError(t, s.Write(context.Background(), target, testCertPEM))

		require.Len(t, secrets.values, 1)
		require.Equal(t, string(testCertPEM), secrets.values["prod/cert"])
		require.Equal(t, 1, secrets.creates)
		require.Equal(t, 1, secrets.puts)
	})

	t.Run("probe failure is not treated as absence", func(t *testing.T) {
		secrets := &fakeSecrets{values: map[string]string{}, probeErr: errors.New("AccessDeniedException")}
		s := newFakeSink(&awsClients{secrets: secrets})

		target, err := ParseTarget("secretsmanager:us-east-1|prod/cert")
		require.NoError(t, err)

		err = s.Write(context.Background(), target, testCertPEM)
		require.ErrorContains(t, err, "failed to probe secret")
		require.Equal(t, 0, secrets.creates)
		require.Equal(t, 0, secrets.puts)
	})
}

func TestSink_WriteSSM(t *testing.T) {
	t.Run("creates without overwrite when absent", func(t *testing.T) {
		params := &fakeSSM{values: map[string]string{}}
		s := newFakeSink(&awsClients{ssm: params})

		target, err := ParseTarget("ssm:us-east-1|/prod/cert")
		require.NoError(t, err)

		require.NoError(t, s.Write(context.Background(), target, testCertPEM))
		require.Equal(t, []bool{false}, params.overwrites)
		require.Equal(t, string(testCertPEM), params.values["/prod/cert"])
	})

	t.Run("overwrites when present", func(t *testing.T) {
		params := &fakeSSM{values: map[string]string{"/prod/cert": "stale"}}
		s := newFakeSink(&awsClients{ssm: params})

		target, err := ParseTarget("ssm:us-east-1|/prod/cert")
		require.NoError(t, err)

		require.NoError(t, s.Write(context.Background(), target, testCertPEM))
		require.Equal(t, []bool{true}, params.overwrites)
		require.Equal(t, string(testCertPEM), params.values["/prod/cert"])
	})

	t.Run("probe failure propagates", func(t *testing.T) {
		params := &fakeSSM{values: map[string]string{}, probeErr: errors.New("throttled")}
		s := newFakeSink(&awsClients{ssm: params})

		target, err := ParseTarget("ssm:us-east-1|/prod/cert")
		require.NoError(t, err)

		err = s.Write(context.Background(), target, testCertPEM)
		require.ErrorContains(t, err, "failed to probe parameter")
		require.Empty(t, params.overwrites)
	})
}

func TestSink_WriteS3(t *testing.T) {
	store := &fakeS3{}
	s := newFakeSink(&awsClients{s3: store})

	target, err := ParseTarget("s3:us-east-1|my-bucket|certs/host.pem")
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), target, testCertPEM))
	require.Len(t, store.puts, 1)
	require.Equal(t, "my-bucket", aws.ToString(store.puts[0].Bucket))
	require.Equal(t, "certs/host.pem", aws.ToString(store.puts[0].Key))
	require.Equal(t, "application/x-pem-file", aws.ToString(store.puts[0].ContentType))
}

func TestSink_WriteSNSAndSQS(t *testing.T) {
	topic := &fakeSNS{}
	queue := &fakeSQS{}
	s := newFakeSink(&awsClients{sns: topic, sqs: queue})

	target, err := ParseTarget("sns:us-east-1|arn:aws:sns:us-east-1:123456789012:certs")
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), target, testCertPEM))
	require.Equal(t, []string{string(testCertPEM)}, topic.messages)

	target, err = ParseTarget("sqs:json:us-east-1|https://sqs.us-east-1.amazonaws.com/123456789012/certs|myCert")
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), target, testCertPEM))
	require.Len(t, queue.messages, 1)
	require.Contains(t, queue.messages[0], `"myCert"`)
}

func TestSink_WriteDynamoDB(t *testing.T) {
	t.Run("hash key only", func(t *testing.T) {
		table := &fakeDynamo{}
		s := newFakeSink(&awsClients{dynamo: table})

		target, err := ParseTarget("dynamodb:us-east-1|certs|host|web01|pem")
		require.NoError(t, err)

		require.NoError(t, s.Write(context.Background(), target, testCertPEM))
		require.Len(t, table.items, 1)

		item := table.items[0]
		require.Equal(t, &dynamotypes.AttributeValueMemberS{Value: "web01"}, item["host"])
		require.Equal(t, &dynamotypes.AttributeValueMemberS{Value: string(testCertPEM)}, item["pem"])
		require.NotContains(t, item, "env")
	})

	t.Run("hash and sort key", func(t *testing.T) {
		table := &fakeDynamo{}
		s := newFakeSink(&awsClients{dynamo: table})

		target, err := ParseTarget("dynamodb:us-east-1|certs|host|web01|env|prod|pem")
		require.NoError(t, err)

		require.NoError(t, s.Write(context.Background(), target, testCertPEM))
		require.Len(t, table.items, 1)
		require.Equal(t, &dynamotypes.AttributeValueMemberS{Value: "prod"}, table.items[0]["env"])
	})
}
