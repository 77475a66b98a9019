package sink

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidTarget is returned for any destination string outside the
// documented grammar.
var ErrInvalidTarget = errors.New("invalid output target")

// DefaultJSONField is the JSON key used when a target does not name one.
const DefaultJSONField = "certificate"

// Kind identifies a destination family.
type Kind int

const (
	KindStdout Kind = iota
	KindFile
	KindHTTP
	KindS3
	KindSecretsManager
	KindSNS
	KindSQS
	KindSSM
	KindDynamoDB
)

// String returns the destination family name.
func (k Kind) String() string {
	switch k {
	case KindStdout:
		return "stdout"
	case KindFile:
		return "file"
	case KindHTTP:
		return "http"
	case KindS3:
		return "s3"
	case KindSecretsManager:
		return "secretsmanager"
	case KindSNS:
		return "sns"
	case KindSQS:
		return "sqs"
	case KindSSM:
		return "ssm"
	case KindDynamoDB:
		return "dynamodb"
	default:
		return "unknown"
	}
}

// Target is a parsed output destination. Exactly one Kind worth of
// fields is populated; JSON selects the wrapped payload form.
type Target struct {
	Kind  Kind
	JSON  bool
	Field string // JSON field name, empty means DefaultJSONField

	Path string // file
	URL  string // http

	Region string // all AWS destinations

	Bucket string // s3
	Key    string // s3

	Name string // secretsmanager secret name, ssm parameter name

	TopicARN string // sns
	QueueURL string // sqs

	Table            string // dynamodb
	HashKey          string // dynamodb
	HashValue        string // dynamodb
	SortKey          string // dynamodb, optional
	SortValue        string // dynamodb, optional
	PayloadAttribute string // dynamodb
}

// FieldName returns the JSON field name, falling back to the default.
func (t *Target) FieldName() string {
	if t.Field != "" {
		return t.Field
	}
	return DefaultJSONField
}

// ParseTarget parses a destination string into a Target. The grammar is
// closed: anything it does not recognise fails with ErrInvalidTarget.
// JSON prefixes are matched before their raw counterparts so the most
// specific form wins (s3:json: before s3:, and so on).
func ParseTarget(s string) (*Target, error) {
	switch {
	case s == "stdout":
		return &Target{Kind: KindStdout}, nil

	case s == "json":
		return &Target{Kind: KindStdout, JSON: true}, nil

	case strings.HasPrefix(s, "json:"):
		field := strings.TrimPrefix(s, "json:")
		if field == "" {
			return nil, fmt.Errorf("%w: empty JSON field name in %q", ErrInvalidTarget, s)
		}
		return &Target{Kind: KindStdout, JSON: true, Field: field}, nil

	case strings.HasPrefix(s, "file:json:"):
		return parseFileJSON(strings.TrimPrefix(s, "file:json:"))

	case strings.HasPrefix(s, "file:"):
		path := strings.TrimPrefix(s, "file:")
		if path == "" {
			return nil, fmt.Errorf("%w: empty file path in %q", ErrInvalidTarget, s)
		}
		return &Target{Kind: KindFile, Path: path}, nil

	case strings.HasPrefix(s, "http:json:"):
		return parseHTTPJSON(strings.TrimPrefix(s, "http:json:"))

	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		if err := validateHTTPURL(s); err != nil {
			return nil, err
		}
		return &Target{Kind: KindHTTP, URL: s}, nil

	case strings.HasPrefix(s, "http:"):
		rawURL := strings.TrimPrefix(s, "http:")
		if err := validateHTTPURL(rawURL); err != nil {
			return nil, err
		}
		return &Target{Kind: KindHTTP, URL: rawURL}, nil

	case strings.HasPrefix(s, "s3:json:"):
		return parseS3(strings.TrimPrefix(s, "s3:json:"), true)

	case strings.HasPrefix(s, "s3:"):
		return parseS3(strings.TrimPrefix(s, "s3:"), false)

	case strings.HasPrefix(s, "secretsmanager:json:"):
		return parseNamed(KindSecretsManager, strings.TrimPrefix(s, "secretsmanager:json:"), true)

	case strings.HasPrefix(s, "secretsmanager:"):
		return parseNamed(KindSecretsManager, strings.TrimPrefix(s, "secretsmanager:"), false)

	case strings.HasPrefix(s, "sns:json:"):
		return parseNamed(KindSNS, strings.TrimPrefix(s, "sns:json:"), true)

	case strings.HasPrefix(s, "sns:"):
		return parseNamed(KindSNS, strings.TrimPrefix(s, "sns:"), false)

	case strings.HasPrefix(s, "sqs:json:"):
		return parseNamed(KindSQS, strings.TrimPrefix(s, "sqs:json:"), true)

	case strings.HasPrefix(s, "sqs:"):
		return parseNamed(KindSQS, strings.TrimPrefix(s, "sqs:"), false)

	case strings.HasPrefix(s, "ssm:json:"):
		return parseNamed(KindSSM, strings.TrimPrefix(s, "ssm:json:"), true)

	case strings.HasPrefix(s, "ssm:"):
		return parseNamed(KindSSM, strings.TrimPrefix(s, "ssm:"), false)

	case strings.HasPrefix(s, "dynamodb:json:"):
		return parseDynamoDB(strings.TrimPrefix(s, "dynamodb:json:"), true)

	case strings.HasPrefix(s, "dynamodb:"):
		return parseDynamoDB(strings.TrimPrefix(s, "dynamodb:"), false)

	default:
		return nil, fmt.Errorf("%w: unrecognised destination %q", ErrInvalidTarget, s)
	}
}

// splitFields splits a pipe-delimited field list, enforcing arity and
// non-empty values.
func splitFields(raw string, minFields, maxFields int) ([]string, error) {
	fields := strings.Split(raw, "|")
	if len(fields) < minFields || len(fields) > maxFields {
		return nil, fmt.Errorf("%w: expected %d-%d fields, got %d in %q", ErrInvalidTarget, minFields, maxFields, len(fields), raw)
	}

	for i, field := range fields {
		if field == "" {
			return nil, fmt.Errorf("%w: empty field %d in %q", ErrInvalidTarget, i+1, raw)
		}
	}

	return fields, nil
}

func validateHTTPURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %q is not a valid URL: %v", ErrInvalidTarget, rawURL, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidTarget, rawURL)
	}

	return nil
}

func parseFileJSON(raw string) (*Target, error) {
	fields, err := splitFields(raw, 1, 2)
	if err != nil {
		return nil, err
	}

	target := &Target{Kind: KindFile, JSON: true, Path: fields[0]}
	if len(fields) == 2 {
		target.Field = fields[1]
	}

	return target, nil
}

func parseHTTPJSON(raw string) (*Target, error) {
	fields, err := splitFields(raw, 1, 2)
	if err != nil {
		return nil, err
	}

	if err := validateHTTPURL(fields[0]); err != nil {
		return nil, err
	}

	target := &Target{Kind: KindHTTP, JSON: true, URL: fields[0]}
	if len(fields) == 2 {
		target.Field = fields[1]
	}

	return target, nil
}

func parseS3(raw string, isJSON bool) (*Target, error) {
	maxFields := 3
	if isJSON {
		maxFields = 4
	}

	fields, err := splitFields(raw, 3, maxFields)
	if err != nil {
		return nil, err
	}

	target := &Target{Kind: KindS3, JSON: isJSON, Region: fields[0], Bucket: fields[1], Key: fields[2]}
	if len(fields) == 4 {
		target.Field = fields[3]
	}

	return target, nil
}

// parseNamed handles the region|identifier destinations: Secrets Manager
// secrets, SNS topics, SQS queues and SSM parameters.
func parseNamed(kind Kind, raw string, isJSON bool) (*Target, error) {
	maxFields := 2
	if isJSON {
		maxFields = 3
	}

	fields, err := splitFields(raw, 2, maxFields)
	if err != nil {
		return nil, err
	}

	target := &Target{Kind: kind, JSON: isJSON, Region: fields[0]}
	switch kind {
	case KindSecretsManager, KindSSM:
		target.Name = fields[1]
	case KindSNS:
		target.TopicARN = fields[1]
	case KindSQS:
		target.QueueURL = fields[1]
	default:
		return nil, fmt.Errorf("%w: %s is not a named destination", ErrInvalidTarget, kind)
	}

	if len(fields) == 3 {
		target.Field = fields[2]
	}

	return target, nil
}

// parseDynamoDB handles both arities: region|table|hk|hv|payload-attr
// with an optional sort key pair, plus an optional JSON field name.
func parseDynamoDB(raw string, isJSON bool) (*Target, error) {
	maxFields := 7
	if isJSON {
		maxFields = 8
	}

	fields, err := splitFields(raw, 5, maxFields)
	if err != nil {
		return nil, err
	}

	target := &Target{
		Kind:      KindDynamoDB,
		JSON:      isJSON,
		Region:    fields[0],
		Table:     fields[1],
		HashKey:   fields[2],
		HashValue: fields[3],
	}

	switch len(fields) {
	case 5: // no sort key
		target.PayloadAttribute = fields[4]
	case 6: // no sort key, JSON field name
		if !isJSON {
			return nil, fmt.Errorf("%w: expected 5 or 7 fields, got 6 in %q", ErrInvalidTarget, raw)
		}
		target.PayloadAttribute = fields[4]
		target.Field = fields[5]
	case 7: // sort key
		target.SortKey = fields[4]
		target.SortValue = fields[5]
		target.PayloadAttribute = fields[6]
	case 8: // sort key, JSON field name
		target.SortKey = fields[4]
		target.SortValue = fields[5]
		target.PayloadAttribute = fields[6]
		target.Field = fields[7]
	}

	return target, nil
}
