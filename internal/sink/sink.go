package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	contentTypePEM  = "application/x-pem-file"
	contentTypeJSON = "application/json"

	httpTimeout = 30 * time.Second

	fileMode = 0644
)

// Sink delivers an issued certificate to a parsed target. Every writer
// makes exactly one delivery attempt; retry policy belongs to the caller.
type Sink struct {
	stdout     io.Writer
	httpClient *http.Client

	awsEndpoint string
	clientsFor  func(ctx context.Context, region string) (*awsClients, error)
}

// Options configures a Sink. Zero values select the defaults: os.Stdout,
// a 30 second HTTP client, and real AWS clients per target region.
type Options struct {
	Stdout      io.Writer
	HTTPClient  *http.Client
	AWSEndpoint string
}

// New creates a Sink.
func New(opts Options) *Sink {
	s := &Sink{
		stdout:      opts.Stdout,
		httpClient:  opts.HTTPClient,
		awsEndpoint: opts.AWSEndpoint,
	}

	if s.stdout == nil {
		s.stdout = os.Stdout
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: httpTimeout}
	}
	s.clientsFor = s.loadClients

	return s
}

// Write delivers the certificate PEM to the target. The payload is the
// PEM text verbatim, or a single-field JSON object for JSON targets.
func (s *Sink) Write(ctx context.Context, target *Target, certPEM []byte) error {
	body, contentType, err := payload(target, certPEM)
	if err != nil {
		return err
	}

	switch target.Kind {
	case KindStdout:
		return s.writeStdout(target, body)
	case KindFile:
		return s.writeFile(target, body)
	case KindHTTP:
		return s.writeHTTP(ctx, target, body, contentType)
	case KindS3:
		return s.writeS3(ctx, target, body, contentType)
	case KindSecretsManager:
		return s.writeSecretsManager(ctx, target, body)
	case KindSNS:
		return s.writeSNS(ctx, target, body)
	case KindSQS:
		return s.writeSQS(ctx, target, body)
	case KindSSM:
		return s.writeSSM(ctx, target, body)
	case KindDynamoDB:
		return s.writeDynamoDB(ctx, target, body)
	default:
		return fmt.Errorf("%w: unhandled destination kind %d", ErrInvalidTarget, target.Kind)
	}
}

// payload builds the bytes to deliver and their content type.
func payload(target *Target, certPEM []byte) ([]byte, string, error) {
	if !target.JSON {
		return certPEM, contentTypePEM, nil
	}

	body, err := json.Marshal(map[string]string{target.FieldName(): string(certPEM)})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal certificate JSON: %w", err)
	}

	return body, contentTypeJSON, nil
}

func (s *Sink) writeStdout(target *Target, body []byte) error {
	if _, err := s.stdout.Write(body); err != nil {
		return fmt.Errorf("failed to write certificate to stdout: %w", err)
	}

	// PEM already ends with a newline; JSON objects do not.
	if target.JSON {
		if _, err := io.WriteString(s.stdout, "\n"); err != nil {
			return fmt.Errorf("failed to write certificate to stdout: %w", err)
		}
	}

	return nil
}

func (s *Sink) writeFile(target *Target, body []byte) error {
	if err := os.WriteFile(target.Path, body, fileMode); err != nil {
		return fmt.Errorf("failed to write certificate to %s: %w", target.Path, err)
	}

	return nil
}
