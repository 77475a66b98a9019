package sink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
)

// writeHTTP POSTs the payload once. Any non-2xx status is a write
// failure; there are no retries.
func (s *Sink) writeHTTP(ctx context.Context, target *Target, body []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", target.URL, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to POST certificate to %s: %w", target.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s from %s", resp.Status, target.URL)
	}

	return nil
}
