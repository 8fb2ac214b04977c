package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidewave/conductor/common/models"
)

// restClient is the shared HTTP plumbing for providers without a Go SDK
type restClient struct {
	http *http.Client
}

func newRESTClient(timeout time.Duration) *restClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &restClient{http: &http.Client{Timeout: timeout}}
}

// postJSON sends a JSON body and decodes a JSON response. 429 and 5xx map
// to TemporaryError so runners retry them.
func (c *restClient) postJSON(ctx context.Context, url string, headers map[string]string, body interface{}) (map[string]interface{}, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &models.TemporaryError{Message: "provider request failed", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &models.TemporaryError{Message: "failed to read provider response", Cause: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &models.TemporaryError{
			Message: fmt.Sprintf("provider returned %d", resp.StatusCode),
		}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, data)
	}

	out := map[string]interface{}{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("failed to decode provider response: %w", err)
		}
	}
	return out, nil
}
