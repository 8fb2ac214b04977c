package runners

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidewave/conductor/cmd/conductor/engine/transform"
	"github.com/tidewave/conductor/common/models"
)

// ActionRunner executes ACTION nodes: in-workflow data shaping with a
// declarative transform, or a plain HTTP call
type ActionRunner struct {
	http *http.Client
}

// NewActionRunner creates an action runner
func NewActionRunner(timeout time.Duration) *ActionRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ActionRunner{http: &http.Client{Timeout: timeout}}
}

// Run dispatches on the action subtype
func (r *ActionRunner) Run(ctx context.Context, node *models.Node, inputs map[string]interface{}, rc *RunContext) (*Result, error) {
	switch strings.ToUpper(node.Subtype) {
	case "TRANSFORM", "":
		return r.runTransform(node, inputs)
	case "HTTP", "HTTP_REQUEST":
		return r.runHTTP(ctx, node, inputs)
	default:
		return nil, &models.EngineError{Message: fmt.Sprintf("unknown action subtype %s", node.Subtype)}
	}
}

func (r *ActionRunner) runTransform(node *models.Node, inputs map[string]interface{}) (*Result, error) {
	cfg := &transform.Config{Type: transform.TypePassThrough}
	if raw := configMap(node, "transform"); raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, models.NewValidationError("transform", "invalid transform config: %v", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, models.NewValidationError("transform", "invalid transform config: %v", err)
		}
	}

	out, err := transform.Apply(cfg, mainInput(inputs))
	if err != nil {
		return nil, err
	}
	return &Result{
		Outputs:  map[string]interface{}{"main": out},
		Metadata: map[string]interface{}{"transform_type": cfg.Type},
	}, nil
}

func (r *ActionRunner) runHTTP(ctx context.Context, node *models.Node, inputs map[string]interface{}) (*Result, error) {
	url := configString(node, "url")
	if url == "" {
		return nil, models.NewValidationError("url", "http action %s has no url", node.ID)
	}
	method := strings.ToUpper(configString(node, "method"))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if method != http.MethodGet {
		payload, err := json.Marshal(mainInput(inputs))
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if headers := configMap(node, "headers"); headers != nil {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, &models.TemporaryError{Message: "http action failed", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &models.TemporaryError{Message: "failed to read response", Cause: err}
	}
	if resp.StatusCode >= 500 {
		return nil, &models.TemporaryError{Message: fmt.Sprintf("http action returned %d", resp.StatusCode)}
	}

	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		decoded = string(data)
	}

	return &Result{
		Outputs: map[string]interface{}{
			"main": map[string]interface{}{
				"status_code": resp.StatusCode,
				"body":        decoded,
			},
		},
		Metadata: map[string]interface{}{"method": method, "url": url},
	}, nil
}
