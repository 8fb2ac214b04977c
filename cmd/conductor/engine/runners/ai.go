package runners

import (
	"context"
	"errors"
	"time"

	"github.com/tidewave/conductor/common/models"
)

// AIRequest is the provider-neutral chat request built from a node
type AIRequest struct {
	Model        string
	SystemPrompt string
	UserMessage  string
	Temperature  float64
	MaxTokens    int
	Tools        []ToolSpec
}

// ToolSpec describes an attached TOOL child offered to the model
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// AIResponse is the provider-neutral completion result
type AIResponse struct {
	Content       string
	TokenUsage    map[string]interface{}
	FunctionCalls []map[string]interface{}
	Metadata      map[string]interface{}
}

// ProviderCaller performs one chat completion against a concrete provider
type ProviderCaller interface {
	Name() string
	Call(ctx context.Context, req *AIRequest) (*AIResponse, error)
}

// AIRunnerOpts configures an AI agent runner
type AIRunnerOpts struct {
	Caller        ProviderCaller
	DefaultModel  string
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
}

// AIRunner executes AI_AGENT nodes against one provider, retrying
// temporary failures with exponential backoff
type AIRunner struct {
	caller        ProviderCaller
	defaultModel  string
	timeout       time.Duration
	retryAttempts int
	retryBackoff  time.Duration
}

// NewAIRunner creates an AI agent runner
func NewAIRunner(opts *AIRunnerOpts) *AIRunner {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	attempts := opts.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	return &AIRunner{
		caller:        opts.Caller,
		defaultModel:  opts.DefaultModel,
		timeout:       timeout,
		retryAttempts: attempts,
		retryBackoff:  backoff,
	}
}

// Run builds the provider request from configurations and inputs, calls
// the provider, and normalizes the result
func (r *AIRunner) Run(ctx context.Context, node *models.Node, inputs map[string]interface{}, rc *RunContext) (*Result, error) {
	req := r.buildRequest(node, inputs)
	if req.UserMessage == "" {
		return nil, models.NewValidationError("inputs", "ai agent %s received no prompt text", node.ID)
	}

	attempts := r.retryAttempts
	if perf := configMap(node, "performance_config"); perf != nil {
		if v, ok := perf["retry_attempts"].(float64); ok && v > 0 {
			attempts = int(v)
		}
	}

	resp, err := r.callWithRetry(ctx, req, attempts, rc)
	if err != nil {
		return nil, err
	}

	output := map[string]interface{}{
		"content": resp.Content,
		"output":  resp.Content,
	}
	if len(resp.TokenUsage) > 0 {
		output["token_usage"] = resp.TokenUsage
	}
	if len(resp.FunctionCalls) > 0 {
		output["function_calls"] = resp.FunctionCalls
	}

	metadata := map[string]interface{}{
		"provider": r.caller.Name(),
		"model":    req.Model,
	}
	for k, v := range resp.Metadata {
		metadata[k] = v
	}

	return &Result{
		Outputs:  map[string]interface{}{"main": output},
		Metadata: metadata,
	}, nil
}

func (r *AIRunner) buildRequest(node *models.Node, inputs map[string]interface{}) *AIRequest {
	req := &AIRequest{
		Model:        configString(node, "model"),
		SystemPrompt: configString(node, "system_prompt"),
		UserMessage:  inputText(inputs),
		Temperature:  configFloat(node, "temperature", 0.7),
		MaxTokens:    configInt(node, "max_tokens", 1024),
	}
	if req.Model == "" {
		req.Model = r.defaultModel
	}
	if req.UserMessage == "" {
		req.UserMessage = configString(node, "user_prompt")
	}

	// Attached children: TOOL nodes become callable tools, MEMORY nodes
	// contribute stored context to the system prompt.
	for _, child := range node.AttachedNodes {
		switch child.Type {
		case models.NodeTypeTool:
			req.Tools = append(req.Tools, ToolSpec{
				Name:        child.Name,
				Description: configString(child, "description"),
				Parameters:  configMap(child, "parameters"),
			})
		case models.NodeTypeMemory:
			if stored := configString(child, "context"); stored != "" {
				if req.SystemPrompt != "" {
					req.SystemPrompt += "\n\n"
				}
				req.SystemPrompt += stored
			}
		}
	}
	return req
}

func (r *AIRunner) callWithRetry(ctx context.Context, req *AIRequest, attempts int, rc *RunContext) (*AIResponse, error) {
	var lastErr error
	backoff := r.retryBackoff

	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		resp, err := r.caller.Call(callCtx, req)
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var tempErr *models.TemporaryError
		if !errors.As(err, &tempErr) || attempt == attempts {
			break
		}

		rc.Logger.Warn("ai call failed, retrying",
			"provider", r.caller.Name(),
			"attempt", attempt,
			"backoff", backoff,
			"error", err)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, lastErr
}
