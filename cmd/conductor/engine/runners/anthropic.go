package runners

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tidewave/conductor/common/models"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// anthropicMessagesAPI is the slice of the Anthropic SDK the caller uses
type anthropicMessagesAPI interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicCaller performs completions against the Anthropic Messages API
type AnthropicCaller struct {
	messages anthropicMessagesAPI
}

// NewAnthropicCaller creates an Anthropic provider caller
func NewAnthropicCaller(apiKey string) *AnthropicCaller {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicCaller{messages: &client.Messages}
}

// Name returns the provider name
func (c *AnthropicCaller) Name() string {
	return "anthropic"
}

// Call performs one Messages request
func (c *AnthropicCaller) Call(ctx context.Context, req *AIRequest) (*AIResponse, error) {
	model := req.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.UserMessage)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	for _, tool := range req.Tools {
		params.Tools = append(params.Tools, sdk.ToolUnionParam{
			OfTool: &sdk.ToolParam{
				Name:        tool.Name,
				Description: sdk.String(tool.Description),
				InputSchema: sdk.ToolInputSchemaParam{
					Properties: tool.Parameters,
				},
			},
		})
	}

	msg, err := c.messages.New(ctx, params)
	if err != nil {
		// The SDK retries 4xx-level client errors itself; anything that
		// still fails here is worth one more pass through our backoff.
		return nil, &models.TemporaryError{Message: "anthropic request failed", Cause: err}
	}

	out := &AIResponse{
		TokenUsage: map[string]interface{}{
			"prompt_tokens":     int(msg.Usage.InputTokens),
			"completion_tokens": int(msg.Usage.OutputTokens),
			"total_tokens":      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
		Metadata: map[string]interface{}{
			"stop_reason": string(msg.StopReason),
		},
	}

	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			out.FunctionCalls = append(out.FunctionCalls, map[string]interface{}{
				"name":      block.Name,
				"arguments": block.Input,
			})
		}
	}

	return out, nil
}
