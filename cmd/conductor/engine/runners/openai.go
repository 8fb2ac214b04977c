package runners

import (
	"context"
	"encoding/json"
	"errors"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tidewave/conductor/common/models"
)

const defaultOpenAIModel = "gpt-4o-mini"

// openAIChatAPI is the slice of the OpenAI client the caller uses
type openAIChatAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAICaller performs chat completions against the OpenAI API
type OpenAICaller struct {
	client openAIChatAPI
}

// NewOpenAICaller creates an OpenAI provider caller
func NewOpenAICaller(apiKey string) *OpenAICaller {
	return &OpenAICaller{client: openai.NewClient(apiKey)}
}

// Name returns the provider name
func (c *OpenAICaller) Name() string {
	return "openai"
}

// Call performs one chat completion
func (c *OpenAICaller) Call(ctx context.Context, req *AIRequest) (*AIResponse, error) {
	model := req.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserMessage,
	})

	request := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
	for _, tool := range req.Tools {
		request.Tools = append(request.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &models.TemporaryError{Message: "openai returned no choices"}
	}

	choice := resp.Choices[0]
	out := &AIResponse{
		Content: choice.Message.Content,
		TokenUsage: map[string]interface{}{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"total_tokens":      resp.Usage.TotalTokens,
		},
		Metadata: map[string]interface{}{
			"finish_reason": string(choice.FinishReason),
		},
	}

	for _, call := range choice.Message.ToolCalls {
		args := map[string]interface{}{}
		_ = json.Unmarshal([]byte(call.Function.Arguments), &args)
		out.FunctionCalls = append(out.FunctionCalls, map[string]interface{}{
			"name":      call.Function.Name,
			"arguments": args,
		})
	}

	return out, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return &models.TemporaryError{Message: "openai request failed", Cause: err}
		}
		return err
	}
	// Network-level failures are retryable
	return &models.TemporaryError{Message: "openai request failed", Cause: err}
}
