package runners

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

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel = "gemini-1.5-flash"
)

// GeminiCaller performs completions against the Gemini REST API. Google's
// generative-language endpoint is called directly; there is no SDK
// dependency for it here.
type GeminiCaller struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewGeminiCaller creates a Gemini provider caller
func NewGeminiCaller(apiKey string, timeout time.Duration) *GeminiCaller {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GeminiCaller{
		http:    &http.Client{Timeout: timeout},
		baseURL: geminiBaseURL,
		apiKey:  apiKey,
	}
}

// Name returns the provider name
func (c *GeminiCaller) Name() string {
	return "gemini"
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Call performs one generateContent request
func (c *GeminiCaller) Call(ctx context.Context, req *AIRequest) (*AIResponse, error) {
	model := req.Model
	if model == "" {
		model = defaultGeminiModel
	}

	body := map[string]interface{}{
		"contents": []interface{}{
			map[string]interface{}{
				"role":  "user",
				"parts": []interface{}{map[string]interface{}{"text": req.UserMessage}},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     req.Temperature,
			"maxOutputTokens": req.MaxTokens,
		},
	}
	if req.SystemPrompt != "" {
		body["systemInstruction"] = map[string]interface{}{
			"parts": []interface{}{map[string]interface{}{"text": req.SystemPrompt}},
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &models.TemporaryError{Message: "gemini request failed", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &models.TemporaryError{Message: "failed to read gemini response", Cause: err}
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &models.TemporaryError{Message: fmt.Sprintf("gemini returned %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("gemini returned %d: %s", resp.StatusCode, data)
	}

	parsed := &geminiResponse{}
	if err := json.Unmarshal(data, parsed); err != nil {
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return nil, &models.TemporaryError{Message: "gemini returned no candidates"}
	}

	candidate := parsed.Candidates[0]
	content := ""
	for _, part := range candidate.Content.Parts {
		content += part.Text
	}

	return &AIResponse{
		Content: content,
		TokenUsage: map[string]interface{}{
			"prompt_tokens":     parsed.UsageMetadata.PromptTokenCount,
			"completion_tokens": parsed.UsageMetadata.CandidatesTokenCount,
			"total_tokens":      parsed.UsageMetadata.TotalTokenCount,
		},
		Metadata: map[string]interface{}{
			"finish_reason": candidate.FinishReason,
		},
	}, nil
}
