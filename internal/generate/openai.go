// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/content-pipeline/internal/modelconfig"
)

// OpenAIBackend calls an OpenAI-compatible chat-completions API. The model
// profile supplies endpoint, credentials and default parameters, so the same
// backend serves hosted and self-hosted providers.
type OpenAIBackend struct {
	Profile modelconfig.Profile
	Client  *http.Client
}

// Complete implements ModelBackend.
func (b *OpenAIBackend) Complete(ctx context.Context, req ChatRequest) (string, error) {
	body := chatCompletionRequest{
		Model:       b.Profile.ModelID,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if body.Temperature == 0 {
		body.Temperature = b.Profile.Temperature
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = b.Profile.MaxTokens
	}
	if req.ResponseJSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := strings.TrimSuffix(b.Profile.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.Profile.APIKey)
	for k, v := range b.Profile.Headers {
		httpReq.Header.Set(k, v)
	}

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling model API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("model API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var cr chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding model response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("model API returned no choices")
	}
	return cr.Choices[0].Message.Content, nil
}

// OpenAI-compatible API JSON structures.
type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
