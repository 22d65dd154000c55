// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate drives the model calls that synthesize structured
// content fields from competitor material. Two strategies share one result
// shape: fast mode issues a single generation call, quality mode runs an
// analysis call first and feeds its output into the generation call.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/content-pipeline/pkg/types"
)

// ErrMalformedOutput marks a model response that could not be parsed into
// the expected structure. The run fails on it; generation calls are never
// retried.
var ErrMalformedOutput = errors.New("model returned malformed output")

// DefaultFields is the content field set produced when the request does not
// restrict fields.
var DefaultFields = []string{
	"title",
	"meta_description",
	"keywords",
	"introduction",
	"how_to_play",
	"features",
	"faq",
}

// ChatMessage is one message in a model conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single model call.
type ChatRequest struct {
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int

	// ResponseJSON asks the provider for a strict JSON object response.
	ResponseJSON bool
}

// ModelBackend abstracts the model API so tests can supply a double.
type ModelBackend interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// Input bundles everything a generation run derives its prompts from.
type Input struct {
	Request  types.GenerationRequest
	Outcomes []types.ExtractionOutcome
}

// Engine produces the field map for one request.
type Engine struct {
	backend ModelBackend

	// temperatures per call kind; analysis runs cooler for stable structure.
	genTemperature      float64
	analysisTemperature float64
	maxTokens           int
}

// NewEngine returns an Engine over the given backend.
func NewEngine(backend ModelBackend) *Engine {
	return &Engine{
		backend:             backend,
		genTemperature:      0.7,
		analysisTemperature: 0.3,
		maxTokens:           4096,
	}
}

// Generate dispatches to the strategy selected by the request and returns
// the generated field map. notify, if non-nil, receives a human-readable
// step description before each model call.
func (e *Engine) Generate(ctx context.Context, in Input, notify func(step string)) (map[string]string, error) {
	if in.Request.Mode == types.ModeQuality {
		return e.generateQuality(ctx, in, notify)
	}
	return e.generateFast(ctx, in, notify)
}

// generateFast is the single-call strategy.
func (e *Engine) generateFast(ctx context.Context, in Input, notify func(string)) (map[string]string, error) {
	if notify != nil {
		notify("generating content fields")
	}

	system, user, err := renderGenerationPrompts(in, "")
	if err != nil {
		return nil, fmt.Errorf("rendering prompts: %w", err)
	}

	raw, err := e.backend.Complete(ctx, ChatRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:  e.genTemperature,
		MaxTokens:    e.maxTokens,
		ResponseJSON: true,
	})
	if err != nil {
		return nil, fmt.Errorf("generation call: %w", err)
	}

	return parseFields(raw, requestedFields(in.Request))
}

// requestedFields returns the field names the run should produce.
func requestedFields(req types.GenerationRequest) []string {
	if len(req.Fields) > 0 {
		return req.Fields
	}
	return DefaultFields
}

// parseFields decodes the model's field map and restricts it to the
// requested names. A response that is not a JSON string map, or that lacks
// every requested field, is malformed.
func parseFields(raw string, wanted []string) (map[string]string, error) {
	cleaned := stripCodeFence(raw)

	var all map[string]string
	if err := json.Unmarshal([]byte(cleaned), &all); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	fields := make(map[string]string, len(wanted))
	for _, name := range wanted {
		if v, ok := all[name]; ok && strings.TrimSpace(v) != "" {
			fields[name] = v
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: response contains none of the requested fields", ErrMalformedOutput)
	}
	return fields, nil
}

// stripCodeFence removes a surrounding markdown code fence if the model
// wrapped its JSON in one.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if i := strings.LastIndex(trimmed, "```"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return strings.TrimSpace(trimmed)
}
