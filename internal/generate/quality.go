// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"encoding/json"
	"fmt"
)

// Analysis is the structured output of the quality-mode analysis call.
type Analysis struct {
	// Summary condenses what the competitor pages cover.
	Summary string `json:"summary"`

	// Insights are angles worth using in the generated content.
	Insights []string `json:"insights"`

	// Gaps are topics the competitors miss.
	Gaps []string `json:"gaps"`

	// Tone describes the register the competitor content uses.
	Tone string `json:"tone"`
}

// generateQuality is the two-call strategy: an analysis call, then the same
// generation call fast mode uses, with the analysis and a locale content
// strategy spliced into the competitor section. The calls are strictly
// sequential; an analysis failure aborts before the generation call.
func (e *Engine) generateQuality(ctx context.Context, in Input, notify func(string)) (map[string]string, error) {
	if notify != nil {
		notify("analyzing competitor content")
	}

	analysis, err := e.analyze(ctx, in)
	if err != nil {
		return nil, err
	}

	if notify != nil {
		notify("generating content fields from analysis")
	}

	system, user, err := renderGenerationPrompts(in, analysisBlock(analysis, in.Request.Locale))
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

// analyze runs the low-temperature analysis call.
func (e *Engine) analyze(ctx context.Context, in Input) (*Analysis, error) {
	prompt, err := renderAnalysisPrompt(in)
	if err != nil {
		return nil, fmt.Errorf("rendering analysis prompt: %w", err)
	}

	raw, err := e.backend.Complete(ctx, ChatRequest{
		Messages: []ChatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature:  e.analysisTemperature,
		MaxTokens:    e.maxTokens,
		ResponseJSON: true,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis call: %w", err)
	}

	var a Analysis
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &a); err != nil {
		return nil, fmt.Errorf("%w: analysis response: %v", ErrMalformedOutput, err)
	}
	if a.Summary == "" {
		return nil, fmt.Errorf("%w: analysis response has no summary", ErrMalformedOutput)
	}
	return &a, nil
}
