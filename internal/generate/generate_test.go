// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/content-pipeline/pkg/types"
)

// scriptedBackend returns canned responses in call order.
type scriptedBackend struct {
	responses []string
	errs      []error
	calls     int
	requests  []ChatRequest
}

func (s *scriptedBackend) Complete(_ context.Context, req ChatRequest) (string, error) {
	i := s.calls
	s.calls++
	s.requests = append(s.requests, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", fmt.Errorf("unexpected call %d", i+1)
}

func fastRequest() types.GenerationRequest {
	return types.GenerationRequest{
		GameTitle:   "Snake Arena",
		Locale:      "en",
		MainKeyword: "snake game",
		SubKeywords: []string{"arcade", "browser game"},
		Mode:        types.ModeFast,
	}
}

const goodFieldsJSON = `{
	"title": "Snake Arena - Play the Classic Snake Game",
	"meta_description": "Grow your snake and beat the arena.",
	"keywords": "snake game, arcade",
	"introduction": "Snake Arena brings the classic back.",
	"how_to_play": "Use the arrow keys.",
	"features": "Leaderboards, skins.",
	"faq": "Q: Is it free? A: Yes."
}`

func TestGenerateFastSingleCall(t *testing.T) {
	backend := &scriptedBackend{responses: []string{goodFieldsJSON}}
	e := NewEngine(backend)

	var steps []string
	fields, err := e.Generate(context.Background(), Input{Request: fastRequest()}, func(s string) {
		steps = append(steps, s)
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if backend.calls != 1 {
		t.Errorf("calls = %d, want 1", backend.calls)
	}
	if len(fields) != len(DefaultFields) {
		t.Errorf("got %d fields, want %d", len(fields), len(DefaultFields))
	}
	if fields["title"] == "" {
		t.Error("title field empty")
	}
	if len(steps) != 1 {
		t.Errorf("steps = %v", steps)
	}
	if !backend.requests[0].ResponseJSON {
		t.Error("generation call should request a JSON response")
	}
}

func TestGenerateFastMalformedOutputFatal(t *testing.T) {
	backend := &scriptedBackend{responses: []string{"Sure! Here is your content: title..."}}
	e := NewEngine(backend)

	_, err := e.Generate(context.Background(), Input{Request: fastRequest()}, nil)
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("err = %v, want ErrMalformedOutput", err)
	}
}

func TestGenerateFastFieldSubset(t *testing.T) {
	backend := &scriptedBackend{responses: []string{goodFieldsJSON}}
	e := NewEngine(backend)

	req := fastRequest()
	req.Fields = []string{"title", "faq"}
	fields, err := e.Generate(context.Background(), Input{Request: req}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(fields) != 2 {
		t.Errorf("fields = %v, want only title and faq", fields)
	}
}

func TestGenerateQualityTwoSequentialCalls(t *testing.T) {
	analysisJSON := `{"summary":"Competitors cover controls and scoring.","insights":["mobile play"],"gaps":["strategy tips"],"tone":"casual"}`
	backend := &scriptedBackend{responses: []string{analysisJSON, goodFieldsJSON}}
	e := NewEngine(backend)

	req := fastRequest()
	req.Mode = types.ModeQuality
	fields, err := e.Generate(context.Background(), Input{
		Request: req,
		Outcomes: []types.ExtractionOutcome{
			{URL: "https://a.example", Title: "A", Content: "Competitor text."},
		},
	}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if backend.calls != 2 {
		t.Fatalf("calls = %d, want 2", backend.calls)
	}
	if fields["title"] == "" {
		t.Error("title field empty")
	}

	// The analysis call runs cooler than the generation call.
	if backend.requests[0].Temperature >= backend.requests[1].Temperature {
		t.Errorf("analysis temp %v should be below generation temp %v",
			backend.requests[0].Temperature, backend.requests[1].Temperature)
	}
	// The generation prompt carries the analysis and the locale strategy.
	user := backend.requests[1].Messages[len(backend.requests[1].Messages)-1].Content
	if !strings.Contains(user, "Competitor analysis:") {
		t.Error("generation prompt missing analysis block")
	}
	if !strings.Contains(user, "Content strategy for this locale") {
		t.Error("generation prompt missing locale strategy")
	}
}

func TestGenerateQualityAnalysisFailureAbortsBeforeGeneration(t *testing.T) {
	backend := &scriptedBackend{responses: []string{"not json at all"}}
	e := NewEngine(backend)

	req := fastRequest()
	req.Mode = types.ModeQuality
	_, err := e.Generate(context.Background(), Input{Request: req}, nil)
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("err = %v, want ErrMalformedOutput", err)
	}
	// The generation call must never run after a failed analysis.
	if backend.calls != 1 {
		t.Errorf("calls = %d, want 1", backend.calls)
	}
}

func TestGenerateQualityBackendErrorAborts(t *testing.T) {
	backend := &scriptedBackend{errs: []error{fmt.Errorf("model down")}}
	e := NewEngine(backend)

	req := fastRequest()
	req.Mode = types.ModeQuality
	_, err := e.Generate(context.Background(), Input{Request: req}, nil)
	if err == nil || !strings.Contains(err.Error(), "analysis call") {
		t.Fatalf("err = %v, want analysis call failure", err)
	}
	if backend.calls != 1 {
		t.Errorf("calls = %d, want 1", backend.calls)
	}
}

func TestParseFieldsTolerantOfCodeFence(t *testing.T) {
	raw := "```json\n" + goodFieldsJSON + "\n```"
	fields, err := parseFields(raw, DefaultFields)
	if err != nil {
		t.Fatalf("parseFields: %v", err)
	}
	if fields["keywords"] != "snake game, arcade" {
		t.Errorf("keywords = %q", fields["keywords"])
	}
}

func TestParseFieldsRejectsEmptyIntersection(t *testing.T) {
	_, err := parseFields(`{"unrelated":"x"}`, DefaultFields)
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("err = %v, want ErrMalformedOutput", err)
	}
}

func TestCompetitorSectionMarksDegradedSources(t *testing.T) {
	in := Input{
		Request: fastRequest(),
		Outcomes: []types.ExtractionOutcome{
			{URL: "https://a.example", Title: "A", Content: "full text"},
			{URL: "https://b.example", Title: "B", Content: "the snippet", Error: "page not found"},
		},
	}
	section := competitorSection(in)
	if !strings.Contains(section, "[search snippet only]") {
		t.Error("degraded source not marked")
	}
	if strings.Count(section, "--- Source") != 2 {
		t.Errorf("section = %q", section)
	}
}

func TestCompetitorSectionEmptyFallback(t *testing.T) {
	section := competitorSection(Input{Request: fastRequest()})
	if !strings.Contains(section, "no competitor content") {
		t.Errorf("section = %q", section)
	}
}
