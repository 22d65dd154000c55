// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pdiddy/content-pipeline/internal/generate"
	"github.com/pdiddy/content-pipeline/internal/progress"
	"github.com/pdiddy/content-pipeline/internal/retry"
	"github.com/pdiddy/content-pipeline/internal/search"
	"github.com/pdiddy/content-pipeline/pkg/types"
)

// --- collaborator doubles ---

type fakeSearcher struct {
	results  []types.SearchResult
	degraded bool
}

func (f *fakeSearcher) Search(context.Context, search.Query) ([]types.SearchResult, bool) {
	return f.results, f.degraded
}

// fakeExtractor scripts per-URL behavior: retriesBefore failures are
// reported through onRetry, then the page succeeds unless failAll is set.
type fakeExtractor struct {
	retriesBefore map[string]int
	failAll       bool
}

func (f *fakeExtractor) Extract(_ context.Context, url string, onRetry retry.OnRetry) types.ExtractionOutcome {
	for i := 1; i <= f.retriesBefore[url]; i++ {
		if onRetry != nil {
			onRetry(i, fmt.Errorf("transient failure %d", i))
		}
	}
	if f.failAll {
		return types.ExtractionOutcome{URL: url, Error: "after 3 attempts: page not found"}
	}
	return types.ExtractionOutcome{
		URL:       url,
		Title:     "Page " + url,
		Content:   "Extracted content of " + url,
		WordCount: 4,
	}
}

type fakeEngine struct {
	fields map[string]string
	err    error
	calls  int
	input  generate.Input
	steps  []string
}

func (f *fakeEngine) Generate(_ context.Context, in generate.Input, notify func(string)) (map[string]string, error) {
	f.calls++
	f.input = in
	if notify != nil {
		notify("generating content fields")
		f.steps = append(f.steps, "notified")
	}
	return f.fields, f.err
}

// recordingSink captures events in order.
type recordingSink struct {
	events []progress.Event
	refuse bool
}

func (r *recordingSink) Progress(u progress.Update) bool {
	if r.refuse {
		return false
	}
	r.events = append(r.events, progress.Event{Type: progress.TypeProgress, Data: &u})
	return true
}

func (r *recordingSink) Complete(result *types.GenerationResult) {
	r.events = append(r.events, progress.Event{Type: progress.TypeComplete, Result: result})
}

func (r *recordingSink) Fail(message, details string) {
	r.events = append(r.events, progress.Event{Type: progress.TypeError, Error: message, Details: details})
}

func threeResults() []types.SearchResult {
	return []types.SearchResult{
		{URL: "https://a.example", Title: "A", Snippet: "snippet a"},
		{URL: "https://b.example", Title: "B", Snippet: "snippet b"},
		{URL: "https://c.example", Title: "C", Snippet: "snippet c"},
	}
}

func baseRequest() types.GenerationRequest {
	return types.GenerationRequest{
		GameTitle:   "Snake Arena",
		Locale:      "en",
		MainKeyword: "snake game",
		Mode:        types.ModeFast,
	}
}

func newTestOrchestrator(s Searcher, e Extractor, g Generator) *Orchestrator {
	return New(s, e, g, zerolog.Nop())
}

// checkEventInvariants verifies the protocol rules: phase order, monotonic
// percentages, exactly one terminal event at the end.
func checkEventInvariants(t *testing.T, events []progress.Event) {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no events emitted")
	}

	phaseRank := map[progress.Phase]int{
		progress.PhaseSearching:  0,
		progress.PhaseParsing:    1,
		progress.PhaseGenerating: 2,
	}

	lastPct := -1
	lastRank := -1
	for i, ev := range events {
		terminal := ev.Type != progress.TypeProgress
		if terminal && i != len(events)-1 {
			t.Fatalf("terminal event at position %d of %d", i, len(events))
		}
		if terminal {
			continue
		}
		if ev.Data.Progress < lastPct {
			t.Errorf("progress regressed: %d after %d (event %d: %q)", ev.Data.Progress, lastPct, i, ev.Data.Step)
		}
		lastPct = ev.Data.Progress
		rank, ok := phaseRank[ev.Data.Phase]
		if !ok {
			t.Errorf("unknown phase %q", ev.Data.Phase)
			continue
		}
		if rank < lastRank {
			t.Errorf("phase %q after later phase (event %d)", ev.Data.Phase, i)
		}
		lastRank = rank
	}
}

func phaseEvents(events []progress.Event, phase progress.Phase) []progress.Event {
	var out []progress.Event
	for _, ev := range events {
		if ev.Type == progress.TypeProgress && ev.Data.Phase == phase {
			out = append(out, ev)
		}
	}
	return out
}

// --- scenarios ---

func TestRunAllPagesExtractSuccessfully(t *testing.T) {
	engine := &fakeEngine{fields: map[string]string{"title": "Snake Arena"}}
	o := newTestOrchestrator(
		&fakeSearcher{results: threeResults()},
		&fakeExtractor{},
		engine,
	)
	sink := &recordingSink{}

	result, err := o.Run(context.Background(), baseRequest(), sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	checkEventInvariants(t, sink.events)

	last := sink.events[len(sink.events)-1]
	if last.Type != progress.TypeComplete {
		t.Fatalf("terminal event = %v", last.Type)
	}
	if got := len(phaseEvents(sink.events, progress.PhaseSearching)); got != 1 {
		t.Errorf("searching events = %d, want 1", got)
	}
	if got := len(phaseEvents(sink.events, progress.PhaseParsing)); got < 3 {
		t.Errorf("parsing events = %d, want at least 3", got)
	}

	stats := result.Statistics
	if stats.TotalURLs != 3 || stats.SuccessfulURLs != 3 || stats.FailedURLs != 0 || stats.RetriedURLs != 0 {
		t.Errorf("statistics = %+v", stats)
	}
	if len(result.Citations) != 3 {
		t.Errorf("citations = %d, want 3", len(result.Citations))
	}
	if engine.calls != 1 {
		t.Errorf("engine calls = %d, want 1", engine.calls)
	}
}

func TestRunAllPagesFailDegradesToSnippets(t *testing.T) {
	engine := &fakeEngine{fields: map[string]string{"title": "T"}}
	o := newTestOrchestrator(
		&fakeSearcher{results: threeResults()},
		&fakeExtractor{failAll: true},
		engine,
	)
	sink := &recordingSink{}

	result, err := o.Run(context.Background(), baseRequest(), sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	checkEventInvariants(t, sink.events)

	stats := result.Statistics
	if stats.FailedURLs != 3 || stats.SuccessfulURLs != 0 {
		t.Errorf("statistics = %+v", stats)
	}
	if len(result.Citations) != 3 {
		t.Errorf("citations = %d, want 3", len(result.Citations))
	}

	// The engine received the search snippets in place of page content.
	if len(engine.input.Outcomes) != 3 {
		t.Fatalf("engine outcomes = %d", len(engine.input.Outcomes))
	}
	for i, out := range engine.input.Outcomes {
		if !strings.HasPrefix(out.Content, "snippet ") {
			t.Errorf("outcome %d content = %q, want snippet substitution", i, out.Content)
		}
		if out.Error == "" {
			t.Errorf("outcome %d should keep its error for prompt marking", i)
		}
	}
}

func TestRunSearchProviderFailureStillCompletes(t *testing.T) {
	engine := &fakeEngine{fields: map[string]string{"title": "T"}}
	o := newTestOrchestrator(
		&fakeSearcher{degraded: true},
		&fakeExtractor{},
		engine,
	)
	sink := &recordingSink{}

	result, err := o.Run(context.Background(), baseRequest(), sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	checkEventInvariants(t, sink.events)

	searching := phaseEvents(sink.events, progress.PhaseSearching)
	if len(searching) != 1 || !strings.Contains(searching[0].Data.Step, "search unavailable") {
		t.Errorf("searching events = %+v", searching)
	}
	parsing := phaseEvents(sink.events, progress.PhaseParsing)
	if len(parsing) != 1 || !strings.Contains(parsing[0].Data.Step, "skipping") {
		t.Errorf("parsing events = %+v", parsing)
	}
	if result.Statistics.TotalURLs != 0 {
		t.Errorf("total urls = %d", result.Statistics.TotalURLs)
	}
	if len(result.Citations) != 0 {
		t.Errorf("citations = %d, want 0", len(result.Citations))
	}
	if engine.calls != 1 {
		t.Errorf("engine calls = %d, want 1", engine.calls)
	}
}

func TestRunMalformedOutputTerminatesWithSingleError(t *testing.T) {
	engine := &fakeEngine{err: fmt.Errorf("analysis call: %w", generate.ErrMalformedOutput)}
	req := baseRequest()
	req.Mode = types.ModeQuality

	o := newTestOrchestrator(&fakeSearcher{results: threeResults()}, &fakeExtractor{}, engine)
	sink := &recordingSink{}

	_, err := o.Run(context.Background(), req, sink)
	if !IsFatalGeneration(err) {
		t.Fatalf("err = %v, want malformed-output failure", err)
	}

	var errorEvents, completeEvents int
	for _, ev := range sink.events {
		switch ev.Type {
		case progress.TypeError:
			errorEvents++
		case progress.TypeComplete:
			completeEvents++
		}
	}
	if errorEvents != 1 || completeEvents != 0 {
		t.Errorf("error events = %d, complete events = %d", errorEvents, completeEvents)
	}
	last := sink.events[len(sink.events)-1]
	if last.Type != progress.TypeError {
		t.Errorf("stream did not end with the error event")
	}
}

func TestRunCountsRetries(t *testing.T) {
	engine := &fakeEngine{fields: map[string]string{"title": "T"}}
	o := newTestOrchestrator(
		&fakeSearcher{results: threeResults()},
		&fakeExtractor{retriesBefore: map[string]int{
			"https://a.example": 2,
			"https://c.example": 1,
		}},
		engine,
	)
	sink := &recordingSink{}

	result, err := o.Run(context.Background(), baseRequest(), sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	checkEventInvariants(t, sink.events)

	if result.Statistics.RetriedURLs != 3 {
		t.Errorf("retried urls = %d, want 3", result.Statistics.RetriedURLs)
	}
	if result.Statistics.SuccessfulURLs != 3 {
		t.Errorf("successful urls = %d, want 3", result.Statistics.SuccessfulURLs)
	}

	retrySteps := 0
	for _, ev := range phaseEvents(sink.events, progress.PhaseParsing) {
		if strings.Contains(ev.Data.Step, "retrying") {
			retrySteps++
		}
	}
	if retrySteps != 3 {
		t.Errorf("retry progress events = %d, want 3", retrySteps)
	}
}

func TestRunCancelledCallerStopsWithoutTerminalEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &fakeEngine{fields: map[string]string{"title": "T"}}
	o := newTestOrchestrator(&fakeSearcher{results: threeResults()}, &fakeExtractor{}, engine)
	sink := &recordingSink{refuse: true}

	_, err := o.Run(ctx, baseRequest(), sink)
	if err == nil {
		t.Fatal("expected context error")
	}
	for _, ev := range sink.events {
		if ev.Type != progress.TypeProgress {
			t.Errorf("terminal event emitted after disconnect: %+v", ev)
		}
	}
	if engine.calls != 0 {
		t.Errorf("engine called %d times after disconnect", engine.calls)
	}
}

// generatingDisconnectSink simulates a caller that goes away right as the
// generating phase starts.
type generatingDisconnectSink struct {
	recordingSink
	cancel context.CancelFunc
}

func (d *generatingDisconnectSink) Progress(u progress.Update) bool {
	if u.Phase == progress.PhaseGenerating {
		d.cancel()
		return false
	}
	return d.recordingSink.Progress(u)
}

func TestRunDisconnectBeforeGenerationSkipsEngineCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := &fakeEngine{fields: map[string]string{"title": "T"}}
	o := newTestOrchestrator(&fakeSearcher{results: threeResults()}, &fakeExtractor{}, engine)
	sink := &generatingDisconnectSink{cancel: cancel}

	_, err := o.Run(ctx, baseRequest(), sink)
	if err == nil {
		t.Fatal("expected context error after disconnect")
	}
	if engine.calls != 0 {
		t.Errorf("engine called %d times after disconnect", engine.calls)
	}
	for _, ev := range sink.events {
		if ev.Type != progress.TypeProgress {
			t.Errorf("terminal event emitted after disconnect: %+v", ev)
		}
	}
}

func TestRunPhaseSubRanges(t *testing.T) {
	engine := &fakeEngine{fields: map[string]string{"title": "T"}}
	o := newTestOrchestrator(&fakeSearcher{results: threeResults()}, &fakeExtractor{}, engine)
	sink := &recordingSink{}

	if _, err := o.Run(context.Background(), baseRequest(), sink); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, ev := range sink.events {
		if ev.Type != progress.TypeProgress {
			continue
		}
		p := ev.Data.Progress
		switch ev.Data.Phase {
		case progress.PhaseSearching:
			if p < 0 || p > 10 {
				t.Errorf("searching progress %d outside 0-10", p)
			}
		case progress.PhaseParsing:
			if p < 10 || p > 50 {
				t.Errorf("parsing progress %d outside 10-50", p)
			}
		case progress.PhaseGenerating:
			if p < 50 || p > 100 {
				t.Errorf("generating progress %d outside 50-100", p)
			}
		}
	}

	gen := phaseEvents(sink.events, progress.PhaseGenerating)
	if gen[len(gen)-1].Data.Progress != 100 {
		t.Errorf("final generating progress = %d, want 100", gen[len(gen)-1].Data.Progress)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*types.GenerationRequest)
		wantErr bool
	}{
		{"valid", func(*types.GenerationRequest) {}, false},
		{"missing title", func(r *types.GenerationRequest) { r.GameTitle = " " }, true},
		{"missing keyword", func(r *types.GenerationRequest) { r.MainKeyword = "" }, true},
		{"missing locale", func(r *types.GenerationRequest) { r.Locale = "" }, true},
		{"bad mode", func(r *types.GenerationRequest) { r.Mode = "turbo" }, true},
		{"empty mode ok", func(r *types.GenerationRequest) { r.Mode = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.mutate(&req)
			err := Validate(req)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidationFailureEmitsNoEvents(t *testing.T) {
	o := newTestOrchestrator(&fakeSearcher{}, &fakeExtractor{}, &fakeEngine{})
	sink := &recordingSink{}

	req := baseRequest()
	req.GameTitle = ""
	_, err := o.Run(context.Background(), req, sink)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(sink.events) != 0 {
		t.Errorf("events emitted before streaming should exist: %+v", sink.events)
	}
}
