// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences one content-generation run: validate, search,
// extract each candidate page sequentially, generate, then emit a terminal
// event. The orchestrator owns all timing and URL statistics; its
// collaborators are injected so tests can script every stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/content-pipeline/internal/generate"
	"github.com/pdiddy/content-pipeline/internal/progress"
	"github.com/pdiddy/content-pipeline/internal/retry"
	"github.com/pdiddy/content-pipeline/internal/search"
	"github.com/pdiddy/content-pipeline/pkg/types"
)

// Phase progress sub-ranges. Each phase owns a disjoint slice of 0-100 so a
// phase transition can never move the displayed percentage backward.
const (
	searchBase  = 0
	searchSpan  = 10
	parseBase   = 10
	parseSpan   = 40
	genBase     = 50
	genSpan     = 50
	defaultURLs = 5
)

// Searcher is the search client boundary. It never fails; degradation is
// reported through the second return value.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (results []types.SearchResult, degraded bool)
}

// Extractor is the page-extraction boundary. Retry exhaustion arrives as
// data, never as a Go error.
type Extractor interface {
	Extract(ctx context.Context, url string, onRetry retry.OnRetry) types.ExtractionOutcome
}

// Generator is the generation-engine boundary.
type Generator interface {
	Generate(ctx context.Context, in generate.Input, notify func(step string)) (map[string]string, error)
}

// Orchestrator drives one run per call. It holds no per-run state, so a
// single instance serves concurrent requests.
type Orchestrator struct {
	searcher  Searcher
	extractor Extractor
	engine    Generator
	log       zerolog.Logger
}

// New wires an Orchestrator from its collaborators.
func New(searcher Searcher, extractor Extractor, engine Generator, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		searcher:  searcher,
		extractor: extractor,
		engine:    engine,
		log:       log,
	}
}

// Validate checks the request preconditions. Callers reject invalid
// requests before any stream is opened; Run double-checks and fails without
// emitting events.
func Validate(req types.GenerationRequest) error {
	switch {
	case strings.TrimSpace(req.GameTitle) == "":
		return fmt.Errorf("game title is required")
	case strings.TrimSpace(req.MainKeyword) == "":
		return fmt.Errorf("main keyword is required")
	case strings.TrimSpace(req.Locale) == "":
		return fmt.Errorf("locale is required")
	case req.Mode != "" && !req.Mode.Valid():
		return fmt.Errorf("unknown mode %q", req.Mode)
	}
	return nil
}

// Run executes the pipeline and pushes events to sink. It returns the final
// result on success, a nil result with the context error when the caller
// went away, and the fatal error otherwise. Exactly one terminal event is
// emitted unless the run never started or the caller disconnected.
func (o *Orchestrator) Run(ctx context.Context, req types.GenerationRequest, sink progress.Sink) (*types.GenerationResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if req.Mode == "" {
		req.Mode = types.ModeFast
	}

	start := time.Now()
	var stats types.Statistics

	// SEARCHING: one provider call, one progress event. A provider failure
	// is non-fatal; the run continues with zero candidates.
	count := req.SearchCount
	if count <= 0 {
		count = defaultURLs
	}
	results, degraded := o.searcher.Search(ctx, search.Query{
		Text:   req.MainKeyword + " " + req.GameTitle,
		Count:  count,
		Locale: req.Locale,
	})
	stats.SearchTimeMs = time.Since(start).Milliseconds()
	stats.TotalURLs = len(results)

	searchStep := fmt.Sprintf("found %d competitor pages", len(results))
	if degraded {
		searchStep = "search unavailable, continuing with caller-supplied inputs only"
	}
	if !sink.Progress(progress.Update{
		Phase:    progress.PhaseSearching,
		Step:     searchStep,
		Progress: searchBase + searchSpan,
		Total:    len(results),
	}) {
		return nil, ctx.Err()
	}

	// PARSING: strictly sequential, in provider order. Parallel extraction
	// would interleave completions and invite provider rate limits.
	parseStart := time.Now()
	outcomes, err := o.parseCandidates(ctx, results, &stats, sink)
	if err != nil {
		return nil, err
	}
	stats.ParseTimeMs = time.Since(parseStart).Milliseconds()

	// GENERATING
	genStart := time.Now()
	fields, err := o.generateFields(ctx, req, outcomes, sink)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.log.Error().Err(err).Str("mode", string(req.Mode)).Msg("generation failed")
		sink.Fail("content generation failed", err.Error())
		return nil, err
	}
	stats.GenerateTimeMs = time.Since(genStart).Milliseconds()
	stats.TotalTimeMs = time.Since(start).Milliseconds()

	result := &types.GenerationResult{
		Fields:     fields,
		Citations:  citations(results),
		Statistics: stats,
	}
	sink.Complete(result)
	return result, nil
}

// parseCandidates runs the sequential extraction loop, substituting search
// snippets for failed pages and accumulating URL statistics.
func (o *Orchestrator) parseCandidates(ctx context.Context, results []types.SearchResult, stats *types.Statistics, sink progress.Sink) ([]types.ExtractionOutcome, error) {
	if len(results) == 0 {
		if !sink.Progress(progress.Update{
			Phase:    progress.PhaseParsing,
			Step:     "no competitor pages to extract, skipping",
			Progress: parseBase + parseSpan,
		}) {
			return nil, ctx.Err()
		}
		return nil, nil
	}

	total := len(results)
	outcomes := make([]types.ExtractionOutcome, 0, total)
	for i, r := range results {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !sink.Progress(progress.Update{
			Phase:    progress.PhaseParsing,
			Step:     fmt.Sprintf("extracting page %d of %d", i+1, total),
			Progress: phasePct(parseBase, parseSpan, i, total),
			Current:  i + 1,
			Total:    total,
			Details:  r.URL,
		}) {
			return nil, ctx.Err()
		}

		out := o.extractor.Extract(ctx, r.URL, func(attempt int, lastErr error) {
			stats.RetriedURLs++
			sink.Progress(progress.Update{
				Phase:    progress.PhaseParsing,
				Step:     fmt.Sprintf("retrying page %d of %d (attempt %d failed)", i+1, total, attempt),
				Progress: phasePct(parseBase, parseSpan, i, total),
				Current:  i + 1,
				Total:    total,
				Details:  lastErr.Error(),
			})
		})

		var step string
		if out.Failed() {
			stats.FailedURLs++
			// Degrade to the search snippet so generation still has
			// something for this source.
			out.Content = r.Snippet
			if out.Title == "" {
				out.Title = r.Title
			}
			step = fmt.Sprintf("page %d of %d unavailable, using search snippet", i+1, total)
			o.log.Debug().Str("url", r.URL).Str("reason", out.Error).Msg("extraction degraded to snippet")
		} else {
			stats.SuccessfulURLs++
			step = fmt.Sprintf("extracted page %d of %d (%d words)", i+1, total, out.WordCount)
		}
		outcomes = append(outcomes, out)

		if !sink.Progress(progress.Update{
			Phase:    progress.PhaseParsing,
			Step:     step,
			Progress: phasePct(parseBase, parseSpan, i+1, total),
			Current:  i + 1,
			Total:    total,
			Details:  out.Error,
		}) {
			return nil, ctx.Err()
		}
	}
	return outcomes, nil
}

// generateFields runs the engine, mapping its step notifications onto the
// generating sub-range.
func (o *Orchestrator) generateFields(ctx context.Context, req types.GenerationRequest, outcomes []types.ExtractionOutcome, sink progress.Sink) (map[string]string, error) {
	// Quality mode has two model calls, fast mode one; each notification
	// advances the bar by an even share of the sub-range.
	steps := 1
	if req.Mode == types.ModeQuality {
		steps = 2
	}
	seen := 0
	if !sink.Progress(progress.Update{
		Phase:    progress.PhaseGenerating,
		Step:     "preparing generation prompts",
		Progress: genBase,
	}) {
		return nil, ctx.Err()
	}

	fields, err := o.engine.Generate(ctx, generate.Input{Request: req, Outcomes: outcomes}, func(step string) {
		seen++
		sink.Progress(progress.Update{
			Phase:    progress.PhaseGenerating,
			Step:     step,
			Progress: phasePct(genBase, genSpan, seen, steps+1),
		})
	})
	if err != nil {
		return nil, err
	}

	if !sink.Progress(progress.Update{
		Phase:    progress.PhaseGenerating,
		Step:     "generation finished",
		Progress: genBase + genSpan,
	}) {
		return nil, ctx.Err()
	}
	return fields, nil
}

// citations maps the original search results to result citations,
// independent of whether extraction succeeded.
func citations(results []types.SearchResult) []types.Citation {
	cites := make([]types.Citation, 0, len(results))
	for _, r := range results {
		cites = append(cites, types.Citation{Title: r.Title, URL: r.URL})
	}
	return cites
}

// phasePct maps a within-phase fraction onto the phase's sub-range.
func phasePct(base, span, current, total int) int {
	if total <= 0 {
		return base + span
	}
	return base + int(math.Round(float64(current)/float64(total)*float64(span)))
}

// IsFatalGeneration reports whether err is a malformed-output failure, kept
// for callers that log these distinctly.
func IsFatalGeneration(err error) bool {
	return errors.Is(err, generate.ErrMalformedOutput)
}
