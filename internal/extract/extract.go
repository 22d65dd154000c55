// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract converts a candidate URL into normalized readable text.
// It classifies provider failures, bounds each attempt with its own timeout,
// and truncates oversized content at clean boundaries for model consumption.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/content-pipeline/internal/retry"
	"github.com/pdiddy/content-pipeline/pkg/types"
)

const (
	defaultTimeout     = 12 * time.Second
	defaultMaxAttempts = 3
	defaultMaxChars    = 5000
)

// Extractor fetches and normalizes page content. It is safe for use by a
// single pipeline run; runs do not share extractors.
type Extractor struct {
	cfg    types.ExtractConfig
	client *http.Client

	// Policy bounds the retry loop. Tests shrink BaseDelay to avoid sleeps.
	Policy retry.Policy
}

// New returns an Extractor for the given configuration, applying defaults
// for unset values.
func New(cfg types.ExtractConfig) *Extractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.MaxContentChars <= 0 {
		cfg.MaxContentChars = defaultMaxChars
	}
	return &Extractor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		Policy: retry.Policy{MaxAttempts: cfg.MaxAttempts, BaseDelay: time.Second},
	}
}

// Extract fetches pageURL and returns an outcome rather than an error: this
// is the single boundary where retry exhaustion is downgraded into data, so
// the orchestrator never handles extraction errors mid-loop. onRetry is
// forwarded to the retry wrapper for progress reporting.
func (e *Extractor) Extract(ctx context.Context, pageURL string, onRetry retry.OnRetry) types.ExtractionOutcome {
	raw, err := retry.Do(ctx, e.Policy, func(ctx context.Context) (string, error) {
		return e.fetchOnce(ctx, pageURL)
	}, onRetry)
	if err != nil {
		return types.ExtractionOutcome{
			URL:   pageURL,
			Title: hostOf(pageURL),
			Error: err.Error(),
		}
	}

	content := truncate(raw, e.cfg.MaxContentChars)
	return types.ExtractionOutcome{
		URL:       pageURL,
		Title:     deriveTitle(raw, pageURL),
		Content:   content,
		WordCount: countWords(content),
	}
}

// fetchOnce performs a single bounded-timeout extraction attempt.
func (e *Extractor) fetchOnce(ctx context.Context, pageURL string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	if e.cfg.UseReader {
		return e.readerFetch(attemptCtx, pageURL)
	}
	return e.directFetch(attemptCtx, pageURL)
}

// classifyStatus maps an extraction response status to a failure. 429, 403
// and 404 get distinct messages; anything else non-2xx surfaces the code.
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("rate limited by extraction provider")
	case status == http.StatusForbidden:
		return fmt.Errorf("access denied (anti-bot protection)")
	case status == http.StatusNotFound:
		return fmt.Errorf("page not found")
	default:
		return fmt.Errorf("extraction provider returned HTTP %d", status)
	}
}

// deriveTitle returns the first heading-like line of the content, falling
// back to the URL host.
func deriveTitle(content, pageURL string) string {
	for i, line := range strings.Split(content, "\n") {
		if i > 20 {
			break
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Title:"):
			if t := strings.TrimSpace(strings.TrimPrefix(trimmed, "Title:")); t != "" {
				return t
			}
		case strings.HasPrefix(trimmed, "# "):
			if t := strings.TrimSpace(strings.TrimPrefix(trimmed, "# ")); t != "" {
				return t
			}
		}
	}
	return hostOf(pageURL)
}

// hostOf returns the host portion of rawURL, or the raw string if it does
// not parse.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

// markupRunes are stripped before word counting.
const markupRunes = "#*_`>|"

// countWords strips lightweight markup tokens and counts whitespace-separated
// words.
func countWords(content string) int {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(markupRunes, r) {
			return ' '
		}
		return r
	}, content)

	count := 0
	for _, f := range strings.Fields(cleaned) {
		if strings.Trim(f, "-=[]()!.,:") == "" {
			continue
		}
		count++
	}
	return count
}
