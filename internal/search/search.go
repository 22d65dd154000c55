// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries a web search provider for competitor pages.
package search

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/content-pipeline/pkg/types"
)

// Query holds the parameters for one provider call.
type Query struct {
	// Text is the search string.
	Text string

	// Count caps the number of results.
	Count int

	// Locale is the target language code, used for provider language hints.
	Locale string
}

// Provider searches a single web search API. Each provider (Brave,
// DuckDuckGo) implements this interface per the Strategy pattern.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) ([]types.SearchResult, error)
}

// Client wraps a Provider with the degradation contract the orchestrator
// relies on: Search never fails. Provider errors are logged and produce an
// empty result list, so the pipeline continues in basic mode.
type Client struct {
	provider Provider
	log      zerolog.Logger
}

// NewClient returns a Client over the given provider.
func NewClient(p Provider, log zerolog.Logger) *Client {
	return &Client{provider: p, log: log}
}

// Search runs one query. Provider-native ordering is preserved; no
// re-ranking happens here. On any provider failure the returned slice is
// empty and Degraded is true.
func (c *Client) Search(ctx context.Context, q Query) (results []types.SearchResult, degraded bool) {
	if c.provider == nil {
		return nil, true
	}
	results, err := c.provider.Search(ctx, q)
	if err != nil {
		c.log.Warn().Err(err).Str("provider", c.provider.Name()).Str("query", q.Text).
			Msg("search provider failed, continuing without candidates")
		return nil, true
	}
	return results, false
}

// searchLang maps a locale code to the two-letter language hint providers
// expect ("zh-CN" → "zh").
func searchLang(locale string) string {
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		return strings.ToLower(locale[:i])
	}
	return strings.ToLower(locale)
}
