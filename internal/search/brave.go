// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/content-pipeline/pkg/types"
)

// braveAPIBase is the Brave web search endpoint. Declared as a var so tests
// can substitute an httptest server.
var braveAPIBase = "https://api.search.brave.com/res/v1/web/search"

// BraveProvider queries the Brave Search API.
type BraveProvider struct {
	Client *http.Client
	APIKey string
	Config types.SearchConfig
}

// Name returns the provider identifier.
func (b *BraveProvider) Name() string { return "brave" }

// Search queries the Brave Search API and returns results in provider order.
func (b *BraveProvider) Search(ctx context.Context, q Query) ([]types.SearchResult, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("empty Brave query")
	}

	count := q.Count
	if count <= 0 {
		count = 5
	}

	params := url.Values{
		"q":     {q.Text},
		"count": {fmt.Sprintf("%d", count)},
	}
	if lang := searchLang(q.Locale); lang != "" {
		params.Set("search_lang", lang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, braveAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", b.Config.UserAgent)
	req.Header.Set("X-Subscription-Token", b.APIKey)

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Brave API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Brave API returned HTTP %d", resp.StatusCode)
	}

	var br braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("parsing Brave response: %w", err)
	}

	results := make([]types.SearchResult, 0, len(br.Web.Results))
	for _, entry := range br.Web.Results {
		if entry.URL == "" {
			continue
		}
		results = append(results, types.SearchResult{
			URL:     entry.URL,
			Title:   strings.TrimSpace(entry.Title),
			Snippet: strings.TrimSpace(entry.Description),
		})
		if len(results) == count {
			break
		}
	}
	return results, nil
}

// Brave API JSON structures.
type braveResponse struct {
	Web struct {
		Results []braveWebResult `json:"results"`
	} `json:"web"`
}

type braveWebResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}
