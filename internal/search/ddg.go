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

// ddgAPIBase is the DuckDuckGo instant answer endpoint. Var for test substitution.
var ddgAPIBase = "https://api.duckduckgo.com/"

// DuckDuckGoProvider queries the DuckDuckGo instant answer API. It requires
// no API key and serves as the fallback provider when Brave is unconfigured.
type DuckDuckGoProvider struct {
	Client *http.Client
	Config types.SearchConfig
}

// Name returns the provider identifier.
func (d *DuckDuckGoProvider) Name() string { return "duckduckgo" }

// Search queries DuckDuckGo and flattens related topics into results.
func (d *DuckDuckGoProvider) Search(ctx context.Context, q Query) ([]types.SearchResult, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("empty DuckDuckGo query")
	}

	params := url.Values{
		"q":             {q.Text},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ddgAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", d.Config.UserAgent)

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DuckDuckGo API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DuckDuckGo API returned HTTP %d", resp.StatusCode)
	}

	var dr ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("parsing DuckDuckGo response: %w", err)
	}

	count := q.Count
	if count <= 0 {
		count = 5
	}

	var results []types.SearchResult
	var walk func(topics []ddgTopic)
	walk = func(topics []ddgTopic) {
		for _, topic := range topics {
			if len(results) >= count {
				return
			}
			if topic.Text != "" && topic.FirstURL != "" {
				title, snippet := splitTopicText(topic.Text)
				results = append(results, types.SearchResult{
					URL:     topic.FirstURL,
					Title:   title,
					Snippet: snippet,
				})
			}
			walk(topic.Topics)
		}
	}
	walk(dr.RelatedTopics)

	return results, nil
}

// splitTopicText splits a DuckDuckGo topic string of the form
// "Title - description" into its parts.
func splitTopicText(text string) (title, snippet string) {
	parts := strings.SplitN(text, " - ", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(text), ""
}

// DuckDuckGo API JSON structures.
type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}
