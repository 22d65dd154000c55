// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the content-generation
// pipeline: search results, extraction outcomes, generation requests and
// results, and per-stage configuration.
package types

// SearchResult represents a candidate competitor page returned by a web
// search provider. Results are immutable once produced; the snippet doubles
// as the fallback content source when page extraction fails.
type SearchResult struct {
	// URL is the candidate page address.
	URL string `json:"url" yaml:"url"`

	// Title is the page title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// Snippet is the provider's short description of the page.
	Snippet string `json:"snippet" yaml:"snippet"`
}

// ExtractionOutcome is the result of extracting readable text from one
// candidate URL. Exactly one branch is the successful one: a non-empty
// Content with Error empty, or a non-empty Error (Content may then hold the
// search snippet substituted by the orchestrator).
type ExtractionOutcome struct {
	// URL is the page the outcome describes.
	URL string `json:"url" yaml:"url"`

	// Title is derived from the first heading-like line of the content,
	// falling back to the URL host.
	Title string `json:"title" yaml:"title"`

	// Content is the normalized, possibly truncated page text.
	Content string `json:"content" yaml:"content"`

	// WordCount is the whitespace-separated token count of Content after
	// stripping lightweight markup.
	WordCount int `json:"word_count" yaml:"word_count"`

	// Error describes why extraction failed, empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the outcome represents a failed extraction. An
// empty Content counts as failure even without an explicit error message.
func (o ExtractionOutcome) Failed() bool {
	return o.Error != "" || o.Content == ""
}

// Citation links a generated field back to the competitor page it drew from.
// Citations come from the original search results, independent of the
// generation mode.
type Citation struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}
