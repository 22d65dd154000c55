// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "content-pipeline/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Provider selects the search backend: "brave" or "duckduckgo".
	Provider string `json:"provider" yaml:"provider"`

	// MaxResults is the maximum number of candidate pages per query (default 5).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// BraveAPIKey authenticates against the Brave Search API.
	BraveAPIKey string `json:"brave_api_key,omitempty" yaml:"brave_api_key,omitempty"`
}

// ExtractConfig holds settings for the page-extraction stage.
type ExtractConfig struct {
	HTTPConfig `yaml:",inline"`

	// ReaderAPIKey authenticates against the reader provider, optional.
	ReaderAPIKey string `json:"reader_api_key,omitempty" yaml:"reader_api_key,omitempty"`

	// UseReader controls whether the reader provider is tried before the
	// direct HTML fallback.
	UseReader bool `json:"use_reader" yaml:"use_reader"`

	// MaxAttempts is the retry cap per URL (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// MaxContentChars is the truncation budget for extracted text passed to
	// the model (default 5000).
	MaxContentChars int `json:"max_content_chars" yaml:"max_content_chars"`
}

// GenerationConfig holds settings for the generation stage.
type GenerationConfig struct {
	// DefaultModel names the model profile used when the request does not
	// select one.
	DefaultModel string `json:"default_model" yaml:"default_model"`

	// ModelsFile is the path to the model profile registry (default "models.yaml").
	ModelsFile string `json:"models_file" yaml:"models_file"`
}

// ServerConfig holds settings for the HTTP server.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`

	// HeartbeatInterval is the minimum interval between keep-alive writes on
	// an idle event stream (default 10s).
	HeartbeatInterval time.Duration `json:"heartbeat_interval" yaml:"heartbeat_interval"`
}

// HistoryConfig holds settings for the run-history store.
type HistoryConfig struct {
	// Path is the SQLite database file (default "history/runs.db").
	Path string `json:"path" yaml:"path"`

	// MaxRows caps how many runs a listing returns (default 50).
	MaxRows int `json:"max_rows" yaml:"max_rows"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Search     SearchConfig     `json:"search" yaml:"search"`
	Extract    ExtractConfig    `json:"extract" yaml:"extract"`
	Generation GenerationConfig `json:"generation" yaml:"generation"`
	Server     ServerConfig     `json:"server" yaml:"server"`
	History    HistoryConfig    `json:"history" yaml:"history"`
}
