// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Mode selects the generation strategy.
type Mode string

const (
	// ModeFast runs a single generation call.
	ModeFast Mode = "fast"

	// ModeQuality runs an analysis call followed by a generation call,
	// trading latency for output quality.
	ModeQuality Mode = "quality"
)

// Valid reports whether the mode is one of the supported values.
func (m Mode) Valid() bool {
	return m == ModeFast || m == ModeQuality
}

// GenerationRequest holds the caller-supplied inputs for one pipeline run.
// The request is fully provided at start and never mutated mid-stream.
type GenerationRequest struct {
	// GameTitle is the topic the content is generated for.
	GameTitle string `json:"game_title" yaml:"game_title"`

	// Locale is the target language code (e.g. "en", "ja").
	Locale string `json:"locale" yaml:"locale"`

	// MainKeyword is the primary SEO keyword.
	MainKeyword string `json:"main_keyword" yaml:"main_keyword"`

	// SubKeywords are secondary keywords, may be empty.
	SubKeywords []string `json:"sub_keywords,omitempty" yaml:"sub_keywords,omitempty"`

	// Category is an optional catalog category for prompt context.
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// Fields optionally restricts which content fields are produced.
	// Empty means the full default field set.
	Fields []string `json:"fields,omitempty" yaml:"fields,omitempty"`

	// Mode selects the generation strategy; defaults to fast.
	Mode Mode `json:"mode" yaml:"mode"`

	// AuxiliaryText is optional pre-extracted content supplied by the
	// caller, appended to the competitor content.
	AuxiliaryText string `json:"auxiliary_text,omitempty" yaml:"auxiliary_text,omitempty"`

	// Model names the model profile to generate with. Empty selects the
	// registry default.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// SearchCount caps the number of competitor pages considered.
	SearchCount int `json:"search_count,omitempty" yaml:"search_count,omitempty"`
}

// Statistics holds the timing and URL bookkeeping for one completed run.
type Statistics struct {
	TotalTimeMs    int64 `json:"total_time_ms" yaml:"total_time_ms"`
	SearchTimeMs   int64 `json:"search_time_ms" yaml:"search_time_ms"`
	ParseTimeMs    int64 `json:"parse_time_ms" yaml:"parse_time_ms"`
	GenerateTimeMs int64 `json:"generate_time_ms" yaml:"generate_time_ms"`

	// TotalURLs is the number of candidate pages returned by search.
	TotalURLs int `json:"total_urls" yaml:"total_urls"`

	// SuccessfulURLs counts pages whose text was extracted.
	SuccessfulURLs int `json:"successful_urls" yaml:"successful_urls"`

	// FailedURLs counts pages degraded to their search snippet.
	FailedURLs int `json:"failed_urls" yaml:"failed_urls"`

	// RetriedURLs counts individual retry attempts observed across all pages.
	RetriedURLs int `json:"retried_urls" yaml:"retried_urls"`
}

// GenerationResult is the terminal payload of a successful run. It is
// created once, at the end; intermediate state is only visible through
// progress events.
type GenerationResult struct {
	// Fields maps content field names to generated text.
	Fields map[string]string `json:"fields" yaml:"fields"`

	// Citations lists the competitor pages the run considered.
	Citations []Citation `json:"citations" yaml:"citations"`

	// Statistics carries the elapsed-time breakdown and URL counts.
	Statistics Statistics `json:"statistics" yaml:"statistics"`
}
