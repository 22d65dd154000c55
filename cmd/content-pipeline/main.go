// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the content-pipeline CLI. The pipeline
// turns a game title and keywords into localized SEO content: competitor
// search, page extraction, and model-backed generation, with live progress
// over SSE when served and text progress when run one-shot.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/content-pipeline/internal/extract"
	"github.com/pdiddy/content-pipeline/internal/modelconfig"
	"github.com/pdiddy/content-pipeline/internal/search"
	"github.com/pdiddy/content-pipeline/internal/secrets"
	"github.com/pdiddy/content-pipeline/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if set, otherwise the secret value for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the content-pipeline CLI.
var rootCmd = &cobra.Command{
	Use:   "content-pipeline",
	Short: "SEO content generation from competitor research",
	Long: `content-pipeline generates localized SEO content fields for browser games.
A run searches the web for competitor pages, extracts their text, and feeds
the material to a language model that produces the content fields.

Run it one-shot with the generate subcommand, or as an HTTP service with
serve, which streams per-run progress as server-sent events.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./content-pipeline.yaml or ~/.config/content-pipeline/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("content-pipeline")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "content-pipeline"))
		}
	}

	viper.SetDefault("search.provider", "duckduckgo")
	viper.SetDefault("search.max_results", 5)
	viper.SetDefault("search.timeout", "10s")
	viper.SetDefault("extract.timeout", "12s")
	viper.SetDefault("extract.use_reader", true)
	viper.SetDefault("extract.max_attempts", 3)
	viper.SetDefault("extract.max_content_chars", 5000)
	viper.SetDefault("generation.models_file", "models.yaml")
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.heartbeat_interval", "10s")
	viper.SetDefault("history.path", "history/runs.db")
	viper.SetDefault("history.max_rows", 200)

	viper.SetEnvPrefix("CONTENT_PIPELINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig materializes the pipeline configuration from viper, overlaying
// API keys from the secrets directory.
func loadConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("search.timeout"),
				UserAgent: "content-pipeline/" + version,
			},
			Provider:    viper.GetString("search.provider"),
			MaxResults:  viper.GetInt("search.max_results"),
			BraveAPIKey: secretDefault("brave-search-api-key", viper.GetString("search.brave_api_key")),
		},
		Extract: types.ExtractConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("extract.timeout"),
				UserAgent: "content-pipeline/" + version,
			},
			ReaderAPIKey:    secretDefault("reader-api-key", viper.GetString("extract.reader_api_key")),
			UseReader:       viper.GetBool("extract.use_reader"),
			MaxAttempts:     viper.GetInt("extract.max_attempts"),
			MaxContentChars: viper.GetInt("extract.max_content_chars"),
		},
		Generation: types.GenerationConfig{
			DefaultModel: viper.GetString("generation.default_model"),
			ModelsFile:   viper.GetString("generation.models_file"),
		},
		Server: types.ServerConfig{
			Addr:              viper.GetString("server.addr"),
			HeartbeatInterval: viper.GetDuration("server.heartbeat_interval"),
		},
		History: types.HistoryConfig{
			Path:    viper.GetString("history.path"),
			MaxRows: viper.GetInt("history.max_rows"),
		},
	}
}

// newLogger builds the process logger. Serve uses structured output; the
// one-shot commands keep it on stderr so stdout stays parseable.
func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
}

// newSearchClient selects the search provider from configuration. Brave
// needs an API key; without one the client falls back to DuckDuckGo.
func newSearchClient(cfg types.PipelineConfig, log zerolog.Logger) *search.Client {
	var provider search.Provider
	switch cfg.Search.Provider {
	case "brave":
		if cfg.Search.BraveAPIKey == "" {
			log.Warn().Msg("brave provider selected but no API key found, using duckduckgo")
			provider = &search.DuckDuckGoProvider{Config: cfg.Search}
			break
		}
		provider = &search.BraveProvider{APIKey: cfg.Search.BraveAPIKey, Config: cfg.Search}
	case "duckduckgo", "":
		provider = &search.DuckDuckGoProvider{Config: cfg.Search}
	default:
		log.Warn().Str("provider", cfg.Search.Provider).Msg("unknown search provider, search disabled")
	}
	return search.NewClient(provider, log)
}

// newExtractor builds the page extractor from configuration.
func newExtractor(cfg types.PipelineConfig) *extract.Extractor {
	return extract.New(cfg.Extract)
}

// loadRegistry opens the model profile registry with secrets overlaid.
func loadRegistry(cfg types.PipelineConfig) (*modelconfig.Registry, error) {
	return modelconfig.Load(cfg.Generation.ModelsFile, loadedSecrets)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
