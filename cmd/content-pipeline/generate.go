// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/content-pipeline/internal/generate"
	"github.com/pdiddy/content-pipeline/internal/pipeline"
	"github.com/pdiddy/content-pipeline/internal/progress"
	"github.com/pdiddy/content-pipeline/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one content-generation pipeline from the command line",
	Long: `Generate runs the full pipeline once: competitor search, page extraction,
and model generation. Progress is printed to stderr; the generated fields
go to stdout as text or, with --json, as a JSON document including
citations and run statistics.`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}
	if err := pipeline.Validate(req); err != nil {
		return err
	}

	cfg := loadConfig()
	log := newLogger()

	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	model := req.Model
	if model == "" {
		model = cfg.Generation.DefaultModel
	}
	profile, err := registry.Resolve(model)
	if err != nil {
		return err
	}

	engine := generate.NewEngine(&generate.OpenAIBackend{Profile: profile})
	orch := pipeline.New(newSearchClient(cfg, log), newExtractor(cfg), engine, log)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	sink := &textSink{out: os.Stderr}

	result, err := orch.Run(context.Background(), req, sink)
	if err != nil {
		return err
	}
	return formatResult(result, jsonOutput)
}

func requestFromFlags(cmd *cobra.Command) (types.GenerationRequest, error) {
	title, _ := cmd.Flags().GetString("title")
	locale, _ := cmd.Flags().GetString("locale")
	keyword, _ := cmd.Flags().GetString("keyword")
	subKeywords, _ := cmd.Flags().GetStringSlice("sub-keywords")
	category, _ := cmd.Flags().GetString("category")
	fields, _ := cmd.Flags().GetStringSlice("fields")
	mode, _ := cmd.Flags().GetString("mode")
	model, _ := cmd.Flags().GetString("model")
	count, _ := cmd.Flags().GetInt("count")
	auxFile, _ := cmd.Flags().GetString("aux-file")

	req := types.GenerationRequest{
		GameTitle:   title,
		Locale:      locale,
		MainKeyword: keyword,
		SubKeywords: subKeywords,
		Category:    category,
		Fields:      fields,
		Mode:        types.Mode(mode),
		Model:       model,
		SearchCount: count,
	}

	if auxFile != "" {
		data, err := os.ReadFile(auxFile)
		if err != nil {
			return req, fmt.Errorf("reading auxiliary text: %w", err)
		}
		req.AuxiliaryText = string(data)
	}
	return req, nil
}

func formatResult(result *types.GenerationResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	for _, name := range generate.DefaultFields {
		text, ok := result.Fields[name]
		if !ok {
			continue
		}
		fmt.Printf("## %s\n\n%s\n\n", name, text)
	}
	if len(result.Citations) > 0 {
		fmt.Println("## sources")
		fmt.Println()
		for _, c := range result.Citations {
			fmt.Printf("- %s (%s)\n", c.Title, c.URL)
		}
		fmt.Println()
	}

	s := result.Statistics
	fmt.Fprintf(os.Stderr, "done in %dms (search %dms, parse %dms, generate %dms); urls: %d ok, %d degraded, %d retries\n",
		s.TotalTimeMs, s.SearchTimeMs, s.ParseTimeMs, s.GenerateTimeMs,
		s.SuccessfulURLs, s.FailedURLs, s.RetriedURLs)
	return nil
}

// textSink renders progress events as single lines on the terminal.
type textSink struct {
	out *os.File
}

func (t *textSink) Progress(u progress.Update) bool {
	line := fmt.Sprintf("[%3d%%] %s: %s", u.Progress, u.Phase, u.Step)
	if u.Details != "" {
		line += " (" + u.Details + ")"
	}
	fmt.Fprintln(t.out, line)
	return true
}

func (t *textSink) Complete(*types.GenerationResult) {
	fmt.Fprintln(t.out, "[100%] complete")
}

func (t *textSink) Fail(message, details string) {
	msg := message
	if details != "" {
		msg += ": " + details
	}
	fmt.Fprintln(t.out, "error: "+strings.TrimSpace(msg))
}

func init() {
	generateCmd.Flags().String("title", "", "game title to generate content for")
	generateCmd.Flags().String("locale", "en", "target locale (en, ja, zh, es, de)")
	generateCmd.Flags().String("keyword", "", "main SEO keyword")
	generateCmd.Flags().StringSlice("sub-keywords", nil, "secondary keywords (comma-separated)")
	generateCmd.Flags().String("category", "", "catalog category for prompt context")
	generateCmd.Flags().StringSlice("fields", nil, "restrict generated fields (default: all)")
	generateCmd.Flags().String("mode", "fast", "generation mode: fast or quality")
	generateCmd.Flags().String("model", "", "model profile name (default: registry default)")
	generateCmd.Flags().Int("count", 0, "competitor pages to consider (0 = default)")
	generateCmd.Flags().String("aux-file", "", "file with auxiliary pre-extracted content")
	generateCmd.Flags().Bool("json", false, "output the full result as JSON")

	rootCmd.AddCommand(generateCmd)
}
