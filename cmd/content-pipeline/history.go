// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/content-pipeline/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded pipeline runs, or show one run as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	store, err := history.NewStore(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		run, err := store.Get(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("looking up run %s: %w", args[0], err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.List(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	fmt.Printf("%-36s  %-19s  %-8s  %-6s  %s\n", "ID", "Created", "Status", "Mode", "Title")
	for _, r := range runs {
		fmt.Printf("%-36s  %-19s  %-8s  %-6s  %s\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Status, r.Mode, r.GameTitle)
	}
	return nil
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum runs to list")

	rootCmd.AddCommand(historyCmd)
}
