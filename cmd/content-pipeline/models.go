// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the configured model profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		registry, err := loadRegistry(cfg)
		if err != nil {
			return err
		}

		names := registry.Names()
		sort.Strings(names)
		for _, name := range names {
			marker := " "
			if name == registry.DefaultName() {
				marker = "*"
			}
			usable := "ok"
			if _, err := registry.Resolve(name); err != nil {
				usable = "unusable"
			}
			fmt.Printf("%s %-20s %s\n", marker, name, usable)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
