package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/taiwoajasa245/streak-api/internal/motivation"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Request one motivation batch and print it as JSON",
	Long: `Request one batch of verse and quote pairs from the configured generator
and print it. Nothing is stored. Useful for checking GEMINI_API_KEY.

Examples:
  streak-api generate
  GENERATOR_TIMEOUT=40s streak-api generate`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	generator, err := a.generator(ctx)
	if err != nil {
		return err
	}
	if generator == nil {
		return motivation.ErrGeneratorUnavailable
	}

	batch, err := generator.RequestBatch(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(batch)
}
