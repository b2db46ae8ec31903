package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tacopt",
	Short: "Tacopt - adaptive tactic optimization engine",
	Long: `Tacopt watches mission telemetry, proposes tactic adjustments when
performance degrades, and either applies them automatically or routes
them to the assigned operators for review.`,

	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(inspectCmd)
}

// envOr returns the environment variable value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
