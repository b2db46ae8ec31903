package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harborops/tactic-optimizer/internal/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded telemetry session against the engine",
	Long: `Replay feeds a fixture's telemetry samples through a fresh in-memory
engine and compares each decision against the fixture's expectations.
Useful for verifying that rule or gate changes do not silently move
past decisions.

Example:
  tacopt replay --fixture sessions/mission_tuning.json`,
	RunE: runReplay,
}

var replayFixture string

func init() {
	replayCmd.Flags().StringVar(&replayFixture, "fixture", "", "path to fixture JSON (required)")
	replayCmd.MarkFlagRequired("fixture")
}

// #region replay

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := replay.LoadFixture(replayFixture)
	if err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}

	results, err := replay.Replay(context.Background(), f.Config.ToEngineConfig(), f.Samples)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	if f.Description != "" {
		fmt.Println(f.Description)
		fmt.Println()
	}

	fmt.Printf("%-8s| %-14s| %-14s| %s\n", "Sample", "Expected", "Replayed", "Match")
	fmt.Printf("%-8s+%-15s+%-15s+%s\n", "--------", "---------------", "---------------", "------")

	matches := 0
	for _, exp := range f.ExpectedResults {
		if exp.Sample < 0 || exp.Sample >= len(results) {
			return fmt.Errorf("fixture expects sample %d but only %d were replayed", exp.Sample, len(results))
		}
		got := results[exp.Sample].Decision
		match := "DIFF"
		if got == exp.Decision {
			match = "OK"
			matches++
		}
		fmt.Printf("%-8d| %-14s| %-14s| %s\n", exp.Sample, exp.Decision, got, match)
	}

	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d samples, %d quiet, %d proposed, %d auto-applied, %d escalated\n",
		s.TotalSamples, s.Quiet, s.Proposed, s.AutoApplied, s.Escalated)

	if diverge := len(f.ExpectedResults) - matches; diverge > 0 {
		return fmt.Errorf("%d decisions diverged from the fixture", diverge)
	}
	return nil
}

// #endregion replay
