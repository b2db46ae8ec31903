package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harborops/tactic-optimizer/internal/engine"
	"github.com/harborops/tactic-optimizer/internal/notify"
	"github.com/harborops/tactic-optimizer/internal/store"
	"github.com/harborops/tactic-optimizer/internal/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine against a telemetry stream on stdin",
	Long: `Read one telemetry sample per line (JSON) from stdin and feed it
through the engine. Decisions are logged as they happen; adjustments,
change history, and notifications are mirrored into the database.

Example:
  tail -f telemetry.jsonl | tacopt run --db tactics.db --operators op-07,op-12`,
	RunE: runRun,
}

var (
	runDBPath        string
	runOperators     string
	runAutoApply     bool
	runMinConfidence float64
	runInterval      time.Duration
)

func init() {
	runCmd.Flags().StringVar(&runDBPath, "db", "", "path to the tactics database (default: tactics.db)")
	runCmd.Flags().StringVar(&runOperators, "operators", "", "comma-separated operator IDs assigned to every mission")
	runCmd.Flags().BoolVar(&runAutoApply, "auto-apply", false, "apply high-confidence adjustments without operator review")
	runCmd.Flags().Float64Var(&runMinConfidence, "min-confidence", 0, "minimum average confidence for auto-apply (default: 85)")
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "stale-proposal sweep interval (default: 1m)")
}

// #region run

func runRun(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load(".env")

	dbPath := runDBPath
	if dbPath == "" {
		dbPath = envOr("TACOPT_DB", "tactics.db")
	}
	operators := runOperators
	if operators == "" {
		operators = envOr("TACOPT_OPERATORS", "")
	}

	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	cfg := engine.DefaultConfig()
	cfg.AutoApplyEnabled = runAutoApply
	if runMinConfidence > 0 {
		cfg.MinConfidenceForAutoApply = runMinConfidence
	}
	if runInterval > 0 {
		cfg.MonitoringInterval = runInterval
	}

	directory := notify.StaticDirectory{}
	if operators != "" {
		directory["*"] = strings.Split(operators, ",")
	}

	eng := engine.New(cfg, st, notify.LogNotifier{}, directory)
	ctx := context.Background()
	if err := eng.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer eng.Shutdown()

	fmt.Printf("Tactic optimizer ready. DB: %s | auto-apply: %v (min %.0f%%)\n",
		dbPath, cfg.AutoApplyEnabled, cfg.MinConfidenceForAutoApply)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var sample telemetry.Sample
		if err := json.Unmarshal([]byte(line), &sample); err != nil {
			log.Printf("[RUN] line %d: bad sample: %v", lineNum, err)
			continue
		}

		out, err := eng.Receive(ctx, sample)
		if err != nil {
			log.Printf("[RUN] line %d: %v", lineNum, err)
			continue
		}
		if out == nil {
			continue
		}

		switch {
		case out.AutoApplied:
			log.Printf("[RUN] mission=%s auto-applied %s (avg confidence %.0f%%)",
				sample.MissionID, out.Adjustment.ID, out.Decision.AvgConfidence)
		case out.Escalated:
			log.Printf("[RUN] mission=%s escalated %s to %v (priority %s)",
				sample.MissionID, out.Adjustment.ID, out.Notification.OperatorIDs, out.Notification.Priority)
		default:
			log.Printf("[RUN] mission=%s proposed %s (avg confidence %.0f%%)",
				sample.MissionID, out.Adjustment.ID, out.Decision.AvgConfidence)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	return nil
}

// #endregion run
