package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harborops/tactic-optimizer/internal/store"
	"github.com/harborops/tactic-optimizer/internal/tactic"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect stored adjustments and change history",
	Long: `Inspect reads the tactics database and prints either a mission's
adjustments or the most recent applied changes across all missions.

Example:
  tacopt inspect --db tactics.db --mission m-har-12
  tacopt inspect --db tactics.db --last 10 --json`,
	RunE: runInspect,
}

var (
	inspectDBPath  string
	inspectMission string
	inspectLast    int
	inspectJSON    bool
)

func init() {
	inspectCmd.Flags().StringVar(&inspectDBPath, "db", "", "path to the tactics database (default: tactics.db)")
	inspectCmd.Flags().StringVar(&inspectMission, "mission", "", "show adjustments for one mission")
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "show N most recent applied changes")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON instead of table")
}

// #region inspect

func runInspect(cmd *cobra.Command, args []string) error {
	dbPath := inspectDBPath
	if dbPath == "" {
		dbPath = envOr("TACOPT_DB", "tactics.db")
	}

	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if inspectMission != "" {
		return printMissionAdjustments(ctx, st, inspectMission)
	}
	return printRecentChanges(ctx, st, inspectLast)
}

func printMissionAdjustments(ctx context.Context, st *store.Store, missionID string) error {
	records, err := st.AdjustmentsForMission(ctx, missionID)
	if err != nil {
		return err
	}

	if inspectJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	fmt.Printf("%-36s| %-9s| %-6s| %-20s| %s\n", "Adjustment", "Status", "Params", "Proposed", "Triggered by")
	for _, adj := range records {
		trigger := adj.TriggeredBy
		if len(trigger) > 48 {
			trigger = trigger[:45] + "..."
		}
		fmt.Printf("%-36s| %-9s| %-6d| %-20s| %s\n",
			adj.ID, adj.Status, len(adj.Parameters),
			adj.ProposedAt.Format(time.RFC3339), trigger)
	}
	fmt.Printf("\n%d adjustments for mission %s\n", len(records), missionID)
	return nil
}

func printRecentChanges(ctx context.Context, st *store.Store, limit int) error {
	records, err := st.RecentChangeHistory(ctx, limit)
	if err != nil {
		return err
	}

	if inspectJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	fmt.Printf("%-26s| %-12s| %-10s| %-8s| %s\n", "Applied", "Mission", "By", "Result", "Changes")
	for _, rec := range records {
		result := "ok"
		if !rec.Result.Successful {
			result = "failed"
		}
		fmt.Printf("%-26s| %-12s| %-10s| %-8s| %s\n",
			rec.AppliedAt.Format(time.RFC3339), rec.MissionID, rec.AppliedBy,
			result, summarizeChanges(rec))
	}
	fmt.Printf("\n%d applied changes\n", len(records))
	return nil
}

// summarizeChanges renders "name: before -> after" pairs for one record.
func summarizeChanges(rec tactic.ChangeHistory) string {
	out := ""
	for name, before := range rec.BeforeState {
		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%s: %s -> %s", name, before, rec.AfterState[name])
	}
	return out
}

// #endregion inspect
