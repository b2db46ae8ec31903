package replay

import (
	"context"
	"fmt"

	"github.com/harborops/tactic-optimizer/internal/engine"
	"github.com/harborops/tactic-optimizer/internal/notify"
	"github.com/harborops/tactic-optimizer/internal/telemetry"
)

// #region types

// Result captures the decision the engine made for one replayed sample.
type Result struct {
	Sample    int
	MissionID string
	Decision  string // "quiet" | "proposed" | "auto_applied" | "escalated"
	Reason    string

	// Set unless the decision is "quiet"
	AdjustmentID string

	// Set only when the decision is "escalated"
	Notification *notify.Notification
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalSamples int
	Quiet        int
	Proposed     int
	AutoApplied  int
	Escalated    int
}

// #endregion types

// #region replay

// Replay feeds a recorded telemetry session through a fresh in-memory
// engine and records the decision per sample. The run never touches
// disk: persistence is a no-op and notifications are captured.
func Replay(ctx context.Context, cfg engine.Config, samples []telemetry.Sample) ([]Result, error) {
	var sink notify.CaptureNotifier
	eng := engine.New(cfg, nil, &sink, notify.StaticDirectory{"*": {"replay-operator"}})

	results := make([]Result, 0, len(samples))
	for i, sample := range samples {
		out, err := eng.Receive(ctx, sample)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}

		r := Result{Sample: i, MissionID: sample.MissionID}
		switch {
		case out == nil:
			r.Decision = "quiet"
		case out.AutoApplied:
			r.Decision = "auto_applied"
			r.AdjustmentID = out.Adjustment.ID
			r.Reason = out.Adjustment.TriggeredBy
		case out.Escalated:
			r.Decision = "escalated"
			r.AdjustmentID = out.Adjustment.ID
			r.Reason = out.Adjustment.TriggeredBy
			r.Notification = out.Notification
		default:
			r.Decision = "proposed"
			r.AdjustmentID = out.Adjustment.ID
			r.Reason = out.Adjustment.TriggeredBy
		}
		results = append(results, r)
	}

	return results, nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{TotalSamples: len(results)}
	for _, r := range results {
		switch r.Decision {
		case "quiet":
			s.Quiet++
		case "proposed":
			s.Proposed++
		case "auto_applied":
			s.AutoApplied++
		case "escalated":
			s.Escalated++
		}
	}
	return s
}

// #endregion replay
