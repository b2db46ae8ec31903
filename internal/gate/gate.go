package gate

import (
	"github.com/harborops/tactic-optimizer/internal/tactic"
)

// #region config
// Config holds the automation thresholds for gate decisions.
type Config struct {
	AutoApplyEnabled          bool
	MinConfidenceForAutoApply float64 // 0-100
}

// DefaultConfig keeps automation off: every proposal escalates to a human.
func DefaultConfig() Config {
	return Config{
		AutoApplyEnabled:          false,
		MinConfidenceForAutoApply: 85,
	}
}

// #endregion config

// #region priority
// Escalation priorities for the operator notification path.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

// #endregion priority

// #region decision
// Decision is the output of the automation gate.
type Decision struct {
	AutoApply     bool
	AvgConfidence float64
	Priority      string // escalation priority when not auto-applied
	RequiresAck   bool   // true iff Priority is high
}

// Decide determines whether an adjustment is applied automatically or
// escalated to an operator. Auto-apply requires the flag plus an average
// parameter confidence at or above the configured minimum.
func Decide(adj *tactic.Adjustment, cfg Config) Decision {
	avg := adj.AvgConfidence()

	priority := PriorityMedium
	for _, p := range adj.Parameters {
		if p.Impact == tactic.ImpactHigh {
			priority = PriorityHigh
			break
		}
	}

	return Decision{
		AutoApply:     cfg.AutoApplyEnabled && avg >= cfg.MinConfidenceForAutoApply,
		AvgConfidence: avg,
		Priority:      priority,
		RequiresAck:   priority == PriorityHigh,
	}
}

// #endregion decision
