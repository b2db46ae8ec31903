package rules

import (
	"fmt"

	"github.com/harborops/tactic-optimizer/internal/tactic"
	"github.com/harborops/tactic-optimizer/internal/telemetry"
)

// #region thresholds
// Thresholds holds the metric bounds that trigger tactic parameters.
type Thresholds struct {
	EfficiencyMin float64 `json:"efficiency_min"`
	QualityMin    float64 `json:"quality_min"`
	SafetyMin     float64 `json:"safety_min"`
	ErrorRateMax  float64 `json:"error_rate_max"`
}

// DefaultThresholds returns the standard operating bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		EfficiencyMin: 70,
		QualityMin:    75,
		SafetyMin:     90,
		ErrorRateMax:  5,
	}
}

// #endregion thresholds

// #region evaluation
// Evaluation is the output of one rule pass: the issue descriptions that
// fired and the tactic parameters they produced, in rule order.
type Evaluation struct {
	Issues     []string
	Parameters []tactic.Parameter
}

// #endregion evaluation

// #region evaluator
// Evaluator runs the fixed threshold rules plus the short-window trend rule.
// It holds only configuration and never mutates mission state.
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator creates an evaluator with the given bounds.
func NewEvaluator(t Thresholds) *Evaluator {
	return &Evaluator{thresholds: t}
}

// Evaluate runs every rule against the sample and the mission's history.
// history is the mission window in arrival order with sample as its newest
// entry. Rules are independent and additive; their order fixes the order of
// issues and parameters.
func (e *Evaluator) Evaluate(sample telemetry.Sample, history []telemetry.Sample) Evaluation {
	var out Evaluation
	m := sample.Metrics
	t := e.thresholds

	// 1. Efficiency floor
	if m.Efficiency < t.EfficiencyMin {
		out.Issues = append(out.Issues, fmt.Sprintf("Efficiency below threshold (%.1f%%)", m.Efficiency))
		out.Parameters = append(out.Parameters,
			tactic.Parameter{
				Name:             "resource_allocation",
				CurrentValue:     tactic.StringValue("standard"),
				RecommendedValue: tactic.StringValue("aggressive"),
				Reason:           fmt.Sprintf("Efficiency at %.1f%% is under the %.1f%% minimum", m.Efficiency, t.EfficiencyMin),
				Impact:           tactic.ImpactMedium,
				Confidence:       75,
			},
			tactic.Parameter{
				Name:             "process_optimization",
				CurrentValue:     tactic.StringValue("standard"),
				RecommendedValue: tactic.StringValue("streamlined"),
				Reason:           "Streamlined processes recover efficiency without extra resources",
				Impact:           tactic.ImpactHigh,
				Confidence:       80,
			},
		)
	}

	// 2. Quality floor
	if m.QualityScore < t.QualityMin {
		out.Issues = append(out.Issues, fmt.Sprintf("Quality score below threshold (%.1f%%)", m.QualityScore))
		out.Parameters = append(out.Parameters, tactic.Parameter{
			Name:             "quality_checks",
			CurrentValue:     tactic.StringValue("standard"),
			RecommendedValue: tactic.StringValue("enhanced"),
			Reason:           fmt.Sprintf("Quality at %.1f%% is under the %.1f%% minimum", m.QualityScore, t.QualityMin),
			Impact:           tactic.ImpactHigh,
			Confidence:       85,
		})
	}

	// 3. Safety floor
	if m.SafetyScore < t.SafetyMin {
		out.Issues = append(out.Issues, fmt.Sprintf("Safety score below threshold (%.1f%%)", m.SafetyScore))
		out.Parameters = append(out.Parameters, tactic.Parameter{
			Name:             "safety_protocols",
			CurrentValue:     tactic.StringValue("standard"),
			RecommendedValue: tactic.StringValue("strict"),
			Reason:           fmt.Sprintf("Safety at %.1f%% is under the %.1f%% minimum", m.SafetyScore, t.SafetyMin),
			Impact:           tactic.ImpactHigh,
			Confidence:       95,
		})
	}

	// 4. Error rate ceiling
	if m.ErrorRate > t.ErrorRateMax {
		out.Issues = append(out.Issues, fmt.Sprintf("Error rate above threshold (%.1f%%)", m.ErrorRate))
		out.Parameters = append(out.Parameters, tactic.Parameter{
			Name:             "error_prevention",
			CurrentValue:     tactic.StringValue("standard"),
			RecommendedValue: tactic.StringValue("proactive"),
			Reason:           fmt.Sprintf("Error rate at %.1f%% exceeds the %.1f%% ceiling", m.ErrorRate, t.ErrorRateMax),
			Impact:           tactic.ImpactMedium,
			Confidence:       80,
		})
	}

	// 5. Efficiency decline trend. Carries no issue string: a decline is not
	// a threshold breach by itself.
	if trend, ok := efficiencyTrend(history); ok && trend < trendDeclineLimit {
		out.Parameters = append(out.Parameters, tactic.Parameter{
			Name:             "workload_balance",
			CurrentValue:     tactic.StringValue("current"),
			RecommendedValue: tactic.StringValue("rebalanced"),
			Reason:           fmt.Sprintf("Efficiency declined %.1f%% across the last %d samples", -trend, trendWindow),
			Impact:           tactic.ImpactMedium,
			Confidence:       70,
		})
	}

	return out
}

// #endregion evaluator

// #region trend

const (
	trendWindow       = 3
	trendDeclineLimit = -5.0 // relative percent change
)

// efficiencyTrend computes the relative percentage change in efficiency from
// the oldest to the newest sample of the trailing window. ok is false when
// the history is shorter than the window, or when the window's first value
// is 0: the relative change is undefined there, so the trend rule stays
// silent instead of guessing.
func efficiencyTrend(history []telemetry.Sample) (trend float64, ok bool) {
	if len(history) < trendWindow {
		return 0, false
	}
	window := history[len(history)-trendWindow:]
	first := window[0].Metrics.Efficiency
	last := window[len(window)-1].Metrics.Efficiency
	if first == 0 {
		return 0, false
	}
	return (last - first) / first * 100, true
}

// #endregion trend
