package tactic

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// #region improvement-rules

// ImprovementRule maps parameter-name substrings to one expected-improvement
// bucket. The mapping is kept as explicit data so the accumulation stays
// auditable. A parameter contributes Delta at most once per rule, even when
// several of the rule's substrings match.
type ImprovementRule struct {
	Bucket     Bucket
	Substrings []string
	Delta      float64
}

// Bucket names an expected-improvement dimension.
type Bucket string

const (
	BucketEfficiency Bucket = "efficiency"
	BucketQuality    Bucket = "quality"
	BucketSafety     Bucket = "safety"
)

// ImprovementRules is the active mapping table. Deltas are additive across
// parameters: two safety-related parameters in one pass contribute 40 to the
// safety bucket.
var ImprovementRules = []ImprovementRule{
	{Bucket: BucketEfficiency, Substrings: []string{"efficiency", "resource"}, Delta: 10},
	{Bucket: BucketQuality, Substrings: []string{"quality"}, Delta: 15},
	{Bucket: BucketSafety, Substrings: []string{"safety"}, Delta: 20},
}

func (r ImprovementRule) matches(name string) bool {
	for _, s := range r.Substrings {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// #endregion improvement-rules

// #region synthesize

// Synthesize bundles the parameters produced by one evaluation pass into a
// single adjustment proposal. Returns nil when no parameters were produced:
// no adjustment, no side effects. The caller owns appending the adjustment
// to mission state and mirroring it.
func Synthesize(missionID string, issues []string, params []Parameter, now time.Time) *Adjustment {
	if len(params) == 0 {
		return nil
	}
	return &Adjustment{
		ID:                  uuid.New().String(),
		MissionID:           missionID,
		TriggeredBy:         strings.Join(issues, "; "),
		Parameters:          params,
		Reasoning:           renderReasoning(params),
		ExpectedImprovement: expectedImprovement(params),
		Status:              StatusProposed,
		ProposedAt:          now,
	}
}

// expectedImprovement folds every parameter through the rule table.
func expectedImprovement(params []Parameter) Improvement {
	var imp Improvement
	for _, p := range params {
		for _, rule := range ImprovementRules {
			if !rule.matches(p.Name) {
				continue
			}
			switch rule.Bucket {
			case BucketEfficiency:
				imp.Efficiency += rule.Delta
			case BucketQuality:
				imp.Quality += rule.Delta
			case BucketSafety:
				imp.Safety += rule.Delta
			}
		}
	}
	return imp
}

// renderReasoning produces the deterministic explanation shown to operators,
// one line per parameter in evaluation order.
func renderReasoning(params []Parameter) string {
	var b strings.Builder
	b.WriteString("Proposed tactic changes:")
	for _, p := range params {
		fmt.Fprintf(&b, "\n- %s: %s -> %s (%s; impact=%s, confidence=%.0f%%)",
			p.Name, p.CurrentValue, p.RecommendedValue, p.Reason, p.Impact, p.Confidence)
	}
	return b.String()
}

// #endregion synthesize
