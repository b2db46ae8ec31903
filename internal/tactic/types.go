package tactic

import "time"

// #region impact
// Impact estimates how strongly a parameter change affects the mission.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// #endregion impact

// #region status
// Status is the lifecycle state of an adjustment. Proposed adjustments move
// to exactly one terminal state; there is no transition out of StatusApplied
// or StatusRejected.
type Status string

const (
	StatusProposed Status = "proposed"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusApplied  Status = "applied"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApplied || s == StatusRejected
}

// #endregion status

// #region parameter
// Parameter is one atomic proposed change. Parameters are immutable and
// owned by exactly one Adjustment.
type Parameter struct {
	Name             string  `json:"name"`
	CurrentValue     Value   `json:"current_value"`
	RecommendedValue Value   `json:"recommended_value"`
	Reason           string  `json:"reason"`
	Impact           Impact  `json:"impact"`
	Confidence       float64 `json:"confidence"` // 0-100
}

// #endregion parameter

// #region improvement
// Improvement is a partial record of expected metric deltas. Zero fields
// mean no expected change in that dimension.
type Improvement struct {
	Efficiency float64 `json:"efficiency,omitempty"`
	Quality    float64 `json:"quality,omitempty"`
	Safety     float64 `json:"safety,omitempty"`
}

// IsZero reports whether no improvement is expected in any dimension.
func (i Improvement) IsZero() bool {
	return i.Efficiency == 0 && i.Quality == 0 && i.Safety == 0
}

// #endregion improvement

// #region adjustment
// Adjustment is one proposal bundling one or more parameters for a mission.
// Adjustments are retained for audit and never deleted.
type Adjustment struct {
	ID                  string      `json:"id"`
	MissionID           string      `json:"mission_id"`
	TriggeredBy         string      `json:"triggered_by"`
	Parameters          []Parameter `json:"parameters"`
	Reasoning           string      `json:"reasoning"`
	ExpectedImprovement Improvement `json:"expected_improvement"`
	Status              Status      `json:"status"`
	ProposedAt          time.Time   `json:"proposed_at"`
	AppliedAt           *time.Time  `json:"applied_at,omitempty"` // set iff Status == StatusApplied
}

// AvgConfidence is the arithmetic mean of the parameter confidences.
func (a *Adjustment) AvgConfidence() float64 {
	if len(a.Parameters) == 0 {
		return 0
	}
	var sum float64
	for _, p := range a.Parameters {
		sum += p.Confidence
	}
	return sum / float64(len(a.Parameters))
}

// #endregion adjustment

// #region change-history
// Result records the outcome of one apply attempt.
type Result struct {
	Successful bool        `json:"successful"`
	Impact     Improvement `json:"impact"`
	Notes      string      `json:"notes,omitempty"`
}

// ChangeHistory is the immutable audit record of one apply attempt.
// BeforeState and AfterState snapshot parameter values at apply time.
type ChangeHistory struct {
	ID           string           `json:"id"`
	MissionID    string           `json:"mission_id"`
	AdjustmentID string           `json:"adjustment_id"`
	AppliedAt    time.Time        `json:"applied_at"`
	AppliedBy    string           `json:"applied_by,omitempty"`
	BeforeState  map[string]Value `json:"before_state"`
	AfterState   map[string]Value `json:"after_state"`
	Result       Result           `json:"result"`
}

// #endregion change-history
