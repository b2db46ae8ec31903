package telemetry

import (
	"errors"
	"time"
)

// #region metrics
// Metrics is the fixed set of performance signals carried by every sample.
// All values are conventionally in [0, 100] except ProgressRate, which is an
// unbounded rate.
type Metrics struct {
	Efficiency          float64 `json:"efficiency"`
	ResourceUtilization float64 `json:"resource_utilization"`
	ProgressRate        float64 `json:"progress_rate"`
	ErrorRate           float64 `json:"error_rate"`
	QualityScore        float64 `json:"quality_score"`
	SafetyScore         float64 `json:"safety_score"`
}

// #endregion metrics

// #region sample
// Sample is one telemetry observation for a mission. Samples are immutable
// once stored.
type Sample struct {
	MissionID string    `json:"mission_id"`
	Timestamp time.Time `json:"timestamp"`
	Metrics   Metrics   `json:"metrics"`
	Issues    []string  `json:"issues,omitempty"`
}

// ErrMissingMission is returned for samples that carry no mission identifier.
var ErrMissingMission = errors.New("sample has no mission id")

// Validate checks the sample's shape before ingestion.
func (s Sample) Validate() error {
	if s.MissionID == "" {
		return ErrMissingMission
	}
	return nil
}

// #endregion sample
