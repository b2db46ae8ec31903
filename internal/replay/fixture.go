package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/harborops/tactic-optimizer/internal/engine"
	"github.com/harborops/tactic-optimizer/internal/rules"
	"github.com/harborops/tactic-optimizer/internal/telemetry"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a recorded
// telemetry session plus the decision expected for each sample.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Samples         []telemetry.Sample      `json:"samples"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureConfig mirrors the engine configuration with JSON tags.
// A nil Thresholds field keeps the built-in defaults.
type FixtureConfig struct {
	AutoApplyEnabled          bool              `json:"auto_apply_enabled"`
	MinConfidenceForAutoApply float64           `json:"min_confidence_for_auto_apply"`
	NotifyOperators           bool              `json:"notify_operators"`
	Thresholds                *rules.Thresholds `json:"thresholds,omitempty"`
}

// FixtureExpectedResult captures the expected decision for one sample,
// indexed by its position in the samples array.
type FixtureExpectedResult struct {
	Sample   int    `json:"sample"`
	Decision string `json:"decision"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToEngineConfig converts the fixture config to a domain engine config.
func (c *FixtureConfig) ToEngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.AutoApplyEnabled = c.AutoApplyEnabled
	cfg.MinConfidenceForAutoApply = c.MinConfidenceForAutoApply
	cfg.NotifyOperators = c.NotifyOperators
	if c.Thresholds != nil {
		cfg.Thresholds = *c.Thresholds
	}
	return cfg
}

// #endregion fixture-loader
