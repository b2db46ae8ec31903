package engine

import (
	"time"

	"github.com/harborops/tactic-optimizer/internal/rules"
)

// #region config
// Config is the process-wide optimizer configuration. It is set at
// construction and replaceable at any time through UpdateConfig.
type Config struct {
	Enabled                   bool
	AutoApplyEnabled          bool
	MinConfidenceForAutoApply float64 // 0-100
	MonitoringInterval        time.Duration
	NotifyOperators           bool
	Thresholds                rules.Thresholds
}

// DefaultConfig enables evaluation and escalation but keeps automation off.
func DefaultConfig() Config {
	return Config{
		Enabled:                   true,
		AutoApplyEnabled:          false,
		MinConfidenceForAutoApply: 85,
		MonitoringInterval:        time.Minute,
		NotifyOperators:           true,
		Thresholds:                rules.DefaultThresholds(),
	}
}

// #endregion config

// #region config-patch
// ConfigPatch carries partial overrides for UpdateConfig. Nil fields keep
// their current value.
type ConfigPatch struct {
	Enabled                   *bool
	AutoApplyEnabled          *bool
	MinConfidenceForAutoApply *float64
	MonitoringInterval        *time.Duration
	NotifyOperators           *bool
	Thresholds                *rules.Thresholds
}

// merge applies the patch over cfg and returns the result.
func (p ConfigPatch) merge(cfg Config) Config {
	if p.Enabled != nil {
		cfg.Enabled = *p.Enabled
	}
	if p.AutoApplyEnabled != nil {
		cfg.AutoApplyEnabled = *p.AutoApplyEnabled
	}
	if p.MinConfidenceForAutoApply != nil {
		cfg.MinConfidenceForAutoApply = *p.MinConfidenceForAutoApply
	}
	if p.MonitoringInterval != nil && *p.MonitoringInterval > 0 {
		cfg.MonitoringInterval = *p.MonitoringInterval
	}
	if p.NotifyOperators != nil {
		cfg.NotifyOperators = *p.NotifyOperators
	}
	if p.Thresholds != nil {
		cfg.Thresholds = *p.Thresholds
	}
	return cfg
}

// #endregion config-patch
