package rules

import (
	"strings"
	"testing"
	"time"

	"github.com/harborops/tactic-optimizer/internal/tactic"
	"github.com/harborops/tactic-optimizer/internal/telemetry"
)

// healthyMetrics passes every default threshold.
func healthyMetrics() telemetry.Metrics {
	return telemetry.Metrics{
		Efficiency:          80,
		ResourceUtilization: 80,
		ProgressRate:        5,
		ErrorRate:           2,
		QualityScore:        80,
		SafetyScore:         95,
	}
}

func sampleWith(m telemetry.Metrics) telemetry.Sample {
	return telemetry.Sample{
		MissionID: "m-1",
		Timestamp: time.Now().UTC(),
		Metrics:   m,
	}
}

func paramNames(params []tactic.Parameter) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}

func TestHealthySampleYieldsNothing(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	s := sampleWith(healthyMetrics())

	out := e.Evaluate(s, []telemetry.Sample{s})
	if len(out.Issues) != 0 || len(out.Parameters) != 0 {
		t.Fatalf("expected no output, got issues=%v params=%v", out.Issues, paramNames(out.Parameters))
	}
}

func TestEfficiencyBreachYieldsExactlyTwoParameters(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	m := healthyMetrics()
	m.Efficiency = 60
	s := sampleWith(m)

	// Fresh history: the trend rule cannot also fire.
	out := e.Evaluate(s, []telemetry.Sample{s})

	if len(out.Parameters) != 2 {
		t.Fatalf("expected exactly 2 parameters, got %v", paramNames(out.Parameters))
	}
	if out.Parameters[0].Name != "resource_allocation" || out.Parameters[1].Name != "process_optimization" {
		t.Fatalf("unexpected parameters: %v", paramNames(out.Parameters))
	}
	if out.Parameters[0].Confidence != 75 || out.Parameters[0].Impact != tactic.ImpactMedium {
		t.Fatalf("resource_allocation: %+v", out.Parameters[0])
	}
	if out.Parameters[1].Confidence != 80 || out.Parameters[1].Impact != tactic.ImpactHigh {
		t.Fatalf("process_optimization: %+v", out.Parameters[1])
	}
	if len(out.Issues) != 1 || out.Issues[0] != "Efficiency below threshold (60.0%)" {
		t.Fatalf("issues: %v", out.Issues)
	}
}

func TestSafetyBreachScenario(t *testing.T) {
	// Efficiency 80, quality 80, error 2, safety 85 against the default
	// safetyMin=90 produces exactly safety_protocols.
	e := NewEvaluator(DefaultThresholds())
	m := healthyMetrics()
	m.SafetyScore = 85
	s := sampleWith(m)

	out := e.Evaluate(s, []telemetry.Sample{s})
	if len(out.Parameters) != 1 {
		t.Fatalf("expected exactly 1 parameter, got %v", paramNames(out.Parameters))
	}
	p := out.Parameters[0]
	if p.Name != "safety_protocols" || p.Confidence != 95 || p.Impact != tactic.ImpactHigh {
		t.Fatalf("safety_protocols: %+v", p)
	}
	if p.CurrentValue.String() != "standard" || p.RecommendedValue.String() != "strict" {
		t.Fatalf("value shapes: %s -> %s", p.CurrentValue, p.RecommendedValue)
	}
	if len(out.Issues) != 1 || !strings.Contains(out.Issues[0], "Safety score below threshold (85.0%)") {
		t.Fatalf("issues: %v", out.Issues)
	}
}

func TestErrorRateBreach(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	m := healthyMetrics()
	m.ErrorRate = 8
	s := sampleWith(m)

	out := e.Evaluate(s, []telemetry.Sample{s})
	if len(out.Parameters) != 1 || out.Parameters[0].Name != "error_prevention" {
		t.Fatalf("expected error_prevention, got %v", paramNames(out.Parameters))
	}
	if out.Parameters[0].Confidence != 80 || out.Parameters[0].Impact != tactic.ImpactMedium {
		t.Fatalf("error_prevention: %+v", out.Parameters[0])
	}
}

func TestQualityBreach(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	m := healthyMetrics()
	m.QualityScore = 60
	s := sampleWith(m)

	out := e.Evaluate(s, []telemetry.Sample{s})
	if len(out.Parameters) != 1 || out.Parameters[0].Name != "quality_checks" {
		t.Fatalf("expected quality_checks, got %v", paramNames(out.Parameters))
	}
	if out.Parameters[0].Confidence != 85 || out.Parameters[0].Impact != tactic.ImpactHigh {
		t.Fatalf("quality_checks: %+v", out.Parameters[0])
	}
}

func TestRulesAreAdditiveInFixedOrder(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	m := telemetry.Metrics{
		Efficiency:   50,
		ErrorRate:    10,
		QualityScore: 50,
		SafetyScore:  50,
	}
	s := sampleWith(m)

	out := e.Evaluate(s, []telemetry.Sample{s})
	want := []string{
		"resource_allocation", "process_optimization",
		"quality_checks", "safety_protocols", "error_prevention",
	}
	got := paramNames(out.Parameters)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("parameter order: expected %v, got %v", want, got)
		}
	}
	if len(out.Issues) != 4 {
		t.Fatalf("expected 4 issues, got %v", out.Issues)
	}
}

func trendHistory(efficiencies ...float64) []telemetry.Sample {
	history := make([]telemetry.Sample, len(efficiencies))
	for i, eff := range efficiencies {
		m := healthyMetrics()
		m.Efficiency = eff
		history[i] = sampleWith(m)
	}
	return history
}

func TestTrendDeclineFiresWorkloadBalance(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	// (70-80)/80*100 = -12.5, below the -5 limit
	history := trendHistory(80, 75, 70)

	out := e.Evaluate(history[2], history)
	if len(out.Parameters) != 1 || out.Parameters[0].Name != "workload_balance" {
		t.Fatalf("expected workload_balance, got %v", paramNames(out.Parameters))
	}
	p := out.Parameters[0]
	if p.Confidence != 70 || p.Impact != tactic.ImpactMedium {
		t.Fatalf("workload_balance: %+v", p)
	}
	// The trend rule carries no issue string
	if len(out.Issues) != 0 {
		t.Fatalf("trend rule must not emit issues, got %v", out.Issues)
	}
}

func TestTrendNeedsThreeSamples(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	history := trendHistory(80, 70)

	out := e.Evaluate(history[1], history)
	if len(out.Parameters) != 0 {
		t.Fatalf("expected no trend with 2 samples, got %v", paramNames(out.Parameters))
	}
}

func TestTrendUsesOnlyLastThreeSamples(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	// Last three are 80, 79, 78: (78-80)/80*100 = -2.5, above the limit.
	history := trendHistory(100, 90, 80, 79, 78)

	out := e.Evaluate(history[4], history)
	if len(out.Parameters) != 0 {
		t.Fatalf("expected no trend fire, got %v", paramNames(out.Parameters))
	}
}

func TestTrendSmallDeclineDoesNotFire(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	// (77-80)/80*100 = -3.75
	history := trendHistory(80, 78, 77)

	out := e.Evaluate(history[2], history)
	if len(out.Parameters) != 0 {
		t.Fatalf("expected no fire at -3.75%%, got %v", paramNames(out.Parameters))
	}
}

func TestTrendZeroDivisorIsSkipped(t *testing.T) {
	// First value of the window is 0: trend is undefined, rule stays silent.
	history := trendHistory(0, 75, 70)
	// Make the newest sample healthy so only the trend could fire, then
	// override its efficiency back to keep the window intact.
	if _, ok := efficiencyTrend(history); ok {
		t.Fatal("expected trend to be undefined with zero divisor")
	}

	e := NewEvaluator(DefaultThresholds())
	out := e.Evaluate(history[2], history)
	for _, p := range out.Parameters {
		if p.Name == "workload_balance" {
			t.Fatal("trend rule fired despite zero divisor")
		}
	}
}
