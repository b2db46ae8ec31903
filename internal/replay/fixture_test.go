package replay

import (
	"context"
	"path/filepath"
	"testing"
)

// #region fixture-tests

// TestFixture_MissionTuning loads the mission_tuning fixture, runs Replay(),
// and compares each sample's decision against the expected decision. This is
// the primary regression test — if rule thresholds or the confidence gate
// change, this catches drift.
func TestFixture_MissionTuning(t *testing.T) {
	fixturePath := filepath.Join("testdata", "mission_tuning.json")
	f, err := LoadFixture(fixturePath)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	results, err := Replay(context.Background(), f.Config.ToEngineConfig(), f.Samples)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	if len(results) != len(f.ExpectedResults) {
		t.Fatalf("expected %d results, got %d", len(f.ExpectedResults), len(results))
	}

	for _, expected := range f.ExpectedResults {
		got := results[expected.Sample]
		if got.Decision != expected.Decision {
			t.Errorf("sample %d: expected %s, got %s (reason: %s)",
				expected.Sample, expected.Decision, got.Decision, got.Reason)
		}
	}
}

func TestLoadFixtureMissing(t *testing.T) {
	if _, err := LoadFixture(filepath.Join("testdata", "no_such_fixture.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

// #endregion fixture-tests
