package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/harborops/tactic-optimizer/internal/notify"
	"github.com/harborops/tactic-optimizer/internal/tactic"
	"github.com/harborops/tactic-optimizer/internal/telemetry"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSample(mission string, at time.Time) telemetry.Sample {
	return telemetry.Sample{
		MissionID: mission,
		Timestamp: at,
		Metrics: telemetry.Metrics{
			Efficiency:          65,
			ResourceUtilization: 80,
			ProgressRate:        5,
			ErrorRate:           2,
			QualityScore:        80,
			SafetyScore:         95,
		},
		Issues: []string{"Efficiency below threshold (65.0%)"},
	}
}

func testAdjustment(id, mission string, at time.Time) tactic.Adjustment {
	return tactic.Adjustment{
		ID:          id,
		MissionID:   mission,
		TriggeredBy: "Efficiency below threshold (65.0%)",
		Parameters: []tactic.Parameter{{
			Name:             "resource_allocation",
			CurrentValue:     tactic.StringValue("standard"),
			RecommendedValue: tactic.StringValue("aggressive"),
			Reason:           "Increase resource allocation to improve efficiency",
			Impact:           tactic.ImpactMedium,
			Confidence:       75,
		}},
		Reasoning:           "Proposed tactic changes",
		ExpectedImprovement: tactic.Improvement{Efficiency: 10},
		Status:              tactic.StatusProposed,
		ProposedAt:          at,
	}
}

func TestUpsertSampleIdempotent(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	at := time.Now().UTC()

	sample := testSample("m-1", at)
	if err := s.UpsertSample(ctx, sample); err != nil {
		t.Fatalf("UpsertSample: %v", err)
	}
	// Re-delivery of the same sample must not create a second row.
	if err := s.UpsertSample(ctx, sample); err != nil {
		t.Fatalf("UpsertSample again: %v", err)
	}

	n, err := s.SampleCount(ctx, "m-1")
	if err != nil {
		t.Fatalf("SampleCount: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 sample row, got %d", n)
	}
}

func TestUpsertAdjustmentLifecycle(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	at := time.Now().UTC()

	adj := testAdjustment("adj-1", "m-1", at)
	if err := s.UpsertAdjustment(ctx, adj); err != nil {
		t.Fatalf("UpsertAdjustment: %v", err)
	}

	// Second write carries the applied transition.
	applied := at.Add(time.Minute)
	adj.Status = tactic.StatusApplied
	adj.AppliedAt = &applied
	if err := s.UpsertAdjustment(ctx, adj); err != nil {
		t.Fatalf("UpsertAdjustment applied: %v", err)
	}

	records, err := s.AdjustmentsForMission(ctx, "m-1")
	if err != nil {
		t.Fatalf("AdjustmentsForMission: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 adjustment row, got %d", len(records))
	}

	got := records[0]
	if got.Status != tactic.StatusApplied {
		t.Fatalf("expected applied, got %s", got.Status)
	}
	if got.AppliedAt == nil || !got.AppliedAt.Equal(applied) {
		t.Fatalf("applied_at: %v", got.AppliedAt)
	}
	if len(got.Parameters) != 1 || got.Parameters[0].Name != "resource_allocation" {
		t.Fatalf("parameters: %+v", got.Parameters)
	}
	if !got.Parameters[0].RecommendedValue.Equal(tactic.StringValue("aggressive")) {
		t.Fatalf("recommended value: %v", got.Parameters[0].RecommendedValue)
	}
	if got.ExpectedImprovement.Efficiency != 10 {
		t.Fatalf("improvement: %+v", got.ExpectedImprovement)
	}
}

func TestChangeHistoryRoundTrip(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"h-older", "h-newer"} {
		rec := tactic.ChangeHistory{
			ID:           id,
			MissionID:    "m-1",
			AdjustmentID: "adj-1",
			AppliedAt:    base.Add(time.Duration(i) * time.Minute),
			AppliedBy:    "op-1",
			BeforeState:  map[string]tactic.Value{"resource_allocation": tactic.StringValue("standard")},
			AfterState:   map[string]tactic.Value{"resource_allocation": tactic.StringValue("aggressive")},
			Result: tactic.Result{
				Successful: true,
				Impact:     tactic.Improvement{Efficiency: 10},
			},
		}
		if err := s.InsertChangeHistory(ctx, rec); err != nil {
			t.Fatalf("InsertChangeHistory %s: %v", id, err)
		}
		// Duplicate delivery is ignored.
		if err := s.InsertChangeHistory(ctx, rec); err != nil {
			t.Fatalf("InsertChangeHistory duplicate %s: %v", id, err)
		}
	}

	records, err := s.RecentChangeHistory(ctx, 10)
	if err != nil {
		t.Fatalf("RecentChangeHistory: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "h-newer" || records[1].ID != "h-older" {
		t.Fatalf("expected newest first, got %s then %s", records[0].ID, records[1].ID)
	}

	got := records[0]
	if got.AppliedBy != "op-1" {
		t.Fatalf("applied_by: %s", got.AppliedBy)
	}
	if !got.BeforeState["resource_allocation"].Equal(tactic.StringValue("standard")) {
		t.Fatalf("before state: %v", got.BeforeState)
	}
	if !got.AfterState["resource_allocation"].Equal(tactic.StringValue("aggressive")) {
		t.Fatalf("after state: %v", got.AfterState)
	}
	if !got.Result.Successful || got.Result.Impact.Efficiency != 10 {
		t.Fatalf("result: %+v", got.Result)
	}
}

func TestRecentChangeHistoryLimit(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		rec := tactic.ChangeHistory{
			ID:           time.Duration(i).String(),
			MissionID:    "m-1",
			AdjustmentID: "adj-1",
			AppliedAt:    base.Add(time.Duration(i) * time.Second),
			BeforeState:  map[string]tactic.Value{},
			AfterState:   map[string]tactic.Value{},
		}
		if err := s.InsertChangeHistory(ctx, rec); err != nil {
			t.Fatalf("InsertChangeHistory %d: %v", i, err)
		}
	}

	records, err := s.RecentChangeHistory(ctx, 3)
	if err != nil {
		t.Fatalf("RecentChangeHistory: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
}

func TestNotificationRoundTrip(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	n := notify.Notification{
		ID:           "n-1",
		MissionID:    "m-1",
		OperatorIDs:  []string{"op-1", "op-2"},
		AdjustmentID: "adj-1",
		Title:        "Tactic adjustment proposed for mission m-1",
		Message:      "Proposed tactic changes",
		Priority:     "high",
		RequiresAck:  true,
		SentAt:       time.Now().UTC(),
	}
	if err := s.InsertNotification(ctx, n); err != nil {
		t.Fatalf("InsertNotification: %v", err)
	}
	if err := s.InsertNotification(ctx, n); err != nil {
		t.Fatalf("InsertNotification duplicate: %v", err)
	}

	records, err := s.RecentNotifications(ctx, 10)
	if err != nil {
		t.Fatalf("RecentNotifications: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(records))
	}

	got := records[0]
	if got.ID != "n-1" || !got.RequiresAck || got.Priority != "high" {
		t.Fatalf("notification: %+v", got)
	}
	if len(got.OperatorIDs) != 2 || got.OperatorIDs[1] != "op-2" {
		t.Fatalf("operators: %v", got.OperatorIDs)
	}
}
