package engine

import (
	"context"

	"github.com/harborops/tactic-optimizer/internal/notify"
	"github.com/harborops/tactic-optimizer/internal/tactic"
	"github.com/harborops/tactic-optimizer/internal/telemetry"
)

// #region persistence
// Persistence is the durable mirror for engine state. Writes are idempotent
// and best-effort: outside the apply sequence the engine logs failures and
// keeps its in-memory state authoritative for the life of the process.
type Persistence interface {
	UpsertSample(ctx context.Context, s telemetry.Sample) error
	UpsertAdjustment(ctx context.Context, a tactic.Adjustment) error
	InsertChangeHistory(ctx context.Context, h tactic.ChangeHistory) error
	InsertNotification(ctx context.Context, n notify.Notification) error

	// RecentChangeHistory returns up to limit records ordered by apply time,
	// newest first. Used once at startup to warm the in-memory history.
	RecentChangeHistory(ctx context.Context, limit int) ([]tactic.ChangeHistory, error)
}

// #endregion persistence

// #region nop
// NopPersistence discards all writes and holds no history. Used by the
// replay harness and by hosts that run the engine purely in memory.
type NopPersistence struct{}

func (NopPersistence) UpsertSample(context.Context, telemetry.Sample) error        { return nil }
func (NopPersistence) UpsertAdjustment(context.Context, tactic.Adjustment) error   { return nil }
func (NopPersistence) InsertChangeHistory(context.Context, tactic.ChangeHistory) error {
	return nil
}
func (NopPersistence) InsertNotification(context.Context, notify.Notification) error { return nil }
func (NopPersistence) RecentChangeHistory(context.Context, int) ([]tactic.ChangeHistory, error) {
	return nil, nil
}

// #endregion nop
