package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/harborops/tactic-optimizer/internal/gate"
	"github.com/harborops/tactic-optimizer/internal/notify"
	"github.com/harborops/tactic-optimizer/internal/rules"
	"github.com/harborops/tactic-optimizer/internal/tactic"
	"github.com/harborops/tactic-optimizer/internal/telemetry"
)

// #region constants

const (
	// proposalTTL is the fixed age ceiling after which a proposal that saw
	// neither automatic nor human action is swept into rejected.
	proposalTTL = 5 * time.Minute

	// warmHistoryLimit bounds the change-history records loaded at startup.
	warmHistoryLimit = 50
)

// Sentinel errors for the lifecycle operations.
var (
	ErrAdjustmentNotFound = errors.New("adjustment not found")
	ErrAdjustmentTerminal = errors.New("adjustment already in a terminal state")
)

// #endregion constants

// #region engine-struct

// Engine is the adaptive tactic optimization engine for one process. It
// owns the per-mission telemetry windows, adjustment lists, and change
// history; the Persistence mirror is the durable copy across restarts.
//
// A single engine-wide mutex serializes ingestion, lifecycle operations,
// and the expiration sweep. Volume is low enough that per-mission locking
// would buy nothing.
type Engine struct {
	mu        sync.Mutex
	config    Config
	evaluator *rules.Evaluator

	store     Persistence
	notifier  notify.Notifier
	directory notify.OperatorDirectory

	histories     map[string]*telemetry.History
	adjustments   map[string][]*tactic.Adjustment
	changeHistory map[string][]tactic.ChangeHistory

	running     bool
	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

// New creates an engine. store may be nil for in-memory only runs; notifier
// and directory may be nil when the host has not wired escalation.
func New(cfg Config, store Persistence, notifier notify.Notifier, directory notify.OperatorDirectory) *Engine {
	if store == nil {
		store = NopPersistence{}
	}
	if cfg.MonitoringInterval <= 0 {
		cfg.MonitoringInterval = DefaultConfig().MonitoringInterval
	}
	return &Engine{
		config:        cfg,
		evaluator:     rules.NewEvaluator(cfg.Thresholds),
		store:         store,
		notifier:      notifier,
		directory:     directory,
		histories:     make(map[string]*telemetry.History),
		adjustments:   make(map[string][]*tactic.Adjustment),
		changeHistory: make(map[string][]tactic.ChangeHistory),
	}
}

// #endregion engine-struct

// #region lifecycle

// Initialize warms the change-history map from the mirror and starts the
// expiration sweep. Call Shutdown to stop the sweep.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("engine already initialized")
	}

	records, err := e.store.RecentChangeHistory(ctx, warmHistoryLimit)
	if err != nil {
		log.Printf("[ENGINE] warm change history: %v", err)
	} else {
		// Records arrive newest first; rebuild per-mission lists oldest first.
		for i := len(records) - 1; i >= 0; i-- {
			rec := records[i]
			e.changeHistory[rec.MissionID] = append(e.changeHistory[rec.MissionID], rec)
		}
	}

	e.startSweepLocked()
	e.running = true
	interval := e.config.MonitoringInterval
	e.mu.Unlock()

	log.Printf("[ENGINE] initialized, sweep interval %s", interval)
	return nil
}

// Shutdown stops the periodic sweep and waits for it to exit. In-flight
// apply or notify calls complete normally.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel, done := e.sweepCancel, e.sweepDone
	e.mu.Unlock()

	cancel()
	<-done
	log.Printf("[ENGINE] shut down")
}

// GetConfig returns a copy of the current configuration.
func (e *Engine) GetConfig() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// UpdateConfig merges the patch over the current configuration and returns
// the result. If the monitoring interval changed while the sweep is
// running, the sweep restarts with the new period.
func (e *Engine) UpdateConfig(patch ConfigPatch) Config {
	e.mu.Lock()
	oldInterval := e.config.MonitoringInterval
	e.config = patch.merge(e.config)
	if patch.Thresholds != nil {
		e.evaluator = rules.NewEvaluator(e.config.Thresholds)
	}
	cfg := e.config
	restart := e.running && cfg.MonitoringInterval != oldInterval
	var cancel context.CancelFunc
	var done chan struct{}
	if restart {
		cancel, done = e.sweepCancel, e.sweepDone
	}
	e.mu.Unlock()

	if restart {
		cancel()
		<-done
		e.mu.Lock()
		if e.running {
			e.startSweepLocked()
		}
		e.mu.Unlock()
		log.Printf("[ENGINE] sweep restarted, interval %s", cfg.MonitoringInterval)
	}
	return cfg
}

// #endregion lifecycle

// #region receive

// Outcome reports what one ingested sample produced. Adjustment is nil when
// no rule fired.
type Outcome struct {
	Adjustment   *tactic.Adjustment
	Decision     gate.Decision
	AutoApplied  bool
	Escalated    bool
	Notification *notify.Notification
}

// Receive ingests one telemetry sample: appends it to the mission window,
// mirrors it, and synchronously evaluates it. Any resulting adjustment,
// auto-apply, or escalation has completed before Receive returns. Per-sample
// failures degrade (logged), never halt ingestion of later samples.
func (e *Engine) Receive(ctx context.Context, sample telemetry.Sample) (*Outcome, error) {
	if err := sample.Validate(); err != nil {
		return nil, fmt.Errorf("receive sample: %w", err)
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now().UTC()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.histories[sample.MissionID]
	if h == nil {
		h = &telemetry.History{}
		e.histories[sample.MissionID] = h
	}
	h.Append(sample)

	if err := e.store.UpsertSample(ctx, sample); err != nil {
		log.Printf("[ENGINE] persist sample mission=%s: %v", sample.MissionID, err)
	}

	// Disabled engines still record telemetry, they just stop optimizing.
	if !e.config.Enabled {
		return nil, nil
	}

	eval := e.evaluator.Evaluate(sample, h.Samples())
	adj := tactic.Synthesize(sample.MissionID, eval.Issues, eval.Parameters, time.Now().UTC())
	if adj == nil {
		return nil, nil
	}

	e.adjustments[sample.MissionID] = append(e.adjustments[sample.MissionID], adj)
	if err := e.store.UpsertAdjustment(ctx, *adj); err != nil {
		log.Printf("[ENGINE] persist adjustment %s: %v", adj.ID, err)
	}

	decision := gate.Decide(adj, gate.Config{
		AutoApplyEnabled:          e.config.AutoApplyEnabled,
		MinConfidenceForAutoApply: e.config.MinConfidenceForAutoApply,
	})
	out := &Outcome{Decision: decision}

	if decision.AutoApply {
		if err := e.applyLocked(ctx, adj, "auto"); err != nil {
			log.Printf("[ENGINE] auto-apply %s: %v", adj.ID, err)
		} else {
			out.AutoApplied = true
		}
	} else if e.config.NotifyOperators {
		if n := e.escalateLocked(ctx, adj, decision); n != nil {
			out.Escalated = true
			out.Notification = n
		}
	}

	snapshot := *adj
	out.Adjustment = &snapshot
	return out, nil
}

// escalateLocked resolves operators and routes the proposal to them. A
// mission with no assigned operators skips the notification with a warning;
// delivery errors never affect the adjustment's status.
func (e *Engine) escalateLocked(ctx context.Context, adj *tactic.Adjustment, d gate.Decision) *notify.Notification {
	var operators []string
	if e.directory != nil {
		ops, err := e.directory.OperatorsFor(adj.MissionID)
		if err != nil {
			log.Printf("[NOTIFY] operator lookup mission=%s: %v", adj.MissionID, err)
			return nil
		}
		operators = ops
	}
	if len(operators) == 0 {
		log.Printf("[NOTIFY] no operators assigned to mission %s, skipping notification", adj.MissionID)
		return nil
	}

	n := notify.Build(adj, d.Priority, d.RequiresAck, operators, time.Now().UTC())
	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, n); err != nil {
			log.Printf("[NOTIFY] deliver %s: %v", n.ID, err)
		}
	}
	if err := e.store.InsertNotification(ctx, n); err != nil {
		log.Printf("[NOTIFY] persist %s: %v", n.ID, err)
	}
	return &n
}

// #endregion receive

// #region apply

// Apply transitions a proposal to applied, snapshotting before/after state
// into the change history. appliedBy is an optional actor identifier. A
// failed apply leaves the adjustment rejected, never stuck in proposed.
func (e *Engine) Apply(ctx context.Context, adjustmentID, appliedBy string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	adj := e.findLocked(adjustmentID)
	if adj == nil {
		return fmt.Errorf("apply %s: %w", adjustmentID, ErrAdjustmentNotFound)
	}
	if adj.Status.Terminal() {
		return fmt.Errorf("apply %s (status %s): %w", adjustmentID, adj.Status, ErrAdjustmentTerminal)
	}
	return e.applyLocked(ctx, adj, appliedBy)
}

func (e *Engine) applyLocked(ctx context.Context, adj *tactic.Adjustment, appliedBy string) error {
	now := time.Now().UTC()

	before := make(map[string]tactic.Value, len(adj.Parameters))
	after := make(map[string]tactic.Value, len(adj.Parameters))
	for _, p := range adj.Parameters {
		before[p.Name] = p.CurrentValue
		after[p.Name] = p.RecommendedValue
	}

	adj.Status = tactic.StatusApplied
	adj.AppliedAt = &now

	entry := tactic.ChangeHistory{
		ID:           ulid.Make().String(),
		MissionID:    adj.MissionID,
		AdjustmentID: adj.ID,
		AppliedAt:    now,
		AppliedBy:    appliedBy,
		BeforeState:  before,
		AfterState:   after,
		Result:       tactic.Result{Successful: true, Impact: adj.ExpectedImprovement},
	}

	err := e.store.UpsertAdjustment(ctx, *adj)
	if err == nil {
		err = e.store.InsertChangeHistory(ctx, entry)
	}
	if err != nil {
		// The apply sequence itself failed: land in rejected, record the
		// failed attempt, report failure.
		adj.Status = tactic.StatusRejected
		adj.AppliedAt = nil
		entry.Result = tactic.Result{Successful: false, Notes: err.Error()}
		if perr := e.store.UpsertAdjustment(ctx, *adj); perr != nil {
			log.Printf("[ENGINE] persist rejected adjustment %s: %v", adj.ID, perr)
		}
		if perr := e.store.InsertChangeHistory(ctx, entry); perr != nil {
			log.Printf("[ENGINE] persist change history %s: %v", entry.ID, perr)
		}
		e.changeHistory[adj.MissionID] = append(e.changeHistory[adj.MissionID], entry)
		return fmt.Errorf("apply adjustment %s: %w", adj.ID, err)
	}

	e.changeHistory[adj.MissionID] = append(e.changeHistory[adj.MissionID], entry)
	log.Printf("[ENGINE] applied adjustment %s mission=%s by=%s", adj.ID, adj.MissionID, appliedBy)
	return nil
}

// Reject declines a proposal explicitly (proposed -> rejected). actor is an
// optional operator identifier for the log.
func (e *Engine) Reject(ctx context.Context, adjustmentID, actor string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	adj := e.findLocked(adjustmentID)
	if adj == nil {
		return fmt.Errorf("reject %s: %w", adjustmentID, ErrAdjustmentNotFound)
	}
	if adj.Status.Terminal() {
		return fmt.Errorf("reject %s (status %s): %w", adjustmentID, adj.Status, ErrAdjustmentTerminal)
	}

	adj.Status = tactic.StatusRejected
	if err := e.store.UpsertAdjustment(ctx, *adj); err != nil {
		log.Printf("[ENGINE] persist rejected adjustment %s: %v", adj.ID, err)
	}
	log.Printf("[ENGINE] rejected adjustment %s mission=%s by=%s", adj.ID, adj.MissionID, actor)
	return nil
}

// findLocked locates an adjustment by id across all missions.
func (e *Engine) findLocked(adjustmentID string) *tactic.Adjustment {
	for _, list := range e.adjustments {
		for _, adj := range list {
			if adj.ID == adjustmentID {
				return adj
			}
		}
	}
	return nil
}

// #endregion apply

// #region sweep

func (e *Engine) startSweepLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.sweepCancel = cancel
	e.sweepDone = done
	go e.runSweep(ctx, e.config.MonitoringInterval, done)
}

func (e *Engine) runSweep(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := e.ExpireStale(context.Background(), time.Now().UTC()); n > 0 {
				log.Printf("[SWEEP] expired %d stale proposals", n)
			}
		}
	}
}

// ExpireStale transitions every proposal older than the 5 minute ceiling to
// rejected and returns the number expired. Runs on the sweep period; exposed
// so hosts and tests can force a pass.
func (e *Engine) ExpireStale(ctx context.Context, now time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	expired := 0
	for mission, list := range e.adjustments {
		for _, adj := range list {
			if adj.Status != tactic.StatusProposed {
				continue
			}
			if now.Sub(adj.ProposedAt) <= proposalTTL {
				continue
			}
			adj.Status = tactic.StatusRejected
			if err := e.store.UpsertAdjustment(ctx, *adj); err != nil {
				log.Printf("[SWEEP] persist expired adjustment %s: %v", adj.ID, err)
			}
			log.Printf("[SWEEP] expired adjustment %s mission=%s age=%s",
				adj.ID, mission, now.Sub(adj.ProposedAt).Round(time.Second))
			expired++
		}
	}
	return expired
}

// #endregion sweep

// #region queries

// ActiveAdjustments returns the still-proposed adjustments for a mission in
// proposal order.
func (e *Engine) ActiveAdjustments(missionID string) []tactic.Adjustment {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []tactic.Adjustment
	for _, adj := range e.adjustments[missionID] {
		if adj.Status == tactic.StatusProposed {
			out = append(out, *adj)
		}
	}
	return out
}

// ChangeHistory returns the full audit list for a mission in apply order.
func (e *Engine) ChangeHistory(missionID string) []tactic.ChangeHistory {
	e.mu.Lock()
	defer e.mu.Unlock()

	list := e.changeHistory[missionID]
	out := make([]tactic.ChangeHistory, len(list))
	copy(out, list)
	return out
}

// HistoryLen reports the number of retained samples for a mission.
func (e *Engine) HistoryLen(missionID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if h := e.histories[missionID]; h != nil {
		return h.Len()
	}
	return 0
}

// #endregion queries
