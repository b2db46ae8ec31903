package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/harborops/tactic-optimizer/internal/engine"
	"github.com/harborops/tactic-optimizer/internal/notify"
	"github.com/harborops/tactic-optimizer/internal/tactic"
	"github.com/harborops/tactic-optimizer/internal/telemetry"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS performance_samples (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	mission_id    TEXT NOT NULL,
	recorded_at   TEXT NOT NULL,
	metrics_json  TEXT NOT NULL,
	issues_json   TEXT,
	UNIQUE (mission_id, recorded_at)
);

CREATE TABLE IF NOT EXISTS tactic_adjustments (
	adjustment_id     TEXT PRIMARY KEY,
	mission_id        TEXT NOT NULL,
	triggered_by      TEXT,
	parameters_json   TEXT NOT NULL,
	reasoning         TEXT,
	improvement_json  TEXT,
	status            TEXT NOT NULL,
	proposed_at       TEXT NOT NULL,
	applied_at        TEXT
);

CREATE INDEX IF NOT EXISTS idx_tactic_adjustments_mission
ON tactic_adjustments(mission_id, proposed_at);

CREATE TABLE IF NOT EXISTS tactic_change_history (
	history_id     TEXT PRIMARY KEY,
	mission_id     TEXT NOT NULL,
	adjustment_id  TEXT NOT NULL,
	applied_at     TEXT NOT NULL,
	applied_by     TEXT,
	before_json    TEXT NOT NULL,
	after_json     TEXT NOT NULL,
	result_json    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_change_history_applied
ON tactic_change_history(applied_at);

CREATE TABLE IF NOT EXISTS operator_notifications (
	notification_id  TEXT PRIMARY KEY,
	mission_id       TEXT NOT NULL,
	adjustment_id    TEXT NOT NULL,
	operators_json   TEXT NOT NULL,
	title            TEXT NOT NULL,
	message          TEXT,
	priority         TEXT NOT NULL,
	requires_ack     INTEGER NOT NULL DEFAULT 0,
	sent_at          TEXT NOT NULL
);
`
// #endregion schema

// #region store-struct
// Store mirrors engine decisions into SQLite for audit and warm starts.
type Store struct {
	db *sql.DB
}

var _ engine.Persistence = (*Store)(nil)
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion constructor

// #region upsert-sample

// UpsertSample records a telemetry sample. Re-delivery of the same
// (mission, timestamp) pair is a no-op.
func (s *Store) UpsertSample(ctx context.Context, sample telemetry.Sample) error {
	metricsJSON, err := json.Marshal(sample.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	var issuesPtr interface{}
	if len(sample.Issues) > 0 {
		issuesJSON, err := json.Marshal(sample.Issues)
		if err != nil {
			return fmt.Errorf("marshal issues: %w", err)
		}
		issuesPtr = string(issuesJSON)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO performance_samples (mission_id, recorded_at, metrics_json, issues_json)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(mission_id, recorded_at) DO NOTHING`,
		sample.MissionID, sample.Timestamp.Format(time.RFC3339Nano), string(metricsJSON), issuesPtr,
	)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// #endregion upsert-sample

// #region upsert-adjustment

// UpsertAdjustment writes an adjustment row, replacing the mutable
// lifecycle columns when the row already exists.
func (s *Store) UpsertAdjustment(ctx context.Context, adj tactic.Adjustment) error {
	paramsJSON, err := json.Marshal(adj.Parameters)
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}
	improvementJSON, err := json.Marshal(adj.ExpectedImprovement)
	if err != nil {
		return fmt.Errorf("marshal improvement: %w", err)
	}

	var appliedPtr interface{}
	if adj.AppliedAt != nil {
		appliedPtr = adj.AppliedAt.Format(time.RFC3339Nano)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tactic_adjustments
		 (adjustment_id, mission_id, triggered_by, parameters_json, reasoning,
		  improvement_json, status, proposed_at, applied_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(adjustment_id) DO UPDATE SET
		   status = excluded.status,
		   applied_at = excluded.applied_at`,
		adj.ID, adj.MissionID, adj.TriggeredBy, string(paramsJSON), adj.Reasoning,
		string(improvementJSON), string(adj.Status),
		adj.ProposedAt.Format(time.RFC3339Nano), appliedPtr,
	)
	if err != nil {
		return fmt.Errorf("upsert adjustment: %w", err)
	}
	return nil
}

// #endregion upsert-adjustment

// #region change-history

// InsertChangeHistory appends an applied-change record. Duplicate IDs
// are ignored so replays of the same apply stay idempotent.
func (s *Store) InsertChangeHistory(ctx context.Context, rec tactic.ChangeHistory) error {
	beforeJSON, err := json.Marshal(rec.BeforeState)
	if err != nil {
		return fmt.Errorf("marshal before state: %w", err)
	}
	afterJSON, err := json.Marshal(rec.AfterState)
	if err != nil {
		return fmt.Errorf("marshal after state: %w", err)
	}
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tactic_change_history
		 (history_id, mission_id, adjustment_id, applied_at, applied_by,
		  before_json, after_json, result_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(history_id) DO NOTHING`,
		rec.ID, rec.MissionID, rec.AdjustmentID,
		rec.AppliedAt.Format(time.RFC3339Nano), rec.AppliedBy,
		string(beforeJSON), string(afterJSON), string(resultJSON),
	)
	if err != nil {
		return fmt.Errorf("insert change history: %w", err)
	}
	return nil
}

// RecentChangeHistory returns up to limit records, newest first.
func (s *Store) RecentChangeHistory(ctx context.Context, limit int) ([]tactic.ChangeHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT history_id, mission_id, adjustment_id, applied_at, applied_by,
		        before_json, after_json, result_json
		 FROM tactic_change_history ORDER BY applied_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list change history: %w", err)
	}
	defer rows.Close()

	var records []tactic.ChangeHistory
	for rows.Next() {
		rec, err := scanChangeHistory(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanChangeHistory(rows *sql.Rows) (tactic.ChangeHistory, error) {
	var rec tactic.ChangeHistory
	var appliedStr, beforeJSON, afterJSON, resultJSON string
	var appliedBy sql.NullString

	if err := rows.Scan(&rec.ID, &rec.MissionID, &rec.AdjustmentID,
		&appliedStr, &appliedBy, &beforeJSON, &afterJSON, &resultJSON); err != nil {
		return tactic.ChangeHistory{}, fmt.Errorf("scan change history: %w", err)
	}
	rec.AppliedAt, _ = time.Parse(time.RFC3339Nano, appliedStr)
	if appliedBy.Valid {
		rec.AppliedBy = appliedBy.String
	}
	if err := json.Unmarshal([]byte(beforeJSON), &rec.BeforeState); err != nil {
		return tactic.ChangeHistory{}, fmt.Errorf("unmarshal before state: %w", err)
	}
	if err := json.Unmarshal([]byte(afterJSON), &rec.AfterState); err != nil {
		return tactic.ChangeHistory{}, fmt.Errorf("unmarshal after state: %w", err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &rec.Result); err != nil {
		return tactic.ChangeHistory{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return rec, nil
}

// #endregion change-history

// #region notifications

// InsertNotification records a delivered operator notification.
func (s *Store) InsertNotification(ctx context.Context, n notify.Notification) error {
	operatorsJSON, err := json.Marshal(n.OperatorIDs)
	if err != nil {
		return fmt.Errorf("marshal operators: %w", err)
	}

	requiresAck := 0
	if n.RequiresAck {
		requiresAck = 1
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO operator_notifications
		 (notification_id, mission_id, adjustment_id, operators_json,
		  title, message, priority, requires_ack, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(notification_id) DO NOTHING`,
		n.ID, n.MissionID, n.AdjustmentID, string(operatorsJSON),
		n.Title, n.Message, n.Priority, requiresAck,
		n.SentAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// RecentNotifications returns up to limit notifications, newest first.
func (s *Store) RecentNotifications(ctx context.Context, limit int) ([]notify.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT notification_id, mission_id, adjustment_id, operators_json,
		        title, message, priority, requires_ack, sent_at
		 FROM operator_notifications ORDER BY sent_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var records []notify.Notification
	for rows.Next() {
		var n notify.Notification
		var operatorsJSON, sentStr string
		var message sql.NullString
		var requiresAck int

		if err := rows.Scan(&n.ID, &n.MissionID, &n.AdjustmentID, &operatorsJSON,
			&n.Title, &message, &n.Priority, &requiresAck, &sentStr); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if message.Valid {
			n.Message = message.String
		}
		n.RequiresAck = requiresAck != 0
		if err := json.Unmarshal([]byte(operatorsJSON), &n.OperatorIDs); err != nil {
			return nil, fmt.Errorf("unmarshal operators: %w", err)
		}
		n.SentAt, _ = time.Parse(time.RFC3339Nano, sentStr)
		records = append(records, n)
	}
	return records, rows.Err()
}

// #endregion notifications

// #region inspection-reads

// AdjustmentsForMission returns every stored adjustment for a mission,
// newest proposal first.
func (s *Store) AdjustmentsForMission(ctx context.Context, missionID string) ([]tactic.Adjustment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT adjustment_id, mission_id, triggered_by, parameters_json, reasoning,
		        improvement_json, status, proposed_at, applied_at
		 FROM tactic_adjustments WHERE mission_id = ? ORDER BY proposed_at DESC`, missionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	var records []tactic.Adjustment
	for rows.Next() {
		var adj tactic.Adjustment
		var triggeredBy, reasoning, improvementJSON, appliedStr sql.NullString
		var paramsJSON, statusStr, proposedStr string

		if err := rows.Scan(&adj.ID, &adj.MissionID, &triggeredBy, &paramsJSON, &reasoning,
			&improvementJSON, &statusStr, &proposedStr, &appliedStr); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		if triggeredBy.Valid {
			adj.TriggeredBy = triggeredBy.String
		}
		if reasoning.Valid {
			adj.Reasoning = reasoning.String
		}
		if err := json.Unmarshal([]byte(paramsJSON), &adj.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshal parameters: %w", err)
		}
		if improvementJSON.Valid {
			if err := json.Unmarshal([]byte(improvementJSON.String), &adj.ExpectedImprovement); err != nil {
				return nil, fmt.Errorf("unmarshal improvement: %w", err)
			}
		}
		adj.Status = tactic.Status(statusStr)
		adj.ProposedAt, _ = time.Parse(time.RFC3339Nano, proposedStr)
		if appliedStr.Valid {
			t, err := time.Parse(time.RFC3339Nano, appliedStr.String)
			if err == nil {
				adj.AppliedAt = &t
			}
		}
		records = append(records, adj)
	}
	return records, rows.Err()
}

// SampleCount returns how many telemetry rows a mission has accumulated.
func (s *Store) SampleCount(ctx context.Context, missionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM performance_samples WHERE mission_id = ?`, missionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}

// #endregion inspection-reads
