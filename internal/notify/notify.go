package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborops/tactic-optimizer/internal/tactic"
)

// #region notification
// Notification is the fully-formed payload handed to the delivery channel
// when a proposal escalates to operators.
type Notification struct {
	ID           string    `json:"id"`
	MissionID    string    `json:"mission_id"`
	OperatorIDs  []string  `json:"operator_ids"`
	AdjustmentID string    `json:"adjustment_id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Priority     string    `json:"priority"`
	RequiresAck  bool      `json:"requires_acknowledgment"`
	SentAt       time.Time `json:"sent_at"`
}

// Build assembles a notification from an escalated adjustment.
func Build(adj *tactic.Adjustment, priority string, requiresAck bool, operators []string, sentAt time.Time) Notification {
	message := adj.Reasoning
	if adj.TriggeredBy != "" {
		message = fmt.Sprintf("%s\nTriggered by: %s", adj.Reasoning, adj.TriggeredBy)
	}
	return Notification{
		ID:           uuid.New().String(),
		MissionID:    adj.MissionID,
		OperatorIDs:  operators,
		AdjustmentID: adj.ID,
		Title:        fmt.Sprintf("Tactic adjustment proposed for mission %s", adj.MissionID),
		Message:      message,
		Priority:     priority,
		RequiresAck:  requiresAck,
		SentAt:       sentAt,
	}
}

// #endregion notification

// #region interfaces
// Notifier delivers a notification to operators. Implementations own the
// transport; the engine treats delivery failures as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// OperatorDirectory resolves the operators assigned to a mission.
type OperatorDirectory interface {
	OperatorsFor(missionID string) ([]string, error)
}

// #endregion interfaces

// #region log-notifier
// LogNotifier writes notifications to the process log. The default channel
// for hosts that have not wired a delivery transport.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	log.Printf("[NOTIFY] mission=%s adjustment=%s priority=%s ack=%v operators=%v: %s",
		n.MissionID, n.AdjustmentID, n.Priority, n.RequiresAck, n.OperatorIDs, n.Title)
	return nil
}

// #endregion log-notifier

// #region capture-notifier
// CaptureNotifier records notifications in memory. Used by the replay
// harness and tests.
type CaptureNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (c *CaptureNotifier) Notify(_ context.Context, n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return nil
}

// Sent returns a copy of the recorded notifications in delivery order.
func (c *CaptureNotifier) Sent() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.sent))
	copy(out, c.sent)
	return out
}

// #endregion capture-notifier

// #region static-directory
// StaticDirectory is a fixed missionID -> operators mapping. The "*" key,
// when present, is the fallback for missions without an explicit entry.
type StaticDirectory map[string][]string

func (d StaticDirectory) OperatorsFor(missionID string) ([]string, error) {
	if ops, ok := d[missionID]; ok {
		return ops, nil
	}
	return d["*"], nil
}

// #endregion static-directory
