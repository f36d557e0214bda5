// Package audit records every gate decision and step outcome the engine
// produces. Events are written to two sinks: a human-readable append-only
// log file and a structured SQLite table for querying.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/synaptiai/agent-capability-standard/pkg/logger"
)

// Event kinds recorded by the engine and gates.
const (
	EventRunStart   = "run_start"
	EventRunEnd     = "run_end"
	EventGate       = "gate"
	EventStep       = "step"
	EventVerify     = "verify"
	EventCheckpoint = "checkpoint"
	EventRollback   = "rollback"
)

// Decisions attached to gate and step events.
const (
	DecisionAllow   = "allow"
	DecisionBlock   = "block"
	DecisionOK      = "ok"
	DecisionFailed  = "failed"
	DecisionSkipped = "skipped"
)

// Event is one audit trail entry.
type Event struct {
	ID         string    `db:"id"`
	RunID      string    `db:"run_id"`
	Event      string    `db:"event"`
	Capability string    `db:"capability"`
	Decision   string    `db:"decision"`
	Detail     string    `db:"detail"`
	CreatedAt  time.Time `db:"created_at"`
}

// Line renders the event as a single timestamped audit log line.
func (e Event) Line() string {
	fields := []string{
		e.CreatedAt.UTC().Format(time.RFC3339),
		"run=" + e.RunID,
		"event=" + e.Event,
	}
	if e.Capability != "" {
		fields = append(fields, "capability="+e.Capability)
	}
	if e.Decision != "" {
		fields = append(fields, "decision="+e.Decision)
	}
	if e.Detail != "" {
		fields = append(fields, fmt.Sprintf("detail=%q", e.Detail))
	}
	return strings.Join(fields, " ")
}

// Trail appends audit events to the configured sinks.
type Trail struct {
	db      *sqlx.DB
	logPath string
}

// NewTrail creates an audit trail. Either sink may be absent: a nil db
// skips structured storage, an empty logPath skips the log file.
func NewTrail(db *sqlx.DB, logPath string) *Trail {
	return &Trail{db: db, logPath: logPath}
}

// Append records one event on every configured sink. Sink failures are
// logged, not returned: an audit write must never abort the run it
// describes.
func (t *Trail) Append(ctx context.Context, event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	if t.db != nil {
		_, err := t.db.NamedExecContext(ctx, `
			INSERT INTO audit_events (id, run_id, event, capability, decision, detail, created_at)
			VALUES (:id, :run_id, :event, :capability, :decision, :detail, :created_at)
		`, event)
		if err != nil {
			logger.G(ctx).WithError(err).Warn("failed to store audit event")
		}
	}

	if t.logPath != "" {
		if err := t.appendLine(event.Line()); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to append audit log line")
		}
	}

	return event
}

func (t *Trail) appendLine(line string) error {
	if err := os.MkdirAll(filepath.Dir(t.logPath), 0o755); err != nil {
		return errors.Wrap(err, "failed to create audit log directory")
	}
	f, err := os.OpenFile(t.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to open audit log")
	}
	defer f.Close()

	_, err = f.WriteString(line + "\n")
	return errors.Wrap(err, "failed to write audit log line")
}

// Tail returns the most recent n events, newest first.
func (t *Trail) Tail(ctx context.Context, n int) ([]Event, error) {
	if t.db == nil {
		return nil, errors.New("audit store is not configured")
	}

	var events []Event
	err := t.db.SelectContext(ctx, &events, `
		SELECT id, run_id, event, capability, decision, detail, created_at
		FROM audit_events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, n)
	return events, errors.Wrap(err, "failed to query audit events")
}

// ByRun returns every event of a run in chronological order.
func (t *Trail) ByRun(ctx context.Context, runID string) ([]Event, error) {
	if t.db == nil {
		return nil, errors.New("audit store is not configured")
	}

	var events []Event
	err := t.db.SelectContext(ctx, &events, `
		SELECT id, run_id, event, capability, decision, detail, created_at
		FROM audit_events
		WHERE run_id = ?
		ORDER BY created_at ASC, id ASC
	`, runID)
	return events, errors.Wrapf(err, "failed to query audit events for run %s", runID)
}
