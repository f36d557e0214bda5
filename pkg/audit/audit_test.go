package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synaptiai/agent-capability-standard/pkg/db"
	"github.com/synaptiai/agent-capability-standard/pkg/db/migrations"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	sqlDB, err := db.Open(ctx, filepath.Join(t.TempDir(), "storage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	runner := db.NewMigrationRunner(sqlDB)
	require.NoError(t, runner.Run(ctx, migrations.All()))
	return sqlDB
}

func TestEvent_Line(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	full := Event{
		RunID:      "run-1",
		Event:      EventGate,
		Capability: "deploy",
		Decision:   DecisionBlock,
		Detail:     "deploys are frozen",
		CreatedAt:  created,
	}
	assert.Equal(t,
		`2026-03-14T09:26:53Z run=run-1 event=gate capability=deploy decision=block detail="deploys are frozen"`,
		full.Line())

	sparse := Event{RunID: "run-1", Event: EventRunStart, CreatedAt: created}
	assert.Equal(t, "2026-03-14T09:26:53Z run=run-1 event=run_start", sparse.Line())
}

func TestTrail_Append(t *testing.T) {
	ctx := context.Background()
	sqlDB := testDB(t)
	logPath := filepath.Join(t.TempDir(), "audit.log")
	trail := NewTrail(sqlDB, logPath)

	event := trail.Append(ctx, Event{
		RunID:      "run-1",
		Event:      EventStep,
		Capability: "run-tests",
		Decision:   DecisionOK,
	})
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())

	// Structured sink.
	events, err := trail.ByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "run-tests", events[0].Capability)
	assert.Equal(t, DecisionOK, events[0].Decision)

	// Log file sink.
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "event=step capability=run-tests decision=ok")
}

func TestTrail_NilSinksDoNotFail(t *testing.T) {
	trail := NewTrail(nil, "")

	event := trail.Append(context.Background(), Event{RunID: "run-1", Event: EventRunStart})
	assert.NotEmpty(t, event.ID)

	_, err := trail.Tail(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestTrail_Tail(t *testing.T) {
	ctx := context.Background()
	trail := NewTrail(testDB(t), "")

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, kind := range []string{EventRunStart, EventStep, EventRunEnd} {
		trail.Append(ctx, Event{
			RunID:     "run-1",
			Event:     kind,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	events, err := trail.Tail(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventRunEnd, events[0].Event)
	assert.Equal(t, EventStep, events[1].Event)
}

func TestTrail_ByRun_Chronological(t *testing.T) {
	ctx := context.Background()
	trail := NewTrail(testDB(t), "")

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	trail.Append(ctx, Event{RunID: "run-2", Event: EventRunEnd, CreatedAt: base.Add(time.Second)})
	trail.Append(ctx, Event{RunID: "run-2", Event: EventRunStart, CreatedAt: base})
	trail.Append(ctx, Event{RunID: "other", Event: EventRunStart, CreatedAt: base})

	events, err := trail.ByRun(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventRunStart, events[0].Event)
	assert.Equal(t, EventRunEnd, events[1].Event)
}
