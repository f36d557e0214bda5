package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDBPath_BasePathOverride(t *testing.T) {
	base := t.TempDir()
	t.Setenv("ACST_BASE_PATH", base)

	path, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "storage.db"), path)
}

func TestOpen_CreatesAndConfigures(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "storage.db")

	sqlDB, err := Open(ctx, dbPath)
	require.NoError(t, err)
	defer sqlDB.Close()

	var journalMode string
	require.NoError(t, sqlDB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)
}

func testMigrations() []Migration {
	return []Migration{
		{
			Version:     20260101000000,
			Description: "create widgets",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec("CREATE TABLE widgets (id TEXT PRIMARY KEY)")
				return err
			},
			Down: func(tx *sql.Tx) error {
				_, err := tx.Exec("DROP TABLE widgets")
				return err
			},
		},
		{
			Version:     20260102000000,
			Description: "add widget name",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec("ALTER TABLE widgets ADD COLUMN name TEXT")
				return err
			},
			Down: func(tx *sql.Tx) error {
				return nil
			},
		},
	}
}

func TestMigrationRunner_Run(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := Open(ctx, filepath.Join(t.TempDir(), "storage.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	runner := NewMigrationRunner(sqlDB)
	require.NoError(t, runner.Run(ctx, testMigrations()))

	versions, err := runner.GetAppliedVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{20260101000000, 20260102000000}, versions)

	// Running again is a no-op.
	require.NoError(t, runner.Run(ctx, testMigrations()))

	_, err = sqlDB.ExecContext(ctx, "INSERT INTO widgets (id, name) VALUES ('w1', 'spanner')")
	require.NoError(t, err)
}

func TestMigrationRunner_Rollback(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := Open(ctx, filepath.Join(t.TempDir(), "storage.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	runner := NewMigrationRunner(sqlDB)
	require.NoError(t, runner.Run(ctx, testMigrations()))
	require.NoError(t, runner.Rollback(ctx, testMigrations()))

	versions, err := runner.GetAppliedVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{20260101000000}, versions)
}
