package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/synaptiai/agent-capability-standard/pkg/db"
)

// Migration20260115090000CreateCheckpoints creates the checkpoints table.
func Migration20260115090000CreateCheckpoints() db.Migration {
	return db.Migration{
		Version:     20260115090000,
		Description: "Create checkpoints table",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS checkpoints (
					id TEXT PRIMARY KEY,
					run_id TEXT NOT NULL,
					label TEXT NOT NULL,
					stash_sha TEXT NOT NULL,
					repo_root TEXT NOT NULL,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create checkpoints table")
			}

			if _, err := tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_checkpoints_run_id
				ON checkpoints(run_id, created_at)
			`); err != nil {
				return errors.Wrap(err, "failed to create run_id index")
			}

			return nil
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS checkpoints")
			return errors.Wrap(err, "failed to drop checkpoints table")
		},
	}
}
