package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/synaptiai/agent-capability-standard/pkg/db"
)

// Migration20260830100000AddCheckpointClean adds the clean flag to
// checkpoints. Clean checkpoints anchor at a commit instead of a stash,
// so restore has to know which kind it is looking at.
func Migration20260830100000AddCheckpointClean() db.Migration {
	return db.Migration{
		Version:     20260830100000,
		Description: "Add clean flag to checkpoints",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				ALTER TABLE checkpoints ADD COLUMN clean INTEGER NOT NULL DEFAULT 0
			`)
			return errors.Wrap(err, "failed to add clean column")
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("ALTER TABLE checkpoints DROP COLUMN clean")
			return errors.Wrap(err, "failed to drop clean column")
		},
	}
}
