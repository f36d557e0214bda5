package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/synaptiai/agent-capability-standard/pkg/db"
)

// Migration20260115090001CreateAuditEvents creates the audit_events table.
func Migration20260115090001CreateAuditEvents() db.Migration {
	return db.Migration{
		Version:     20260115090001,
		Description: "Create audit_events table",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS audit_events (
					id TEXT PRIMARY KEY,
					run_id TEXT NOT NULL,
					event TEXT NOT NULL,
					capability TEXT NOT NULL DEFAULT '',
					decision TEXT NOT NULL DEFAULT '',
					detail TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create audit_events table")
			}

			if _, err := tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_audit_events_run_id
				ON audit_events(run_id, created_at)
			`); err != nil {
				return errors.Wrap(err, "failed to create run_id index")
			}

			return nil
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS audit_events")
			return errors.Wrap(err, "failed to drop audit_events table")
		},
	}
}
