// Package migrations contains all database migrations for acst.
// Migrations use Rails-style timestamp versioning (YYYYMMDDHHmmss).
package migrations

import (
	"github.com/synaptiai/agent-capability-standard/pkg/db"
)

// All returns all registered migrations in the correct order.
// New migrations should be added to this list.
func All() []db.Migration {
	return []db.Migration{
		Migration20260115090000CreateCheckpoints(),
		Migration20260115090001CreateAuditEvents(),
		Migration20260830100000AddCheckpointClean(),
	}
}
