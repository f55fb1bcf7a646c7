package postgres

import (
	"context"

	"github.com/converge-ai/convergeai/store"
)

// WriteAuditBatch inserts a batch of audit log entries in a single
// transaction. Called by the async audit writer's flush loop, never
// directly from a request path.
func (d *DB) WriteAuditBatch(ctx context.Context, entries []store.AuditLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(err, "begin audit batch tx")
	}
	defer tx.Rollback()

	stmt := `INSERT INTO ops_audit_log (staff_ref, action, resource_kind, resource_id, pii_accessed, created_at)
		VALUES (` + placeholders(6) + `)`
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, stmt, e.StaffRef, e.Action, e.ResourceKind, e.ResourceID, e.PIIAccessed, e.CreatedAt); err != nil {
			return wrap(err, "insert audit entry")
		}
	}

	return wrap(tx.Commit(), "commit audit batch tx")
}
