package store

import "time"

// AuditLogEntry records one staff action against a PII-bearing resource
// (spec.md §4.13 "ops visibility"), grounded on the teacher's async audit
// writer (wisbric-nightowl/internal/audit). Written best-effort: a failed
// audit write must never block the action it records.
type AuditLogEntry struct {
	ID           uint64
	StaffRef     uint64
	Action       string
	ResourceKind string
	ResourceID   uint64
	PIIAccessed  bool
	CreatedAt    time.Time
}
