package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/converge-ai/convergeai/store"
)

func scanAlert(row interface{ Scan(...any) error }, a *store.Alert, metaRaw *[]byte) error {
	return row.Scan(&a.ID, &a.Type, &a.Severity, &a.Title, &a.Message, &a.ResourceKind, &a.ResourceID, &a.StaffRef,
		&a.PriorityScore, &a.IsRead, &a.IsDismissed, metaRaw, &a.CreatedAt, &a.ReadAt, &a.DismissedAt, &a.ExpiresAt)
}

const alertColumns = `id, type, severity, title, message, resource_kind, resource_id, staff_ref,
	priority_score, is_read, is_dismissed, metadata, created_at, read_at, dismissed_at, expires_at`

func (d *DB) CreateAlert(ctx context.Context, a store.NewAlert) (store.Alert, error) {
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return store.Alert{}, wrap(err, "marshal alert metadata")
	}
	now := time.Now()

	var out store.Alert
	var metaRaw []byte
	row := d.db.QueryRowContext(ctx, `INSERT INTO alerts
		(type, severity, title, message, resource_kind, resource_id, staff_ref, priority_score, is_read, is_dismissed, metadata, created_at, expires_at)
		VALUES (`+placeholders(13)+`)
		RETURNING `+alertColumns,
		a.Type, a.Severity, a.Title, a.Message, a.ResourceKind, a.ResourceID, a.StaffRef, a.PriorityScore, false, false, meta, now, a.ExpiresAt,
	)
	if err := scanAlert(row, &out, &metaRaw); err != nil {
		return store.Alert{}, wrap(err, "create alert")
	}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &out.Metadata); err != nil {
			return store.Alert{}, wrap(err, "unmarshal alert metadata")
		}
	}
	return out, nil
}

func (d *DB) FindRecent(ctx context.Context, q store.FindRecentAlerts) ([]store.Alert, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+alertColumns+`
		FROM alerts
		WHERE type = `+placeholder(1)+` AND resource_kind = `+placeholder(2)+` AND resource_id = `+placeholder(3)+` AND created_at >= `+placeholder(4)+`
		ORDER BY created_at DESC`,
		q.Type, q.ResourceKind, q.ResourceID, q.Since)
	if err != nil {
		return nil, wrap(err, "find recent alerts")
	}
	defer rows.Close()

	var out []store.Alert
	for rows.Next() {
		var a store.Alert
		var metaRaw []byte
		if err := scanAlert(rows, &a, &metaRaw); err != nil {
			return nil, wrap(err, "scan recent alert")
		}
		out = append(out, a)
	}
	return out, wrap(rows.Err(), "iterate recent alerts")
}

func (d *DB) ListAlerts(ctx context.Context, q store.FindAlerts) ([]store.Alert, error) {
	where := []string{"(expires_at IS NULL OR expires_at > " + placeholder(1) + ")"}
	args := []any{time.Now()}
	if q.UnreadOnly {
		where = append(where, "is_read = false")
	}
	if !q.IncludeDismissed {
		where = append(where, "is_dismissed = false")
	}
	if q.StaffRef != nil {
		where = append(where, "(staff_ref = "+placeholder(len(args)+1)+" OR staff_ref IS NULL)")
		args = append(args, *q.StaffRef)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, q.Offset)

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE ` + join(where, " AND ") +
		` ORDER BY priority_score DESC, created_at ASC LIMIT ` + placeholder(len(args)-1) + ` OFFSET ` + placeholder(len(args))
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(err, "list alerts")
	}
	defer rows.Close()

	var out []store.Alert
	for rows.Next() {
		var a store.Alert
		var metaRaw []byte
		if err := scanAlert(rows, &a, &metaRaw); err != nil {
			return nil, wrap(err, "scan alert")
		}
		out = append(out, a)
	}
	return out, wrap(rows.Err(), "iterate alerts")
}

func (d *DB) MarkRead(ctx context.Context, id uint64) error {
	_, err := d.db.ExecContext(ctx, `UPDATE alerts SET is_read = true, read_at = `+placeholder(1)+` WHERE id = `+placeholder(2), time.Now(), id)
	return wrap(err, "mark alert read")
}

func (d *DB) Dismiss(ctx context.Context, id uint64) error {
	_, err := d.db.ExecContext(ctx, `UPDATE alerts SET is_dismissed = true, dismissed_at = `+placeholder(1)+` WHERE id = `+placeholder(2), time.Now(), id)
	return wrap(err, "dismiss alert")
}

func (d *DB) UnreadCount(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts WHERE is_read = false AND is_dismissed = false AND (expires_at IS NULL OR expires_at > `+placeholder(1)+`)`, time.Now()).Scan(&n)
	return n, wrap(err, "count unread alerts")
}
