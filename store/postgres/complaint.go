package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/converge-ai/convergeai/internal/xerrors"
	"github.com/converge-ai/convergeai/store"
)

const complaintColumns = `id, user_ref, booking_ref, session_ref, type, subject, description, priority, status,
	assigned_staff, resolution, sentiment_score, response_due_at, resolution_due_at, created_at, updated_at, resolved_at`

func scanComplaint(row interface{ Scan(...any) error }, c *store.Complaint) error {
	return row.Scan(&c.ID, &c.UserRef, &c.BookingRef, &c.SessionRef, &c.Type, &c.Subject, &c.Description, &c.Priority, &c.Status,
		&c.AssignedStaff, &c.Resolution, &c.SentimentScore, &c.ResponseDueAt, &c.ResolutionDueAt, &c.CreatedAt, &c.UpdatedAt, &c.ResolvedAt)
}

func (d *DB) CreateComplaint(ctx context.Context, c store.Complaint) (store.Complaint, error) {
	stmt := `INSERT INTO complaints
		(user_ref, booking_ref, session_ref, type, subject, description, priority, status, sentiment_score,
		 response_due_at, resolution_due_at, created_at, updated_at)
		VALUES (` + placeholders(13) + `)
		RETURNING id`
	err := d.db.QueryRowContext(ctx, stmt,
		c.UserRef, c.BookingRef, c.SessionRef, c.Type, c.Subject, c.Description, c.Priority, c.Status, c.SentimentScore,
		c.ResponseDueAt, c.ResolutionDueAt, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	return c, wrap(err, "create complaint")
}

func (d *DB) GetComplaint(ctx context.Context, q store.FindComplaint) (store.Complaint, error) {
	where, args := []string{"1 = 1"}, []any{}
	if q.ID != nil {
		where = append(where, "id = "+placeholder(len(args)+1))
		args = append(args, *q.ID)
	}
	if q.UserRef != nil {
		where = append(where, "user_ref = "+placeholder(len(args)+1))
		args = append(args, *q.UserRef)
	}
	if q.Status != nil {
		where = append(where, "status = "+placeholder(len(args)+1))
		args = append(args, *q.Status)
	}
	if q.Priority != nil {
		where = append(where, "priority = "+placeholder(len(args)+1))
		args = append(args, *q.Priority)
	}
	if q.AssignedStaff != nil {
		where = append(where, "assigned_staff = "+placeholder(len(args)+1))
		args = append(args, *q.AssignedStaff)
	}

	var c store.Complaint
	row := d.db.QueryRowContext(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE `+join(where, " AND ")+` ORDER BY created_at DESC LIMIT 1`, args...)
	if err := scanComplaint(row, &c); err != nil {
		if err == sql.ErrNoRows {
			return store.Complaint{}, xerrors.New(xerrors.KindNotFound, "complaint not found")
		}
		return store.Complaint{}, wrap(err, "get complaint")
	}
	return c, nil
}

func (d *DB) ListComplaints(ctx context.Context, q store.FindComplaint, limit, offset int) ([]store.Complaint, error) {
	where, args := []string{"1 = 1"}, []any{}
	if q.UserRef != nil {
		where = append(where, "user_ref = "+placeholder(len(args)+1))
		args = append(args, *q.UserRef)
	}
	if q.Status != nil {
		where = append(where, "status = "+placeholder(len(args)+1))
		args = append(args, *q.Status)
	}
	if q.Priority != nil {
		where = append(where, "priority = "+placeholder(len(args)+1))
		args = append(args, *q.Priority)
	}
	if q.AssignedStaff != nil {
		where = append(where, "assigned_staff = "+placeholder(len(args)+1))
		args = append(args, *q.AssignedStaff)
	}
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, offset)

	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE ` + join(where, " AND ") + ` ORDER BY created_at DESC LIMIT ` + placeholder(len(args)-1) + ` OFFSET ` + placeholder(len(args))
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(err, "list complaints")
	}
	defer rows.Close()

	var out []store.Complaint
	for rows.Next() {
		var c store.Complaint
		if err := scanComplaint(rows, &c); err != nil {
			return nil, wrap(err, "scan complaint")
		}
		out = append(out, c)
	}
	return out, wrap(rows.Err(), "iterate complaints")
}

func (d *DB) ListOverdueComplaints(ctx context.Context, q store.FindOverdueComplaints) ([]store.Complaint, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+complaintColumns+` FROM complaints
		WHERE status IN ('open', 'in_progress') AND (response_due_at <= `+placeholder(1)+` OR resolution_due_at <= `+placeholder(1)+`)
		ORDER BY resolution_due_at ASC`, q.AsOf)
	if err != nil {
		return nil, wrap(err, "list overdue complaints")
	}
	defer rows.Close()

	var out []store.Complaint
	for rows.Next() {
		var c store.Complaint
		if err := scanComplaint(rows, &c); err != nil {
			return nil, wrap(err, "scan overdue complaint")
		}
		out = append(out, c)
	}
	return out, wrap(rows.Err(), "iterate overdue complaints")
}

func (d *DB) UpdateComplaintStatus(ctx context.Context, id uint64, status store.ComplaintStatus, at time.Time) (store.Complaint, error) {
	var resolvedAt *time.Time
	if status == store.ComplaintStatusResolved {
		resolvedAt = &at
	}
	var c store.Complaint
	row := d.db.QueryRowContext(ctx, `UPDATE complaints SET status = `+placeholder(1)+`, updated_at = `+placeholder(2)+`, resolved_at = `+placeholder(3)+`
		WHERE id = `+placeholder(4)+`
		RETURNING `+complaintColumns,
		status, at, resolvedAt, id)
	if err := scanComplaint(row, &c); err != nil {
		if err == sql.ErrNoRows {
			return store.Complaint{}, xerrors.New(xerrors.KindNotFound, "complaint not found")
		}
		return store.Complaint{}, wrap(err, "update complaint status")
	}
	return c, nil
}
