package postgres

import (
	"context"
	"time"

	"github.com/converge-ai/convergeai/store"
)

const routerFeedbackColumns = `id, user_ref, input, predicted, feedback, source, created_at`

func scanRouterFeedback(row interface{ Scan(...any) error }, f *store.RouterFeedback) error {
	return row.Scan(&f.ID, &f.UserRef, &f.Input, &f.Predicted, &f.Feedback, &f.Source, &f.CreatedAt)
}

func (d *DB) CreateRouterFeedback(ctx context.Context, f store.CreateRouterFeedback) (store.RouterFeedback, error) {
	var out store.RouterFeedback
	row := d.db.QueryRowContext(ctx, `INSERT INTO router_feedback
		(user_ref, input, predicted, feedback, source, created_at)
		VALUES (`+placeholders(6)+`)
		RETURNING `+routerFeedbackColumns,
		f.UserRef, f.Input, f.Predicted, f.Feedback, f.Source, time.Now(),
	)
	if err := scanRouterFeedback(row, &out); err != nil {
		return store.RouterFeedback{}, wrap(err, "create router feedback")
	}
	return out, nil
}

func (d *DB) ListRouterFeedback(ctx context.Context, q store.FindRouterFeedback) ([]store.RouterFeedback, error) {
	where := []string{"1 = 1"}
	args := []any{}
	if q.UserRef != nil {
		args = append(args, *q.UserRef)
		where = append(where, "user_ref = "+placeholder(len(args)))
	}
	if q.Since != nil {
		args = append(args, *q.Since)
		where = append(where, "created_at >= "+placeholder(len(args)))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := `SELECT ` + routerFeedbackColumns + ` FROM router_feedback WHERE ` + join(where, " AND ") +
		` ORDER BY created_at DESC LIMIT ` + placeholder(len(args))
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(err, "list router feedback")
	}
	defer rows.Close()

	var out []store.RouterFeedback
	for rows.Next() {
		var f store.RouterFeedback
		if err := scanRouterFeedback(rows, &f); err != nil {
			return nil, wrap(err, "scan router feedback")
		}
		out = append(out, f)
	}
	return out, wrap(rows.Err(), "iterate router feedback")
}
