package alert

import (
	"context"

	"github.com/converge-ai/convergeai/store"
)

// ListAlerts serves the ops-facing alert listing, excluding expired and
// dismissed alerts unless requested otherwise (spec.md §4.12).
func (e *Engine) ListAlerts(ctx context.Context, q store.FindAlerts) ([]store.Alert, error) {
	return e.Alerts.ListAlerts(ctx, q)
}

// MarkRead marks an alert as read.
func (e *Engine) MarkRead(ctx context.Context, id uint64) error {
	return e.Alerts.MarkRead(ctx, id)
}

// Dismiss dismisses an alert, excluding it from future listings.
func (e *Engine) Dismiss(ctx context.Context, id uint64) error {
	return e.Alerts.Dismiss(ctx, id)
}

// UnreadCount returns the count of unread, non-dismissed, non-expired
// alerts.
func (e *Engine) UnreadCount(ctx context.Context) (int, error) {
	return e.Alerts.UnreadCount(ctx)
}
