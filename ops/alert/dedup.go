// Package alert implements the Alert Engine (spec.md §4.12): SLA and
// critical-complaint scanners, a two-tier Redis+DB dedup check before
// raising a new alert, Slack fan-out for critical severity, and the
// foreground listing/read/dismiss API. Dedup is grounded directly on
// wisbric-nightowl/pkg/alert/dedup.go's Redis-hot-path-then-DB-fallback
// shape.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/converge-ai/convergeai/store"
)

const redisKeyPrefix = "convergeai:alert:dedup:"

// Deduplicator answers spec.md §4.12's dedup check: two alerts of the
// same (Type, ResourceKind, ResourceID) within a scanner's dedup window
// of one another are the same alert. Redis backs the hot path; the DB
// query (store.AlertRepo.FindRecent) is the source of truth.
type Deduplicator struct {
	rdb    *redis.Client
	alerts store.AlertRepo
}

// NewDeduplicator builds a Deduplicator. rdb may be nil, in which case
// every check falls through to the database.
func NewDeduplicator(rdb *redis.Client, alerts store.AlertRepo) *Deduplicator {
	return &Deduplicator{rdb: rdb, alerts: alerts}
}

func dedupKey(alertType store.AlertType, resourceKind store.AlertResourceKind, resourceID uint64) string {
	return redisKeyPrefix + string(alertType) + ":" + string(resourceKind) + ":" + strconv.FormatUint(resourceID, 10)
}

// IsDuplicate reports whether an alert matching (alertType, resourceKind,
// resourceID) was already raised within window of now.
func (d *Deduplicator) IsDuplicate(ctx context.Context, alertType store.AlertType, resourceKind store.AlertResourceKind, resourceID uint64, window time.Duration, now time.Time) (bool, error) {
	key := dedupKey(alertType, resourceKind, resourceID)

	if d.rdb != nil {
		_, err := d.rdb.Get(ctx, key).Result()
		if err == nil {
			return true, nil
		}
		if err != redis.Nil {
			slog.Warn("alert: redis dedup lookup failed, falling back to db", "error", err)
		}
	}

	recent, err := d.alerts.FindRecent(ctx, store.FindRecentAlerts{
		Type:         alertType,
		ResourceKind: resourceKind,
		ResourceID:   resourceID,
		Since:        now.Add(-window),
	})
	if err != nil {
		return false, fmt.Errorf("dedup db lookup: %w", err)
	}
	if len(recent) == 0 {
		return false, nil
	}

	d.warm(ctx, key, window)
	return true, nil
}

// Remember marks (alertType, resourceKind, resourceID) as raised, warming
// the Redis hot path for window.
func (d *Deduplicator) Remember(ctx context.Context, alertType store.AlertType, resourceKind store.AlertResourceKind, resourceID uint64, window time.Duration) {
	d.warm(ctx, dedupKey(alertType, resourceKind, resourceID), window)
}

func (d *Deduplicator) warm(ctx context.Context, key string, window time.Duration) {
	if d.rdb == nil {
		return
	}
	if err := d.rdb.Set(ctx, key, "1", window).Err(); err != nil {
		slog.Warn("alert: failed to warm dedup cache", "error", err, "key", key)
	}
}
