package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/converge-ai/convergeai/metrics"
	"github.com/converge-ai/convergeai/ops/priority"
	"github.com/converge-ai/convergeai/policy"
	"github.com/converge-ai/convergeai/store"
)

// Notifier fans critical alerts out to an external channel (e.g. Slack).
type Notifier interface {
	Notify(ctx context.Context, a store.Alert) error
}

// Engine runs the SLA-at-risk/SLA-breach scanner and the
// critical-complaint scanner as independent ticker-driven loops
// (spec.md §4.12), and serves the foreground alert API.
type Engine struct {
	Complaints store.ComplaintRepo
	Bookings   store.BookingRepo
	Alerts     store.AlertRepo
	Dedup      *Deduplicator
	Notifier   Notifier
	Policy     policy.Tables
	Metrics    *metrics.Exporter
	Now        func() time.Time

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// isVIP reports whether a user has enough prior bookings to count as VIP
// for priority scoring (spec.md §4.11). A nil Bookings repo or a lookup
// failure is treated as not VIP rather than blocking the scan.
func (e *Engine) isVIP(ctx context.Context, userRef uint64) bool {
	if e.Bookings == nil {
		return false
	}
	n, err := e.Bookings.CountBookings(ctx, userRef)
	if err != nil {
		slog.Warn("alert: vip lookup failed, treating as non-vip", "error", err)
		return false
	}
	return priority.IsVIP(n)
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

// Start launches the scanner loops. Start is idempotent only across a
// single Engine value's lifetime: call Stop before a second Start.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	slaRule := e.Policy.AlertRules["sla_scanner"]
	criticalRule := e.Policy.AlertRules["critical_scanner"]

	e.wg.Add(2)
	go e.loop(ctx, slaRule.ScanInterval, func(ctx context.Context) { e.scanSLA(ctx, slaRule) })
	go e.loop(ctx, criticalRule.ScanInterval, func(ctx context.Context) { e.scanCritical(ctx, criticalRule) })
}

// Stop cancels both scanner loops and waits for them to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

func (e *Engine) loop(ctx context.Context, interval time.Duration, scan func(context.Context)) {
	defer e.wg.Done()
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	scan(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scan(ctx)
		}
	}
}

// scanSLA raises alerts for the open complaints ListOverdueComplaints
// returns, i.e. those whose response or resolution deadline has already
// passed: sla_breach once the resolution deadline has passed, sla_at_risk
// otherwise. Complaints whose deadlines are all still ahead are not scanned.
func (e *Engine) scanSLA(ctx context.Context, rule policy.AlertRule) {
	now := e.now()
	overdue, err := e.Complaints.ListOverdueComplaints(ctx, store.FindOverdueComplaints{AsOf: now})
	if err != nil {
		slog.Error("alert: sla scan failed", "error", err)
		return
	}
	for _, c := range overdue {
		alertType := store.AlertTypeSLAAtRisk
		if now.After(c.ResolutionDueAt) {
			alertType = store.AlertTypeSLABreach
		}
		vip := e.isVIP(ctx, c.UserRef)
		e.raise(ctx, alertType, store.AlertResourceComplaint, c.ID, rule, func() store.NewAlert {
			return store.NewAlert{
				Type:         alertType,
				Severity:     store.AlertSeverity(rule.Severity),
				Title:        fmt.Sprintf("Complaint #%d %s", c.ID, slaLabel(alertType)),
				Message:      fmt.Sprintf("Complaint #%d (%s priority) is %s its resolution SLA.", c.ID, c.Priority, slaLabel(alertType)),
				ResourceKind: store.AlertResourceComplaint,
				ResourceID:   c.ID,
				PriorityScore: priority.ComplaintScore(priority.ComplaintInput{
					Priority:        c.Priority,
					SentimentScore:  c.SentimentScore,
					ResolutionDueAt: c.ResolutionDueAt,
					IsVIP:           vip,
					Now:             now,
				}),
			}
		})
	}
}

func slaLabel(t store.AlertType) string {
	if t == store.AlertTypeSLABreach {
		return "past"
	}
	return "approaching"
}

// scanCritical raises critical_complaint alerts for open complaints at
// critical priority, fanning them out via Notifier.
func (e *Engine) scanCritical(ctx context.Context, rule policy.AlertRule) {
	now := e.now()
	open, err := e.Complaints.ListComplaints(ctx, store.FindComplaint{Status: statusPtr(store.ComplaintStatusOpen)}, 100, 0)
	if err != nil {
		slog.Error("alert: critical scan failed", "error", err)
		return
	}
	for _, c := range open {
		if c.Priority != store.ComplaintPriorityCritical {
			continue
		}
		vip := e.isVIP(ctx, c.UserRef)
		e.raise(ctx, store.AlertTypeCriticalComplaint, store.AlertResourceComplaint, c.ID, rule, func() store.NewAlert {
			return store.NewAlert{
				Type:         store.AlertTypeCriticalComplaint,
				Severity:     store.AlertSeverityCritical,
				Title:        fmt.Sprintf("Critical complaint #%d", c.ID),
				Message:      c.Subject,
				ResourceKind: store.AlertResourceComplaint,
				ResourceID:   c.ID,
				PriorityScore: priority.ComplaintScore(priority.ComplaintInput{
					Priority:        c.Priority,
					SentimentScore:  c.SentimentScore,
					ResolutionDueAt: c.ResolutionDueAt,
					IsVIP:           vip,
					Now:             now,
				}),
			}
		})
	}
}

func statusPtr(s store.ComplaintStatus) *store.ComplaintStatus { return &s }

func (e *Engine) raise(ctx context.Context, alertType store.AlertType, resourceKind store.AlertResourceKind, resourceID uint64, rule policy.AlertRule, build func() store.NewAlert) {
	window := rule.DedupWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	dup, err := e.Dedup.IsDuplicate(ctx, alertType, resourceKind, resourceID, window, e.now())
	if err != nil {
		slog.Warn("alert: dedup check failed, raising anyway", "error", err)
	} else if dup {
		if e.Metrics != nil {
			e.Metrics.RecordDedupHit(string(alertType))
		}
		return
	}

	created, err := e.Alerts.CreateAlert(ctx, build())
	if err != nil {
		slog.Error("alert: failed to create alert", "error", err)
		return
	}
	e.Dedup.Remember(ctx, alertType, resourceKind, resourceID, window)
	if e.Metrics != nil {
		e.Metrics.RecordAlertRaised(string(created.Type), string(created.Severity))
	}

	if created.Severity == store.AlertSeverityCritical && e.Notifier != nil {
		if err := e.Notifier.Notify(ctx, created); err != nil {
			slog.Warn("alert: notifier failed", "error", err)
		}
	}
}
