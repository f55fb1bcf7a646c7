// Package priority implements the Priority Queue Projector (spec.md
// §4.11): a query-time ranking over complaints and pending bookings,
// computed from a base score by kind, a sentiment penalty, an SLA-risk
// bonus, and a VIP bonus, clamped to [0, 100].
package priority

import (
	"context"
	"sort"
	"time"

	"github.com/converge-ai/convergeai/store"
)

const (
	minScore = 0
	maxScore = 100
)

var complaintBase = map[store.ComplaintPriority]int{
	store.ComplaintPriorityCritical: 80,
	store.ComplaintPriorityHigh:     70,
	store.ComplaintPriorityMedium:   50,
	store.ComplaintPriorityLow:      30,
}

var alertBase = map[store.AlertSeverity]int{
	store.AlertSeverityCritical: 75,
	store.AlertSeverityWarning:  45,
	store.AlertSeverityInfo:     20,
}

// bookingPendingBase is base(booking_pending) from spec.md §4.11.
const bookingPendingBase = 30

// sentimentPenaltyMax is the maximum additive priority bump a strongly
// negative sentiment score can contribute (complaints only).
const sentimentPenaltyMax = 20

// vipBonus is added for complaints, alerts, and pending bookings tied to
// a user with VIPThreshold or more prior bookings.
const vipBonus = 15

// VIPThreshold is the prior-bookings count at or above which a user
// counts as VIP for priority scoring (spec.md §4.11).
const VIPThreshold = 5

// IsVIP reports whether a user with bookingCount prior bookings counts
// as VIP.
func IsVIP(bookingCount int) bool {
	return bookingCount >= VIPThreshold
}

// ComplaintInput bundles the signals ComplaintScore needs.
type ComplaintInput struct {
	Priority        store.ComplaintPriority
	SentimentScore  *float32
	ResolutionDueAt time.Time
	IsVIP           bool
	Now             time.Time
}

// ComplaintScore computes a complaint's priority_score.
func ComplaintScore(in ComplaintInput) int {
	score := complaintBase[in.Priority]

	if in.SentimentScore != nil && *in.SentimentScore < 0 {
		penalty := int(-*in.SentimentScore * sentimentPenaltyMax)
		score += clampBonus(penalty, sentimentPenaltyMax)
	}

	score += slaRiskBonus(in.ResolutionDueAt, in.Now)

	if in.IsVIP {
		score += vipBonus
	}

	return clamp(score)
}

// BookingInput bundles the signals BookingScore needs.
type BookingInput struct {
	IsVIP bool
}

// BookingScore computes a pending booking's priority_score. Pending
// bookings carry no sentiment or SLA deadline, so only the base and the
// VIP bonus apply (spec.md §4.11).
func BookingScore(in BookingInput) int {
	score := bookingPendingBase
	if in.IsVIP {
		score += vipBonus
	}
	return clamp(score)
}

// AlertInput bundles the signals AlertScore needs.
type AlertInput struct {
	Severity store.AlertSeverity
	IsVIP    bool
}

// AlertScore computes an alert's priority_score.
func AlertScore(in AlertInput) int {
	score := alertBase[in.Severity]
	if in.IsVIP {
		score += vipBonus
	}
	return clamp(score)
}

// slaRiskBonus implements spec.md §4.11's three-tier deadline bonus: no
// bonus with time to spare, +10 inside the last hour, +20 once the
// deadline has passed. A zero dueAt (no deadline tracked) contributes
// nothing.
func slaRiskBonus(dueAt, now time.Time) int {
	if dueAt.IsZero() {
		return 0
	}
	switch remaining := dueAt.Sub(now); {
	case remaining <= 0:
		return 20
	case remaining <= time.Hour:
		return 10
	default:
		return 0
	}
}

func clamp(n int) int {
	if n < minScore {
		return minScore
	}
	if n > maxScore {
		return maxScore
	}
	return n
}

func clampBonus(n, max int) int {
	if n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}

// Ranked is a priority-queue item: anything with a score and creation time.
type Ranked struct {
	Score     int
	CreatedAt time.Time
	ID        uint64
}

// Order sorts items by descending score, then ascending creation time, a
// fixed tie-break so the ops queue presents a deterministic order
// (spec.md §4.11).
func Order(items []Ranked) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

// Item is one row of the Priority Queue Projector's output: a complaint
// or a pending booking, ranked by priority_score.
type Item struct {
	Kind      string // "complaint" or "booking_pending"
	ID        uint64
	Status    string
	Priority  string
	Score     int
	CreatedAt time.Time
}

// orderItems applies Order's tie-break over Items rather than Ranked
// values.
func orderItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

// Filter narrows the projector's query, per spec.md §4.11's
// {status?, priority?, assigned?}. Priority and Assigned only match
// complaints: pending bookings carry neither concept, so setting either
// excludes them from the result.
type Filter struct {
	Status   *string
	Priority *store.ComplaintPriority
	Assigned *uint64
}

// fetchCap bounds how many rows of each kind the projector pulls before
// ranking and paging in memory. The projection is query-time and
// unstored, but a single page still shouldn't force an unbounded table
// scan; this caps the working set at a generous multiple of any
// realistic page size.
const fetchCap = 500

// Projector implements the Priority Queue Projector's query-time
// ranking: complaints and pending bookings are scored and merged into
// one deterministically ordered page (spec.md §4.11).
type Projector struct {
	Complaints store.ComplaintRepo
	Bookings   store.BookingRepo
	Now        func() time.Time
}

func (p *Projector) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

// Project runs the query-time ranking and returns one page of results.
func (p *Projector) Project(ctx context.Context, filter Filter, limit, offset int) ([]Item, error) {
	now := p.now()
	var items []Item

	if filter.Status == nil || isComplaintStatus(*filter.Status) {
		cq := store.FindComplaint{Priority: filter.Priority, AssignedStaff: filter.Assigned}
		if filter.Status != nil {
			s := store.ComplaintStatus(*filter.Status)
			cq.Status = &s
		}
		complaints, err := p.Complaints.ListComplaints(ctx, cq, fetchCap, 0)
		if err != nil {
			return nil, err
		}
		for _, c := range complaints {
			vip, err := p.isVIP(ctx, c.UserRef)
			if err != nil {
				return nil, err
			}
			items = append(items, Item{
				Kind:      "complaint",
				ID:        c.ID,
				Status:    string(c.Status),
				Priority:  string(c.Priority),
				CreatedAt: c.CreatedAt,
				Score: ComplaintScore(ComplaintInput{
					Priority:        c.Priority,
					SentimentScore:  c.SentimentScore,
					ResolutionDueAt: c.ResolutionDueAt,
					IsVIP:           vip,
					Now:             now,
				}),
			})
		}
	}

	includeBookings := filter.Priority == nil && filter.Assigned == nil &&
		(filter.Status == nil || *filter.Status == string(store.BookingStatusPending))
	if includeBookings {
		bookings, err := p.Bookings.ListBookingsByStatus(ctx, store.BookingStatusPending, fetchCap, 0)
		if err != nil {
			return nil, err
		}
		for _, b := range bookings {
			vip, err := p.isVIP(ctx, b.UserRef)
			if err != nil {
				return nil, err
			}
			items = append(items, Item{
				Kind:      "booking_pending",
				ID:        b.ID,
				Status:    string(b.Status),
				CreatedAt: b.CreatedAt,
				Score:     BookingScore(BookingInput{IsVIP: vip}),
			})
		}
	}

	orderItems(items)

	if offset > len(items) {
		offset = len(items)
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end], nil
}

func (p *Projector) isVIP(ctx context.Context, userRef uint64) (bool, error) {
	n, err := p.Bookings.CountBookings(ctx, userRef)
	if err != nil {
		return false, err
	}
	return IsVIP(n), nil
}

func isComplaintStatus(s string) bool {
	switch store.ComplaintStatus(s) {
	case store.ComplaintStatusOpen, store.ComplaintStatusInProgress, store.ComplaintStatusResolved,
		store.ComplaintStatusClosed, store.ComplaintStatusEscalated:
		return true
	default:
		return false
	}
}
