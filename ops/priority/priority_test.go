package priority

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converge-ai/convergeai/store"
)

func TestComplaintScore_Range(t *testing.T) {
	negative := float32(-1)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   ComplaintInput
	}{
		{"critical with negative sentiment and vip", ComplaintInput{
			Priority:        store.ComplaintPriorityCritical,
			SentimentScore:  &negative,
			ResolutionDueAt: now.Add(1 * time.Hour),
			IsVIP:           true,
			Now:             now,
		}},
		{"low priority no extras", ComplaintInput{
			Priority: store.ComplaintPriorityLow,
			Now:      now,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := ComplaintScore(tt.in)
			assert.GreaterOrEqual(t, score, minScore)
			assert.LessOrEqual(t, score, maxScore)
		})
	}
}

func TestComplaintScore_BaseValues(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 80, ComplaintScore(ComplaintInput{Priority: store.ComplaintPriorityCritical, Now: now}))
	assert.Equal(t, 70, ComplaintScore(ComplaintInput{Priority: store.ComplaintPriorityHigh, Now: now}))
	assert.Equal(t, 50, ComplaintScore(ComplaintInput{Priority: store.ComplaintPriorityMedium, Now: now}))
	assert.Equal(t, 30, ComplaintScore(ComplaintInput{Priority: store.ComplaintPriorityLow, Now: now}))
}

func TestComplaintScore_SLARiskBonusTiers(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	pastDeadline := ComplaintScore(ComplaintInput{
		Priority: store.ComplaintPriorityMedium, ResolutionDueAt: now.Add(-1 * time.Minute), Now: now,
	})
	withinHour := ComplaintScore(ComplaintInput{
		Priority: store.ComplaintPriorityMedium, ResolutionDueAt: now.Add(30 * time.Minute), Now: now,
	})
	plentyOfTime := ComplaintScore(ComplaintInput{
		Priority: store.ComplaintPriorityMedium, ResolutionDueAt: now.Add(10 * time.Hour), Now: now,
	})
	noDeadline := ComplaintScore(ComplaintInput{Priority: store.ComplaintPriorityMedium, Now: now})

	assert.Equal(t, 70, pastDeadline)
	assert.Equal(t, 60, withinHour)
	assert.Equal(t, 50, plentyOfTime)
	assert.Equal(t, 50, noDeadline)
}

func TestComplaintScore_VIPBonus(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	base := ComplaintScore(ComplaintInput{Priority: store.ComplaintPriorityHigh, Now: now})
	vip := ComplaintScore(ComplaintInput{Priority: store.ComplaintPriorityHigh, IsVIP: true, Now: now})
	assert.Equal(t, vipBonus, vip-base)
	assert.Equal(t, 15, vipBonus)
}

func TestBookingScore_BaseAndVIP(t *testing.T) {
	assert.Equal(t, 30, BookingScore(BookingInput{}))
	assert.Equal(t, 45, BookingScore(BookingInput{IsVIP: true}))
}

func TestIsVIP_Threshold(t *testing.T) {
	assert.False(t, IsVIP(4))
	assert.True(t, IsVIP(5))
	assert.True(t, IsVIP(6))
}

func TestAlertScore_ClampedAndVIP(t *testing.T) {
	base := AlertScore(AlertInput{Severity: store.AlertSeverityCritical})
	vip := AlertScore(AlertInput{Severity: store.AlertSeverityCritical, IsVIP: true})
	assert.Equal(t, vipBonus, vip-base)
	assert.LessOrEqual(t, vip, maxScore)
}

func TestOrder_DescendingScoreThenAscendingCreatedAt(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	items := []Ranked{
		{Score: 50, CreatedAt: t0.Add(2 * time.Hour), ID: 3},
		{Score: 80, CreatedAt: t0.Add(1 * time.Hour), ID: 2},
		{Score: 50, CreatedAt: t0, ID: 1},
	}

	Order(items)

	assert.Equal(t, []uint64{2, 1, 3}, []uint64{items[0].ID, items[1].ID, items[2].ID})
}

type fakeComplaintRepo struct {
	store.ComplaintRepo
	complaints []store.Complaint
}

func (f *fakeComplaintRepo) ListComplaints(ctx context.Context, q store.FindComplaint, limit, offset int) ([]store.Complaint, error) {
	var out []store.Complaint
	for _, c := range f.complaints {
		if q.Status != nil && c.Status != *q.Status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

type fakeBookingRepo struct {
	store.BookingRepo
	bookings []store.Booking
	counts   map[uint64]int
}

func (f *fakeBookingRepo) CountBookings(ctx context.Context, userRef uint64) (int, error) {
	return f.counts[userRef], nil
}

func (f *fakeBookingRepo) ListBookingsByStatus(ctx context.Context, status store.BookingStatus, limit, offset int) ([]store.Booking, error) {
	var out []store.Booking
	for _, b := range f.bookings {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out, nil
}

func TestProjector_MergesComplaintsAndPendingBookings(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	complaints := &fakeComplaintRepo{complaints: []store.Complaint{
		{ID: 1, UserRef: 1, Priority: store.ComplaintPriorityCritical, Status: store.ComplaintStatusOpen, CreatedAt: now.Add(-1 * time.Hour)},
	}}
	bookings := &fakeBookingRepo{
		bookings: []store.Booking{
			{ID: 2, UserRef: 2, Status: store.BookingStatusPending, CreatedAt: now},
			{ID: 3, UserRef: 2, Status: store.BookingStatusConfirmed, CreatedAt: now},
		},
		counts: map[uint64]int{1: 1, 2: 1},
	}
	p := &Projector{Complaints: complaints, Bookings: bookings, Now: func() time.Time { return now }}

	items, err := p.Project(context.Background(), Filter{}, 10, 0)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "complaint", items[0].Kind)
	assert.Equal(t, uint64(1), items[0].ID)
	assert.Equal(t, "booking_pending", items[1].Kind)
	assert.Equal(t, uint64(2), items[1].ID)
}

func TestProjector_PriorityFilterExcludesBookings(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	complaints := &fakeComplaintRepo{complaints: []store.Complaint{
		{ID: 1, UserRef: 1, Priority: store.ComplaintPriorityCritical, Status: store.ComplaintStatusOpen, CreatedAt: now},
	}}
	bookings := &fakeBookingRepo{
		bookings: []store.Booking{{ID: 2, UserRef: 2, Status: store.BookingStatusPending, CreatedAt: now}},
		counts:   map[uint64]int{1: 0, 2: 0},
	}
	p := &Projector{Complaints: complaints, Bookings: bookings, Now: func() time.Time { return now }}

	critical := store.ComplaintPriorityCritical
	items, err := p.Project(context.Background(), Filter{Priority: &critical}, 10, 0)
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, "complaint", items[0].Kind)
}

func TestProjector_Pagination(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	bookings := &fakeBookingRepo{
		bookings: []store.Booking{
			{ID: 1, UserRef: 1, Status: store.BookingStatusPending, CreatedAt: now},
			{ID: 2, UserRef: 1, Status: store.BookingStatusPending, CreatedAt: now.Add(time.Minute)},
		},
		counts: map[uint64]int{1: 0},
	}
	p := &Projector{Complaints: &fakeComplaintRepo{}, Bookings: bookings, Now: func() time.Time { return now }}

	items, err := p.Project(context.Background(), Filter{}, 1, 1)
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, uint64(2), items[0].ID)
}
