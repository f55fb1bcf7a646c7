package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converge-ai/convergeai/agent"
	"github.com/converge-ai/convergeai/intent"
	"github.com/converge-ai/convergeai/policy"
	"github.com/converge-ai/convergeai/store"
)

type fakeCatalog struct {
	store.CatalogRepo
	rateCards map[uint64]store.RateCard
}

func (f *fakeCatalog) GetRateCard(ctx context.Context, id uint64) (store.RateCard, error) {
	rc, ok := f.rateCards[id]
	if !ok {
		return store.RateCard{}, assert.AnError
	}
	return rc, nil
}

func (f *fakeCatalog) IsServiceable(ctx context.Context, providerID uint64, pincode string) (bool, error) {
	return true, nil
}

type fakeBookings struct {
	store.BookingRepo
	created store.Booking
	items   []store.BookingItem
}

func (f *fakeBookings) CreateBooking(ctx context.Context, b store.Booking, items []store.BookingItem) (store.Booking, []store.BookingItem, error) {
	b.ID = 101
	f.created = b
	f.items = items
	return b, items, nil
}

func TestCommitBooking_TotalMatchesSumOfItemFinalAmounts(t *testing.T) {
	rc := store.RateCard{ID: 5, ProviderID: 1, Name: "Deep Clean", Price: store.NewMoney(50), DurationMins: 90}
	catalog := &fakeCatalog{rateCards: map[uint64]store.RateCard{5: rc}}
	bookings := &fakeBookings{}

	a := &Agent{
		Catalog:  catalog,
		Bookings: bookings,
		Now:      func() time.Time { return time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC) },
	}

	rateCardID := uint64(5)
	qty := 2
	addressID := uint64(9)
	date := "tomorrow"
	pTime := "14:00"

	state := store.NewBookingWorkflow()
	state.Booking.Slots = store.BookingSlots{
		RateCardID:    &rateCardID,
		Quantity:      &qty,
		AddressID:     &addressID,
		PreferredDate: &date,
		PreferredTime: &pTime,
	}

	outcome := a.commitBooking(context.Background(), agent.Input{UserRef: 77}, state)

	require.Nil(t, outcome.Err)
	assert.Equal(t, "booking_committed", outcome.ActionTaken)

	require.Len(t, bookings.items, 1)
	var sum store.Money
	for _, it := range bookings.items {
		sum += it.FinalAmount
	}
	assert.Equal(t, bookings.created.Total, sum)
	assert.Equal(t, store.NewMoney(100), bookings.created.Total)
	assert.Equal(t, "2026-08-02", bookings.items[0].ScheduledDate)
}

func TestClampWindow_NeverExtendsPastServiceWindowEnd(t *testing.T) {
	from, to := clampWindow("19:00", 180)
	assert.Equal(t, "19:00", from)
	assert.Equal(t, serviceWindowEnd, to)
}

func TestClampWindow_UsesDefaultDurationWhenUnset(t *testing.T) {
	from, to := clampWindow("10:00", 0)
	assert.Equal(t, "10:00", from)
	assert.Equal(t, "12:00", to)
}

func TestResolveRelativeDate(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-01", resolveRelativeDate("today", now))
	assert.Equal(t, "2026-08-02", resolveRelativeDate("tomorrow", now))
	assert.Equal(t, "2026-09-15", resolveRelativeDate("2026-09-15", now))
}

func TestHoursUntilService_PastScheduleIsZero(t *testing.T) {
	b := store.Booking{PreferredDate: "2026-01-01", PreferredTime: "10:00"}
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, float64(0), hoursUntilService(b, now))
}

func TestCancellation_RefundScheduleApplied(t *testing.T) {
	bookings := &fakeCancelBookings{
		booking: store.Booking{
			ID:            1,
			Total:         store.NewMoney(100),
			PreferredDate: "2026-08-02",
			PreferredTime: "10:00",
		},
	}
	a := &Agent{
		Bookings: bookings,
		Policy:   policy.Default(),
		Now:      func() time.Time { return time.Date(2026, 8, 2, 5, 0, 0, 0, time.UTC) }, // 5h before service
	}

	bookingID := uint64(1)
	state := store.NewCancellationWorkflow()
	state.Cancellation.Slots = store.CancellationSlots{BookingID: &bookingID}

	outcome := a.commitCancellation(context.Background(), agent.Input{}, state)

	require.Nil(t, outcome.Err)
	assert.Equal(t, 100, bookings.refundPercent)
	assert.Equal(t, store.NewMoney(100), bookings.refundAmount)
}

type fakeCancelBookings struct {
	store.BookingRepo
	booking       store.Booking
	refundAmount  store.Money
	refundPercent int
}

func (f *fakeCancelBookings) GetBooking(ctx context.Context, q store.FindBooking) (store.Booking, []store.BookingItem, error) {
	return f.booking, nil, nil
}

func (f *fakeCancelBookings) CancelBooking(ctx context.Context, id uint64, refundAmount store.Money, refundPercent int, at time.Time) (store.Booking, error) {
	f.refundAmount = refundAmount
	f.refundPercent = refundPercent
	f.booking.Status = store.BookingStatusCancelled
	return f.booking, nil
}

func TestExecute_RescheduleIsUnsupported(t *testing.T) {
	a := &Agent{}
	outcome := a.Execute(context.Background(), agent.Input{Intent: intent.IntentReschedule})
	assert.Equal(t, "reschedule_unsupported", outcome.ActionTaken)
}
