// Package booking implements the Booking Agent (spec.md §4.6): starting
// the booking workflow, committing a confirmed draft to a persisted
// Booking + BookingItems, cancelling with the refund schedule applied,
// and a read-only status_inquiry branch. Reschedule is delegated to
// workflow.StartReschedule per spec.md §9's open question.
package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/converge-ai/convergeai/agent"
	"github.com/converge-ai/convergeai/intent"
	"github.com/converge-ai/convergeai/policy"
	"github.com/converge-ai/convergeai/store"
	"github.com/converge-ai/convergeai/workflow"
)

// serviceWindowEnd is spec.md §4.6's clamp: a booking's scheduled window
// end never runs past 20:00 local.
const serviceWindowEnd = "20:00"

// defaultWindowHours is the window width used when a rate card has no
// positive duration.
const defaultWindowHours = 2

// Agent implements agent.Handler for booking, cancellation, reschedule,
// and status_inquiry intents, per the dispatch table in package agent.
type Agent struct {
	Store     *store.Store
	Catalog   store.CatalogRepo
	Bookings  store.BookingRepo
	Addresses workflow.AddressResolver
	Policy    policy.Tables
	Now       func() time.Time
}

var _ agent.Handler = (*Agent)(nil)

func (a *Agent) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

// Execute dispatches to the sub-flow matching in.Intent. Booking and
// cancellation drive (or continue) a slot-filling workflow; status_inquiry
// is a read-only branch; reschedule is not supported this release.
func (a *Agent) Execute(ctx context.Context, in agent.Input) agent.Outcome {
	switch in.Intent {
	case intent.IntentBooking:
		return a.stepBooking(ctx, in)
	case intent.IntentCancellation:
		return a.stepCancellation(ctx, in)
	case intent.IntentReschedule:
		r := workflow.StartReschedule()
		return agent.Outcome{ReplyText: r.Reply, ActionTaken: "reschedule_unsupported"}
	case intent.IntentStatusInquiry:
		return a.statusInquiry(ctx, in)
	default:
		return agent.Outcome{ReplyText: "I'm not sure how to help with that.", Err: nil}
	}
}

func (a *Agent) stepBooking(ctx context.Context, in agent.Input) agent.Outcome {
	state := in.Workflow
	if state == nil || state.Kind != store.WorkflowBooking {
		state = store.NewBookingWorkflow()
	}

	m := &workflow.BookingMachine{Catalog: a.Catalog, Addresses: a.Addresses, Now: a.Now}
	res := workflow.Step(ctx, m, state, in.Text, in.Entities, in.UserRef)

	switch res.Status {
	case workflow.StatusCommitted:
		return a.commitBooking(ctx, in, state)
	case workflow.StatusAborted:
		return agent.Outcome{ReplyText: res.Reply, WorkflowAfter: nil, ActionTaken: "booking_aborted"}
	default:
		return agent.Outcome{ReplyText: res.Reply, WorkflowAfter: state, ActionTaken: "booking_in_progress"}
	}
}

func (a *Agent) commitBooking(ctx context.Context, in agent.Input, state *store.WorkflowState) agent.Outcome {
	d := state.Booking.Slots

	rc, err := a.Catalog.GetRateCard(ctx, *d.RateCardID)
	if err != nil {
		return agent.Outcome{ReplyText: "That service is no longer available. Let's start over.", Err: err}
	}

	qty := 1
	if d.Quantity != nil {
		qty = *d.Quantity
	}

	unitPrice := rc.Price
	total := unitPrice.Mul(qty)

	date := resolveRelativeDate(*d.PreferredDate, a.now())
	if !isFutureDate(date, a.now()) {
		return agent.Outcome{ReplyText: "That date has already passed. Please choose a date starting tomorrow.", ActionTaken: "booking_rejected"}
	}
	if !withinBusinessHours(*d.PreferredTime) {
		return agent.Outcome{ReplyText: "We only schedule between 08:00 and 20:00.", ActionTaken: "booking_rejected"}
	}
	windowFrom, windowTo := clampWindow(*d.PreferredTime, rc.DurationMins)

	specialInstructions := ""
	if d.SpecialInstructions != nil {
		specialInstructions = *d.SpecialInstructions
	}

	orderID := "ORD-" + shortuuid.New()
	bookingNumber := strings.ToUpper(shortuuid.New()[:8])

	b := store.Booking{
		OrderID:             orderID,
		BookingNumber:       bookingNumber,
		UserRef:             in.UserRef,
		AddressRef:          *d.AddressID,
		Subtotal:            total,
		Total:                total,
		Status:              store.BookingStatusConfirmed,
		PaymentStatus:       store.PaymentStatusUnpaid,
		PreferredDate:       date,
		PreferredTime:       *d.PreferredTime,
		SpecialInstructions: specialInstructions,
	}
	item := store.BookingItem{
		RateCardID:          rc.ID,
		ProviderRef:         &rc.ProviderID,
		AddressRef:          *d.AddressID,
		ServiceName:         rc.Name,
		Quantity:            qty,
		UnitPrice:           unitPrice,
		TotalAmount:         total,
		FinalAmount:         total,
		ScheduledDate:       date,
		ScheduledWindowFrom: windowFrom,
		ScheduledWindowTo:   windowTo,
		Status:              store.BookingItemStatusConfirmed,
		PaymentStatus:       store.PaymentStatusUnpaid,
	}

	created, items, err := a.Bookings.CreateBooking(ctx, b, []store.BookingItem{item})
	if err != nil {
		return agent.Outcome{ReplyText: "Something went wrong while booking that. Please try again.", Err: err}
	}

	reply := fmt.Sprintf(
		"Your booking is confirmed: order %s (booking #%d), %s on %s between %s and %s. Total: %s.",
		created.OrderID, created.ID, items[0].ServiceName, created.PreferredDate, windowFrom, windowTo, created.Total,
	)
	return agent.Outcome{ReplyText: reply, ActionTaken: "booking_committed", Metadata: map[string]string{"booking_id": fmt.Sprint(created.ID)}}
}

// resolveRelativeDate expands the "today"/"tomorrow" sentinels
// workflow.BookingMachine leaves in place, against the clock at commit
// time — the workflow engine itself stays deterministic and clock-free.
func resolveRelativeDate(raw string, now time.Time) string {
	switch raw {
	case "today":
		return now.Format("2006-01-02")
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format("2006-01-02")
	default:
		return raw
	}
}

// isFutureDate re-checks spec.md §4.5's "date ≥ today+1" rule at commit
// time, in case the workflow's slot validator was bypassed (e.g. a slot
// restored from a stale saved workflow).
func isFutureDate(dateStr string, now time.Time) bool {
	parsed, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return parsed.After(today)
}

// withinBusinessHours re-checks spec.md §4.5's 08:00–20:00 window at
// commit time, alongside isFutureDate.
func withinBusinessHours(timeStr string) bool {
	t, err := time.Parse("15:04", timeStr)
	if err != nil {
		return false
	}
	open, _ := time.Parse("15:04", "08:00")
	closeAt, _ := time.Parse("15:04", "20:00")
	return !t.Before(open) && !t.After(closeAt)
}

// clampWindow derives a [from, to) scheduling window starting at
// preferredTime, never extending past serviceWindowEnd (spec.md §4.6).
func clampWindow(preferredTime string, durationMins int) (string, string) {
	hours := defaultWindowHours
	if durationMins > 0 {
		hours = (durationMins + 59) / 60
		if hours < 1 {
			hours = 1
		}
	}
	start, err := time.Parse("15:04", preferredTime)
	if err != nil {
		return preferredTime, serviceWindowEnd
	}
	end := start.Add(time.Duration(hours) * time.Hour)
	windowCap, _ := time.Parse("15:04", serviceWindowEnd)
	if end.After(windowCap) {
		end = windowCap
	}
	return start.Format("15:04"), end.Format("15:04")
}

func (a *Agent) stepCancellation(ctx context.Context, in agent.Input) agent.Outcome {
	state := in.Workflow
	if state == nil || state.Kind != store.WorkflowCancellation {
		state = store.NewCancellationWorkflow()
	}

	m := &workflow.CancellationMachine{Bookings: a.Bookings, UserRef: in.UserRef}
	res := workflow.Step(ctx, m, state, in.Text, in.Entities, in.UserRef)

	switch res.Status {
	case workflow.StatusCommitted:
		return a.commitCancellation(ctx, in, state)
	case workflow.StatusAborted:
		return agent.Outcome{ReplyText: res.Reply, ActionTaken: "cancellation_aborted"}
	default:
		return agent.Outcome{ReplyText: res.Reply, WorkflowAfter: state, ActionTaken: "cancellation_in_progress"}
	}
}

func (a *Agent) commitCancellation(ctx context.Context, in agent.Input, state *store.WorkflowState) agent.Outcome {
	d := state.Cancellation.Slots
	b, items, err := a.Bookings.GetBooking(ctx, store.FindBooking{ID: d.BookingID})
	if err != nil {
		return agent.Outcome{ReplyText: "I couldn't find that booking anymore.", Err: err}
	}

	hoursBefore := hoursUntilService(b, a.now())
	refundPercent := a.Policy.RefundPercent(hoursBefore)
	refundAmount := b.Total.Percent(refundPercent)

	updated, err := a.Bookings.CancelBooking(ctx, b.ID, refundAmount, refundPercent, a.now())
	if err != nil {
		return agent.Outcome{ReplyText: "Something went wrong while cancelling that booking.", Err: err}
	}

	reply := fmt.Sprintf("Booking #%d has been cancelled. You're eligible for a %d%% refund (%s).", updated.ID, refundPercent, refundAmount)
	return agent.Outcome{
		ReplyText:   reply,
		ActionTaken: "cancellation_committed",
		Metadata:    map[string]string{"booking_id": fmt.Sprint(updated.ID), "items": fmt.Sprint(len(items))},
	}
}

// hoursUntilService computes hours_before_service for the refund
// schedule lookup: the gap between now and the booking's scheduled
// date/time.
func hoursUntilService(b store.Booking, now time.Time) float64 {
	scheduled, err := time.Parse("2006-01-02 15:04", b.PreferredDate+" "+b.PreferredTime)
	if err != nil {
		return 0
	}
	d := scheduled.Sub(now)
	if d < 0 {
		return 0
	}
	return d.Hours()
}

func (a *Agent) statusInquiry(ctx context.Context, in agent.Input) agent.Outcome {
	bookings, err := a.Bookings.ListBookings(ctx, in.UserRef, 5, 0)
	if err != nil {
		return agent.Outcome{ReplyText: "I couldn't look up your bookings right now.", Err: err}
	}
	if len(bookings) == 0 {
		return agent.Outcome{ReplyText: "You don't have any bookings yet.", ActionTaken: "status_inquiry"}
	}
	var sb strings.Builder
	sb.WriteString("Here are your most recent bookings:\n")
	for _, b := range bookings {
		fmt.Fprintf(&sb, "- #%d (%s): %s on %s, status %s\n", b.ID, b.OrderID, b.Total, b.PreferredDate, b.Status)
	}
	return agent.Outcome{ReplyText: sb.String(), ActionTaken: "status_inquiry"}
}
