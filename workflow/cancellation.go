package workflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/converge-ai/convergeai/store"
)

// cancellationSlotOrder is spec.md §4.5's required slot order for the
// cancellation workflow. reason is optional and filled opportunistically.
var cancellationSlotOrder = []string{"booking_id"}

// CancellationMachine drives the cancellation slot-filling workflow.
type CancellationMachine struct {
	Bookings store.BookingRepo
	UserRef  uint64
}

var _ Machine = (*CancellationMachine)(nil)

func (m *CancellationMachine) Slots() []string { return cancellationSlotOrder }

func (m *CancellationMachine) Extract(ctx context.Context, slot, utterance string, entities map[string]string, userRef uint64, state *store.WorkflowState) bool {
	d := state.Cancellation
	m.tryFillReason(utterance, d)

	switch slot {
	case "booking_id":
		return m.extractBookingID(utterance, entities, d)
	case "reason":
		return d.Slots.Reason != nil
	default:
		return false
	}
}

func (m *CancellationMachine) tryFillReason(utterance string, d *store.CancellationDraft) {
	if d.Slots.Reason != nil {
		return
	}
	if mm := instructionNoteRe.FindStringSubmatch(utterance); mm != nil {
		note := strings.TrimSpace(mm[1])
		d.Slots.Reason = &note
	}
}

func (m *CancellationMachine) extractBookingID(utterance string, entities map[string]string, d *store.CancellationDraft) bool {
	if v, ok := entities["booking_id"]; ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			d.Slots.BookingID = &n
			return true
		}
	}
	if mm := bookingRefRe.FindStringSubmatch(utterance); mm != nil {
		if n, err := strconv.ParseUint(mm[1], 10, 64); err == nil {
			d.Slots.BookingID = &n
			return true
		}
	}
	return false
}

func (m *CancellationMachine) IsSet(slot string, state *store.WorkflowState) bool {
	d := state.Cancellation
	switch slot {
	case "booking_id":
		return d.Slots.BookingID != nil
	case "reason":
		return d.Slots.Reason != nil
	default:
		return false
	}
}

// Validate checks that the referenced booking exists, belongs to the
// caller, and is still in a cancellable status, clearing the slot on
// failure so IsSet reports it unset again.
func (m *CancellationMachine) Validate(ctx context.Context, slot string, state *store.WorkflowState) (string, bool) {
	d := state.Cancellation
	if slot != "booking_id" || d.Slots.BookingID == nil {
		return "", true
	}
	b, _, err := m.Bookings.GetBooking(ctx, store.FindBooking{ID: d.Slots.BookingID})
	if err != nil {
		d.Slots.BookingID = nil
		return "I couldn't find a booking with that number.", false
	}
	if b.UserRef != m.UserRef {
		d.Slots.BookingID = nil
		return "I couldn't find a booking with that number.", false
	}
	if b.Status == store.BookingStatusCancelled || b.Status == store.BookingStatusCompleted {
		d.Slots.BookingID = nil
		return "That booking can no longer be cancelled.", false
	}
	return "", true
}

func (m *CancellationMachine) Prompt(slot string) string {
	switch slot {
	case "booking_id":
		return "Which booking would you like to cancel? You can give me the booking number."
	default:
		return "Could you share a bit more detail?"
	}
}

func (m *CancellationMachine) Summary(state *store.WorkflowState) string {
	d := state.Cancellation
	id := uint64(0)
	if d.Slots.BookingID != nil {
		id = *d.Slots.BookingID
	}
	return fmt.Sprintf("To confirm: cancel booking #%d? Any refund you're owed will be calculated from our cancellation policy. Shall I go ahead?", id)
}

func (m *CancellationMachine) PendingSlot(state *store.WorkflowState) string {
	return state.Cancellation.PendingSlot
}
func (m *CancellationMachine) SetPendingSlot(state *store.WorkflowState, slot string) {
	state.Cancellation.PendingSlot = slot
}
func (m *CancellationMachine) Confirmed(state *store.WorkflowState) bool {
	return state.Cancellation.Confirmed
}
func (m *CancellationMachine) SetConfirmed(state *store.WorkflowState, v bool) {
	state.Cancellation.Confirmed = v
}
func (m *CancellationMachine) Failures(state *store.WorkflowState) int {
	return state.Cancellation.SlotFailures
}
func (m *CancellationMachine) SetFailures(state *store.WorkflowState, n int) {
	state.Cancellation.SlotFailures = n
}
func (m *CancellationMachine) ConfirmAsked(state *store.WorkflowState) bool {
	return state.Cancellation.ConfirmAsked
}
func (m *CancellationMachine) SetConfirmAsked(state *store.WorkflowState, v bool) {
	state.Cancellation.ConfirmAsked = v
}
