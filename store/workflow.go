package store

import (
	"encoding/json"
	"fmt"
)

// WorkflowKind tags the active variant of a WorkflowState (spec.md §3).
// Re-architected per spec.md §9 "Design Notes" as an enumerated sum type
// persisted as tagged JSON, rather than a dynamically-typed blob.
type WorkflowKind string

const (
	WorkflowBooking      WorkflowKind = "booking_draft"
	WorkflowCancellation WorkflowKind = "cancellation_draft"
	WorkflowComplaint    WorkflowKind = "complaint_draft"
	WorkflowReschedule   WorkflowKind = "reschedule_draft"
)

// BookingSlots holds the slots gathered by the booking workflow machine.
type BookingSlots struct {
	ServiceQuery        *string `json:"service_query,omitempty"`
	SubcategoryID       *uint64 `json:"subcategory_id,omitempty"`
	RateCardID          *uint64 `json:"rate_card_id,omitempty"`
	Quantity            *int    `json:"quantity,omitempty"`
	AddressID           *uint64 `json:"address_id,omitempty"`
	AddressPincode      *string `json:"address_pincode,omitempty"` // cached from AddressResolver.Resolve, not a user-facing slot
	PreferredDate       *string `json:"preferred_date,omitempty"` // YYYY-MM-DD
	PreferredTime       *string `json:"preferred_time,omitempty"` // HH:MM
	SpecialInstructions *string `json:"special_instructions,omitempty"`
}

// BookingDraft is the WorkflowState variant for booking intents.
type BookingDraft struct {
	Slots         BookingSlots `json:"slots"`
	Confirmed     bool         `json:"confirmed"`
	PendingSlot   string       `json:"pending_slot,omitempty"`
	SlotFailures  int          `json:"slot_failures,omitempty"`
	ConfirmAsked  bool         `json:"confirm_asked,omitempty"`
}

// CancellationSlots holds the slots gathered by the cancellation workflow.
type CancellationSlots struct {
	BookingID  *uint64 `json:"booking_id,omitempty"`
	Reason     *string `json:"reason,omitempty"`
	RefundMode *string `json:"refund_mode,omitempty"`
}

// CancellationDraft is the WorkflowState variant for cancellation intents.
type CancellationDraft struct {
	Slots        CancellationSlots `json:"slots"`
	Confirmed    bool              `json:"confirmed"`
	PendingSlot  string            `json:"pending_slot,omitempty"`
	SlotFailures int               `json:"slot_failures,omitempty"`
	ConfirmAsked bool              `json:"confirm_asked,omitempty"`
}

// ComplaintSlots holds the slots gathered by the complaint workflow.
type ComplaintSlots struct {
	IssueType        *string `json:"issue_type,omitempty"`
	RelatedBookingID *uint64 `json:"related_booking_id,omitempty"`
	Description      *string `json:"description,omitempty"`
	Severity         *string `json:"severity,omitempty"`
}

// ComplaintDraft is the WorkflowState variant for complaint intents.
type ComplaintDraft struct {
	Slots        ComplaintSlots `json:"slots"`
	Confirmed    bool           `json:"confirmed"`
	PendingSlot  string         `json:"pending_slot,omitempty"`
	SlotFailures int            `json:"slot_failures,omitempty"`
	ConfirmAsked bool           `json:"confirm_asked,omitempty"`
}

// RescheduleSlots holds the slots gathered by the reschedule workflow.
type RescheduleSlots struct {
	BookingID *uint64 `json:"booking_id,omitempty"`
	NewDate   *string `json:"new_date,omitempty"`
	NewTime   *string `json:"new_time,omitempty"`
}

// RescheduleDraft is the WorkflowState variant for reschedule intents.
// spec.md §9 treats reschedule-at-commit as explicitly out of scope. The
// type exists, but no caller creates one: a reschedule intent gets
// workflow.StartReschedule's "not supported" reply and no draft is saved.
type RescheduleDraft struct {
	Slots       RescheduleSlots `json:"slots"`
	PendingSlot string          `json:"pending_slot,omitempty"`
}

// WorkflowState is the tagged-union persisted for a session's single
// active workflow (spec.md §3). Exactly one of the typed fields is
// non-nil, matching Kind.
type WorkflowState struct {
	Kind         WorkflowKind
	Booking      *BookingDraft
	Cancellation *CancellationDraft
	Complaint    *ComplaintDraft
	Reschedule   *RescheduleDraft
}

// NewBookingWorkflow creates a fresh BookingDraft workflow state.
func NewBookingWorkflow() *WorkflowState {
	return &WorkflowState{Kind: WorkflowBooking, Booking: &BookingDraft{}}
}

// NewCancellationWorkflow creates a fresh CancellationDraft workflow state.
func NewCancellationWorkflow() *WorkflowState {
	return &WorkflowState{Kind: WorkflowCancellation, Cancellation: &CancellationDraft{}}
}

// NewComplaintWorkflow creates a fresh ComplaintDraft workflow state.
func NewComplaintWorkflow() *WorkflowState {
	return &WorkflowState{Kind: WorkflowComplaint, Complaint: &ComplaintDraft{}}
}

// NewRescheduleWorkflow creates a fresh RescheduleDraft workflow state.
func NewRescheduleWorkflow() *WorkflowState {
	return &WorkflowState{Kind: WorkflowReschedule, Reschedule: &RescheduleDraft{}}
}

type taggedWorkflow struct {
	Kind WorkflowKind    `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON writes the workflow as tagged JSON: {"kind": ..., "data": ...}.
func (w WorkflowState) MarshalJSON() ([]byte, error) {
	var data any
	switch w.Kind {
	case WorkflowBooking:
		data = w.Booking
	case WorkflowCancellation:
		data = w.Cancellation
	case WorkflowComplaint:
		data = w.Complaint
	case WorkflowReschedule:
		data = w.Reschedule
	default:
		return nil, fmt.Errorf("workflow: unknown kind %q", w.Kind)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedWorkflow{Kind: w.Kind, Data: raw})
}

// UnmarshalJSON reads tagged JSON back into the matching variant.
func (w *WorkflowState) UnmarshalJSON(b []byte) error {
	var t taggedWorkflow
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	w.Kind = t.Kind
	switch t.Kind {
	case WorkflowBooking:
		w.Booking = &BookingDraft{}
		return json.Unmarshal(t.Data, w.Booking)
	case WorkflowCancellation:
		w.Cancellation = &CancellationDraft{}
		return json.Unmarshal(t.Data, w.Cancellation)
	case WorkflowComplaint:
		w.Complaint = &ComplaintDraft{}
		return json.Unmarshal(t.Data, w.Complaint)
	case WorkflowReschedule:
		w.Reschedule = &RescheduleDraft{}
		return json.Unmarshal(t.Data, w.Reschedule)
	default:
		return fmt.Errorf("workflow: unknown kind %q", t.Kind)
	}
}
