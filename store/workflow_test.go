package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowState_TaggedJSONRoundTrip(t *testing.T) {
	date := "2026-08-05"
	addrID := uint64(3)
	original := NewBookingWorkflow()
	original.Booking.Slots = BookingSlots{
		AddressID:     &addrID,
		PreferredDate: &date,
	}
	original.Booking.PendingSlot = "preferred_time"

	raw, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"kind":"booking_draft"`)

	var decoded WorkflowState
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, WorkflowBooking, decoded.Kind)
	require.NotNil(t, decoded.Booking)
	require.NotNil(t, decoded.Booking.Slots.AddressID)
	assert.Equal(t, addrID, *decoded.Booking.Slots.AddressID)
	require.NotNil(t, decoded.Booking.Slots.PreferredDate)
	assert.Equal(t, date, *decoded.Booking.Slots.PreferredDate)
	assert.Equal(t, "preferred_time", decoded.Booking.PendingSlot)
}

func TestWorkflowState_UnknownKindFailsToMarshal(t *testing.T) {
	w := WorkflowState{Kind: "not_a_real_kind"}
	_, err := json.Marshal(w)
	assert.Error(t, err)
}
