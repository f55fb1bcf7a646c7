package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/converge-ai/convergeai/store"
)

// fakeMachine is a minimal two-slot Machine used to exercise Step's
// slot-order, three-strikes-abort, and confirmation logic independent of
// any concrete workflow (booking, complaint, ...).
type fakeMachine struct {
	values       map[string]string
	pendingSlot  string
	confirmed    bool
	failures     int
	confirmAsked bool
	extractOK    map[string]bool
	validateOK   map[string]bool
}

func newFakeMachine() *fakeMachine {
	return &fakeMachine{
		values:     make(map[string]string),
		extractOK:  map[string]bool{"a": true, "b": true},
		validateOK: map[string]bool{"a": true, "b": true},
	}
}

func (f *fakeMachine) Slots() []string { return []string{"a", "b"} }

// Extract only recognizes the literal utterance "value-<slot>", so tests
// can drive fillOpportunistic and the pending-slot path deterministically
// without incidentally filling every slot from one generic utterance.
func (f *fakeMachine) Extract(ctx context.Context, slot, utterance string, entities map[string]string, userRef uint64, state *store.WorkflowState) bool {
	if !f.extractOK[slot] || utterance != "value-"+slot {
		return false
	}
	f.values[slot] = utterance
	return true
}

func (f *fakeMachine) IsSet(slot string, state *store.WorkflowState) bool {
	_, ok := f.values[slot]
	return ok
}

func (f *fakeMachine) Validate(ctx context.Context, slot string, state *store.WorkflowState) (string, bool) {
	if !f.validateOK[slot] {
		delete(f.values, slot)
		return "that doesn't work", false
	}
	return "", true
}

func (f *fakeMachine) Prompt(slot string) string { return "please provide " + slot }
func (f *fakeMachine) Summary(state *store.WorkflowState) string { return "confirm?" }

func (f *fakeMachine) PendingSlot(state *store.WorkflowState) string        { return f.pendingSlot }
func (f *fakeMachine) SetPendingSlot(state *store.WorkflowState, slot string) { f.pendingSlot = slot }

func (f *fakeMachine) Confirmed(state *store.WorkflowState) bool   { return f.confirmed }
func (f *fakeMachine) SetConfirmed(state *store.WorkflowState, v bool) { f.confirmed = v }

func (f *fakeMachine) Failures(state *store.WorkflowState) int      { return f.failures }
func (f *fakeMachine) SetFailures(state *store.WorkflowState, n int) { f.failures = n }
func (f *fakeMachine) ConfirmAsked(state *store.WorkflowState) bool    { return f.confirmAsked }
func (f *fakeMachine) SetConfirmAsked(state *store.WorkflowState, v bool) { f.confirmAsked = v }

var _ Machine = (*fakeMachine)(nil)

func TestStep_FillsSlotsInOrderThenConfirms(t *testing.T) {
	m := newFakeMachine()
	state := &store.WorkflowState{}

	res := Step(context.Background(), m, state, "hello", nil, 1)
	assert.Equal(t, StatusInProgress, res.Status)
	assert.Equal(t, "a", m.pendingSlot)

	res = Step(context.Background(), m, state, "value-a", nil, 1)
	assert.Equal(t, StatusInProgress, res.Status)
	assert.Equal(t, "b", m.pendingSlot)

	res = Step(context.Background(), m, state, "value-b", nil, 1)
	assert.Equal(t, StatusInProgress, res.Status)
	assert.Equal(t, "confirm?", res.Reply)

	res = Step(context.Background(), m, state, "yes", nil, 1)
	assert.Equal(t, StatusCommitted, res.Status)
	assert.True(t, m.confirmed)
}

func TestStep_ThreeConsecutiveFailuresAborts(t *testing.T) {
	m := newFakeMachine()
	m.validateOK["a"] = false
	state := &store.WorkflowState{}

	Step(context.Background(), m, state, "hello", nil, 1) // sets pending to "a"

	res := Step(context.Background(), m, state, "bad-1", nil, 1)
	assert.Equal(t, StatusInProgress, res.Status)
	assert.Equal(t, 1, m.failures)

	res = Step(context.Background(), m, state, "bad-2", nil, 1)
	assert.Equal(t, StatusInProgress, res.Status)
	assert.Equal(t, 2, m.failures)

	res = Step(context.Background(), m, state, "bad-3", nil, 1)
	assert.Equal(t, StatusAborted, res.Status)
}

func TestStep_ConfirmationReaskThenAbortOnSecondMiss(t *testing.T) {
	m := newFakeMachine()
	state := &store.WorkflowState{}

	Step(context.Background(), m, state, "hello", nil, 1)
	Step(context.Background(), m, state, "value-a", nil, 1)
	Step(context.Background(), m, state, "value-b", nil, 1)

	res := Step(context.Background(), m, state, "maybe?", nil, 1)
	assert.Equal(t, StatusInProgress, res.Status)
	assert.True(t, m.confirmAsked)

	res = Step(context.Background(), m, state, "still unclear", nil, 1)
	assert.Equal(t, StatusAborted, res.Status)
}

func TestStep_NegativeConfirmationAborts(t *testing.T) {
	m := newFakeMachine()
	state := &store.WorkflowState{}

	Step(context.Background(), m, state, "hello", nil, 1)
	Step(context.Background(), m, state, "value-a", nil, 1)
	Step(context.Background(), m, state, "value-b", nil, 1)

	res := Step(context.Background(), m, state, "no", nil, 1)
	assert.Equal(t, StatusAborted, res.Status)
}
