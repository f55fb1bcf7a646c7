// Package workflow implements the Slot-Filling Workflow Engine (spec.md
// §4.5): one state machine per WorkflowState variant, each declaring an
// ordered list of required slots, prompt generators, extractors,
// validators, and a shared confirmation step before commit.
package workflow

import (
	"context"

	"github.com/converge-ai/convergeai/store"
)

// Machine is implemented once per store.WorkflowKind.
type Machine interface {
	// Slots returns the required slots in the order spec.md §4.5 mandates.
	// Optional slots (e.g. special_instructions) are not included here;
	// they are filled opportunistically and skipped when absent.
	Slots() []string

	// Extract attempts to pull slot's value from utterance/entities, and
	// on success writes it into state. Returns true if the slot was filled.
	// userRef scopes lookups (e.g. address resolution) to the caller.
	Extract(ctx context.Context, slot, utterance string, entities map[string]string, userRef uint64, state *store.WorkflowState) bool

	// IsSet reports whether slot already has a value in state.
	IsSet(slot string, state *store.WorkflowState) bool

	// Validate runs business-rule validation for slot after extraction,
	// returning a human-readable reason on failure.
	Validate(ctx context.Context, slot string, state *store.WorkflowState) (reason string, ok bool)

	// Prompt produces the assistant's next reply asking for slot.
	Prompt(slot string) string

	// Summary renders the pre-commit confirmation message.
	Summary(state *store.WorkflowState) string

	// PendingSlot returns the current pending slot recorded on state.
	PendingSlot(state *store.WorkflowState) string
	// SetPendingSlot records the current pending slot on state.
	SetPendingSlot(state *store.WorkflowState, slot string)

	// Confirmed / SetConfirmed track the confirmation step.
	Confirmed(state *store.WorkflowState) bool
	SetConfirmed(state *store.WorkflowState, v bool)

	// Failures / SetFailures / ConfirmAsked / SetConfirmAsked back the
	// three-strikes abort rule and the single confirmation re-ask.
	Failures(state *store.WorkflowState) int
	SetFailures(state *store.WorkflowState, n int)
	ConfirmAsked(state *store.WorkflowState) bool
	SetConfirmAsked(state *store.WorkflowState, v bool)
}

// maxSlotFailures is spec.md §4.5's "three consecutive validator failures"
// abort threshold.
const maxSlotFailures = 3
