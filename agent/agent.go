// Package agent defines the Agent Runtime (spec.md §4.4): the uniform
// contract every specialist agent implements, and the compile-time
// dispatch table spec.md §9 substitutes for the source's dynamic,
// reflection-based agent discovery.
package agent

import (
	"context"

	"github.com/converge-ai/convergeai/intent"
	"github.com/converge-ai/convergeai/store"
)

// Outcome is the uniform result every agent returns, never raising past
// the Coordinator (spec.md §7 propagation policy).
type Outcome struct {
	ReplyText     string
	WorkflowAfter *store.WorkflowState
	ActionTaken   string
	Metadata      map[string]string
	Err           error
}

// Handler is the uniform agent contract of spec.md §4.4. Agents must be
// idempotent with respect to reads; write side effects commit only on
// explicit confirmation turns (enforced by the workflow engine, not here).
type Handler interface {
	Execute(ctx context.Context, in Input) Outcome
}

// Input bundles everything a Handler needs for one turn.
type Input struct {
	Intent   intent.Intent
	Entities map[string]string
	Session  store.Session
	Workflow *store.WorkflowState
	Text     string
	UserRef  uint64
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, in Input) Outcome

func (f HandlerFunc) Execute(ctx context.Context, in Input) Outcome { return f(ctx, in) }

// DispatchTable maps an Intent to the Handler that owns it, per spec.md
// §4.4's table. greeting and other are handled inline by the Coordinator
// and never appear here.
type DispatchTable map[intent.Intent]Handler

// NewDispatchTable builds the table from the spec.md §4.4 mapping. The same
// Handler instance may legitimately sit behind more than one Intent (e.g.
// a BookingAgent handles booking, reschedule, cancellation and
// status_inquiry via different internal branches).
func NewDispatchTable(booking, complaint, discovery, policy Handler) DispatchTable {
	return DispatchTable{
		intent.IntentBooking:        booking,
		intent.IntentReschedule:     booking,
		intent.IntentCancellation:   booking,
		intent.IntentStatusInquiry:  booking,
		intent.IntentComplaint:      complaint,
		intent.IntentServiceInquiry: discovery,
		intent.IntentPriceInquiry:   discovery,
		intent.IntentPolicyInquiry:  policy,
	}
}

// Lookup returns the Handler for in, and whether one exists. Intents with
// no entry (greeting, other) are the Coordinator's own responsibility.
func (t DispatchTable) Lookup(i intent.Intent) (Handler, bool) {
	h, ok := t[i]
	return h, ok
}
