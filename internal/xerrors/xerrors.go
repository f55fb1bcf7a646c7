// Package xerrors implements the error taxonomy used across the ConvergeAI
// core: a small set of kinds the Coordinator maps to reply templates,
// wrapping the pkg/errors stack trace the teacher uses at service
// boundaries.
package xerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error for the Coordinator's reply-template mapping.
// These are the taxonomy buckets of spec.md §7, not Go type names.
type Kind string

const (
	// KindUserInput covers invalid pincode, unparseable date, unknown
	// rate card — surfaced as a reprompt within the current workflow slot.
	KindUserInput Kind = "user_input"
	// KindBusinessRule covers NoServiceableProvider, BookingNotCancellable,
	// SLAPolicyMissing — surfaced as a workflow-terminating message.
	KindBusinessRule Kind = "business_rule"
	// KindUpstream covers LLM/vector/embedding/DB failures — retried once,
	// then surfaced as a transient failure reply with the draft preserved.
	KindUpstream Kind = "upstream"
	// KindInvariant covers programming errors (role alternation, slot
	// order violations) — the turn is aborted with no partial writes.
	KindInvariant Kind = "invariant"
	// KindDeadline covers per-call and per-turn deadline overruns.
	KindDeadline Kind = "deadline"
	// KindNotFound covers missing sessions, bookings, complaints.
	KindNotFound Kind = "not_found"
)

// Error is a kind-tagged, stack-carrying error.
type Error struct {
	cause error
	Kind  Kind
	Msg   string
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a kind-tagged error with a stack trace attached.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg, cause: errors.New(msg)}
}

// Wrap attaches a kind and a stack trace to an existing error.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, cause: errors.Wrap(err, msg)}
}

// Of extracts the Kind of err, defaulting to KindInvariant when err does
// not carry one — an un-kinded error reaching the Coordinator is itself
// a programming error.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if err == nil {
		return ""
	}
	return KindInvariant
}

// Is reports whether Of(err) equals kind: only the first *Error found in
// err's chain is consulted, so a kind carried by a deeper *Error is not.
func Is(err error, kind Kind) bool {
	return Of(err) == kind
}
