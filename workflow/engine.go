package workflow

import (
	"context"
	"regexp"
	"strings"

	"github.com/converge-ai/convergeai/intent"
	"github.com/converge-ai/convergeai/store"
)

// Status is the outcome of one Step call.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCommitted  Status = "committed"
	StatusAborted    Status = "aborted"
)

// Result is what Step returns: a reply to send back this turn, and the
// workflow's resulting status. Callers clear the session's workflow state
// on StatusCommitted (after running the agent's commit) and StatusAborted.
type Result struct {
	Reply  string
	Status Status
}

var negativeRe = regexp.MustCompile(`(?i)^\s*(no|n|nope|cancel|never\s*mind|stop)\s*$`)

func isNegative(text string) bool {
	return negativeRe.MatchString(strings.TrimSpace(text))
}

// Step drives one turn of a slot-filling workflow per the engine's three
// phases: fill the outstanding prompt's slot (or opportunistically fill on
// the opening turn), advance to the next unset required slot, and once all
// required slots are set, run the confirmation step before commit.
//
// Three consecutive validator failures on the same slot abort the
// workflow; a confirmation step that doesn't parse as yes/no is re-asked
// once, then aborts on a second miss.
func Step(ctx context.Context, m Machine, state *store.WorkflowState, utterance string, entities map[string]string, userRef uint64) Result {
	slots := m.Slots()

	if allRequiredSet(m, slots, state) {
		return confirmStep(m, state, utterance)
	}

	pending := m.PendingSlot(state)

	if pending == "" {
		fillOpportunistic(ctx, m, slots, utterance, entities, userRef, state)
		if next := firstUnset(m, slots, state); next != "" {
			m.SetPendingSlot(state, next)
			return Result{Reply: m.Prompt(next), Status: StatusInProgress}
		}
		return Result{Reply: m.Summary(state), Status: StatusInProgress}
	}

	if !m.Extract(ctx, pending, utterance, entities, userRef, state) {
		return failSlot(m, state, pending, "I didn't quite catch that.")
	}
	if reason, ok := m.Validate(ctx, pending, state); !ok {
		return failSlot(m, state, pending, reason)
	}
	m.SetFailures(state, 0)

	fillOpportunistic(ctx, m, slots, utterance, entities, userRef, state)

	if next := firstUnset(m, slots, state); next != "" {
		m.SetPendingSlot(state, next)
		return Result{Reply: m.Prompt(next), Status: StatusInProgress}
	}
	m.SetPendingSlot(state, "")
	return Result{Reply: m.Summary(state), Status: StatusInProgress}
}

// fillOpportunistic tries every still-unset slot against the same
// utterance, dropping silently (no failure count) on extraction or
// validation misses. This lets one information-dense utterance ("book a
// deep clean for tomorrow at 2pm, quantity 2") fill several slots at once.
func fillOpportunistic(ctx context.Context, m Machine, slots []string, utterance string, entities map[string]string, userRef uint64, state *store.WorkflowState) {
	for _, s := range slots {
		if m.IsSet(s, state) {
			continue
		}
		if !m.Extract(ctx, s, utterance, entities, userRef, state) {
			continue
		}
		m.Validate(ctx, s, state)
	}
}

func allRequiredSet(m Machine, slots []string, state *store.WorkflowState) bool {
	for _, s := range slots {
		if !m.IsSet(s, state) {
			return false
		}
	}
	return true
}

func firstUnset(m Machine, slots []string, state *store.WorkflowState) string {
	for _, s := range slots {
		if !m.IsSet(s, state) {
			return s
		}
	}
	return ""
}

func failSlot(m Machine, state *store.WorkflowState, slot, reason string) Result {
	n := m.Failures(state) + 1
	m.SetFailures(state, n)
	if n >= maxSlotFailures {
		return Result{
			Reply:  "I'm having trouble getting that information, so I've cancelled this request. Feel free to start again whenever you're ready.",
			Status: StatusAborted,
		}
	}
	msg := m.Prompt(slot)
	if reason != "" {
		msg = reason + " " + msg
	}
	return Result{Reply: msg, Status: StatusInProgress}
}

func confirmStep(m Machine, state *store.WorkflowState, utterance string) Result {
	if intent.IsAffirmative(utterance) {
		m.SetConfirmed(state, true)
		return Result{Status: StatusCommitted}
	}
	if isNegative(utterance) {
		return Result{Reply: "Okay, I've cancelled that for you.", Status: StatusAborted}
	}
	if m.ConfirmAsked(state) {
		return Result{
			Reply:  "I still didn't catch a yes or no, so I've cancelled this request. Let me know if you'd like to start over.",
			Status: StatusAborted,
		}
	}
	m.SetConfirmAsked(state, true)
	return Result{Reply: m.Summary(state), Status: StatusInProgress}
}
