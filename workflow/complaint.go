package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/converge-ai/convergeai/store"
)

// complaintSlotOrder is spec.md §4.5's required slot order for the
// complaint workflow. related_booking_id is optional and filled
// opportunistically only.
var complaintSlotOrder = []string{
	"issue_type",
	"description",
}

// minDescriptionLen is spec.md §4.7's minimum complaint description length.
const minDescriptionLen = 20

// ComplaintMachine drives the complaint slot-filling workflow.
type ComplaintMachine struct{}

var _ Machine = (*ComplaintMachine)(nil)

func (m *ComplaintMachine) Slots() []string { return complaintSlotOrder }

var bookingRefRe = regexp.MustCompile(`(?i)\b(?:booking|order)\s*#?(\d+)\b`)

var issueTypeKeywords = map[store.ComplaintType][]string{
	store.ComplaintTypeServiceQuality:    {"quality", "sloppy", "unprofessional", "poor job", "bad job"},
	store.ComplaintTypeProviderBehavior:  {"rude", "behaviour", "behavior", "no show", "didn't show", "did not show", "late"},
	store.ComplaintTypeBilling:           {"billing", "overcharged", "charged twice", "invoice"},
	store.ComplaintTypeDelay:             {"delay", "delayed", "took too long", "waiting"},
	store.ComplaintTypeCancellationIssue: {"cancellation", "cancelled my"},
	store.ComplaintTypeRefundIssue:       {"refund", "money back"},
}

func (m *ComplaintMachine) Extract(ctx context.Context, slot, utterance string, entities map[string]string, userRef uint64, state *store.WorkflowState) bool {
	d := state.Complaint
	m.tryFillBookingRef(utterance, d)

	switch slot {
	case "issue_type":
		return m.extractIssueType(utterance, d)
	case "description":
		return m.extractDescription(utterance, d)
	case "related_booking_id":
		return d.Slots.RelatedBookingID != nil
	default:
		return false
	}
}

func (m *ComplaintMachine) tryFillBookingRef(utterance string, d *store.ComplaintDraft) {
	if d.Slots.RelatedBookingID != nil {
		return
	}
	mm := bookingRefRe.FindStringSubmatch(utterance)
	if mm == nil {
		return
	}
	n, err := strconv.ParseUint(mm[1], 10, 64)
	if err != nil {
		return
	}
	d.Slots.RelatedBookingID = &n
}

func (m *ComplaintMachine) extractIssueType(utterance string, d *store.ComplaintDraft) bool {
	lower := strings.ToLower(utterance)
	for t, keywords := range issueTypeKeywords {
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				s := string(t)
				d.Slots.IssueType = &s
				return true
			}
		}
	}
	if strings.Contains(lower, "other") {
		s := string(store.ComplaintTypeOther)
		d.Slots.IssueType = &s
		return true
	}
	return false
}

func (m *ComplaintMachine) extractDescription(utterance string, d *store.ComplaintDraft) bool {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return false
	}
	d.Slots.Description = &text
	return true
}

func (m *ComplaintMachine) IsSet(slot string, state *store.WorkflowState) bool {
	d := state.Complaint
	switch slot {
	case "issue_type":
		return d.Slots.IssueType != nil
	case "description":
		return d.Slots.Description != nil
	case "related_booking_id":
		return d.Slots.RelatedBookingID != nil
	default:
		return false
	}
}

// Validate enforces spec.md §4.7's minimum description length, clearing
// the slot on failure so IsSet reports it unset again.
func (m *ComplaintMachine) Validate(ctx context.Context, slot string, state *store.WorkflowState) (string, bool) {
	d := state.Complaint
	if slot != "description" || d.Slots.Description == nil {
		return "", true
	}
	if len(*d.Slots.Description) < minDescriptionLen {
		d.Slots.Description = nil
		return fmt.Sprintf("Could you describe what happened in a bit more detail (at least %d characters)?", minDescriptionLen), false
	}
	return "", true
}

func (m *ComplaintMachine) Prompt(slot string) string {
	switch slot {
	case "issue_type":
		return "I'm sorry to hear that. What best describes the issue: service quality, provider behavior, billing, delay, cancellation, or a refund?"
	case "description":
		return "Could you describe what happened?"
	default:
		return "Could you share a bit more detail?"
	}
}

func (m *ComplaintMachine) Summary(state *store.WorkflowState) string {
	d := state.Complaint
	issueType := "other"
	if d.Slots.IssueType != nil {
		issueType = *d.Slots.IssueType
	}
	return fmt.Sprintf("To confirm: you'd like to file a %s complaint. Shall I submit this?", strings.ReplaceAll(issueType, "_", " "))
}

func (m *ComplaintMachine) PendingSlot(state *store.WorkflowState) string { return state.Complaint.PendingSlot }
func (m *ComplaintMachine) SetPendingSlot(state *store.WorkflowState, slot string) {
	state.Complaint.PendingSlot = slot
}
func (m *ComplaintMachine) Confirmed(state *store.WorkflowState) bool { return state.Complaint.Confirmed }
func (m *ComplaintMachine) SetConfirmed(state *store.WorkflowState, v bool) { state.Complaint.Confirmed = v }
func (m *ComplaintMachine) Failures(state *store.WorkflowState) int { return state.Complaint.SlotFailures }
func (m *ComplaintMachine) SetFailures(state *store.WorkflowState, n int) { state.Complaint.SlotFailures = n }
func (m *ComplaintMachine) ConfirmAsked(state *store.WorkflowState) bool { return state.Complaint.ConfirmAsked }
func (m *ComplaintMachine) SetConfirmAsked(state *store.WorkflowState, v bool) { state.Complaint.ConfirmAsked = v }
