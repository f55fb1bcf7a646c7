// Package complaint implements the Complaint Agent (spec.md §4.7):
// starting the complaint workflow, deriving priority from keyword and
// sentiment signals, assigning SLA deadlines, and committing the
// complaint record.
package complaint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/converge-ai/convergeai/agent"
	"github.com/converge-ai/convergeai/policy"
	"github.com/converge-ai/convergeai/store"
	"github.com/converge-ai/convergeai/workflow"
)

// criticalKeywords bump a complaint straight to critical priority
// regardless of its issue type or sentiment score (spec.md §4.7).
var criticalKeywords = []string{"legal"}

// highKeywords bump a complaint to high priority regardless of issue
// type or sentiment score (spec.md §4.7).
var highKeywords = []string{"urgent", "immediately", "emergency"}

// SentimentClient scores the emotional tone of a complaint description.
// Kept as a narrow collaborator interface so the deterministic priority
// derivation below never imports an LLM SDK directly.
type SentimentClient interface {
	Score(ctx context.Context, text string) (float32, error)
}

// Agent implements agent.Handler for the complaint intent.
type Agent struct {
	Complaints store.ComplaintRepo
	Sentiment  SentimentClient
	Policy     policy.Tables
	Now        func() time.Time
}

var _ agent.Handler = (*Agent)(nil)

func (a *Agent) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

func (a *Agent) Execute(ctx context.Context, in agent.Input) agent.Outcome {
	state := in.Workflow
	if state == nil || state.Kind != store.WorkflowComplaint {
		state = store.NewComplaintWorkflow()
	}

	m := &workflow.ComplaintMachine{}
	res := workflow.Step(ctx, m, state, in.Text, in.Entities, in.UserRef)

	switch res.Status {
	case workflow.StatusCommitted:
		return a.commit(ctx, in, state)
	case workflow.StatusAborted:
		return agent.Outcome{ReplyText: res.Reply, ActionTaken: "complaint_aborted"}
	default:
		return agent.Outcome{ReplyText: res.Reply, WorkflowAfter: state, ActionTaken: "complaint_in_progress"}
	}
}

func (a *Agent) commit(ctx context.Context, in agent.Input, state *store.WorkflowState) agent.Outcome {
	d := state.Complaint.Slots

	issueType := store.ComplaintTypeOther
	if d.IssueType != nil {
		issueType = store.ComplaintType(*d.IssueType)
	}
	description := ""
	if d.Description != nil {
		description = *d.Description
	}

	var sentiment *float32
	if a.Sentiment != nil {
		if s, err := a.Sentiment.Score(ctx, description); err == nil {
			sentiment = &s
		}
	}

	priority := derivePriority(issueType, description, sentiment)

	sla, ok := a.Policy.SLAFor(string(priority))
	if !ok {
		sla, _ = a.Policy.SLAFor(string(store.ComplaintPriorityMedium))
	}

	now := a.now()
	responseDue := now.Add(sla.ResponseWithin)
	resolutionDue := now.Add(sla.ResolutionWithin)

	sessionID := in.Session.ID
	c := store.Complaint{
		UserRef:         in.UserRef,
		BookingRef:      d.RelatedBookingID,
		SessionRef:      &sessionID,
		Type:            issueType,
		Subject:         subjectFor(issueType),
		Description:     description,
		Priority:        priority,
		Status:          store.ComplaintStatusOpen,
		SentimentScore:  sentiment,
		ResponseDueAt:   responseDue,
		ResolutionDueAt: resolutionDue,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := a.Complaints.CreateComplaint(ctx, c)
	if err != nil {
		return agent.Outcome{ReplyText: "Something went wrong while filing that complaint.", Err: err}
	}

	reply := fmt.Sprintf(
		"I've filed your complaint (#%d) as %s priority. We'll respond by %s.",
		created.ID, priority, responseDue.Format("Jan 2, 3:04pm"),
	)
	return agent.Outcome{
		ReplyText:   reply,
		ActionTaken: "complaint_committed",
		Metadata: map[string]string{
			"complaint_id":    fmt.Sprint(created.ID),
			"priority":        string(priority),
			"response_due_at": responseDue.Format(time.RFC3339),
			"resolution_due":  resolutionDue.Format(time.RFC3339),
		},
	}
}

func subjectFor(t store.ComplaintType) string {
	return strings.ReplaceAll(string(t), "_", " ")
}

// derivePriority implements spec.md §4.7's priority derivation: the
// keyword "legal" or sentiment ≤ −0.8 bumps straight to critical;
// keywords {urgent, immediately, emergency}, issue_type == refund_issue,
// or issue_type == service_quality with sentiment ≤ −0.5 bump to high;
// everything else falls to the issue-type default tier.
func derivePriority(issueType store.ComplaintType, description string, sentiment *float32) store.ComplaintPriority {
	lower := strings.ToLower(description)
	for _, kw := range criticalKeywords {
		if strings.Contains(lower, kw) {
			return store.ComplaintPriorityCritical
		}
	}
	if sentiment != nil && *sentiment <= -0.8 {
		return store.ComplaintPriorityCritical
	}

	for _, kw := range highKeywords {
		if strings.Contains(lower, kw) {
			return store.ComplaintPriorityHigh
		}
	}
	if issueType == store.ComplaintTypeRefundIssue {
		return store.ComplaintPriorityHigh
	}
	if issueType == store.ComplaintTypeServiceQuality && sentiment != nil && *sentiment <= -0.5 {
		return store.ComplaintPriorityHigh
	}

	switch issueType {
	case store.ComplaintTypeServiceQuality, store.ComplaintTypeCancellationIssue:
		return store.ComplaintPriorityMedium
	default:
		return store.ComplaintPriorityLow
	}
}
