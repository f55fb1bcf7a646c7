// Package coordinator implements the Coordinator (spec.md §4.10): the
// per-turn pipeline that loads session state, classifies intent (unless
// an active workflow takes precedence), dispatches to the owning agent,
// and persists the turn's outcome. Grounded on the teacher's
// ai/agents/orchestrator.Orchestrator.Process, trimmed from LLM-driven
// task decomposition to the deterministic intent-dispatch shape spec.md
// §9 calls for.
package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/converge-ai/convergeai/agent"
	"github.com/converge-ai/convergeai/intent"
	"github.com/converge-ai/convergeai/internal/xerrors"
	"github.com/converge-ai/convergeai/metrics"
	"github.com/converge-ai/convergeai/session"
	"github.com/converge-ai/convergeai/store"
)

// Turn is one inbound message.
type Turn struct {
	SessionID string
	UserRef   uint64
	Channel   store.Channel
	Text      string
}

// Reply is the Coordinator's response to one turn.
type Reply struct {
	SessionID  string
	Text       string
	Intent     intent.Intent
	Confidence float32
	TraceID    string
	LatencyMS  int64
}

// Coordinator wires the session store, intent classifier, and agent
// dispatch table into the per-turn pipeline.
type Coordinator struct {
	Sessions   *session.Service
	Classifier *intent.Classifier
	Dispatch   agent.DispatchTable
	Metrics    *metrics.Exporter
	Feedback   *intent.FeedbackRecorder
	Now        func() time.Time
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

const greetingReply = "Hi! I can help you book a service, check a booking's status, file a complaint, or answer policy questions. What would you like to do?"

// Process runs the full pipeline for one turn. An agent's error is logged
// and the agent's own reply text is returned with a nil error; agent
// errors are not mapped to xerrors kinds or to per-kind reply templates.
// Only a failure to open the session returns an error (KindUpstream),
// together with an empty Reply.
func (c *Coordinator) Process(ctx context.Context, t Turn) (Reply, error) {
	start := c.now()
	traceID := uuid.NewString()

	sess, err := c.Sessions.OpenOrLoad(ctx, t.SessionID, t.UserRef, t.Channel)
	if err != nil {
		wrapped := xerrors.Wrap(xerrors.KindUpstream, err, "opening session")
		c.recordMetrics(intent.IntentOther, start, wrapped)
		return Reply{}, wrapped
	}

	if _, err := c.Sessions.AppendMessage(ctx, store.ConversationMessage{
		SessionID: sess.ID,
		Role:      store.RoleUser,
		Text:      t.Text,
	}); err != nil {
		slog.Warn("coordinator: failed to persist inbound message", "trace_id", traceID, "error", err)
	}

	workflowState, err := c.Sessions.LoadWorkflow(ctx, sess.ID)
	if err != nil {
		slog.Warn("coordinator: failed to load workflow state", "trace_id", traceID, "error", err)
	}

	result := intent.Result{Intent: intent.IntentOther}
	var activeIntent intent.Intent

	switch {
	case workflowState != nil && c.Classifier.IsWorkflowCancelPattern(t.Text):
		if err := c.Sessions.ClearWorkflow(ctx, sess.ID); err != nil {
			slog.Warn("coordinator: failed to clear workflow", "trace_id", traceID, "error", err)
		}
		c.Feedback.RecordOutcome(ctx, t.UserRef, t.Text, workflowKindToIntent(workflowState.Kind), intent.FeedbackSwitch)
		c.recordMetrics(intent.IntentOther, start, nil)
		return c.finish(ctx, sess.ID, traceID, start, intent.IntentOther, 1.0, "Okay, I've cancelled that for you."), nil

	case workflowState != nil:
		activeIntent = workflowKindToIntent(workflowState.Kind)
		result = intent.Result{Intent: activeIntent, Confidence: 1.0}

	default:
		result = c.Classifier.Classify(t.Text)
		activeIntent = result.Intent
	}

	if activeIntent == intent.IntentGreeting {
		c.recordMetrics(activeIntent, start, nil)
		return c.finish(ctx, sess.ID, traceID, start, activeIntent, result.Confidence, greetingReply), nil
	}
	if activeIntent == intent.IntentOther || result.LowConfidence {
		reply := "I'm not sure I understood. Could you rephrase that?"
		c.recordMetrics(intent.IntentOther, start, nil)
		return c.finish(ctx, sess.ID, traceID, start, intent.IntentOther, result.Confidence, reply), nil
	}

	handler, ok := c.Dispatch.Lookup(activeIntent)
	if !ok {
		reply := "I'm not able to help with that yet."
		c.recordMetrics(activeIntent, start, nil)
		return c.finish(ctx, sess.ID, traceID, start, activeIntent, result.Confidence, reply), nil
	}

	outcome := handler.Execute(ctx, agent.Input{
		Intent:   activeIntent,
		Entities: result.Entities,
		Session:  sess,
		Workflow: workflowState,
		Text:     t.Text,
		UserRef:  t.UserRef,
	})

	if outcome.Err != nil {
		slog.Error("coordinator: agent returned an error", "trace_id", traceID, "intent", activeIntent, "error", outcome.Err)
	}

	if err := c.persistWorkflow(ctx, sess.ID, outcome); err != nil {
		slog.Warn("coordinator: failed to persist workflow state", "trace_id", traceID, "error", err)
	}

	c.Feedback.RecordOutcome(ctx, t.UserRef, t.Text, activeIntent, intent.FeedbackPositive)
	c.recordMetrics(activeIntent, start, outcome.Err)
	return c.finish(ctx, sess.ID, traceID, start, activeIntent, result.Confidence, outcome.ReplyText), nil
}

func (c *Coordinator) recordMetrics(i intent.Intent, start time.Time, err error) {
	if c.Metrics == nil {
		return
	}
	c.Metrics.RecordTurn(string(i), c.now().Sub(start), err)
}

func (c *Coordinator) persistWorkflow(ctx context.Context, sessionID string, outcome agent.Outcome) error {
	if outcome.WorkflowAfter != nil {
		return c.Sessions.SaveWorkflow(ctx, sessionID, outcome.WorkflowAfter)
	}
	return c.Sessions.ClearWorkflow(ctx, sessionID)
}

func (c *Coordinator) finish(ctx context.Context, sessionID, traceID string, start time.Time, i intent.Intent, confidence float32, text string) Reply {
	latency := c.now().Sub(start)
	intentStr := string(i)
	if _, err := c.Sessions.AppendMessage(ctx, store.ConversationMessage{
		SessionID:        sessionID,
		Role:             store.RoleAssistant,
		Text:             text,
		Intent:           &intentStr,
		IntentConfidence: &confidence,
		LatencyMS:        uint32(latency.Milliseconds()),
	}); err != nil {
		slog.Warn("coordinator: failed to persist reply", "trace_id", traceID, "error", err)
	}
	return Reply{
		SessionID:  sessionID,
		Text:       text,
		Intent:     i,
		Confidence: confidence,
		TraceID:    traceID,
		LatencyMS:  latency.Milliseconds(),
	}
}

func workflowKindToIntent(k store.WorkflowKind) intent.Intent {
	switch k {
	case store.WorkflowBooking:
		return intent.IntentBooking
	case store.WorkflowCancellation:
		return intent.IntentCancellation
	case store.WorkflowComplaint:
		return intent.IntentComplaint
	case store.WorkflowReschedule:
		return intent.IntentReschedule
	default:
		return intent.IntentOther
	}
}
