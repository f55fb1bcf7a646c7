package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converge-ai/convergeai/agent"
	"github.com/converge-ai/convergeai/intent"
	"github.com/converge-ai/convergeai/internal/xerrors"
	"github.com/converge-ai/convergeai/session"
	"github.com/converge-ai/convergeai/store"
)

// fakeDriver embeds a nil store.Driver so a test only needs to implement
// the handful of methods the Coordinator's pipeline actually exercises.
type fakeDriver struct {
	store.Driver

	sessions  map[string]store.Session
	messages  map[string][]store.ConversationMessage
	workflows map[string]*store.WorkflowState
	feedback  []store.CreateRouterFeedback
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		sessions:  make(map[string]store.Session),
		messages:  make(map[string][]store.ConversationMessage),
		workflows: make(map[string]*store.WorkflowState),
	}
}

func (f *fakeDriver) CreateSession(ctx context.Context, s store.Session) (store.Session, error) {
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeDriver) GetSession(ctx context.Context, id string) (store.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return store.Session{}, xerrors.New(xerrors.KindNotFound, "session not found")
	}
	return s, nil
}

func (f *fakeDriver) TouchSession(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (f *fakeDriver) AppendMessage(ctx context.Context, m store.ConversationMessage) (store.ConversationMessage, error) {
	m.ID = int64(len(f.messages[m.SessionID]) + 1)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	f.messages[m.SessionID] = append(f.messages[m.SessionID], m)
	return m, nil
}

func (f *fakeDriver) SaveWorkflow(ctx context.Context, sessionID string, w *store.WorkflowState) error {
	f.workflows[sessionID] = w
	return nil
}

func (f *fakeDriver) LoadWorkflow(ctx context.Context, sessionID string) (*store.WorkflowState, error) {
	return f.workflows[sessionID], nil
}

func (f *fakeDriver) ClearWorkflow(ctx context.Context, sessionID string) error {
	delete(f.workflows, sessionID)
	return nil
}

func (f *fakeDriver) CreateRouterFeedback(ctx context.Context, c store.CreateRouterFeedback) (store.RouterFeedback, error) {
	f.feedback = append(f.feedback, c)
	return store.RouterFeedback{}, nil
}

func newTestCoordinator(t *testing.T, dispatch agent.DispatchTable) (*Coordinator, *fakeDriver) {
	t.Helper()
	fd := newFakeDriver()
	st := store.New(fd, nil)
	return &Coordinator{
		Sessions:   session.New(st),
		Classifier: intent.New(),
		Dispatch:   dispatch,
		Feedback:   &intent.FeedbackRecorder{Repo: fd},
	}, fd
}

func TestProcess_GreetingShortCircuitsDispatch(t *testing.T) {
	c, _ := newTestCoordinator(t, agent.DispatchTable{})

	reply, err := c.Process(context.Background(), Turn{UserRef: 1, Channel: store.ChannelWeb, Text: "hello there"})
	require.NoError(t, err)
	assert.Equal(t, intent.IntentGreeting, reply.Intent)
	assert.Equal(t, greetingReply, reply.Text)
}

func TestProcess_LowConfidenceAsksToRephrase(t *testing.T) {
	c, _ := newTestCoordinator(t, agent.DispatchTable{})

	reply, err := c.Process(context.Background(), Turn{UserRef: 1, Channel: store.ChannelWeb, Text: "xyzzy plugh"})
	require.NoError(t, err)
	assert.Equal(t, intent.IntentOther, reply.Intent)
}

func TestProcess_DispatchesToOwningAgentAndPersistsWorkflow(t *testing.T) {
	handler := agent.HandlerFunc(func(ctx context.Context, in agent.Input) agent.Outcome {
		return agent.Outcome{
			ReplyText:     "Sure, what service?",
			WorkflowAfter: store.NewBookingWorkflow(),
			ActionTaken:   "booking_in_progress",
		}
	})
	c, fd := newTestCoordinator(t, agent.DispatchTable{intent.IntentBooking: handler})

	reply, err := c.Process(context.Background(), Turn{UserRef: 1, Channel: store.ChannelWeb, Text: "I need to book a cleaning"})
	require.NoError(t, err)
	assert.Equal(t, intent.IntentBooking, reply.Intent)
	assert.Equal(t, "Sure, what service?", reply.Text)

	w, ok := fd.workflows[reply.SessionID]
	require.True(t, ok)
	assert.Equal(t, store.WorkflowBooking, w.Kind)
}

func TestProcess_ActiveWorkflowOverridesClassifier(t *testing.T) {
	var receivedIntent intent.Intent
	handler := agent.HandlerFunc(func(ctx context.Context, in agent.Input) agent.Outcome {
		receivedIntent = in.Intent
		return agent.Outcome{ReplyText: "got it", ActionTaken: "booking_committed"}
	})
	c, fd := newTestCoordinator(t, agent.DispatchTable{intent.IntentBooking: handler})

	sess, err := c.Sessions.OpenOrLoad(context.Background(), "", 1, store.ChannelWeb)
	require.NoError(t, err)
	fd.workflows[sess.ID] = store.NewBookingWorkflow()

	// "hello" would normally classify as greeting, but an active booking
	// workflow takes precedence per spec.md §4.2.
	_, err = c.Process(context.Background(), Turn{SessionID: sess.ID, UserRef: 1, Channel: store.ChannelWeb, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, intent.IntentBooking, receivedIntent)
}

func TestProcess_WorkflowCancelPatternClearsWorkflow(t *testing.T) {
	c, fd := newTestCoordinator(t, agent.DispatchTable{})

	sess, err := c.Sessions.OpenOrLoad(context.Background(), "", 1, store.ChannelWeb)
	require.NoError(t, err)
	fd.workflows[sess.ID] = store.NewBookingWorkflow()

	reply, err := c.Process(context.Background(), Turn{SessionID: sess.ID, UserRef: 1, Channel: store.ChannelWeb, Text: "never mind"})
	require.NoError(t, err)
	assert.Equal(t, "Okay, I've cancelled that for you.", reply.Text)
	_, ok := fd.workflows[sess.ID]
	assert.False(t, ok)

	require.Len(t, fd.feedback, 1)
	assert.Equal(t, "booking", fd.feedback[0].Predicted)
	assert.Equal(t, "switch", fd.feedback[0].Feedback)
}

func TestProcess_DispatchRecordsPositiveFeedback(t *testing.T) {
	handler := agent.HandlerFunc(func(ctx context.Context, in agent.Input) agent.Outcome {
		return agent.Outcome{ReplyText: "sure thing", ActionTaken: "booking_committed"}
	})
	c, fd := newTestCoordinator(t, agent.DispatchTable{intent.IntentBooking: handler})

	_, err := c.Process(context.Background(), Turn{UserRef: 1, Channel: store.ChannelWeb, Text: "I need to book a plumber"})
	require.NoError(t, err)

	require.Len(t, fd.feedback, 1)
	assert.Equal(t, "booking", fd.feedback[0].Predicted)
	assert.Equal(t, "positive", fd.feedback[0].Feedback)
}

func TestProcess_MessageHistoryAlternatesRoles(t *testing.T) {
	handler := agent.HandlerFunc(func(ctx context.Context, in agent.Input) agent.Outcome {
		return agent.Outcome{ReplyText: "sure thing", ActionTaken: "booking_committed"}
	})
	c, fd := newTestCoordinator(t, agent.DispatchTable{intent.IntentBooking: handler})

	reply, err := c.Process(context.Background(), Turn{UserRef: 1, Channel: store.ChannelWeb, Text: "I need to book a plumber"})
	require.NoError(t, err)

	history := fd.messages[reply.SessionID]
	require.Len(t, history, 2)
	assert.Equal(t, store.RoleUser, history[0].Role)
	assert.Equal(t, store.RoleAssistant, history[1].Role)
}
