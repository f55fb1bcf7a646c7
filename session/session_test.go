package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converge-ai/convergeai/internal/xerrors"
	"github.com/converge-ai/convergeai/store"
)

// fakeDriver embeds a nil store.Driver so only the methods a given test
// exercises need a concrete implementation; anything else panics if
// called, which surfaces as a test failure.
type fakeDriver struct {
	store.Driver

	sessions  map[string]store.Session
	messages  map[string][]store.ConversationMessage
	workflows map[string]*store.WorkflowState
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
	s, ok := f.sessions[id]
	if !ok {
		return xerrors.New(xerrors.KindNotFound, "session not found")
	}
	s.LastActivityAt = at
	f.sessions[id] = s
	return nil
}

func (f *fakeDriver) AppendMessage(ctx context.Context, m store.ConversationMessage) (store.ConversationMessage, error) {
	m.ID = int64(len(f.messages[m.SessionID]) + 1)
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

func newTestService(t *testing.T) (*Service, *fakeDriver) {
	t.Helper()
	fd := newFakeDriver()
	st := store.New(fd, nil)
	return New(st), fd
}

func TestOpenOrLoad_NewSessionWhenIDEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.OpenOrLoad(context.Background(), "", 42, store.ChannelWeb)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, uint64(42), sess.UserRef)
	assert.Equal(t, store.ChannelWeb, sess.Channel)
}

func TestOpenOrLoad_LoadsExistingSession(t *testing.T) {
	svc, fd := newTestService(t)
	existing := store.Session{ID: "sess-1", UserRef: 7, Channel: store.ChannelMobile}
	fd.sessions["sess-1"] = existing

	sess, err := svc.OpenOrLoad(context.Background(), "sess-1", 7, store.ChannelMobile)
	require.NoError(t, err)
	assert.Equal(t, existing, sess)
}

func TestAppendMessage_MissingSessionIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AppendMessage(context.Background(), store.ConversationMessage{SessionID: "nope", Role: store.RoleUser, Text: "hi"})
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, xerrors.KindNotFound))
}

func TestAppendMessage_RoleAlternation(t *testing.T) {
	svc, fd := newTestService(t)
	sess, err := svc.OpenOrLoad(context.Background(), "", 1, store.ChannelWeb)
	require.NoError(t, err)

	_, err = svc.AppendMessage(context.Background(), store.ConversationMessage{SessionID: sess.ID, Role: store.RoleUser, Text: "book a cleaner"})
	require.NoError(t, err)
	_, err = svc.AppendMessage(context.Background(), store.ConversationMessage{SessionID: sess.ID, Role: store.RoleAssistant, Text: "sure, what date?"})
	require.NoError(t, err)
	_, err = svc.AppendMessage(context.Background(), store.ConversationMessage{SessionID: sess.ID, Role: store.RoleUser, Text: "tomorrow"})
	require.NoError(t, err)

	history := fd.messages[sess.ID]
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.NotEqual(t, history[i-1].Role, history[i].Role, "adjacent messages should alternate roles")
	}
}

func TestWorkflowLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	sess, err := svc.OpenOrLoad(context.Background(), "", 1, store.ChannelWeb)
	require.NoError(t, err)

	w, err := svc.LoadWorkflow(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Nil(t, w)

	want := &store.WorkflowState{Kind: store.WorkflowBooking}
	require.NoError(t, svc.SaveWorkflow(context.Background(), sess.ID, want))

	got, err := svc.LoadWorkflow(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, svc.ClearWorkflow(context.Background(), sess.ID))
	got, err = svc.LoadWorkflow(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
