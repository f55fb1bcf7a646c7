// Package session implements the Session Store (spec.md §4.1): opening
// and loading sessions, appending to their append-only message history,
// and persisting the single active workflow a session may carry. Writes
// to one session serialize through store/postgres's per-session mutex;
// turns on distinct sessions never block each other (spec.md §5).
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/converge-ai/convergeai/internal/xerrors"
	"github.com/converge-ai/convergeai/store"
)

// Service is the Session Store's business-logic surface.
type Service struct {
	store *store.Store
	now   func() time.Time
}

// New builds a Service over the given Store.
func New(s *store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// OpenOrLoad loads an existing session by id, or opens a new one on the
// given channel when id is empty or names no existing session (spec.md §4.1).
func (s *Service) OpenOrLoad(ctx context.Context, id string, userRef uint64, channel store.Channel) (store.Session, error) {
	if id != "" {
		sess, err := s.store.Driver.GetSession(ctx, id)
		if err == nil {
			return sess, nil
		}
		if !xerrors.Is(err, xerrors.KindNotFound) {
			return store.Session{}, err
		}
	}

	sess := store.Session{
		ID:             uuid.NewString(),
		UserRef:        userRef,
		Channel:        channel,
		CreatedAt:      s.now(),
		LastActivityAt: s.now(),
	}
	return s.store.Driver.CreateSession(ctx, sess)
}

// AppendMessage appends one message to a session's history, then bumps
// its last-activity timestamp in a separate call (the two writes are not
// one transaction). A missing session is a KindNotFound
// error, never a silent create (spec.md §4.1 edge case).
func (s *Service) AppendMessage(ctx context.Context, m store.ConversationMessage) (store.ConversationMessage, error) {
	if _, err := s.store.Driver.GetSession(ctx, m.SessionID); err != nil {
		return store.ConversationMessage{}, err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	saved, err := s.store.Driver.AppendMessage(ctx, m)
	if err != nil {
		return store.ConversationMessage{}, err
	}
	if err := s.store.Driver.TouchSession(ctx, m.SessionID, saved.CreatedAt); err != nil {
		return store.ConversationMessage{}, err
	}
	return saved, nil
}

// History returns a page of a session's messages, oldest first.
func (s *Service) History(ctx context.Context, sessionID string, limit, offset int) ([]store.ConversationMessage, error) {
	return s.store.Driver.ListMessages(ctx, store.FindMessages{SessionID: sessionID, Limit: limit, Offset: offset})
}

// SaveWorkflow persists sessionID's single active workflow, replacing any
// prior one.
func (s *Service) SaveWorkflow(ctx context.Context, sessionID string, w *store.WorkflowState) error {
	return s.store.Driver.SaveWorkflow(ctx, sessionID, w)
}

// LoadWorkflow returns sessionID's active workflow, or nil if none is set.
func (s *Service) LoadWorkflow(ctx context.Context, sessionID string) (*store.WorkflowState, error) {
	return s.store.Driver.LoadWorkflow(ctx, sessionID)
}

// ClearWorkflow removes sessionID's active workflow, e.g. after commit,
// cancellation, or a three-strikes abort (spec.md §4.9).
func (s *Service) ClearWorkflow(ctx context.Context, sessionID string) error {
	return s.store.Driver.ClearWorkflow(ctx, sessionID)
}

// ListSessions returns a user's recent sessions, most recently active first.
func (s *Service) ListSessions(ctx context.Context, userRef uint64, limit, offset int) ([]store.SessionSummary, error) {
	return s.store.Driver.ListSessions(ctx, userRef, limit, offset)
}

// Close marks a session closed; it remains queryable for history.
func (s *Service) Close(ctx context.Context, sessionID string) error {
	return s.store.Driver.CloseSession(ctx, sessionID, s.now())
}
