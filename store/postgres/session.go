package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/converge-ai/convergeai/internal/xerrors"
	"github.com/converge-ai/convergeai/store"
)

func (d *DB) CreateSession(ctx context.Context, s store.Session) (store.Session, error) {
	stmt := `INSERT INTO sessions (id, user_ref, channel, created_at, last_activity_at)
		VALUES (` + placeholders(5) + `)`
	_, err := d.db.ExecContext(ctx, stmt, s.ID, s.UserRef, s.Channel, s.CreatedAt, s.LastActivityAt)
	if err != nil {
		return store.Session{}, wrap(err, "create session")
	}
	return s, nil
}

func (d *DB) GetSession(ctx context.Context, id string) (store.Session, error) {
	row := d.db.QueryRowContext(ctx, `SELECT id, user_ref, channel, created_at, last_activity_at, closed_at
		FROM sessions WHERE id = `+placeholder(1), id)
	var s store.Session
	if err := row.Scan(&s.ID, &s.UserRef, &s.Channel, &s.CreatedAt, &s.LastActivityAt, &s.ClosedAt); err != nil {
		if err == sql.ErrNoRows {
			return store.Session{}, xerrors.New(xerrors.KindNotFound, "session not found")
		}
		return store.Session{}, wrap(err, "get session")
	}
	return s, nil
}

func (d *DB) TouchSession(ctx context.Context, id string, at time.Time) error {
	_, err := d.db.ExecContext(ctx, `UPDATE sessions SET last_activity_at = `+placeholder(1)+` WHERE id = `+placeholder(2), at, id)
	return wrap(err, "touch session")
}

func (d *DB) CloseSession(ctx context.Context, id string, at time.Time) error {
	_, err := d.db.ExecContext(ctx, `UPDATE sessions SET closed_at = `+placeholder(1)+` WHERE id = `+placeholder(2), at, id)
	return wrap(err, "close session")
}

func (d *DB) ListSessions(ctx context.Context, userRef uint64, limit, offset int) ([]store.SessionSummary, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT s.id, MIN(m.created_at), MAX(m.created_at), COUNT(m.id)
		FROM sessions s LEFT JOIN conversation_messages m ON m.session_id = s.id
		WHERE s.user_ref = `+placeholder(1)+`
		GROUP BY s.id ORDER BY MAX(m.created_at) DESC NULLS LAST LIMIT `+placeholder(2)+` OFFSET `+placeholder(3),
		userRef, limit, offset)
	if err != nil {
		return nil, wrap(err, "list sessions")
	}
	defer rows.Close()

	var out []store.SessionSummary
	for rows.Next() {
		var s store.SessionSummary
		if err := rows.Scan(&s.SessionID, &s.FirstAt, &s.LastAt, &s.MessageCount); err != nil {
			return nil, wrap(err, "scan session summary")
		}
		out = append(out, s)
	}
	return out, wrap(rows.Err(), "iterate session summaries")
}

func (d *DB) AppendMessage(ctx context.Context, m store.ConversationMessage) (store.ConversationMessage, error) {
	lock := d.sessionLock(m.SessionID)
	lock.Lock()
	defer lock.Unlock()

	provenance, err := json.Marshal(m.RetrievalProvenance)
	if err != nil {
		return store.ConversationMessage{}, wrap(err, "marshal provenance")
	}
	trace, err := json.Marshal(m.AgentTrace)
	if err != nil {
		return store.ConversationMessage{}, wrap(err, "marshal agent trace")
	}

	stmt := `INSERT INTO conversation_messages
		(session_id, role, text, intent, intent_confidence, agent_trace, retrieval_provenance, grounding_score, latency_ms, created_at)
		VALUES (` + placeholders(10) + `)
		RETURNING id`
	err = d.db.QueryRowContext(ctx, stmt,
		m.SessionID, m.Role, m.Text, m.Intent, m.IntentConfidence, trace, provenance, m.GroundingScore, m.LatencyMS, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		return store.ConversationMessage{}, wrap(err, "append message")
	}
	return m, nil
}

func (d *DB) ListMessages(ctx context.Context, q store.FindMessages) ([]store.ConversationMessage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx, `SELECT id, session_id, role, text, intent, intent_confidence,
		agent_trace, retrieval_provenance, grounding_score, latency_ms, created_at
		FROM conversation_messages WHERE session_id = `+placeholder(1)+`
		ORDER BY created_at ASC LIMIT `+placeholder(2)+` OFFSET `+placeholder(3),
		q.SessionID, limit, q.Offset)
	if err != nil {
		return nil, wrap(err, "list messages")
	}
	defer rows.Close()

	var out []store.ConversationMessage
	for rows.Next() {
		var m store.ConversationMessage
		var trace, provenance []byte
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Text, &m.Intent, &m.IntentConfidence,
			&trace, &provenance, &m.GroundingScore, &m.LatencyMS, &m.CreatedAt); err != nil {
			return nil, wrap(err, "scan message")
		}
		if len(trace) > 0 {
			if err := json.Unmarshal(trace, &m.AgentTrace); err != nil {
				return nil, wrap(err, "unmarshal agent trace")
			}
		}
		if len(provenance) > 0 {
			if err := json.Unmarshal(provenance, &m.RetrievalProvenance); err != nil {
				return nil, wrap(err, "unmarshal provenance")
			}
		}
		out = append(out, m)
	}
	return out, wrap(rows.Err(), "iterate messages")
}

func (d *DB) SaveWorkflow(ctx context.Context, sessionID string, w *store.WorkflowState) error {
	lock := d.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	data, err := json.Marshal(w)
	if err != nil {
		return wrap(err, "marshal workflow state")
	}
	_, err = d.db.ExecContext(ctx, `INSERT INTO session_workflows (session_id, state)
		VALUES (`+placeholders(2)+`)
		ON CONFLICT (session_id) DO UPDATE SET state = EXCLUDED.state`, sessionID, data)
	return wrap(err, "save workflow")
}

func (d *DB) LoadWorkflow(ctx context.Context, sessionID string) (*store.WorkflowState, error) {
	var data []byte
	err := d.db.QueryRowContext(ctx, `SELECT state FROM session_workflows WHERE session_id = `+placeholder(1), sessionID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(err, "load workflow")
	}
	var w store.WorkflowState
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, wrap(err, "unmarshal workflow state")
	}
	return &w, nil
}

func (d *DB) ClearWorkflow(ctx context.Context, sessionID string) error {
	lock := d.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	_, err := d.db.ExecContext(ctx, `DELETE FROM session_workflows WHERE session_id = `+placeholder(1), sessionID)
	return wrap(err, "clear workflow")
}
