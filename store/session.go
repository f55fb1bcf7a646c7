package store

import "time"

// Channel is the inbound transport a turn arrived on (spec.md §3).
type Channel string

const (
	ChannelWeb      Channel = "web"
	ChannelMobile   Channel = "mobile"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelVoice    Channel = "voice"
)

// Session is the spec.md §3 Session entity. Sessions are never hard
// deleted, only closed; the session_id is an opaque, caller-facing token.
type Session struct {
	ID             string
	UserRef        uint64
	Channel        Channel
	CreatedAt      time.Time
	LastActivityAt time.Time
	ClosedAt       *time.Time
}

// SessionSummary is the projection returned by ListSessions.
type SessionSummary struct {
	SessionID     string
	FirstAt       time.Time
	LastAt        time.Time
	MessageCount  int
}

// Role is a ConversationMessage's author role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// RetrievalProvenanceEntry records one chunk used to ground an answer.
type RetrievalProvenanceEntry struct {
	DocID string
	Score float32
}

// ConversationMessage is the spec.md §3 ConversationMessage entity,
// append-only and ordered by CreatedAt within a session.
type ConversationMessage struct {
	ID                   int64
	SessionID            string
	Role                 Role
	Text                 string
	Intent               *string
	IntentConfidence     *float32
	AgentTrace           []string
	RetrievalProvenance  []RetrievalProvenanceEntry
	GroundingScore       *float32
	LatencyMS            uint32
	CreatedAt            time.Time
}

// FindSession selects sessions by id.
type FindSession struct {
	ID *string
}

// FindMessages selects a page of a session's history.
type FindMessages struct {
	SessionID string
	Limit     int
	Offset    int
}
