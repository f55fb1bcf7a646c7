package store

import "time"

// RouterFeedback is an implicit signal about whether a routed intent was
// accepted: grounded on the teacher's ai/routing.RouterFeedback /
// store.RouterFeedback pair, trimmed to the fields the Intent Classifier's
// static rule set can act on (no weight-adjustment bookkeeping).
type RouterFeedback struct {
	ID        int64
	UserRef   uint64
	Input     string
	Predicted string
	Feedback  string // "positive" or "switch"
	Source    string
	CreatedAt time.Time
}

// CreateRouterFeedback specifies data for recording one feedback event.
type CreateRouterFeedback struct {
	UserRef   uint64
	Input     string
	Predicted string
	Feedback  string
	Source    string
}

// FindRouterFeedback selects a page of feedback events, optionally scoped
// to a user and a time window.
type FindRouterFeedback struct {
	UserRef *uint64
	Since   *time.Time
	Limit   int
}
