package store

import (
	"context"
	"time"
)

// SessionRepo persists sessions, their message history, and their active
// workflow state (spec.md §9 module boundaries).
type SessionRepo interface {
	CreateSession(ctx context.Context, s Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	TouchSession(ctx context.Context, id string, at time.Time) error
	CloseSession(ctx context.Context, id string, at time.Time) error
	ListSessions(ctx context.Context, userRef uint64, limit, offset int) ([]SessionSummary, error)

	AppendMessage(ctx context.Context, m ConversationMessage) (ConversationMessage, error)
	ListMessages(ctx context.Context, q FindMessages) ([]ConversationMessage, error)

	SaveWorkflow(ctx context.Context, sessionID string, w *WorkflowState) error
	LoadWorkflow(ctx context.Context, sessionID string) (*WorkflowState, error)
	ClearWorkflow(ctx context.Context, sessionID string) error
}

// CatalogRepo serves the read-mostly service catalog (spec.md §4.8).
type CatalogRepo interface {
	ListCategories(ctx context.Context, activeOnly bool) ([]Category, error)
	ListSubcategories(ctx context.Context, q FindSubcategories) ([]Subcategory, error)
	ListRateCards(ctx context.Context, q FindRateCards) ([]RateCard, error)
	GetRateCard(ctx context.Context, id uint64) (RateCard, error)
	Search(ctx context.Context, q CatalogSearch) ([]RateCard, error)
	IsServiceable(ctx context.Context, providerID uint64, pincode string) (bool, error)
}

// BookingRepo persists bookings and their line items (spec.md §4.6).
type BookingRepo interface {
	CreateBooking(ctx context.Context, b Booking, items []BookingItem) (Booking, []BookingItem, error)
	GetBooking(ctx context.Context, q FindBooking) (Booking, []BookingItem, error)
	ListBookings(ctx context.Context, userRef uint64, limit, offset int) ([]Booking, error)
	CancelBooking(ctx context.Context, id uint64, refundAmount Money, refundPercent int, at time.Time) (Booking, error)
	ListDueBookings(ctx context.Context, q FindBookingsDue) ([]Booking, error)

	// CountBookings reports a user's total booking count, the signal the
	// Priority Queue Projector's vip_bonus is keyed on (spec.md §4.11).
	CountBookings(ctx context.Context, userRef uint64) (int, error)
	// ListBookingsByStatus lists bookings in a given status across all
	// users, the source of the projector's booking_pending items.
	ListBookingsByStatus(ctx context.Context, status BookingStatus, limit, offset int) ([]Booking, error)
}

// ComplaintRepo persists complaints (spec.md §4.7).
type ComplaintRepo interface {
	CreateComplaint(ctx context.Context, c Complaint) (Complaint, error)
	GetComplaint(ctx context.Context, q FindComplaint) (Complaint, error)
	ListComplaints(ctx context.Context, q FindComplaint, limit, offset int) ([]Complaint, error)
	ListOverdueComplaints(ctx context.Context, q FindOverdueComplaints) ([]Complaint, error)
	UpdateComplaintStatus(ctx context.Context, id uint64, status ComplaintStatus, at time.Time) (Complaint, error)
}

// AlertRepo persists ops alerts and answers the dedup check of spec.md §4.12.
type AlertRepo interface {
	CreateAlert(ctx context.Context, a NewAlert) (Alert, error)
	FindRecent(ctx context.Context, q FindRecentAlerts) ([]Alert, error)
	ListAlerts(ctx context.Context, q FindAlerts) ([]Alert, error)
	MarkRead(ctx context.Context, id uint64) error
	Dismiss(ctx context.Context, id uint64) error
	UnreadCount(ctx context.Context) (int, error)
}

// AuditRepo persists ops audit log entries (spec.md §4.13).
type AuditRepo interface {
	WriteAuditBatch(ctx context.Context, entries []AuditLogEntry) error
}

// RouterFeedbackRepo persists the Intent Classifier's implicit routing
// feedback: a record of whether a routed reply was accepted or abandoned.
type RouterFeedbackRepo interface {
	CreateRouterFeedback(ctx context.Context, f CreateRouterFeedback) (RouterFeedback, error)
	ListRouterFeedback(ctx context.Context, q FindRouterFeedback) ([]RouterFeedback, error)
}

// Driver unifies all repository surfaces behind a single handle to one
// backing store, mirroring the teacher's store.Driver seam between
// business logic and a concrete database engine.
type Driver interface {
	SessionRepo
	CatalogRepo
	BookingRepo
	ComplaintRepo
	AlertRepo
	AuditRepo
	RouterFeedbackRepo

	Close() error
}
