package store

import "time"

// ComplaintType classifies the subject of a complaint (spec.md §3/§4.7).
type ComplaintType string

const (
	ComplaintTypeServiceQuality    ComplaintType = "service_quality"
	ComplaintTypeProviderBehavior  ComplaintType = "provider_behavior"
	ComplaintTypeBilling           ComplaintType = "billing"
	ComplaintTypeDelay             ComplaintType = "delay"
	ComplaintTypeCancellationIssue ComplaintType = "cancellation_issue"
	ComplaintTypeRefundIssue       ComplaintType = "refund_issue"
	ComplaintTypeOther             ComplaintType = "other"
)

// ComplaintPriority drives both SLA deadlines and ops queue ordering.
type ComplaintPriority string

const (
	ComplaintPriorityLow      ComplaintPriority = "low"
	ComplaintPriorityMedium   ComplaintPriority = "medium"
	ComplaintPriorityHigh     ComplaintPriority = "high"
	ComplaintPriorityCritical ComplaintPriority = "critical"
)

// ComplaintStatus tracks a complaint through ops resolution.
type ComplaintStatus string

const (
	ComplaintStatusOpen       ComplaintStatus = "open"
	ComplaintStatusInProgress ComplaintStatus = "in_progress"
	ComplaintStatusResolved   ComplaintStatus = "resolved"
	ComplaintStatusClosed     ComplaintStatus = "closed"
	ComplaintStatusEscalated  ComplaintStatus = "escalated"
)

// Complaint is the spec.md §3 Complaint entity.
type Complaint struct {
	ID              uint64
	UserRef         uint64
	BookingRef      *uint64
	SessionRef      *string
	Type            ComplaintType
	Subject         string
	Description     string
	Priority        ComplaintPriority
	Status          ComplaintStatus
	AssignedStaff   *uint64
	Resolution      string
	SentimentScore  *float32
	ResponseDueAt   time.Time
	ResolutionDueAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ResolvedAt      *time.Time
}

// NewComplaint is the input to opening a complaint (spec.md §4.7).
type NewComplaint struct {
	UserRef        uint64
	BookingRef     *uint64
	SessionRef     *string
	Type           ComplaintType
	Subject        string
	Description    string
	SentimentScore *float32
}

// FindComplaint selects complaints for status inquiry and ops listing.
// Priority and AssignedStaff back the Priority Queue Projector's
// filter{status?, priority?, assigned?} (spec.md §4.11).
type FindComplaint struct {
	ID            *uint64
	UserRef       *uint64
	Status        *ComplaintStatus
	Priority      *ComplaintPriority
	AssignedStaff *uint64
}

// FindOverdueComplaints selects complaints whose SLA deadline has passed
// and are still open, used by the SLA breach alert scanner.
type FindOverdueComplaints struct {
	AsOf time.Time
}
