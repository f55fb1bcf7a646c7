package store

import "time"

// AlertType classifies what triggered an ops alert (spec.md §4.12).
type AlertType string

const (
	AlertTypeSLAAtRisk         AlertType = "sla_at_risk"
	AlertTypeSLABreach         AlertType = "sla_breach"
	AlertTypeCriticalComplaint AlertType = "critical_complaint"
)

// AlertSeverity mirrors the scanner's configured severity (policy.AlertRule).
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// AlertResourceKind names the kind of entity an Alert references.
type AlertResourceKind string

const (
	AlertResourceComplaint AlertResourceKind = "complaint"
	AlertResourceBooking   AlertResourceKind = "booking"
)

// Alert is the spec.md §3 Alert entity. Two alerts dedup against each
// other when they share (Type, ResourceKind, ResourceID) and were created
// within the scanner's dedup window of one another (spec.md §4.12).
type Alert struct {
	ID           uint64
	Type         AlertType
	Severity     AlertSeverity
	Title        string
	Message      string
	ResourceKind AlertResourceKind
	ResourceID   uint64
	StaffRef     *uint64
	PriorityScore int
	IsRead       bool
	IsDismissed  bool
	Metadata     map[string]string
	CreatedAt    time.Time
	ReadAt       *time.Time
	DismissedAt  *time.Time
	ExpiresAt    *time.Time
}

// NewAlert is the input to raising an alert.
type NewAlert struct {
	Type          AlertType
	Severity      AlertSeverity
	Title         string
	Message       string
	ResourceKind  AlertResourceKind
	ResourceID    uint64
	StaffRef      *uint64
	PriorityScore int
	Metadata      map[string]string
	ExpiresAt     *time.Time
}

// FindAlerts selects alerts for the ops-facing listing API (spec.md §4.12),
// excluding expired and, unless IncludeDismissed, dismissed alerts.
type FindAlerts struct {
	UnreadOnly       bool
	IncludeDismissed bool
	StaffRef         *uint64
	Limit            int
	Offset           int
}

// FindRecentAlerts selects alerts of a given dedup key raised within a
// window, used by the dedup check before raising a new alert.
type FindRecentAlerts struct {
	Type         AlertType
	ResourceKind AlertResourceKind
	ResourceID   uint64
	Since        time.Time
}
