package store

import "time"

// BookingStatus tracks a booking through its lifecycle (spec.md §3).
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// PaymentStatus tracks the payment side of a booking.
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Booking is the spec.md §3 Booking entity. Its Total is an invariant
// over BookingItems: Total == Σ item.FinalAmount over all items at
// creation. Cancelling a booking moves every item to
// BookingItemStatusCancelled and leaves Total unchanged.
type Booking struct {
	ID                 uint64
	OrderID            string
	BookingNumber      string
	UserRef            uint64
	AddressRef         uint64
	Subtotal           Money
	Total              Money
	Status             BookingStatus
	PaymentStatus      PaymentStatus
	PreferredDate      string // YYYY-MM-DD
	PreferredTime      string // HH:MM
	SpecialInstructions string
	CancelledAt        *time.Time
	CancellationReason string
	RefundAmount       Money
	RefundPercent      int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BookingItemStatus mirrors BookingStatus for the line-item level, since
// a cancelled booking moves every item to cancelled independently.
type BookingItemStatus string

const (
	BookingItemStatusConfirmed BookingItemStatus = "confirmed"
	BookingItemStatusCompleted BookingItemStatus = "completed"
	BookingItemStatusCancelled BookingItemStatus = "cancelled"
)

// BookingItem is one line item of a Booking, snapshotting the RateCard
// price and service name at booking time so later catalog edits don't
// retroactively alter historical bookings.
type BookingItem struct {
	ID                  uint64
	BookingID           uint64
	RateCardID          uint64
	ProviderRef         *uint64
	AddressRef          uint64
	ServiceName         string
	Quantity            int
	UnitPrice           Money
	TotalAmount         Money
	FinalAmount         Money
	ScheduledDate       string // YYYY-MM-DD
	ScheduledWindowFrom string // HH:MM
	ScheduledWindowTo   string // HH:MM
	Status              BookingItemStatus
	PaymentStatus       PaymentStatus
}

// NewBooking is the input to a booking commit (spec.md §4.6).
type NewBooking struct {
	UserRef             uint64
	AddressRef          uint64
	RateCardID          uint64
	Quantity            int
	PreferredDate       string
	PreferredTime       string
	SpecialInstructions string
}

// FindBooking selects bookings for status inquiry / cancellation.
type FindBooking struct {
	ID      *uint64
	UserRef *uint64
}

// FindBookingsDue selects bookings whose ScheduledDate/window falls within
// a window, used by supporting ops queries.
type FindBookingsDue struct {
	Before time.Time
	Status BookingStatus
}
