package booking

import (
	"time"

	"booking-engine/internal/scheduling"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Active reports whether a booking in this status occupies its interval.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Valid() bool {
	return s.Active() || s == StatusCancelled
}

type Source string

const (
	SourceManual      Source = "manual"
	SourceBookingPage Source = "booking_page"
)

func (s Source) Valid() bool {
	return s == SourceManual || s == SourceBookingPage
}

// ActiveStatuses are the statuses that take part in conflict checks.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

type Booking struct {
	ID                 string     `json:"id"`
	OrganizationID     string     `json:"organization_id"`
	CalendarID         string     `json:"calendar_id"`
	ContactID          *string    `json:"contact_id"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            time.Time  `json:"end_time"`
	Timezone           string     `json:"timezone"`
	Status             Status     `json:"status"`
	Source             Source     `json:"source"`
	AttendeeName       string     `json:"attendee_name,omitempty"`
	AttendeeEmail      string     `json:"attendee_email,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// CancellationToken is the plaintext token, only populated in the create response.
	CancellationToken string `json:"cancellation_token,omitempty"`
	// TokenHash is the persisted digest of the cancellation token.
	TokenHash string `json:"-"`
}

func (b Booking) Interval() scheduling.Interval {
	return scheduling.Interval{Start: b.StartTime, End: b.EndTime}
}

// Attendee describes who the booking is for.
type Attendee struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Notes     string  `json:"notes,omitempty"`
	ContactID *string `json:"contact_id,omitempty"`
}

type CreateRequest struct {
	CalendarID string
	Interval   scheduling.Interval
	// Timezone is the attendee's display timezone; defaults to the calendar's.
	Timezone string
	Attendee Attendee
	Source   Source
	// Status is the initial status for manual bookings. Booking page bookings always start pending.
	Status Status
}

type RescheduleRequest struct {
	BookingID string
	Interval  scheduling.Interval
	Timezone  string
}

// ListQuery selects bookings of one calendar whose start falls in [From, To).
type ListQuery struct {
	CalendarID string
	From       time.Time
	To         time.Time
}
