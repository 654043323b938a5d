package booking

import (
	"time"

	"github.com/google/uuid"

	"booking-engine/internal/scheduling"
)

type EventName string

const (
	EventBookingCreated     EventName = "booking_created"
	EventBookingConfirmed   EventName = "booking_confirmed"
	EventBookingCancelled   EventName = "booking_cancelled"
	EventBookingRescheduled EventName = "booking_rescheduled"
)

// Event is emitted after a booking transition commits. ID is unique per
// emission so consumers can deduplicate redeliveries.
type Event struct {
	ID             string               `json:"event_id"`
	Name           EventName            `json:"event"`
	BookingID      string               `json:"booking_id"`
	CalendarID     string               `json:"calendar_id"`
	OrganizationID string               `json:"organization_id"`
	ContactID      *string              `json:"contact_id"`
	Status         Status               `json:"status"`
	OldInterval    *scheduling.Interval `json:"old_interval,omitempty"`
	NewInterval    *scheduling.Interval `json:"new_interval,omitempty"`
	Timezone       string               `json:"timezone,omitempty"`
	AttendeeName   string               `json:"attendee_name,omitempty"`
	AttendeeEmail  string               `json:"attendee_email,omitempty"`
	Reason         string               `json:"reason,omitempty"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

func newEvent(name EventName, b Booking, at time.Time) Event {
	return Event{
		ID:             uuid.NewString(),
		Name:           name,
		BookingID:      b.ID,
		CalendarID:     b.CalendarID,
		OrganizationID: b.OrganizationID,
		ContactID:      b.ContactID,
		Status:         b.Status,
		Timezone:       b.Timezone,
		AttendeeName:   b.AttendeeName,
		AttendeeEmail:  b.AttendeeEmail,
		OccurredAt:     at,
	}
}

func intervalPtr(iv scheduling.Interval) *scheduling.Interval {
	iv = iv.UTC()
	return &iv
}
