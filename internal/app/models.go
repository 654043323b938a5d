package app

import (
	"time"

	"booking-engine/internal/booking"
	"booking-engine/internal/scheduling"
)

type createBookingReq struct {
	StartTime     time.Time `json:"start_time" binding:"required"`
	EndTime       time.Time `json:"end_time" binding:"required"`
	Timezone      string    `json:"timezone,omitempty"`
	Status        string    `json:"status,omitempty"`
	AttendeeName  string    `json:"attendee_name,omitempty"`
	AttendeeEmail string    `json:"attendee_email,omitempty" binding:"omitempty,email"`
	Notes         string    `json:"notes,omitempty"`
	ContactID     *string   `json:"contact_id,omitempty"`
}

func (r createBookingReq) toRequest(calendarID string) booking.CreateRequest {
	return booking.CreateRequest{
		CalendarID: calendarID,
		Interval:   scheduling.Interval{Start: r.StartTime, End: r.EndTime},
		Timezone:   r.Timezone,
		Source:     booking.SourceManual,
		Status:     booking.Status(r.Status),
		Attendee: booking.Attendee{
			Name:      r.AttendeeName,
			Email:     r.AttendeeEmail,
			Notes:     r.Notes,
			ContactID: r.ContactID,
		},
	}
}

type publicBookingReq struct {
	StartTime     time.Time `json:"start_time" binding:"required"`
	EndTime       time.Time `json:"end_time" binding:"required"`
	Timezone      string    `json:"timezone,omitempty"`
	AttendeeName  string    `json:"attendee_name" binding:"required,max=200"`
	AttendeeEmail string    `json:"attendee_email" binding:"required,email"`
	Notes         string    `json:"notes,omitempty" binding:"max=2000"`
}

func (r publicBookingReq) toRequest(calendarID string) booking.CreateRequest {
	return booking.CreateRequest{
		CalendarID: calendarID,
		Interval:   scheduling.Interval{Start: r.StartTime, End: r.EndTime},
		Timezone:   r.Timezone,
		Source:     booking.SourceBookingPage,
		Attendee: booking.Attendee{
			Name:  r.AttendeeName,
			Email: r.AttendeeEmail,
			Notes: r.Notes,
		},
	}
}

type rescheduleReq struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	Timezone  string    `json:"timezone,omitempty"`
}

type cancelReq struct {
	Reason string `json:"reason,omitempty"`
}

type tokenCancelReq struct {
	Token  string `json:"token" binding:"required"`
	Reason string `json:"reason,omitempty"`
}

type slotsResponse struct {
	CalendarID      string            `json:"calendar_id"`
	Timezone        string            `json:"timezone"`
	DurationMinutes int               `json:"duration_minutes"`
	Slots           []scheduling.Slot `json:"slots"`
}

// publicBooking is what an anonymous attendee may see of their booking.
type publicBooking struct {
	ID                string    `json:"id"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	Timezone          string    `json:"timezone"`
	Status            string    `json:"status"`
	CancellationToken string    `json:"cancellation_token,omitempty"`
}

func toPublic(b booking.Booking) publicBooking {
	return publicBooking{
		ID:                b.ID,
		StartTime:         b.StartTime,
		EndTime:           b.EndTime,
		Timezone:          b.Timezone,
		Status:            string(b.Status),
		CancellationToken: b.CancellationToken,
	}
}
