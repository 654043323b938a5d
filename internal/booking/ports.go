package booking

import (
	"context"
	"time"

	"booking-engine/internal/scheduling"
)

// CalendarSource reads calendar configuration owned by calendar-settings management.
type CalendarSource interface {
	CalendarByID(ctx context.Context, id string) (scheduling.CalendarConfig, error)
	// CalendarBySlug resolves only active calendars.
	CalendarBySlug(ctx context.Context, slug string) (scheduling.CalendarConfig, error)
	RuleSet(ctx context.Context, calendarID string) (scheduling.RuleSet, error)
}

// CalendarInvalidator is implemented by read-side calendar caches. The
// service calls it when the write path finds a calendar gone or inactive.
type CalendarInvalidator interface {
	Invalidate(calendarID string)
}

// Store is the durable booking table. It is the only writer of booking rows.
type Store interface {
	// WithCalendarLock runs fn in a transaction that holds the calendar's
	// exclusive write lock until commit or rollback.
	WithCalendarLock(ctx context.Context, calendarID string, fn func(tx Tx) error) error

	Booking(ctx context.Context, id string) (Booking, error)
	// BookingByToken resolves a token digest scoped to an active calendar's slug.
	BookingByToken(ctx context.Context, calendarSlug, tokenHash string) (Booking, error)
	ListBookings(ctx context.Context, q ListQuery) ([]Booking, error)
	// ActiveIntervals returns pending and confirmed intervals intersecting window.
	ActiveIntervals(ctx context.Context, calendarID string, window scheduling.Interval) ([]scheduling.Interval, error)

	// SetStatus moves a booking whose current status is one of from to the
	// given status in a single conditional write. It returns ErrNotFound when
	// no such booking exists.
	SetStatus(ctx context.Context, id string, from []Status, to Status, reason string, at time.Time) (Booking, error)
}

// Tx is the view of the store inside WithCalendarLock.
type Tx interface {
	ActiveIntervals(ctx context.Context, calendarID string, window scheduling.Interval, excludeID string) ([]scheduling.Interval, error)
	Booking(ctx context.Context, id string) (Booking, error)
	Insert(ctx context.Context, b *Booking) error
	UpdateInterval(ctx context.Context, id string, iv scheduling.Interval, timezone string, at time.Time) (Booking, error)
}

// ContactResolver finds or creates the CRM contact for a public attendee.
type ContactResolver interface {
	Resolve(ctx context.Context, organizationID string, a Attendee) (*string, error)
}

// EventSink receives domain events. Implementations must not block the caller.
type EventSink interface {
	Emit(ctx context.Context, ev Event) error
}
