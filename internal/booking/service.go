package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"booking-engine/internal/scheduling"
)

const defaultMaxAttempts = 2

// Options configures a Service. The zero value is usable.
type Options struct {
	// Now is the clock; defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
	Events EventSink
	// Contacts resolves attendee contacts when the caller did not supply one.
	Contacts ContactResolver
	// Reads serves slot queries and slug lookups; defaults to the write-path calendar source.
	Reads CalendarSource
	// TokenStatuses lists the statuses a cancellation token may cancel. Defaults to confirmed.
	TokenStatuses []Status
	// MaxAttempts bounds how often a transient store failure is attempted in total.
	MaxAttempts int
}

// Service is the booking lifecycle: slot queries, creation, confirmation,
// cancellation and reschedule, all funnelled through the conflict guard.
type Service struct {
	store         Store
	calendars     CalendarSource
	reads         CalendarSource
	events        EventSink
	contacts      ContactResolver
	now           func() time.Time
	logger        *slog.Logger
	tokenStatuses []Status
	maxAttempts   int
}

func NewService(store Store, calendars CalendarSource, opts Options) *Service {
	s := &Service{
		store:       store,
		calendars:   calendars,
		reads:       opts.Reads,
		events:      opts.Events,
		contacts:    opts.Contacts,
		now:         opts.Now,
		logger:      opts.Logger,
		maxAttempts: opts.MaxAttempts,
	}
	if s.reads == nil {
		s.reads = calendars
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.logger = s.logger.With("component", "booking")
	if s.maxAttempts < 1 {
		s.maxAttempts = defaultMaxAttempts
	}
	for _, st := range opts.TokenStatuses {
		if st.Active() {
			s.tokenStatuses = append(s.tokenStatuses, st)
		}
	}
	if len(s.tokenStatuses) == 0 {
		s.tokenStatuses = []Status{StatusConfirmed}
	}
	return s
}

// locked runs fn under the calendar write lock, retrying transient store failures.
func (s *Service) locked(ctx context.Context, calendarID string, fn func(tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.store.WithCalendarLock(ctx, calendarID, fn)
		if !errors.Is(err, ErrTransient) || ctx.Err() != nil {
			return err
		}
		s.logger.Warn("booking.store.transient", "calendar_id", calendarID, "attempt", attempt, "error", err)
	}
	return err
}

func (s *Service) emit(ctx context.Context, ev Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Warn("booking.event.emit_failed", "event", ev.Name, "booking_id", ev.BookingID, "error", err)
	}
}

// loadCalendar fetches a bookable calendar and its rules from the write-path
// source. Public callers never learn that an inactive calendar exists.
func (s *Service) loadCalendar(ctx context.Context, id string, public bool) (scheduling.CalendarConfig, scheduling.RuleSet, error) {
	cfg, err := s.calendars.CalendarByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.invalidate(id)
		}
		return cfg, scheduling.RuleSet{}, err
	}
	if !cfg.IsActive {
		s.invalidate(id)
		if public {
			return cfg, scheduling.RuleSet{}, ErrNotFound
		}
		return cfg, scheduling.RuleSet{}, invalid("calendar_id", "calendar is not accepting bookings")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, scheduling.RuleSet{}, err
	}
	rules, err := s.calendars.RuleSet(ctx, id)
	if err != nil {
		return cfg, rules, fmt.Errorf("load availability for calendar %s: %w", id, err)
	}
	return cfg, rules, nil
}

// invalidate drops a calendar from the read cache, if there is one.
func (s *Service) invalidate(calendarID string) {
	if s.reads == s.calendars {
		return
	}
	if inv, ok := s.reads.(CalendarInvalidator); ok {
		inv.Invalidate(calendarID)
	}
}

// admit checks duration, notice, horizon and availability of iv relative to now.
func (s *Service) admit(cfg scheduling.CalendarConfig, rules scheduling.RuleSet, iv scheduling.Interval, now time.Time, aligned bool) error {
	verr := &ValidationError{}
	if iv.Duration() != cfg.Duration() {
		verr.add("end_time", fmt.Sprintf("booking must last exactly %d minutes", cfg.DurationMinutes))
	}
	if iv.Start.Before(now.Add(cfg.Notice())) {
		verr.add("start_time", fmt.Sprintf("bookings require at least %d hours notice", cfg.MinNoticeHours))
	}
	if iv.Start.After(now.Add(cfg.Horizon())) {
		verr.add("start_time", fmt.Sprintf("bookings open at most %d days ahead", cfg.MaxFutureDays))
	}
	if err := verr.orNil(); err != nil {
		return err
	}

	ok, err := scheduling.Admits(cfg, rules, iv, aligned)
	if err != nil {
		return fmt.Errorf("evaluate availability for calendar %s: %w", cfg.ID, err)
	}
	if !ok {
		return invalid("start_time", "requested time is outside the calendar's availability")
	}
	return nil
}

func displayTimezone(requested, fallback string) (string, error) {
	if requested == "" {
		return fallback, nil
	}
	if _, err := time.LoadLocation(requested); err != nil {
		return "", invalid("timezone", fmt.Sprintf("unknown timezone %q", requested))
	}
	return requested, nil
}

// Get returns a booking by id.
func (s *Service) Get(ctx context.Context, id string) (Booking, error) {
	return s.store.Booking(ctx, id)
}

// List returns the bookings of a calendar starting in [From, To).
func (s *Service) List(ctx context.Context, q ListQuery) ([]Booking, error) {
	if !q.From.IsZero() && !q.To.IsZero() && !q.From.Before(q.To) {
		return nil, invalid("from", "from must be before to")
	}
	return s.store.ListBookings(ctx, q)
}

// Calendar returns the calendar snapshot used for reads.
func (s *Service) Calendar(ctx context.Context, id string) (scheduling.CalendarConfig, error) {
	return s.reads.CalendarByID(ctx, id)
}

// CalendarBySlug resolves an active public calendar.
func (s *Service) CalendarBySlug(ctx context.Context, slug string) (scheduling.CalendarConfig, error) {
	return s.reads.CalendarBySlug(ctx, slug)
}
