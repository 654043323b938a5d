package booking

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const maxReasonLength = 1000

// Create books req.Interval on a calendar. Booking page requests must match a
// generated slot and always start pending; manual requests only need to fall
// inside an open window and start confirmed unless told otherwise.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Booking, error) {
	verr := &ValidationError{}
	if !req.Interval.Valid() {
		verr.add("start_time", "start_time must be before end_time")
	}
	if !req.Source.Valid() {
		verr.add("source", "source must be manual or booking_page")
	}
	if req.Status != "" && !req.Status.Active() {
		verr.add("status", "initial status must be pending or confirmed")
	}
	if req.Source == SourceBookingPage && strings.TrimSpace(req.Attendee.Email) == "" {
		verr.add("attendee.email", "email is required")
	}
	if id := req.Attendee.ContactID; id != nil {
		if _, err := uuid.Parse(*id); err != nil {
			verr.add("contact_id", "contact_id must be a uuid")
		}
	}
	if err := verr.orNil(); err != nil {
		return Booking{}, err
	}

	cfg, rules, err := s.loadCalendar(ctx, req.CalendarID, req.Source == SourceBookingPage)
	if err != nil {
		return Booking{}, err
	}
	tz, err := displayTimezone(req.Timezone, cfg.Timezone)
	if err != nil {
		return Booking{}, err
	}

	iv := req.Interval.UTC()
	now := s.now().UTC()
	if err := s.admit(cfg, rules, iv, now, req.Source == SourceBookingPage); err != nil {
		return Booking{}, err
	}

	token, digest, err := NewCancellationToken()
	if err != nil {
		return Booking{}, err
	}

	b := Booking{
		ID:             uuid.NewString(),
		OrganizationID: cfg.OrganizationID,
		CalendarID:     cfg.ID,
		ContactID:      s.resolveContact(ctx, cfg.OrganizationID, req.Attendee),
		StartTime:      iv.Start,
		EndTime:        iv.End,
		Timezone:       tz,
		Status:         initialStatus(req),
		Source:         req.Source,
		AttendeeName:   strings.TrimSpace(req.Attendee.Name),
		AttendeeEmail:  strings.TrimSpace(req.Attendee.Email),
		Notes:          req.Attendee.Notes,
		TokenHash:      digest,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.locked(ctx, cfg.ID, func(tx Tx) error {
		if err := TryReserve(ctx, tx, cfg, iv, ""); err != nil {
			return err
		}
		return tx.Insert(ctx, &b)
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			s.logger.Info("booking.create.conflict", "calendar_id", cfg.ID, "start", iv.Start, "end", iv.End)
		}
		return Booking{}, err
	}

	s.logger.Info("booking.created", "booking_id", b.ID, "calendar_id", b.CalendarID, "status", b.Status, "source", b.Source)
	ev := newEvent(EventBookingCreated, b, now)
	ev.NewInterval = intervalPtr(b.Interval())
	s.emit(ctx, ev)

	b.CancellationToken = token
	return b, nil
}

func initialStatus(req CreateRequest) Status {
	if req.Source == SourceBookingPage {
		return StatusPending
	}
	if req.Status != "" {
		return req.Status
	}
	return StatusConfirmed
}

// resolveContact attaches a CRM contact. Resolution failures leave the booking without one.
func (s *Service) resolveContact(ctx context.Context, organizationID string, a Attendee) *string {
	if a.ContactID != nil {
		return a.ContactID
	}
	if s.contacts == nil || strings.TrimSpace(a.Email) == "" {
		return nil
	}
	id, err := s.contacts.Resolve(ctx, organizationID, a)
	if err != nil {
		s.logger.Warn("booking.contact.resolve_failed", "organization_id", organizationID, "error", err)
		return nil
	}
	return id
}

// Confirm moves a pending booking to confirmed.
func (s *Service) Confirm(ctx context.Context, id string) (Booking, error) {
	current, err := s.store.Booking(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	switch current.Status {
	case StatusCancelled:
		return Booking{}, ErrNotFound
	case StatusConfirmed:
		return Booking{}, invalid("status", "booking is already confirmed")
	}

	now := s.now().UTC()
	b, err := s.store.SetStatus(ctx, id, []Status{StatusPending}, StatusConfirmed, "", now)
	if err != nil {
		return Booking{}, err
	}
	s.logger.Info("booking.confirmed", "booking_id", b.ID, "calendar_id", b.CalendarID)
	ev := newEvent(EventBookingConfirmed, b, now)
	ev.NewInterval = intervalPtr(b.Interval())
	s.emit(ctx, ev)
	return b, nil
}

// Cancel retires an active booking. Cancelling a cancelled booking returns ErrNotFound.
func (s *Service) Cancel(ctx context.Context, id, reason string) (Booking, error) {
	reason, err := cleanReason(reason)
	if err != nil {
		return Booking{}, err
	}
	return s.cancel(ctx, id, ActiveStatuses, reason)
}

// CancelByToken cancels the booking bound to token on the calendar with the
// given slug. Tokens never resolve across calendars.
func (s *Service) CancelByToken(ctx context.Context, calendarSlug, token, reason string) (Booking, error) {
	reason, err := cleanReason(reason)
	if err != nil {
		return Booking{}, err
	}
	token = strings.TrimSpace(token)
	if calendarSlug == "" || token == "" {
		return Booking{}, ErrNotFound
	}

	current, err := s.store.BookingByToken(ctx, calendarSlug, HashToken(token))
	if err != nil {
		return Booking{}, err
	}
	if !slices.Contains(s.tokenStatuses, current.Status) {
		return Booking{}, ErrNotFound
	}
	return s.cancel(ctx, current.ID, s.tokenStatuses, reason)
}

func (s *Service) cancel(ctx context.Context, id string, from []Status, reason string) (Booking, error) {
	now := s.now().UTC()
	b, err := s.store.SetStatus(ctx, id, from, StatusCancelled, reason, now)
	if err != nil {
		return Booking{}, err
	}
	s.logger.Info("booking.cancelled", "booking_id", b.ID, "calendar_id", b.CalendarID)
	ev := newEvent(EventBookingCancelled, b, now)
	ev.OldInterval = intervalPtr(b.Interval())
	ev.Reason = reason
	s.emit(ctx, ev)
	return b, nil
}

func cleanReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) > maxReasonLength {
		return "", invalid("reason", "reason is too long")
	}
	return reason, nil
}

// Reschedule moves an active booking to a new interval. The new interval is
// validated like a new booking and checked against every other active
// booking; on conflict the original booking is left untouched.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (Booking, error) {
	if !req.Interval.Valid() {
		return Booking{}, invalid("start_time", "start_time must be before end_time")
	}
	current, err := s.store.Booking(ctx, req.BookingID)
	if err != nil {
		return Booking{}, err
	}
	if !current.Status.Active() {
		return Booking{}, ErrNotFound
	}

	cfg, rules, err := s.loadCalendar(ctx, current.CalendarID, false)
	if err != nil {
		return Booking{}, err
	}
	tz, err := displayTimezone(req.Timezone, current.Timezone)
	if err != nil {
		return Booking{}, err
	}
	iv := req.Interval.UTC()
	now := s.now().UTC()
	if err := s.admit(cfg, rules, iv, now, current.Source == SourceBookingPage); err != nil {
		return Booking{}, err
	}

	var before, after Booking
	err = s.locked(ctx, cfg.ID, func(tx Tx) error {
		b, err := tx.Booking(ctx, req.BookingID)
		if err != nil {
			return err
		}
		if !b.Status.Active() {
			return ErrNotFound
		}
		if err := TryReserve(ctx, tx, cfg, iv, b.ID); err != nil {
			return err
		}
		updated, err := tx.UpdateInterval(ctx, b.ID, iv, tz, now)
		if err != nil {
			return err
		}
		before, after = b, updated
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			s.logger.Info("booking.reschedule.conflict", "booking_id", req.BookingID, "start", iv.Start, "end", iv.End)
		}
		return Booking{}, err
	}

	s.logger.Info("booking.rescheduled", "booking_id", after.ID, "calendar_id", after.CalendarID)
	ev := newEvent(EventBookingRescheduled, after, now)
	ev.OldInterval = intervalPtr(before.Interval())
	ev.NewInterval = intervalPtr(after.Interval())
	s.emit(ctx, ev)
	return after, nil
}
