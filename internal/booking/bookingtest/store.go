// Package bookingtest provides in-memory implementations of the booking ports for tests.
package bookingtest

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"booking-engine/internal/booking"
	"booking-engine/internal/scheduling"
)

// Store is an in-memory booking.Store. WithCalendarLock serialises writers per
// calendar and applies staged writes only when fn succeeds.
type Store struct {
	mu       sync.RWMutex
	bookings map[string]booking.Booking
	slugs    map[string]string // calendar id -> slug

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// lockErrs are returned by successive WithCalendarLock calls before fn runs.
	lockErrs []error
	// BeforeWrite runs inside the lock just before staged writes are applied.
	BeforeWrite func()
}

func NewStore() *Store {
	return &Store{
		bookings: make(map[string]booking.Booking),
		slugs:    make(map[string]string),
		locks:    make(map[string]*sync.Mutex),
	}
}

// RegisterCalendar makes token lookups by slug resolve for the calendar.
func (s *Store) RegisterCalendar(cfg scheduling.CalendarConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slugs[cfg.ID] = cfg.Slug
}

// FailLocks queues errors returned by the next WithCalendarLock calls.
func (s *Store) FailLocks(errs ...error) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	s.lockErrs = append(s.lockErrs, errs...)
}

// Put stores b as is.
func (s *Store) Put(b booking.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = b
}

// All returns every stored booking ordered by start.
func (s *Store) All() []booking.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]booking.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (s *Store) calendarLock(calendarID string) (*sync.Mutex, error) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if len(s.lockErrs) > 0 {
		err := s.lockErrs[0]
		s.lockErrs = s.lockErrs[1:]
		return nil, err
	}
	l, ok := s.locks[calendarID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[calendarID] = l
	}
	return l, nil
}

func (s *Store) WithCalendarLock(ctx context.Context, calendarID string, fn func(tx booking.Tx) error) error {
	l, err := s.calendarLock(calendarID)
	if err != nil {
		return err
	}
	l.Lock()
	defer l.Unlock()

	tx := &memTx{store: s, staged: make(map[string]booking.Booking)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.BeforeWrite != nil {
		s.BeforeWrite()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range tx.staged {
		cur, ok := s.bookings[id]
		if !ok {
			s.bookings[id] = b
			continue
		}
		// Like the row UPDATE it stands in for, only the interval columns are
		// written, so a status change that landed meanwhile is kept.
		cur.StartTime, cur.EndTime = b.StartTime, b.EndTime
		cur.Timezone = b.Timezone
		cur.UpdatedAt = b.UpdatedAt
		s.bookings[id] = cur
	}
	return nil
}

func (s *Store) Booking(_ context.Context, id string) (booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return booking.Booking{}, booking.ErrNotFound
	}
	return b, nil
}

func (s *Store) BookingByToken(_ context.Context, calendarSlug, tokenHash string) (booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bookings {
		if b.TokenHash == tokenHash && s.slugs[b.CalendarID] == calendarSlug {
			return b, nil
		}
	}
	return booking.Booking{}, booking.ErrNotFound
}

func (s *Store) ListBookings(_ context.Context, q booking.ListQuery) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []booking.Booking
	for _, b := range s.bookings {
		if b.CalendarID != q.CalendarID {
			continue
		}
		if !q.From.IsZero() && b.StartTime.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && !b.StartTime.Before(q.To) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *Store) ActiveIntervals(_ context.Context, calendarID string, window scheduling.Interval) ([]scheduling.Interval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked(calendarID, window, ""), nil
}

func (s *Store) activeLocked(calendarID string, window scheduling.Interval, excludeID string) []scheduling.Interval {
	var out []scheduling.Interval
	for _, b := range s.bookings {
		if b.CalendarID != calendarID || b.ID == excludeID || !b.Status.Active() {
			continue
		}
		if b.Interval().Overlaps(window) {
			out = append(out, b.Interval())
		}
	}
	return out
}

func (s *Store) SetStatus(_ context.Context, id string, from []booking.Status, to booking.Status, reason string, at time.Time) (booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || !slices.Contains(from, b.Status) {
		return booking.Booking{}, booking.ErrNotFound
	}
	b.Status = to
	b.UpdatedAt = at
	if to == booking.StatusCancelled {
		b.CancellationReason = reason
		b.CancelledAt = &at
	}
	s.bookings[id] = b
	return b, nil
}

type memTx struct {
	store  *Store
	staged map[string]booking.Booking
}

func (t *memTx) ActiveIntervals(_ context.Context, calendarID string, window scheduling.Interval, excludeID string) ([]scheduling.Interval, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.store.activeLocked(calendarID, window, excludeID), nil
}

func (t *memTx) Booking(ctx context.Context, id string) (booking.Booking, error) {
	if b, ok := t.staged[id]; ok {
		return b, nil
	}
	return t.store.Booking(ctx, id)
}

func (t *memTx) Insert(_ context.Context, b *booking.Booking) error {
	if b.ID == "" {
		return errors.New("bookingtest: booking id required")
	}
	t.store.mu.RLock()
	_, exists := t.store.bookings[b.ID]
	t.store.mu.RUnlock()
	if exists {
		return errors.New("bookingtest: duplicate booking id")
	}
	t.staged[b.ID] = *b
	return nil
}

func (t *memTx) UpdateInterval(ctx context.Context, id string, iv scheduling.Interval, timezone string, at time.Time) (booking.Booking, error) {
	b, err := t.Booking(ctx, id)
	if err != nil {
		return booking.Booking{}, err
	}
	b.StartTime, b.EndTime = iv.Start, iv.End
	b.Timezone = timezone
	b.UpdatedAt = at
	t.staged[id] = b
	return b, nil
}
