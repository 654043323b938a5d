package booking_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"booking-engine/internal/booking"
	"booking-engine/internal/booking/bookingtest"
	"booking-engine/internal/scheduling"
)

var (
	monday = scheduling.Date{Year: 2026, Month: time.October, Day: 19}
	now    = time.Date(2026, time.October, 12, 8, 0, 0, 0, time.UTC)
)

func at(hhmm string) time.Time {
	c, err := scheduling.ParseClock(hhmm)
	if err != nil {
		panic(err)
	}
	return monday.At(c, time.UTC)
}

func span(start, end string) scheduling.Interval {
	return scheduling.Interval{Start: at(start), End: at(end)}
}

func calendarA() bookingtest.Calendar {
	return bookingtest.Calendar{
		Config: scheduling.CalendarConfig{
			ID:              "cal-a",
			OrganizationID:  "org-1",
			Slug:            "a-intro",
			Timezone:        "UTC",
			DurationMinutes: 60,
			MaxFutureDays:   30,
			IsActive:        true,
		},
		Rules: scheduling.RuleSet{Windows: []scheduling.AvailabilityWindow{
			{CalendarID: "cal-a", DayOfWeek: int(time.Monday), StartTime: "09:00", EndTime: "12:00", IsActive: true},
		}},
	}
}

func calendarB() bookingtest.Calendar {
	c := calendarA()
	c.Config.ID = "cal-b"
	c.Config.Slug = "b-demo"
	return c
}

func newFixture(opts booking.Options, cals ...bookingtest.Calendar) *bookingtest.Fixture {
	if opts.Now == nil {
		opts.Now = func() time.Time { return now }
	}
	if len(cals) == 0 {
		cals = []bookingtest.Calendar{calendarA(), calendarB()}
	}
	return bookingtest.NewFixture(opts, cals...)
}

func manual(calendarID string, iv scheduling.Interval) booking.CreateRequest {
	return booking.CreateRequest{
		CalendarID: calendarID,
		Interval:   iv,
		Source:     booking.SourceManual,
		Attendee:   booking.Attendee{Name: "Ada", Email: "ada@example.com"},
	}
}

func public(calendarID string, iv scheduling.Interval) booking.CreateRequest {
	req := manual(calendarID, iv)
	req.Source = booking.SourceBookingPage
	return req
}

func slotStarts(t *testing.T, f *bookingtest.Fixture, calendarID string) []string {
	t.Helper()
	slots, err := f.Service.Slots(context.Background(), calendarID, monday, monday)
	require.NoError(t, err)
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start.Format("15:04")+"-"+s.End.Format("15:04"))
	}
	return out
}

func TestCreate_ThenSlotsExcludeBooking(t *testing.T) {
	f := newFixture(booking.Options{})
	ctx := context.Background()

	assert.Equal(t, []string{"09:00-10:00", "10:00-11:00", "11:00-12:00"}, slotStarts(t, f, "cal-a"))

	b, err := f.Service.Create(ctx, manual("cal-a", span("10:00", "11:00")))
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, b.Status)
	assert.Equal(t, "org-1", b.OrganizationID)
	assert.NotEmpty(t, b.CancellationToken)
	assert.Equal(t, booking.HashToken(b.CancellationToken), b.TokenHash)

	assert.Equal(t, []string{"09:00-10:00", "11:00-12:00"}, slotStarts(t, f, "cal-a"))
	assert.Len(t, slotStarts(t, f, "cal-b"), 3, "bookings on one calendar never block another")

	events := f.Events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, booking.EventBookingCreated, events[0].Name)
	assert.Equal(t, b.ID, events[0].BookingID)
	assert.Equal(t, "cal-a", events[0].CalendarID)
	require.NotNil(t, events[0].NewInterval)
	assert.Equal(t, span("10:00", "11:00"), *events[0].NewInterval)
	assert.NotEmpty(t, events[0].ID)
}

func TestSlots_Idempotent(t *testing.T) {
	f := newFixture(booking.Options{})
	first := slotStarts(t, f, "cal-a")
	assert.Equal(t, first, slotStarts(t, f, "cal-a"))
}

func TestSlots_Validation(t *testing.T) {
	f := newFixture(booking.Options{})
	_, err := f.Service.Slots(context.Background(), "cal-a", monday, monday.AddDays(-1))
	var verr *booking.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.Service.Slots(context.Background(), "missing", monday, monday)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = f.Service.SlotsBySlug(context.Background(), "a-intro", monday, monday)
	assert.NoError(t, err)
}

func TestSlots_InactiveCalendar(t *testing.T) {
	c := calendarA()
	c.Config.IsActive = false
	f := newFixture(booking.Options{}, c)

	assert.Empty(t, slotStarts(t, f, "cal-a"))
	_, err := f.Service.SlotsBySlug(context.Background(), "a-intro", monday, monday)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = f.Service.Create(context.Background(), manual("cal-a", span("10:00", "11:00")))
	var verr *booking.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.FieldErrors, "calendar_id")

	_, err = f.Service.Create(context.Background(), public("cal-a", span("10:00", "11:00")))
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestCreate_RaceForSameSlot(t *testing.T) {
	f := newFixture(booking.Options{})
	// Widen the window between check and write so racing goroutines overlap.
	f.Store.BeforeWrite = func() { time.Sleep(time.Millisecond) }

	const racers = 16
	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.Service.Create(context.Background(), public("cal-a", span("10:00", "11:00")))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, booking.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, racers-1, conflicts)
}

func TestNoOverlapUnderConcurrentWrites(t *testing.T) {
	c := calendarA()
	c.Config.BufferAfterMinutes = 5
	c.Rules.Windows[0].EndTime = "18:00"
	f := newFixture(booking.Options{}, c)
	ctx := context.Background()

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 24; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			offset := time.Duration(i%16) * 30 * time.Minute
			iv := scheduling.Interval{Start: at("09:00").Add(offset), End: at("10:00").Add(offset)}
			b, err := f.Service.Create(ctx, manual("cal-a", iv))
			if err != nil || i%3 != 0 {
				return
			}
			shift := time.Duration(i%5+1) * 15 * time.Minute
			_, _ = f.Service.Reschedule(ctx, booking.RescheduleRequest{
				BookingID: b.ID,
				Interval:  scheduling.Interval{Start: iv.Start.Add(shift), End: iv.End.Add(shift)},
			})
		}(i)
	}
	close(start)
	wg.Wait()

	var active []booking.Booking
	for _, b := range f.Store.All() {
		if b.Status.Active() {
			active = append(active, b)
		}
	}
	require.NotEmpty(t, active)
	buf := c.Config.Buffers()
	for i := range active {
		for j := i + 1; j < len(active); j++ {
			assert.False(t, buf.Blocks(active[i].Interval(), active[j].Interval()),
				"bookings %v and %v conflict", active[i].Interval(), active[j].Interval())
		}
	}
}

func TestCreate_RespectsBuffers(t *testing.T) {
	c := calendarA()
	c.Config.DurationMinutes = 30
	c.Config.BufferBeforeMinutes = 10
	c.Config.BufferAfterMinutes = 10
	f := newFixture(booking.Options{}, c)
	ctx := context.Background()

	_, err := f.Service.Create(ctx, manual("cal-a", span("10:00", "10:30")))
	require.NoError(t, err)

	_, err = f.Service.Create(ctx, manual("cal-a", span("10:30", "11:00")))
	assert.ErrorIs(t, err, booking.ErrConflict)
	_, err = f.Service.Create(ctx, manual("cal-a", span("09:30", "10:00")))
	assert.ErrorIs(t, err, booking.ErrConflict)

	_, err = f.Service.Create(ctx, manual("cal-a", span("11:00", "11:30")))
	assert.NoError(t, err)
	_, err = f.Service.Create(ctx, manual("cal-a", span("09:00", "09:30")))
	assert.NoError(t, err)
}

func TestCreate_Validation(t *testing.T) {
	c := calendarA()
	c.Config.MinNoticeHours = 24
	c.Config.MaxFutureDays = 10
	f := newFixture(booking.Options{Now: func() time.Time { return monday.At(0, time.UTC).Add(-48 * time.Hour) }}, c)

	tests := []struct {
		name  string
		req   booking.CreateRequest
		field string
	}{
		{name: "duration mismatch", req: manual("cal-a", span("09:00", "09:30")), field: "end_time"},
		{name: "inverted interval", req: manual("cal-a", span("10:00", "09:00")), field: "start_time"},
		{name: "outside window", req: manual("cal-a", span("13:00", "14:00")), field: "start_time"},
		{name: "off slot grid", req: public("cal-a", span("09:30", "10:30")), field: "start_time"},
		{name: "unknown source", req: booking.CreateRequest{CalendarID: "cal-a", Interval: span("09:00", "10:00"), Source: "fax"}, field: "source"},
		{name: "cancelled initial status", req: func() booking.CreateRequest {
			r := manual("cal-a", span("09:00", "10:00"))
			r.Status = booking.StatusCancelled
			return r
		}(), field: "status"},
		{name: "public without email", req: func() booking.CreateRequest {
			r := public("cal-a", span("09:00", "10:00"))
			r.Attendee.Email = ""
			return r
		}(), field: "attendee.email"},
		{name: "bad timezone", req: func() booking.CreateRequest {
			r := manual("cal-a", span("09:00", "10:00"))
			r.Timezone = "Nowhere/Land"
			return r
		}(), field: "timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Service.Create(context.Background(), tt.req)
			var verr *booking.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.FieldErrors, tt.field)
		})
	}

	ok, err := f.Service.Create(context.Background(), manual("cal-a", span("09:30", "10:30")))
	require.NoError(t, err, "manual bookings only need to fit an open window")
	assert.Equal(t, booking.StatusConfirmed, ok.Status)
}

func TestCreate_NoticeAndHorizon(t *testing.T) {
	c := calendarA()
	c.Config.MinNoticeHours = 24
	c.Config.MaxFutureDays = 3

	t.Run("inside notice", func(t *testing.T) {
		f := newFixture(booking.Options{Now: func() time.Time { return at("08:00").Add(-12 * time.Hour) }}, c)
		_, err := f.Service.Create(context.Background(), manual("cal-a", span("09:00", "10:00")))
		var verr *booking.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.FieldErrors["start_time"], "notice")
	})

	t.Run("beyond horizon", func(t *testing.T) {
		f := newFixture(booking.Options{}, c)
		_, err := f.Service.Create(context.Background(), manual("cal-a", span("09:00", "10:00")))
		var verr *booking.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.FieldErrors["start_time"], "days ahead")
	})
}

func TestCreate_UnknownCalendar(t *testing.T) {
	f := newFixture(booking.Options{})
	_, err := f.Service.Create(context.Background(), manual("nope", span("09:00", "10:00")))
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestCreate_PublicStartsPending(t *testing.T) {
	f := newFixture(booking.Options{})
	req := public("cal-a", span("09:00", "10:00"))
	req.Status = booking.StatusConfirmed

	b, err := f.Service.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, b.Status)
	assert.Equal(t, booking.SourceBookingPage, b.Source)
	assert.Equal(t, "UTC", b.Timezone)
}

func TestCancelByToken_ScopedToCalendar(t *testing.T) {
	f := newFixture(booking.Options{})
	ctx := context.Background()

	b, err := f.Service.Create(ctx, manual("cal-a", span("09:00", "10:00")))
	require.NoError(t, err)

	_, err = f.Service.CancelByToken(ctx, "b-demo", b.CancellationToken, "")
	assert.ErrorIs(t, err, booking.ErrNotFound)
	_, err = f.Service.CancelByToken(ctx, "a-intro", "not-the-token", "")
	assert.ErrorIs(t, err, booking.ErrNotFound)
	_, err = f.Service.CancelByToken(ctx, "a-intro", "", "")
	assert.ErrorIs(t, err, booking.ErrNotFound)

	cancelled, err := f.Service.CancelByToken(ctx, "a-intro", b.CancellationToken, "cannot make it")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, cancelled.Status)
	assert.Equal(t, "cannot make it", cancelled.CancellationReason)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = f.Service.CancelByToken(ctx, "a-intro", b.CancellationToken, "")
	assert.ErrorIs(t, err, booking.ErrNotFound, "a consumed token does not cancel twice")
}

func TestCancelByToken_StatusPolicy(t *testing.T) {
	ctx := context.Background()

	f := newFixture(booking.Options{})
	pending, err := f.Service.Create(ctx, public("cal-a", span("09:00", "10:00")))
	require.NoError(t, err)
	_, err = f.Service.CancelByToken(ctx, "a-intro", pending.CancellationToken, "")
	assert.ErrorIs(t, err, booking.ErrNotFound, "default policy only accepts confirmed bookings")

	f = newFixture(booking.Options{TokenStatuses: []booking.Status{booking.StatusPending, booking.StatusConfirmed, booking.StatusCancelled}})
	pending, err = f.Service.Create(ctx, public("cal-a", span("09:00", "10:00")))
	require.NoError(t, err)
	_, err = f.Service.CancelByToken(ctx, "a-intro", pending.CancellationToken, "")
	assert.NoError(t, err)
}

func TestCancel_FreesIntervalAndIsNotRepeatable(t *testing.T) {
	f := newFixture(booking.Options{})
	ctx := context.Background()

	b, err := f.Service.Create(ctx, manual("cal-a", span("10:00", "11:00")))
	require.NoError(t, err)

	cancelled, err := f.Service.Cancel(ctx, b.ID, "duplicate")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, cancelled.Status)

	_, err = f.Service.Cancel(ctx, b.ID, "")
	assert.ErrorIs(t, err, booking.ErrNotFound)
	_, err = f.Service.Cancel(ctx, "missing", "")
	assert.ErrorIs(t, err, booking.ErrNotFound)

	assert.Len(t, slotStarts(t, f, "cal-a"), 3)
	_, err = f.Service.Create(ctx, manual("cal-a", span("10:00", "11:00")))
	assert.NoError(t, err, "cancelled bookings do not take part in conflict checks")

	stored, err := f.Service.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, stored.Status, "cancelled rows are retained")

	events := f.Events.Events()
	require.Len(t, events, 3)
	assert.Equal(t, booking.EventBookingCancelled, events[1].Name)
	assert.Equal(t, "duplicate", events[1].Reason)
	require.NotNil(t, events[1].OldInterval)
	assert.Equal(t, span("10:00", "11:00"), *events[1].OldInterval)
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the booking", func(t *testing.T) {
		f := newFixture(booking.Options{})
		b, err := f.Service.Create(ctx, manual("cal-a", span("09:00", "10:00")))
		require.NoError(t, err)

		moved, err := f.Service.Reschedule(ctx, booking.RescheduleRequest{BookingID: b.ID, Interval: span("11:00", "12:00"), Timezone: "Europe/Berlin"})
		require.NoError(t, err)
		assert.Equal(t, span("11:00", "12:00"), moved.Interval())
		assert.Equal(t, "Europe/Berlin", moved.Timezone)
		assert.Equal(t, booking.StatusConfirmed, moved.Status)
		assert.Equal(t, []string{"09:00-10:00", "10:00-11:00"}, slotStarts(t, f, "cal-a"))

		events := f.Events.Events()
		require.Len(t, events, 2)
		ev := events[1]
		assert.Equal(t, booking.EventBookingRescheduled, ev.Name)
		assert.Equal(t, span("09:00", "10:00"), *ev.OldInterval)
		assert.Equal(t, span("11:00", "12:00"), *ev.NewInterval)
	})

	t.Run("may overlap its own old interval", func(t *testing.T) {
		f := newFixture(booking.Options{})
		b, err := f.Service.Create(ctx, manual("cal-a", span("09:00", "10:00")))
		require.NoError(t, err)
		_, err = f.Service.Reschedule(ctx, booking.RescheduleRequest{BookingID: b.ID, Interval: span("09:30", "10:30")})
		assert.NoError(t, err)
	})

	t.Run("conflict leaves original untouched", func(t *testing.T) {
		f := newFixture(booking.Options{})
		first, err := f.Service.Create(ctx, manual("cal-a", span("09:00", "10:00")))
		require.NoError(t, err)
		second, err := f.Service.Create(ctx, manual("cal-a", span("10:00", "11:00")))
		require.NoError(t, err)

		_, err = f.Service.Reschedule(ctx, booking.RescheduleRequest{BookingID: second.ID, Interval: span("09:30", "10:30")})
		assert.ErrorIs(t, err, booking.ErrConflict)

		stored, err := f.Service.Get(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, span("10:00", "11:00"), stored.Interval())
		assert.Equal(t, first.CalendarID, stored.CalendarID)
		assert.Len(t, f.Events.Events(), 2)
	})

	t.Run("cancel landing mid reschedule stays cancelled", func(t *testing.T) {
		f := newFixture(booking.Options{})
		b, err := f.Service.Create(ctx, manual("cal-a", span("09:00", "10:00")))
		require.NoError(t, err)

		var cancelErr error
		f.Store.BeforeWrite = func() {
			f.Store.BeforeWrite = nil
			_, cancelErr = f.Service.Cancel(ctx, b.ID, "changed plans")
		}
		_, err = f.Service.Reschedule(ctx, booking.RescheduleRequest{BookingID: b.ID, Interval: span("11:00", "12:00")})
		require.NoError(t, err)
		require.NoError(t, cancelErr)

		stored, err := f.Service.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, booking.StatusCancelled, stored.Status)
		assert.Equal(t, "changed plans", stored.CancellationReason)
		assert.Equal(t, []string{"09:00-10:00", "10:00-11:00", "11:00-12:00"}, slotStarts(t, f, "cal-a"))
	})

	t.Run("cancelled booking cannot move", func(t *testing.T) {
		f := newFixture(booking.Options{})
		b, err := f.Service.Create(ctx, manual("cal-a", span("09:00", "10:00")))
		require.NoError(t, err)
		_, err = f.Service.Cancel(ctx, b.ID, "")
		require.NoError(t, err)

		_, err = f.Service.Reschedule(ctx, booking.RescheduleRequest{BookingID: b.ID, Interval: span("11:00", "12:00")})
		assert.ErrorIs(t, err, booking.ErrNotFound)
	})

	t.Run("new interval is validated", func(t *testing.T) {
		f := newFixture(booking.Options{})
		b, err := f.Service.Create(ctx, manual("cal-a", span("09:00", "10:00")))
		require.NoError(t, err)

		_, err = f.Service.Reschedule(ctx, booking.RescheduleRequest{BookingID: b.ID, Interval: span("12:00", "13:00")})
		var verr *booking.ValidationError
		assert.ErrorAs(t, err, &verr)
		_, err = f.Service.Reschedule(ctx, booking.RescheduleRequest{BookingID: "missing", Interval: span("11:00", "12:00")})
		assert.ErrorIs(t, err, booking.ErrNotFound)
	})
}

func TestConfirm(t *testing.T) {
	f := newFixture(booking.Options{})
	ctx := context.Background()

	b, err := f.Service.Create(ctx, public("cal-a", span("09:00", "10:00")))
	require.NoError(t, err)

	confirmed, err := f.Service.Confirm(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, confirmed.Status)

	_, err = f.Service.Confirm(ctx, b.ID)
	var verr *booking.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.Service.Cancel(ctx, b.ID, "")
	require.NoError(t, err)
	_, err = f.Service.Confirm(ctx, b.ID)
	assert.ErrorIs(t, err, booking.ErrNotFound, "cancelled is terminal")

	names := make([]booking.EventName, 0, 3)
	for _, ev := range f.Events.Events() {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []booking.EventName{booking.EventBookingCreated, booking.EventBookingConfirmed, booking.EventBookingCancelled}, names)
}

func TestTransientStoreFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("retried once", func(t *testing.T) {
		f := newFixture(booking.Options{})
		f.Store.FailLocks(fmt.Errorf("lock timeout: %w", booking.ErrTransient))
		_, err := f.Service.Create(ctx, manual("cal-a", span("09:00", "10:00")))
		assert.NoError(t, err)
	})

	t.Run("repeated failure surfaces", func(t *testing.T) {
		f := newFixture(booking.Options{})
		f.Store.FailLocks(booking.ErrTransient, booking.ErrTransient)
		_, err := f.Service.Create(ctx, manual("cal-a", span("09:00", "10:00")))
		assert.ErrorIs(t, err, booking.ErrTransient)
		assert.Empty(t, f.Store.All())
		assert.Empty(t, f.Events.Events())
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		f := newFixture(booking.Options{MaxAttempts: 5})
		boom := errors.New("disk on fire")
		f.Store.FailLocks(boom)
		_, err := f.Service.Create(ctx, manual("cal-a", span("09:00", "10:00")))
		assert.ErrorIs(t, err, boom)
	})
}

func TestEventFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(booking.Options{})
	f.Events.Err = errors.New("broker down")

	b, err := f.Service.Create(context.Background(), manual("cal-a", span("09:00", "10:00")))
	require.NoError(t, err)
	stored, err := f.Service.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, stored.Status)
	assert.Len(t, f.Events.Events(), 1)
}

type mockContacts struct {
	mock.Mock
}

func (m *mockContacts) Resolve(ctx context.Context, organizationID string, a booking.Attendee) (*string, error) {
	args := m.Called(ctx, organizationID, a)
	id, _ := args.Get(0).(*string)
	return id, args.Error(1)
}

func TestCreate_ResolvesContact(t *testing.T) {
	ctx := context.Background()
	contactID := "contact-7"

	contacts := &mockContacts{}
	contacts.On("Resolve", mock.Anything, "org-1", mock.MatchedBy(func(a booking.Attendee) bool { return a.Email == "ada@example.com" })).
		Return(&contactID, nil).Once()
	f := newFixture(booking.Options{Contacts: contacts})

	b, err := f.Service.Create(ctx, public("cal-a", span("09:00", "10:00")))
	require.NoError(t, err)
	require.NotNil(t, b.ContactID)
	assert.Equal(t, contactID, *b.ContactID)
	assert.Equal(t, &contactID, f.Events.Events()[0].ContactID)
	contacts.AssertExpectations(t)

	failing := &mockContacts{}
	failing.On("Resolve", mock.Anything, "org-1", mock.Anything).Return(nil, errors.New("crm unavailable"))
	f = newFixture(booking.Options{Contacts: failing})
	b, err = f.Service.Create(ctx, public("cal-a", span("09:00", "10:00")))
	require.NoError(t, err)
	assert.Nil(t, b.ContactID)
}

func TestList(t *testing.T) {
	f := newFixture(booking.Options{})
	ctx := context.Background()
	for _, iv := range []scheduling.Interval{span("11:00", "12:00"), span("09:00", "10:00")} {
		_, err := f.Service.Create(ctx, manual("cal-a", iv))
		require.NoError(t, err)
	}

	all, err := f.Service.List(ctx, booking.ListQuery{CalendarID: "cal-a"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, at("09:00"), all[0].StartTime)

	some, err := f.Service.List(ctx, booking.ListQuery{CalendarID: "cal-a", From: at("10:00"), To: at("23:00")})
	require.NoError(t, err)
	assert.Len(t, some, 1)

	_, err = f.Service.List(ctx, booking.ListQuery{CalendarID: "cal-a", From: at("10:00"), To: at("09:00")})
	var verr *booking.ValidationError
	assert.ErrorAs(t, err, &verr)
}
