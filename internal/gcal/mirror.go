package gcal

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"booking-engine/internal/booking"
)

// Mirror is a booking.EventSink that keeps one Google Calendar event per
// booking. Active bookings are upserted; cancelled bookings are deleted.
type Mirror struct {
	srv        *calendar.Service
	calendarID string
	logger     *slog.Logger
}

// NewMirror authorises a calendar client with tok. The token source refreshes
// expired access tokens on its own.
func NewMirror(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token, calendarID string, logger *slog.Logger) (*Mirror, error) {
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return NewMirrorWithService(srv, calendarID, logger), nil
}

func NewMirrorWithService(srv *calendar.Service, calendarID string, logger *slog.Logger) *Mirror {
	if calendarID == "" {
		calendarID = "primary"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{srv: srv, calendarID: calendarID, logger: logger.With("component", "gcal")}
}

func (m *Mirror) Emit(ctx context.Context, ev booking.Event) error {
	id := EventID(ev.BookingID)
	if ev.Name == booking.EventBookingCancelled {
		err := m.srv.Events.Delete(m.calendarID, id).Context(ctx).Do()
		if err != nil && !hasStatus(err, http.StatusNotFound, http.StatusGone) {
			return fmt.Errorf("delete google event %s: %w", id, err)
		}
		m.logger.Debug("gcal.event.deleted", "booking_id", ev.BookingID, "google_event_id", id)
		return nil
	}
	if ev.NewInterval == nil {
		return nil
	}

	item := toGoogleEvent(id, ev)
	_, err := m.srv.Events.Insert(m.calendarID, item).Context(ctx).Do()
	if hasStatus(err, http.StatusConflict) {
		_, err = m.srv.Events.Update(m.calendarID, id, item).Context(ctx).Do()
	}
	if err != nil {
		return fmt.Errorf("upsert google event %s: %w", id, err)
	}
	m.logger.Debug("gcal.event.upserted", "booking_id", ev.BookingID, "google_event_id", id, "event", ev.Name)
	return nil
}

func hasStatus(err error, codes ...int) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	for _, c := range codes {
		if gerr.Code == c {
			return true
		}
	}
	return false
}

// EventID derives a stable Google event id from a booking id. Google accepts
// lowercase base32hex characters, which hex digits and "bk" satisfy.
func EventID(bookingID string) string {
	if u, err := uuid.Parse(bookingID); err == nil {
		return "bk" + hex.EncodeToString(u[:])
	}
	return "bk" + hex.EncodeToString([]byte(bookingID))
}

func toGoogleEvent(id string, ev booking.Event) *calendar.Event {
	summary := "Booking"
	if ev.AttendeeName != "" {
		summary = "Booking: " + ev.AttendeeName
	}
	status := "confirmed"
	if ev.Status == booking.StatusPending {
		status = "tentative"
	}
	item := &calendar.Event{
		Id:          id,
		Summary:     summary,
		Description: strings.TrimSpace(fmt.Sprintf("Booking %s (%s)", ev.BookingID, ev.Status)),
		Status:      status,
		Start:       dateTime(ev.NewInterval.Start, ev.Timezone),
		End:         dateTime(ev.NewInterval.End, ev.Timezone),
	}
	if ev.AttendeeEmail != "" {
		item.Attendees = []*calendar.EventAttendee{{Email: ev.AttendeeEmail, DisplayName: ev.AttendeeName}}
	}
	return item
}

func dateTime(t time.Time, tz string) *calendar.EventDateTime {
	return &calendar.EventDateTime{DateTime: t.UTC().Format(time.RFC3339), TimeZone: tz}
}
