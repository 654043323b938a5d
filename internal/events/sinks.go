package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"booking-engine/internal/booking"
)

// Fanout delivers each event to every sink and joins their errors.
type Fanout []booking.EventSink

func (f Fanout) Emit(ctx context.Context, ev booking.Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Emit(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes every event to the structured log.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Emit(ctx context.Context, ev booking.Event) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "booking.event",
		"event", ev.Name,
		"event_id", ev.ID,
		"booking_id", ev.BookingID,
		"calendar_id", ev.CalendarID,
		"status", ev.Status,
	)
	return nil
}

// Encode is the wire form shared by the broker publishers.
func Encode(ev booking.Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", ev.ID, err)
	}
	return body, nil
}

// Holder forwards to a sink installed after startup. Until then events are
// discarded.
type Holder struct {
	mu   sync.RWMutex
	sink booking.EventSink
}

func (h *Holder) Set(sink booking.EventSink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sink = sink
}

func (h *Holder) Emit(ctx context.Context, ev booking.Event) error {
	h.mu.RLock()
	sink := h.sink
	h.mu.RUnlock()
	if sink == nil {
		return nil
	}
	return sink.Emit(ctx, ev)
}
