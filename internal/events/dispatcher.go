// Package events delivers booking events to downstream consumers off the
// request path.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"booking-engine/internal/booking"
)

var (
	ErrQueueFull = errors.New("event queue full")
	ErrClosed    = errors.New("event dispatcher closed")
)

const (
	DefaultBuffer  = 256
	DefaultTimeout = 10 * time.Second
)

// Dispatcher is a booking.EventSink that queues events and hands them to a
// downstream sink from a single worker. Emit never blocks.
type Dispatcher struct {
	sink    booking.EventSink
	queue   chan booking.Event
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewDispatcher(sink booking.EventSink, buffer int, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sink:    sink,
		queue:   make(chan booking.Event, buffer),
		timeout: timeout,
		logger:  logger.With("component", "events"),
		done:    make(chan struct{}),
	}
}

func (d *Dispatcher) Emit(_ context.Context, ev booking.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- ev:
		return nil
	default:
		d.logger.Warn("events.queue.full", "event", ev.Name, "event_id", ev.ID, "booking_id", ev.BookingID)
		return ErrQueueFull
	}
}

// Run delivers queued events until Close has been called and the queue is
// drained, or ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.queue:
			if !ok {
				return
			}
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev booking.Event) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.sink.Emit(ctx, ev); err != nil {
		d.logger.Error("events.deliver.failed", "event", ev.Name, "event_id", ev.ID, "booking_id", ev.BookingID, "error", err)
		return
	}
	d.logger.Debug("events.deliver.ok", "event", ev.Name, "event_id", ev.ID)
}

// Close stops accepting events. Run returns once the backlog is delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}

// Wait blocks until Run has returned or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
