package bookingtest

import (
	"context"
	"sync"

	"booking-engine/internal/booking"
	"booking-engine/internal/scheduling"
)

// Calendars is an in-memory booking.CalendarSource.
type Calendars struct {
	mu    sync.RWMutex
	cals  map[string]scheduling.CalendarConfig
	rules map[string]scheduling.RuleSet
}

func NewCalendars() *Calendars {
	return &Calendars{
		cals:  make(map[string]scheduling.CalendarConfig),
		rules: make(map[string]scheduling.RuleSet),
	}
}

func (c *Calendars) Put(cfg scheduling.CalendarConfig, rules scheduling.RuleSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cals[cfg.ID] = cfg
	c.rules[cfg.ID] = rules
}

func (c *Calendars) CalendarByID(_ context.Context, id string) (scheduling.CalendarConfig, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfg, ok := c.cals[id]
	if !ok {
		return scheduling.CalendarConfig{}, booking.ErrNotFound
	}
	return cfg, nil
}

func (c *Calendars) CalendarBySlug(_ context.Context, slug string) (scheduling.CalendarConfig, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cfg := range c.cals {
		if cfg.Slug == slug && cfg.IsActive {
			return cfg, nil
		}
	}
	return scheduling.CalendarConfig{}, booking.ErrNotFound
}

func (c *Calendars) RuleSet(_ context.Context, calendarID string) (scheduling.RuleSet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rules[calendarID], nil
}

// Recorder is an EventSink that keeps every event.
type Recorder struct {
	mu     sync.Mutex
	events []booking.Event
	// Err is returned from Emit after recording.
	Err error
}

func (r *Recorder) Emit(_ context.Context, ev booking.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.Err
}

func (r *Recorder) Events() []booking.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]booking.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Fixture wires a Service over in-memory ports.
type Fixture struct {
	Store     *Store
	Calendars *Calendars
	Events    *Recorder
	Service   *booking.Service
}

// Calendar pairs a calendar with its availability rules.
type Calendar struct {
	Config scheduling.CalendarConfig
	Rules  scheduling.RuleSet
}

// NewFixture registers each calendar and builds a Service using opts.
// The event sink and read source in opts are replaced by the in-memory ones.
func NewFixture(opts booking.Options, calendars ...Calendar) *Fixture {
	f := &Fixture{Store: NewStore(), Calendars: NewCalendars(), Events: &Recorder{}}
	for _, c := range calendars {
		f.Calendars.Put(c.Config, c.Rules)
		f.Store.RegisterCalendar(c.Config)
	}
	opts.Events = f.Events
	opts.Reads = nil
	f.Service = booking.NewService(f.Store, f.Calendars, opts)
	return f
}
