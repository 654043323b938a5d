package booking

import (
	"context"
	"fmt"
	"slices"

	"booking-engine/internal/scheduling"
)

// Slots returns the free slots of a calendar for the local dates [from, to].
func (s *Service) Slots(ctx context.Context, calendarID string, from, to scheduling.Date) ([]scheduling.Slot, error) {
	cfg, err := s.reads.CalendarByID(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	return s.slots(ctx, cfg, from, to)
}

// SlotsBySlug is Slots for an active public calendar.
func (s *Service) SlotsBySlug(ctx context.Context, slug string, from, to scheduling.Date) ([]scheduling.Slot, error) {
	cfg, err := s.reads.CalendarBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.slots(ctx, cfg, from, to)
}

func (s *Service) slots(ctx context.Context, cfg scheduling.CalendarConfig, from, to scheduling.Date) ([]scheduling.Slot, error) {
	if from.IsZero() || to.IsZero() {
		return nil, invalid("from", "from and to are required")
	}
	if to.Before(from) {
		return nil, invalid("to", "to must not be before from")
	}
	if !cfg.IsActive {
		return []scheduling.Slot{}, nil
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	// Nothing before today or past the horizon can be booked; narrow the walk.
	now := s.now()
	if today := scheduling.DateOf(now.In(loc)); from.Before(today) {
		from = today
	}
	if last := scheduling.DateOf(now.Add(cfg.Horizon()).In(loc)); to.After(last) {
		to = last
	}
	if to.Before(from) {
		return []scheduling.Slot{}, nil
	}

	rules, err := s.reads.RuleSet(ctx, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("load availability for calendar %s: %w", cfg.ID, err)
	}
	q := scheduling.Query{From: from, To: to, Now: now}
	window, err := scheduling.SpanOf(cfg, q)
	if err != nil {
		return nil, err
	}
	booked, err := s.store.ActiveIntervals(ctx, cfg.ID, window)
	if err != nil {
		return nil, fmt.Errorf("load booked intervals for calendar %s: %w", cfg.ID, err)
	}

	seq, err := scheduling.Generate(cfg, rules, scheduling.NewIndex(cfg.Buffers(), booked), q)
	if err != nil {
		return nil, err
	}
	out := slices.Collect(seq)
	if out == nil {
		out = []scheduling.Slot{}
	}
	return out, nil
}
