package scheduling

import (
	"fmt"
	"slices"
	"time"
)

// span is a local [start, end) range of one day.
type span struct {
	start ClockTime
	end   ClockTime
}

// schedule is a RuleSet with every day's windows merged into disjoint sorted spans.
type schedule struct {
	weekly    [7][]span
	overrides map[Date][]span
}

func compile(rules RuleSet) (*schedule, error) {
	s := &schedule{overrides: make(map[Date][]span, len(rules.Overrides))}

	var weekly [7][]span
	for _, w := range rules.Windows {
		if !w.IsActive {
			continue
		}
		if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
			return nil, fmt.Errorf("availability window: day_of_week %d out of range", w.DayOfWeek)
		}
		sp, err := parseSpan(w.StartTime, w.EndTime)
		if err != nil {
			return nil, fmt.Errorf("availability window day %d: %w", w.DayOfWeek, err)
		}
		weekly[w.DayOfWeek] = append(weekly[w.DayOfWeek], sp)
	}
	for day := range weekly {
		s.weekly[day] = mergeSpans(weekly[day])
	}

	for _, o := range rules.Overrides {
		if _, dup := s.overrides[o.Date]; dup {
			return nil, fmt.Errorf("date override %s: more than one override for date", o.Date)
		}
		switch {
		case !o.IsAvailable:
			s.overrides[o.Date] = []span{}
		case o.StartTime != nil && o.EndTime != nil:
			sp, err := parseSpan(*o.StartTime, *o.EndTime)
			if err != nil {
				return nil, fmt.Errorf("date override %s: %w", o.Date, err)
			}
			s.overrides[o.Date] = []span{sp}
		case o.StartTime != nil || o.EndTime != nil:
			return nil, fmt.Errorf("date override %s: start_time and end_time must be set together", o.Date)
		}
	}
	return s, nil
}

func parseSpan(start, end string) (span, error) {
	st, err := ParseClock(start)
	if err != nil {
		return span{}, err
	}
	en, err := ParseClock(end)
	if err != nil {
		return span{}, err
	}
	if en <= st {
		return span{}, fmt.Errorf("end_time %s must be after start_time %s", end, start)
	}
	return span{start: st, end: en}, nil
}

// mergeSpans unions overlapping and touching spans so that slot walking never
// visits the same minute twice.
func mergeSpans(in []span) []span {
	if len(in) == 0 {
		return nil
	}
	sorted := slices.Clone(in)
	slices.SortFunc(sorted, func(a, b span) int { return int(a.start) - int(b.start) })

	out := []span{sorted[0]}
	for _, sp := range sorted[1:] {
		last := &out[len(out)-1]
		if sp.start <= last.end {
			last.end = max(last.end, sp.end)
			continue
		}
		out = append(out, sp)
	}
	return out
}

// spansOn returns the open spans of a date: the override when present, otherwise the weekly spans.
func (s *schedule) spansOn(d Date) []span {
	if sp, ok := s.overrides[d]; ok {
		return sp
	}
	return s.weekly[d.Weekday()]
}

// firstStart is the first slot start inside sp for the given alignment.
func firstStart(sp span, duration int, align Alignment) ClockTime {
	if align != AlignGrid {
		return sp.start
	}
	m := int(sp.start)
	if r := m % duration; r != 0 {
		m += duration - r
	}
	return ClockTime(m)
}

// Admits reports whether iv lies inside one open span of its local start date.
// When aligned is set, iv must also coincide with a slot the generator would walk.
func Admits(cfg CalendarConfig, rules RuleSet, iv Interval, aligned bool) (bool, error) {
	loc, err := cfg.Location()
	if err != nil {
		return false, err
	}
	sched, err := compile(rules)
	if err != nil {
		return false, err
	}

	local := iv.Start.In(loc)
	day := DateOf(local)
	for _, sp := range sched.spansOn(day) {
		ws, we := day.At(sp.start, loc), day.At(sp.end, loc)
		if iv.Start.Before(ws) || iv.End.After(we) {
			continue
		}
		if !aligned {
			return true, nil
		}
		return onStep(day.At(firstStart(sp, cfg.DurationMinutes, cfg.Alignment), loc), iv.Start, cfg.Duration()), nil
	}
	return false, nil
}

func onStep(origin, t time.Time, step time.Duration) bool {
	if t.Before(origin) {
		return false
	}
	return t.Sub(origin)%step == 0
}
