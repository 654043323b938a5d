package scheduling

import (
	"fmt"
	"iter"
	"time"
)

// Slot is a candidate bookable interval exactly one calendar duration wide.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (s Slot) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// Query selects the calendar-local dates to generate slots for, inclusive on both ends.
type Query struct {
	From Date
	To   Date
	Now  time.Time
}

// Generate derives the free slots of a calendar.
//
// The returned sequence is finite, ordered by start and free of side effects;
// ranging over it again replays the same slots.
func Generate(cfg CalendarConfig, rules RuleSet, booked *Index, q Query) (iter.Seq[Slot], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	sched, err := compile(rules)
	if err != nil {
		return nil, err
	}
	if q.To.Before(q.From) {
		return nil, fmt.Errorf("range end %s is before range start %s", q.To, q.From)
	}

	duration := cfg.Duration()
	earliest := q.Now.Add(cfg.Notice())
	horizon := q.Now.Add(cfg.Horizon())

	last := q.To
	if h := DateOf(horizon.In(loc)); h.Before(last) {
		last = h
	}

	return func(yield func(Slot) bool) {
		for day := q.From; !day.After(last); day = day.AddDays(1) {
			for _, sp := range sched.spansOn(day) {
				windowEnd := day.At(sp.end, loc)
				for t := day.At(firstStart(sp, cfg.DurationMinutes, cfg.Alignment), loc); !t.Add(duration).After(windowEnd); t = t.Add(duration) {
					if t.Before(earliest) {
						continue
					}
					if t.After(horizon) {
						return
					}
					slot := Slot{Start: t.UTC(), End: t.Add(duration).UTC()}
					if booked.Blocks(slot.Interval()) {
						continue
					}
					if !yield(slot) {
						return
					}
				}
			}
		}
	}, nil
}

// SpanOf is the instant range covered by the local dates of q, padded by the
// buffer reach so that bookings just outside the dates are still considered.
func SpanOf(cfg CalendarConfig, q Query) (Interval, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Interval{}, err
	}
	reach := cfg.Buffers().Reach()
	return Interval{
		Start: q.From.At(0, loc).Add(-reach),
		End:   q.To.AddDays(1).At(0, loc).Add(reach),
	}, nil
}
