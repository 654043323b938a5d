package scheduling

import "time"

// Interval is a half-open span of time [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the interval has a positive length.
func (i Interval) Valid() bool {
	return !i.Start.IsZero() && !i.End.IsZero() && i.Start.Before(i.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps is the half-open intersection test: s1 < e2 && s2 < e1.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// UTC returns the interval with both bounds converted to UTC.
func (i Interval) UTC() Interval {
	return Interval{Start: i.Start.UTC(), End: i.End.UTC()}
}

// Buffers is the padding a calendar keeps around every booking.
type Buffers struct {
	Before time.Duration
	After  time.Duration
}

// Expand pads i by the buffers.
func (b Buffers) Expand(i Interval) Interval {
	return Interval{Start: i.Start.Add(-b.Before), End: i.End.Add(b.After)}
}

// Reach is how far apart two raw intervals can be and still conflict once both are padded.
func (b Buffers) Reach() time.Duration {
	return b.Before + b.After
}

// Blocks reports whether candidate conflicts with existing once both are padded.
// Slot generation and the write path share this predicate.
func (b Buffers) Blocks(candidate, existing Interval) bool {
	return b.Expand(candidate).Overlaps(b.Expand(existing))
}
