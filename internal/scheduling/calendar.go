package scheduling

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Alignment controls where slot starts fall inside an open window.
type Alignment string

const (
	// AlignWindow walks from the window start in duration steps.
	AlignWindow Alignment = "window"
	// AlignGrid places starts on multiples of the duration counted from local midnight.
	AlignGrid Alignment = "grid"
)

// CalendarConfig is a read-only snapshot of a calendar's scheduling parameters.
type CalendarConfig struct {
	ID                  string    `json:"id"`
	OrganizationID      string    `json:"organization_id"`
	Slug                string    `json:"slug"`
	Name                string    `json:"name,omitempty"`
	Timezone            string    `json:"timezone"`
	DurationMinutes     int       `json:"duration_minutes"`
	BufferBeforeMinutes int       `json:"buffer_before_minutes"`
	BufferAfterMinutes  int       `json:"buffer_after_minutes"`
	MinNoticeHours      int       `json:"min_notice_hours"`
	MaxFutureDays       int       `json:"max_future_days"`
	Alignment           Alignment `json:"slot_alignment"`
	IsActive            bool      `json:"is_active"`
}

func (c CalendarConfig) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

func (c CalendarConfig) Buffers() Buffers {
	return Buffers{
		Before: time.Duration(c.BufferBeforeMinutes) * time.Minute,
		After:  time.Duration(c.BufferAfterMinutes) * time.Minute,
	}
}

// Notice is the earliest bookable start relative to now.
func (c CalendarConfig) Notice() time.Duration {
	return time.Duration(c.MinNoticeHours) * time.Hour
}

// Horizon is the latest bookable start relative to now.
func (c CalendarConfig) Horizon() time.Duration {
	return time.Duration(c.MaxFutureDays) * 24 * time.Hour
}

// Location resolves the calendar timezone. An empty timezone means UTC.
func (c CalendarConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("calendar %s: timezone %q: %w", c.ID, c.Timezone, err)
	}
	return loc, nil
}

// Validate checks the numeric bounds of the snapshot.
func (c CalendarConfig) Validate() error {
	var errs []error
	if c.DurationMinutes <= 0 {
		errs = append(errs, errors.New("duration_minutes must be positive"))
	}
	if c.BufferBeforeMinutes < 0 || c.BufferAfterMinutes < 0 {
		errs = append(errs, errors.New("buffers must not be negative"))
	}
	if c.MinNoticeHours < 0 {
		errs = append(errs, errors.New("min_notice_hours must not be negative"))
	}
	if c.MaxFutureDays <= 0 {
		errs = append(errs, errors.New("max_future_days must be positive"))
	}
	switch c.Alignment {
	case "", AlignWindow, AlignGrid:
	default:
		errs = append(errs, fmt.Errorf("unknown slot alignment %q", c.Alignment))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("calendar %s: %w", c.ID, err)
	}
	return nil
}

// Date is a calendar date with no time or zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// At returns the instant at the given number of minutes past midnight of d in loc.
func (d Date) At(minutes ClockTime, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, int(minutes), 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) After(o Date) bool {
	return o.Before(d)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// ClockTime is a local wall-clock time as minutes past midnight, 0..1440.
type ClockTime int

const endOfDay ClockTime = 24 * 60

// ParseClock parses "HH:MM" or "HH:MM:SS". "24:00" denotes the end of the day.
func ParseClock(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time string: %s", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time string: %s", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time string: %s", s)
	}
	if len(parts) == 3 {
		sec := parts[2]
		if i := strings.IndexByte(sec, '.'); i >= 0 {
			sec = sec[:i]
		}
		if v, err := strconv.Atoi(sec); err != nil || v != 0 {
			return 0, fmt.Errorf("time %s: seconds are not supported", s)
		}
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("time out of range: %s", s)
	}
	return ClockTime(h*60 + m), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// AvailabilityWindow is a recurring weekly open interval in calendar-local time.
type AvailabilityWindow struct {
	CalendarID string `json:"calendar_id"`
	DayOfWeek  int    `json:"day_of_week"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	IsActive   bool   `json:"is_active"`
}

// DateOverride replaces the recurring windows of a single date.
// IsAvailable=false blacks the date out; IsAvailable=true with both times sets special hours;
// IsAvailable=true without times keeps the recurring windows.
type DateOverride struct {
	CalendarID  string  `json:"calendar_id"`
	Date        Date    `json:"-"`
	IsAvailable bool    `json:"is_available"`
	StartTime   *string `json:"start_time,omitempty"`
	EndTime     *string `json:"end_time,omitempty"`
}

// RuleSet is the full availability description of a calendar.
type RuleSet struct {
	Windows   []AvailabilityWindow
	Overrides []DateOverride
}
