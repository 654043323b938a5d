package scheduling

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-10-19 is a Monday.
var monday = Date{Year: 2026, Month: time.October, Day: 19}

func utc(day Date, hhmm string) time.Time {
	c, err := ParseClock(hhmm)
	if err != nil {
		panic(err)
	}
	return day.At(c, time.UTC)
}

func testCalendar() CalendarConfig {
	return CalendarConfig{
		ID:              "cal-1",
		OrganizationID:  "org-1",
		Slug:            "intro-call",
		Timezone:        "UTC",
		DurationMinutes: 60,
		MaxFutureDays:   30,
		IsActive:        true,
	}
}

func mondayWindow(start, end string) AvailabilityWindow {
	return AvailabilityWindow{CalendarID: "cal-1", DayOfWeek: int(time.Monday), StartTime: start, EndTime: end, IsActive: true}
}

func generate(t *testing.T, cfg CalendarConfig, rules RuleSet, booked []Interval, q Query) []Slot {
	t.Helper()
	seq, err := Generate(cfg, rules, NewIndex(cfg.Buffers(), booked), q)
	require.NoError(t, err)
	return slices.Collect(seq)
}

func starts(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start.Format("2006-01-02 15:04"))
	}
	return out
}

func TestGenerate_MondayMorning(t *testing.T) {
	cfg := testCalendar()
	rules := RuleSet{Windows: []AvailabilityWindow{mondayWindow("09:00", "12:00")}}
	q := Query{From: monday, To: monday, Now: utc(monday.AddDays(-7), "00:00")}

	slots := generate(t, cfg, rules, nil, q)
	require.Equal(t, []Slot{
		{Start: utc(monday, "09:00"), End: utc(monday, "10:00")},
		{Start: utc(monday, "10:00"), End: utc(monday, "11:00")},
		{Start: utc(monday, "11:00"), End: utc(monday, "12:00")},
	}, slots)

	booked := []Interval{{Start: utc(monday, "10:00"), End: utc(monday, "11:00")}}
	slots = generate(t, cfg, rules, booked, q)
	assert.Equal(t, []string{"2026-10-19 09:00", "2026-10-19 11:00"}, starts(slots))
}

func TestGenerate_Idempotent(t *testing.T) {
	cfg := testCalendar()
	rules := RuleSet{Windows: []AvailabilityWindow{mondayWindow("09:00", "17:00")}}
	q := Query{From: monday.AddDays(-3), To: monday.AddDays(10), Now: utc(monday.AddDays(-7), "00:00")}

	seq, err := Generate(cfg, rules, nil, q)
	require.NoError(t, err)
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, first, generate(t, cfg, rules, nil, q))
}

func TestGenerate_BufferRespect(t *testing.T) {
	cfg := testCalendar()
	cfg.DurationMinutes = 30
	cfg.BufferBeforeMinutes = 10
	cfg.BufferAfterMinutes = 10
	rules := RuleSet{Windows: []AvailabilityWindow{mondayWindow("08:00", "13:00")}}
	q := Query{From: monday, To: monday, Now: utc(monday.AddDays(-7), "00:00")}
	booked := []Interval{{Start: utc(monday, "10:00"), End: utc(monday, "10:30")}}

	slots := generate(t, cfg, rules, booked, q)
	require.NotEmpty(t, slots)
	lo, hi := utc(monday, "09:40"), utc(monday, "10:40")
	for _, s := range slots {
		inside := s.Start.After(lo) && s.Start.Before(hi)
		assert.False(t, inside, "slot %s starts inside the buffered booking", s.Start)
	}
	assert.Equal(t, []string{
		"2026-10-19 08:00", "2026-10-19 08:30", "2026-10-19 09:00",
		"2026-10-19 11:00", "2026-10-19 11:30", "2026-10-19 12:00", "2026-10-19 12:30",
	}, starts(slots))
}

func TestGenerate_OverlappingWindowsAreUnioned(t *testing.T) {
	cfg := testCalendar()
	rules := RuleSet{Windows: []AvailabilityWindow{
		mondayWindow("10:00", "12:00"),
		mondayWindow("09:00", "11:00"),
		mondayWindow("09:30", "10:30"),
		mondayWindow("14:00", "16:00"),
	}}
	q := Query{From: monday, To: monday, Now: utc(monday.AddDays(-7), "00:00")}

	slots := generate(t, cfg, rules, nil, q)
	assert.Equal(t, []string{
		"2026-10-19 09:00", "2026-10-19 10:00", "2026-10-19 11:00",
		"2026-10-19 14:00", "2026-10-19 15:00",
	}, starts(slots))
}

func TestGenerate_InactiveWindowsIgnored(t *testing.T) {
	cfg := testCalendar()
	w := mondayWindow("09:00", "12:00")
	w.IsActive = false
	q := Query{From: monday, To: monday, Now: utc(monday.AddDays(-7), "00:00")}

	assert.Empty(t, generate(t, cfg, RuleSet{Windows: []AvailabilityWindow{w}}, nil, q))
}

func TestGenerate_OverridePrecedence(t *testing.T) {
	cfg := testCalendar()
	q := Query{From: monday, To: monday, Now: utc(monday.AddDays(-7), "00:00")}
	windows := []AvailabilityWindow{mondayWindow("09:00", "12:00")}

	t.Run("blackout", func(t *testing.T) {
		rules := RuleSet{Windows: windows, Overrides: []DateOverride{{CalendarID: "cal-1", Date: monday, IsAvailable: false}}}
		assert.Empty(t, generate(t, cfg, rules, nil, q))
	})

	t.Run("special hours replace recurring windows", func(t *testing.T) {
		start, end := "15:00", "17:00"
		rules := RuleSet{Windows: windows, Overrides: []DateOverride{{CalendarID: "cal-1", Date: monday, IsAvailable: true, StartTime: &start, EndTime: &end}}}
		assert.Equal(t, []string{"2026-10-19 15:00", "2026-10-19 16:00"}, starts(generate(t, cfg, rules, nil, q)))
	})

	t.Run("available without hours keeps recurring windows", func(t *testing.T) {
		rules := RuleSet{Windows: windows, Overrides: []DateOverride{{CalendarID: "cal-1", Date: monday, IsAvailable: true}}}
		assert.Len(t, generate(t, cfg, rules, nil, q), 3)
	})

	t.Run("override opens a day without windows", func(t *testing.T) {
		sunday := monday.AddDays(-1)
		start, end := "10:00", "11:00"
		rules := RuleSet{Windows: windows, Overrides: []DateOverride{{CalendarID: "cal-1", Date: sunday, IsAvailable: true, StartTime: &start, EndTime: &end}}}
		slots := generate(t, cfg, rules, nil, Query{From: sunday, To: sunday, Now: q.Now})
		assert.Equal(t, []string{"2026-10-18 10:00"}, starts(slots))
	})

	t.Run("duplicate override rejected", func(t *testing.T) {
		rules := RuleSet{Overrides: []DateOverride{{Date: monday}, {Date: monday, IsAvailable: true}}}
		_, err := Generate(cfg, rules, nil, q)
		assert.Error(t, err)
	})
}

func TestGenerate_NoticeAndHorizon(t *testing.T) {
	cfg := testCalendar()
	cfg.MinNoticeHours = 24
	cfg.MaxFutureDays = 30
	everyDay := make([]AvailabilityWindow, 0, 7)
	for d := 0; d < 7; d++ {
		everyDay = append(everyDay, AvailabilityWindow{DayOfWeek: d, StartTime: "00:00", EndTime: "24:00", IsActive: true})
	}
	rules := RuleSet{Windows: everyDay}
	now := time.Date(2026, time.October, 14, 9, 30, 0, 0, time.UTC)
	q := Query{From: DateOf(now).AddDays(-2), To: DateOf(now).AddDays(60), Now: now}

	slots := generate(t, cfg, rules, nil, q)
	require.NotEmpty(t, slots)
	for _, s := range slots {
		assert.False(t, s.Start.Before(now.Add(24*time.Hour)), "slot %s violates notice", s.Start)
		assert.False(t, s.Start.After(now.Add(30*24*time.Hour)), "slot %s beyond horizon", s.Start)
	}
	assert.Equal(t, time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC), slots[0].Start)
	assert.Equal(t, time.Date(2026, time.November, 13, 9, 0, 0, 0, time.UTC), slots[len(slots)-1].Start)
}

func TestGenerate_GridAlignment(t *testing.T) {
	cfg := testCalendar()
	cfg.Alignment = AlignGrid
	rules := RuleSet{Windows: []AvailabilityWindow{mondayWindow("09:15", "12:00")}}
	q := Query{From: monday, To: monday, Now: utc(monday.AddDays(-7), "00:00")}

	assert.Equal(t, []string{"2026-10-19 10:00", "2026-10-19 11:00"}, starts(generate(t, cfg, rules, nil, q)))

	cfg.Alignment = AlignWindow
	assert.Equal(t, []string{"2026-10-19 09:15", "2026-10-19 10:15"}, starts(generate(t, cfg, rules, nil, q)))
}

func TestGenerate_CalendarTimezone(t *testing.T) {
	cfg := testCalendar()
	cfg.Timezone = "Europe/Berlin"
	rules := RuleSet{Windows: []AvailabilityWindow{mondayWindow("09:00", "10:00")}}
	q := Query{From: monday, To: monday, Now: utc(monday.AddDays(-7), "00:00")}

	slots := generate(t, cfg, rules, nil, q)
	require.Len(t, slots, 1)
	assert.Equal(t, time.Date(2026, time.October, 19, 7, 0, 0, 0, time.UTC), slots[0].Start)
}

func TestGenerate_InvalidInput(t *testing.T) {
	q := Query{From: monday, To: monday, Now: utc(monday, "00:00")}

	cfg := testCalendar()
	cfg.DurationMinutes = 0
	_, err := Generate(cfg, RuleSet{}, nil, q)
	assert.Error(t, err)

	cfg = testCalendar()
	cfg.Timezone = "Mars/Olympus"
	_, err = Generate(cfg, RuleSet{}, nil, q)
	assert.Error(t, err)

	_, err = Generate(testCalendar(), RuleSet{Windows: []AvailabilityWindow{mondayWindow("12:00", "09:00")}}, nil, q)
	assert.Error(t, err)

	_, err = Generate(testCalendar(), RuleSet{}, nil, Query{From: monday, To: monday.AddDays(-1)})
	assert.Error(t, err)
}

func TestGenerate_StopsEarly(t *testing.T) {
	cfg := testCalendar()
	rules := RuleSet{Windows: []AvailabilityWindow{mondayWindow("00:00", "24:00")}}
	seq, err := Generate(cfg, rules, nil, Query{From: monday, To: monday, Now: utc(monday.AddDays(-7), "00:00")})
	require.NoError(t, err)

	n := 0
	for range seq {
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, 5, n)
}

func TestSpanOf(t *testing.T) {
	cfg := testCalendar()
	cfg.BufferBeforeMinutes = 15
	cfg.BufferAfterMinutes = 5
	iv, err := SpanOf(cfg, Query{From: monday, To: monday})
	require.NoError(t, err)
	assert.Equal(t, utc(monday, "00:00").Add(-20*time.Minute), iv.Start)
	assert.Equal(t, utc(monday.AddDays(1), "00:00").Add(20*time.Minute), iv.End)
}
