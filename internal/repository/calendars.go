package repository

import (
	"context"
	"fmt"
	"time"

	"booking-engine/internal/booking"
	"booking-engine/internal/scheduling"
)

const calendarColumns = `id::text, organization_id::text, slug, name, timezone, duration_minutes,
	buffer_before_minutes, buffer_after_minutes, min_notice_hours, max_future_days,
	slot_alignment, is_active`

func scanCalendar(row rowScanner) (scheduling.CalendarConfig, error) {
	var (
		c     scheduling.CalendarConfig
		align string
	)
	err := row.Scan(&c.ID, &c.OrganizationID, &c.Slug, &c.Name, &c.Timezone, &c.DurationMinutes,
		&c.BufferBeforeMinutes, &c.BufferAfterMinutes, &c.MinNoticeHours, &c.MaxFutureDays,
		&align, &c.IsActive)
	if err != nil {
		return scheduling.CalendarConfig{}, classify(err)
	}
	c.Alignment = scheduling.Alignment(align)
	return c, nil
}

func (p *Postgres) CalendarByID(ctx context.Context, id string) (scheduling.CalendarConfig, error) {
	if !validID(id) {
		return scheduling.CalendarConfig{}, booking.ErrNotFound
	}
	return scanCalendar(p.pool.QueryRow(ctx, `SELECT `+calendarColumns+` FROM calendars WHERE id = $1`, id))
}

func (p *Postgres) CalendarBySlug(ctx context.Context, slug string) (scheduling.CalendarConfig, error) {
	return scanCalendar(p.pool.QueryRow(ctx, `SELECT `+calendarColumns+` FROM calendars WHERE slug = $1 AND is_active`, slug))
}

// RuleSet loads the weekly windows and the overrides from yesterday onward.
// Older overrides can no longer affect a bookable date in any timezone.
func (p *Postgres) RuleSet(ctx context.Context, calendarID string) (scheduling.RuleSet, error) {
	var rules scheduling.RuleSet
	if !validID(calendarID) {
		return rules, nil
	}

	rows, err := p.pool.Query(ctx, `
		SELECT calendar_id::text, day_of_week, start_time::text, end_time::text, is_active
		FROM availability_windows
		WHERE calendar_id = $1
		ORDER BY day_of_week, start_time`, calendarID)
	if err != nil {
		return rules, fmt.Errorf("query availability windows: %w", err)
	}
	for rows.Next() {
		var w scheduling.AvailabilityWindow
		if err := rows.Scan(&w.CalendarID, &w.DayOfWeek, &w.StartTime, &w.EndTime, &w.IsActive); err != nil {
			rows.Close()
			return rules, fmt.Errorf("scan availability window: %w", err)
		}
		rules.Windows = append(rules.Windows, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return rules, fmt.Errorf("read availability windows: %w", err)
	}

	rows, err = p.pool.Query(ctx, `
		SELECT calendar_id::text, override_date, is_available, start_time::text, end_time::text
		FROM calendar_date_overrides
		WHERE calendar_id = $1 AND override_date >= CURRENT_DATE - 1
		ORDER BY override_date`, calendarID)
	if err != nil {
		return rules, fmt.Errorf("query date overrides: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			o   scheduling.DateOverride
			day time.Time
		)
		if err := rows.Scan(&o.CalendarID, &day, &o.IsAvailable, &o.StartTime, &o.EndTime); err != nil {
			return rules, fmt.Errorf("scan date override: %w", err)
		}
		o.Date = scheduling.DateOf(day)
		rules.Overrides = append(rules.Overrides, o)
	}
	if err := rows.Err(); err != nil {
		return rules, fmt.Errorf("read date overrides: %w", err)
	}
	return rules, nil
}
