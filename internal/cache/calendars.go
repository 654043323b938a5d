// Package cache keeps short-lived copies of calendar configuration for the
// slot read path. The booking write path always reads the source directly.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"booking-engine/internal/booking"
	"booking-engine/internal/scheduling"
)

const (
	DefaultSize = 1000
	DefaultTTL  = 30 * time.Second
)

// Calendars is a read-through booking.CalendarSource with per-entry expiry.
// Only successful lookups are cached.
type Calendars struct {
	source booking.CalendarSource
	byID   *expirable.LRU[string, scheduling.CalendarConfig]
	bySlug *expirable.LRU[string, scheduling.CalendarConfig]
	rules  *expirable.LRU[string, scheduling.RuleSet]
	logger *slog.Logger
}

func NewCalendars(source booking.CalendarSource, size int, ttl time.Duration, logger *slog.Logger) *Calendars {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Calendars{
		source: source,
		byID:   expirable.NewLRU[string, scheduling.CalendarConfig](size, nil, ttl),
		bySlug: expirable.NewLRU[string, scheduling.CalendarConfig](size, nil, ttl),
		rules:  expirable.NewLRU[string, scheduling.RuleSet](size, nil, ttl),
		logger: logger.With("component", "calendar_cache"),
	}
}

func (c *Calendars) CalendarByID(ctx context.Context, id string) (scheduling.CalendarConfig, error) {
	if cfg, ok := c.byID.Get(id); ok {
		c.logger.Debug("cache.get.hit", "kind", "calendar", "calendar_id", id)
		return cfg, nil
	}
	c.logger.Debug("cache.get.miss", "kind", "calendar", "calendar_id", id)
	cfg, err := c.source.CalendarByID(ctx, id)
	if err != nil {
		return cfg, err
	}
	c.byID.Add(id, cfg)
	return cfg, nil
}

func (c *Calendars) CalendarBySlug(ctx context.Context, slug string) (scheduling.CalendarConfig, error) {
	if cfg, ok := c.bySlug.Get(slug); ok {
		c.logger.Debug("cache.get.hit", "kind", "slug", "slug", slug)
		return cfg, nil
	}
	c.logger.Debug("cache.get.miss", "kind", "slug", "slug", slug)
	cfg, err := c.source.CalendarBySlug(ctx, slug)
	if err != nil {
		return cfg, err
	}
	c.bySlug.Add(slug, cfg)
	c.byID.Add(cfg.ID, cfg)
	return cfg, nil
}

func (c *Calendars) RuleSet(ctx context.Context, calendarID string) (scheduling.RuleSet, error) {
	if rules, ok := c.rules.Get(calendarID); ok {
		c.logger.Debug("cache.get.hit", "kind", "rules", "calendar_id", calendarID)
		return rules, nil
	}
	c.logger.Debug("cache.get.miss", "kind", "rules", "calendar_id", calendarID)
	rules, err := c.source.RuleSet(ctx, calendarID)
	if err != nil {
		return rules, err
	}
	c.rules.Add(calendarID, rules)
	return rules, nil
}

// Invalidate drops every entry for the calendar.
func (c *Calendars) Invalidate(calendarID string) {
	if cfg, ok := c.byID.Peek(calendarID); ok {
		c.bySlug.Remove(cfg.Slug)
	}
	// Slug lookups may have cached the calendar without an id entry.
	for _, slug := range c.bySlug.Keys() {
		if cfg, ok := c.bySlug.Peek(slug); ok && cfg.ID == calendarID {
			c.bySlug.Remove(slug)
		}
	}
	c.byID.Remove(calendarID)
	c.rules.Remove(calendarID)
	c.logger.Debug("cache.invalidate", "calendar_id", calendarID)
}
