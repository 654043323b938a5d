package booking

import (
	"context"
	"fmt"

	"booking-engine/internal/scheduling"
)

// TryReserve re-validates iv against the live intervals of the calendar.
//
// It must run inside Store.WithCalendarLock; the lock is what makes the
// following write atomic with the check. excludeID skips the booking being
// moved. Padding is identical to slot generation.
func TryReserve(ctx context.Context, tx Tx, cfg scheduling.CalendarConfig, iv scheduling.Interval, excludeID string) error {
	buf := cfg.Buffers()
	reach := buf.Reach()
	window := scheduling.Interval{Start: iv.Start.Add(-reach), End: iv.End.Add(reach)}

	intervals, err := tx.ActiveIntervals(ctx, cfg.ID, window, excludeID)
	if err != nil {
		return fmt.Errorf("load active intervals: %w", err)
	}
	if scheduling.NewIndex(buf, intervals).Blocks(iv) {
		return ErrConflict
	}
	return nil
}
