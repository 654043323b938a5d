package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"booking-engine/internal/booking"
	"booking-engine/internal/scheduling"
)

var bookingFields = []string{
	"id::text", "organization_id::text", "calendar_id::text", "contact_id::text",
	"start_time", "end_time", "timezone", "status", "source",
	"attendee_name", "attendee_email", "notes",
	"cancellation_token_hash", "cancellation_reason", "cancelled_at",
	"created_at", "updated_at",
}

// bookingColumns renders the select list, qualified by alias when given.
func bookingColumns(alias string) string {
	if alias == "" {
		return strings.Join(bookingFields, ", ")
	}
	cols := make([]string, len(bookingFields))
	for i, f := range bookingFields {
		cols[i] = alias + "." + f
	}
	return strings.Join(cols, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (booking.Booking, error) {
	var (
		b              booking.Booking
		status, source string
	)
	err := row.Scan(
		&b.ID, &b.OrganizationID, &b.CalendarID, &b.ContactID,
		&b.StartTime, &b.EndTime, &b.Timezone, &status, &source,
		&b.AttendeeName, &b.AttendeeEmail, &b.Notes,
		&b.TokenHash, &b.CancellationReason, &b.CancelledAt,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return booking.Booking{}, err
	}
	b.Status = booking.Status(status)
	b.Source = booking.Source(source)
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
	if b.CancelledAt != nil {
		t := b.CancelledAt.UTC()
		b.CancelledAt = &t
	}
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]booking.Booking, error) {
	defer rows.Close()
	var out []booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func statusStrings(statuses []booking.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// WithCalendarLock opens a transaction and takes a transaction-scoped
// advisory lock keyed by the calendar id. Every create and reschedule on the
// calendar serialises on that lock; the exclusion constraint on bookings is
// the backstop if a writer ever bypasses it.
func (p *Postgres) WithCalendarLock(ctx context.Context, calendarID string, fn func(tx booking.Tx) error) error {
	if !validID(calendarID) {
		return booking.ErrNotFound
	}
	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		timeout := fmt.Sprintf("%dms", p.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, calendarID); err != nil {
			return fmt.Errorf("lock calendar %s: %w", calendarID, err)
		}
		return fn(&pgTx{tx: tx})
	})
	return classify(err)
}

func (p *Postgres) Booking(ctx context.Context, id string) (booking.Booking, error) {
	return getBooking(ctx, p.pool, id, false)
}

func getBooking(ctx context.Context, q querier, id string, forUpdate bool) (booking.Booking, error) {
	if !validID(id) {
		return booking.Booking{}, booking.ErrNotFound
	}
	sql := `SELECT ` + bookingColumns("") + ` FROM bookings WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	b, err := scanBooking(q.QueryRow(ctx, sql, id))
	if err != nil {
		return booking.Booking{}, classify(err)
	}
	return b, nil
}

func (p *Postgres) BookingByToken(ctx context.Context, calendarSlug, tokenHash string) (booking.Booking, error) {
	q := `SELECT ` + bookingColumns("b") + `
	      FROM bookings b
	      JOIN calendars c ON c.id = b.calendar_id
	      WHERE c.slug = $1 AND c.is_active AND b.cancellation_token_hash = $2`
	b, err := scanBooking(p.pool.QueryRow(ctx, q, calendarSlug, tokenHash))
	if err != nil {
		return booking.Booking{}, classify(err)
	}
	return b, nil
}

func (p *Postgres) ListBookings(ctx context.Context, lq booking.ListQuery) ([]booking.Booking, error) {
	if !validID(lq.CalendarID) {
		return nil, nil
	}
	var from, to *time.Time
	if !lq.From.IsZero() {
		from = &lq.From
	}
	if !lq.To.IsZero() {
		to = &lq.To
	}
	q := `SELECT ` + bookingColumns("") + `
	      FROM bookings
	      WHERE calendar_id = $1
	        AND ($2::timestamptz IS NULL OR start_time >= $2::timestamptz)
	        AND ($3::timestamptz IS NULL OR start_time < $3::timestamptz)
	      ORDER BY start_time`
	rows, err := p.pool.Query(ctx, q, lq.CalendarID, from, to)
	if err != nil {
		return nil, classify(err)
	}
	out, err := collectBookings(rows)
	return out, classify(err)
}

func (p *Postgres) ActiveIntervals(ctx context.Context, calendarID string, window scheduling.Interval) ([]scheduling.Interval, error) {
	return activeIntervals(ctx, p.pool, calendarID, window, "")
}

// activeIntervals uses the same half-open predicate as the booking guard:
// start < window.End AND end > window.Start.
func activeIntervals(ctx context.Context, q querier, calendarID string, window scheduling.Interval, excludeID string) ([]scheduling.Interval, error) {
	if !validID(calendarID) {
		return nil, nil
	}
	sql := `SELECT start_time, end_time
	        FROM bookings
	        WHERE calendar_id = $1
	          AND status = ANY($2)
	          AND start_time < $4
	          AND end_time > $3
	          AND ($5::text = '' OR id::text <> $5::text)
	        ORDER BY start_time`
	rows, err := q.Query(ctx, sql, calendarID, statusStrings(booking.ActiveStatuses), window.Start, window.End, excludeID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []scheduling.Interval
	for rows.Next() {
		var iv scheduling.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, classify(err)
		}
		out = append(out, iv.UTC())
	}
	return out, classify(rows.Err())
}

func (p *Postgres) SetStatus(ctx context.Context, id string, from []booking.Status, to booking.Status, reason string, at time.Time) (booking.Booking, error) {
	if !validID(id) {
		return booking.Booking{}, booking.ErrNotFound
	}
	q := `UPDATE bookings
	      SET status = $3::text,
	          updated_at = $5::timestamptz,
	          cancellation_reason = CASE WHEN $3::text = 'cancelled' THEN $4::text ELSE cancellation_reason END,
	          cancelled_at = CASE WHEN $3::text = 'cancelled' THEN $5::timestamptz ELSE cancelled_at END
	      WHERE id = $1 AND status = ANY($2)
	      RETURNING ` + bookingColumns("")
	b, err := scanBooking(p.pool.QueryRow(ctx, q, id, statusStrings(from), string(to), reason, at))
	if err != nil {
		return booking.Booking{}, classify(err)
	}
	return b, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) ActiveIntervals(ctx context.Context, calendarID string, window scheduling.Interval, excludeID string) ([]scheduling.Interval, error) {
	return activeIntervals(ctx, t.tx, calendarID, window, excludeID)
}

func (t *pgTx) Booking(ctx context.Context, id string) (booking.Booking, error) {
	return getBooking(ctx, t.tx, id, true)
}

func (t *pgTx) Insert(ctx context.Context, b *booking.Booking) error {
	q := `INSERT INTO bookings
	      (id, organization_id, calendar_id, contact_id, start_time, end_time, timezone, status, source,
	       attendee_name, attendee_email, notes, cancellation_token_hash, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	_, err := t.tx.Exec(ctx, q,
		b.ID, b.OrganizationID, b.CalendarID, b.ContactID,
		b.StartTime, b.EndTime, b.Timezone, string(b.Status), string(b.Source),
		b.AttendeeName, b.AttendeeEmail, b.Notes, b.TokenHash, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", classify(err))
	}
	return nil
}

func (t *pgTx) UpdateInterval(ctx context.Context, id string, iv scheduling.Interval, timezone string, at time.Time) (booking.Booking, error) {
	q := `UPDATE bookings
	      SET start_time = $2, end_time = $3, timezone = $4, updated_at = $5
	      WHERE id = $1
	      RETURNING ` + bookingColumns("")
	b, err := scanBooking(t.tx.QueryRow(ctx, q, id, iv.Start, iv.End, timezone, at))
	if err != nil {
		return booking.Booking{}, fmt.Errorf("update booking interval: %w", classify(err))
	}
	return b, nil
}
