// Package repository is the Postgres implementation of the booking store,
// the calendar source and the contact directory.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"booking-engine/internal/booking"
)

const defaultLockTimeout = 5 * time.Second

// contactForeignKey is the default name Postgres gives bookings.contact_id's reference.
const contactForeignKey = "bookings_contact_id_fkey"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Postgres struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// New wraps pool. lockTimeout bounds how long a writer waits for a calendar lock.
func New(pool *pgxpool.Pool, lockTimeout time.Duration) *Postgres {
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	return &Postgres{pool: pool, lockTimeout: lockTimeout}
}

// Postgres error codes the booking engine treats specially.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
	codeExclusionViolation   = "23P01"
	codeForeignKeyViolation  = "23503"
	codeInvalidText          = "22P02"
)

// classify maps driver errors onto the booking error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, booking.ErrConflict) || errors.Is(err, booking.ErrNotFound) || errors.Is(err, booking.ErrTransient) {
		return err
	}
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return booking.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%w: %w", booking.ErrTransient, err)
		case codeQueryCanceled:
			// lock_timeout reports 55P03; statement_timeout while waiting on the lock lands here.
			if pgErr.Message == "canceling statement due to lock timeout" {
				return fmt.Errorf("%w: %w", booking.ErrTransient, err)
			}
		case codeExclusionViolation:
			return fmt.Errorf("%w: %w", booking.ErrConflict, err)
		case codeForeignKeyViolation:
			if pgErr.ConstraintName == contactForeignKey {
				return booking.Invalid("contact_id", "contact does not exist")
			}
		case codeInvalidText:
			return booking.ErrNotFound
		}
	}
	return err
}

// validID reports whether id can name a uuid row; malformed ids never resolve.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
