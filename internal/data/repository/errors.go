// Package repository holds the pgx-backed stores for flights, the seat
// ledger, bookings and invoice artifacts.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateConfirmationCode is returned when a freshly generated
// confirmation code collides with an existing one. Callers retry with a new code.
var ErrDuplicateConfirmationCode = errors.New("duplicate confirmation code")

// ErrSeatAlreadyBooked is returned when the one-confirmed-booking-per-seat
// index rejects an insert.
var ErrSeatAlreadyBooked = errors.New("seat already has a confirmed booking")

const (
	uniqueViolation = "23505"

	constraintConfirmedPerSeat = "bookings_one_confirmed_per_seat"
)

func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
