package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flight-booking/internal/data/entity"
	"flight-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	FindConfirmedBySeat(ctx context.Context, flightID uuid.UUID, seatNumber string) (*entity.Booking, error)

	// Cancel moves a CONFIRMED booking to CANCELLED. It reports false when the
	// booking was not CONFIRMED anymore, leaving the row untouched.
	Cancel(ctx context.Context, id uuid.UUID, replacedBy *uuid.UUID, at time.Time) (bool, error)
}

type bookingRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewBookingRepository(db database.Querier, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, user_id, flight_id, seat_number, status, booking_time, total_price,
		confirmation_code, replaced_by, cancelled_at, updated_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.FlightID,
		&booking.SeatNumber,
		&booking.Status,
		&booking.BookingTime,
		&booking.TotalPrice,
		&booking.ConfirmationCode,
		&booking.ReplacedBy,
		&booking.CancelledAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, user_id, flight_id, seat_number, status, booking_time, total_price,
		                      confirmation_code, replaced_by, cancelled_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (confirmation_code) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.UserID,
		booking.FlightID,
		booking.SeatNumber,
		booking.Status,
		booking.BookingTime,
		booking.TotalPrice,
		booking.ConfirmationCode,
		booking.ReplacedBy,
		booking.CancelledAt,
		booking.UpdatedAt,
	)

	if constraint, ok := uniqueConstraint(err); ok && constraint == constraintConfirmedPerSeat {
		r.log.Error("Confirmed booking already exists for seat",
			zap.String("flight_id", booking.FlightID.String()),
			zap.String("seat_number", booking.SeatNumber),
		)
		return ErrSeatAlreadyBooked
	}
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("user_id", booking.UserID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.ID, err)
	}

	// ON CONFLICT swallowed a confirmation code collision
	if result.RowsAffected() == 0 {
		return ErrDuplicateConfirmationCode
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id, err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY booking_time DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find bookings by user ID %s: %w", userID, err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}

	return bookings, nil
}

func (r *bookingRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE user_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return 0, fmt.Errorf("count bookings by user ID %s: %w", userID, err)
	}

	return count, nil
}

func (r *bookingRepository) FindConfirmedBySeat(ctx context.Context, flightID uuid.UUID, seatNumber string) (*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE flight_id = $1 AND seat_number = $2 AND status = 'CONFIRMED'
	`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, flightID, seatNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find confirmed booking by seat",
			zap.Error(err),
			zap.String("flight_id", flightID.String()),
			zap.String("seat_number", seatNumber),
		)
		return nil, fmt.Errorf("find confirmed booking for seat %s: %w", seatNumber, err)
	}

	return booking, nil
}

func (r *bookingRepository) Cancel(ctx context.Context, id uuid.UUID, replacedBy *uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'CANCELLED', replaced_by = $2, cancelled_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'CONFIRMED'
	`

	result, err := r.db.Exec(ctx, query, id, replacedBy, at)
	if err != nil {
		r.log.Error("Failed to cancel booking",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return false, fmt.Errorf("cancel booking %s: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}
