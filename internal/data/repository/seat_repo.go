package repository

import (
	"context"
	"errors"
	"fmt"

	"flight-booking/internal/data/entity"
	"flight-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type SeatRepository interface {
	CreateBatch(ctx context.Context, seats []*entity.Seat) error
	FindByFlightID(ctx context.Context, flightID uuid.UUID) ([]*entity.Seat, error)
	Find(ctx context.Context, flightID uuid.UUID, seatNumber string) (*entity.Seat, error)

	// CompareAndSetAvailability flips is_available to the requested value and
	// bumps the version, but only if the row is still at expectedVersion and
	// not already in the requested state. ok is false when no row matched.
	CompareAndSetAvailability(ctx context.Context, flightID uuid.UUID, seatNumber string, expectedVersion int64, available bool) (newVersion int64, ok bool, err error)
}

type seatRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewSeatRepository(db database.Querier, log *zap.Logger) SeatRepository {
	return &seatRepository{
		db:  db,
		log: log.With(zap.String("repository", "seat")),
	}
}

func (r *seatRepository) CreateBatch(ctx context.Context, seats []*entity.Seat) error {
	if len(seats) == 0 {
		return nil
	}

	// Build batch insert
	query := `INSERT INTO seats (flight_id, seat_number, class, price_modifier, is_available, version, updated_at) VALUES `
	args := make([]any, 0, len(seats)*7)

	for i, seat := range seats {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			i*7+1, i*7+2, i*7+3, i*7+4, i*7+5, i*7+6, i*7+7)

		args = append(args,
			seat.FlightID,
			seat.SeatNumber,
			seat.Class,
			seat.PriceModifier,
			seat.IsAvailable,
			seat.Version,
			seat.UpdatedAt,
		)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		r.log.Error("Failed to create batch seats",
			zap.Error(err),
			zap.Int("count", len(seats)),
		)
		return fmt.Errorf("create batch seats: %w", err)
	}

	return nil
}

func (r *seatRepository) FindByFlightID(ctx context.Context, flightID uuid.UUID) ([]*entity.Seat, error) {
	query := `
		SELECT flight_id, seat_number, class, price_modifier, is_available, version, updated_at
		FROM seats
		WHERE flight_id = $1
		ORDER BY seat_number
	`

	rows, err := r.db.Query(ctx, query, flightID)
	if err != nil {
		r.log.Error("Failed to find seats by flight ID",
			zap.Error(err),
			zap.String("flight_id", flightID.String()),
		)
		return nil, fmt.Errorf("find seats by flight %s: %w", flightID, err)
	}
	defer rows.Close()

	var seats []*entity.Seat
	for rows.Next() {
		var seat entity.Seat
		if err := rows.Scan(
			&seat.FlightID,
			&seat.SeatNumber,
			&seat.Class,
			&seat.PriceModifier,
			&seat.IsAvailable,
			&seat.Version,
			&seat.UpdatedAt,
		); err != nil {
			r.log.Error("Failed to scan seat row", zap.Error(err))
			return nil, fmt.Errorf("scan seat row: %w", err)
		}
		seats = append(seats, &seat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seat rows: %w", err)
	}

	return seats, nil
}

func (r *seatRepository) Find(ctx context.Context, flightID uuid.UUID, seatNumber string) (*entity.Seat, error) {
	query := `
		SELECT flight_id, seat_number, class, price_modifier, is_available, version, updated_at
		FROM seats
		WHERE flight_id = $1 AND seat_number = $2
	`

	var seat entity.Seat
	err := r.db.QueryRow(ctx, query, flightID, seatNumber).Scan(
		&seat.FlightID,
		&seat.SeatNumber,
		&seat.Class,
		&seat.PriceModifier,
		&seat.IsAvailable,
		&seat.Version,
		&seat.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find seat",
			zap.Error(err),
			zap.String("flight_id", flightID.String()),
			zap.String("seat_number", seatNumber),
		)
		return nil, fmt.Errorf("find seat %s on flight %s: %w", seatNumber, flightID, err)
	}

	return &seat, nil
}

func (r *seatRepository) CompareAndSetAvailability(ctx context.Context, flightID uuid.UUID, seatNumber string, expectedVersion int64, available bool) (int64, bool, error) {
	query := `
		UPDATE seats
		SET is_available = $4, version = version + 1, updated_at = NOW()
		WHERE flight_id = $1 AND seat_number = $2 AND version = $3 AND is_available <> $4
		RETURNING version
	`

	var newVersion int64
	err := r.db.QueryRow(ctx, query, flightID, seatNumber, expectedVersion, available).Scan(&newVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		r.log.Error("Failed to compare-and-set seat availability",
			zap.Error(err),
			zap.String("flight_id", flightID.String()),
			zap.String("seat_number", seatNumber),
			zap.Int64("expected_version", expectedVersion),
			zap.Bool("available", available),
		)
		return 0, false, fmt.Errorf("update seat %s on flight %s: %w", seatNumber, flightID, err)
	}

	return newVersion, true, nil
}
