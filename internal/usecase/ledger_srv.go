package usecase

import (
	"context"
	"fmt"

	"flight-booking/internal/data/entity"
	"flight-booking/internal/data/repository"
	"flight-booking/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SeatLedger is the authoritative availability record per seat. Claims and
// releases are compare-and-swap on the seat version; there is no lock held
// between reading a version and using it.
type SeatLedger interface {
	GetSeats(ctx context.Context, flightID uuid.UUID) ([]*entity.Seat, error)

	// TryClaim marks the seat unavailable if it is still at expectedVersion.
	// Errors: ErrConflict, ErrSeatNotAvailable, ErrSeatNotFound.
	TryClaim(ctx context.Context, flightID uuid.UUID, seatNumber string, expectedVersion int64) (int64, error)

	// Release marks the seat available if it is still at expectedVersion.
	// Errors: ErrConflict, ErrSeatNotHeld, ErrSeatNotFound.
	Release(ctx context.Context, flightID uuid.UUID, seatNumber string, expectedVersion int64) (int64, error)
}

type seatLedger struct {
	seats repository.SeatRepository
	log   *zap.Logger
}

func NewSeatLedger(seats repository.SeatRepository, log *zap.Logger) SeatLedger {
	return &seatLedger{
		seats: seats,
		log:   log.With(zap.String("service", "seat_ledger")),
	}
}

func (l *seatLedger) GetSeats(ctx context.Context, flightID uuid.UUID) ([]*entity.Seat, error) {
	seats, err := l.seats.FindByFlightID(ctx, flightID)
	if err != nil {
		return nil, fmt.Errorf("get seats for flight %s: %w", flightID, err)
	}
	return seats, nil
}

func (l *seatLedger) TryClaim(ctx context.Context, flightID uuid.UUID, seatNumber string, expectedVersion int64) (int64, error) {
	version, err := l.swap(ctx, flightID, seatNumber, expectedVersion, false)
	switch {
	case err == nil:
		metrics.RecordClaim("claimed")
	case err == ErrConflict:
		metrics.RecordClaim("conflict")
	case err == ErrSeatNotAvailable:
		metrics.RecordClaim("unavailable")
	}
	return version, err
}

func (l *seatLedger) Release(ctx context.Context, flightID uuid.UUID, seatNumber string, expectedVersion int64) (int64, error) {
	return l.swap(ctx, flightID, seatNumber, expectedVersion, true)
}

func (l *seatLedger) swap(ctx context.Context, flightID uuid.UUID, seatNumber string, expectedVersion int64, available bool) (int64, error) {
	version, ok, err := l.seats.CompareAndSetAvailability(ctx, flightID, seatNumber, expectedVersion, available)
	if err != nil {
		return 0, fmt.Errorf("swap seat %s: %w", seatNumber, err)
	}
	if ok {
		l.log.Debug("Seat availability changed",
			zap.String("flight_id", flightID.String()),
			zap.String("seat_number", seatNumber),
			zap.Bool("available", available),
			zap.Int64("version", version),
		)
		return version, nil
	}

	// No row matched; look again to tell the caller why.
	seat, err := l.seats.Find(ctx, flightID, seatNumber)
	if err != nil {
		return 0, fmt.Errorf("classify seat %s: %w", seatNumber, err)
	}
	if seat == nil {
		return 0, ErrSeatNotFound
	}
	if seat.Version != expectedVersion {
		return 0, ErrConflict
	}
	if available {
		return 0, ErrSeatNotHeld
	}
	return 0, ErrSeatNotAvailable
}
