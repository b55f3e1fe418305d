package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSeatLedger_ClaimAndRelease(t *testing.T) {
	store := newMemStore()
	flightID := uuid.New()
	store.addSeat(flightID, "12A", 0, true)
	ledger := NewSeatLedger(memSeats{store}, zap.NewNop())
	ctx := context.Background()

	v, err := ledger.TryClaim(ctx, flightID, "12A", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = ledger.TryClaim(ctx, flightID, "12A", 0)
	assert.ErrorIs(t, err, ErrConflict, "stale version")

	_, err = ledger.TryClaim(ctx, flightID, "12A", 1)
	assert.ErrorIs(t, err, ErrSeatNotAvailable, "current version but already held")

	v, err = ledger.Release(ctx, flightID, "12A", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	_, err = ledger.Release(ctx, flightID, "12A", 2)
	assert.ErrorIs(t, err, ErrSeatNotHeld)

	_, err = ledger.TryClaim(ctx, flightID, "99Z", 0)
	assert.ErrorIs(t, err, ErrSeatNotFound)
}

func TestSeatLedger_VersionOnlyGrows(t *testing.T) {
	store := newMemStore()
	flightID := uuid.New()
	store.addSeat(flightID, "1A", 0, true)
	ledger := NewSeatLedger(memSeats{store}, zap.NewNop())
	ctx := context.Background()

	var last int64
	for i := 0; i < 6; i++ {
		seat := store.seat(flightID, "1A")
		var (
			v   int64
			err error
		)
		if seat.IsAvailable {
			v, err = ledger.TryClaim(ctx, flightID, "1A", seat.Version)
		} else {
			v, err = ledger.Release(ctx, flightID, "1A", seat.Version)
		}
		require.NoError(t, err)
		assert.Equal(t, last+1, v)
		last = v
	}
}

func TestSeatLedger_GetSeatsOrdered(t *testing.T) {
	store := newMemStore()
	flightID := uuid.New()
	store.addSeat(flightID, "2B", 0, true)
	store.addSeat(flightID, "1A", 3, false)
	store.addSeat(uuid.New(), "1C", 0, true)

	seats, err := NewSeatLedger(memSeats{store}, zap.NewNop()).GetSeats(context.Background(), flightID)
	require.NoError(t, err)
	require.Len(t, seats, 2)
	assert.Equal(t, "1A", seats[0].SeatNumber)
	assert.Equal(t, int64(3), seats[0].Version)
	assert.Equal(t, "2B", seats[1].SeatNumber)
}
