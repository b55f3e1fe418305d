package artifact

import (
	"bytes"
	"context"
	"testing"
	"time"

	"flight-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoiceData() InvoiceData {
	booked := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	flightID := uuid.MustParse("3f0a1c52-7c1e-4d8a-9b55-0f8a2b1d9e01")
	return InvoiceData{
		Booking: &entity.Booking{
			ID:               uuid.MustParse("a4b7c2d1-5e6f-4a8b-9c0d-1e2f3a4b5c6d"),
			UserID:           uuid.New(),
			FlightID:         flightID,
			SeatNumber:       "12A",
			Status:           entity.BookingStatusConfirmed,
			BookingTime:      booked,
			TotalPrice:       decimal.RequireFromString("150"),
			ConfirmationCode: "K7Q2ZP",
		},
		Flight: &entity.Flight{
			FlightNumber:  "GA402",
			Origin:        "CGK",
			Destination:   "DPS",
			DepartureTime: booked.Add(48 * time.Hour),
		},
		Seat:      &entity.Seat{FlightID: flightID, SeatNumber: "12A", Class: entity.SeatClassEconomy},
		Passenger: "rina",
	}
}

func TestPDFRenderer_Render(t *testing.T) {
	r := NewPDFRenderer("Skyline Air")

	first, err := r.Render(context.Background(), invoiceData())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(first, []byte("%PDF-")))

	second, err := r.Render(context.Background(), invoiceData())
	require.NoError(t, err)
	assert.Equal(t, Checksum(first), Checksum(second), "same booking renders identical bytes")
}

func TestPDFRenderer_Errors(t *testing.T) {
	r := NewPDFRenderer("Skyline Air")

	_, err := r.Render(context.Background(), InvoiceData{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Render(ctx, invoiceData())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChecksum(t *testing.T) {
	sum := Checksum([]byte("invoice"))
	assert.Len(t, sum, 64)
	assert.Equal(t, sum, Checksum([]byte("invoice")))
	assert.NotEqual(t, sum, Checksum([]byte("invoice!")))
}
