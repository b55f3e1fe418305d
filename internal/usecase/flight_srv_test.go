package usecase

import (
	"context"
	"testing"
	"time"

	"flight-booking/internal/dto/request"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flightReq(departure time.Time, seats ...request.CreateSeatRequest) *request.CreateFlightRequest {
	return &request.CreateFlightRequest{
		FlightNumber:  "ga402",
		Origin:        "CGK",
		Destination:   "DPS",
		DepartureTime: departure,
		BasePrice:     "120.50",
		Seats:         seats,
	}
}

func TestCreateFlight_SeedsLedger(t *testing.T) {
	h := newHarness(t, nil)

	resp, err := h.service.Flight.CreateFlight(context.Background(), flightReq(h.clock.Now().Add(24*time.Hour),
		request.CreateSeatRequest{SeatNumber: "1a", Class: "first", PriceModifier: "3"},
		request.CreateSeatRequest{SeatNumber: "20F", Class: "economy", PriceModifier: "1"},
	))
	require.NoError(t, err)
	assert.Equal(t, "GA402", resp.FlightNumber)
	assert.Equal(t, 2, resp.TotalSeats)

	seatMap, err := h.service.Flight.GetSeatMap(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, seatMap.Available)
	require.Len(t, seatMap.Seats, 2)
	for _, s := range seatMap.Seats {
		assert.True(t, s.IsAvailable)
		assert.Zero(t, s.Version)
	}
	assert.Equal(t, "1A", seatMap.Seats[0].SeatNumber)

	// the new flight is bookable straight away
	booking, err := h.service.Booking.CreateBooking(context.Background(), uuid.New(),
		&request.CreateBookingRequest{FlightID: resp.ID, SeatNumber: "1A"})
	require.NoError(t, err)
	assert.Equal(t, "361.5", booking.TotalPrice.String())
}

func TestCreateFlight_Validation(t *testing.T) {
	h := newHarness(t, nil)
	seat := request.CreateSeatRequest{SeatNumber: "1A", Class: "economy", PriceModifier: "1"}

	tests := map[string]*request.CreateFlightRequest{
		"past departure":  flightReq(h.clock.Now().Add(-time.Hour), seat),
		"no seats":        flightReq(h.clock.Now().Add(time.Hour)),
		"duplicate seats": flightReq(h.clock.Now().Add(time.Hour), seat, seat),
		"bad class": flightReq(h.clock.Now().Add(time.Hour),
			request.CreateSeatRequest{SeatNumber: "1A", Class: "premium", PriceModifier: "1"}),
	}

	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := h.service.Flight.CreateFlight(context.Background(), req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestGetSeatMap_UnknownFlight(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.service.Flight.GetSeatMap(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrFlightNotFound)

	_, err = h.service.Flight.GetSeatMap(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrValidation)
}
