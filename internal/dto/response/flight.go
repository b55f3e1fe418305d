package response

import (
	"time"

	"flight-booking/internal/data/entity"

	"github.com/shopspring/decimal"
)

type FlightResponse struct {
	ID            string          `json:"id"`
	FlightNumber  string          `json:"flight_number"`
	Origin        string          `json:"origin"`
	Destination   string          `json:"destination"`
	DepartureTime time.Time       `json:"departure_time"`
	BasePrice     decimal.Decimal `json:"base_price"`
	TotalSeats    int             `json:"total_seats,omitempty"`
}

type SeatResponse struct {
	SeatNumber    string           `json:"seat_number"`
	Class         entity.SeatClass `json:"class"`
	PriceModifier decimal.Decimal  `json:"price_modifier"`
	IsAvailable   bool             `json:"is_available"`
	Version       int64            `json:"version"`
}

type SeatMapResponse struct {
	FlightID  string         `json:"flight_id"`
	Available int            `json:"available"`
	Seats     []SeatResponse `json:"seats"`
}

func FlightToResponse(f *entity.Flight, totalSeats int) FlightResponse {
	return FlightResponse{
		ID:            f.ID.String(),
		FlightNumber:  f.FlightNumber,
		Origin:        f.Origin,
		Destination:   f.Destination,
		DepartureTime: f.DepartureTime,
		BasePrice:     f.BasePrice,
		TotalSeats:    totalSeats,
	}
}

func SeatToResponse(s *entity.Seat) SeatResponse {
	return SeatResponse{
		SeatNumber:    s.SeatNumber,
		Class:         s.Class,
		PriceModifier: s.PriceModifier,
		IsAvailable:   s.IsAvailable,
		Version:       s.Version,
	}
}
