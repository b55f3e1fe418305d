package request

import "time"

type CreateFlightRequest struct {
	FlightNumber  string              `json:"flight_number" validate:"required,alphanum,min=3,max=8"`
	Origin        string              `json:"origin" validate:"required,len=3,alpha"`
	Destination   string              `json:"destination" validate:"required,len=3,alpha,nefield=Origin"`
	DepartureTime time.Time           `json:"departure_time" validate:"required"`
	BasePrice     string              `json:"base_price" validate:"required,numeric"`
	Seats         []CreateSeatRequest `json:"seats" validate:"required,min=1,max=1000,dive"`
}

type CreateSeatRequest struct {
	SeatNumber    string `json:"seat_number" validate:"required,alphanum,max=4"`
	Class         string `json:"class" validate:"required,oneof=economy business first"`
	PriceModifier string `json:"price_modifier" validate:"required,numeric"`
}
