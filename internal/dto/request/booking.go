package request

type CreateBookingRequest struct {
	FlightID     string `json:"flight_id" validate:"required,uuid4"`
	SeatNumber   string `json:"seat_number" validate:"required,alphanum,max=4"`
	PaymentToken string `json:"payment_token,omitempty" validate:"omitempty,max=255"`
}

type ModifySeatRequest struct {
	SeatNumber string `json:"seat_number" validate:"required,alphanum,max=4"`
}
