package response

import (
	"time"

	"flight-booking/internal/data/entity"

	"github.com/shopspring/decimal"
)

type BookingResponse struct {
	ID               string               `json:"id"`
	ConfirmationCode string               `json:"confirmation_code"`
	UserID           string               `json:"user_id"`
	FlightID         string               `json:"flight_id"`
	SeatNumber       string               `json:"seat_number"`
	Status           entity.BookingStatus `json:"status"`
	TotalPrice       decimal.Decimal      `json:"total_price"`
	BookingTime      time.Time            `json:"booking_time"`
	ReplacedBy       *string              `json:"replaced_by,omitempty"`
	CancelledAt      *time.Time           `json:"cancelled_at,omitempty"`
}

func BookingToResponse(b *entity.Booking) BookingResponse {
	resp := BookingResponse{
		ID:               b.ID.String(),
		ConfirmationCode: b.ConfirmationCode,
		UserID:           b.UserID.String(),
		FlightID:         b.FlightID.String(),
		SeatNumber:       b.SeatNumber,
		Status:           b.Status,
		TotalPrice:       b.TotalPrice,
		BookingTime:      b.BookingTime,
		CancelledAt:      b.CancelledAt,
	}
	if b.ReplacedBy != nil {
		id := b.ReplacedBy.String()
		resp.ReplacedBy = &id
	}
	return resp
}
