package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type Booking struct {
	ID               uuid.UUID       `db:"id"`
	UserID           uuid.UUID       `db:"user_id"`
	FlightID         uuid.UUID       `db:"flight_id"`
	SeatNumber       string          `db:"seat_number"`
	Status           BookingStatus   `db:"status"`
	BookingTime      time.Time       `db:"booking_time"`
	TotalPrice       decimal.Decimal `db:"total_price"`
	ConfirmationCode string          `db:"confirmation_code"`
	ReplacedBy       *uuid.UUID      `db:"replaced_by"`
	CancelledAt      *time.Time      `db:"cancelled_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed
}
