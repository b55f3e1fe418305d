package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	BookingConfirmed   = "booking.confirmed"
	BookingCancelled   = "booking.cancelled"
	BookingSeatChanged = "booking.seat_changed"
	OpsInconsistency   = "ops.inconsistency"
)

// Publisher delivers lifecycle events. Delivery is best-effort: callers log
// failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

type BookingEvent struct {
	BookingID         uuid.UUID       `json:"booking_id"`
	UserID            uuid.UUID       `json:"user_id"`
	FlightID          uuid.UUID       `json:"flight_id"`
	SeatNumber        string          `json:"seat_number"`
	ConfirmationCode  string          `json:"confirmation_code"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	PreviousBookingID *uuid.UUID      `json:"previous_booking_id,omitempty"`
	PreviousSeat      string          `json:"previous_seat,omitempty"`
	OccurredAt        time.Time       `json:"occurred_at"`
}

// InconsistencyEvent describes a ledger/booking pair that compensation could
// not bring back in sync. An operator has to reconcile it by hand.
type InconsistencyEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	FlightID   uuid.UUID `json:"flight_id"`
	SeatNumber string    `json:"seat_number"`
	Operation  string    `json:"operation"`
	Reason     string    `json:"reason"`
	DetectedAt time.Time `json:"detected_at"`
}

type noopPublisher struct{}

// NewNoopPublisher drops every event.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }

func (noopPublisher) Close() error { return nil }
