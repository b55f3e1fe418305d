package usecase

import (
	"context"

	"flight-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Pricer computes the price frozen into a booking at creation time.
type Pricer interface {
	Price(flight *entity.Flight, seat *entity.Seat) decimal.Decimal
}

type PricerFunc func(flight *entity.Flight, seat *entity.Seat) decimal.Decimal

func (f PricerFunc) Price(flight *entity.Flight, seat *entity.Seat) decimal.Decimal {
	return f(flight, seat)
}

// BasePricer charges the flight base price times the seat's modifier.
var BasePricer = PricerFunc(func(flight *entity.Flight, seat *entity.Seat) decimal.Decimal {
	return flight.BasePrice.Mul(seat.PriceModifier).Round(2)
})

// PaymentValidator is the external payment check run before a seat is
// claimed. It only answers yes or no.
type PaymentValidator interface {
	Validate(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, token string) (bool, error)
}

type PaymentValidatorFunc func(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, token string) (bool, error)

func (f PaymentValidatorFunc) Validate(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, token string) (bool, error) {
	return f(ctx, userID, amount, token)
}

var AcceptAllPayments = PaymentValidatorFunc(func(context.Context, uuid.UUID, decimal.Decimal, string) (bool, error) {
	return true, nil
})
