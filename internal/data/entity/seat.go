package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SeatClass string

const (
	SeatClassEconomy  SeatClass = "economy"
	SeatClassBusiness SeatClass = "business"
	SeatClassFirst    SeatClass = "first"
)

// Rank orders classes economy < business < first. Unknown classes rank 0.
func (c SeatClass) Rank() int {
	switch c {
	case SeatClassEconomy:
		return 1
	case SeatClassBusiness:
		return 2
	case SeatClassFirst:
		return 3
	default:
		return 0
	}
}

func (c SeatClass) Valid() bool {
	return c.Rank() > 0
}

// Seat is one row of the seat ledger. Version is the optimistic concurrency
// stamp: it starts at 0 and grows by exactly one on every committed claim or
// release. It carries no pricing meaning.
type Seat struct {
	FlightID      uuid.UUID       `db:"flight_id"`
	SeatNumber    string          `db:"seat_number"`
	Class         SeatClass       `db:"class"`
	PriceModifier decimal.Decimal `db:"price_modifier"`
	IsAvailable   bool            `db:"is_available"`
	Version       int64           `db:"version"`
	UpdatedAt     time.Time       `db:"updated_at"`
}
