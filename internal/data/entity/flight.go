package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Flight is reference data owned by the flight catalog.
type Flight struct {
	BaseNoDelete
	FlightNumber  string          `db:"flight_number"`
	Origin        string          `db:"origin"`
	Destination   string          `db:"destination"`
	DepartureTime time.Time       `db:"departure_time"`
	BasePrice     decimal.Decimal `db:"base_price"`
}

// HasDeparted reports whether mutations on the flight's seats are closed.
// cutoff moves the closing point earlier than the actual departure time.
func (f *Flight) HasDeparted(now time.Time, cutoff time.Duration) bool {
	return !now.Before(f.DepartureTime.Add(-cutoff))
}
