package repository

import (
	"context"

	"flight-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type Repository struct {
	User     UserRepository
	Session  SessionRepository
	Flight   FlightRepository
	Seat     SeatRepository
	Booking  BookingRepository
	Artifact ArtifactRepository

	// Transactor is nil on a Repository that is already bound to a transaction
	Transactor Transactor
}

// Transactor hands fn a Repository whose members all share one transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *Repository) error) error
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	repo := newRepository(db, log)
	repo.Transactor = &pgxTransactor{db: db, log: log}
	return repo
}

func newRepository(q database.Querier, log *zap.Logger) *Repository {
	return &Repository{
		User:     NewUserRepository(q, log),
		Session:  NewSessionRepository(q, log),
		Flight:   NewFlightRepository(q, log),
		Seat:     NewSeatRepository(q, log),
		Booking:  NewBookingRepository(q, log),
		Artifact: NewArtifactRepository(q, log),
	}
}

// WithinTx runs fn transactionally. Nested calls reuse the outer transaction.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx *Repository) error) error {
	if r.Transactor == nil {
		return fn(r)
	}
	return r.Transactor.WithinTx(ctx, fn)
}

type pgxTransactor struct {
	db  database.PgxIface
	log *zap.Logger
}

func (t *pgxTransactor) WithinTx(ctx context.Context, fn func(tx *Repository) error) error {
	return database.WithTx(ctx, t.db, func(tx pgx.Tx) error {
		return fn(newRepository(tx, t.log))
	})
}
