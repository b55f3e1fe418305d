package usecase

import (
	"context"
	"fmt"

	"flight-booking/internal/data/entity"
	"flight-booking/internal/data/repository"
	"flight-booking/internal/dto/request"
	"flight-booking/internal/dto/response"
	"flight-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type FlightService interface {
	// Admin
	CreateFlight(ctx context.Context, req *request.CreateFlightRequest) (*response.FlightResponse, error)

	// Public
	GetSeatMap(ctx context.Context, flightID string) (*response.SeatMapResponse, error)
}

type flightService struct {
	repo   *repository.Repository
	ledger SeatLedger
	deps   Dependencies
	log    *zap.Logger
}

func NewFlightService(repo *repository.Repository, deps Dependencies, log *zap.Logger) FlightService {
	return &flightService{
		repo:   repo,
		ledger: NewSeatLedger(repo.Seat, log),
		deps:   deps,
		log:    log.With(zap.String("service", "flight")),
	}
}

// CreateFlight stores the flight with its full seat map. Every seat starts
// available at version 0.
func (s *flightService) CreateFlight(ctx context.Context, req *request.CreateFlightRequest) (*response.FlightResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create flight validation failed", zap.Any("errors", errs))
		return nil, &ValidationError{Fields: errs}
	}

	now := s.deps.Clock()
	if !req.DepartureTime.After(now) {
		return nil, validationError("departure_time", "Departure must be in the future")
	}

	basePrice, err := decimal.NewFromString(req.BasePrice)
	if err != nil || basePrice.IsNegative() {
		return nil, validationError("base_price", "Invalid base price")
	}

	flight := &entity.Flight{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		FlightNumber:  normalizeCode(req.FlightNumber),
		Origin:        normalizeCode(req.Origin),
		Destination:   normalizeCode(req.Destination),
		DepartureTime: req.DepartureTime,
		BasePrice:     basePrice.Round(2),
	}

	seen := make(map[string]bool, len(req.Seats))
	seats := make([]*entity.Seat, 0, len(req.Seats))
	for _, sr := range req.Seats {
		number := normalizeCode(sr.SeatNumber)
		if seen[number] {
			return nil, validationError("seats", fmt.Sprintf("Duplicate seat %s", number))
		}
		seen[number] = true

		modifier, err := decimal.NewFromString(sr.PriceModifier)
		if err != nil || modifier.IsNegative() {
			return nil, validationError("seats", fmt.Sprintf("Invalid price modifier for seat %s", number))
		}

		seats = append(seats, &entity.Seat{
			FlightID:      flight.ID,
			SeatNumber:    number,
			Class:         entity.SeatClass(sr.Class),
			PriceModifier: modifier,
			IsAvailable:   true,
			Version:       0,
			UpdatedAt:     now,
		})
	}

	err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		if err := tx.Flight.Create(ctx, flight); err != nil {
			return err
		}
		return tx.Seat.CreateBatch(ctx, seats)
	})
	if err != nil {
		return nil, fmt.Errorf("create flight %s: %w", flight.FlightNumber, err)
	}

	s.log.Info("Flight created",
		zap.String("flight_id", flight.ID.String()),
		zap.String("flight_number", flight.FlightNumber),
		zap.Int("seats", len(seats)),
	)

	resp := response.FlightToResponse(flight, len(seats))
	return &resp, nil
}

func (s *flightService) GetSeatMap(ctx context.Context, flightID string) (*response.SeatMapResponse, error) {
	id, err := uuid.Parse(flightID)
	if err != nil {
		return nil, validationError("flight_id", "Invalid flight ID")
	}

	flight, err := s.repo.Flight.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load flight %s: %w", id, err)
	}
	if flight == nil {
		return nil, ErrFlightNotFound
	}

	seats, err := s.ledger.GetSeats(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &response.SeatMapResponse{
		FlightID: id.String(),
		Seats:    make([]response.SeatResponse, 0, len(seats)),
	}
	for _, seat := range seats {
		if seat.IsAvailable {
			resp.Available++
		}
		resp.Seats = append(resp.Seats, response.SeatToResponse(seat))
	}

	return resp, nil
}
