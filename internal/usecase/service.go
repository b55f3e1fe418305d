package usecase

import (
	"context"
	"time"

	"flight-booking/internal/artifact"
	"flight-booking/internal/data/repository"
	"flight-booking/internal/events"
	"flight-booking/pkg/utils"

	"go.uber.org/zap"
)

// Dependencies are the collaborators that live outside this service.
// Zero fields fall back to defaults, except Store which is required.
type Dependencies struct {
	Renderer  artifact.Renderer
	Store     artifact.ObjectStore
	Cache     artifact.StatusCache
	Publisher events.Publisher
	Pricer    Pricer
	Payments  PaymentValidator
	Clock     func() time.Time
}

func (d Dependencies) withDefaults(config *utils.Config, log *zap.Logger) Dependencies {
	if d.Renderer == nil {
		d.Renderer = artifact.NewPDFRenderer(config.App.Name)
	}
	if d.Cache == nil {
		d.Cache = artifact.NewRedisStatusCache(nil, 0, log)
	}
	if d.Publisher == nil {
		d.Publisher = events.NewNoopPublisher()
	}
	if d.Pricer == nil {
		d.Pricer = BasePricer
	}
	if d.Payments == nil {
		d.Payments = AcceptAllPayments
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return d
}

type Service struct {
	Booking  BookingService
	Artifact ArtifactService
	Flight   FlightService
}

func NewService(repo *repository.Repository, config *utils.Config, deps Dependencies, log *zap.Logger) *Service {
	deps = deps.withDefaults(config, log)

	artifacts := NewArtifactService(repo, config.Artifact, deps, log)
	return &Service{
		Booking:  NewBookingService(repo, config.Booking, deps, artifacts, log),
		Artifact: artifacts,
		Flight:   NewFlightService(repo, deps, log),
	}
}

// Start launches background workers.
func (s *Service) Start() {
	s.Artifact.Start()
}

func (s *Service) Shutdown(ctx context.Context) error {
	return s.Artifact.Shutdown(ctx)
}
