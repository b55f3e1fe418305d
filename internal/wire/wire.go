// internal/wire/wire.go
package wire

import (
	"context"
	"fmt"
	"net/http"

	"flight-booking/internal/adaptor"
	"flight-booking/internal/artifact"
	"flight-booking/internal/data/repository"
	"flight-booking/internal/events"
	"flight-booking/internal/metrics"
	"flight-booking/internal/usecase"
	"flight-booking/pkg/middleware"
	"flight-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App menyimpan semua dependencies
type App struct {
	Router  *chi.Mux
	Service *usecase.Service

	sweeper   *artifact.Sweeper
	publisher events.Publisher
	log       *zap.Logger
}

// Wiring menginisialisasi semua dependencies. rdb may be nil.
func Wiring(repo *repository.Repository, config *utils.Config, rdb *redis.Client, logger *zap.Logger) (*App, error) {
	store, err := newObjectStore(config)
	if err != nil {
		return nil, err
	}

	publisher := events.NewAMQPPublisher(config.AMQP, logger)

	service := usecase.NewService(repo, config, usecase.Dependencies{
		Renderer:  artifact.NewPDFRenderer(config.App.Name),
		Store:     store,
		Cache:     artifact.NewRedisStatusCache(rdb, config.Redis.TTL, logger),
		Publisher: publisher,
	}, logger)
	handler := adaptor.NewHandler(service, logger)

	sweeper, err := artifact.NewSweeper(config.Artifact.SweepInterval, config.Artifact.SweepInterval, service.Artifact.SweepStale, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		Router:    setupRouter(handler, repo, config, logger),
		Service:   service,
		sweeper:   sweeper,
		publisher: publisher,
		log:       logger,
	}, nil
}

func newObjectStore(config *utils.Config) (artifact.ObjectStore, error) {
	switch config.Artifact.StorageDriver {
	case "", "fs":
		return artifact.NewFSStore(config.Artifact.StoragePath, config.Artifact.PublicBaseURL)
	case "cloudinary":
		c := config.Cloudinary
		return artifact.NewCloudinaryStore(c.CloudName, c.APIKey, c.APISecret, c.Folder)
	default:
		return nil, fmt.Errorf("unknown artifact storage driver %q", config.Artifact.StorageDriver)
	}
}

// Start launches the worker pool and the stale job sweeper.
func (a *App) Start() {
	a.Service.Start()
	a.sweeper.Start()
}

// Shutdown stops background work, draining queued invoice jobs until ctx ends.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.sweeper.Stop(); err != nil {
		a.log.Warn("Failed to stop sweeper", zap.Error(err))
	}
	err := a.Service.Shutdown(ctx)
	if cerr := a.publisher.Close(); cerr != nil {
		a.log.Warn("Failed to close publisher", zap.Error(cerr))
	}
	return err
}

// setupRouter konfigurasi Chi router
func setupRouter(
	handler *adaptor.Handler,
	repo *repository.Repository,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	// Apply routes
	wireFlight(r, handler.Flight, repo, config, logger)
	wireBooking(r, handler.Booking, repo, config, logger)
	wireArtifact(r, handler.Artifact, repo, config, logger)

	r.Handle("/metrics", metrics.Handler())

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
