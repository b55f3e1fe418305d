package wire

import (
	"flight-booking/internal/adaptor"
	"flight-booking/internal/data/repository"
	"flight-booking/pkg/middleware"
	"flight-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireFlight(
	r chi.Router,
	flightHandler *adaptor.FlightHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	// GET /api/flights/{flightID}/seats - seat map with availability and versions
	r.Get("/api/flights/{flightID}/seats", flightHandler.GetSeats)

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/flights", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))
		r.Use(middleware.Admin(log))

		// POST /api/admin/flights - create a flight with its seat map
		r.Post("/", flightHandler.CreateFlight)
	})
}
