package wire

import (
	"flight-booking/internal/adaptor"
	"flight-booking/internal/data/repository"
	"flight-booking/pkg/middleware"
	"flight-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireArtifact(
	r chi.Router,
	artifactHandler *adaptor.ArtifactHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))

		// POST /api/bookings/{id}/invoice?force=true - start (re)generation
		r.Post("/api/bookings/{id}/invoice", artifactHandler.RequestInvoice)

		// GET /api/bookings/{id}/invoice/status?attempt=N&wait=true - poll
		r.Get("/api/bookings/{id}/invoice/status", artifactHandler.InvoiceStatus)

		// GET /api/bookings/{id}/invoice/file - download a READY invoice
		r.Get("/api/bookings/{id}/invoice/file", artifactHandler.DownloadInvoice)
	})
}
