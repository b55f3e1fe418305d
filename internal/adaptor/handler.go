package adaptor

import (
	"flight-booking/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Booking  *BookingHandler
	Flight   *FlightHandler
	Artifact *ArtifactHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking:  NewBookingHandler(service.Booking, log),
		Flight:   NewFlightHandler(service.Flight, log),
		Artifact: NewArtifactHandler(service.Artifact, log),
	}
}
