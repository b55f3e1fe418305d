package adaptor

import (
	"encoding/json"
	"net/http"

	"flight-booking/internal/dto/request"
	"flight-booking/internal/usecase"
	"flight-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type FlightHandler struct {
	service usecase.FlightService
	log     *zap.Logger
}

func NewFlightHandler(service usecase.FlightService, log *zap.Logger) *FlightHandler {
	return &FlightHandler{
		service: service,
		log:     log.With(zap.String("handler", "flight")),
	}
}

// GetSeats handles GET /api/flights/{flightID}/seats (public)
func (h *FlightHandler) GetSeats(w http.ResponseWriter, r *http.Request) {
	seats, err := h.service.GetSeatMap(r.Context(), chi.URLParam(r, "flightID"))
	if err != nil {
		writeServiceError(w, h.log, err, "get seats")
		return
	}

	utils.ResponseSuccess(w, "success", seats)
}

// CreateFlight handles POST /api/admin/flights (admin)
func (h *FlightHandler) CreateFlight(w http.ResponseWriter, r *http.Request) {
	var req request.CreateFlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	flight, err := h.service.CreateFlight(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "create flight")
		return
	}

	utils.ResponseCreated(w, "Flight created", flight)
}
