package adaptor

import (
	"errors"
	"net/http"

	"flight-booking/internal/usecase"
	"flight-booking/pkg/utils"

	"go.uber.org/zap"
)

// writeServiceError maps usecase errors to the response envelope. Raw
// errors never reach the client; unknown ones become a 500.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var verr *usecase.ValidationError

	switch {
	case errors.As(err, &verr):
		log.Warn(operation+" validation failed", zap.Error(err))
		utils.ResponseError(w, http.StatusBadRequest, utils.CodeValidation, "Validation failed", verr.Fields)

	case errors.Is(err, usecase.ErrSeatUnavailable):
		log.Info(operation+" failed - seat unavailable", zap.Error(err))
		utils.ResponseError(w, http.StatusConflict, utils.CodeSeatUnavailable, "Seat no longer available, please choose another", nil)

	case errors.Is(err, usecase.ErrBookingNotFound):
		utils.ResponseError(w, http.StatusNotFound, utils.CodeNotFound, "Booking not found", nil)

	case errors.Is(err, usecase.ErrFlightNotFound):
		utils.ResponseError(w, http.StatusNotFound, utils.CodeNotFound, "Flight not found", nil)

	case errors.Is(err, usecase.ErrArtifactNotFound):
		utils.ResponseError(w, http.StatusNotFound, utils.CodeNotFound, "Invoice is not ready", nil)

	case errors.Is(err, usecase.ErrForbidden):
		log.Warn(operation+" failed - forbidden", zap.Error(err))
		utils.ResponseError(w, http.StatusForbidden, utils.CodeForbidden, "Not your booking", nil)

	case errors.Is(err, usecase.ErrAlreadyCancelled):
		utils.ResponseError(w, http.StatusConflict, utils.CodeAlreadyCancelled, "Booking is already cancelled", nil)

	case errors.Is(err, usecase.ErrFlightDeparted):
		utils.ResponseError(w, http.StatusConflict, utils.CodeFlightDeparted, "Flight has already departed", nil)

	case errors.Is(err, usecase.ErrInconsistent):
		log.Error(operation+" left inconsistent state", zap.Error(err))
		utils.ResponseError(w, http.StatusInternalServerError, utils.CodeInconsistent,
			"We could not complete your request, our team has been notified", nil)

	default:
		log.Error(operation+" failed", zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}

func requesterFromRequest(r *http.Request) (usecase.Requester, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		return usecase.Requester{}, false
	}
	return usecase.Requester{UserID: userID, IsAdmin: utils.IsAdmin(r.Context())}, true
}
