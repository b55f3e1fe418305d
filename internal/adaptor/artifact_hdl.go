package adaptor

import (
	"io"
	"net/http"
	"strconv"

	"flight-booking/internal/dto/response"
	"flight-booking/internal/usecase"
	"flight-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ArtifactHandler struct {
	service usecase.ArtifactService
	log     *zap.Logger
}

func NewArtifactHandler(service usecase.ArtifactService, log *zap.Logger) *ArtifactHandler {
	return &ArtifactHandler{
		service: service,
		log:     log.With(zap.String("handler", "artifact")),
	}
}

// RequestInvoice handles POST /api/bookings/{id}/invoice?force=true
func (h *ArtifactHandler) RequestInvoice(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	force := utils.ParseBool(r.URL.Query().Get("force"))
	status, err := h.service.RequestGeneration(r.Context(), chi.URLParam(r, "id"), requester, force)
	if err != nil {
		writeServiceError(w, h.log, err, "request invoice")
		return
	}

	if status.Outcome == response.OutcomeReady {
		utils.ResponseSuccess(w, "Invoice ready", status)
		return
	}
	utils.ResponseAccepted(w, "Invoice generation in progress", status)
}

// InvoiceStatus handles GET /api/bookings/{id}/invoice/status?attempt=N&wait=true
func (h *ArtifactHandler) InvoiceStatus(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	bookingID := chi.URLParam(r, "id")

	var (
		status *response.ArtifactStatusResponse
		err    error
	)
	if utils.ParseBool(query.Get("wait")) {
		status, err = h.service.WaitForStatus(r.Context(), bookingID, requester)
	} else {
		status, err = h.service.CheckStatus(r.Context(), bookingID, requester, utils.ParseInt(query.Get("attempt"), 0))
	}
	if err != nil {
		writeServiceError(w, h.log, err, "invoice status")
		return
	}

	if status.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(status.RetryAfterSeconds))
	}
	message := "success"
	if status.Message != "" {
		message = status.Message
	}
	utils.ResponseSuccess(w, message, status)
}

// DownloadInvoice handles GET /api/bookings/{id}/invoice/file
func (h *ArtifactHandler) DownloadInvoice(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	doc, err := h.service.OpenDocument(r.Context(), chi.URLParam(r, "id"), requester)
	if err != nil {
		writeServiceError(w, h.log, err, "download invoice")
		return
	}

	if doc.Body == nil {
		http.Redirect(w, r, doc.Location, http.StatusFound)
		return
	}
	defer doc.Body.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="invoice.pdf"`)
	if doc.Checksum != "" {
		w.Header().Set("ETag", `"`+doc.Checksum+`"`)
	}
	if _, err := io.Copy(w, doc.Body); err != nil {
		h.log.Warn("Invoice download interrupted", zap.Error(err))
	}
}
