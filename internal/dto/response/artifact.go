package response

import "flight-booking/internal/data/entity"

// PollOutcome tells a polling client what to do next.
type PollOutcome string

const (
	OutcomeNotStarted      PollOutcome = "NOT_STARTED"
	OutcomeProcessing      PollOutcome = "PROCESSING"
	OutcomeStillProcessing PollOutcome = "STILL_PROCESSING"
	OutcomeReady           PollOutcome = "READY"
	OutcomeFailed          PollOutcome = "FAILED"
)

// InvoiceDownloadPath is the authenticated route serving a READY invoice.
func InvoiceDownloadPath(bookingID string) string {
	return "/api/bookings/" + bookingID + "/invoice/file"
}

type ArtifactStatusResponse struct {
	BookingID         string                `json:"booking_id"`
	Status            entity.ArtifactStatus `json:"status"`
	Outcome           PollOutcome           `json:"outcome"`
	Location          *string               `json:"location,omitempty"`
	Checksum          *string               `json:"checksum,omitempty"`
	DownloadURL       string                `json:"download_url,omitempty"`
	Attempt           int                   `json:"attempt"`
	RetryAfterSeconds int                   `json:"retry_after_seconds,omitempty"`
	Message           string                `json:"message,omitempty"`
}
