package entity

import (
	"time"

	"github.com/google/uuid"
)

type ArtifactStatus string

const (
	ArtifactStatusNotStarted ArtifactStatus = "NOT_STARTED"
	ArtifactStatusInProgress ArtifactStatus = "IN_PROGRESS"
	ArtifactStatusReady      ArtifactStatus = "READY"
	ArtifactStatusFailed     ArtifactStatus = "FAILED"
)

// InvoiceArtifact is derived state; the booking row stays authoritative.
// Attempt counts generation runs and guards completion writes so a worker
// from an older run cannot overwrite a newer one.
type InvoiceArtifact struct {
	BookingID   uuid.UUID      `db:"booking_id"`
	Status      ArtifactStatus `db:"status"`
	Location    *string        `db:"location"`
	Checksum    *string        `db:"checksum"`
	Attempt     int            `db:"attempt"`
	LastError   *string        `db:"last_error"`
	StartedAt   *time.Time     `db:"started_at"`
	CompletedAt *time.Time     `db:"completed_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}
