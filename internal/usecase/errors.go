package usecase

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ledger primitives
	ErrConflict         = errors.New("seat version conflict")
	ErrSeatNotAvailable = errors.New("seat is not available")
	ErrSeatNotHeld      = errors.New("seat is not held")
	ErrSeatNotFound     = errors.New("seat not found")

	// booking operations
	ErrSeatUnavailable  = errors.New("seat unavailable")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrFlightNotFound   = errors.New("flight not found")
	ErrForbidden        = errors.New("not allowed to access this booking")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
	ErrFlightDeparted   = errors.New("flight has departed")
	ErrInconsistent     = errors.New("seat ledger and booking records diverged")
	ErrValidation       = errors.New("validation failed")
	ErrPaymentDeclined  = errors.New("payment declined")

	// artifacts
	ErrArtifactNotFound = errors.New("invoice not generated")
)

// ValidationError carries per-field messages and matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationError(field, message string) error {
	return &ValidationError{Fields: map[string]string{field: message}}
}
