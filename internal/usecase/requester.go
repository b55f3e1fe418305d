package usecase

import "github.com/google/uuid"

// Requester is the authenticated caller of an operation.
type Requester struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// CanAccess reports whether the requester owns the resource or is an admin.
func (r Requester) CanAccess(ownerID uuid.UUID) bool {
	return r.IsAdmin || r.UserID == ownerID
}
