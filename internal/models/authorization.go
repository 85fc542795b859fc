package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthorizationRequest statuses.
const (
	AuthorizationStatusPending  = "pending"
	AuthorizationStatusApproved = "approved"
	AuthorizationStatusRejected = "rejected"
	AuthorizationStatusExpired  = "expired"
)

// AuthorizationRequest tracks a customer's request to get an outbound
// caller-id number authorized on the switch. DocumentRefs are opaque
// references to uploaded proof documents; the portal stores them as-is.
type AuthorizationRequest struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Numero       string    `json:"numero" db:"numero"`
	Requester    string    `json:"requester" db:"requester"`
	DocumentRefs []string  `json:"document_refs" db:"document_refs"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ValidAuthorizationStatus reports whether s is a known request status.
func ValidAuthorizationStatus(s string) bool {
	switch s {
	case AuthorizationStatusPending, AuthorizationStatusApproved,
		AuthorizationStatusRejected, AuthorizationStatusExpired:
		return true
	}
	return false
}
