package models

import "time"

// Event types published to the portal.emails exchange. The mailer
// service renders and delivers the actual messages.
const (
	EventTypeOrderPlaced            = "order.placed"
	EventTypeAuthorizationRequested = "authorization.requested"
)

// OrderedNumber is the slice of inventory data the mailer needs per
// ordered number.
type OrderedNumber struct {
	ID     string `json:"id"`
	Numero string `json:"numero"`
	Prefix string `json:"prefix"`
	Region string `json:"region"`
}

// EmailEvent is the envelope for all notification events.
type EmailEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// order.placed
	Numbers   []OrderedNumber `json:"numbers,omitempty"`
	OrderedBy string          `json:"ordered_by,omitempty"`

	// authorization.requested
	Request *AuthorizationRequest `json:"request,omitempty"`
}
