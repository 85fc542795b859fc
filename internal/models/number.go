package models

import (
	"time"

	"github.com/google/uuid"
)

// AvailableNumber statuses.
const (
	NumberStatusAvailable = "available"
	NumberStatusOrdered   = "ordered"
)

// AvailableNumber is a DID number from the portal inventory that a
// customer can order.
type AvailableNumber struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Numero    string    `json:"numero" db:"numero"`
	Prefix    string    `json:"prefix" db:"prefix"`
	Region    string    `json:"region" db:"region"`
	Type      string    `json:"type" db:"type"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NumberFilter narrows inventory listings.
type NumberFilter struct {
	Status string
	Region string
	Prefix string
	Limit  int
	Offset int
}

// ImportResult summarizes a CSV inventory import.
type ImportResult struct {
	Total    int `json:"total"`
	Inserted int `json:"inserted"`
	Errors   int `json:"errors"`
}
