package models

import "time"

// Credential is the bearer credential used for all upstream switch API
// calls. Secret is held in process memory only so the token manager can
// re-login silently before expiry; it is never persisted anywhere.
type Credential struct {
	Token     string
	ExpiresAt time.Time // zero when the exp claim could not be decoded
	Identity  string
	Secret    string
}

// Valid reports whether the credential can be attached to an upstream
// call. A zero ExpiresAt means the expiry is unknown and the token is
// used until the upstream rejects it.
func (c *Credential) Valid(now time.Time) bool {
	if c == nil || c.Token == "" {
		return false
	}
	if c.ExpiresAt.IsZero() {
		return true
	}
	return now.Before(c.ExpiresAt)
}
