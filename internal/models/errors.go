package models

import "errors"

// Application-wide standard errors
var (
	// Gateway / proxy errors
	ErrInvalidInput       = errors.New("invalid input data")        // malformed endpoint, method or payload
	ErrUnauthenticated    = errors.New("no valid session")          // no credential present, nothing sent upstream
	ErrSessionExpired     = errors.New("session expired")           // upstream rejected the credential (401)
	ErrRateLimited        = errors.New("rate limit exceeded")       // admission ceiling reached
	ErrUpstreamFailure    = errors.New("upstream request failed")   // any other non-2xx or transport failure
	ErrInvalidCredentials = errors.New("invalid login or password") // upstream /auth rejected the login

	// Resource / DB errors
	ErrNotFound           = errors.New("resource not found")
	ErrNumberNotFound     = errors.New("number not found")
	ErrNumberNotAvailable = errors.New("number is not available")
	ErrRequestNotFound    = errors.New("authorization request not found")

	// General request/server errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
)
