package models

// ErrorResponse is the standard JSON error body returned by the portal API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

// Machine-readable error codes used in ErrorResponse.Code.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeUnauthenticated  = "UNAUTHENTICATED"
	ErrCodeSessionExpired   = "SESSION_EXPIRED"
	ErrCodeWrongCredentials = "WRONG_CREDENTIALS"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeUpstreamFailure  = "UPSTREAM_FAILURE"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeInternal         = "INTERNAL_ERROR"
)
