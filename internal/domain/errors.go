package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrStore          = errors.New("store failure")
	ErrNotInitialized = errors.New("public url is not configured")

	// ErrProviderUnavailable is returned once the retry budget for an identity provider call is spent.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

var (
	ErrMissingAuthorizationCode = fmt.Errorf("%w: missing authorization code", ErrInvalidInput)
	ErrInvalidTokenResponse     = fmt.Errorf("%w: invalid token response", ErrInvalidInput)
	ErrInvalidProfileResponse   = fmt.Errorf("%w: invalid profile response", ErrInvalidInput)

	ErrConflict          = fmt.Errorf("%w: resource conflict", ErrStore)
	ErrDanglingReference = fmt.Errorf("%w: dangling reference", ErrStore)
)

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
