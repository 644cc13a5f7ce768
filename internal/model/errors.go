package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers branch on with errors.Is.
var (
	// ErrServiceUnreachable marks network-level failures (connection
	// refused, timeout). Transient during polling; retry-able on start.
	ErrServiceUnreachable = errors.New("scanner service unreachable")

	// ErrScanNotFound marks an unknown scan id. Terminal for that id.
	ErrScanNotFound = errors.New("scan not found")
)

// AuthError means a token could not be obtained or refreshed. It blocks all
// further service calls until credentials are fixed.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ValidationError is a 4xx rejection of a scan launch. The user must fix
// the input; it is never retried.
type ValidationError struct {
	StatusCode int
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("scan request rejected (%d): %s", e.StatusCode, e.Message)
}

// ServiceError is a 5xx or unexpected response shape. Transient during
// polling, fatal during scan start.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("scanner service error (%d): %s", e.StatusCode, e.Message)
}

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
