// Package common defines shared constants and sentinel errors used across
// docvault layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by a service matches exactly one
// of them.
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication error")
	ErrAuthorization  = errors.New("authorization error")
	ErrIntegrity      = errors.New("integrity error")
	ErrPersistence    = errors.New("persistence error")
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Auth errors.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrAuthentication)
	ErrAccountLocked      = fmt.Errorf("%w: account is temporarily locked", ErrAuthentication)
	ErrInvalidMFACode     = fmt.Errorf("%w: invalid one-time code", ErrAuthentication)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", ErrAuthentication)
	ErrTokenExpired       = fmt.Errorf("%w: token expired", ErrAuthentication)
	ErrSessionRevoked     = fmt.Errorf("%w: session revoked", ErrAuthentication)

	// MFA lifecycle errors.
	ErrMFAAlreadyEnabled = fmt.Errorf("%w: mfa already enabled", ErrValidation)
	ErrMFANotInitiated   = fmt.Errorf("%w: mfa setup not initiated", ErrValidation)

	// Upload / input validation errors.
	ErrEmptyContent        = fmt.Errorf("%w: empty content", ErrValidation)
	ErrContentTooLarge     = fmt.Errorf("%w: content too large", ErrValidation)
	ErrUnsupportedMimeType = fmt.Errorf("%w: unsupported mime type", ErrValidation)
	ErrMimeTypeMismatch    = fmt.Errorf("%w: content does not match declared mime type", ErrValidation)
	ErrInvalidEmail        = fmt.Errorf("%w: invalid email", ErrValidation)
	ErrWeakPassword        = fmt.Errorf("%w: password too short", ErrValidation)
	ErrInvalidRole         = fmt.Errorf("%w: invalid role", ErrValidation)
	ErrNotReviewer         = fmt.Errorf("%w: target account is not a reviewer", ErrValidation)
)

// Persistence wraps err so that it matches ErrPersistence while keeping the
// original cause available to errors.Is/As. Nil stays nil.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
