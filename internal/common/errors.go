// Package common defines shared constants and sentinel errors used across
// the Dovol server, its repositories and the admin CLI. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal        = errors.New("internal error")
	ErrorUnauthenticated = errors.New("unauthenticated")
	ErrorForbidden       = errors.New("forbidden")
	ErrUserNotFound      = errors.New("user not found")

	// Validation errors. ErrInvalidCredentials and ErrorValidation are both
	// reported to callers as invalid input.
	ErrInvalid            = errors.New("invalid")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrorValidation       = errors.New("validation error")

	// Lifecycle errors for OTP codes and tokens.
	ErrExpired      = errors.New("expired")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Infrastructure errors.
	ErrDeliveryFailure = errors.New("delivery failure")
	ErrStorageFailure  = errors.New("storage failure")
	ErrRateLimited     = errors.New("rate limited")
)
