// Package common defines sentinel errors and shared constants used across
// the Echo server and client layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// service specific errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorConflict     = errors.New("already exists")
	ErrorValidation   = errors.New("validation error")

	// token and credential errors
	ErrInvalidToken            = errors.New("invalid token")
	ErrTokenExpired            = errors.New("token expired")
	ErrInvalidCredentialFormat = errors.New("invalid credential format")
	ErrWeakSigningKey          = errors.New("signing key must be at least 32 bytes")
)
