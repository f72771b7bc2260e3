// Package common defines shared constants and sentinel errors used across
// the service layers of gophdocs. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrPersistence marks a ledger, registry or document write that did not
	// become durable. The request fails, the process keeps serving.
	ErrPersistence = errors.New("persistence error")

	// Save-back errors.
	ErrSaveFetch         = errors.New("save fetch error")
	ErrMalformedCallback = errors.New("malformed callback")

	// ErrConfiguration is returned when a request cannot be served with the
	// current configuration, e.g. a signed descriptor without a secret.
	ErrConfiguration = errors.New("configuration error")

	// File-specific errors.
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidName   = errors.New("invalid file name")
	ErrNoTemplate    = errors.New("no valid local template")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
