// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors. Errors returned by this package wrap one of these so callers
// can classify failures with errors.Is; anything else is an internal failure.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a uniqueness constraint would be violated.
	ErrConflict = errors.New("already exists")

	// ErrUnauthorized is returned for bad credentials and for invalid, expired
	// or revoked tokens.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput is returned when a request fails validation.
	ErrInvalidInput = errors.New("invalid input")
)

// ErrInvalidCredentials is returned by login-shaped operations regardless of
// whether the user was missing or the password was wrong.
var ErrInvalidCredentials = fmt.Errorf("invalid login or password: %w", ErrUnauthorized)

// IsInternal reports whether err is not one of the expected failure kinds.
func IsInternal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrNotFound) &&
		!errors.Is(err, ErrConflict) &&
		!errors.Is(err, ErrUnauthorized) &&
		!errors.Is(err, ErrInvalidInput)
}
