// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

package auth

import "errors"

// Sentinel errors for the account/session core. Repository implementations
// and the service wrap these with oops codes; callers match with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an insert violates a uniqueness
	// constraint (duplicate username, duplicate session token).
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized is returned for every credential or session failure
	// the client may observe. Missing, unknown, and expired tokens all map
	// to it so the response boundary leaks nothing.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformedHash is returned when a stored password hash cannot be
	// parsed. A recoverable per-request condition, never a panic.
	ErrMalformedHash = errors.New("malformed password hash")

	// ErrInvalidBootstrapConfig is returned when the configured initial
	// admin credentials fail validation. The process must refuse to start.
	ErrInvalidBootstrapConfig = errors.New("invalid bootstrap configuration")
)
