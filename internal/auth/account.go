// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MaxUsernameLength bounds usernames at the domain layer. The store enforces
// uniqueness; length is the only other constraint the original design carries.
const MaxUsernameLength = 64

// Account represents a user account. Accounts are created once (by
// bootstrap) and never mutated by this core; password rotation is out of
// scope.
type Account struct {
	ID           ulid.ULID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// NewAccount creates a validated Account. The password hash must already
// have been produced by a PasswordHasher; this constructor never sees a
// plaintext password.
func NewAccount(username, passwordHash string) (*Account, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	return &Account{
		ID:           ulid.Make(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ValidateUsername validates a username. Usernames are case-sensitive and
// compared exactly; only emptiness and length are rejected here.
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("ACCOUNT_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("ACCOUNT_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	return nil
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account. Returns an error wrapping ErrConflict
	// if the username is already taken.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID. Returns an error wrapping
	// ErrNotFound if no account has the given ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByUsername retrieves an account by exact, case-sensitive username
	// match. Returns an error wrapping ErrNotFound on a miss.
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// Count returns the total number of accounts.
	Count(ctx context.Context) (int64, error)
}
