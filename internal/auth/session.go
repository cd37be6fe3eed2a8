// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	// SessionTokenBytes is the raw entropy drawn per token. 128 bytes
	// hex-encode to 256 characters; the fixed length is a contract the
	// storage schema relies on.
	SessionTokenBytes = 128

	// SessionTokenLength is the encoded token length in characters.
	SessionTokenLength = SessionTokenBytes * 2

	// SessionTTL is the fixed offset from creation to expiry.
	SessionTTL = 30 * 24 * time.Hour
)

// Session binds an opaque token to an account. A session is Active until
// its expiry passes; there is no revoked state, only deletion.
type Session struct {
	Token     string
	AccountID ulid.ULID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewSession creates a validated Session.
func NewSession(accountID ulid.ULID, token string, expiresAt time.Time) (*Session, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if len(token) != SessionTokenLength {
		return nil, oops.Code("SESSION_INVALID_TOKEN").
			With("length", len(token)).
			Errorf("session token must be exactly %d characters", SessionTokenLength)
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &Session{
		Token:     token,
		AccountID: accountID,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the session would be expired at the given time.
// Useful for testing with deterministic time values.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// GenerateSessionToken creates an opaque session token from the OS CSPRNG.
// The token is never derived from usernames, timestamps, or counters.
func GenerateSessionToken() (string, error) {
	raw := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}
	return hex.EncodeToString(raw), nil
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session. Returns an error wrapping ErrConflict
	// if the token already exists.
	Create(ctx context.Context, session *Session) error

	// GetByToken retrieves a session by its token. Returns an error
	// wrapping ErrNotFound on a miss. Expiry is not evaluated here; the
	// service decides what an expired row means.
	GetByToken(ctx context.Context, token string) (*Session, error)

	// Delete removes a session by token. Returns an error wrapping
	// ErrNotFound if no such session exists.
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes all expired sessions and returns the count of
	// deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}
