// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

package auth

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Service provides the sign-in, authentication, and sign-out operations.
type Service struct {
	accounts AccountRepository
	sessions SessionRepository
	hasher   PasswordHasher

	// hashGate bounds concurrent KDF work so memory-hard hashing cannot
	// serialize request acceptance.
	hashGate chan struct{}
}

// NewService creates a new Service.
func NewService(accounts AccountRepository, sessions SessionRepository, hasher PasswordHasher) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("accounts repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}

	return &Service{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		hashGate: make(chan struct{}, runtime.GOMAXPROCS(0)),
	}, nil
}

// Identity is the trusted result of resolving a session token.
type Identity struct {
	Account *Account
	Session *Session
}

// dummyPasswordHash is used when an account doesn't exist to keep response
// time consistent with the real-verification path. This is NOT a credential;
// it can never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// SignIn authenticates an account and issues a session. Wrong passwords and
// unknown usernames both produce an error wrapping ErrUnauthorized; the
// caller cannot tell which occurred.
func (s *Service) SignIn(ctx context.Context, username, password string) (*Session, error) {
	account, lookupErr := s.accounts.GetByUsername(ctx, username)

	targetHash := dummyPasswordHash
	accountExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_SIGNIN_FAILED").
				With("operation", "get account by username").
				Wrap(lookupErr)
		}
	} else {
		targetHash = account.PasswordHash
		accountExists = true
	}

	// Always verify, against the dummy hash when the account is missing,
	// to keep timing consistent.
	valid, verifyErr := s.verify(ctx, password, targetHash)
	if verifyErr != nil {
		if !accountExists || errors.Is(verifyErr, ErrMalformedHash) {
			// A hash that cannot be parsed rejects the request, not
			// the process.
			return nil, unauthorized("AUTH_INVALID_CREDENTIALS", verifyErr)
		}
		return nil, oops.Code("AUTH_SIGNIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !accountExists || !valid {
		return nil, unauthorized("AUTH_INVALID_CREDENTIALS", nil)
	}

	return s.Issue(ctx, account.ID)
}

// Issue generates a token and persists a session for the account. On the
// astronomically unlikely token collision it retries once with a fresh token
// before surfacing an internal error.
func (s *Service) Issue(ctx context.Context, accountID ulid.ULID) (*Session, error) {
	var session *Session

	err := retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(time.Millisecond)), func(ctx context.Context) error {
		token, err := GenerateSessionToken()
		if err != nil {
			return err
		}

		candidate, err := NewSession(accountID, token, time.Now().UTC().Add(SessionTTL))
		if err != nil {
			return err
		}

		if err := s.sessions.Create(ctx, candidate); err != nil {
			if errors.Is(err, ErrConflict) {
				return retry.RetryableError(err)
			}
			return err
		}

		session = candidate
		return nil
	})
	if err != nil {
		return nil, oops.Code("SESSION_ISSUE_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}

	return session, nil
}

// Authenticate converts a raw session token into a trusted identity. Missing,
// unknown, and expired tokens all yield an error wrapping ErrUnauthorized.
// Store failures yield internal errors that do not wrap ErrUnauthorized.
// Authenticate performs reads only; there is no sliding expiration.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*Identity, error) {
	if rawToken == "" {
		return nil, unauthorized("SESSION_TOKEN_MISSING", nil)
	}

	session, err := s.sessions.GetByToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, unauthorized("SESSION_UNKNOWN", nil)
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token").
			Wrap(err)
	}

	if session.IsExpired() {
		// Distinct code for server-side logs; same outcome at the
		// response boundary as an unknown token.
		return nil, unauthorized("SESSION_EXPIRED", nil)
	}

	account, err := s.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, unauthorized("SESSION_ORPHANED", err)
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get account by id").
			With("account_id", session.AccountID.String()).
			Wrap(err)
	}

	return &Identity{Account: account, Session: session}, nil
}

// SignOut deletes the session for the given token. Deleting an already-gone
// session is not an error; sign-out is idempotent at the boundary.
func (s *Service) SignOut(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return unauthorized("SESSION_TOKEN_MISSING", nil)
	}

	if err := s.sessions.Delete(ctx, rawToken); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("SESSION_SIGNOUT_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// verify runs password verification behind the bounded gate.
func (s *Service) verify(ctx context.Context, password, hash string) (bool, error) {
	select {
	case s.hashGate <- struct{}{}:
	case <-ctx.Done():
		return false, oops.Code("AUTH_VERIFY_CANCELLED").Wrap(ctx.Err())
	}
	defer func() { <-s.hashGate }()

	return s.hasher.Verify(password, hash)
}

func unauthorized(code string, cause error) error {
	b := oops.Code(code)
	if cause != nil {
		b = b.With("cause", cause.Error())
	}
	return b.Wrap(ErrUnauthorized)
}
