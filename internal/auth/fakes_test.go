// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

package auth_test

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/picohost/picohost/internal/auth"
)

// In-memory repository fakes. Error fields, when set, are returned ahead of
// any map lookup so tests can exercise the failure paths.

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*auth.Account // keyed by username, exact match

	createErr error
	getErr    error
	countErr  error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*auth.Account)}
}

func (r *fakeAccountRepo) Create(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, exists := r.accounts[account.Username]; exists {
		return oops.Code("ACCOUNT_CONFLICT").Wrap(auth.ErrConflict)
	}
	r.accounts[account.Username] = account
	return nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, account := range r.accounts {
		if account.ID == id {
			return account, nil
		}
	}
	return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
}

func (r *fakeAccountRepo) GetByUsername(_ context.Context, username string) (*auth.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	account, ok := r.accounts[username]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return account, nil
}

func (r *fakeAccountRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	return int64(len(r.accounts)), nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*auth.Session

	// conflictsLeft forces the next N Create calls to report a token
	// collision regardless of map contents.
	conflictsLeft int

	createErr error
	getErr    error
	deleteErr error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*auth.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return oops.Code("SESSION_CONFLICT").Wrap(auth.ErrConflict)
	}
	if _, exists := r.sessions[session.Token]; exists {
		return oops.Code("SESSION_CONFLICT").Wrap(auth.ErrConflict)
	}
	r.sessions[session.Token] = session
	return nil
}

func (r *fakeSessionRepo) GetByToken(_ context.Context, token string) (*auth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	session, ok := r.sessions[token]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return session, nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.sessions[token]; !ok {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	delete(r.sessions, token)
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for token, session := range r.sessions {
		if session.IsExpired() {
			delete(r.sessions, token)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeSessionRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Compile-time interface checks.
var (
	_ auth.AccountRepository = (*fakeAccountRepo)(nil)
	_ auth.SessionRepository = (*fakeSessionRepo)(nil)
)
