// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

package web_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/require"

	"github.com/picohost/picohost/internal/auth"
	"github.com/picohost/picohost/internal/web"
)

// Minimal in-memory repositories backing the API under test.

type memAccounts struct {
	mu   sync.Mutex
	byID map[ulid.ULID]*auth.Account
}

func (r *memAccounts) Create(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Username == account.Username {
			return oops.Wrap(auth.ErrConflict)
		}
	}
	r.byID[account.ID] = account
	return nil
}

func (r *memAccounts) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account, ok := r.byID[id]; ok {
		return account, nil
	}
	return nil, oops.Wrap(auth.ErrNotFound)
}

func (r *memAccounts) GetByUsername(_ context.Context, username string) (*auth.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.byID {
		if account.Username == username {
			return account, nil
		}
	}
	return nil, oops.Wrap(auth.ErrNotFound)
}

func (r *memAccounts) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byID)), nil
}

type memSessions struct {
	mu      sync.Mutex
	byToken map[string]*auth.Session
}

func (r *memSessions) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byToken[session.Token]; exists {
		return oops.Wrap(auth.ErrConflict)
	}
	r.byToken[session.Token] = session
	return nil
}

func (r *memSessions) GetByToken(_ context.Context, token string) (*auth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.byToken[token]; ok {
		return session, nil
	}
	return nil, oops.Wrap(auth.ErrNotFound)
}

func (r *memSessions) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byToken[token]; !ok {
		return oops.Wrap(auth.ErrNotFound)
	}
	delete(r.byToken, token)
	return nil
}

func (r *memSessions) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for token, session := range r.byToken {
		if session.IsExpired() {
			delete(r.byToken, token)
			deleted++
		}
	}
	return deleted, nil
}

// testCredentials are the account seeded into every test API.
const (
	testUsername = "alice"
	testPassword = "opensesame"
)

// newTestService builds an auth service over in-memory stores with one
// account seeded from testCredentials.
func newTestService(t *testing.T) *auth.Service {
	t.Helper()

	accounts := &memAccounts{byID: make(map[ulid.ULID]*auth.Account)}
	sessions := &memSessions{byToken: make(map[string]*auth.Session)}
	hasher := auth.NewArgon2idHasher()

	hash, err := hasher.Hash(testPassword)
	require.NoError(t, err)
	account, err := auth.NewAccount(testUsername, hash)
	require.NoError(t, err)
	require.NoError(t, accounts.Create(context.Background(), account))

	service, err := auth.NewService(accounts, sessions, hasher)
	require.NoError(t, err)
	return service
}

// newTestAPI assembles a Server over in-memory stores with one account.
func newTestAPI(t *testing.T, opts web.Options) (*web.Server, http.Handler) {
	t.Helper()

	server, err := web.NewServer("127.0.0.1:0", newTestService(t), opts)
	require.NoError(t, err)

	return server, server.Handler()
}
