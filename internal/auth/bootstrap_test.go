// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

package auth_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picohost/picohost/internal/auth"
	"github.com/picohost/picohost/pkg/errutil"
)

func TestBootstrapConfig_Validate(t *testing.T) {
	t.Run("accepts valid credentials", func(t *testing.T) {
		cfg := auth.BootstrapConfig{Username: "admin", Password: "longenough"}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects empty username", func(t *testing.T) {
		cfg := auth.BootstrapConfig{Username: "", Password: "longenough"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidBootstrapConfig)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})

	t.Run("rejects password below minimum length", func(t *testing.T) {
		cfg := auth.BootstrapConfig{
			Username: "admin",
			Password: strings.Repeat("x", auth.MinBootstrapPasswordLength-1),
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidBootstrapConfig)
	})

	t.Run("accepts password at minimum length", func(t *testing.T) {
		cfg := auth.BootstrapConfig{
			Username: "admin",
			Password: strings.Repeat("x", auth.MinBootstrapPasswordLength),
		}
		assert.NoError(t, cfg.Validate())
	})
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewArgon2idHasher()
	cfg := auth.BootstrapConfig{Username: "admin", Password: "bootstrap-secret"}

	t.Run("creates admin account in empty store", func(t *testing.T) {
		accounts := newFakeAccountRepo()

		require.NoError(t, auth.Bootstrap(ctx, cfg, accounts, hasher))

		account, err := accounts.GetByUsername(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, "admin", account.Username)

		// The stored value is a hash, never the configured password.
		assert.NotEqual(t, cfg.Password, account.PasswordHash)
		ok, err := hasher.Verify(cfg.Password, account.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("is idempotent", func(t *testing.T) {
		accounts := newFakeAccountRepo()

		require.NoError(t, auth.Bootstrap(ctx, cfg, accounts, hasher))
		require.NoError(t, auth.Bootstrap(ctx, cfg, accounts, hasher))

		count, err := accounts.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("no-op when any account exists", func(t *testing.T) {
		accounts := newFakeAccountRepo()
		existing, err := auth.NewAccount("someoneelse", "$argon2id$hash")
		require.NoError(t, err)
		require.NoError(t, accounts.Create(ctx, existing))

		require.NoError(t, auth.Bootstrap(ctx, cfg, accounts, hasher))

		_, err = accounts.GetByUsername(ctx, "admin")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("invalid config fails before touching the store", func(t *testing.T) {
		accounts := newFakeAccountRepo()
		accounts.countErr = assert.AnError // would fail if reached

		err := auth.Bootstrap(ctx, auth.BootstrapConfig{Username: "admin", Password: "short"}, accounts, hasher)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidBootstrapConfig)
	})

	t.Run("insert conflict from a concurrent bootstrap is success", func(t *testing.T) {
		accounts := newFakeAccountRepo()
		winner, err := auth.NewAccount("admin", "$argon2id$hash")
		require.NoError(t, err)

		// Simulate losing the race: the store looked empty at the count,
		// but another instance inserts before our create lands.
		require.NoError(t, accounts.Create(ctx, winner))
		err = auth.Bootstrap(ctx, cfg, &racingAccountRepo{fakeAccountRepo: accounts}, hasher)
		assert.NoError(t, err)

		count, err := accounts.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("count failure surfaces", func(t *testing.T) {
		accounts := newFakeAccountRepo()
		accounts.countErr = assert.AnError

		err := auth.Bootstrap(ctx, cfg, accounts, hasher)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "BOOTSTRAP_FAILED")
	})

	t.Run("concurrent bootstraps leave exactly one account", func(t *testing.T) {
		accounts := newFakeAccountRepo()

		var wg sync.WaitGroup
		errs := make([]error, 4)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = auth.Bootstrap(ctx, cfg, accounts, hasher)
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}
		count, err := accounts.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

// racingAccountRepo reports an empty store so Bootstrap proceeds to insert
// against a repo that already holds the admin row.
type racingAccountRepo struct {
	*fakeAccountRepo
}

func (r *racingAccountRepo) Count(context.Context) (int64, error) {
	return 0, nil
}
