// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// MinBootstrapPasswordLength is the minimum length for the configured
// initial admin password.
const MinBootstrapPasswordLength = 8

// BootstrapConfig holds the initial admin credentials read from process
// configuration.
type BootstrapConfig struct {
	Username string
	Password string
}

// Validate checks the minimum-strength constraints. A violation is a fatal
// startup condition: the returned error wraps ErrInvalidBootstrapConfig and
// the entry point must refuse to start, never downgrade it.
func (c BootstrapConfig) Validate() error {
	if err := ValidateUsername(c.Username); err != nil {
		return oops.Code("CONFIG_INVALID").
			With("field", "admin.username").
			Wrap(errors.Join(err, ErrInvalidBootstrapConfig))
	}
	if len(c.Password) < MinBootstrapPasswordLength {
		return oops.Code("CONFIG_INVALID").
			With("field", "admin.password").
			With("min_length", MinBootstrapPasswordLength).
			Wrap(ErrInvalidBootstrapConfig)
	}
	return nil
}

// Bootstrap ensures exactly one administrative account exists. If any
// account already exists it is a no-op. The check-then-insert sequence is
// racy under concurrent startup, so a uniqueness violation on insert is
// treated as success: some other instance won the race and the outcome is
// identical.
func Bootstrap(ctx context.Context, cfg BootstrapConfig, accounts AccountRepository, hasher PasswordHasher) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	count, err := accounts.Count(ctx)
	if err != nil {
		return oops.Code("BOOTSTRAP_FAILED").
			With("operation", "count accounts").
			Wrap(err)
	}
	if count > 0 {
		slog.Debug("accounts already exist, skipping bootstrap", "count", count)
		return nil
	}

	hash, err := hasher.Hash(cfg.Password)
	if err != nil {
		return oops.Code("BOOTSTRAP_FAILED").
			With("operation", "hash admin password").
			Wrap(err)
	}

	account, err := NewAccount(cfg.Username, hash)
	if err != nil {
		return oops.Code("BOOTSTRAP_FAILED").
			With("operation", "build admin account").
			Wrap(err)
	}

	slog.Info("creating initial admin account", "username", cfg.Username)
	if err := accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrConflict) {
			slog.Info("admin account already created by a concurrent bootstrap", "username", cfg.Username)
			return nil
		}
		return oops.Code("BOOTSTRAP_FAILED").
			With("operation", "insert admin account").
			With("username", cfg.Username).
			Wrap(err)
	}

	return nil
}
