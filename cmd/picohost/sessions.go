// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	authpg "github.com/picohost/picohost/internal/auth/postgres"
	"github.com/picohost/picohost/internal/config"
	"github.com/picohost/picohost/internal/store"
)

// Default timeout for the sessions sweep command.
const defaultSweepTimeout = 30 * time.Second

// NewSessionsCmd creates the sessions subcommand tree.
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage stored sessions",
	}

	var timeout time.Duration
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions",
		Long: `Deletes all sessions whose expiry has passed. Expired sessions are
already rejected at validation time; sweeping only reclaims storage, so this
is safe to run (or not run) at any time.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, timeout)
		},
	}
	sweep.Flags().DurationVar(&timeout, "timeout", defaultSweepTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.AddCommand(sweep)

	return cmd
}

func runSweep(cmd *cobra.Command, timeout time.Duration) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url is required (set %s)", config.EnvDatabaseURL)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	deleted, err := authpg.NewSessionRepository(db.Pool()).DeleteExpired(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Deleted %d expired sessions\n", deleted)
	return nil
}
