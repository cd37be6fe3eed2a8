// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/picohost/picohost/internal/auth"
	authpg "github.com/picohost/picohost/internal/auth/postgres"
	"github.com/picohost/picohost/internal/config"
	"github.com/picohost/picohost/internal/logging"
	"github.com/picohost/picohost/internal/observability"
	"github.com/picohost/picohost/internal/store"
	"github.com/picohost/picohost/internal/web"
)

// Timeouts for startup and shutdown phases.
const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 5 * time.Second
	pingTimeout     = 2 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the picohost API server",
		Long: `Start the HTTP API server. Runs pending database migrations,
bootstraps the initial admin account, and then begins accepting traffic.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd)
		},
	}

	defaults := config.Default()
	cmd.Flags().String("bind-addr", defaults.BindAddr, "HTTP API listen address")
	cmd.Flags().String("metrics-addr", defaults.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", defaults.LogFormat, "log format (json or text)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection string")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("picohost", version, cfg.LogFormat)

	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url is required (set %s)", config.EnvDatabaseURL)
	}

	slog.Info("starting picohost",
		"bind_addr", cfg.BindAddr,
		"metrics_addr", cfg.MetricsAddr,
		"log_format", cfg.LogFormat,
	)

	startCtx, cancelStart := context.WithTimeout(ctx, startupTimeout)
	defer cancelStart()

	db, err := store.Open(startCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("connected to postgres")

	migrator, err := store.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close() //nolint:errcheck // migration error takes precedence
		return err
	}
	if err := migrator.Close(); err != nil {
		return err
	}

	slog.Info("migrations applied")

	accounts := authpg.NewAccountRepository(db.Pool())
	sessions := authpg.NewSessionRepository(db.Pool())
	hasher := auth.NewArgon2idHasher()

	authService, err := auth.NewService(accounts, sessions, hasher)
	if err != nil {
		return err
	}

	// Bootstrap must finish before traffic is accepted. Invalid admin
	// credentials are fatal and never downgraded.
	bootstrapCfg := auth.BootstrapConfig{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
	}
	if err := auth.Bootstrap(startCtx, bootstrapCfg, accounts, hasher); err != nil {
		if errors.Is(err, auth.ErrInvalidBootstrapConfig) {
			slog.Error("refusing to start: bootstrap credentials invalid",
				"hint", "set "+config.EnvAdminUsername+" and "+config.EnvAdminPassword)
		}
		return err
	}

	// Readiness flips on only once the API server is listening.
	var ready atomic.Bool

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			if !ready.Load() {
				return false
			}
			pingCtx, cancelPing := context.WithTimeout(context.Background(), pingTimeout)
			defer cancelPing()
			return db.Ping(pingCtx) == nil
		})
		obsErrCh, obsErr := obsServer.Start()
		if obsErr != nil {
			return obsErr
		}
		metrics = obsServer.Metrics()
		go func() {
			if serveErr := <-obsErrCh; serveErr != nil {
				slog.Error("observability server failed", "error", serveErr)
				cancel()
			}
		}()
	}

	corsPolicy, err := web.NewCORSPolicy(cfg.CORS.AllowedOrigins)
	if err != nil {
		return err
	}

	apiServer, err := web.NewServer(cfg.BindAddr, authService, web.Options{
		CORS:    corsPolicy,
		Metrics: metrics,
	})
	if err != nil {
		return err
	}

	apiErrCh, err := apiServer.Start()
	if err != nil {
		return err
	}
	go func() {
		if serveErr := <-apiErrCh; serveErr != nil {
			slog.Error("api server failed", "error", serveErr)
			cancel()
		}
	}()

	ready.Store(true)

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	cmd.Println("Picohost started")
	slog.Info("picohost ready", "addr", apiServer.Addr())

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	slog.Info("shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping api server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}
