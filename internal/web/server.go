// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

// Package web provides the picohost HTTP API: sign-in, session verification,
// and sign-out over cookie-carried session tokens.
package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/picohost/picohost/internal/auth"
	"github.com/picohost/picohost/internal/observability"
)

// Server serves the picohost HTTP API.
type Server struct {
	addr       string
	auth       *auth.Service
	cors       *CORSPolicy
	metrics    *observability.Metrics
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// Options configures optional server collaborators.
type Options struct {
	// CORS applies cross-origin headers; nil disables CORS entirely.
	CORS *CORSPolicy

	// Metrics records request outcomes; nil disables recording.
	Metrics *observability.Metrics
}

// NewServer creates a new API server.
func NewServer(addr string, authService *auth.Service, opts Options) (*Server, error) {
	if authService == nil {
		return nil, oops.Code("WEB_INVALID_DEPENDENCY").Errorf("auth service is required")
	}
	return &Server{
		addr:    addr,
		auth:    authService,
		cors:    opts.CORS,
		metrics: opts.Metrics,
	}, nil
}

// Handler returns the fully assembled request handler. Exposed so tests can
// drive the API through httptest without opening sockets.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/user/signin", s.handleSignIn)
	mux.HandleFunc("GET /api/user/verify", s.requireSession(s.handleVerify))
	mux.HandleFunc("POST /api/user/signout", s.handleSignOut)

	var handler http.Handler = mux
	handler = s.countRequests(handler)
	if s.cors != nil {
		handler = s.cors.Middleware(handler)
	}
	return handler
}

// Start begins serving the API. It returns an error channel that receives
// any server failure after startup; the channel is closed on graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server. New connections stop being
// accepted; in-flight requests run to completion or until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	slog.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
