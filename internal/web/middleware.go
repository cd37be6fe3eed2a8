// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/picohost/picohost/internal/auth"
	"github.com/picohost/picohost/pkg/errutil"
)

type contextKey struct{}

var identityKey contextKey

// requireSession resolves the session cookie into an identity before calling
// next. A missing, unknown, or expired token produces the same 401; any
// store-layer failure is logged with detail and surfaced as a bare 500.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var token string
		if cookie, err := r.Cookie(SessionCookieName); err == nil {
			token = cookie.Value
		}

		identity, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				s.countSessionCheck("unauthorized")
				writeUnauthorized(w)
				return
			}
			s.countSessionCheck("error")
			errutil.LogError(slog.Default(), "session validation failed", err)
			writeInternalError(w)
			return
		}

		s.countSessionCheck("ok")
		next(w, r.WithContext(withIdentity(r.Context(), identity)))
	}
}

// statusRecorder captures the status code written by the wrapped handler.
// Handlers that never call WriteHeader implicitly send 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// countRequests records one observation per request, labelled by route and
// status class.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.RequestsTotal.WithLabelValues(r.URL.Path, statusClass(rec.status)).Inc()
	})
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

func withIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the authenticated identity placed by
// requireSession, if any.
func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*auth.Identity)
	return identity, ok
}
