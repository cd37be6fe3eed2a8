// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/picohost/picohost/internal/auth"
	"github.com/picohost/picohost/pkg/errutil"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session_id"

// maxSignInBody bounds the sign-in request body.
const maxSignInBody = 4 << 10

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleSignIn verifies credentials and sets the session cookie. Every
// authentication failure produces the same 401 with a generic body.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSignInBody))
	if err := dec.Decode(&req); err != nil {
		s.countSignin("unauthorized")
		writeUnauthorized(w)
		return
	}

	session, err := s.auth.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			s.countSignin("unauthorized")
			writeUnauthorized(w)
			return
		}
		s.countSignin("error")
		errutil.LogError(slog.Default(), "sign-in failed", err)
		writeInternalError(w)
		return
	}

	s.countSignin("success")
	http.SetCookie(w, sessionCookie(session.Token, session.ExpiresAt))
	w.WriteHeader(http.StatusNoContent)
}

// handleVerify succeeds iff requireSession resolved an active session.
func (s *Server) handleVerify(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleSignOut deletes the session and expires the cookie. Sign-out with no
// cookie is a no-op success; there is nothing to leak.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := s.auth.SignOut(r.Context(), cookie.Value); err != nil {
			errutil.LogError(slog.Default(), "sign-out failed", err)
			writeInternalError(w)
			return
		}
	}

	http.SetCookie(w, expiredSessionCookie())
	w.WriteHeader(http.StatusNoContent)
}

// sessionCookie builds the session cookie with the attributes the panel
// relies on for cross-site use: Secure, HttpOnly, SameSite=None, Partitioned.
func sessionCookie(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:        SessionCookieName,
		Value:       token,
		Path:        "/",
		Expires:     expiresAt,
		MaxAge:      int(time.Until(expiresAt).Seconds()),
		Secure:      true,
		HttpOnly:    true,
		SameSite:    http.SameSiteNoneMode,
		Partitioned: true,
	}
}

// expiredSessionCookie clears the session cookie on the client.
func expiredSessionCookie() *http.Cookie {
	c := sessionCookie("", time.Unix(0, 0))
	c.MaxAge = -1
	return c
}

func writeUnauthorized(w http.ResponseWriter) {
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

func writeInternalError(w http.ResponseWriter) {
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (s *Server) countSignin(outcome string) {
	if s.metrics != nil {
		s.metrics.SigninsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countSessionCheck(outcome string) {
	if s.metrics != nil {
		s.metrics.SessionChecksTotal.WithLabelValues(outcome).Inc()
	}
}
