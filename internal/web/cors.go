// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

package web

import (
	"net/http"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// CORSPolicy matches request origins against configured glob patterns and
// emits the CORS headers cookie-bearing cross-site requests need.
type CORSPolicy struct {
	patterns []string
	globs    []glob.Glob
}

// NewCORSPolicy compiles the origin patterns. An empty pattern list yields a
// policy that allows nothing, which is correct for same-origin deployments.
func NewCORSPolicy(origins []string) (*CORSPolicy, error) {
	globs := make([]glob.Glob, 0, len(origins))
	for _, pattern := range origins {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, oops.Code("CORS_INVALID_ORIGIN").
				With("pattern", pattern).
				Wrap(err)
		}
		globs = append(globs, g)
	}
	return &CORSPolicy{patterns: origins, globs: globs}, nil
}

// Allows reports whether the origin matches any configured pattern.
func (p *CORSPolicy) Allows(origin string) bool {
	if origin == "" {
		return false
	}
	for _, g := range p.globs {
		if g.Match(origin) {
			return true
		}
	}
	return false
}

// Middleware applies the policy to every request. Allowed origins are echoed
// back with credentials enabled; preflight requests are answered directly.
func (p *CORSPolicy) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if p.Allows(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length")
				h.Set("Access-Control-Max-Age", "300")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
