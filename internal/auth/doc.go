// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

// Package auth provides the account and session core for picohost.
//
// # Domain Types
//
// Domain types (Account, Session) should be created using their respective
// constructors:
//   - NewAccount - creates an Account with a validated username and password hash
//   - NewSession - creates a Session with a validated token and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Services
//
// Service coordinates the domain operations: SignIn verifies credentials and
// issues a session, Authenticate resolves a session token into a trusted
// identity, SignOut deletes a session. Bootstrap ensures the initial
// administrative account exists, exactly once, from process configuration.
package auth
