// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

// Package auth provides the credential lifecycle core for Escrow++.
//
// # Domain Types
//
// UserAccount is the identity record. Create it with NewUserAccount,
// which validates the username and email and applies account defaults.
// Direct struct initialization bypasses validation and may create
// invalid state. Repository implementations receive pre-validated
// values from the constructor.
//
// # Secrets
//
// Three kinds of secret flow through this package, none of which is
// ever persisted in recoverable form:
//   - passwords: argon2id hashes via PasswordHasher
//   - verification and reset tokens: random values whose SHA-256
//     digest is stored on the account row (GenerateToken, HashToken)
//   - session credentials: signed JWTs minted by SessionIssuer,
//     verified statelessly on each request
//
// # Services
//
// AccountService coordinates registration, email verification, login,
// and password reset against a UserRepository, a PasswordHasher, a
// SessionIssuer, and a Mailer. It is created with NewAccountService,
// which validates dependencies.
package auth
