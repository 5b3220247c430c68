// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultStartingBalance is credited to every new account.
const DefaultStartingBalance = 20

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// emailRegex is deliberately loose: one @, no whitespace, a dot in the
// domain part. Real validation happens via the verification email.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserAccount is the persistent identity record. The password field
// always holds an argon2id hash, never plaintext. Token fields hold
// SHA-256 digests of the raw tokens, never the tokens themselves.
type UserAccount struct {
	ID           ulid.ULID
	Username     string
	Email        string
	PasswordHash string

	Balance     int
	GamesPlayed int
	GamesWon    int

	Verified                 bool
	VerificationTokenDigest  *string
	VerificationTokenExpires *time.Time
	ResetTokenDigest         *string
	ResetTokenExpires        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUserAccount creates a validated, unverified UserAccount with the
// default starting balance. The email is normalized to lower case.
func NewUserAccount(username, email, passwordHash string) (*UserAccount, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &UserAccount{
		ID:           ulid.Make(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Balance:      DefaultStartingBalance,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("USER_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("USER_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("USER_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("USER_INVALID_USERNAME").
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// NormalizeEmail validates an email address and returns it trimmed and
// lower-cased. Uniqueness checks and storage always use the normalized
// form so "Alice@X.com" and "alice@x.com" are the same identity.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return "", oops.Code("USER_INVALID_EMAIL").
			Errorf("email address is not valid")
	}
	return email, nil
}

// UserRepository manages user account persistence.
//
// The Consume* methods must be implemented as a single conditional
// update keyed on the stored digest with an expiry guard, so that two
// requests racing to consume the same token yield at most one success.
type UserRepository interface {
	// Create stores a new account. Returns ErrUsernameTaken or
	// ErrEmailTaken (wrapped) when the identity is already claimed.
	Create(ctx context.Context, user *UserAccount) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*UserAccount, error)

	// GetByUsername retrieves an account by username (case-insensitive).
	GetByUsername(ctx context.Context, username string) (*UserAccount, error)

	// GetByEmail retrieves an account by normalized email.
	GetByEmail(ctx context.Context, email string) (*UserAccount, error)

	// SetVerificationToken stores a new verification token digest and
	// expiry, overwriting any prior one. Only the newest token is valid.
	SetVerificationToken(ctx context.Context, id ulid.ULID, digest string, expires time.Time) error

	// ConsumeVerificationToken marks the matching account verified and
	// clears the token fields in one conditional update. Returns
	// ErrNotFound (wrapped) if no account holds an unexpired token with
	// this digest.
	ConsumeVerificationToken(ctx context.Context, digest string, now time.Time) (*UserAccount, error)

	// SetResetToken stores a new reset token digest and expiry,
	// overwriting any prior one.
	SetResetToken(ctx context.Context, id ulid.ULID, digest string, expires time.Time) error

	// ClearResetToken removes any pending reset token for the account.
	// Used to roll back token issuance when email dispatch fails.
	ClearResetToken(ctx context.Context, id ulid.ULID) error

	// ConsumeResetToken replaces the password hash and clears the reset
	// token fields in one conditional update. Returns ErrNotFound
	// (wrapped) if no account holds an unexpired token with this digest.
	ConsumeResetToken(ctx context.Context, digest, newPasswordHash string, now time.Time) (*UserAccount, error)
}
