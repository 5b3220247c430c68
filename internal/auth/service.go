// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Mailer delivers account lifecycle emails. Implementations live in
// internal/mail; the raw token is handed over for one-time transmission
// and must not be retained.
type Mailer interface {
	// SendVerification delivers the email-verification token.
	SendVerification(ctx context.Context, to, username, token string) error

	// SendPasswordReset delivers the password-reset token.
	SendPasswordReset(ctx context.Context, to, username, token string) error
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// AccountService coordinates registration, verification, login, and
// password reset.
type AccountService struct {
	users  UserRepository
	hasher PasswordHasher
	issuer *SessionIssuer
	mailer Mailer
}

// NewAccountService creates an AccountService.
func NewAccountService(users UserRepository, hasher PasswordHasher, issuer *SessionIssuer, mailer Mailer) (*AccountService, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if issuer == nil {
		return nil, oops.Errorf("session issuer is required")
	}
	if mailer == nil {
		return nil, oops.Errorf("mailer is required")
	}
	return &AccountService{users: users, hasher: hasher, issuer: issuer, mailer: mailer}, nil
}

// RegisterResult reports the outcome of a registration. The account is
// persisted even when email dispatch fails; DeliveryErr carries the
// dispatch failure so the caller can tell the user to request a resend.
type RegisterResult struct {
	User        *UserAccount
	DeliveryErr error
}

// Register creates an unverified account with a hashed password, issues
// a verification token, and dispatches it by email. Duplicate username
// and duplicate email are reported distinctly (ErrUsernameTaken,
// ErrEmailTaken). Email dispatch failure does not roll anything back:
// verification state, not account existence, reflects delivery success.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*RegisterResult, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUserAccount(username, email, hash)
	if err != nil {
		return nil, err
	}

	token, digest, err := GenerateToken()
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "generate verification token").
			Wrap(err)
	}
	expires := time.Now().Add(VerificationTokenTTL)
	user.VerificationTokenDigest = &digest
	user.VerificationTokenExpires = &expires

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			With("username", username).
			Wrap(err)
	}

	result := &RegisterResult{User: user}
	if err := s.mailer.SendVerification(ctx, user.Email, user.Username, token); err != nil {
		result.DeliveryErr = oops.Code("MAIL_DELIVERY_FAILED").
			With("kind", "verification").
			Wrap(err)
	}
	return result, nil
}

// VerifyEmail consumes a verification token: the matching account is
// marked verified and the token fields are cleared in one conditional
// update, so a second presentation of the same token fails. No-match
// and expired are indistinguishable to the caller.
func (s *AccountService) VerifyEmail(ctx context.Context, rawToken string) (*UserAccount, error) {
	if rawToken == "" {
		return nil, oops.Code("AUTH_TOKEN_INVALID").Errorf("verification token is invalid or has expired")
	}

	digest := HashToken(rawToken)
	user, err := s.users.ConsumeVerificationToken(ctx, digest, time.Now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_TOKEN_INVALID").Errorf("verification token is invalid or has expired")
		}
		return nil, oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "consume verification token").
			Wrap(err)
	}
	return user, nil
}

// ResendVerification issues a fresh verification token, overwriting any
// prior one, and dispatches it. Not-found and already-verified are
// reported distinctly; this leaks account existence and is a known,
// deliberate tradeoff carried over from the original flow.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("USER_NOT_FOUND").Errorf("no account found with that email")
		}
		return oops.Code("AUTH_RESEND_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	if user.Verified {
		return oops.Code("AUTH_ALREADY_VERIFIED").Errorf("email is already verified")
	}

	token, digest, err := GenerateToken()
	if err != nil {
		return oops.Code("AUTH_RESEND_FAILED").
			With("operation", "generate verification token").
			Wrap(err)
	}
	if err := s.users.SetVerificationToken(ctx, user.ID, digest, time.Now().Add(VerificationTokenTTL)); err != nil {
		return oops.Code("AUTH_RESEND_FAILED").
			With("operation", "store verification token").
			Wrap(err)
	}

	// The token stays valid if dispatch fails; the user can retry the
	// resend and the newest token wins.
	if err := s.mailer.SendVerification(ctx, user.Email, user.Username, token); err != nil {
		return oops.Code("MAIL_DELIVERY_FAILED").
			With("kind", "verification").
			Wrap(err)
	}
	return nil
}

// Login authenticates by username and password and mints a session
// credential. Unknown username and wrong password produce the same
// failure; unverified accounts produce a distinct one so the client
// can offer a resend action.
func (s *AccountService) Login(ctx context.Context, username, password string) (*UserAccount, string, error) {
	user, lookupErr := s.users.GetByUsername(ctx, username)

	// Verify against a dummy hash when the user is unknown so response
	// time does not reveal whether the username exists.
	targetHash := dummyPasswordHash
	userExists := false

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by username").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")
		}
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")
	}

	// Checked after password verification so the failure does not leak
	// credential validity.
	if !user.Verified {
		return nil, "", oops.Code("AUTH_EMAIL_NOT_VERIFIED").
			Errorf("please verify your email before logging in")
	}

	credential, err := s.issuer.Mint(user.ID)
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "mint session").
			Wrap(err)
	}
	return user, credential, nil
}

// ForgotPassword issues a reset token and dispatches it by email.
// Unlike registration, a dispatch failure rolls the token back: a valid
// reset token the user never received is a standing risk, while an
// undelivered verification token is merely an unverified account.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("USER_NOT_FOUND").Errorf("no account found with that email")
		}
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, digest, err := GenerateToken()
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, digest, time.Now().Add(ResetTokenTTL)); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "store reset token").
			Wrap(err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Username, token); err != nil {
		// Best effort: if the rollback itself fails the token still
		// expires on its own within ResetTokenTTL.
		_ = s.users.ClearResetToken(ctx, user.ID) //nolint:errcheck
		return oops.Code("MAIL_DELIVERY_FAILED").
			With("kind", "reset").
			Wrap(err)
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the password hash
// in one conditional update. No-match and expired are indistinguishable
// to the caller.
func (s *AccountService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if newPassword == "" {
		return ErrEmptyPassword
	}
	if rawToken == "" {
		return oops.Code("AUTH_TOKEN_INVALID").Errorf("reset token is invalid or has expired")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	digest := HashToken(rawToken)
	if _, err := s.users.ConsumeResetToken(ctx, digest, hash, time.Now()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("AUTH_TOKEN_INVALID").Errorf("reset token is invalid or has expired")
		}
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "consume reset token").
			Wrap(err)
	}
	return nil
}

// EmailByUsername returns the email for a username. Used by the client
// to offer a verification resend after a failed login.
func (s *AccountService) EmailByUsername(ctx context.Context, username string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("USER_NOT_FOUND").Errorf("no account found with that username")
		}
		return "", oops.Code("USER_LOOKUP_FAILED").
			With("operation", "get user by username").
			Wrap(err)
	}
	return user.Email, nil
}

// GetUser loads an account by ID. Used by the access guard to re-check
// existence and verification status on every request.
func (s *AccountService) GetUser(ctx context.Context, id ulid.ULID) (*UserAccount, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("USER_NOT_FOUND").Wrap(err)
		}
		return nil, oops.Code("USER_LOOKUP_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}
	return user, nil
}
