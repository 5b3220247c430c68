// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionTTL is how long a minted session credential stays valid.
const SessionTTL = 7 * 24 * time.Hour

// Session validation failures. Expired and forged/malformed are
// distinct so callers can give distinct user-facing messages.
var (
	ErrSessionExpired = oops.Code("SESSION_EXPIRED").Errorf("session has expired")
	ErrSessionInvalid = oops.Code("SESSION_INVALID").Errorf("invalid session token")
)

// sessionClaims carries the account identifier alongside the
// registered expiry claim.
type sessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// SessionIssuer mints and validates signed session credentials. The
// signing key is process-wide configuration loaded once at startup;
// rotating it invalidates all outstanding sessions.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionIssuer creates a SessionIssuer with the given signing key.
func NewSessionIssuer(secret []byte) (*SessionIssuer, error) {
	if len(secret) == 0 {
		return nil, oops.Code("SESSION_NO_SECRET").Errorf("session signing key cannot be empty")
	}
	return &SessionIssuer{secret: secret, ttl: SessionTTL}, nil
}

// TTL returns the session lifetime, which is also the cookie MaxAge.
func (i *SessionIssuer) TTL() time.Duration {
	return i.ttl
}

// Mint creates a signed session credential for the account.
func (i *SessionIssuer) Mint(userID ulid.ULID) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		UserID: userID.String(),
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", oops.Code("SESSION_MINT_FAILED").Wrap(err)
	}
	return signed, nil
}

// Validate verifies signature and expiry and returns the embedded
// account ID. Returns ErrSessionExpired for lapsed credentials and
// ErrSessionInvalid for anything tampered, forged, or malformed.
func (i *SessionIssuer) Validate(credential string) (ulid.ULID, error) {
	claims := &sessionClaims{}

	token, err := jwt.ParseWithClaims(credential, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ulid.ULID{}, ErrSessionExpired
		}
		return ulid.ULID{}, ErrSessionInvalid
	}
	if !token.Valid {
		return ulid.ULID{}, ErrSessionInvalid
	}

	id, err := ulid.Parse(claims.UserID)
	if err != nil {
		return ulid.ULID{}, ErrSessionInvalid
	}
	return id, nil
}
