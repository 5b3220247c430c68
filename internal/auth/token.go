// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// Single-use token configuration. The raw token is sent to the user
// exactly once by email; only its digest is stored, so a database leak
// cannot be replayed as a valid token.
const (
	TokenBytes           = 32             // 32 bytes = 64 hex chars
	VerificationTokenTTL = 24 * time.Hour // email verification window
	ResetTokenTTL        = time.Hour      // password reset window
)

// GenerateToken creates a secure random token and its digest.
// Returns (plaintext_token, sha256_digest, error).
// The plaintext token goes out by email; the digest is stored.
func GenerateToken() (token, digest string, err error) {
	tokenBytes := make([]byte, TokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", err
	}

	token = hex.EncodeToString(tokenBytes)
	digest = HashToken(token)

	return token, digest, nil
}

// HashToken computes the SHA-256 digest of a token, hex-encoded.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifyToken checks a plaintext token against a stored digest and
// expiry. Uses constant-time comparison to prevent timing attacks.
func VerifyToken(token, digest string, expires time.Time, now time.Time) bool {
	if token == "" || digest == "" {
		return false
	}
	if !now.Before(expires) {
		return false
	}
	computed := HashToken(token)
	// Both are hex-encoded SHA-256 digests (64 chars), constant-time compare
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}
