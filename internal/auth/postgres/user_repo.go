// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

// Package postgres implements auth repositories using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/escrowpp/escrowpp/internal/auth"
)

// poolIface abstracts *pgxpool.Pool so tests can substitute pgxmock.
type poolIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Unique constraint names from the users migration; used to report
// which identity field collided.
const (
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"
)

const userColumns = `id, username, email, password_hash, balance, games_played, games_won,
	       verified, verification_token_digest, verification_token_expires,
	       reset_token_digest, reset_token_expires, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new account. Unique violations are mapped to
// auth.ErrUsernameTaken or auth.ErrEmailTaken by constraint name, so
// the insert itself is the duplicate check and races cannot slip two
// accounts through.
func (r *UserRepository) Create(ctx context.Context, user *auth.UserAccount) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (
			id, username, email, password_hash, balance, games_played, games_won,
			verified, verification_token_digest, verification_token_expires,
			reset_token_digest, reset_token_expires, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		user.ID.String(),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Balance,
		user.GamesPlayed,
		user.GamesWon,
		user.Verified,
		user.VerificationTokenDigest,
		user.VerificationTokenExpires,
		user.ResetTokenDigest,
		user.ResetTokenExpires,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			switch pgErr.ConstraintName {
			case usernameConstraint:
				return oops.Code("USER_CONFLICT").
					With("username", user.Username).
					Wrap(auth.ErrUsernameTaken)
			case emailConstraint:
				return oops.Code("USER_CONFLICT").
					With("email", user.Email).
					Wrap(auth.ErrEmailTaken)
			}
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.UserAccount, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// GetByUsername retrieves an account by username (case-insensitive).
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.UserAccount, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(username) = LOWER($1)
	`, username)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_USERNAME_FAILED").
			With("username", username).
			Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves an account by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.UserAccount, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = LOWER($1)
	`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// SetVerificationToken stores a new verification token digest and
// expiry, overwriting any prior token so only the newest one is valid.
func (r *UserRepository) SetVerificationToken(ctx context.Context, id ulid.ULID, digest string, expires time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET verification_token_digest = $2,
		    verification_token_expires = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, id.String(), digest, expires)
	if err != nil {
		return oops.Code("USER_SET_VERIFICATION_TOKEN_FAILED").
			With("id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// ConsumeVerificationToken marks the matching account verified and
// clears the token fields. The WHERE clause carries both the digest
// match and the expiry guard, so concurrent consumers race on a single
// conditional update and at most one wins.
func (r *UserRepository) ConsumeVerificationToken(ctx context.Context, digest string, now time.Time) (*auth.UserAccount, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET verified = TRUE,
		    verification_token_digest = NULL,
		    verification_token_expires = NULL,
		    updated_at = NOW()
		WHERE verification_token_digest = $1
		  AND verification_token_expires > $2
		RETURNING `+userColumns+`
	`, digest, now)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_CONSUME_VERIFICATION_FAILED").Wrap(err)
	}
	return user, nil
}

// SetResetToken stores a new reset token digest and expiry, overwriting
// any prior token.
func (r *UserRepository) SetResetToken(ctx context.Context, id ulid.ULID, digest string, expires time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET reset_token_digest = $2,
		    reset_token_expires = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, id.String(), digest, expires)
	if err != nil {
		return oops.Code("USER_SET_RESET_TOKEN_FAILED").
			With("id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// ClearResetToken removes any pending reset token for the account.
func (r *UserRepository) ClearResetToken(ctx context.Context, id ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET reset_token_digest = NULL,
		    reset_token_expires = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("USER_CLEAR_RESET_TOKEN_FAILED").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}

// ConsumeResetToken replaces the password hash and clears the reset
// token fields in one conditional update, mirroring
// ConsumeVerificationToken's at-most-once semantics.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, digest, newPasswordHash string, now time.Time) (*auth.UserAccount, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET password_hash = $3,
		    reset_token_digest = NULL,
		    reset_token_expires = NULL,
		    updated_at = NOW()
		WHERE reset_token_digest = $1
		  AND reset_token_expires > $2
		RETURNING `+userColumns+`
	`, digest, now, newPasswordHash)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_CONSUME_RESET_FAILED").Wrap(err)
	}
	return user, nil
}

// scanUser scans a full users row into a UserAccount.
func scanUser(row pgx.Row) (*auth.UserAccount, error) {
	var (
		user  auth.UserAccount
		idStr string
	)
	err := row.Scan(
		&idStr,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Balance,
		&user.GamesPlayed,
		&user.GamesWon,
		&user.Verified,
		&user.VerificationTokenDigest,
		&user.VerificationTokenExpires,
		&user.ResetTokenDigest,
		&user.ResetTokenExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_CORRUPT_ID").
			With("id", idStr).
			Wrap(err)
	}
	return &user, nil
}
