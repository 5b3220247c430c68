// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/escrowpp/escrowpp/internal/auth"
	"github.com/escrowpp/escrowpp/internal/auth/mocks"
	"github.com/escrowpp/escrowpp/pkg/errutil"
)

func newTestService(t *testing.T) (*auth.AccountService, *mocks.MockUserRepository, *mocks.MockPasswordHasher, *mocks.MockMailer, *auth.SessionIssuer) {
	t.Helper()

	users := mocks.NewMockUserRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	mailer := mocks.NewMockMailer(t)

	issuer, err := auth.NewSessionIssuer([]byte("test-secret"))
	require.NoError(t, err)

	svc, err := auth.NewAccountService(users, hasher, issuer, mailer)
	require.NoError(t, err)

	return svc, users, hasher, mailer, issuer
}

func verifiedUser(t *testing.T) *auth.UserAccount {
	t.Helper()
	user, err := auth.NewUserAccount("alice", "a@x.com", "storedhash")
	require.NoError(t, err)
	user.Verified = true
	return user
}

func TestNewAccountService(t *testing.T) {
	users := mocks.NewMockUserRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	mailer := mocks.NewMockMailer(t)
	issuer, err := auth.NewSessionIssuer([]byte("s"))
	require.NoError(t, err)

	t.Run("requires user repository", func(t *testing.T) {
		_, err := auth.NewAccountService(nil, hasher, issuer, mailer)
		assert.Error(t, err)
	})

	t.Run("requires password hasher", func(t *testing.T) {
		_, err := auth.NewAccountService(users, nil, issuer, mailer)
		assert.Error(t, err)
	})

	t.Run("requires session issuer", func(t *testing.T) {
		_, err := auth.NewAccountService(users, hasher, nil, mailer)
		assert.Error(t, err)
	})

	t.Run("requires mailer", func(t *testing.T) {
		_, err := auth.NewAccountService(users, hasher, issuer, nil)
		assert.Error(t, err)
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates unverified account with token and sends email", func(t *testing.T) {
		svc, users, hasher, mailer, _ := newTestService(t)

		hasher.On("Hash", "secret1").Return("hashedsecret", nil)

		var created *auth.UserAccount
		users.On("Create", ctx, mock.AnythingOfType("*auth.UserAccount")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*auth.UserAccount)
			}).
			Return(nil)

		var sentToken string
		mailer.On("SendVerification", ctx, "a@x.com", "alice", mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) {
				sentToken = args.String(3)
			}).
			Return(nil)

		result, err := svc.Register(ctx, "alice", "a@x.com", "secret1")
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.NoError(t, result.DeliveryErr)

		require.NotNil(t, created)
		assert.False(t, created.Verified)
		assert.Equal(t, "hashedsecret", created.PasswordHash)
		require.NotNil(t, created.VerificationTokenDigest)
		require.NotNil(t, created.VerificationTokenExpires)

		// Only the digest is stored; the raw token goes out by email.
		assert.Equal(t, auth.HashToken(sentToken), *created.VerificationTokenDigest)
		assert.NotEqual(t, sentToken, *created.VerificationTokenDigest)
		assert.WithinDuration(t, time.Now().Add(auth.VerificationTokenTTL), *created.VerificationTokenExpires, time.Minute)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		svc, _, _, _, _ := newTestService(t)

		_, err := svc.Register(ctx, "alice", "a@x.com", "")
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
	})

	t.Run("passes through duplicate username", func(t *testing.T) {
		svc, users, hasher, _, _ := newTestService(t)

		hasher.On("Hash", "secret1").Return("hashedsecret", nil)
		users.On("Create", ctx, mock.Anything).Return(auth.ErrUsernameTaken)

		_, err := svc.Register(ctx, "alice", "a@x.com", "secret1")
		assert.ErrorIs(t, err, auth.ErrUsernameTaken)
	})

	t.Run("passes through duplicate email", func(t *testing.T) {
		svc, users, hasher, _, _ := newTestService(t)

		hasher.On("Hash", "secret1").Return("hashedsecret", nil)
		users.On("Create", ctx, mock.Anything).Return(auth.ErrEmailTaken)

		_, err := svc.Register(ctx, "alice", "a@x.com", "secret1")
		assert.ErrorIs(t, err, auth.ErrEmailTaken)
	})

	t.Run("email failure does not roll back the account", func(t *testing.T) {
		svc, users, hasher, mailer, _ := newTestService(t)

		hasher.On("Hash", "secret1").Return("hashedsecret", nil)
		users.On("Create", ctx, mock.Anything).Return(nil)
		mailer.On("SendVerification", ctx, "a@x.com", "alice", mock.Anything).
			Return(assert.AnError)

		result, err := svc.Register(ctx, "alice", "a@x.com", "secret1")
		require.NoError(t, err)
		require.NotNil(t, result.User)
		require.Error(t, result.DeliveryErr)
		errutil.AssertErrorCode(t, result.DeliveryErr, "MAIL_DELIVERY_FAILED")
	})
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes token by digest", func(t *testing.T) {
		svc, users, _, _, _ := newTestService(t)

		rawToken, digest, err := auth.GenerateToken()
		require.NoError(t, err)

		user := verifiedUser(t)
		users.On("ConsumeVerificationToken", ctx, digest, mock.AnythingOfType("time.Time")).
			Return(user, nil)

		got, err := svc.VerifyEmail(ctx, rawToken)
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("unknown token is generic invalid", func(t *testing.T) {
		svc, users, _, _, _ := newTestService(t)

		users.On("ConsumeVerificationToken", ctx, mock.Anything, mock.Anything).
			Return(nil, auth.ErrNotFound)

		_, err := svc.VerifyEmail(ctx, "wrongtoken")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_TOKEN_INVALID")
	})

	t.Run("empty token is generic invalid without a store call", func(t *testing.T) {
		svc, _, _, _, _ := newTestService(t)

		_, err := svc.VerifyEmail(ctx, "")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_TOKEN_INVALID")
	})
}

func TestResendVerification(t *testing.T) {
	ctx := context.Background()

	t.Run("issues fresh token and sends it", func(t *testing.T) {
		svc, users, _, mailer, _ := newTestService(t)

		user, err := auth.NewUserAccount("alice", "a@x.com", "storedhash")
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "a@x.com").Return(user, nil)

		var storedDigest string
		users.On("SetVerificationToken", ctx, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Run(func(args mock.Arguments) {
				storedDigest = args.String(2)
			}).
			Return(nil)

		var sentToken string
		mailer.On("SendVerification", ctx, "a@x.com", "alice", mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) {
				sentToken = args.String(3)
			}).
			Return(nil)

		require.NoError(t, svc.ResendVerification(ctx, "a@x.com"))
		assert.Equal(t, auth.HashToken(sentToken), storedDigest)
	})

	t.Run("normalizes the email before lookup", func(t *testing.T) {
		svc, users, _, mailer, _ := newTestService(t)

		user, err := auth.NewUserAccount("alice", "a@x.com", "storedhash")
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "a@x.com").Return(user, nil)
		users.On("SetVerificationToken", ctx, user.ID, mock.Anything, mock.Anything).Return(nil)
		mailer.On("SendVerification", ctx, "a@x.com", "alice", mock.Anything).Return(nil)

		assert.NoError(t, svc.ResendVerification(ctx, "  A@X.com "))
	})

	t.Run("unknown email is not found", func(t *testing.T) {
		svc, users, _, _, _ := newTestService(t)

		users.On("GetByEmail", ctx, "b@x.com").Return(nil, auth.ErrNotFound)

		err := svc.ResendVerification(ctx, "b@x.com")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	})

	t.Run("already verified is rejected", func(t *testing.T) {
		svc, users, _, _, _ := newTestService(t)

		users.On("GetByEmail", ctx, "a@x.com").Return(verifiedUser(t), nil)

		err := svc.ResendVerification(ctx, "a@x.com")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_ALREADY_VERIFIED")
	})

	t.Run("token survives a failed send", func(t *testing.T) {
		svc, users, _, mailer, _ := newTestService(t)

		user, err := auth.NewUserAccount("alice", "a@x.com", "storedhash")
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "a@x.com").Return(user, nil)
		users.On("SetVerificationToken", ctx, user.ID, mock.Anything, mock.Anything).Return(nil)
		mailer.On("SendVerification", ctx, "a@x.com", "alice", mock.Anything).Return(assert.AnError)

		err = svc.ResendVerification(ctx, "a@x.com")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "MAIL_DELIVERY_FAILED")
		// No SetVerificationToken rollback expectation: the token stays.
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("mints a session for verified account", func(t *testing.T) {
		svc, users, hasher, _, issuer := newTestService(t)

		user := verifiedUser(t)
		users.On("GetByUsername", ctx, "alice").Return(user, nil)
		hasher.On("Verify", "secret1", "storedhash").Return(true, nil)

		got, credential, err := svc.Login(ctx, "alice", "secret1")
		require.NoError(t, err)
		assert.Equal(t, user, got)

		resolved, err := issuer.Validate(credential)
		require.NoError(t, err)
		assert.Equal(t, user.ID, resolved)
	})

	t.Run("unknown username is generic invalid credentials", func(t *testing.T) {
		svc, users, hasher, _, _ := newTestService(t)

		users.On("GetByUsername", ctx, "ghost").Return(nil, auth.ErrNotFound)
		// Password verification still runs against a dummy hash so the
		// response time does not reveal whether the username exists.
		hasher.On("Verify", "secret1", mock.AnythingOfType("string")).Return(false, nil)

		_, _, err := svc.Login(ctx, "ghost", "secret1")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("wrong password is generic invalid credentials", func(t *testing.T) {
		svc, users, hasher, _, _ := newTestService(t)

		users.On("GetByUsername", ctx, "alice").Return(verifiedUser(t), nil)
		hasher.On("Verify", "wrongpass", "storedhash").Return(false, nil)

		_, _, err := svc.Login(ctx, "alice", "wrongpass")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("unverified account fails with verification signal even on correct password", func(t *testing.T) {
		svc, users, hasher, _, _ := newTestService(t)

		user, err := auth.NewUserAccount("alice", "a@x.com", "storedhash")
		require.NoError(t, err)

		users.On("GetByUsername", ctx, "alice").Return(user, nil)
		hasher.On("Verify", "secret1", "storedhash").Return(true, nil)

		_, _, err = svc.Login(ctx, "alice", "secret1")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_EMAIL_NOT_VERIFIED")
	})

	t.Run("hasher error for unknown user stays generic", func(t *testing.T) {
		svc, users, hasher, _, _ := newTestService(t)

		users.On("GetByUsername", ctx, "ghost").Return(nil, auth.ErrNotFound)
		hasher.On("Verify", "secret1", mock.Anything).Return(false, assert.AnError)

		_, _, err := svc.Login(ctx, "ghost", "secret1")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})
}

func TestForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("issues reset token and sends it", func(t *testing.T) {
		svc, users, _, mailer, _ := newTestService(t)

		user := verifiedUser(t)
		users.On("GetByEmail", ctx, "a@x.com").Return(user, nil)

		var storedDigest string
		users.On("SetResetToken", ctx, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Run(func(args mock.Arguments) {
				storedDigest = args.String(2)
			}).
			Return(nil)

		var sentToken string
		mailer.On("SendPasswordReset", ctx, "a@x.com", "alice", mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) {
				sentToken = args.String(3)
			}).
			Return(nil)

		require.NoError(t, svc.ForgotPassword(ctx, "a@x.com"))
		assert.Equal(t, auth.HashToken(sentToken), storedDigest)
	})

	t.Run("unknown email is not found", func(t *testing.T) {
		svc, users, _, _, _ := newTestService(t)

		users.On("GetByEmail", ctx, "b@x.com").Return(nil, auth.ErrNotFound)

		err := svc.ForgotPassword(ctx, "b@x.com")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	})

	t.Run("failed send rolls the token back", func(t *testing.T) {
		svc, users, _, mailer, _ := newTestService(t)

		user := verifiedUser(t)
		users.On("GetByEmail", ctx, "a@x.com").Return(user, nil)
		users.On("SetResetToken", ctx, user.ID, mock.Anything, mock.Anything).Return(nil)
		mailer.On("SendPasswordReset", ctx, "a@x.com", "alice", mock.Anything).Return(assert.AnError)
		users.On("ClearResetToken", ctx, user.ID).Return(nil)

		err := svc.ForgotPassword(ctx, "a@x.com")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "MAIL_DELIVERY_FAILED")
		users.AssertCalled(t, "ClearResetToken", ctx, user.ID)
	})
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the password hash via token digest", func(t *testing.T) {
		svc, users, hasher, _, _ := newTestService(t)

		rawToken, digest, err := auth.GenerateToken()
		require.NoError(t, err)

		hasher.On("Hash", "newsecret").Return("newhash", nil)
		users.On("ConsumeResetToken", ctx, digest, "newhash", mock.AnythingOfType("time.Time")).
			Return(verifiedUser(t), nil)

		assert.NoError(t, svc.ResetPassword(ctx, rawToken, "newsecret"))
	})

	t.Run("unknown token is generic invalid", func(t *testing.T) {
		svc, users, hasher, _, _ := newTestService(t)

		hasher.On("Hash", "newsecret").Return("newhash", nil)
		users.On("ConsumeResetToken", ctx, mock.Anything, "newhash", mock.Anything).
			Return(nil, auth.ErrNotFound)

		err := svc.ResetPassword(ctx, "wrongtoken", "newsecret")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_TOKEN_INVALID")
	})

	t.Run("rejects empty password", func(t *testing.T) {
		svc, _, _, _, _ := newTestService(t)

		err := svc.ResetPassword(ctx, "sometoken", "")
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
	})

	t.Run("rejects empty token", func(t *testing.T) {
		svc, _, _, _, _ := newTestService(t)

		err := svc.ResetPassword(ctx, "", "newsecret")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_TOKEN_INVALID")
	})
}

func TestEmailByUsername(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the account email", func(t *testing.T) {
		svc, users, _, _, _ := newTestService(t)

		users.On("GetByUsername", ctx, "alice").Return(verifiedUser(t), nil)

		email, err := svc.EmailByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", email)
	})

	t.Run("unknown username is not found", func(t *testing.T) {
		svc, users, _, _, _ := newTestService(t)

		users.On("GetByUsername", ctx, "ghost").Return(nil, auth.ErrNotFound)

		_, err := svc.EmailByUsername(ctx, "ghost")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	})
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()

	t.Run("loads account by ID", func(t *testing.T) {
		svc, users, _, _, _ := newTestService(t)

		user := verifiedUser(t)
		users.On("GetByID", ctx, user.ID).Return(user, nil)

		got, err := svc.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("unknown ID is not found", func(t *testing.T) {
		svc, users, _, _, _ := newTestService(t)

		user := verifiedUser(t)
		users.On("GetByID", ctx, user.ID).Return(nil, auth.ErrNotFound)

		_, err := svc.GetUser(ctx, user.ID)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	})
}
