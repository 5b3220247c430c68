// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/escrowpp/escrowpp/internal/auth"
	"github.com/escrowpp/escrowpp/internal/auth/postgres"
	"github.com/escrowpp/escrowpp/internal/store"
)

// setupPostgresContainer starts a PostgreSQL container, runs the
// migrations, and returns a connected pool.
func setupPostgresContainer() (*pgxpool.Pool, func(), error) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("escrowpp_test"),
		tcpostgres.WithUsername("escrowpp"),
		tcpostgres.WithPassword("escrowpp"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		return nil, nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, nil, err
	}
	if err := migrator.Close(); err != nil {
		return nil, nil, err
	}

	pool, err := store.Connect(ctx, connStr)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return pool, cleanup, nil
}

var _ = Describe("UserRepository", func() {
	var repo *postgres.UserRepository
	var cleanup func()

	BeforeEach(func() {
		pool, c, err := setupPostgresContainer()
		Expect(err).NotTo(HaveOccurred())
		cleanup = c
		repo = postgres.NewUserRepository(pool)
	})

	AfterEach(func() {
		cleanup()
	})

	newAccount := func(username, email string) *auth.UserAccount {
		user, err := auth.NewUserAccount(username, email, "somehash")
		Expect(err).NotTo(HaveOccurred())
		return user
	}

	Describe("Create", func() {
		It("stores and retrieves an account", func() {
			ctx := context.Background()
			user := newAccount("alice", "a@x.com")

			Expect(repo.Create(ctx, user)).To(Succeed())

			got, err := repo.GetByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(user.ID))
			Expect(got.Email).To(Equal("a@x.com"))
			Expect(got.Verified).To(BeFalse())
			Expect(got.Balance).To(Equal(auth.DefaultStartingBalance))
		})

		It("rejects a duplicate username case-insensitively", func() {
			ctx := context.Background()
			Expect(repo.Create(ctx, newAccount("alice", "a@x.com"))).To(Succeed())

			err := repo.Create(ctx, newAccount("Alice", "b@x.com"))
			Expect(err).To(MatchError(auth.ErrUsernameTaken))
		})

		It("rejects a duplicate email", func() {
			ctx := context.Background()
			Expect(repo.Create(ctx, newAccount("alice", "a@x.com"))).To(Succeed())

			err := repo.Create(ctx, newAccount("bob", "a@x.com"))
			Expect(err).To(MatchError(auth.ErrEmailTaken))
		})
	})

	Describe("verification tokens", func() {
		It("consumes a token exactly once", func() {
			ctx := context.Background()
			user := newAccount("alice", "a@x.com")
			Expect(repo.Create(ctx, user)).To(Succeed())

			_, digest, err := auth.GenerateToken()
			Expect(err).NotTo(HaveOccurred())
			expires := time.Now().Add(auth.VerificationTokenTTL)
			Expect(repo.SetVerificationToken(ctx, user.ID, digest, expires)).To(Succeed())

			got, err := repo.ConsumeVerificationToken(ctx, digest, time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Verified).To(BeTrue())
			Expect(got.VerificationTokenDigest).To(BeNil())

			// Second presentation observes the cleared fields and fails.
			_, err = repo.ConsumeVerificationToken(ctx, digest, time.Now())
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("rejects an expired token", func() {
			ctx := context.Background()
			user := newAccount("alice", "a@x.com")
			Expect(repo.Create(ctx, user)).To(Succeed())

			_, digest, err := auth.GenerateToken()
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.SetVerificationToken(ctx, user.ID, digest, time.Now().Add(-time.Minute))).To(Succeed())

			_, err = repo.ConsumeVerificationToken(ctx, digest, time.Now())
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("only the newest token is valid after reissue", func() {
			ctx := context.Background()
			user := newAccount("alice", "a@x.com")
			Expect(repo.Create(ctx, user)).To(Succeed())

			_, oldDigest, err := auth.GenerateToken()
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.SetVerificationToken(ctx, user.ID, oldDigest, time.Now().Add(auth.VerificationTokenTTL))).To(Succeed())

			_, newDigest, err := auth.GenerateToken()
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.SetVerificationToken(ctx, user.ID, newDigest, time.Now().Add(auth.VerificationTokenTTL))).To(Succeed())

			_, err = repo.ConsumeVerificationToken(ctx, oldDigest, time.Now())
			Expect(err).To(MatchError(auth.ErrNotFound))

			got, err := repo.ConsumeVerificationToken(ctx, newDigest, time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Verified).To(BeTrue())
		})
	})

	Describe("reset tokens", func() {
		It("replaces the password hash on consumption", func() {
			ctx := context.Background()
			user := newAccount("alice", "a@x.com")
			Expect(repo.Create(ctx, user)).To(Succeed())

			_, digest, err := auth.GenerateToken()
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.SetResetToken(ctx, user.ID, digest, time.Now().Add(auth.ResetTokenTTL))).To(Succeed())

			got, err := repo.ConsumeResetToken(ctx, digest, "newhash", time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(got.PasswordHash).To(Equal("newhash"))
			Expect(got.ResetTokenDigest).To(BeNil())

			_, err = repo.ConsumeResetToken(ctx, digest, "anotherhash", time.Now())
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("clears a pending token on rollback", func() {
			ctx := context.Background()
			user := newAccount("alice", "a@x.com")
			Expect(repo.Create(ctx, user)).To(Succeed())

			_, digest, err := auth.GenerateToken()
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.SetResetToken(ctx, user.ID, digest, time.Now().Add(auth.ResetTokenTTL))).To(Succeed())
			Expect(repo.ClearResetToken(ctx, user.ID)).To(Succeed())

			_, err = repo.ConsumeResetToken(ctx, digest, "newhash", time.Now())
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})
})
