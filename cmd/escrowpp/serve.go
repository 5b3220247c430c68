// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/escrowpp/escrowpp/internal/auth"
	authpg "github.com/escrowpp/escrowpp/internal/auth/postgres"
	"github.com/escrowpp/escrowpp/internal/config"
	"github.com/escrowpp/escrowpp/internal/logging"
	"github.com/escrowpp/escrowpp/internal/mail"
	"github.com/escrowpp/escrowpp/internal/observability"
	"github.com/escrowpp/escrowpp/internal/store"
	"github.com/escrowpp/escrowpp/internal/web"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account service",
		Long: `Start the HTTP account service: registration, email verification,
login, password reset, and the protected account endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	cmd.Flags().String("server.addr", "", "HTTP listen address")
	cmd.Flags().String("server.base_url", "", "public base URL used in email links and redirects")
	cmd.Flags().String("metrics.addr", "", "metrics/health HTTP address (empty = default)")
	cmd.Flags().String("log_format", "", "log format (json or text)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("escrowpp", version, cfg.LogFormat)

	slog.Info("starting account service",
		"addr", cfg.Server.Addr,
		"log_format", cfg.LogFormat,
	)

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	slog.Info("connected to database")

	users := authpg.NewUserRepository(pool)
	hasher := auth.NewArgon2idHasher()
	issuer, err := auth.NewSessionIssuer([]byte(cfg.Session.Secret))
	if err != nil {
		return err
	}
	mailer, err := mail.NewSMTPMailer(cfg.SMTP, cfg.Server.BaseURL)
	if err != nil {
		return err
	}

	accounts, err := auth.NewAccountService(users, hasher, issuer, mailer)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	obsServer := observability.NewServer(cfg.Metrics.Addr, func() bool {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer pingCancel()
		return pool.Ping(pingCtx) == nil
	})
	obsErrCh, err := obsServer.Start()
	if err != nil {
		return oops.With("operation", "start observability server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, obsErrCh, "observability")

	webServer, err := web.NewServer(*cfg, accounts, issuer, obsServer.Metrics())
	if err != nil {
		return err
	}
	webErrCh, err := webServer.Start()
	if err != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		if stopErr := obsServer.Stop(stopCtx); stopErr != nil {
			slog.Warn("failed to stop observability server during cleanup", "error", stopErr)
		}
		return oops.With("operation", "start web server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, webErrCh, "web")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Account service started")
	slog.Info("account service ready",
		"addr", webServer.Addr(),
		"metrics_addr", obsServer.Addr(),
	)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping web server", "error", err)
	}
	if err := obsServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors monitors a server's error channel and cancels the
// context on error so a failed server triggers graceful shutdown of the
// whole process. It exits when an error arrives, the channel closes, or
// the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
