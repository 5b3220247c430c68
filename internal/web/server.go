// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/escrowpp/escrowpp/internal/auth"
	"github.com/escrowpp/escrowpp/internal/config"
	"github.com/escrowpp/escrowpp/internal/observability"
)

// Server is the HTTP front of the account service.
type Server struct {
	addr        string
	baseURL     string
	corsOrigins []string

	accounts *auth.AccountService
	issuer   *auth.SessionIssuer
	cookies  *sessionCookies
	metrics  *observability.Metrics

	engine     *gin.Engine
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer wires the HTTP routes. metrics may be nil, in which case
// no counters are recorded.
func NewServer(cfg config.Config, accounts *auth.AccountService, issuer *auth.SessionIssuer, metrics *observability.Metrics) (*Server, error) {
	if accounts == nil {
		return nil, oops.Errorf("account service is required")
	}
	if issuer == nil {
		return nil, oops.Errorf("session issuer is required")
	}

	s := &Server{
		addr:        cfg.Server.Addr,
		baseURL:     cfg.Server.BaseURL,
		corsOrigins: cfg.Server.CORSOrigins,
		accounts:    accounts,
		issuer:      issuer,
		cookies:     newSessionCookies(cfg.Session.CookieName, issuer.TTL(), cfg.Session.CookieSecure),
		metrics:     metrics,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	if len(s.corsOrigins) > 0 {
		engine.Use(corsMiddleware(s.corsOrigins))
	}
	s.registerRoutes(engine)
	s.engine = engine

	return s, nil
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	api := engine.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.handleRegister)
	authGroup.GET("/verify-email/:token", s.handleVerifyEmail)
	authGroup.POST("/resend-verification", s.handleResendVerification)
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/logout", s.handleLogout)
	authGroup.POST("/forgot-password", s.handleForgotPassword)
	authGroup.POST("/reset-password/:token", s.handleResetPassword)
	authGroup.POST("/get-email-by-username", s.handleEmailByUsername)
	authGroup.GET("/me", s.requireAuth(), s.handleMe)
	authGroup.GET("/session", s.optionalAuth(), s.handleSession)

	users := api.Group("/users")
	users.GET("/stats", s.requireAuth(), s.handleStats)
}

// Handler returns the route handler, primarily for tests driving the
// server through httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving HTTP requests. It returns an error channel that
// receives any error from the HTTP server after it starts; the channel
// is closed when the server stops gracefully.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server, letting in-flight requests
// finish within the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_web_server").Wrap(err)
		}
	}

	slog.Info("web server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// requestLogger emits one structured line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) countRegistration() {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.Inc()
	}
}

func (s *Server) countLogin(status string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Server) countEmail(kind, status string) {
	if s.metrics != nil {
		s.metrics.EmailsTotal.WithLabelValues(kind, status).Inc()
	}
}
