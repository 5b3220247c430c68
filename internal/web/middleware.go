// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/escrowpp/escrowpp/internal/auth"
)

// currentUserKey is the gin context key the access guard stores the
// authenticated account under.
const currentUserKey = "currentUser"

// currentUser returns the account the access guard attached to the
// request, or nil for anonymous requests.
func currentUser(c *gin.Context) *auth.UserAccount {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, ok := v.(*auth.UserAccount)
	if !ok {
		return nil
	}
	return user
}

// credential extracts the session credential from the request: the
// cookie takes precedence, the Authorization bearer header is the
// fallback.
func (s *Server) credential(c *gin.Context) string {
	if cred := s.cookies.read(c); cred != "" {
		return cred
	}
	header := c.GetHeader("Authorization")
	if rest, found := strings.CutPrefix(header, "Bearer "); found {
		return strings.TrimSpace(rest)
	}
	return ""
}

// requireAuth is the access guard for protected routes. It rejects
// with distinct messages for each failure kind so the client can
// branch, and re-checks account existence and verification status on
// every request so those changes take effect without a re-login.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := s.credential(c)
		if cred == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
			return
		}

		userID, err := s.issuer.Validate(cred)
		if err != nil {
			if errors.Is(err, auth.ErrSessionExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Session expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
			return
		}

		user, err := s.accounts.GetUser(c.Request.Context(), userID)
		if err != nil {
			// The account behind a once-valid credential is gone.
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Stale session"})
			return
		}
		if !user.Verified {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message":          "Please verify your email",
				"emailNotVerified": true,
			})
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// optionalAuth performs the same checks as requireAuth but proceeds
// anonymously on any failure instead of rejecting. Used by endpoints
// that behave differently for authenticated callers.
func (s *Server) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := s.credential(c)
		if cred == "" {
			c.Next()
			return
		}

		userID, err := s.issuer.Validate(cred)
		if err != nil {
			c.Next()
			return
		}

		user, err := s.accounts.GetUser(c.Request.Context(), userID)
		if err != nil || !user.Verified {
			c.Next()
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// corsMiddleware answers preflight requests and sets the allow headers
// for the configured origins. An empty origin list disables CORS
// entirely, which is correct for same-origin deployments.
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || !allowed[origin] {
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
