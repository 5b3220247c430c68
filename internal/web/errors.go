// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/escrowpp/escrowpp/internal/auth"
	"github.com/escrowpp/escrowpp/pkg/errutil"
)

// writeError maps a service error onto a status code and a sanitized
// JSON body. Messages are fixed per failure kind rather than taken from
// the error chain, so wrapped internal detail never reaches the client.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username already taken"})
		return
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email already registered"})
		return
	}

	switch errutil.ErrorCode(err) {
	case "USER_INVALID_USERNAME", "USER_INVALID_EMAIL", "AUTH_EMPTY_PASSWORD":
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case "AUTH_TOKEN_INVALID":
		c.JSON(http.StatusBadRequest, gin.H{"message": "Token is invalid or has expired"})
	case "AUTH_ALREADY_VERIFIED":
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email is already verified"})
	case "AUTH_INVALID_CREDENTIALS":
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
	case "AUTH_EMAIL_NOT_VERIFIED":
		c.JSON(http.StatusUnauthorized, gin.H{
			"message":          "Please verify your email before logging in",
			"emailNotVerified": true,
		})
	case "USER_NOT_FOUND":
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
	case "MAIL_DELIVERY_FAILED":
		errutil.LogError(slog.Default(), "email delivery failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send email. Please try again later."})
	default:
		errutil.LogError(slog.Default(), "request failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
	}
}
