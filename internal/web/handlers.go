// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

package web

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/escrowpp/escrowpp/pkg/errutil"
)

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}

	result, err := s.accounts.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	s.countRegistration()

	// The account exists even when the verification email did not go
	// out; tell the user to request a resend rather than failing the
	// whole registration.
	if result.DeliveryErr != nil {
		errutil.LogError(slog.Default(), "verification email failed", result.DeliveryErr)
		s.countEmail("verification", "failure")
		c.JSON(http.StatusCreated, gin.H{
			"message": "Account created, but the verification email could not be sent. Please request a new one.",
			"user":    viewOf(result.User),
		})
		return
	}

	s.countEmail("verification", "success")
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. Please check your email to verify your account.",
		"user":    viewOf(result.User),
	})
}

func (s *Server) handleVerifyEmail(c *gin.Context) {
	if _, err := s.accounts.VerifyEmail(c.Request.Context(), c.Param("token")); err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, s.baseURL+"/verification-success")
}

func (s *Server) handleResendVerification(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required"})
		return
	}

	if err := s.accounts.ResendVerification(c.Request.Context(), req.Email); err != nil {
		if errutil.ErrorCode(err) == "MAIL_DELIVERY_FAILED" {
			s.countEmail("verification", "failure")
		}
		writeError(c, err)
		return
	}

	s.countEmail("verification", "success")
	c.JSON(http.StatusOK, gin.H{"message": "Verification email sent. Please check your inbox."})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}

	user, credential, err := s.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.countLogin("failure")
		writeError(c, err)
		return
	}

	s.countLogin("success")
	s.cookies.set(c, credential)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    viewOf(user),
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.cookies.clear(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) handleForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required"})
		return
	}

	if err := s.accounts.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		if errutil.ErrorCode(err) == "MAIL_DELIVERY_FAILED" {
			s.countEmail("reset", "failure")
		}
		writeError(c, err)
		return
	}

	s.countEmail("reset", "success")
	c.JSON(http.StatusOK, gin.H{"message": "Password reset email sent. Please check your inbox."})
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Password is required"})
		return
	}

	if err := s.accounts.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset. You can now log in."})
}

func (s *Server) handleMe(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, gin.H{"user": viewOf(user)})
}

// handleSession lets the client bootstrap its UI without triggering the
// guard's 401 variants: anonymous callers get authenticated=false.
func (s *Server) handleSession(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": viewOf(user)})
}

func (s *Server) handleEmailByUsername(c *gin.Context) {
	var req usernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username is required"})
		return
	}

	email, err := s.accounts.EmailByUsername(c.Request.Context(), req.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": email})
}

func (s *Server) handleStats(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, statsOf(user))
}
