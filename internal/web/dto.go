// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

package web

import (
	"time"

	"github.com/escrowpp/escrowpp/internal/auth"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

type usernameRequest struct {
	Username string `json:"username" binding:"required"`
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// userView is the client-facing projection of an account. It never
// carries the password hash or token fields.
type userView struct {
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Balance     int       `json:"balance"`
	GamesPlayed int       `json:"gamesPlayed"`
	GamesWon    int       `json:"gamesWon"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"createdAt"`
}

type statsView struct {
	Username    string `json:"username"`
	Balance     int    `json:"balance"`
	GamesPlayed int    `json:"gamesPlayed"`
	GamesWon    int    `json:"gamesWon"`
}

func viewOf(user *auth.UserAccount) userView {
	return userView{
		Username:    user.Username,
		Email:       user.Email,
		Balance:     user.Balance,
		GamesPlayed: user.GamesPlayed,
		GamesWon:    user.GamesWon,
		Verified:    user.Verified,
		CreatedAt:   user.CreatedAt,
	}
}

func statsOf(user *auth.UserAccount) statsView {
	return statsView{
		Username:    user.Username,
		Balance:     user.Balance,
		GamesPlayed: user.GamesPlayed,
		GamesWon:    user.GamesWon,
	}
}
