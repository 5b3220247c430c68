// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned when the username is already claimed.
var ErrUsernameTaken = errors.New("username already taken")

// ErrEmailTaken is returned when the email is already claimed.
var ErrEmailTaken = errors.New("email already registered")
