// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

// Package web exposes the account service over HTTP.
//
// All routes live under /api. The session credential travels in an
// HTTP-only cookie, with an Authorization bearer header accepted as a
// fallback; when both are present the cookie wins. Handlers translate
// service errors into the status codes and machine-readable flags the
// client branches on, and never leak internal detail in responses.
package web
