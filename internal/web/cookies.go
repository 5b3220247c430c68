// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// sessionCookies writes and clears the HTTP-only session cookie.
type sessionCookies struct {
	name   string
	maxAge time.Duration
	secure bool
}

func newSessionCookies(name string, maxAge time.Duration, secure bool) *sessionCookies {
	return &sessionCookies{name: name, maxAge: maxAge, secure: secure}
}

// set attaches the session credential as an HTTP-only cookie so client
// script cannot read it.
func (sc *sessionCookies) set(c *gin.Context, credential string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.name, credential, int(sc.maxAge.Seconds()), "/", "", sc.secure, true)
}

// clear expires the session cookie immediately. Logout is advisory:
// the server holds no revocation list, so an already-captured
// credential stays valid until its expiry.
func (sc *sessionCookies) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.name, "", -1, "/", "", sc.secure, true)
}

// read returns the session credential from the cookie, or "" when the
// cookie is absent.
func (sc *sessionCookies) read(c *gin.Context) string {
	credential, err := c.Cookie(sc.name)
	if err != nil {
		return ""
	}
	return credential
}
