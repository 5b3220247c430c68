// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

// Package mail delivers account lifecycle emails over SMTP.
package mail

import "fmt"

// Subjects for the two lifecycle emails.
const (
	verificationSubject = "Verify your Escrow++ email"
	resetSubject        = "Reset your Escrow++ password"
)

// verificationBody renders the plaintext and HTML bodies for a
// verification email. The link hits the API, which redirects to the
// client's success page.
func verificationBody(username, link string) (text, html string) {
	text = fmt.Sprintf(
		"Hi %s,\n\n"+
			"Welcome to Escrow++! Please verify your email address by visiting the link below:\n\n"+
			"%s\n\n"+
			"The link is valid for 24 hours. If you did not create an account, you can ignore this email.\n",
		username, link)

	html = fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Welcome to Escrow++! Please verify your email address by clicking the button below:</p>
<p><a href="%s">Verify email</a></p>
<p>The link is valid for 24 hours. If you did not create an account, you can ignore this email.</p>`,
		username, link)

	return text, html
}

// resetBody renders the plaintext and HTML bodies for a password reset
// email. The link opens the client's reset form, which submits the
// token back to the API.
func resetBody(username, link string) (text, html string) {
	text = fmt.Sprintf(
		"Hi %s,\n\n"+
			"We received a request to reset your Escrow++ password. Visit the link below to choose a new one:\n\n"+
			"%s\n\n"+
			"The link is valid for 1 hour. If you did not request a reset, you can ignore this email and your password will stay unchanged.\n",
		username, link)

	html = fmt.Sprintf(
		`<p>Hi %s,</p>
<p>We received a request to reset your Escrow++ password. Click the button below to choose a new one:</p>
<p><a href="%s">Reset password</a></p>
<p>The link is valid for 1 hour. If you did not request a reset, you can ignore this email and your password will stay unchanged.</p>`,
		username, link)

	return text, html
}
