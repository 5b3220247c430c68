// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	gomail "github.com/wneessen/go-mail"

	"github.com/escrowpp/escrowpp/internal/config"
)

// Retry policy for transient SMTP failures. Dispatch is awaited within
// the request, so the total budget stays small.
const (
	sendAttempts     = 3
	sendBackoffFloor = 500 * time.Millisecond
)

// sender abstracts the go-mail client for testing.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPMailer implements auth.Mailer over SMTP.
type SMTPMailer struct {
	sender  sender
	from    string
	baseURL string
}

// NewSMTPMailer creates an SMTPMailer from transport settings. baseURL
// is the public origin the emailed links point at.
func NewSMTPMailer(cfg config.SMTP, baseURL string) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, oops.Code("MAIL_CLIENT_FAILED").
			With("host", cfg.Host).
			Wrap(err)
	}

	return &SMTPMailer{sender: client, from: cfg.From, baseURL: baseURL}, nil
}

// SendVerification delivers the email-verification token.
func (m *SMTPMailer) SendVerification(ctx context.Context, to, username, token string) error {
	link := fmt.Sprintf("%s/api/auth/verify-email/%s", m.baseURL, token)
	text, html := verificationBody(username, link)
	return m.send(ctx, to, verificationSubject, text, html)
}

// SendPasswordReset delivers the password-reset token.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, username, token string) error {
	link := fmt.Sprintf("%s/reset-password/%s", m.baseURL, token)
	text, html := resetBody(username, link)
	return m.send(ctx, to, resetSubject, text, html)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, text, html string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat("Escrow++", m.from); err != nil {
		return oops.Code("MAIL_INVALID_FROM").With("from", m.from).Wrap(err)
	}
	if err := msg.To(to); err != nil {
		return oops.Code("MAIL_INVALID_RECIPIENT").Wrap(err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, text)
	msg.AddAlternativeString(gomail.TypeTextHTML, html)

	backoff := retry.WithMaxRetries(sendAttempts-1, retry.NewExponential(sendBackoffFloor))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("subject", subject).
			Wrap(err)
	}
	return nil
}
