// Package mail sends transactional email.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/emilythestrangee/subreddit/backend/internal/config"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.SMTP) *SMTPMailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	return &SMTPMailer{dialer: d, from: cfg.From}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer logs instead of sending. Used when SMTP is not configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Send(ctx context.Context, to, subject, _ string) error {
	m.Logger.InfoContext(ctx, "mail not sent, smtp disabled", "to", to, "subject", subject)
	return nil
}

// VerificationHTML renders the body of the email confirmation message.
func VerificationHTML(username, link string) string {
	return fmt.Sprintf(
		`<p>Hi %s,</p><p>Confirm your email address by opening <a href="%s">this link</a>.</p>`,
		html.EscapeString(username), html.EscapeString(link),
	)
}
