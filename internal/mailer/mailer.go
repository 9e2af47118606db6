// Package mailer delivers transactional email (verification codes, reset
// links) over SMTP. Sends are fire-and-forget from the caller's point of
// view: failures are reported, never retried.
package mailer

import (
	"fmt"
	"log/slog"
	"net/mail"
	"net/smtp"

	"github.com/scorredoira/email"
)

// Config holds SMTP connection settings.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// Sender delivers a single message to one recipient.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// Mailer sends HTML email via SMTP. A Mailer with an empty host is
// disabled and logs instead of sending, so local development works
// without an SMTP server.
type Mailer struct {
	cfg Config
}

// New creates a Mailer.
func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// Enabled reports whether an SMTP host is configured.
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != ""
}

// Send delivers one HTML message. Returns the delivery error verbatim;
// callers decide whether it is fatal.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	if !m.Enabled() {
		slog.Info("mail host not configured, skipping send", "to", to, "subject", subject)
		return nil
	}

	msg := email.NewHTMLMessage(subject, htmlBody)
	msg.From = mail.Address{Name: m.cfg.FromName, Address: m.cfg.FromAddress}
	msg.To = []string{to}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	if err := email.Send(addr, auth, msg); err != nil {
		slog.Error("failed to send email", "to", to, "error", err)
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	slog.Info("sent email", "to", to, "subject", subject)
	return nil
}
