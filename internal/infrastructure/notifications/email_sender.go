package notifications

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/tourbase/backend/pkg/config"
)

// EmailSender sends transactional mail over SMTP
type EmailSender struct {
	addr string
	auth smtp.Auth
	from string
}

// NewEmailSender creates a new SMTP sender from config
func NewEmailSender(cfg *config.SMTPConfig) (*EmailSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP_HOST must be set")
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &EmailSender{
		addr: cfg.SMTPAddr(),
		auth: auth,
		from: cfg.From,
	}, nil
}

// Send sends a plain-text email
func (s *EmailSender) Send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
