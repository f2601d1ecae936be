package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"teleconsult-backend/pkg/config"
	"teleconsult-backend/pkg/logger"

	"go.uber.org/zap"
)

// Sender delivers lifecycle emails to consultation participants.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends mail through a plain SMTP relay.
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogSender logs emails instead of sending them. Used when SMTP is
// disabled.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, subject, _ string) error {
	logger.Log.Info("email suppressed, smtp disabled",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}

// NewSender picks the SMTP sender when enabled, the log sender
// otherwise.
func NewSender(cfg config.SMTPConfig) Sender {
	if cfg.Enabled && cfg.Host != "" {
		return NewSMTPSender(cfg)
	}
	return LogSender{}
}
