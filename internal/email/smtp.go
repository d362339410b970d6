// Package email delivers notification mail over SMTP.
package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/quest4deals/quest4deals/internal/config"
	"github.com/quest4deals/quest4deals/pkg/logger"
)

// Sender dispatches a single message to one recipient address.
type Sender interface {
	Send(to, subject, body string) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(to, subject, body string) error

func (f SenderFunc) Send(to, subject, body string) error {
	if f == nil {
		return nil
	}
	return f(to, subject, body)
}

// SMTPSender sends mail through a configured SMTP relay. Ports 587 and 465
// are handled with STARTTLS/SSL by net/smtp.
type SMTPSender struct {
	cfg config.SMTPConfig
	log *logger.Logger
}

// NewSMTPSender creates a sender from SMTP configuration.
func NewSMTPSender(cfg config.SMTPConfig, log *logger.Logger) *SMTPSender {
	if log == nil {
		log = logger.NewDefault("email")
	}
	return &SMTPSender{cfg: cfg, log: log}
}

// Send assembles an HTML message and transmits it.
func (s *SMTPSender) Send(to, subject, body string) error {
	if s.cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	if s.cfg.From == "" {
		return fmt.Errorf("smtp from address not configured")
	}
	if s.cfg.Port <= 0 {
		return fmt.Errorf("smtp port not configured")
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("no recipient")
	}

	fromHeader := s.cfg.From
	if s.cfg.FromName != "" {
		fromHeader = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From)
	}

	msg := []byte("From: " + fromHeader + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		body + "\r\n")

	var auth smtp.Auth
	if s.cfg.Username != "" && s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	s.log.WithField("to", to).WithField("subject", subject).Debug("email sent")
	return nil
}
