package services

import (
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/aoe-board/tournament-board/config"
)

// EmailSender delivers notification mail. Implementations must be safe for
// concurrent use.
type EmailSender interface {
	SendEmail(to []string, subject string, body string) error
}

type smtpEmailService struct {
	cfg *config.Config
}

func NewEmailService(cfg *config.Config) EmailSender {
	return &smtpEmailService{cfg: cfg}
}

func (s *smtpEmailService) SendEmail(to []string, subject string, body string) error {
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)

	msg := []byte("To: " + to[0] + "\r\n" +
		"From: " + s.cfg.SMTPFrom + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	tlsconfig := &tls.Config{
		ServerName: s.cfg.SMTPHost,
	}

	var client *smtp.Client
	var err error
	if s.cfg.SMTPPort == 465 {
		// Implicit TLS (port 465).
		conn, dialErr := tls.Dial("tcp", addr, tlsconfig)
		if dialErr != nil {
			return fmt.Errorf("smtp tls dial failed: %w", dialErr)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("smtp client creation failed: %w", err)
		}
	} else {
		// STARTTLS (usually port 587).
		client, err = smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial failed: %w", err)
		}
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("smtp STARTTLS failed: %w", err)
		}
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth failed: %w", err)
	}
	if err = client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	for _, recipient := range to {
		if err = client.Rcpt(recipient); err != nil {
			return fmt.Errorf("smtp RCPT TO %s failed: %w", recipient, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("smtp body write failed: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("smtp body close failed: %w", err)
	}

	return client.Quit()
}
