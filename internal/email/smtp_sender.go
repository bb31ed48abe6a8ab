package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
)

// SMTPConfig agrupa los parametros del servidor de correo.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	UseTLS   bool
}

// SMTPSender envia correos via SMTP.
type SMTPSender struct {
	cfg     SMTPConfig
	deliver func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("smtp from is invalid: %w", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	s := &SMTPSender{cfg: cfg}
	if cfg.UseTLS {
		s.deliver = s.sendImplicitTLS
	} else {
		s.deliver = smtp.SendMail
	}
	return s, nil
}

func (s *SMTPSender) SendVerificationCode(_ context.Context, toEmail, toName, code string, expiresAt time.Time) error {
	to, err := mail.ParseAddress(strings.TrimSpace(toEmail))
	if err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	to.Name = toName

	greeting := "Hello"
	if strings.TrimSpace(toName) != "" {
		greeting = "Hello " + strings.TrimSpace(toName)
	}
	body := fmt.Sprintf(
		"%s,\n\nUse the code %s to confirm the email on your account.\nThe code expires at %s UTC.\n\nIf you did not request it, ignore this message.\n",
		greeting,
		code,
		expiresAt.UTC().Format(time.RFC3339),
	)
	msg := s.buildMessage(to, "Confirm your email", body)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	return s.deliver(addr, auth, s.cfg.From, []string{to.Address}, []byte(msg))
}

// sendImplicitTLS abre la conexion ya cifrada (puerto 465) en lugar de STARTTLS.
func (s *SMTPSender) sendImplicitTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write(msg); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

func (s *SMTPSender) buildMessage(to *mail.Address, subject, body string) string {
	from := mail.Address{Name: s.cfg.FromName, Address: s.cfg.From}
	if parsed, err := mail.ParseAddress(s.cfg.From); err == nil {
		from.Address = parsed.Address
	}

	headers := []string{
		"From: " + from.String(),
		"To: " + to.String(),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
	}
	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}
