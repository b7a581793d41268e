package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/dmitrijs2005/chirper/internal/logging"
)

// SMTPConfig configures SMTPSender. Port 465 uses implicit TLS; any other
// port upgrades with STARTTLS when the server offers it.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Links    Links
}

// SMTPSender sends plain-text mails through an SMTP relay.
type SMTPSender struct {
	cfg  SMTPConfig
	log  logging.Logger
	send func(ctx context.Context, to string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig, log logging.Logger) *SMTPSender {
	s := &SMTPSender{cfg: cfg, log: log.With("module", "mail")}
	s.send = s.deliver
	return s
}

func (s *SMTPSender) SendVerificationEmail(ctx context.Context, to string, m VerificationMail) error {
	link, err := withToken(s.cfg.Links.EmailVerifyURL, m.Token)
	if err != nil {
		return fmt.Errorf("verification mail: %w", err)
	}

	var body bytes.Buffer
	fmt.Fprintf(&body, "Hello %s,\r\n\r\n", greetingName(m.FirstName))
	fmt.Fprintf(&body, "Please confirm your email address by opening the link below:\r\n\r\n%s\r\n", link)

	return s.send(ctx, to, s.message(to, "Verify your email", body.Bytes()))
}

func (s *SMTPSender) SendPasswordResetEmail(ctx context.Context, to string, m PasswordResetMail) error {
	link, err := withToken(s.cfg.Links.PasswordResetURL, m.Token)
	if err != nil {
		return fmt.Errorf("password reset mail: %w", err)
	}

	var body bytes.Buffer
	fmt.Fprintf(&body, "Hello %s,\r\n\r\n", greetingName(m.FirstName))
	fmt.Fprintf(&body, "Use the link below to choose a new password. It expires in %d minutes.\r\n\r\n%s\r\n", m.ExpiryMinutes, link)
	body.WriteString("\r\nIf you did not ask for a password reset, ignore this email.\r\n")

	return s.send(ctx, to, s.message(to, "Password Reset", body.Bytes()))
}

func (s *SMTPSender) message(to, subject string, body []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.Write(body)
	return b.Bytes()
}

func (s *SMTPSender) deliver(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	tlsCfg := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	var (
		conn net.Conn
		err  error
	)
	if s.cfg.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsCfg}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	if s.cfg.Port != 465 {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsCfg); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if s.cfg.User != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}

	s.log.Debug(ctx, "mail sent", "to", to)
	return c.Quit()
}

func greetingName(first string) string {
	if first == "" {
		return "there"
	}
	return first
}
