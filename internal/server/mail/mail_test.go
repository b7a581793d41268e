package mail

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/chirper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLinks = Links{
	EmailVerifyURL:   "https://app.example.com/verify-email",
	PasswordResetURL: "https://app.example.com/reset-password?lang=en",
}

type captured struct {
	to  string
	msg string
}

func newCapturingSender(cfg SMTPConfig, sendErr error) (*SMTPSender, *[]captured) {
	var sent []captured
	s := NewSMTPSender(cfg, logging.Nop())
	s.send = func(ctx context.Context, to string, msg []byte) error {
		sent = append(sent, captured{to: to, msg: string(msg)})
		return sendErr
	}
	return s, &sent
}

func TestSMTPSender_VerificationMail(t *testing.T) {
	s, sent := newCapturingSender(SMTPConfig{From: "noreply@example.com", Links: testLinks}, nil)

	err := s.SendVerificationEmail(context.Background(), "ada@example.com", VerificationMail{FirstName: "Ada", Token: "abc123"})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	m := (*sent)[0]
	assert.Equal(t, "ada@example.com", m.to)
	assert.Contains(t, m.msg, "From: noreply@example.com\r\n")
	assert.Contains(t, m.msg, "To: ada@example.com\r\n")
	assert.Contains(t, m.msg, "Subject: Verify your email\r\n")
	assert.Contains(t, m.msg, "Hello Ada,")
	assert.Contains(t, m.msg, "https://app.example.com/verify-email?token=abc123")
}

func TestSMTPSender_PasswordResetMail(t *testing.T) {
	s, sent := newCapturingSender(SMTPConfig{From: "noreply@example.com", Links: testLinks}, nil)

	err := s.SendPasswordResetEmail(context.Background(), "ada@example.com", PasswordResetMail{Token: "r1", ExpiryMinutes: 10})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	m := (*sent)[0].msg
	assert.Contains(t, m, "Subject: Password Reset\r\n")
	assert.Contains(t, m, "Hello there,")
	assert.Contains(t, m, "expires in 10 minutes")
	assert.Contains(t, m, "https://app.example.com/reset-password?lang=en&token=r1")
}

func TestSMTPSender_MissingLink(t *testing.T) {
	s, sent := newCapturingSender(SMTPConfig{From: "noreply@example.com"}, nil)

	err := s.SendVerificationEmail(context.Background(), "ada@example.com", VerificationMail{Token: "t"})
	assert.ErrorIs(t, err, ErrLinkNotConfigured)
	err = s.SendPasswordResetEmail(context.Background(), "ada@example.com", PasswordResetMail{Token: "t"})
	assert.ErrorIs(t, err, ErrLinkNotConfigured)
	assert.Empty(t, *sent)
}

func TestSMTPSender_DeliveryErrorPropagates(t *testing.T) {
	boom := errors.New("relay refused")
	s, _ := newCapturingSender(SMTPConfig{Links: testLinks}, boom)

	err := s.SendVerificationEmail(context.Background(), "ada@example.com", VerificationMail{Token: "t"})
	assert.ErrorIs(t, err, boom)
}

func TestSMTPSender_DeliverUnreachableHost(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: 1, From: "noreply@example.com", Links: testLinks}, logging.Nop())

	err := s.SendVerificationEmail(context.Background(), "ada@example.com", VerificationMail{Token: "t"})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "smtp dial"), err.Error())
}

func TestLogSender_LogsLinks(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(testLinks, logging.NewJSONLogger(&buf, "info"))

	require.NoError(t, s.SendVerificationEmail(context.Background(), "ada@example.com", VerificationMail{Token: "v1"}))
	require.NoError(t, s.SendPasswordResetEmail(context.Background(), "ada@example.com", PasswordResetMail{Token: "r1", ExpiryMinutes: 10}))

	out := buf.String()
	assert.Contains(t, out, "verify-email?token=v1")
	assert.Contains(t, out, "token=r1")
	assert.Contains(t, out, `"module":"mail"`)
}

func TestLogSender_MissingLink(t *testing.T) {
	s := NewLogSender(Links{}, logging.Nop())

	assert.ErrorIs(t, s.SendVerificationEmail(context.Background(), "a@b.c", VerificationMail{}), ErrLinkNotConfigured)
}
