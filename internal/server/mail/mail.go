// Package mail delivers the account emails the auth service sends.
package mail

import (
	"context"
	"errors"
	"net/url"
)

// ErrLinkNotConfigured is returned when the link base URL for a mail is empty.
var ErrLinkNotConfigured = errors.New("mail link url is not set")

// VerificationMail carries what an email verification message needs.
type VerificationMail struct {
	FirstName string
	Token     string
}

// PasswordResetMail carries what a password reset message needs.
type PasswordResetMail struct {
	FirstName     string
	Token         string
	ExpiryMinutes int
}

// Sender delivers account emails.
type Sender interface {
	SendVerificationEmail(ctx context.Context, to string, m VerificationMail) error
	SendPasswordResetEmail(ctx context.Context, to string, m PasswordResetMail) error
}

// Links holds the pages the mails point at; the token is appended as a
// query parameter.
type Links struct {
	EmailVerifyURL   string
	PasswordResetURL string
}

func withToken(base, token string) (string, error) {
	if base == "" {
		return "", ErrLinkNotConfigured
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
