package mail

import (
	"context"

	"github.com/dmitrijs2005/chirper/internal/logging"
)

// LogSender writes mails to the log instead of sending them. It is used
// when no SMTP host is configured.
type LogSender struct {
	links Links
	log   logging.Logger
}

func NewLogSender(links Links, log logging.Logger) *LogSender {
	return &LogSender{links: links, log: log.With("module", "mail")}
}

func (s *LogSender) SendVerificationEmail(ctx context.Context, to string, m VerificationMail) error {
	link, err := withToken(s.links.EmailVerifyURL, m.Token)
	if err != nil {
		return err
	}
	s.log.Info(ctx, "verification mail", "to", to, "link", link)
	return nil
}

func (s *LogSender) SendPasswordResetEmail(ctx context.Context, to string, m PasswordResetMail) error {
	link, err := withToken(s.links.PasswordResetURL, m.Token)
	if err != nil {
		return err
	}
	s.log.Info(ctx, "password reset mail", "to", to, "link", link, "expires_in_minutes", m.ExpiryMinutes)
	return nil
}
