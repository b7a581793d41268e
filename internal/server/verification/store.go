// Package verification stores one-time tokens (email verification, password
// reset) as two mirrored cache entries so they can be looked up from either
// the user or the token side.
package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/chirper/internal/server/cache"
)

// Purpose namespaces a token family. Purposes never share keys.
type Purpose string

const (
	EmailVerify   Purpose = "email-verify"
	PasswordReset Purpose = "password-reset"
)

// Store keeps <purpose>:userId:<id> -> token and <purpose>:token:<token> -> id
// in sync. At most one live token exists per user and purpose.
type Store struct {
	client     *cache.Client
	purpose    Purpose
	defaultTTL time.Duration
}

// NewStore returns a store for purpose. defaultTTL applies when Save is
// called with a zero ttl; zero here falls through to the client default.
func NewStore(client *cache.Client, purpose Purpose, defaultTTL time.Duration) *Store {
	return &Store{client: client, purpose: purpose, defaultTTL: defaultTTL}
}

func (s *Store) userKey(userID string) string {
	return string(s.purpose) + ":userId:" + userID
}

func (s *Store) tokenKey(token string) string {
	return string(s.purpose) + ":token:" + token
}

// Save replaces any existing token of userID with token.
func (s *Store) Save(ctx context.Context, userID, token string, ttl time.Duration) error {
	if err := s.ClearByUser(ctx, userID); err != nil {
		return err
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if err := s.client.SetPair(ctx, s.userKey(userID), token, s.tokenKey(token), userID, ttl); err != nil {
		return fmt.Errorf("%s token save: %w", s.purpose, err)
	}
	return nil
}

// TokenByUser returns the live token of userID.
func (s *Store) TokenByUser(ctx context.Context, userID string) (string, bool, error) {
	return s.client.Get(ctx, s.userKey(userID))
}

// UserByToken returns the user a live token belongs to.
func (s *Store) UserByToken(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}
	return s.client.Get(ctx, s.tokenKey(token))
}

// ClearByUser removes both entries of the user's token. It succeeds when
// there is nothing to remove.
func (s *Store) ClearByUser(ctx context.Context, userID string) error {
	token, ok, err := s.TokenByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s token clear: %w", s.purpose, err)
	}
	if !ok {
		return nil
	}
	if err := s.client.Del(ctx, s.userKey(userID), s.tokenKey(token)); err != nil {
		return fmt.Errorf("%s token clear: %w", s.purpose, err)
	}
	return nil
}
