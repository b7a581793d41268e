// Package sessions keeps the per-user list of live sessions in the cache.
//
// A user with no cached entry is not signed in anywhere. The cache entry is
// overwritten wholesale on every change; merging is the caller's job.
package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/chirper/internal/server/cache"
	"github.com/dmitrijs2005/chirper/internal/server/models"
)

const keyPrefix = "user"

// Session is one signed-in device or client.
type Session struct {
	SessionID    string `json:"sessionId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	OriginURL    string `json:"originUrl,omitempty"`
}

// CachedUser is the cached projection of a user plus all of its sessions.
type CachedUser struct {
	models.PublicUser
	Sessions []Session `json:"sessions"`
}

// AuthUser is the caller of an authenticated request: the user and the one
// session it presented.
type AuthUser struct {
	models.PublicUser
	Session Session `json:"session"`
}

// SessionByAccessToken returns the session holding token, if any.
func (u *CachedUser) SessionByAccessToken(token string) (Session, bool) {
	for _, s := range u.Sessions {
		if s.AccessToken == token {
			return s, true
		}
	}
	return Session{}, false
}

// SessionByRefreshToken returns the session holding token, if any.
func (u *CachedUser) SessionByRefreshToken(token string) (Session, bool) {
	for _, s := range u.Sessions {
		if s.RefreshToken == token {
			return s, true
		}
	}
	return Session{}, false
}

// WithoutRefreshToken returns the sessions that do not hold token.
func (u *CachedUser) WithoutRefreshToken(token string) []Session {
	out := make([]Session, 0, len(u.Sessions))
	for _, s := range u.Sessions {
		if s.RefreshToken != token {
			out = append(out, s)
		}
	}
	return out
}

// WithoutAccessToken returns the sessions that do not hold token.
func (u *CachedUser) WithoutAccessToken(token string) []Session {
	out := make([]Session, 0, len(u.Sessions))
	for _, s := range u.Sessions {
		if s.AccessToken != token {
			out = append(out, s)
		}
	}
	return out
}

// Cache stores CachedUser snapshots under user:<id>.
type Cache struct {
	store *cache.TypedStore[CachedUser]
	ttl   time.Duration
}

// NewCache returns a session cache writing entries with ttl. A zero ttl
// selects the client's default.
func NewCache(client *cache.Client, ttl time.Duration) *Cache {
	return &Cache{store: cache.NewTypedStore[CachedUser](client, keyPrefix), ttl: ttl}
}

// SetUser overwrites the cached entry for u.ID.
func (c *Cache) SetUser(ctx context.Context, u *CachedUser) error {
	if u == nil || u.ID == "" {
		return fmt.Errorf("session cache: user id is required")
	}
	return c.store.Save(ctx, u.ID, u, c.ttl)
}

// GetUser returns the cached entry for userID; found is false when the user
// has no live sessions.
func (c *Cache) GetUser(ctx context.Context, userID string) (*CachedUser, bool, error) {
	u, err := c.store.Load(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if u == nil {
		return nil, false, nil
	}
	return u, true, nil
}

// ClearUser removes the cached entry. Clearing a missing entry succeeds.
func (c *Cache) ClearUser(ctx context.Context, userID string) error {
	return c.store.Delete(ctx, userID)
}
