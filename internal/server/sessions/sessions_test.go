package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/chirper/internal/server/cache/cachetest"
	"github.com/dmitrijs2005/chirper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUser() *CachedUser {
	return &CachedUser{
		PublicUser: models.PublicUser{ID: "u-1", Email: "ada@example.com", EmailVerified: true},
		Sessions: []Session{
			{SessionID: "s1", AccessToken: "a1", RefreshToken: "r1", OriginURL: "https://web"},
			{SessionID: "s2", AccessToken: "a2", RefreshToken: "r2"},
		},
	}
}

func TestCache_SetGetClear(t *testing.T) {
	client, mini := cachetest.NewClient(t, "", time.Hour)
	c := NewCache(client, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, c.SetUser(ctx, sampleUser()))
	assert.True(t, mini.Exists("user:u-1"))
	assert.Equal(t, 30*time.Minute, mini.TTL("user:u-1"))

	got, ok, err := c.GetUser(ctx, "u-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleUser(), got)

	require.NoError(t, c.ClearUser(ctx, "u-1"))
	_, ok, err = c.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.ClearUser(ctx, "u-1"), "clearing twice is not an error")
}

func TestCache_SetOverwritesWholesale(t *testing.T) {
	client, _ := cachetest.NewClient(t, "", time.Hour)
	c := NewCache(client, 0)
	ctx := context.Background()

	require.NoError(t, c.SetUser(ctx, sampleUser()))

	shrunk := sampleUser()
	shrunk.Sessions = shrunk.Sessions[:1]
	require.NoError(t, c.SetUser(ctx, shrunk))

	got, _, err := c.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Len(t, got.Sessions, 1)
}

func TestCache_SetUserRequiresID(t *testing.T) {
	client, _ := cachetest.NewClient(t, "", time.Hour)
	c := NewCache(client, 0)

	assert.Error(t, c.SetUser(context.Background(), &CachedUser{}))
	assert.Error(t, c.SetUser(context.Background(), nil))
}

func TestCachedUser_Lookups(t *testing.T) {
	u := sampleUser()

	s, ok := u.SessionByAccessToken("a2")
	assert.True(t, ok)
	assert.Equal(t, "s2", s.SessionID)

	_, ok = u.SessionByAccessToken("nope")
	assert.False(t, ok)

	s, ok = u.SessionByRefreshToken("r1")
	assert.True(t, ok)
	assert.Equal(t, "s1", s.SessionID)

	assert.Equal(t, []Session{u.Sessions[1]}, u.WithoutRefreshToken("r1"))
	assert.Equal(t, []Session{u.Sessions[0]}, u.WithoutAccessToken("a2"))
	assert.Len(t, u.Sessions, 2, "helpers must not mutate the receiver")
}
