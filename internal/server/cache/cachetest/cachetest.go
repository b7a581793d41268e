// Package cachetest starts an in-memory Redis for tests of cache users.
package cachetest

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/chirper/internal/logging"
	"github.com/dmitrijs2005/chirper/internal/server/cache"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient returns a cache.Client backed by miniredis. The server is shut
// down when the test ends; use the returned *miniredis.Miniredis to inspect
// keys or fast-forward TTLs.
func NewClient(t testing.TB, prefix string, defaultTTL time.Duration) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()

	mini := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	client := cache.NewWithRedis(rdb, prefix, defaultTTL, logging.Nop())
	t.Cleanup(func() { _ = client.Close() })

	return client, mini
}
