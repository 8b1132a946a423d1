// Package cache holds per-feature vote counts between votes. Entries are
// dropped whenever a vote is recorded and otherwise expire after a TTL, so a
// cached count is never incremented in place.
//
// A reader that misses takes a Generation before counting from the store and
// hands it back to Set. Invalidate bumps the generation, so a count read
// before a vote committed can no longer be written back after it.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// CountCache stores vote counts keyed by feature id.
type CountCache interface {
	Get(ctx context.Context, featureID snowflake.ID) (int64, bool)
	// Generation returns the token to pass to Set after a miss.
	Generation(ctx context.Context, featureID snowflake.ID) uint64
	// Set stores count unless featureID was invalidated since gen was taken.
	// It reports whether the count was stored.
	Set(ctx context.Context, featureID snowflake.ID, count int64, gen uint64) bool
	Invalidate(ctx context.Context, featureID snowflake.ID)
}

// New picks the cache for the given settings: Nop when ttl <= 0, Redis when a
// client is supplied, otherwise an in-process Memory cache.
func New(ttl time.Duration, client redis.Cmdable) CountCache {
	switch {
	case ttl <= 0:
		return Nop{}
	case client != nil:
		return NewRedis(client, ttl)
	default:
		return NewMemory(ttl)
	}
}

// Nop never stores anything. Used when caching is disabled.
type Nop struct{}

func (Nop) Get(context.Context, snowflake.ID) (int64, bool)       { return 0, false }
func (Nop) Generation(context.Context, snowflake.ID) uint64       { return 0 }
func (Nop) Set(context.Context, snowflake.ID, int64, uint64) bool { return false }
func (Nop) Invalidate(context.Context, snowflake.ID)              {}

// Memory is an in-process CountCache backed by go-cache.
type Memory struct {
	c *gocache.Cache

	mu   sync.Mutex
	gens map[snowflake.ID]uint64
}

// NewMemory returns a Memory cache whose entries live for ttl. Expired
// entries are purged every 2*ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{c: gocache.New(ttl, 2*ttl), gens: make(map[snowflake.ID]uint64)}
}

func (m *Memory) Get(_ context.Context, featureID snowflake.ID) (int64, bool) {
	if x, found := m.c.Get(featureID.String()); found {
		return x.(int64), true
	}
	return 0, false
}

func (m *Memory) Generation(_ context.Context, featureID snowflake.ID) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[featureID]
}

func (m *Memory) Set(_ context.Context, featureID snowflake.ID, count int64, gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gens[featureID] != gen {
		return false
	}
	m.c.Set(featureID.String(), count, gocache.DefaultExpiration)
	return true
}

func (m *Memory) Invalidate(_ context.Context, featureID snowflake.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gens[featureID]++
	m.c.Delete(featureID.String())
}

// Len reports the number of live entries.
func (m *Memory) Len() int { return m.c.ItemCount() }
