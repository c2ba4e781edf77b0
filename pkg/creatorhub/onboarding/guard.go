package onboarding

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionGuard lets an action run at most once per key until the key expires.
// Keys are scoped to a login session.
type SessionGuard interface {
	// First reports whether this is the first claim of key
	First(ctx context.Context, key string) (bool, error)
}

// RedisGuard claims keys with SET NX so that every server instance agrees
type RedisGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisGuard creates a guard whose claims live for ttl, normally the
// session lifetime
func NewRedisGuard(client *redis.Client, prefix string, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, prefix: prefix, ttl: ttl}
}

// First claims key in redis
func (g *RedisGuard) First(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, g.prefix+key, time.Now().Unix(), g.ttl).Result()
}

// MemoryGuard is a single-process SessionGuard
type MemoryGuard struct {
	mu     sync.Mutex
	ttl    time.Duration
	claims map[string]time.Time
	now    func() time.Time
}

// NewMemoryGuard creates an in-process guard
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{ttl: ttl, claims: make(map[string]time.Time), now: time.Now}
}

// First claims key in memory. Expired claims are swept on each call.
func (g *MemoryGuard) First(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, exp := range g.claims {
		if !now.Before(exp) {
			delete(g.claims, k)
		}
	}
	if _, taken := g.claims[key]; taken {
		return false, nil
	}
	g.claims[key] = now.Add(g.ttl)
	return true, nil
}
