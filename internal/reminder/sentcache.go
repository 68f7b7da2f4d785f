package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SentCache remembers reminder revisions that were already claimed so
// duplicate jobs can skip the database round trip. It sits in front of the
// durable claim and is never consulted instead of it: a miss always falls
// through to Repo.ClaimRevision.
type SentCache interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

const defaultSentTTL = 26 * time.Hour

func sentKey(d Delivery) string {
	return fmt.Sprintf("teamdesk:reminder:sent:%d:%d", d.ReminderID, d.Revision)
}

type NopSentCache struct{}

func (NopSentCache) Seen(context.Context, string) (bool, error) { return false, nil }
func (NopSentCache) Mark(context.Context, string) error { return nil }

// RedisSentCache shares the cache between processes.
type RedisSentCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func (c *RedisSentCache) Seen(ctx context.Context, key string) (bool, error) {
	n, err := c.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisSentCache) Mark(ctx context.Context, key string) error {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = defaultSentTTL
	}
	return c.Client.SetNX(ctx, key, time.Now().Unix(), ttl).Err()
}

// MemorySentCache is process-local and lost on restart.
type MemorySentCache struct {
	TTL time.Duration

	mu      sync.Mutex
	entries map[string]time.Time
	marks   int
}

func (c *MemorySentCache) Seen(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	exp, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(c.entries, key)
		return false, nil
	}
	return true, nil
}

func (c *MemorySentCache) Mark(_ context.Context, key string) error {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = defaultSentTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries == nil {
		c.entries = make(map[string]time.Time)
	}
	now := time.Now()
	c.entries[key] = now.Add(ttl)

	c.marks++
	if c.marks%1024 == 0 {
		for k, exp := range c.entries {
			if now.After(exp) {
				delete(c.entries, k)
			}
		}
	}
	return nil
}
