package reminder_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamdesk/internal/reminder"
)

func TestMemorySentCache(t *testing.T) {
	ctx := context.Background()

	t.Run("mark then seen", func(t *testing.T) {
		c := &reminder.MemorySentCache{}

		seen, err := c.Seen(ctx, "k")
		require.NoError(t, err)
		assert.False(t, seen)

		require.NoError(t, c.Mark(ctx, "k"))
		seen, err = c.Seen(ctx, "k")
		require.NoError(t, err)
		assert.True(t, seen)

		seen, err = c.Seen(ctx, "other")
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("entries expire", func(t *testing.T) {
		c := &reminder.MemorySentCache{TTL: time.Millisecond}
		require.NoError(t, c.Mark(ctx, "k"))

		time.Sleep(5 * time.Millisecond)
		seen, err := c.Seen(ctx, "k")
		require.NoError(t, err)
		assert.False(t, seen)
	})
}

func TestNopSentCache(t *testing.T) {
	var c reminder.NopSentCache
	require.NoError(t, c.Mark(context.Background(), "k"))
	seen, err := c.Seen(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisSentCache(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	c := &reminder.RedisSentCache{Client: client, TTL: time.Minute}
	key := "teamdesk:test:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), key) })

	seen, err := c.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, c.Mark(ctx, key))
	seen, err = c.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)

	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, time.Minute)
}
