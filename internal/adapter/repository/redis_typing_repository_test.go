package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisTyping(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *redisTypingRepository) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return server, NewRedisTypingRepository(client, ttl).(*redisTypingRepository)
}

func nextTyping(t *testing.T, ch <-chan bool, within time.Duration) bool {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "watch closed")
		return v
	case <-time.After(within):
		t.Fatal("no typing value")
		return false
	}
}

func TestRedisTypingWatchReplaysCurrentValue(t *testing.T) {
	server, repo := newRedisTyping(t, time.Minute)
	require.NoError(t, server.Set(typingKeyRedis("c1", "u2"), "1"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := repo.Watch(ctx, "c1", "u2")
	require.NoError(t, err)
	assert.True(t, nextTyping(t, ch, time.Second))
}

func TestRedisTypingPublishesWrites(t *testing.T) {
	server, repo := newRedisTyping(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := repo.Watch(ctx, "c1", "u2")
	require.NoError(t, err)
	assert.False(t, nextTyping(t, ch, time.Second))

	require.NoError(t, repo.SetTyping(ctx, "c1", "u2", true))
	assert.True(t, nextTyping(t, ch, time.Second))

	value, err := server.Get(typingKeyRedis("c1", "u2"))
	require.NoError(t, err)
	assert.Equal(t, "1", value)
	assert.Equal(t, time.Minute, server.TTL(typingKeyRedis("c1", "u2")))

	require.NoError(t, repo.SetTyping(ctx, "c1", "u2", false))
	assert.False(t, nextTyping(t, ch, time.Second))
}

func TestRedisTypingOrphanedFlagExpires(t *testing.T) {
	ttl := 200 * time.Millisecond
	server, repo := newRedisTyping(t, ttl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := repo.Watch(ctx, "c1", "u2")
	require.NoError(t, err)
	assert.False(t, nextTyping(t, ch, time.Second))

	// The writer sets the flag and vanishes without clearing it.
	require.NoError(t, repo.SetTyping(ctx, "c1", "u2", true))
	assert.True(t, nextTyping(t, ch, time.Second))

	server.FastForward(ttl)
	assert.False(t, server.Exists(typingKeyRedis("c1", "u2")))

	// Nothing is published on expiry; the recheck after the TTL sees it.
	assert.False(t, nextTyping(t, ch, 2*time.Second))
}

func TestRedisTypingWatchEndsWithContext(t *testing.T) {
	_, repo := newRedisTyping(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := repo.Watch(ctx, "c1", "u2")
	require.NoError(t, err)
	nextTyping(t, ch, time.Second)
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
