// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teletable/backend/internal/log"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCacheFromClient(client, log.WithComponent("test")), mr
}

func TestRedisCache_GetSet(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "key1", []byte("value1"), time.Minute)

	val, ok := c.Get(ctx, "key1")
	require.True(t, ok)
	assert.Equal(t, []byte("value1"), val)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestRedisCache_TTL(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "shortlived", []byte("v"), time.Minute)
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "shortlived")
	assert.False(t, ok, "entry should have expired")
}

func TestRedisCache_Delete(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "key1", []byte("v"), time.Minute)
	c.Delete(ctx, "key1")
	_, ok := c.Get(ctx, "key1")
	assert.False(t, ok)
}

func TestRedisCache_BackendDownDegradesToMiss(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "key1", []byte("v"), time.Minute)
	mr.Close()

	_, ok := c.Get(ctx, "key1")
	assert.False(t, ok, "backend failure must read as a miss")

	// Writes and deletes against a dead backend must not panic.
	c.Set(ctx, "key2", []byte("v"), time.Minute)
	c.Delete(ctx, "key1")
}

func TestRedisCache_HealthCheck(t *testing.T) {
	c, mr := newTestRedisCache(t)
	assert.NoError(t, c.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, c.HealthCheck(context.Background()))
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not-a-url", log.WithComponent("test"))
	assert.Error(t, err)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "redis://127.0.0.1:1", log.WithComponent("test"))
	assert.Error(t, err)
}
