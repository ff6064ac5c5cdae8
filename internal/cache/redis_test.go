// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedis connects to ALMONHNA_TEST_REDIS_URL under a per-test prefix,
// or skips.
func newTestRedis(t *testing.T) *RedisCache {
	t.Helper()
	url := os.Getenv("ALMONHNA_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: ALMONHNA_TEST_REDIS_URL not set")
	}

	c, err := NewRedisCacheFromURL(url, "almonhna-test:"+t.Name()+":", time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.DeleteByPrefix(context.Background(), "")
		_ = c.Close()
	})
	return c
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()
	key := ListingKey(ScopeWriters, "top", "5")

	require.NoError(t, c.Set(ctx, key, []byte(`[{"id":1}]`), 0))
	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(got))

	require.NoError(t, c.Delete(ctx, key))
	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_TTL(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("v"), 100*time.Millisecond))
	_, err := c.Get(ctx, "short")
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	_, err = c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_DeleteByPrefix(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()

	_ = c.Set(ctx, ListingKey(ScopeNews, "list"), []byte("1"), 0)
	_ = c.Set(ctx, ListingKey(ScopeNews, "3"), []byte("2"), 0)
	_ = c.Set(ctx, ListingKey(ScopeProducts, "list"), []byte("3"), 0)

	require.NoError(t, c.DeleteByPrefix(ctx, publicPrefix+ScopeNews+":"))

	_, err := c.Get(ctx, ListingKey(ScopeNews, "list"))
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, ListingKey(ScopeProducts, "list"))
	assert.NoError(t, err)
}

func TestRedisCache_StatsAndPing(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "missing")

	s := c.Stats(ctx)
	assert.Equal(t, int64(2), s.Sets)
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, 2, s.Items)
	assert.InDelta(t, 50.0, s.HitRate, 0.01)
}

func TestRedisCache_Closed(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Close())

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheClosed)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, 0), ErrCacheClosed)
	assert.ErrorIs(t, c.Ping(ctx), ErrCacheClosed)
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCacheFromURL("", "test:", time.Minute)
	assert.Error(t, err)

	_, err = NewRedisCacheFromURL("invalid-url", "test:", time.Minute)
	assert.Error(t, err)
}

func TestNewCacheWithInfo_Memory(t *testing.T) {
	result, err := NewCacheWithInfo(CacheConfig{DefaultTTL: time.Minute, MaxSize: 100})
	require.NoError(t, err)
	defer func() { _ = result.Cache.Close() }()

	assert.Equal(t, CacheBackendMemory, result.BackendType)
	assert.False(t, result.IsFallback)
}

func TestNewCacheWithInfo_RedisFallback(t *testing.T) {
	result, err := NewCacheWithInfo(CacheConfig{
		RedisURL:         "redis://localhost:63999/0",
		FallbackToMemory: true,
		DefaultTTL:       time.Minute,
	})
	require.NoError(t, err)
	defer func() { _ = result.Cache.Close() }()

	assert.Equal(t, CacheBackendMemory, result.BackendType)
	assert.True(t, result.IsFallback)
}

func TestNewCacheWithInfo_RedisNoFallback(t *testing.T) {
	_, err := NewCacheWithInfo(CacheConfig{RedisURL: "redis://localhost:63999/0", DefaultTTL: time.Minute})
	assert.Error(t, err)
}
