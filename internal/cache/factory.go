// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// Backend names reported by NewCacheWithInfo.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CacheConfig holds configuration for cache creation.
type CacheConfig struct {
	// RedisURL selects the Redis backend when set.
	// Example: redis://localhost:6379/0
	RedisURL string

	// Prefix is the key prefix for Redis.
	Prefix string

	// FallbackToMemory uses the memory backend when Redis is unreachable.
	FallbackToMemory bool

	// DefaultTTL is the default TTL for cache entries.
	DefaultTTL time.Duration

	// MaxSize is the maximum number of entries for memory cache (0 = unlimited).
	MaxSize int

	// CleanupInterval is the interval for expired entry cleanup.
	CleanupInterval time.Duration
}

// CacheResult is the cache plus how it was built.
type CacheResult struct {
	Cache       Cache
	BackendType string
	IsFallback  bool
}

// NewCacheWithInfo creates Redis when configured, otherwise memory. When Redis
// cannot be reached and FallbackToMemory is set, it logs a warning and
// returns a memory cache instead.
func NewCacheWithInfo(cfg CacheConfig) (CacheResult, error) {
	if cfg.RedisURL != "" {
		rc, err := NewRedisCacheFromURL(cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
		if err == nil {
			return CacheResult{Cache: rc, BackendType: CacheBackendRedis}, nil
		}
		if !cfg.FallbackToMemory {
			return CacheResult{}, fmt.Errorf("connecting to redis at %s: %w", SanitizeRedisURL(cfg.RedisURL), err)
		}
		slog.Warn("redis cache unavailable, falling back to memory",
			"category", "cache", "url", SanitizeRedisURL(cfg.RedisURL), "error", err)
		return CacheResult{Cache: newMemoryFromConfig(cfg), BackendType: CacheBackendMemory, IsFallback: true}, nil
	}

	return CacheResult{Cache: newMemoryFromConfig(cfg), BackendType: CacheBackendMemory}, nil
}

func newMemoryFromConfig(cfg CacheConfig) *MemoryCache {
	interval := cfg.CleanupInterval
	if interval == 0 {
		interval = time.Minute
	}
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: interval,
	})
}

// SanitizeRedisURL masks the password in a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "[invalid URL]"
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
