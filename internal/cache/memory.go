// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCache keeps entries in a process-local map. It is the default
// backend and the fallback when Redis is unreachable.
type MemoryCache struct {
	counters

	mu      sync.Mutex
	entries map[string]memoryEntry
	closed  bool
	stop    chan struct{}

	defaultTTL time.Duration
	maxSize    int // 0 = unlimited
	now        func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCacheOptions configures the memory cache.
type MemoryCacheOptions struct {
	DefaultTTL time.Duration
	// MaxSize bounds the number of entries; 0 means unlimited.
	MaxSize int
	// CleanupInterval enables a background sweep of expired entries.
	CleanupInterval time.Duration
}

// NewMemoryCache creates a memory cache. Close it to stop the sweep.
func NewMemoryCache(opts MemoryCacheOptions) *MemoryCache {
	c := &MemoryCache{
		entries:    make(map[string]memoryEntry),
		stop:       make(chan struct{}),
		defaultTTL: opts.DefaultTTL,
		maxSize:    opts.MaxSize,
		now:        time.Now,
	}
	if opts.CleanupInterval > 0 {
		go c.sweepLoop(opts.CleanupInterval)
	}
	return c
}

// NewSimpleMemoryCache creates an unbounded memory cache with just a TTL.
func NewSimpleMemoryCache(ttl time.Duration) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{DefaultTTL: ttl, CleanupInterval: time.Minute})
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrCacheClosed
	}

	e, ok := c.entries[key]
	if ok && !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}

	c.hits.Add(1)
	return clone(e.value), nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.purgeExpiredLocked()
		if len(c.entries) >= c.maxSize {
			c.evictLocked()
		}
	}

	c.entries[key] = memoryEntry{value: clone(value), expiresAt: c.now().Add(ttl)}
	c.sets.Add(1)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	delete(c.entries, key)
	return nil
}

func (c *MemoryCache) DeleteByPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// Close stops the sweep. Later calls return ErrCacheClosed.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.entries = nil
		close(c.stop)
	}
	return nil
}

func (c *MemoryCache) Stats(_ context.Context) Stats {
	c.mu.Lock()
	items := len(c.entries)
	c.mu.Unlock()
	return c.snapshot(items)
}

func (c *MemoryCache) purgeExpiredLocked() {
	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// evictLocked drops the entry closest to expiry.
func (c *MemoryCache) evictLocked() {
	var victim string
	var soonest time.Time
	for key, e := range c.entries {
		if soonest.IsZero() || e.expiresAt.Before(soonest) {
			victim, soonest = key, e.expiresAt
		}
	}
	delete(c.entries, victim)
}

func (c *MemoryCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			if !c.closed {
				c.purgeExpiredLocked()
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var (
	_ Cache         = (*MemoryCache)(nil)
	_ StatsProvider = (*MemoryCache)(nil)
)
