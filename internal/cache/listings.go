// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

// Listing scopes. A scope is the first key segment after the public prefix.
const (
	ScopeArticles = "articles"
	ScopeNews     = "news"
	ScopeWriters  = "writers"
	ScopeProducts = "products"
)

const publicPrefix = "public:"

// Listings caches the read models served on public pages. Only approved data
// is ever stored here, so moderation must invalidate the affected scopes.
type Listings struct {
	cache Cache
	ttl   time.Duration
}

// NewListings wraps c with a default TTL for public listings.
func NewListings(c Cache, ttl time.Duration) *Listings {
	return &Listings{cache: c, ttl: ttl}
}

// ListingKey builds a key from a scope and its query parts.
func ListingKey(scope string, parts ...string) string {
	var sb strings.Builder
	sb.WriteString(publicPrefix)
	sb.WriteString(scope)
	sb.WriteByte(':')
	sb.WriteString(strings.Join(parts, ":"))
	return sb.String()
}

// Remember returns the cached value for key or computes and stores it as
// JSON. Cache failures fall through to fn. A nil Listings always computes.
func Remember[T any](ctx context.Context, l *Listings, key string, fn func() (T, error)) (T, error) {
	if l == nil {
		return fn()
	}

	if raw, err := l.cache.Get(ctx, key); err == nil {
		var v T
		if json.Unmarshal(raw, &v) == nil {
			return v, nil
		}
	}

	v, err := fn()
	if err != nil {
		return v, err
	}
	if raw, err := json.Marshal(v); err == nil {
		if err := l.cache.Set(ctx, key, raw, l.ttl); err != nil {
			slog.Debug("cache store failed", "category", "cache", "key", key, "error", err)
		}
	}
	return v, nil
}

// Invalidate drops every cached listing in the given scopes. Failures are
// logged; a stale entry expires with its TTL anyway.
func (l *Listings) Invalidate(ctx context.Context, scopes ...string) {
	if l == nil {
		return
	}
	for _, scope := range scopes {
		if err := l.cache.DeleteByPrefix(ctx, publicPrefix+scope+":"); err != nil {
			slog.Warn("cache invalidation failed", "category", "cache", "scope", scope, "error", err)
		}
	}
}

// Check pings the backend when it has a connection and reports its
// statistics when it keeps them.
func (l *Listings) Check(ctx context.Context) (Stats, error) {
	if l == nil {
		return Stats{}, nil
	}
	if p, ok := l.cache.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return Stats{}, err
		}
	}
	if sp, ok := l.cache.(StatsProvider); ok {
		return sp.Stats(ctx), nil
	}
	return Stats{}, nil
}
