// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// BackendMemory names the in-process backend in Stats.
const BackendMemory = "memory"

// MemoryCache is an in-process TTL cache.
type MemoryCache struct {
	data       sync.Map
	defaultTTL time.Duration
	maxItems   int
	items      atomic.Int64
	stopCh     chan struct{}
	closed     atomic.Bool

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
	size   atomic.Int64
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryOptions configures a MemoryCache.
type MemoryOptions struct {
	DefaultTTL time.Duration
	// MaxItems bounds the entry count; 0 means unbounded. When full, expired
	// entries go first, then the entry closest to expiry.
	MaxItems        int
	CleanupInterval time.Duration
}

// NewMemoryCache creates a MemoryCache. A positive CleanupInterval starts a
// background sweeper that stops on Close.
func NewMemoryCache(opts MemoryOptions) *MemoryCache {
	c := &MemoryCache{
		defaultTTL: opts.DefaultTTL,
		maxItems:   opts.MaxItems,
		stopCh:     make(chan struct{}),
	}
	if opts.CleanupInterval > 0 {
		go c.cleanupLoop(opts.CleanupInterval)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}
	val, ok := c.data.Load(key)
	if !ok {
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}
	entry := val.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		c.remove(key)
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}
	c.hits.Add(1)
	return append([]byte(nil), entry.value...), nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if _, exists := c.data.Load(key); !exists && c.maxItems > 0 && int(c.items.Load()) >= c.maxItems {
		c.evict()
	}

	entry := &memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: time.Now().Add(ttl),
	}
	if old, loaded := c.data.Swap(key, entry); loaded {
		c.size.Add(-int64(len(old.(*memoryEntry).value)))
	} else {
		c.items.Add(1)
	}
	c.size.Add(int64(len(entry.value)))
	c.sets.Add(1)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	c.remove(key)
	return nil
}

func (c *MemoryCache) DeleteByPrefix(_ context.Context, prefix string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	c.data.Range(func(k, _ any) bool {
		if key := k.(string); strings.HasPrefix(key, prefix) {
			c.remove(key)
		}
		return true
	})
	return nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	c.data.Range(func(k, _ any) bool {
		c.remove(k.(string))
		return true
	})
	return nil
}

func (c *MemoryCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	return Stats{
		Backend: BackendMemory,
		Hits:    hits,
		Misses:  misses,
		Sets:    c.sets.Load(),
		Items:   int(c.items.Load()),
		Size:    c.size.Load(),
		HitRate: hitRate(hits, misses),
	}
}

// Close stops the sweeper. Further calls return ErrCacheClosed.
func (c *MemoryCache) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
	return nil
}

func (c *MemoryCache) remove(key string) {
	if old, loaded := c.data.LoadAndDelete(key); loaded {
		c.items.Add(-1)
		c.size.Add(-int64(len(old.(*memoryEntry).value)))
	}
}

func (c *MemoryCache) evict() {
	if c.removeExpired() > 0 {
		return
	}
	var victim string
	var soonest time.Time
	c.data.Range(func(k, v any) bool {
		e := v.(*memoryEntry)
		if victim == "" || e.expiresAt.Before(soonest) {
			victim, soonest = k.(string), e.expiresAt
		}
		return true
	})
	if victim != "" {
		c.remove(victim)
	}
}

func (c *MemoryCache) removeExpired() int {
	now := time.Now()
	removed := 0
	c.data.Range(func(k, v any) bool {
		if now.After(v.(*memoryEntry).expiresAt) {
			c.remove(k.(string))
			removed++
		}
		return true
	})
	return removed
}

func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

var _ Cacher = (*MemoryCache)(nil)
