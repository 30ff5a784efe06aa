// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache stores generated flipbook documents in memory or Redis.
package cache

import (
	"context"
	"time"
)

// Cacher is implemented by every cache backend. Values are raw bytes so the
// same interface works for in-process and Redis storage. Implementations are
// safe for concurrent use.
type Cacher interface {
	// Get returns ErrCacheMiss when key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value for ttl; a zero ttl means the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Clear(ctx context.Context) error
	Stats() Stats
	Close() error
}

// Stats reports cache usage counters.
type Stats struct {
	Backend string  `json:"backend"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Items   int     `json:"items"`
	Size    int64   `json:"size"`
	HitRate float64 `json:"hit_rate"`
}

func hitRate(hits, misses int64) float64 {
	if total := hits + misses; total > 0 {
		return float64(hits) / float64(total) * 100
	}
	return 0
}

// Error represents an error type for cache operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrCacheMiss indicates the key was not found in cache or has expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed Error = "cache closed"
)
