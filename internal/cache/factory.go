// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"log/slog"
	"time"
)

// Config selects and tunes the cache backend.
type Config struct {
	// RedisURL selects Redis when set, e.g. redis://localhost:6379/0.
	RedisURL        string
	Prefix          string
	DefaultTTL      time.Duration
	MaxItems        int
	CleanupInterval time.Duration
}

// DefaultConfig returns an in-memory configuration.
func DefaultConfig() Config {
	return Config{
		Prefix:          "emag:",
		DefaultTTL:      time.Hour,
		MaxItems:        500,
		CleanupInterval: time.Minute,
	}
}

// New returns a Redis cache when cfg.RedisURL is set and reachable, and a
// memory cache otherwise. A failed Redis connection is logged, not returned.
func New(ctx context.Context, cfg Config, logger *slog.Logger) Cacher {
	if cfg.RedisURL != "" {
		opts := DefaultRedisOptions()
		opts.URL = cfg.RedisURL
		if cfg.Prefix != "" {
			opts.Prefix = cfg.Prefix
		}
		if cfg.DefaultTTL > 0 {
			opts.DefaultTTL = cfg.DefaultTTL
		}
		rc, err := NewRedisCache(ctx, opts)
		if err == nil {
			logger.Info("using redis cache", "prefix", opts.Prefix)
			return rc
		}
		logger.Warn("redis unavailable, falling back to memory cache", "error", err, "category", "cache")
	}

	return NewMemoryCache(MemoryOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxItems:        cfg.MaxItems,
		CleanupInterval: cfg.CleanupInterval,
	})
}
