// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ExportCache namespaces flipbook documents by content version so a single
// mutation can drop every cached export of that version.
type ExportCache struct {
	c   Cacher
	ttl time.Duration
}

// NewExportCache wraps c. A zero ttl uses the backend default.
func NewExportCache(c Cacher, ttl time.Duration) *ExportCache {
	return &ExportCache{c: c, ttl: ttl}
}

func exportPrefix(cv int64) string {
	return "export:" + strconv.FormatInt(cv, 10) + ":"
}

// Get returns the cached document for (cv, key). Backend failures count as a
// miss.
func (e *ExportCache) Get(ctx context.Context, cv int64, key string) (string, bool) {
	data, err := e.c.Get(ctx, exportPrefix(cv)+key)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Put stores doc for (cv, key).
func (e *ExportCache) Put(ctx context.Context, cv int64, key, doc string) error {
	return e.c.Set(ctx, exportPrefix(cv)+key, []byte(doc), e.ttl)
}

// Invalidate drops every cached export of cv.
func (e *ExportCache) Invalidate(ctx context.Context, cv int64) error {
	err := e.c.DeleteByPrefix(ctx, exportPrefix(cv))
	if errors.Is(err, ErrCacheClosed) {
		return nil
	}
	return err
}

// Stats exposes the backend counters.
func (e *ExportCache) Stats() Stats {
	return e.c.Stats()
}
