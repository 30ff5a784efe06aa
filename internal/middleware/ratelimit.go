// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// maxLimiters bounds the number of tracked keys before the cache is reset.
const maxLimiters = 10000

// limiterCache is a generic rate limiter cache with double-check locking.
type limiterCache[K comparable] struct {
	limiters map[K]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// get returns the rate limiter for a specific key, creating one if needed.
func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.RLock()
	limiter, exists := lc.limiters[key]
	lc.mu.RUnlock()

	if exists {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	if limiter, exists = lc.limiters[key]; exists {
		return limiter
	}
	if len(lc.limiters) >= maxLimiters {
		lc.limiters = make(map[K]*rate.Limiter)
	}

	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

func (lc *limiterCache[K]) size() int {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return len(lc.limiters)
}

// TokenRateLimit limits requests per API token. Requests without a token
// are limited per client IP.
func TokenRateLimit(rps float64, burst int, logger *slog.Logger) func(http.Handler) http.Handler {
	byToken := newLimiterCache[int64](rps, burst)
	byIP := newLimiterCache[string](rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var limiter *rate.Limiter
			if tok := GetToken(r); tok != nil {
				limiter = byToken.get(tok.ID)
			} else {
				limiter = byIP.get(clientIP(r))
			}
			if !limiter.Allow() {
				logger.Warn("API rate limit exceeded", "ip", clientIP(r), "path", r.URL.Path)
				WriteAPIError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Rate limit exceeded. Please slow down.", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the host part of RemoteAddr. Forwarded headers are
// honoured only through chi's RealIP middleware for trusted proxies.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
