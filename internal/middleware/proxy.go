// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// TrustedRealIP applies chi's RealIP only to requests arriving from one of
// the trusted proxy addresses. With no proxies configured it is a no-op.
func TrustedRealIP(proxies []string) func(http.Handler) http.Handler {
	trusted := make(map[string]struct{}, len(proxies))
	for _, p := range proxies {
		if p != "" {
			trusted[p] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		withRealIP := chimw.RealIP(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := trusted[clientIP(r)]; ok {
				withRealIP.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
