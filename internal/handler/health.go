// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the non-API HTTP handlers: health probes and the
// page navigator fragment.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/olegiv/ocms-emag/internal/cache"
)

// Pinger is implemented by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SessionCounter reports the number of open editor sessions.
type SessionCounter interface {
	Count() int
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	db        Pinger
	cache     cache.Cacher
	sessions  SessionCounter
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler. cache and sessions may be nil.
func NewHealthHandler(db Pinger, c cache.Cacher, sessions SessionCounter, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		cache:     c,
		sessions:  sessions,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Sessions  int              `json:"sessions"`
	Checks    map[string]Check `json:"checks"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health handles GET /health. A failed database ping makes the service
// unhealthy; a cache without hits is still healthy.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbCheck := h.checkDatabase(r.Context())

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks:    map[string]Check{"database": dbCheck},
	}
	if h.sessions != nil {
		status.Sessions = h.sessions.Count()
	}
	if h.cache != nil {
		st := h.cache.Stats()
		status.Checks["cache"] = Check{Status: "healthy", Message: st.Backend}
	}

	code := http.StatusOK
	if dbCheck.Status != "healthy" {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Liveness handles GET /health/live - simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready - checks if the service is ready to accept traffic.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if c := h.checkDatabase(r.Context()); c.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		return Check{Status: "unhealthy", Message: "database unreachable"}
	}
	return Check{Status: "healthy", Latency: time.Since(start).Round(time.Microsecond).String()}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
