// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Job names.
const (
	JobSweepSessions = "sweep-sessions"
	JobResyncStale   = "resync-stale"
	JobPruneEvents   = "prune-events"
)

// Sessions is the part of the session manager the maintenance jobs use.
type Sessions interface {
	SweepIdle(ctx context.Context, maxIdle time.Duration) int
	ResyncStale(ctx context.Context) int
}

// EventPruner deletes event log rows older than a cutoff.
type EventPruner interface {
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MaintenanceConfig holds the schedules of the built-in jobs.
type MaintenanceConfig struct {
	SweepSchedule  string
	IdleTimeout    time.Duration
	ResyncSchedule string
	PruneSchedule  string
	EventRetention time.Duration
}

// DefaultMaintenanceConfig returns the default schedules.
func DefaultMaintenanceConfig() MaintenanceConfig {
	return MaintenanceConfig{
		SweepSchedule:  "@every 5m",
		IdleTimeout:    time.Hour,
		ResyncSchedule: "@every 1m",
		PruneSchedule:  "@daily",
		EventRetention: 30 * 24 * time.Hour,
	}
}

// RegisterMaintenance adds the session sweep, stale-page resync and event
// pruning jobs. A nil pruner or a zero retention skips pruning.
func RegisterMaintenance(s *Scheduler, sessions Sessions, events EventPruner, cfg MaintenanceConfig, logger *slog.Logger) error {
	jobs := []Job{
		{
			Name:        JobSweepSessions,
			Description: "Close idle editing sessions",
			Schedule:    cfg.SweepSchedule,
			Run: func(ctx context.Context) error {
				if n := sessions.SweepIdle(ctx, cfg.IdleTimeout); n > 0 {
					logger.Info("closed idle sessions", "count", n)
				}
				return nil
			},
		},
		{
			Name:        JobResyncStale,
			Description: "Retry page records that failed to save",
			Schedule:    cfg.ResyncSchedule,
			Run: func(ctx context.Context) error {
				if n := sessions.ResyncStale(ctx); n > 0 {
					logger.Info("resynced stale sessions", "count", n)
				}
				return nil
			},
		},
	}
	if events != nil && cfg.EventRetention > 0 {
		jobs = append(jobs, Job{
			Name:        JobPruneEvents,
			Description: "Delete old event log entries",
			Schedule:    cfg.PruneSchedule,
			Run: func(ctx context.Context) error {
				n, err := events.DeleteEventsBefore(ctx, time.Now().Add(-cfg.EventRetention))
				if err != nil {
					return fmt.Errorf("pruning events: %w", err)
				}
				if n > 0 {
					logger.Info("pruned events", "count", n)
				}
				return nil
			},
		})
	}

	for _, j := range jobs {
		if err := s.Add(j); err != nil {
			return err
		}
	}
	return nil
}
