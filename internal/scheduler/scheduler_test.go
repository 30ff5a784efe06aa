// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdd_Validation(t *testing.T) {
	s := New(testLogger(), time.Second)
	noop := func(context.Context) error { return nil }

	tests := []struct {
		name string
		job  Job
	}{
		{"missing name", Job{Schedule: "@every 1m", Run: noop}},
		{"missing run", Job{Name: "a", Schedule: "@every 1m"}},
		{"bad schedule", Job{Name: "a", Schedule: "not a cron", Run: noop}},
		{"six fields", Job{Name: "a", Schedule: "0 * * * * *", Run: noop}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Add(tt.job); err == nil {
				t.Error("Add() expected error")
			}
		})
	}

	if err := s.Add(Job{Name: "a", Schedule: "*/5 * * * *", Run: noop}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add(Job{Name: "a", Schedule: "@hourly", Run: noop}); err == nil {
		t.Error("Add() duplicate name should fail")
	}
}

func TestList_SortedWithNextRun(t *testing.T) {
	s := New(testLogger(), time.Second)
	noop := func(context.Context) error { return nil }
	for _, name := range []string{"zeta", "alpha"} {
		if err := s.Add(Job{Name: name, Description: name + " job", Schedule: "@every 1h", Run: noop}); err != nil {
			t.Fatal(err)
		}
	}
	s.Start()
	defer s.Stop()

	jobs := s.List()
	if len(jobs) != 2 {
		t.Fatalf("List() = %d jobs, want 2", len(jobs))
	}
	if jobs[0].Name != "alpha" || jobs[1].Name != "zeta" {
		t.Errorf("List() order = %s, %s", jobs[0].Name, jobs[1].Name)
	}
	if jobs[0].NextRun.IsZero() {
		t.Error("NextRun should be set once started")
	}
}

func TestTriggerNow(t *testing.T) {
	s := New(testLogger(), time.Second)
	var runs atomic.Int32
	boom := errors.New("boom")
	fail := false
	err := s.Add(Job{Name: "job", Schedule: "@daily", Run: func(ctx context.Context) error {
		runs.Add(1)
		if _, ok := ctx.Deadline(); !ok {
			t.Error("run context has no deadline")
		}
		if fail {
			return boom
		}
		return nil
	}})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.TriggerNow("job"); err != nil {
		t.Fatalf("TriggerNow() error = %v", err)
	}
	if runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", runs.Load())
	}

	fail = true
	if err := s.TriggerNow("job"); !errors.Is(err, ErrTriggerLimited) {
		t.Errorf("second trigger error = %v, want ErrTriggerLimited", err)
	}

	s.jobs["job"].limiter.SetBurst(10)
	s.jobs["job"].limiter.SetLimit(1000)
	if err := s.TriggerNow("job"); !errors.Is(err, boom) {
		t.Errorf("TriggerNow() error = %v, want boom", err)
	}
	if got := s.List()[0].LastError; got != "boom" {
		t.Errorf("LastError = %q, want boom", got)
	}

	if err := s.TriggerNow("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("unknown job error = %v", err)
	}
}

type fakeSessions struct {
	swept   atomic.Int32
	resyncs atomic.Int32
	maxIdle time.Duration
}

func (f *fakeSessions) SweepIdle(_ context.Context, maxIdle time.Duration) int {
	f.swept.Add(1)
	f.maxIdle = maxIdle
	return 2
}

func (f *fakeSessions) ResyncStale(context.Context) int {
	f.resyncs.Add(1)
	return 0
}

type fakePruner struct {
	cutoff time.Time
	err    error
}

func (f *fakePruner) DeleteEventsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

func TestRegisterMaintenance(t *testing.T) {
	s := New(testLogger(), time.Second)
	sessions := &fakeSessions{}
	pruner := &fakePruner{}
	cfg := DefaultMaintenanceConfig()

	if err := RegisterMaintenance(s, sessions, pruner, cfg, testLogger()); err != nil {
		t.Fatalf("RegisterMaintenance() error = %v", err)
	}
	if got := len(s.List()); got != 3 {
		t.Fatalf("registered %d jobs, want 3", got)
	}

	if err := s.TriggerNow(JobSweepSessions); err != nil {
		t.Fatal(err)
	}
	if sessions.swept.Load() != 1 || sessions.maxIdle != time.Hour {
		t.Errorf("sweep calls = %d, maxIdle = %v", sessions.swept.Load(), sessions.maxIdle)
	}

	if err := s.TriggerNow(JobResyncStale); err != nil {
		t.Fatal(err)
	}
	if sessions.resyncs.Load() != 1 {
		t.Errorf("resync calls = %d, want 1", sessions.resyncs.Load())
	}

	before := time.Now().Add(-cfg.EventRetention)
	if err := s.TriggerNow(JobPruneEvents); err != nil {
		t.Fatal(err)
	}
	if pruner.cutoff.Before(before) {
		t.Errorf("cutoff %v earlier than %v", pruner.cutoff, before)
	}
}

func TestRegisterMaintenance_WithoutPruner(t *testing.T) {
	s := New(testLogger(), time.Second)
	cfg := DefaultMaintenanceConfig()
	if err := RegisterMaintenance(s, &fakeSessions{}, nil, cfg, testLogger()); err != nil {
		t.Fatal(err)
	}
	for _, j := range s.List() {
		if j.Name == JobPruneEvents {
			t.Error("prune job registered without a pruner")
		}
	}
}

func TestRegisterMaintenance_BadSchedule(t *testing.T) {
	s := New(testLogger(), time.Second)
	cfg := DefaultMaintenanceConfig()
	cfg.ResyncSchedule = "every minute"
	if err := RegisterMaintenance(s, &fakeSessions{}, nil, cfg, testLogger()); err == nil {
		t.Error("expected error for invalid schedule")
	}
}
