// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic maintenance jobs of the eMag service.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"
)

var (
	// ErrJobNotFound is returned for unknown job names.
	ErrJobNotFound = errors.New("job not found")
	// ErrTriggerLimited is returned when a job is triggered too often.
	ErrTriggerLimited = errors.New("manual trigger rate limited")
)

// specParser accepts standard five-field expressions and descriptors.
var specParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Job is a named unit of periodic work.
type Job struct {
	Name        string
	Description string
	Schedule    string
	Run         func(ctx context.Context) error
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Schedule    string    `json:"schedule"`
	LastRun     time.Time `json:"last_run,omitzero"`
	NextRun     time.Time `json:"next_run,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
}

type registeredJob struct {
	job     Job
	entryID cron.EntryID
	limiter *rate.Limiter
	lastErr string
}

// Scheduler wraps a cron instance with a registry of named jobs.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration

	mu   sync.Mutex
	jobs map[string]*registeredJob
}

// New creates a scheduler. Each run gets a context bounded by timeout.
func New(logger *slog.Logger, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{
		cron:    cron.New(cron.WithParser(specParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		timeout: timeout,
		jobs:    make(map[string]*registeredJob),
	}
}

// Add registers a job. Names must be unique.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job requires a name and a run function")
	}
	if _, err := specParser.Parse(job.Schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", job.Schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	rj := &registeredJob{job: job, limiter: rate.NewLimiter(rate.Every(10*time.Second), 1)}
	id, err := s.cron.AddFunc(job.Schedule, func() { s.run(rj) })
	if err != nil {
		return fmt.Errorf("scheduling %q: %w", job.Name, err)
	}
	rj.entryID = id
	s.jobs[job.Name] = rj

	s.logger.Debug("registered scheduled job", "name", job.Name, "schedule", job.Schedule)
	return nil
}

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// List returns all registered jobs sorted by name.
func (s *Scheduler) List() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, rj := range s.jobs {
		entry := s.cron.Entry(rj.entryID)
		out = append(out, JobInfo{
			Name:        rj.job.Name,
			Description: rj.job.Description,
			Schedule:    rj.job.Schedule,
			LastRun:     entry.Prev,
			NextRun:     entry.Next,
			LastError:   rj.lastErr,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TriggerNow runs a job synchronously outside its schedule.
func (s *Scheduler) TriggerNow(name string) error {
	s.mu.Lock()
	rj, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !rj.limiter.Allow() {
		return fmt.Errorf("%w: %s", ErrTriggerLimited, name)
	}

	s.logger.Info("manually triggering job", "name", name)
	return s.run(rj)
}

func (s *Scheduler) run(rj *registeredJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := rj.job.Run(ctx)

	s.mu.Lock()
	if err != nil {
		rj.lastErr = err.Error()
	} else {
		rj.lastErr = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled job failed", "name", rj.job.Name, "error", err)
		return err
	}
	s.logger.Debug("scheduled job finished", "name", rj.job.Name, "duration", time.Since(start))
	return nil
}
