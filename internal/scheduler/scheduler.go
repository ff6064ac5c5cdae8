// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance: email retries and audit log
// retention.
package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/store"
)

// Job names.
const (
	JobRetryNotifications = "retry_notifications"
	JobPurgeEvents        = "purge_events"
)

// Default schedules.
const (
	RetrySchedule = "* * * * *"
	PurgeSchedule = "30 3 * * *"
	jobTimeout    = 50 * time.Second
)

// ErrJobNotFound is returned by Trigger for an unknown job name.
var ErrJobNotFound = errors.New("job not found")

// Retrier redelivers due notifications.
type Retrier interface {
	RetryDue(ctx context.Context) (int, error)
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Schedule    string    `json:"schedule"`
	LastRun     time.Time `json:"last_run"`
	NextRun     time.Time `json:"next_run"`
}

type job struct {
	name        string
	description string
	schedule    string
	entryID     cron.EntryID
	run         func(ctx context.Context) error
}

// Scheduler owns the cron instance and its jobs.
type Scheduler struct {
	queries   *store.Queries
	cron      *cron.Cron
	outbox    Retrier
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu   sync.RWMutex
	jobs map[string]*job
}

// New creates a scheduler. A nil outbox disables the retry job; a zero
// retention disables the purge job.
func New(db *sql.DB, outbox Retrier, retention time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))

	return &Scheduler{
		queries:   store.New(db),
		cron:      cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		outbox:    outbox,
		retention: retention,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		jobs:      make(map[string]*job),
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.outbox != nil {
		if err := s.add(JobRetryNotifications, "Redeliver pending emails whose retry is due", RetrySchedule, s.retryNotifications); err != nil {
			return err
		}
	}
	if s.retention > 0 {
		if err := s.add(JobPurgeEvents, "Delete audit events past the retention period", PurgeSchedule, s.purgeEvents); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) add(name, description, schedule string, run func(context.Context) error) error {
	j := &job{name: name, description: description, schedule: schedule, run: run}

	id, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := run(ctx); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}
	j.entryID = id

	s.mu.Lock()
	s.jobs[name] = j
	s.mu.Unlock()

	s.logger.Debug("registered scheduled job", "name", name, "schedule", schedule)
	return nil
}

// Jobs returns the registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		entry := s.cron.Entry(j.entryID)
		result = append(result, JobInfo{
			Name:        j.name,
			Description: j.description,
			Schedule:    j.schedule,
			LastRun:     entry.Prev,
			NextRun:     entry.Next,
		})
	}

	sort.Slice(result, func(i, k int) bool { return result[i].Name < result[k].Name })
	return result
}

// Trigger runs a job immediately in the caller's goroutine.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.logger.Info("manually triggering job", "name", name)
	return j.run(ctx)
}

func (s *Scheduler) retryNotifications(ctx context.Context) error {
	sent, err := s.outbox.RetryDue(ctx)
	if err != nil {
		return err
	}
	if sent > 0 {
		s.logger.Info("redelivered notifications", "count", sent)
	}
	return nil
}

func (s *Scheduler) purgeEvents(ctx context.Context) error {
	cutoff := s.now().Add(-s.retention)
	n, err := s.queries.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purging events: %w", err)
	}
	if n > 0 {
		s.logger.Info("purged audit events",
			"category", model.EventCategorySystem,
			"count", n,
			"before", cutoff.Format(time.RFC3339))
	}
	return nil
}
