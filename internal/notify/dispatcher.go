// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Dispatcher delivers freshly enqueued notifications in the background.
// Anything it drops or fails to send is picked up by Outbox.RetryDue.
type Dispatcher struct {
	outbox  *Outbox
	logger  *slog.Logger
	queue   chan int64
	workers int
	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
}

// Config holds dispatcher configuration.
type Config struct {
	Workers   int // Number of concurrent delivery workers
	QueueSize int
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:   3,
		QueueSize: 100,
	}
}

// NewDispatcher creates a dispatcher over outbox.
func NewDispatcher(outbox *Outbox, logger *slog.Logger, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		outbox:  outbox,
		logger:  logger,
		queue:   make(chan int64, cfg.QueueSize),
		workers: cfg.Workers,
		done:    make(chan struct{}),
	}
}

// Start starts the dispatcher workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting notification dispatcher", "workers", d.workers)

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop stops the dispatcher and waits for workers to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info("stopping notification dispatcher")
	close(d.done)
	d.wg.Wait()
	d.logger.Info("notification dispatcher stopped")
}

// Notify queues a committed notification for delivery. It never blocks.
func (d *Dispatcher) Notify(id int64) {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()

	if !running {
		d.logger.Debug("dispatcher not running, notification left for retry", "notification_id", id)
		return
	}

	select {
	case d.queue <- id:
		d.logger.Debug("notification queued", "notification_id", id)
	default:
		d.logger.Warn("notification queue full, delivery will be retried later", "notification_id", id)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("notification worker started", "worker_id", id)

	for {
		select {
		case <-d.done:
			d.logger.Debug("notification worker stopping", "worker_id", id)
			return
		case <-ctx.Done():
			d.logger.Debug("notification worker context cancelled", "worker_id", id)
			return
		case nid := <-d.queue:
			if err := d.outbox.Deliver(ctx, nid); err != nil && !errors.Is(err, ErrNotConfigured) {
				d.logger.Debug("notification delivery failed",
					"worker_id", id,
					"notification_id", nid,
					"error", err)
			}
		}
	}
}
