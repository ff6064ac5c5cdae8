// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/store"
)

// Delivery configuration constants
const (
	MaxAttempts    = 5               // Maximum number of delivery attempts
	InitialBackoff = 1 * time.Minute // Initial backoff delay
	MaxBackoff     = 24 * time.Hour  // Maximum backoff delay
	ClaimLease     = 5 * time.Minute // How long a worker owns a claimed notification
	RetryBatchSize = 50
)

// Outbox persists notifications and delivers them with retries.
type Outbox struct {
	db      *sql.DB
	queries *store.Queries
	sender  Sender
	siteURL string
	logger  *slog.Logger
	now     func() time.Time
}

// NewOutbox creates an outbox. A nil sender keeps every notification pending.
func NewOutbox(db *sql.DB, sender Sender, siteURL string, logger *slog.Logger) *Outbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{
		db:      db,
		queries: store.New(db),
		sender:  sender,
		siteURL: siteURL,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Configured reports whether the outbox has a sender.
func (o *Outbox) Configured() bool {
	return o.sender != nil
}

// EnqueueWelcome stores a welcome email using q, which may be bound to the
// caller's transaction.
func (o *Outbox) EnqueueWelcome(ctx context.Context, q *store.Queries, w WelcomeEmail) (int64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	return o.enqueue(ctx, q, model.NotificationWelcome, w.Email, w.Name, w)
}

// EnqueuePasswordReset stores a password reset email using q.
func (o *Outbox) EnqueuePasswordReset(ctx context.Context, q *store.Queries, p PasswordResetEmail) (int64, error) {
	if err := validateRecipient(p.Email, p.Name); err != nil {
		return 0, err
	}
	return o.enqueue(ctx, q, model.NotificationPasswordReset, p.Email, p.Name, p)
}

func (o *Outbox) enqueue(ctx context.Context, q *store.Queries, kind, recipient, name string, payload any) (int64, error) {
	if q == nil {
		q = o.queries
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encoding %s payload: %w", kind, err)
	}
	n, err := q.CreateNotification(ctx, store.CreateNotificationParams{
		Kind:          kind,
		Recipient:     recipient,
		RecipientName: name,
		Payload:       string(data),
		CreatedAt:     o.now(),
	})
	if err != nil {
		return 0, fmt.Errorf("creating notification: %w", err)
	}
	return n.ID, nil
}

// Deliver attempts one pending notification. It returns nil when the
// notification was sent or is not currently deliverable by this caller, and
// the send error otherwise. Failed attempts are rescheduled with exponential
// backoff until MaxAttempts, after which the notification is dead.
func (o *Outbox) Deliver(ctx context.Context, id int64) error {
	if o.sender == nil {
		return ErrNotConfigured
	}

	now := o.now()
	claimed, err := o.queries.ClaimNotification(ctx, id, now, now.Add(ClaimLease))
	if err != nil {
		return fmt.Errorf("claiming notification %d: %w", id, err)
	}
	if !claimed {
		o.logger.Debug("notification not claimable", "notification_id", id)
		return nil
	}

	n, err := o.queries.GetNotification(ctx, id)
	if err != nil {
		return fmt.Errorf("loading notification %d: %w", id, err)
	}

	msg, err := o.compose(n)
	if err == nil {
		err = o.sender.Send(ctx, msg)
	}
	o.record(ctx, n, err)
	return err
}

// RetryDue delivers every notification whose next attempt is due and
// returns how many were sent.
func (o *Outbox) RetryDue(ctx context.Context) (int, error) {
	if o.sender == nil {
		return 0, nil
	}

	due, err := o.queries.ListDueNotifications(ctx, o.now(), RetryBatchSize)
	if err != nil {
		return 0, fmt.Errorf("listing due notifications: %w", err)
	}

	sent := 0
	for _, n := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if err := o.Deliver(ctx, n.ID); err == nil {
			sent++
		}
	}
	return sent, nil
}

func (o *Outbox) compose(n store.Notification) (Message, error) {
	switch n.Kind {
	case model.NotificationWelcome:
		var w WelcomeEmail
		if err := json.Unmarshal([]byte(n.Payload), &w); err != nil {
			return Message{}, fmt.Errorf("%w: decoding payload: %v", ErrInvalidEmail, err)
		}
		return w.Render(o.siteURL)
	case model.NotificationPasswordReset:
		var p PasswordResetEmail
		if err := json.Unmarshal([]byte(n.Payload), &p); err != nil {
			return Message{}, fmt.Errorf("%w: decoding payload: %v", ErrInvalidEmail, err)
		}
		return p.Render()
	default:
		return Message{}, fmt.Errorf("%w: unknown notification kind %q", ErrInvalidEmail, n.Kind)
	}
}

func (o *Outbox) record(ctx context.Context, n store.Notification, sendErr error) {
	now := o.now()
	attempts := n.Attempts + 1

	var err error
	switch {
	case sendErr == nil:
		err = o.queries.MarkNotificationSent(ctx, n.ID, now)
		if err == nil {
			o.logger.Info("notification sent",
				"notification_id", n.ID,
				"kind", n.Kind,
				"attempt", attempts)
		}
	case !Retryable(sendErr) || attempts >= MaxAttempts:
		err = o.queries.MarkNotificationDead(ctx, n.ID, sendErr.Error(), now)
		if err == nil {
			o.logger.Warn("notification marked as dead",
				"category", model.EventCategoryNotify,
				"notification_id", n.ID,
				"kind", n.Kind,
				"attempts", attempts,
				"reason", sendErr.Error())
		}
	default:
		backoff := calculateBackoff(attempts)
		next := now.Add(backoff)
		err = o.queries.MarkNotificationRetry(ctx, n.ID, sendErr.Error(), next, now)
		if err == nil {
			o.logger.Warn("notification scheduled for retry",
				"category", model.EventCategoryNotify,
				"notification_id", n.ID,
				"kind", n.Kind,
				"attempt", attempts,
				"next_attempt_at", next.Format(time.RFC3339),
				"backoff", backoff.String(),
				"error", sendErr.Error())
		}
	}

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		o.logger.Error("failed to record notification attempt",
			"error", err,
			"notification_id", n.ID)
	}
}

// calculateBackoff calculates the exponential backoff duration for a given attempt.
// Attempt 1 = 1 min, Attempt 2 = 2 min, Attempt 3 = 4 min, Attempt 4 = 8 min, etc.
func calculateBackoff(attempt int64) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	backoff := time.Duration(float64(InitialBackoff) * math.Pow(2, float64(attempt-1)))
	if backoff > MaxBackoff {
		backoff = MaxBackoff
	}
	return backoff
}
