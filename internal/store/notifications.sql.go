// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const notificationColumns = `id, kind, recipient, recipient_name, payload, status, attempts, last_error, next_attempt_at, sent_at, created_at, updated_at`

func scanNotification(row rowScanner) (Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID,
		&n.Kind,
		&n.Recipient,
		&n.RecipientName,
		&n.Payload,
		&n.Status,
		&n.Attempts,
		&n.LastError,
		&n.NextAttemptAt,
		&n.SentAt,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	return n, err
}

const createNotification = `-- name: CreateNotification :one
INSERT INTO notifications (kind, recipient, recipient_name, payload, status, next_attempt_at, created_at, updated_at)
VALUES (?, ?, ?, ?, 'pending', ?, ?, ?)
RETURNING ` + notificationColumns

// CreateNotificationParams holds the fields for CreateNotification.
type CreateNotificationParams struct {
	Kind          string
	Recipient     string
	RecipientName string
	Payload       string
	CreatedAt     time.Time
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	row := q.db.QueryRowContext(ctx, createNotification,
		arg.Kind,
		arg.Recipient,
		arg.RecipientName,
		arg.Payload,
		arg.CreatedAt,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return scanNotification(row)
}

const getNotification = `-- name: GetNotification :one
SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`

func (q *Queries) GetNotification(ctx context.Context, id int64) (Notification, error) {
	return scanNotification(q.db.QueryRowContext(ctx, getNotification, id))
}

const listDueNotifications = `-- name: ListDueNotifications :many
SELECT ` + notificationColumns + `
FROM notifications
WHERE status = 'pending' AND next_attempt_at <= ?
ORDER BY next_attempt_at ASC, id ASC
LIMIT ?`

// ListDueNotifications returns pending notifications whose next attempt is due.
func (q *Queries) ListDueNotifications(ctx context.Context, now time.Time, limit int64) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, listDueNotifications, now, limit)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, scanNotification)
}

const claimNotification = `-- name: ClaimNotification :execrows
UPDATE notifications
SET next_attempt_at = ?, updated_at = ?
WHERE id = ? AND status = 'pending' AND next_attempt_at <= ?`

// ClaimNotification leases a due notification until leaseUntil so that only
// one worker attempts it. It reports false when the row is not pending, not
// yet due, or already leased by another worker.
func (q *Queries) ClaimNotification(ctx context.Context, id int64, now, leaseUntil time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, claimNotification, leaseUntil, now, id, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const markNotificationSent = `-- name: MarkNotificationSent :exec
UPDATE notifications
SET status = 'sent', attempts = attempts + 1, last_error = '', sent_at = ?, updated_at = ?
WHERE id = ? AND status = 'pending'`

func (q *Queries) MarkNotificationSent(ctx context.Context, id int64, at time.Time) error {
	res, err := q.db.ExecContext(ctx, markNotificationSent, at, at, id)
	if err != nil {
		return err
	}
	return affected(res)
}

const markNotificationRetry = `-- name: MarkNotificationRetry :exec
UPDATE notifications
SET attempts = attempts + 1, last_error = ?, next_attempt_at = ?, updated_at = ?
WHERE id = ? AND status = 'pending'`

// MarkNotificationRetry records a failed attempt and schedules the next one.
func (q *Queries) MarkNotificationRetry(ctx context.Context, id int64, lastError string, next, at time.Time) error {
	res, err := q.db.ExecContext(ctx, markNotificationRetry, lastError, next, at, id)
	if err != nil {
		return err
	}
	return affected(res)
}

const markNotificationDead = `-- name: MarkNotificationDead :exec
UPDATE notifications
SET status = 'dead', attempts = attempts + 1, last_error = ?, updated_at = ?
WHERE id = ? AND status = 'pending'`

func (q *Queries) MarkNotificationDead(ctx context.Context, id int64, lastError string, at time.Time) error {
	res, err := q.db.ExecContext(ctx, markNotificationDead, lastError, at, id)
	if err != nil {
		return err
	}
	return affected(res)
}

const countNotificationsByStatus = `-- name: CountNotificationsByStatus :one
SELECT COUNT(*) FROM notifications WHERE status = ?`

func (q *Queries) CountNotificationsByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countNotificationsByStatus, status).Scan(&n)
	return n, err
}

