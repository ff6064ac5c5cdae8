// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const createEvent = `-- name: CreateEvent :exec
INSERT INTO events (level, category, message, account_id, metadata, ip_address, request_url, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// CreateEventParams holds the fields for CreateEvent.
type CreateEventParams struct {
	Level      string
	Category   string
	Message    string
	AccountID  sql.NullInt64
	Metadata   string
	IpAddress  string
	RequestURL string
	CreatedAt  time.Time
}

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) error {
	_, err := q.db.ExecContext(ctx, createEvent,
		arg.Level,
		arg.Category,
		arg.Message,
		arg.AccountID,
		arg.Metadata,
		arg.IpAddress,
		arg.RequestURL,
		arg.CreatedAt,
	)
	return err
}

const listEvents = `-- name: ListEvents :many
SELECT id, level, category, message, account_id, metadata, ip_address, request_url, created_at
FROM events
WHERE (? = '' OR level = ?) AND (? = '' OR category = ?)
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`

// ListEventsParams filters the audit log. Empty strings disable a filter.
type ListEventsParams struct {
	Level    string
	Category string
	Limit    int64
	Offset   int64
}

func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]Event, error) {
	rows, err := q.db.QueryContext(ctx, listEvents,
		arg.Level, arg.Level,
		arg.Category, arg.Category,
		arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, func(row rowScanner) (Event, error) {
		var e Event
		err := row.Scan(
			&e.ID,
			&e.Level,
			&e.Category,
			&e.Message,
			&e.AccountID,
			&e.Metadata,
			&e.IpAddress,
			&e.RequestURL,
			&e.CreatedAt,
		)
		return e, err
	})
}

const deleteEventsBefore = `-- name: DeleteEventsBefore :execrows
DELETE FROM events WHERE created_at < ?`

// DeleteEventsBefore purges audit entries older than cutoff.
func (q *Queries) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEventsBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
