// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the moderation workflow, writer management,
// role guard and the supporting account, product, media and audit services.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/store"
)

// EventService provides event logging functionality.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
	}
}

// LogEvent creates a new event log entry.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, accountID *int64, ipAddress, requestURL string, metadata map[string]any) error {
	var nullAccountID sql.NullInt64
	if accountID != nil {
		nullAccountID = sql.NullInt64{Int64: *accountID, Valid: true}
	}

	metadataJSON := "{}"
	if metadata != nil {
		jsonBytes, err := json.Marshal(metadata)
		if err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:      level,
		Category:   category,
		Message:    message,
		AccountID:  nullAccountID,
		Metadata:   metadataJSON,
		IpAddress:  ipAddress,
		RequestURL: requestURL,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		slog.Error("failed to log event", "error", err, "message", message)
		return err
	}

	return nil
}

// Audit records an info event attributed to actor. Failures are logged and
// never fail the calling operation.
func (s *EventService) Audit(ctx context.Context, actor Actor, category, message string, metadata map[string]any) {
	if s == nil {
		return
	}
	_ = s.LogEvent(ctx, model.EventLevelInfo, category, message, actor.accountRef(), actor.IP, actor.Path, metadata)
}

// AuditWarning records a warning event attributed to actor.
func (s *EventService) AuditWarning(ctx context.Context, actor Actor, category, message string, metadata map[string]any) {
	if s == nil {
		return
	}
	_ = s.LogEvent(ctx, model.EventLevelWarning, category, message, actor.accountRef(), actor.IP, actor.Path, metadata)
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, accountID *int64, ipAddress, requestURL string, metadata map[string]any) error {
	if s == nil {
		return nil
	}
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, accountID, ipAddress, requestURL, metadata)
}

// EventFilter narrows List.
type EventFilter struct {
	Level    string
	Category string
	Limit    int64
	Offset   int64
}

// List returns events newest first. Limit defaults to 100 and is capped at 500.
func (s *EventService) List(ctx context.Context, f EventFilter) ([]store.Event, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.queries.ListEvents(ctx, store.ListEventsParams{
		Level:    f.Level,
		Category: f.Category,
		Limit:    f.Limit,
		Offset:   f.Offset,
	})
}

// DeleteOldEvents removes events older than the specified duration.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	return s.queries.DeleteEventsBefore(ctx, cutoff)
}
