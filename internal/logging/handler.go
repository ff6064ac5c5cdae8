// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that mirrors warnings and errors
// into the events table, so moderation denials and delivery failures stay
// auditable after the process log has rotated.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/store"
)

// Attribute keys with a dedicated events column.
const (
	AttrCategory  = "category"
	AttrAccountID = "account_id"
	AttrIP        = "ip"
	AttrPath      = "path"
)

// EventLogHandler is a slog.Handler that wraps another handler and also writes
// WARN and ERROR level logs to the Event Log database.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level // Minimum level to forward to Event Log (default: WARN)
	attrs   []slog.Attr
}

// NewEventLogHandler creates a new EventLogHandler that wraps the given handler.
// Logs at WARN level and above will be written to both the wrapped handler and the Event Log.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a new EventLogHandler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level) || level >= h.level
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.inner.Enabled(ctx, r.Level) {
		if err := h.inner.Handle(ctx, r); err != nil {
			return err
		}
	}

	if r.Level >= h.level {
		h.writeToEventLog(r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &EventLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
		attrs:   merged,
	}
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
		attrs:   h.attrs,
	}
}

// writeToEventLog writes a log record to the Event Log database.
func (h *EventLogHandler) writeToEventLog(r slog.Record) {
	var (
		category  string
		accountID sql.NullInt64
		ip, path  string
	)
	meta := make(map[string]string)

	visit := func(a slog.Attr) bool {
		switch a.Key {
		case AttrCategory:
			category = a.Value.String()
		case AttrAccountID:
			if a.Value.Kind() == slog.KindInt64 {
				accountID = sql.NullInt64{Int64: a.Value.Int64(), Valid: true}
			} else {
				meta[a.Key] = a.Value.String()
			}
		case AttrIP:
			ip = a.Value.String()
		case AttrPath:
			path = a.Value.String()
		case "password", "token", "secret":
			meta[a.Key] = "[redacted]"
		default:
			meta[a.Key] = a.Value.String()
		}
		return true
	}
	for _, a := range h.attrs {
		visit(a)
	}
	r.Attrs(visit)

	if category == "" {
		category = inferCategory(r.Message)
	}

	metadata := "{}"
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			metadata = string(b)
		}
	}

	// Background context: the event is still recorded after the request is cancelled.
	_ = h.queries.CreateEvent(context.Background(), store.CreateEventParams{
		Level:      slogLevelToEventLevel(r.Level),
		Category:   category,
		Message:    r.Message,
		AccountID:  accountID,
		Metadata:   metadata,
		IpAddress:  ip,
		RequestURL: path,
		CreatedAt:  r.Time.UTC(),
	})
}

// slogLevelToEventLevel converts a slog.Level to an Event Log level.
func slogLevelToEventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// inferCategory guesses a category from the message when no attribute names one.
func inferCategory(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "auth") || strings.Contains(msg, "login") ||
		strings.Contains(msg, "logout") || strings.Contains(msg, "access denied"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "approve") || strings.Contains(msg, "reject") || strings.Contains(msg, "moderat"):
		return model.EventCategoryModeration
	case strings.Contains(msg, "article") || strings.Contains(msg, "news") || strings.Contains(msg, "content"):
		return model.EventCategoryContent
	case strings.Contains(msg, "writer") || strings.Contains(msg, "profile"):
		return model.EventCategoryWriter
	case strings.Contains(msg, "role"):
		return model.EventCategoryRole
	case strings.Contains(msg, "email") || strings.Contains(msg, "notification") || strings.Contains(msg, "mail"):
		return model.EventCategoryNotify
	case strings.Contains(msg, "cache"):
		return model.EventCategoryCache
	default:
		return model.EventCategorySystem
	}
}
