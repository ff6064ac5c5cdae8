// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/store"
	"github.com/almonhna/almonhna/internal/testutil"
)

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func listEvents(t *testing.T, db *sql.DB) []store.Event {
	t.Helper()
	events, err := store.New(db).ListEvents(context.Background(), store.ListEventsParams{Limit: 50})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	return events
}

func TestEventLogHandler_LevelThreshold(t *testing.T) {
	tests := []struct {
		name      string
		log       func(*slog.Logger)
		wantLevel string
	}{
		{"error", func(l *slog.Logger) { l.Error("database connection failed") }, model.EventLevelError},
		{"warn", func(l *slog.Logger) { l.Warn("slow query") }, model.EventLevelWarning},
		{"info", func(l *slog.Logger) { l.Info("server started") }, ""},
		{"debug", func(l *slog.Logger) { l.Debug("details") }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, cleanup := testutil.TestDB(t)
			defer cleanup()

			tt.log(slog.New(NewEventLogHandler(discardHandler{}, db)))

			events := listEvents(t, db)
			if tt.wantLevel == "" {
				if len(events) != 0 {
					t.Fatalf("expected no events, got %d", len(events))
				}
				return
			}
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			if events[0].Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", events[0].Level, tt.wantLevel)
			}
		})
	}
}

func TestEventLogHandler_CustomLevel(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandlerWithLevel(discardHandler{}, db, slog.LevelInfo))
	logger.Info("writer approved")

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Level != model.EventLevelInfo {
		t.Errorf("Level = %q, want %q", events[0].Level, model.EventLevelInfo)
	}
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"login failed", model.EventCategoryAuth},
		{"access denied", model.EventCategoryAuth},
		{"article approve refused", model.EventCategoryModeration},
		{"news item missing", model.EventCategoryContent},
		{"writer profile lookup failed", model.EventCategoryWriter},
		{"role grant failed", model.EventCategoryRole},
		{"welcome email delivery failed", model.EventCategoryNotify},
		{"cache miss storm", model.EventCategoryCache},
		{"disk full", model.EventCategorySystem},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := inferCategory(tt.message); got != tt.want {
				t.Errorf("inferCategory(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestEventLogHandler_ColumnsFromAttrs(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))
	logger.Warn("access denied",
		AttrCategory, model.EventCategoryRole,
		AttrAccountID, int64(42),
		AttrIP, "10.0.0.1",
		AttrPath, "/api/admin/dashboard",
		"required_role", "admin",
	)

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Category != model.EventCategoryRole {
		t.Errorf("Category = %q, want %q", e.Category, model.EventCategoryRole)
	}
	if !e.AccountID.Valid || e.AccountID.Int64 != 42 {
		t.Errorf("AccountID = %v, want 42", e.AccountID)
	}
	if e.IpAddress != "10.0.0.1" {
		t.Errorf("IpAddress = %q", e.IpAddress)
	}
	if e.RequestURL != "/api/admin/dashboard" {
		t.Errorf("RequestURL = %q", e.RequestURL)
	}

	var meta map[string]string
	if err := json.Unmarshal([]byte(e.Metadata), &meta); err != nil {
		t.Fatalf("metadata is not JSON: %v (%s)", err, e.Metadata)
	}
	if meta["required_role"] != "admin" {
		t.Errorf("metadata = %v, want required_role=admin", meta)
	}
	if _, ok := meta[AttrCategory]; ok {
		t.Error("category should not be duplicated into metadata")
	}
}

func TestEventLogHandler_WithAttrs(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandler(discardHandler{}, db)).With(AttrCategory, model.EventCategoryNotify)
	logger.Error("send failed", "quote", `he said "hi"`)

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Category != model.EventCategoryNotify {
		t.Errorf("Category = %q, want %q", events[0].Category, model.EventCategoryNotify)
	}

	var meta map[string]string
	if err := json.Unmarshal([]byte(events[0].Metadata), &meta); err != nil {
		t.Fatalf("metadata is not JSON: %v", err)
	}
	if meta["quote"] != `he said "hi"` {
		t.Errorf("quote = %q", meta["quote"])
	}
}

func TestSlogLevelToEventLevel(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, model.EventLevelInfo},
		{slog.LevelInfo, model.EventLevelInfo},
		{slog.LevelWarn, model.EventLevelWarning},
		{slog.LevelError, model.EventLevelError},
		{slog.LevelError + 4, model.EventLevelError},
	}

	for _, tt := range tests {
		if got := slogLevelToEventLevel(tt.level); got != tt.want {
			t.Errorf("slogLevelToEventLevel(%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestEventLogHandler_RedactsSecrets(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))
	logger.Warn("credentials rotated", "password", "hunter22", "token", "abc.def", "email", "a@b.c")

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	var meta map[string]string
	if err := json.Unmarshal([]byte(events[0].Metadata), &meta); err != nil {
		t.Fatalf("metadata is not JSON: %v", err)
	}
	if meta["password"] != "[redacted]" || meta["token"] != "[redacted]" {
		t.Errorf("secrets not redacted: %v", meta)
	}
	if meta["email"] != "a@b.c" {
		t.Errorf("email = %q, want a@b.c", meta["email"])
	}
}
