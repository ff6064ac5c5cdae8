// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain types shared across the application:
// moderation statuses, roles, content kinds and event constants.
package model

import (
	"fmt"
	"strings"
)

// Status is the moderation state of a profile, article or news item.
type Status string

// Moderation states.
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the three moderation states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// StatusFilter selects rows by moderation state. The zero value matches all.
type StatusFilter struct {
	Status Status
}

// FilterAll is the filter value that matches every status.
const FilterAll = "all"

// All reports whether the filter matches every status.
func (f StatusFilter) All() bool {
	return f.Status == ""
}

// String returns the query-string form of the filter.
func (f StatusFilter) String() string {
	if f.All() {
		return FilterAll
	}
	return string(f.Status)
}

// ParseStatusFilter parses the ?status= query parameter.
// An empty value and "all" both select every status.
func ParseStatusFilter(raw string) (StatusFilter, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == FilterAll {
		return StatusFilter{}, nil
	}
	s := Status(raw)
	if !s.Valid() {
		return StatusFilter{}, fmt.Errorf("unknown status filter %q", raw)
	}
	return StatusFilter{Status: s}, nil
}
