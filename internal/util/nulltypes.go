// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides small helpers shared by the store, services and
// handlers: nullable column conversion, slugs, URL and path validation.
package util

import "database/sql"

// NullInt64FromPtr converts an optional id into a nullable column value.
func NullInt64FromPtr(ptr *int64) sql.NullInt64 {
	if ptr != nil {
		return sql.NullInt64{Int64: *ptr, Valid: true}
	}
	return sql.NullInt64{}
}
