// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth       = "auth"
	EventCategoryContent    = "content"
	EventCategoryWriter     = "writer"
	EventCategoryRole       = "role"
	EventCategoryProduct    = "product"
	EventCategoryNotify     = "notify"
	EventCategorySystem     = "system"
	EventCategoryCache      = "cache"
	EventCategoryModeration = "moderation"
)

// Notification kinds stored in the outbox.
const (
	NotificationWelcome       = "welcome"
	NotificationPasswordReset = "password_reset"
)

// Notification delivery states.
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationDead    = "dead"
)
