// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

// Account holds login credentials.
type Account struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	PasswordSet  bool         `json:"password_set"`
	LastLoginAt  sql.NullTime `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Profile is the public identity of an account.
type Profile struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"account_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Bio         string    `json:"bio"`
	PhotoURL    string    `json:"photo_url"`
	LinkedinURL string    `json:"linkedin_url"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserRole is a role assignment.
type UserRole struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is a catalog entry articles may reference.
type Product struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DescriptionHTML string    `json:"description_html"`
	ImageURL        string    `json:"image_url"`
	DisplayOrder    int64     `json:"display_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Content is a row of the articles or news table. ProductID is never valid for news.
type Content struct {
	ID              int64          `json:"id"`
	Title           string         `json:"title"`
	Excerpt         string         `json:"excerpt"`
	Content         string         `json:"content"`
	CoverImageURL   string         `json:"cover_image_url"`
	AuthorID        int64          `json:"author_id"`
	ProductID       sql.NullInt64  `json:"product_id"`
	Views           int64          `json:"views"`
	Status          string         `json:"status"`
	RejectionReason sql.NullString `json:"rejection_reason"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ContentWithAuthor joins a content row with its author's display fields.
type ContentWithAuthor struct {
	Content
	AuthorName     string `json:"author_name"`
	AuthorPhotoURL string `json:"author_photo_url"`
}

// Event is an audit log entry.
type Event struct {
	ID         int64         `json:"id"`
	Level      string        `json:"level"`
	Category   string        `json:"category"`
	Message    string        `json:"message"`
	AccountID  sql.NullInt64 `json:"account_id"`
	Metadata   string        `json:"metadata"`
	IpAddress  string        `json:"ip_address"`
	RequestURL string        `json:"request_url"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Notification is an outbox row for a transactional email.
type Notification struct {
	ID            int64        `json:"id"`
	Kind          string       `json:"kind"`
	Recipient     string       `json:"recipient"`
	RecipientName string       `json:"recipient_name"`
	Payload       string       `json:"payload"`
	Status        string       `json:"status"`
	Attempts      int64        `json:"attempts"`
	LastError     string       `json:"last_error"`
	NextAttemptAt time.Time    `json:"next_attempt_at"`
	SentAt        sql.NullTime `json:"sent_at"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
