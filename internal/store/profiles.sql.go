// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const profileColumns = `id, account_id, name, email, phone, bio, photo_url, linkedin_url, status, created_at, updated_at`

func scanProfile(row rowScanner) (Profile, error) {
	var p Profile
	err := row.Scan(
		&p.ID,
		&p.AccountID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.Bio,
		&p.PhotoURL,
		&p.LinkedinURL,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const createProfile = `-- name: CreateProfile :one
INSERT INTO profiles (account_id, name, email, phone, bio, photo_url, linkedin_url, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + profileColumns

// CreateProfileParams holds the fields for CreateProfile.
type CreateProfileParams struct {
	AccountID   int64
	Name        string
	Email       string
	Phone       string
	Bio         string
	PhotoURL    string
	LinkedinURL string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (q *Queries) CreateProfile(ctx context.Context, arg CreateProfileParams) (Profile, error) {
	row := q.db.QueryRowContext(ctx, createProfile,
		arg.AccountID,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.Bio,
		arg.PhotoURL,
		arg.LinkedinURL,
		arg.Status,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanProfile(row)
}

const getProfileByID = `-- name: GetProfileByID :one
SELECT ` + profileColumns + ` FROM profiles WHERE id = ?`

func (q *Queries) GetProfileByID(ctx context.Context, id int64) (Profile, error) {
	return scanProfile(q.db.QueryRowContext(ctx, getProfileByID, id))
}

const getProfileByAccountID = `-- name: GetProfileByAccountID :one
SELECT ` + profileColumns + ` FROM profiles WHERE account_id = ?`

func (q *Queries) GetProfileByAccountID(ctx context.Context, accountID int64) (Profile, error) {
	return scanProfile(q.db.QueryRowContext(ctx, getProfileByAccountID, accountID))
}

const getApprovedProfile = `-- name: GetApprovedProfile :one
SELECT ` + profileColumns + ` FROM profiles WHERE id = ? AND status = 'approved'`

func (q *Queries) GetApprovedProfile(ctx context.Context, id int64) (Profile, error) {
	return scanProfile(q.db.QueryRowContext(ctx, getApprovedProfile, id))
}

const listProfiles = `-- name: ListProfiles :many
SELECT ` + profileColumns + ` FROM profiles ORDER BY name ASC, id ASC`

func (q *Queries) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := q.db.QueryContext(ctx, listProfiles)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, scanProfile)
}

const listProfilesByStatus = `-- name: ListProfilesByStatus :many
SELECT ` + profileColumns + ` FROM profiles WHERE status = ? ORDER BY name ASC, id ASC`

// ListProfilesByStatus returns profiles with the given status ordered by name.
func (q *Queries) ListProfilesByStatus(ctx context.Context, status string) ([]Profile, error) {
	rows, err := q.db.QueryContext(ctx, listProfilesByStatus, status)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, scanProfile)
}

const updateProfileStatus = `-- name: UpdateProfileStatus :exec
UPDATE profiles SET status = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateProfileStatus(ctx context.Context, id int64, status string, updatedAt time.Time) error {
	res, err := q.db.ExecContext(ctx, updateProfileStatus, status, updatedAt, id)
	if err != nil {
		return err
	}
	return affected(res)
}

const updateProfileDetails = `-- name: UpdateProfileDetails :one
UPDATE profiles
SET name = ?, phone = ?, bio = ?, photo_url = ?, linkedin_url = ?, updated_at = ?
WHERE id = ?
RETURNING ` + profileColumns

// UpdateProfileDetailsParams holds the editable profile fields.
type UpdateProfileDetailsParams struct {
	ID          int64
	Name        string
	Phone       string
	Bio         string
	PhotoURL    string
	LinkedinURL string
	UpdatedAt   time.Time
}

func (q *Queries) UpdateProfileDetails(ctx context.Context, arg UpdateProfileDetailsParams) (Profile, error) {
	row := q.db.QueryRowContext(ctx, updateProfileDetails,
		arg.Name,
		arg.Phone,
		arg.Bio,
		arg.PhotoURL,
		arg.LinkedinURL,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanProfile(row)
}

const deleteProfile = `-- name: DeleteProfile :exec
DELETE FROM profiles WHERE id = ?`

func (q *Queries) DeleteProfile(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteProfile, id)
	if err != nil {
		return err
	}
	return affected(res)
}

const countProfilesByStatus = `-- name: CountProfilesByStatus :one
SELECT COUNT(*) FROM profiles WHERE status = ?`

func (q *Queries) CountProfilesByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countProfilesByStatus, status).Scan(&n)
	return n, err
}

const topWriters = `-- name: TopWriters :many
SELECT p.id, p.account_id, p.name, p.email, p.phone, p.bio, p.photo_url, p.linkedin_url, p.status, p.created_at, p.updated_at,
       c.total
FROM profiles p
JOIN (
    SELECT author_id, COUNT(*) AS total FROM (
        SELECT author_id FROM articles WHERE status = 'approved'
        UNION ALL
        SELECT author_id FROM news WHERE status = 'approved'
    ) GROUP BY author_id
) c ON c.author_id = p.id
WHERE p.status = 'approved'
ORDER BY c.total DESC, p.name ASC
LIMIT ?`

// WriterCount pairs a profile with its approved content count.
type WriterCount struct {
	Profile
	Total int64 `json:"total"`
}

// TopWriters ranks approved writers by approved article plus news count.
func (q *Queries) TopWriters(ctx context.Context, limit int64) ([]WriterCount, error) {
	rows, err := q.db.QueryContext(ctx, topWriters, limit)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, func(row rowScanner) (WriterCount, error) {
		var w WriterCount
		err := row.Scan(
			&w.ID,
			&w.AccountID,
			&w.Name,
			&w.Email,
			&w.Phone,
			&w.Bio,
			&w.PhotoURL,
			&w.LinkedinURL,
			&w.Status,
			&w.CreatedAt,
			&w.UpdatedAt,
			&w.Total,
		)
		return w, err
	})
}
