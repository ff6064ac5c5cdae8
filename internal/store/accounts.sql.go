// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const accountColumns = `id, email, password_hash, password_set, last_login_at, created_at, updated_at`

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.PasswordSet,
		&a.LastLoginAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

const createAccount = `-- name: CreateAccount :one
INSERT INTO accounts (email, password_hash, password_set, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + accountColumns

// CreateAccountParams holds the fields for CreateAccount.
type CreateAccountParams struct {
	Email        string
	PasswordHash string
	PasswordSet  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	row := q.db.QueryRowContext(ctx, createAccount,
		arg.Email,
		arg.PasswordHash,
		arg.PasswordSet,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanAccount(row)
}

const getAccountByID = `-- name: GetAccountByID :one
SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

func (q *Queries) GetAccountByID(ctx context.Context, id int64) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccountByID, id))
}

const getAccountByEmail = `-- name: GetAccountByEmail :one
SELECT ` + accountColumns + ` FROM accounts WHERE email = ?`

func (q *Queries) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccountByEmail, email))
}

const updateAccountPassword = `-- name: UpdateAccountPassword :exec
UPDATE accounts SET password_hash = ?, password_set = 1, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateAccountPassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	res, err := q.db.ExecContext(ctx, updateAccountPassword, passwordHash, updatedAt, id)
	if err != nil {
		return err
	}
	return affected(res)
}

const updateAccountLastLogin = `-- name: UpdateAccountLastLogin :exec
UPDATE accounts SET last_login_at = ? WHERE id = ?`

func (q *Queries) UpdateAccountLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx, updateAccountLastLogin, at, id)
	return err
}

const deleteAccount = `-- name: DeleteAccount :exec
DELETE FROM accounts WHERE id = ?`

func (q *Queries) DeleteAccount(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteAccount, id)
	if err != nil {
		return err
	}
	return affected(res)
}

const listAccounts = `-- name: ListAccounts :many
SELECT ` + accountColumns + ` FROM accounts ORDER BY email ASC`

func (q *Queries) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, scanAccount)
}
