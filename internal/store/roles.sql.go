// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const grantRole = `-- name: GrantRole :execrows
INSERT INTO user_roles (account_id, role, created_at) VALUES (?, ?, ?)
ON CONFLICT (account_id, role) DO NOTHING`

// GrantRole inserts a role assignment. It reports whether a new row was
// inserted; an existing assignment is left untouched.
func (q *Queries) GrantRole(ctx context.Context, accountID int64, role string, at time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, grantRole, accountID, role, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const revokeRole = `-- name: RevokeRole :execrows
DELETE FROM user_roles WHERE account_id = ? AND role = ?`

// RevokeRole removes a role assignment and reports whether one existed.
func (q *Queries) RevokeRole(ctx context.Context, accountID int64, role string) (bool, error) {
	res, err := q.db.ExecContext(ctx, revokeRole, accountID, role)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const revokeAllRoles = `-- name: RevokeAllRoles :exec
DELETE FROM user_roles WHERE account_id = ?`

func (q *Queries) RevokeAllRoles(ctx context.Context, accountID int64) error {
	_, err := q.db.ExecContext(ctx, revokeAllRoles, accountID)
	return err
}

const hasRole = `-- name: HasRole :one
SELECT EXISTS(SELECT 1 FROM user_roles WHERE account_id = ? AND role = ?)`

func (q *Queries) HasRole(ctx context.Context, accountID int64, role string) (bool, error) {
	var ok bool
	err := q.db.QueryRowContext(ctx, hasRole, accountID, role).Scan(&ok)
	return ok, err
}

const listRolesForAccount = `-- name: ListRolesForAccount :many
SELECT role FROM user_roles WHERE account_id = ? ORDER BY role`

func (q *Queries) ListRolesForAccount(ctx context.Context, accountID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listRolesForAccount, accountID)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, func(row rowScanner) (string, error) {
		var role string
		err := row.Scan(&role)
		return role, err
	})
}

const listRoleAssignments = `-- name: ListRoleAssignments :many
SELECT id, account_id, role, created_at FROM user_roles ORDER BY account_id, role`

func (q *Queries) ListRoleAssignments(ctx context.Context) ([]UserRole, error) {
	rows, err := q.db.QueryContext(ctx, listRoleAssignments)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, func(row rowScanner) (UserRole, error) {
		var r UserRole
		err := row.Scan(&r.ID, &r.AccountID, &r.Role, &r.CreatedAt)
		return r, err
	})
}

const countRole = `-- name: CountRole :one
SELECT COUNT(*) FROM user_roles WHERE role = ?`

func (q *Queries) CountRole(ctx context.Context, role string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countRole, role).Scan(&n)
	return n, err
}
