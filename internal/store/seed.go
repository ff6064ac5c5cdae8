// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AdminSeed describes the administrator account created at setup.
type AdminSeed struct {
	Email        string
	Name         string
	PasswordHash string
}

// SeedResult reports what EnsureAdmin did.
type SeedResult struct {
	AccountID int64
	Created   bool
}

// EnsureAdmin creates the administrator account with an approved profile and
// the admin role. When the account already exists it only fills in a missing
// role or profile, leaving the password untouched.
func EnsureAdmin(ctx context.Context, db *sql.DB, seed AdminSeed) (SeedResult, error) {
	var result SeedResult

	err := RunInTx(ctx, db, func(q *Queries) error {
		now := time.Now().UTC()

		account, err := q.GetAccountByEmail(ctx, seed.Email)
		switch {
		case err == nil:
			result.AccountID = account.ID
		case errors.Is(err, sql.ErrNoRows):
			account, err = q.CreateAccount(ctx, CreateAccountParams{
				Email:        seed.Email,
				PasswordHash: seed.PasswordHash,
				PasswordSet:  true,
				CreatedAt:    now,
				UpdatedAt:    now,
			})
			if err != nil {
				return fmt.Errorf("creating admin account: %w", err)
			}
			result.AccountID = account.ID
			result.Created = true
		default:
			return fmt.Errorf("looking up admin account: %w", err)
		}

		profile, err := q.GetProfileByAccountID(ctx, account.ID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := q.CreateProfile(ctx, CreateProfileParams{
				AccountID: account.ID,
				Name:      seed.Name,
				Email:     seed.Email,
				Status:    "approved",
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return fmt.Errorf("creating admin profile: %w", err)
			}
		case err != nil:
			return fmt.Errorf("looking up admin profile: %w", err)
		case profile.Status != "approved":
			if err := q.UpdateProfileStatus(ctx, profile.ID, "approved", now); err != nil {
				return fmt.Errorf("approving admin profile: %w", err)
			}
		}

		if _, err := q.GrantRole(ctx, account.ID, "admin", now); err != nil {
			return fmt.Errorf("granting admin role: %w", err)
		}
		return nil
	})

	return result, err
}
