// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/store"
	"github.com/almonhna/almonhna/internal/testutil"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	return db
}

// seedAccount inserts an account with a profile in status and the given roles.
func seedAccount(t *testing.T, db *sql.DB, email, name string, status model.Status, roles ...model.Role) (store.Account, store.Profile) {
	t.Helper()
	ctx := context.Background()
	q := store.New(db)
	now := time.Now().UTC()

	account, err := q.CreateAccount(ctx, store.CreateAccountParams{
		Email:        email,
		PasswordHash: "unusable",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)

	profile, err := q.CreateProfile(ctx, store.CreateProfileParams{
		AccountID: account.ID,
		Name:      name,
		Email:     email,
		Phone:     "0500000000",
		Status:    string(status),
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)

	for _, r := range roles {
		_, err := q.GrantRole(ctx, account.ID, string(r), now)
		require.NoError(t, err)
	}
	return account, profile
}

func actorFor(account store.Account, profile store.Profile, roles ...model.Role) Actor {
	return Actor{AccountID: account.ID, ProfileID: profile.ID, Roles: roles, IP: "127.0.0.1", Path: "/test"}
}

func seedAdmin(t *testing.T, db *sql.DB) Actor {
	t.Helper()
	a, p := seedAccount(t, db, "admin@almonhna.sa", "admin", model.StatusApproved, model.RoleAdmin)
	return actorFor(a, p, model.RoleAdmin)
}

func seedWriter(t *testing.T, db *sql.DB, email, name string) Actor {
	t.Helper()
	a, p := seedAccount(t, db, email, name, model.StatusApproved, model.RoleWriter)
	return actorFor(a, p, model.RoleWriter)
}

func validInput(title string) ContentInput {
	return ContentInput{
		Title:         title,
		Excerpt:       "مقتطف قصير",
		Content:       "<p>نص</p>",
		CoverImageURL: "https://example.com/cover.jpg",
	}
}

// recordingNotifier collects the ids handed to Notify.
type recordingNotifier struct {
	mu  sync.Mutex
	ids []int64
}

func (n *recordingNotifier) Notify(id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
}

func (n *recordingNotifier) IDs() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int64(nil), n.ids...)
}

func countEvents(t *testing.T, db *sql.DB, category string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM events WHERE category = ?`, category).Scan(&n))
	return n
}
