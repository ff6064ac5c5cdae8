// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the cookie session manager and the keys stored in it.
package session

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Session keys.
const (
	KeyAccountID = "account_id"
	KeyLanguage  = "lang"
)

// New creates a new session manager configured with SQLite store.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()

	sm.Store = sqlite3store.New(db)

	sm.Lifetime = 24 * time.Hour
	sm.IdleTimeout = 12 * time.Hour
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	sm.Cookie.Secure = !isDev // Secure cookies in production only
	if !isDev {
		sm.Cookie.Name = "__Host-session"
	}

	return sm
}

// AccountID returns the signed-in account, or 0 when there is none.
func AccountID(ctx context.Context, sm *scs.SessionManager) int64 {
	return sm.GetInt64(ctx, KeyAccountID)
}

// SignIn renews the session token and records the account.
func SignIn(ctx context.Context, sm *scs.SessionManager, accountID int64) error {
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, KeyAccountID, accountID)
	return nil
}

// SignOut drops all session data and renews the token.
func SignOut(ctx context.Context, sm *scs.SessionManager) error {
	if err := sm.Clear(ctx); err != nil {
		return err
	}
	return sm.RenewToken(ctx)
}
