// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/almonhna/almonhna/internal/i18n"
	"github.com/almonhna/almonhna/internal/session"
)

// ContextKeyLanguage holds the negotiated language code.
const ContextKeyLanguage ContextKey = "language"

// Language creates middleware that detects and sets the current language.
// Priority order:
// 1. Query parameter ?lang=XX (explicit switch, remembered in the session)
// 2. Language stored in the session
// 3. Accept-Language header
// 4. Default language
//
// sm may be nil, in which case the session steps are skipped.
func Language(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			lang := ""

			if q := strings.ToLower(r.URL.Query().Get("lang")); q != "" && i18n.IsSupported(q) {
				lang = q
				if sm != nil {
					sm.Put(ctx, session.KeyLanguage, lang)
				}
			}

			if lang == "" && sm != nil {
				if stored := sm.GetString(ctx, session.KeyLanguage); i18n.IsSupported(stored) {
					lang = stored
				}
			}

			if lang == "" {
				lang = i18n.MatchLanguage(r.Header.Get("Accept-Language"))
			}

			w.Header().Set("Content-Language", lang)
			next.ServeHTTP(w, r.WithContext(WithLanguage(ctx, lang)))
		})
	}
}

// WithLanguage returns a copy of ctx carrying lang.
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ContextKeyLanguage, lang)
}

// GetLanguage returns the request language, or the default language when
// the Language middleware did not run.
func GetLanguage(r *http.Request) string {
	if lang, ok := r.Context().Value(ContextKeyLanguage).(string); ok && lang != "" {
		return lang
	}
	return i18n.DefaultLanguage
}
