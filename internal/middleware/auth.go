// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/almonhna/almonhna/internal/i18n"
	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/service"
	"github.com/almonhna/almonhna/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request data.
const (
	ContextKeyPrincipal   ContextKey = "principal"
	ContextKeyRequestPath ContextKey = "request_path"
)

// GuardResponse is the JSON body sent when RequireRole refuses a request.
type GuardResponse struct {
	Error    APIErrorDetail   `json:"error"`
	Decision service.Decision `json:"decision"`
}

// RequireRole guards a route group behind role. The role check runs once per
// request; on success the resolved principal is stored in the context.
// Refusals are JSON: 401 when the caller has to sign in, 403 otherwise.
func RequireRole(sm *scs.SessionManager, authz *service.Authorizer, role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			decision, principal := authz.Guard(ctx, session.AccountID(ctx, sm), role)

			if decision.Status == service.DecisionAuthorized {
				ctx = context.WithValue(ctx, ContextKeyPrincipal, principal)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			status, code, notice := http.StatusForbidden, "forbidden", decision.Notice
			if decision.Location == service.LocationLogin {
				status, code, notice = http.StatusUnauthorized, "unauthenticated", "auth.login_required"
			}

			slog.Debug("route guard refused request",
				"path", r.URL.Path,
				"role", role,
				"location", decision.Location,
			)

			writeJSON(w, status, GuardResponse{
				Error: APIErrorDetail{
					Code:    code,
					Message: i18n.T(GetLanguage(r), notice),
				},
				Decision: decision,
			})
		})
	}
}

// GetPrincipal returns the principal stored by RequireRole, or nil.
func GetPrincipal(r *http.Request) *service.Principal {
	p, _ := r.Context().Value(ContextKeyPrincipal).(*service.Principal)
	return p
}

// ActorFrom builds a service Actor for the request. Requests outside a
// guarded group get an anonymous actor carrying only the request metadata.
func ActorFrom(r *http.Request) service.Actor {
	ip := GetClientIP(r)
	if p := GetPrincipal(r); p != nil {
		return p.Actor(ip, r.URL.Path)
	}
	return service.Actor{IP: ip, Path: r.URL.Path}
}

// RequestPath stores the current request path in the context.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(r *http.Request) string {
	if path, ok := r.Context().Value(ContextKeyRequestPath).(string); ok {
		return path
	}
	return ""
}
