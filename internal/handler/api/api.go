// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON API of the magazine.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/almonhna/almonhna/internal/auth"
	"github.com/almonhna/almonhna/internal/cache"
	"github.com/almonhna/almonhna/internal/i18n"
	"github.com/almonhna/almonhna/internal/middleware"
	"github.com/almonhna/almonhna/internal/notify"
	"github.com/almonhna/almonhna/internal/scheduler"
	"github.com/almonhna/almonhna/internal/service"
)

// maxBodySize caps JSON request bodies.
const maxBodySize = 1 << 20

// JobRunner lists and triggers scheduled jobs.
type JobRunner interface {
	Jobs() []scheduler.JobInfo
	Trigger(ctx context.Context, name string) error
}

// Deps holds the collaborators of the API. Jobs, Login and Logger may be nil.
type Deps struct {
	DB         *sql.DB
	Sessions   *scs.SessionManager
	Authorizer *service.Authorizer
	Accounts   *service.AccountService
	Writers    *service.WriterService
	Content    *service.ContentService
	Roles      *service.RoleService
	Products   *service.ProductService
	Stats      *service.StatsService
	Setup      *service.SetupService
	Media      *service.MediaService
	Events     *service.EventService
	Listings   *cache.Listings
	Jobs       JobRunner
	Login      *middleware.LoginProtection
	Version    string
	Logger     *slog.Logger
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	Deps
	health *healthChecker
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Handler{
		Deps:   d,
		health: newHealthChecker(d.DB, d.Listings, d.Version),
	}
}

// Response is the standard API response wrapper.
type Response struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Meta carries list metadata.
type Meta struct {
	Total int `json:"total"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse = middleware.APIError

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a 200 response.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{Data: data})
}

// WriteList writes a 200 response for a list and fills Meta.Total.
func WriteList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	WriteJSON(w, http.StatusOK, Response{Data: items, Meta: &Meta{Total: len(items)}})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

func translate(r *http.Request, key string) string {
	return i18n.T(middleware.GetLanguage(r), key)
}

// WriteMessage writes a 200 response with a translated message.
func WriteMessage(w http.ResponseWriter, r *http.Request, key string) {
	WriteJSON(w, http.StatusOK, Response{Message: translate(r, key)})
}

// WriteError writes an error JSON response with a translated message.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, code, messageKey string, details map[string]string) {
	middleware.WriteAPIError(w, statusCode, code, translate(r, messageKey), details)
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, details map[string]string) {
	WriteError(w, r, http.StatusBadRequest, "bad_request", "error.bad_request", details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusNotFound, "not_found", "error.not_found", nil)
}

// writeServiceError maps a service error onto a response. Validation
// details carry i18n keys so clients can render them in either language.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteError(w, r, http.StatusUnprocessableEntity, "validation_error", "error.validation", verr.Fields)
	case errors.Is(err, service.ErrNotFound):
		WriteNotFound(w, r)
	case errors.Is(err, service.ErrForbidden):
		WriteError(w, r, http.StatusForbidden, "forbidden", "error.forbidden", nil)
	case errors.Is(err, service.ErrInvalidTransition):
		WriteError(w, r, http.StatusConflict, "invalid_transition", "error.invalid_transition", nil)
	case errors.Is(err, service.ErrConflict):
		WriteError(w, r, http.StatusConflict, "conflict", "error.conflict", nil)
	case errors.Is(err, service.ErrSelfAction):
		WriteError(w, r, http.StatusConflict, "self_action", "error.self_action", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteError(w, r, http.StatusUnauthorized, "invalid_credentials", "auth.invalid_credentials", nil)
	case errors.Is(err, auth.ErrInvalidToken):
		WriteError(w, r, http.StatusBadRequest, "invalid_token", "auth.invalid_token", nil)
	case errors.Is(err, notify.ErrNotConfigured):
		WriteError(w, r, http.StatusServiceUnavailable, "not_configured", "notify.not_configured", nil)
	case errors.Is(err, context.DeadlineExceeded):
		WriteError(w, r, http.StatusServiceUnavailable, "timeout", "error.timeout", nil)
	default:
		h.Logger.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
		WriteError(w, r, http.StatusInternalServerError, "internal_error", "error.generic", nil)
	}
}

// decodeJSON reads a JSON body into dst. On failure it writes a 400 and
// returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteBadRequest(w, r, map[string]string{"body": "error.bad_request"})
		return false
	}
	return true
}

// parseID parses a positive integer URL parameter. On failure it writes a
// 400 and returns false.
func parseID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		WriteBadRequest(w, r, map[string]string{name: "error.bad_request"})
		return 0, false
	}
	return id, true
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
