// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/almonhna/almonhna/internal/middleware"
	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/service"
	"github.com/almonhna/almonhna/internal/session"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordForgotRequest is the body of POST /api/auth/password/forgot.
type PasswordForgotRequest struct {
	Email string `json:"email"`
}

// PasswordResetRequest is the body of POST /api/auth/password/reset.
type PasswordResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// sessionActor is ActorFrom plus the signed-in account, for routes outside
// the guarded groups.
func (h *Handler) sessionActor(r *http.Request) service.Actor {
	actor := middleware.ActorFrom(r)
	if actor.AccountID == 0 {
		actor.AccountID = session.AccountID(r.Context(), h.Sessions)
	}
	return actor
}

// Register handles POST /api/auth/register: a public writer application.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	profile, err := h.Writers.Register(r.Context(), middleware.ActorFrom(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, Response{
		Data:    newProfileResponse(profile),
		Message: translate(r, "auth.register_success"),
	})
}

// SignIn handles POST /api/auth/login.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if h.Login != nil {
		if locked, remaining := h.Login.IsAccountLocked(req.Email); locked {
			w.Header().Set("Retry-After", strconv.Itoa(int(remaining.Seconds())+1))
			WriteError(w, r, http.StatusTooManyRequests, "account_locked", "auth.account_locked", nil)
			return
		}
	}

	ctx := r.Context()
	account, err := h.Accounts.Authenticate(ctx, middleware.ActorFrom(r), req.Email, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) && h.Login != nil {
		if locked, _ := h.Login.RecordFailedAttempt(req.Email); locked {
			WriteError(w, r, http.StatusTooManyRequests, "account_locked", "auth.account_locked", nil)
			return
		}
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if h.Login != nil {
		h.Login.RecordSuccessfulLogin(req.Email)
	}

	if err := session.SignIn(ctx, h.Sessions, account.ID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	principal, err := h.Authorizer.Resolve(ctx, account.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, Response{
		Data:    newSessionResponse(principal),
		Message: translate(r, "auth.login_success"),
	})
}

// SignOut handles POST /api/auth/logout.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.Accounts.RecordLogout(r.Context(), h.sessionActor(r))
	if err := session.SignOut(r.Context(), h.Sessions); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteMessage(w, r, "auth.logout_success")
}

// Session handles GET /api/auth/session. A session whose account no longer
// exists is cleared and reported as signed out.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := session.AccountID(ctx, h.Sessions)
	if accountID == 0 {
		WriteSuccess(w, newSessionResponse(nil))
		return
	}

	principal, err := h.Authorizer.Resolve(ctx, accountID)
	if errors.Is(err, service.ErrNotFound) {
		_ = session.SignOut(ctx, h.Sessions)
		WriteSuccess(w, newSessionResponse(nil))
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, newSessionResponse(principal))
}

// Guard handles GET /api/auth/guard?role=. It always answers 200 with the
// guard decision so a client can route before rendering a dashboard.
func (h *Handler) Guard(w http.ResponseWriter, r *http.Request) {
	role, ok := model.ParseRole(r.URL.Query().Get("role"))
	if !ok {
		WriteBadRequest(w, r, map[string]string{"role": "validation.role"})
		return
	}
	decision, _ := h.Authorizer.Guard(r.Context(), session.AccountID(r.Context(), h.Sessions), role)
	WriteSuccess(w, decision)
}

// ForgotPassword handles POST /api/auth/password/forgot. The response is the
// same whether or not the email is registered.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordForgotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Accounts.RequestPasswordReset(r.Context(), middleware.ActorFrom(r), req.Email); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, Response{Message: translate(r, "auth.password_reset_sent")})
}

// ResetPassword handles POST /api/auth/password/reset.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Accounts.ResetPassword(r.Context(), middleware.ActorFrom(r), req.Token, req.Password); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteMessage(w, r, "auth.password_reset_done")
}

// RunSetup handles POST /api/setup. It creates the configured administrator
// once; later calls report that it already exists.
func (h *Handler) RunSetup(w http.ResponseWriter, r *http.Request) {
	res, err := h.Setup.Run(r.Context(), middleware.ActorFrom(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if res.Created {
		WriteJSON(w, http.StatusCreated, Response{Data: res, Message: translate(r, "setup.created")})
		return
	}
	WriteJSON(w, http.StatusOK, Response{Data: res, Message: translate(r, "setup.exists")})
}
