// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/almonhna/almonhna/internal/middleware"
	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/notify"
	"github.com/almonhna/almonhna/internal/scheduler"
	"github.com/almonhna/almonhna/internal/service"
)

// RejectRequest is the body of POST /api/admin/{kind}/{id}/reject.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// GrantRoleRequest is the body of POST /api/admin/users/{id}/roles.
type GrantRoleRequest struct {
	Role string `json:"role"`
}

// AdminDashboard handles GET /api/admin/dashboard.
func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.Admin(r.Context(), middleware.ActorFrom(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, stats)
}

// ListModeration handles GET /api/admin/{kind}?status=.
func (h *Handler) ListModeration(w http.ResponseWriter, r *http.Request) {
	kind, ok := contentKind(w, r)
	if !ok {
		return
	}
	filter, ok := statusFilter(w, r)
	if !ok {
		return
	}

	items, err := h.Content.ListForModeration(r.Context(), middleware.ActorFrom(r), kind, filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteList(w, newContentList(kind, items))
}

// ApproveContent handles POST /api/admin/{kind}/{id}/approve.
func (h *Handler) ApproveContent(w http.ResponseWriter, r *http.Request) {
	kind, ok := contentKind(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Content.Approve(r.Context(), middleware.ActorFrom(r), kind, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteMessage(w, r, "content.approved")
}

// RejectContent handles POST /api/admin/{kind}/{id}/reject. A reason is required.
func (h *Handler) RejectContent(w http.ResponseWriter, r *http.Request) {
	kind, ok := contentKind(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req RejectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Content.Reject(r.Context(), middleware.ActorFrom(r), kind, id, req.Reason); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteMessage(w, r, "content.rejected")
}

// ListWriterProfiles handles GET /api/admin/writers?status=.
func (h *Handler) ListWriterProfiles(w http.ResponseWriter, r *http.Request) {
	filter, ok := statusFilter(w, r)
	if !ok {
		return
	}
	profiles, err := h.Writers.ListProfiles(r.Context(), middleware.ActorFrom(r), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, newProfileResponse(p))
	}
	WriteList(w, out)
}

// ApproveWriter handles POST /api/admin/writers/{id}/approve.
func (h *Handler) ApproveWriter(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Writers.ApproveWriter(r.Context(), middleware.ActorFrom(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteMessage(w, r, "writer.approved")
}

// RejectWriter handles POST /api/admin/writers/{id}/reject.
func (h *Handler) RejectWriter(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Writers.RejectWriter(r.Context(), middleware.ActorFrom(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteMessage(w, r, "writer.rejected")
}

// DeleteWriter handles DELETE /api/admin/writers/{id}.
func (h *Handler) DeleteWriter(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Writers.DeleteWriter(r.Context(), middleware.ActorFrom(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteMessage(w, r, "writer.deleted")
}

// ListUsers handles GET /api/admin/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Roles.ListUsersWithRoles(r.Context(), middleware.ActorFrom(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteList(w, users)
}

// GrantRole handles POST /api/admin/users/{id}/roles.
func (h *Handler) GrantRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req GrantRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		WriteBadRequest(w, r, map[string]string{"role": "validation.role"})
		return
	}
	if err := h.Roles.Grant(r.Context(), middleware.ActorFrom(r), id, role); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteMessage(w, r, "role.granted")
}

// RevokeRole handles DELETE /api/admin/users/{id}/roles/{role}.
func (h *Handler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	role, ok := model.ParseRole(chi.URLParam(r, "role"))
	if !ok {
		WriteBadRequest(w, r, map[string]string{"role": "validation.role"})
		return
	}
	if err := h.Roles.Revoke(r.Context(), middleware.ActorFrom(r), id, role); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteMessage(w, r, "role.revoked")
}

// SendPasswordReset handles POST /api/admin/users/{id}/password-reset.
func (h *Handler) SendPasswordReset(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Accounts.SendPasswordReset(r.Context(), middleware.ActorFrom(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, Response{Message: translate(r, "auth.password_reset_sent")})
}

// CreateProduct handles POST /api/admin/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in service.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}
	product, err := h.Products.Create(r.Context(), middleware.ActorFrom(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, Response{Data: product, Message: translate(r, "product.created")})
}

// UpdateProduct handles PUT /api/admin/products/{id}.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var in service.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}
	product, err := h.Products.Update(r.Context(), middleware.ActorFrom(r), id, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, Response{Data: product, Message: translate(r, "product.updated")})
}

// DeleteProduct handles DELETE /api/admin/products/{id}. Linked articles keep
// existing without a product.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Products.Delete(r.Context(), middleware.ActorFrom(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteMessage(w, r, "product.deleted")
}

// SendWelcome handles POST /api/admin/notifications/welcome.
func (h *Handler) SendWelcome(w http.ResponseWriter, r *http.Request) {
	var email notify.WelcomeEmail
	if !decodeJSON(w, r, &email) {
		return
	}
	if err := h.Writers.SendWelcome(r.Context(), middleware.ActorFrom(r), email); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, Response{Message: translate(r, "notify.welcome_sent")})
}

// ListEvents handles GET /api/admin/events?level=&category=&limit=&offset=.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.EventFilter{
		Level:    q.Get("level"),
		Category: q.Get("category"),
	}
	var ok bool
	if filter.Limit, ok = queryInt(r, "limit"); !ok {
		WriteBadRequest(w, r, map[string]string{"limit": "error.bad_request"})
		return
	}
	if filter.Offset, ok = queryInt(r, "offset"); !ok {
		WriteBadRequest(w, r, map[string]string{"offset": "error.bad_request"})
		return
	}

	events, err := h.Events.List(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, newEventResponse(e))
	}
	WriteList(w, out)
}

// ListJobs handles GET /api/admin/jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.Jobs == nil {
		WriteList(w, []scheduler.JobInfo{})
		return
	}
	WriteList(w, h.Jobs.Jobs())
}

// RunJob handles POST /api/admin/jobs/{name}/run.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	if h.Jobs == nil {
		WriteError(w, r, http.StatusNotFound, "not_found", "job.not_found", nil)
		return
	}

	name := chi.URLParam(r, "name")
	err := h.Jobs.Trigger(r.Context(), name)
	if errors.Is(err, scheduler.ErrJobNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "job.not_found", nil)
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.Events.Audit(r.Context(), middleware.ActorFrom(r), model.EventCategorySystem, "Job triggered", map[string]any{"job": name})
	WriteMessage(w, r, "job.triggered")
}
