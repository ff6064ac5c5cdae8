// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/almonhna/almonhna/internal/i18n"
	"github.com/almonhna/almonhna/internal/middleware"
	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/service"
)

// uploadField is the multipart field carrying an image.
const uploadField = "file"

// WriterDashboard handles GET /api/writer/dashboard.
func (h *Handler) WriterDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.Writer(r.Context(), middleware.ActorFrom(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, stats)
}

// GetProfile handles GET /api/writer/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Writers.GetOwnProfile(r.Context(), middleware.ActorFrom(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, newProfileResponse(profile))
}

// UpdateProfile handles PUT /api/writer/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in service.ProfileInput
	if !decodeJSON(w, r, &in) {
		return
	}
	profile, err := h.Writers.UpdateOwnProfile(r.Context(), middleware.ActorFrom(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, Response{
		Data:    newProfileResponse(profile),
		Message: translate(r, "writer.profile_updated"),
	})
}

// contentKind resolves the {kind} URL parameter. On failure it writes a 404.
func contentKind(w http.ResponseWriter, r *http.Request) (model.ContentKind, bool) {
	kind, ok := model.ParseContentKind(chi.URLParam(r, "kind"))
	if !ok {
		WriteNotFound(w, r)
		return "", false
	}
	return kind, true
}

// statusFilter resolves ?status=. On failure it writes a 400.
func statusFilter(w http.ResponseWriter, r *http.Request) (model.StatusFilter, bool) {
	filter, err := model.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		WriteBadRequest(w, r, map[string]string{"status": "validation.status_filter"})
		return model.StatusFilter{}, false
	}
	return filter, true
}

// ListOwnContent handles GET /api/writer/{kind}?status=.
func (h *Handler) ListOwnContent(w http.ResponseWriter, r *http.Request) {
	kind, ok := contentKind(w, r)
	if !ok {
		return
	}
	filter, ok := statusFilter(w, r)
	if !ok {
		return
	}

	items, err := h.Content.ListByAuthor(r.Context(), middleware.ActorFrom(r), kind, filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteList(w, newContentList(kind, items))
}

// SubmitContent handles POST /api/writer/{kind}. New items start pending.
func (h *Handler) SubmitContent(w http.ResponseWriter, r *http.Request) {
	kind, ok := contentKind(w, r)
	if !ok {
		return
	}
	var req ContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := req.ContentInput

	item, err := h.Content.Submit(r.Context(), middleware.ActorFrom(r), kind, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, Response{
		Data:    newContentResponse(kind, item),
		Message: translate(r, "content.submitted"),
	})
}

// GetOwnContent handles GET /api/writer/{kind}/{id}.
func (h *Handler) GetOwnContent(w http.ResponseWriter, r *http.Request) {
	kind, ok := contentKind(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	item, err := h.Content.GetOwn(r.Context(), middleware.ActorFrom(r), kind, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, newContentResponse(kind, item))
}

// UpdateContent handles PUT /api/writer/{kind}/{id}. An owner's edit goes
// back to review.
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	kind, ok := contentKind(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req ContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := req.ContentInput

	item, err := h.Content.Update(r.Context(), middleware.ActorFrom(r), kind, id, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, Response{
		Data:    newContentResponse(kind, item),
		Message: translate(r, "content.updated"),
	})
}

// ResubmitContent handles POST /api/writer/{kind}/{id}/resubmit.
func (h *Handler) ResubmitContent(w http.ResponseWriter, r *http.Request) {
	kind, ok := contentKind(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Content.Resubmit(r.Context(), middleware.ActorFrom(r), kind, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteMessage(w, r, "content.resubmitted")
}

// DeleteContent handles DELETE on /api/writer/{kind}/{id} and
// /api/admin/{kind}/{id}. Ownership is checked by the service.
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	kind, ok := contentKind(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Content.Delete(r.Context(), middleware.ActorFrom(r), kind, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteMessage(w, r, "content.deleted")
}

// Upload handles POST /api/writer/uploads and /api/admin/uploads. The body is
// multipart with the image in the "file" field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	maxSize := h.Media.MaxSize()
	// Room for the multipart envelope on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+64<<10)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeTooLarge(w, r, maxSize)
			return
		}
		WriteBadRequest(w, r, map[string]string{uploadField: "upload.missing"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		WriteBadRequest(w, r, map[string]string{uploadField: "upload.missing"})
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > maxSize {
		writeTooLarge(w, r, maxSize)
		return
	}

	res, err := h.Media.Upload(r.Context(), middleware.ActorFrom(r), file, header.Filename)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, Response{Data: res, Message: translate(r, "upload.success")})
}

func writeTooLarge(w http.ResponseWriter, r *http.Request, maxSize int64) {
	limit := strconv.FormatInt(maxSize>>20, 10) + " MB"
	middleware.WriteAPIError(w, http.StatusRequestEntityTooLarge, "file_too_large",
		i18n.T(middleware.GetLanguage(r), "upload.too_large", limit), nil)
}

// DeleteUpload handles DELETE /api/writer/uploads?url=.
func (h *Handler) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		WriteBadRequest(w, r, map[string]string{"url": "validation.required"})
		return
	}
	if err := h.Media.Delete(r.Context(), middleware.ActorFrom(r), url); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteMessage(w, r, "upload.deleted")
}
