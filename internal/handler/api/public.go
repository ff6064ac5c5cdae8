// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/service"
)

// maxTopWriters caps ?limit= on the top writers list.
const maxTopWriters = 20

// ListPublicContent handles GET /api/articles and GET /api/news.
// Query: ?limit=, ?author_id=, and ?product_id= for articles.
func (h *Handler) ListPublicContent(kind model.ContentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := service.PublicQuery{}
		var ok bool
		for name, dst := range map[string]*int64{
			"limit":      &q.Limit,
			"author_id":  &q.AuthorID,
			"product_id": &q.ProductID,
		} {
			if *dst, ok = queryInt(r, name); !ok {
				WriteBadRequest(w, r, map[string]string{name: "error.bad_request"})
				return
			}
		}

		items, err := h.Content.ListPublic(r.Context(), kind, q)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		WriteList(w, newContentList(kind, items))
	}
}

// GetPublicContent handles GET /api/{kind}/{id}.
func (h *Handler) GetPublicContent(kind model.ContentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r, "id")
		if !ok {
			return
		}
		item, err := h.Content.GetPublic(r.Context(), kind, id)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		WriteSuccess(w, newContentWithAuthor(kind, item))
	}
}

// ViewsResponse carries a view counter.
type ViewsResponse struct {
	Views int64 `json:"views"`
}

// CountView handles POST /api/{kind}/{id}/view.
func (h *Handler) CountView(kind model.ContentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r, "id")
		if !ok {
			return
		}
		views, err := h.Content.IncrementViews(r.Context(), kind, id, r.UserAgent())
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		WriteSuccess(w, ViewsResponse{Views: views})
	}
}

// ListWriters handles GET /api/writers.
func (h *Handler) ListWriters(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Writers.ListPublicWriters(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]WriterResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, newWriterResponse(p))
	}
	WriteList(w, out)
}

// TopWriters handles GET /api/writers/top?limit=.
func (h *Handler) TopWriters(w http.ResponseWriter, r *http.Request) {
	n, ok := queryInt(r, "limit")
	if !ok {
		WriteBadRequest(w, r, map[string]string{"limit": "error.bad_request"})
		return
	}
	n = min(n, maxTopWriters)

	top, err := h.Writers.TopWriters(r.Context(), n)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]WriterResponse, 0, len(top))
	for _, wc := range top {
		resp := newWriterResponse(wc.Profile)
		total := wc.Total
		resp.Total = &total
		out = append(out, resp)
	}
	WriteList(w, out)
}

// GetWriter handles GET /api/writers/{id}?type=all|articles|news.
func (h *Handler) GetWriter(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	filter := model.ParseWriterContentFilter(r.URL.Query().Get("type"))

	page, err := h.Writers.GetPublicWriter(r.Context(), id, filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, WriterPageResponse{
		Writer:   newWriterResponse(page.Profile),
		Articles: newContentList(model.KindArticle, page.Articles),
		News:     newContentList(model.KindNews, page.News),
	})
}

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Products.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteList(w, products)
}

// GetProduct handles GET /api/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	page, err := h.Products.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, ProductPageResponse{
		Product:  page.Product,
		Articles: newContentList(model.KindArticle, page.Articles),
	})
}
