// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almonhna/almonhna/internal/model"
)

func TestPublicContent_OnlyApproved(t *testing.T) {
	f := newAPIFixture(t)
	_, writer := f.seedAccount(t, "writer@almonhna.sa", "كاتب", model.StatusApproved, model.RoleWriter)
	approved := f.seedContent(t, model.KindArticle, writer.ID, "منشور", model.StatusApproved)
	pending := f.seedContent(t, model.KindArticle, writer.ID, "بانتظار", model.StatusPending)
	rejected := f.seedContent(t, model.KindArticle, writer.ID, "مرفوض", model.StatusRejected)
	c := f.client(t)

	rr := c.do(http.MethodGet, "/api/articles", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]ContentResponse](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, approved.ID, list[0].ID)
	assert.Equal(t, "كاتب", list[0].AuthorName)

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, fmt.Sprintf("/api/articles/%d", approved.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, fmt.Sprintf("/api/articles/%d", pending.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, fmt.Sprintf("/api/articles/%d", rejected.ID), nil).Code)

	// Articles and news are separate collections.
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, fmt.Sprintf("/api/news/%d", approved.ID), nil).Code)
}

func TestPublicContent_Query(t *testing.T) {
	f := newAPIFixture(t)
	_, a := f.seedAccount(t, "a@almonhna.sa", "الكاتب أ", model.StatusApproved, model.RoleWriter)
	_, b := f.seedAccount(t, "b@almonhna.sa", "الكاتب ب", model.StatusApproved, model.RoleWriter)
	for i := range 3 {
		f.seedContent(t, model.KindNews, a.ID, fmt.Sprintf("خبر %d", i), model.StatusApproved)
	}
	f.seedContent(t, model.KindNews, b.ID, "خبر ب", model.StatusApproved)
	c := f.client(t)

	rr := c.do(http.MethodGet, "/api/news?limit=2", nil)
	assert.Len(t, decode[[]ContentResponse](t, rr), 2)

	rr = c.do(http.MethodGet, fmt.Sprintf("/api/news?author_id=%d", b.ID), nil)
	list := decode[[]ContentResponse](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].AuthorID)

	rr = c.do(http.MethodGet, "/api/news?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCountView(t *testing.T) {
	f := newAPIFixture(t)
	_, writer := f.seedAccount(t, "writer@almonhna.sa", "كاتب", model.StatusApproved, model.RoleWriter)
	item := f.seedContent(t, model.KindNews, writer.ID, "خبر", model.StatusApproved)
	pending := f.seedContent(t, model.KindNews, writer.ID, "بانتظار", model.StatusPending)
	c := f.client(t)
	path := fmt.Sprintf("/api/news/%d/view", item.ID)

	rr := c.do(http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, int64(1), decode[ViewsResponse](t, rr).Views)

	rr = c.do(http.MethodPost, path, nil)
	assert.Equal(t, int64(2), decode[ViewsResponse](t, rr).Views)

	t.Run("bots are not counted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("User-Agent", "Googlebot/2.1 (+http://www.google.com/bot.html)")
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, int64(2), decode[ViewsResponse](t, rr).Views)
	})

	t.Run("pending items have no public views", func(t *testing.T) {
		rr := c.do(http.MethodPost, fmt.Sprintf("/api/news/%d/view", pending.ID), nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestPublicWriters(t *testing.T) {
	f := newAPIFixture(t)
	_, top := f.seedAccount(t, "top@almonhna.sa", "الأكثر", model.StatusApproved, model.RoleWriter)
	_, quiet := f.seedAccount(t, "quiet@almonhna.sa", "الأقل", model.StatusApproved, model.RoleWriter)
	f.seedAccount(t, "pending@almonhna.sa", "بانتظار", model.StatusPending)
	f.seedContent(t, model.KindArticle, top.ID, "مقال", model.StatusApproved)
	f.seedContent(t, model.KindNews, top.ID, "خبر", model.StatusApproved)
	f.seedContent(t, model.KindNews, quiet.ID, "خبر", model.StatusApproved)
	f.seedContent(t, model.KindNews, quiet.ID, "مسودة", model.StatusPending)
	c := f.client(t)

	rr := c.do(http.MethodGet, "/api/writers", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]WriterResponse](t, rr), 2)
	assert.NotContains(t, rr.Body.String(), "@almonhna.sa")
	assert.NotContains(t, rr.Body.String(), "0500000000")

	rr = c.do(http.MethodGet, "/api/writers/top?limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	topList := decode[[]WriterResponse](t, rr)
	require.Len(t, topList, 1)
	assert.Equal(t, top.ID, topList[0].ID)
	require.NotNil(t, topList[0].Total)
	assert.Equal(t, int64(2), *topList[0].Total)

	rr = c.do(http.MethodGet, fmt.Sprintf("/api/writers/%d?type=news", quiet.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[WriterPageResponse](t, rr)
	assert.Equal(t, "الأقل", page.Writer.Name)
	assert.Len(t, page.News, 1)
	assert.Empty(t, page.Articles)
}

func TestPublicWriter_PendingIsHidden(t *testing.T) {
	f := newAPIFixture(t)
	_, pending := f.seedAccount(t, "pending@almonhna.sa", "بانتظار", model.StatusPending)

	rr := f.client(t).do(http.MethodGet, fmt.Sprintf("/api/writers/%d", pending.ID), nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUnknownAPIRoute(t *testing.T) {
	f := newAPIFixture(t)

	rr := f.client(t).do(http.MethodGet, "/api/nothing-here", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decodeError(t, rr).Error.Code)
}
