// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almonhna/almonhna/internal/middleware"
	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/service"
)

func contentInput(title string) service.ContentInput {
	return service.ContentInput{
		Title:         title,
		Excerpt:       "مقتطف قصير",
		Content:       "<p>نص المقال</p>",
		CoverImageURL: "https://almonhna.test/cover.jpg",
	}
}

func TestWriterRoutes_RequireWriter(t *testing.T) {
	f := newAPIFixture(t)
	f.seedAccount(t, "pending@almonhna.sa", "منتظر", model.StatusPending)

	rr := f.client(t).do(http.MethodGet, "/api/writer/articles", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, service.LocationLogin, decodeGuard(t, rr).Decision.Location)

	// A pending applicant holds no role yet.
	c := f.signIn(t, "pending@almonhna.sa")
	rr = c.do(http.MethodGet, "/api/writer/articles", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestWriterContentLifecycle(t *testing.T) {
	for _, kind := range model.ContentKinds {
		t.Run(kind.String(), func(t *testing.T) {
			f := newAPIFixture(t)
			_, profile := f.seedAccount(t, "writer@almonhna.sa", "كاتب", model.StatusApproved, model.RoleWriter)
			c := f.signIn(t, "writer@almonhna.sa")
			base := "/api/writer/" + kind.Table()

			rr := c.do(http.MethodPost, base, contentInput("عنوان أول"))
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
			created := decode[ContentResponse](t, rr)
			assert.Equal(t, string(model.StatusPending), created.Status)
			assert.Equal(t, profile.ID, created.AuthorID)
			assert.Equal(t, kind.String(), created.Kind)

			item := fmt.Sprintf("%s/%d", base, created.ID)

			rr = c.do(http.MethodGet, item, nil)
			require.Equal(t, http.StatusOK, rr.Code)

			rr = c.do(http.MethodPut, item, contentInput("عنوان معدل"))
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Equal(t, "عنوان معدل", decode[ContentResponse](t, rr).Title)

			rr = c.do(http.MethodGet, base+"?status=pending", nil)
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Len(t, decode[[]ContentResponse](t, rr), 1)

			rr = c.do(http.MethodGet, base+"?status=approved", nil)
			assert.Empty(t, decode[[]ContentResponse](t, rr))

			rr = c.do(http.MethodGet, base+"?status=bogus", nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code)

			// Only rejected items can be resubmitted.
			rr = c.do(http.MethodPost, item+"/resubmit", nil)
			assert.Equal(t, http.StatusConflict, rr.Code)
			assert.Equal(t, "invalid_transition", decodeError(t, rr).Error.Code)

			rr = c.do(http.MethodDelete, item, nil)
			require.Equal(t, http.StatusOK, rr.Code)

			rr = c.do(http.MethodGet, item, nil)
			assert.Equal(t, http.StatusNotFound, rr.Code)
		})
	}
}

func TestWriterResubmitRejected(t *testing.T) {
	f := newAPIFixture(t)
	_, profile := f.seedAccount(t, "writer@almonhna.sa", "كاتب", model.StatusApproved, model.RoleWriter)
	rejected := f.seedContent(t, model.KindArticle, profile.ID, "مرفوض", model.StatusRejected)
	c := f.signIn(t, "writer@almonhna.sa")
	item := fmt.Sprintf("/api/writer/articles/%d", rejected.ID)

	rr := c.do(http.MethodGet, item, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, decode[ContentResponse](t, rr).RejectionReason)

	rr = c.do(http.MethodPost, item+"/resubmit", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = c.do(http.MethodGet, item, nil)
	got := decode[ContentResponse](t, rr)
	assert.Equal(t, string(model.StatusPending), got.Status)
	assert.Empty(t, got.RejectionReason)
}

func TestWriterCannotTouchOthersContent(t *testing.T) {
	f := newAPIFixture(t)
	_, owner := f.seedAccount(t, "owner@almonhna.sa", "المالك", model.StatusApproved, model.RoleWriter)
	f.seedAccount(t, "other@almonhna.sa", "آخر", model.StatusApproved, model.RoleWriter)
	item := f.seedContent(t, model.KindNews, owner.ID, "خبر", model.StatusPending)
	path := fmt.Sprintf("/api/writer/news/%d", item.ID)

	c := f.signIn(t, "other@almonhna.sa")

	assert.Equal(t, http.StatusForbidden, c.do(http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodPut, path, contentInput("سرقة")).Code)
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodDelete, path, nil).Code)

	rr := c.do(http.MethodGet, "/api/writer/news", nil)
	assert.Empty(t, decode[[]ContentResponse](t, rr))
}

func TestWriterSubmit_Validation(t *testing.T) {
	f := newAPIFixture(t)
	f.seedAccount(t, "writer@almonhna.sa", "كاتب", model.StatusApproved, model.RoleWriter)
	c := f.signIn(t, "writer@almonhna.sa")

	rr := c.do(http.MethodPost, "/api/writer/articles", service.ContentInput{Title: "عنوان"})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	details := decodeError(t, rr).Error.Details
	assert.Equal(t, "validation.required", details["excerpt"])
	assert.Equal(t, "validation.required", details["cover_image_url"])

	rr = c.do(http.MethodPost, "/api/writer/videos", contentInput("عنوان"))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	missing := int64(999)
	in := contentInput("عنوان صالح")
	in.ProductID = &missing
	rr = c.do(http.MethodPost, "/api/writer/articles", in)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "validation.product", decodeError(t, rr).Error.Details["product_id"])
}

func TestWriterProfile(t *testing.T) {
	f := newAPIFixture(t)
	f.seedAccount(t, "writer@almonhna.sa", "كاتب", model.StatusApproved, model.RoleWriter)
	c := f.signIn(t, "writer@almonhna.sa")

	rr := c.do(http.MethodGet, "/api/writer/profile", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "writer@almonhna.sa", decode[ProfileResponse](t, rr).Email)

	rr = c.do(http.MethodPut, "/api/writer/profile", service.ProfileInput{
		Name:  "كاتب جديد",
		Phone: "0559999999",
		Bio:   "نبذة",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[ProfileResponse](t, rr)
	assert.Equal(t, "كاتب جديد", updated.Name)
	assert.Equal(t, string(model.StatusApproved), updated.Status)
}

func TestWriterDashboard(t *testing.T) {
	f := newAPIFixture(t)
	_, profile := f.seedAccount(t, "writer@almonhna.sa", "كاتب", model.StatusApproved, model.RoleWriter)
	f.seedContent(t, model.KindArticle, profile.ID, "أ", model.StatusApproved)
	f.seedContent(t, model.KindArticle, profile.ID, "ب", model.StatusPending)
	f.seedContent(t, model.KindNews, profile.ID, "ج", model.StatusRejected)
	c := f.signIn(t, "writer@almonhna.sa")

	rr := c.do(http.MethodGet, "/api/writer/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode[service.WriterStats](t, rr)
	assert.Equal(t, int64(1), stats.Articles[string(model.StatusApproved)])
	assert.Equal(t, int64(1), stats.Articles[string(model.StatusPending)])
	assert.Equal(t, int64(1), stats.News[string(model.StatusRejected)])
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(uploadField, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	f := newAPIFixture(t)
	f.seedAccount(t, "writer@almonhna.sa", "كاتب", model.StatusApproved, model.RoleWriter)
	c := f.signIn(t, "writer@almonhna.sa")

	rr := c.send(multipartRequest(t, "/api/writer/uploads", "cover.png", pngBytes(t)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	res := decode[service.UploadResult](t, rr)
	assert.True(t, strings.HasPrefix(res.URL, service.UploadsURLPrefix))
	assert.Equal(t, 4, res.Width)

	t.Run("not an image", func(t *testing.T) {
		rr := c.send(multipartRequest(t, "/api/writer/uploads", "notes.png", []byte("plain text")))
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, "upload.not_image", decodeError(t, rr).Error.Details[uploadField])
	})

	t.Run("missing file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/writer/uploads", strings.NewReader("x"))
		req.Header.Set("Content-Type", "text/plain")
		assert.Equal(t, http.StatusBadRequest, c.send(req).Code)
	})

	t.Run("delete", func(t *testing.T) {
		rr := c.do(http.MethodDelete, "/api/writer/uploads?url="+res.URL, nil)
		assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})
}

func decodeGuard(t *testing.T, rr *httptest.ResponseRecorder) middleware.GuardResponse {
	t.Helper()
	var resp middleware.GuardResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestSubmitContent_IgnoresClientStatusAndAuthor(t *testing.T) {
	f := newAPIFixture(t)
	_, profile := f.seedAccount(t, "writer@almonhna.sa", "كاتب", model.StatusApproved, model.RoleWriter)
	_, other := f.seedAccount(t, "other@almonhna.sa", "كاتب آخر", model.StatusApproved, model.RoleWriter)
	c := f.signIn(t, "writer@almonhna.sa")

	body := map[string]any{
		"title":           "T",
		"excerpt":         "E",
		"cover_image_url": "https://almonhna.test/cover.jpg",
		"status":          "approved",
		"author_id":       other.ID,
	}
	rr := c.do(http.MethodPost, "/api/writer/articles", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	created := decode[ContentResponse](t, rr)
	assert.Equal(t, string(model.StatusPending), created.Status)
	assert.Equal(t, profile.ID, created.AuthorID)
}
