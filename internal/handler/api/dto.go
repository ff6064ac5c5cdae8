// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"time"

	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/service"
	"github.com/almonhna/almonhna/internal/store"
)

// ContentRequest is the body of a content submission or edit. Status and
// author fields sent by older clients are accepted and discarded: the service
// always decides them.
type ContentRequest struct {
	service.ContentInput
	Status   json.RawMessage `json:"status,omitempty"`
	AuthorID json.RawMessage `json:"author_id,omitempty"`
}

// ContentResponse represents an article or news item in API responses.
type ContentResponse struct {
	ID              int64     `json:"id"`
	Kind            string    `json:"kind"`
	Title           string    `json:"title"`
	Excerpt         string    `json:"excerpt"`
	Content         string    `json:"content"`
	CoverImageURL   string    `json:"cover_image_url,omitempty"`
	AuthorID        int64     `json:"author_id"`
	AuthorName      string    `json:"author_name,omitempty"`
	AuthorPhotoURL  string    `json:"author_photo_url,omitempty"`
	ProductID       *int64    `json:"product_id,omitempty"`
	Views           int64     `json:"views"`
	Status          string    `json:"status"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func newContentResponse(kind model.ContentKind, c store.Content) ContentResponse {
	resp := ContentResponse{
		ID:            c.ID,
		Kind:          kind.String(),
		Title:         c.Title,
		Excerpt:       c.Excerpt,
		Content:       c.Content,
		CoverImageURL: c.CoverImageURL,
		AuthorID:      c.AuthorID,
		Views:         c.Views,
		Status:        c.Status,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.ProductID.Valid {
		id := c.ProductID.Int64
		resp.ProductID = &id
	}
	if c.RejectionReason.Valid {
		resp.RejectionReason = c.RejectionReason.String
	}
	return resp
}

func newContentWithAuthor(kind model.ContentKind, c store.ContentWithAuthor) ContentResponse {
	resp := newContentResponse(kind, c.Content)
	resp.AuthorName = c.AuthorName
	resp.AuthorPhotoURL = c.AuthorPhotoURL
	return resp
}

func newContentList(kind model.ContentKind, items []store.ContentWithAuthor) []ContentResponse {
	out := make([]ContentResponse, 0, len(items))
	for _, c := range items {
		out = append(out, newContentWithAuthor(kind, c))
	}
	return out
}

// WriterResponse is the public view of a writer. Contact details are never
// exposed publicly.
type WriterResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	PhotoURL    string `json:"photo_url,omitempty"`
	LinkedinURL string `json:"linkedin_url,omitempty"`
	Total       *int64 `json:"total,omitempty"`
}

func newWriterResponse(p store.Profile) WriterResponse {
	return WriterResponse{
		ID:          p.ID,
		Name:        p.Name,
		Bio:         p.Bio,
		PhotoURL:    p.PhotoURL,
		LinkedinURL: p.LinkedinURL,
	}
}

// ProfileResponse is the full profile, shown to its owner and to admins.
type ProfileResponse struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"account_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Bio         string    `json:"bio"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	LinkedinURL string    `json:"linkedin_url,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newProfileResponse(p store.Profile) ProfileResponse {
	return ProfileResponse{
		ID:          p.ID,
		AccountID:   p.AccountID,
		Name:        p.Name,
		Email:       p.Email,
		Phone:       p.Phone,
		Bio:         p.Bio,
		PhotoURL:    p.PhotoURL,
		LinkedinURL: p.LinkedinURL,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// WriterPageResponse is a public writer with their approved content.
type WriterPageResponse struct {
	Writer   WriterResponse    `json:"writer"`
	Articles []ContentResponse `json:"articles"`
	News     []ContentResponse `json:"news"`
}

// ProductPageResponse is a product with its approved articles.
type ProductPageResponse struct {
	Product  store.Product     `json:"product"`
	Articles []ContentResponse `json:"articles"`
}

// AccountResponse is the signed-in account.
type AccountResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	PasswordSet bool   `json:"password_set"`
}

// SessionResponse describes the current session.
type SessionResponse struct {
	Authenticated bool             `json:"authenticated"`
	Account       *AccountResponse `json:"account,omitempty"`
	Profile       *ProfileResponse `json:"profile,omitempty"`
	Roles         []model.Role     `json:"roles"`
	Dashboards    []string         `json:"dashboards"`
}

func newSessionResponse(p *service.Principal) SessionResponse {
	if p == nil {
		return SessionResponse{Roles: []model.Role{}, Dashboards: []string{}}
	}
	resp := SessionResponse{
		Authenticated: true,
		Account: &AccountResponse{
			ID:          p.Account.ID,
			Email:       p.Account.Email,
			PasswordSet: p.Account.PasswordSet,
		},
		Roles:      p.Roles,
		Dashboards: p.Dashboards(),
	}
	if p.Profile != nil {
		profile := newProfileResponse(*p.Profile)
		resp.Profile = &profile
	}
	if resp.Roles == nil {
		resp.Roles = []model.Role{}
	}
	if resp.Dashboards == nil {
		resp.Dashboards = []string{}
	}
	return resp
}

// EventResponse is an audit log entry.
type EventResponse struct {
	ID         int64           `json:"id"`
	Level      string          `json:"level"`
	Category   string          `json:"category"`
	Message    string          `json:"message"`
	AccountID  *int64          `json:"account_id,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	IPAddress  string          `json:"ip_address,omitempty"`
	RequestURL string          `json:"request_url,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func newEventResponse(e store.Event) EventResponse {
	resp := EventResponse{
		ID:         e.ID,
		Level:      e.Level,
		Category:   e.Category,
		Message:    e.Message,
		IPAddress:  e.IpAddress,
		RequestURL: e.RequestURL,
		CreatedAt:  e.CreatedAt,
	}
	if e.AccountID.Valid {
		id := e.AccountID.Int64
		resp.AccountID = &id
	}
	if json.Valid([]byte(e.Metadata)) {
		resp.Metadata = json.RawMessage(e.Metadata)
	}
	return resp
}
