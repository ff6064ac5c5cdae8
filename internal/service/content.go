// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mileusna/useragent"

	"github.com/almonhna/almonhna/internal/cache"
	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/sanitize"
	"github.com/almonhna/almonhna/internal/store"
	"github.com/almonhna/almonhna/internal/util"
)

// Content field limits, in characters.
const (
	MaxTitleLength   = 200
	MaxExcerptLength = 500
	MaxReasonLength  = 1000
)

// ContentInput is the writer-editable part of an article or news item.
// Status and author are never taken from input.
type ContentInput struct {
	Title         string `json:"title"`
	Excerpt       string `json:"excerpt"`
	Content       string `json:"content"`
	CoverImageURL string `json:"cover_image_url"`
	ProductID     *int64 `json:"product_id"`
}

// PublicQuery selects approved content for public pages. Zero fields are
// not applied.
type PublicQuery struct {
	AuthorID  int64
	ProductID int64
	Limit     int64
}

// ContentService runs the moderation lifecycle shared by articles and news:
// pending -> approved | rejected, rejected -> pending on resubmission.
type ContentService struct {
	db       *sql.DB
	queries  *store.Queries
	listings *cache.Listings
	events   *EventService
	logger   *slog.Logger
	now      func() time.Time
}

// NewContentService creates a ContentService. listings and events may be nil.
func NewContentService(db *sql.DB, listings *cache.Listings, events *EventService, logger *slog.Logger) *ContentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentService{
		db:       db,
		queries:  store.New(db),
		listings: listings,
		events:   events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Submit creates a pending item authored by the actor's profile.
func (s *ContentService) Submit(ctx context.Context, actor Actor, kind model.ContentKind, in ContentInput) (store.Content, error) {
	if !kind.Valid() {
		return store.Content{}, ErrNotFound
	}
	if actor.ProfileID == 0 || !actor.Has(model.RoleWriter) {
		return store.Content{}, ErrForbidden
	}

	in, productID, err := s.validate(ctx, kind, in)
	if err != nil {
		return store.Content{}, err
	}

	now := s.now()
	c, err := s.queries.CreateContent(ctx, kind, store.CreateContentParams{
		Title:         in.Title,
		Excerpt:       in.Excerpt,
		Content:       in.Content,
		CoverImageURL: in.CoverImageURL,
		AuthorID:      actor.ProfileID,
		ProductID:     productID,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return store.Content{}, fmt.Errorf("creating %s: %w", kind, err)
	}

	s.events.Audit(ctx, actor, model.EventCategoryContent, "Content submitted for review", contentMeta(kind, c.ID))
	return c, nil
}

// Update edits an item. An owner's edit sends the item back to pending and
// clears any rejection reason; an admin editing someone else's item keeps
// its status.
func (s *ContentService) Update(ctx context.Context, actor Actor, kind model.ContentKind, id int64, in ContentInput) (store.Content, error) {
	existing, err := s.get(ctx, kind, id)
	if err != nil {
		return store.Content{}, err
	}

	owner := isOwner(actor, existing)
	if !owner && !actor.IsAdmin() {
		return store.Content{}, ErrForbidden
	}

	in, productID, err := s.validate(ctx, kind, in)
	if err != nil {
		return store.Content{}, err
	}

	c, err := s.queries.UpdateContent(ctx, kind, store.UpdateContentParams{
		ID:            id,
		Title:         in.Title,
		Excerpt:       in.Excerpt,
		Content:       in.Content,
		CoverImageURL: in.CoverImageURL,
		ProductID:     productID,
		Resubmit:      owner,
		UpdatedAt:     s.now(),
	})
	if err != nil {
		return store.Content{}, notFound(err, string(kind))
	}

	s.invalidate(ctx, kind)
	s.events.Audit(ctx, actor, model.EventCategoryContent, "Content updated", contentMeta(kind, id))
	return c, nil
}

// Approve publishes a pending item.
func (s *ContentService) Approve(ctx context.Context, actor Actor, kind model.ContentKind, id int64) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := s.transition(ctx, kind, id, model.StatusPending, model.StatusApproved, sql.NullString{}); err != nil {
		return err
	}

	s.invalidate(ctx, kind)
	s.events.Audit(ctx, actor, model.EventCategoryModeration, "Content approved", contentMeta(kind, id))
	return nil
}

// Reject refuses a pending item. The reason must contain non-whitespace
// text; it is stored exactly as given.
func (s *ContentService) Reject(ctx context.Context, actor Actor, kind model.ContentKind, id int64, reason string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	var v validator
	v.check(strings.TrimSpace(reason) != "", "reason", "content.reason_required")
	v.check(utf8.RuneCountInString(reason) <= MaxReasonLength, "reason", "validation.max_length")
	if err := v.err(); err != nil {
		return err
	}

	if err := s.transition(ctx, kind, id, model.StatusPending, model.StatusRejected, sql.NullString{String: reason, Valid: true}); err != nil {
		return err
	}

	meta := contentMeta(kind, id)
	meta["reason"] = reason
	s.events.Audit(ctx, actor, model.EventCategoryModeration, "Content rejected", meta)
	return nil
}

// Resubmit returns the owner's rejected item to the review queue.
func (s *ContentService) Resubmit(ctx context.Context, actor Actor, kind model.ContentKind, id int64) error {
	existing, err := s.get(ctx, kind, id)
	if err != nil {
		return err
	}
	if !isOwner(actor, existing) {
		return ErrForbidden
	}

	if err := s.transition(ctx, kind, id, model.StatusRejected, model.StatusPending, sql.NullString{}); err != nil {
		return err
	}

	s.events.Audit(ctx, actor, model.EventCategoryContent, "Content resubmitted", contentMeta(kind, id))
	return nil
}

// Delete removes an item. Owners may delete in any state; admins may delete anything.
func (s *ContentService) Delete(ctx context.Context, actor Actor, kind model.ContentKind, id int64) error {
	existing, err := s.get(ctx, kind, id)
	if err != nil {
		return err
	}
	if !isOwner(actor, existing) && !actor.IsAdmin() {
		return ErrForbidden
	}

	if err := s.queries.DeleteContent(ctx, kind, id); err != nil {
		return notFound(err, string(kind))
	}

	s.invalidate(ctx, kind)
	s.events.Audit(ctx, actor, model.EventCategoryContent, "Content deleted", contentMeta(kind, id))
	return nil
}

// ListForModeration returns every item matching filter, newest first.
func (s *ContentService) ListForModeration(ctx context.Context, actor Actor, kind model.ContentKind, filter model.StatusFilter) ([]store.ContentWithAuthor, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if !kind.Valid() {
		return nil, ErrNotFound
	}
	return s.queries.ListContent(ctx, kind, string(filter.Status))
}

// ListByAuthor returns the actor's own items matching filter, newest first.
func (s *ContentService) ListByAuthor(ctx context.Context, actor Actor, kind model.ContentKind, filter model.StatusFilter) ([]store.ContentWithAuthor, error) {
	if actor.ProfileID == 0 {
		return nil, ErrForbidden
	}
	if !kind.Valid() {
		return nil, ErrNotFound
	}
	return s.queries.ListContentByAuthor(ctx, kind, actor.ProfileID, string(filter.Status))
}

// GetOwn returns an item to its owner or an admin, in any state.
func (s *ContentService) GetOwn(ctx context.Context, actor Actor, kind model.ContentKind, id int64) (store.Content, error) {
	c, err := s.get(ctx, kind, id)
	if err != nil {
		return store.Content{}, err
	}
	if !isOwner(actor, c) && !actor.IsAdmin() {
		return store.Content{}, ErrForbidden
	}
	return c, nil
}

// ListPublic returns approved items by approved writers, newest first.
func (s *ContentService) ListPublic(ctx context.Context, kind model.ContentKind, q PublicQuery) ([]store.ContentWithAuthor, error) {
	if !kind.Valid() {
		return nil, ErrNotFound
	}
	if !kind.HasProduct() {
		q.ProductID = 0
	}
	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}

	key := cache.ListingKey(scopeFor(kind), "list",
		"author="+strconv.FormatInt(q.AuthorID, 10),
		"product="+strconv.FormatInt(q.ProductID, 10),
		"limit="+strconv.FormatInt(limit, 10))

	return cache.Remember(ctx, s.listings, key, func() ([]store.ContentWithAuthor, error) {
		items, err := s.queries.ListPublicContent(ctx, kind, store.ListPublicContentParams{
			AuthorID:  q.AuthorID,
			ProductID: q.ProductID,
			Limit:     limit,
		})
		if items == nil {
			items = []store.ContentWithAuthor{}
		}
		return items, err
	})
}

// GetPublic returns an approved item with its author.
func (s *ContentService) GetPublic(ctx context.Context, kind model.ContentKind, id int64) (store.ContentWithAuthor, error) {
	if !kind.Valid() {
		return store.ContentWithAuthor{}, ErrNotFound
	}
	c, err := s.queries.GetPublicContent(ctx, kind, id)
	if err != nil {
		return store.ContentWithAuthor{}, notFound(err, string(kind))
	}
	return c, nil
}

// IncrementViews counts one view of an approved item and returns the new
// total. Requests from bots are not counted.
func (s *ContentService) IncrementViews(ctx context.Context, kind model.ContentKind, id int64, userAgent string) (int64, error) {
	if !kind.Valid() {
		return 0, ErrNotFound
	}

	if isBot(userAgent) {
		c, err := s.GetPublic(ctx, kind, id)
		if err != nil {
			return 0, err
		}
		return c.Views, nil
	}

	views, err := s.queries.IncrementViews(ctx, kind, id)
	if err != nil {
		return 0, notFound(err, string(kind))
	}
	return views, nil
}

func (s *ContentService) get(ctx context.Context, kind model.ContentKind, id int64) (store.Content, error) {
	if !kind.Valid() {
		return store.Content{}, ErrNotFound
	}
	c, err := s.queries.GetContent(ctx, kind, id)
	if err != nil {
		return store.Content{}, notFound(err, string(kind))
	}
	return c, nil
}

// transition applies from -> to only if the row is still in from. A row that
// exists in another state yields ErrInvalidTransition.
func (s *ContentService) transition(ctx context.Context, kind model.ContentKind, id int64, from, to model.Status, reason sql.NullString) error {
	if !kind.Valid() {
		return ErrNotFound
	}

	err := s.queries.TransitionContent(ctx, kind, store.TransitionContentParams{
		ID:              id,
		From:            string(from),
		To:              string(to),
		RejectionReason: reason,
		UpdatedAt:       s.now(),
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("updating %s status: %w", kind, err)
	}

	current, err := s.get(ctx, kind, id)
	if err != nil {
		return err
	}
	s.logger.Warn("rejected status transition",
		"category", model.EventCategoryModeration,
		"kind", kind,
		"id", id,
		"from", current.Status,
		"to", to)
	return fmt.Errorf("%s %d is %s: %w", kind, id, current.Status, ErrInvalidTransition)
}

// validate trims and checks input, sanitizes the body and resolves the product reference.
func (s *ContentService) validate(ctx context.Context, kind model.ContentKind, in ContentInput) (ContentInput, sql.NullInt64, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.CoverImageURL = strings.TrimSpace(in.CoverImageURL)
	in.Content = sanitize.ContentHTML(in.Content)

	var v validator
	v.check(in.Title != "", "title", "validation.required")
	v.check(utf8.RuneCountInString(in.Title) <= MaxTitleLength, "title", "validation.max_length")
	v.check(in.Excerpt != "", "excerpt", "validation.required")
	v.check(utf8.RuneCountInString(in.Excerpt) <= MaxExcerptLength, "excerpt", "validation.max_length")
	v.check(in.CoverImageURL != "", "cover_image_url", "validation.required")
	if in.CoverImageURL != "" {
		v.check(util.ValidateHTTPURL(in.CoverImageURL) == nil, "cover_image_url", "validation.url")
	}

	var productID sql.NullInt64
	if kind.HasProduct() && in.ProductID != nil {
		exists, err := s.queries.ProductExists(ctx, *in.ProductID)
		if err != nil {
			return in, productID, fmt.Errorf("checking product: %w", err)
		}
		v.check(exists, "product_id", "validation.product")
		productID = util.NullInt64FromPtr(in.ProductID)
	}

	return in, productID, v.err()
}

func (s *ContentService) invalidate(ctx context.Context, kind model.ContentKind) {
	scopes := []string{scopeFor(kind), cache.ScopeWriters}
	if kind.HasProduct() {
		scopes = append(scopes, cache.ScopeProducts)
	}
	s.listings.Invalidate(ctx, scopes...)
}

func scopeFor(kind model.ContentKind) string {
	if kind == model.KindNews {
		return cache.ScopeNews
	}
	return cache.ScopeArticles
}

func isOwner(actor Actor, c store.Content) bool {
	return actor.ProfileID != 0 && c.AuthorID == actor.ProfileID
}

func isBot(userAgent string) bool {
	if strings.TrimSpace(userAgent) == "" {
		return true
	}
	return useragent.Parse(userAgent).Bot
}

func contentMeta(kind model.ContentKind, id int64) map[string]any {
	return map[string]any{"kind": string(kind), "id": id}
}
