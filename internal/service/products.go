// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/almonhna/almonhna/internal/cache"
	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/sanitize"
	"github.com/almonhna/almonhna/internal/store"
	"github.com/almonhna/almonhna/internal/util"
)

// MaxProductNameLength limits product names, in characters.
const MaxProductNameLength = 200

// ProductInput holds the admin-editable product fields. Description is Markdown.
type ProductInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	DisplayOrder *int64 `json:"display_order"`
}

// ProductPage is a product with its approved articles.
type ProductPage struct {
	Product  store.Product             `json:"product"`
	Articles []store.ContentWithAuthor `json:"articles"`
}

// ProductService manages the product catalog.
type ProductService struct {
	queries  *store.Queries
	listings *cache.Listings
	events   *EventService
}

// NewProductService creates a ProductService.
func NewProductService(db *sql.DB, listings *cache.Listings, events *EventService) *ProductService {
	return &ProductService{queries: store.New(db), listings: listings, events: events}
}

// Create adds a product.
func (s *ProductService) Create(ctx context.Context, actor Actor, in ProductInput) (store.Product, error) {
	if !actor.IsAdmin() {
		return store.Product{}, ErrForbidden
	}
	in, html, err := s.prepare(in)
	if err != nil {
		return store.Product{}, err
	}

	now := time.Now().UTC()
	p, err := s.queries.CreateProduct(ctx, store.CreateProductParams{
		Name:            in.Name,
		Description:     in.Description,
		DescriptionHTML: html,
		ImageURL:        in.ImageURL,
		DisplayOrder:    displayOrder(in.DisplayOrder),
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return store.Product{}, fmt.Errorf("creating product: %w", err)
	}

	s.listings.Invalidate(ctx, cache.ScopeProducts)
	s.events.Audit(ctx, actor, model.EventCategoryProduct, "Product created", map[string]any{"product_id": p.ID})
	return p, nil
}

// Update replaces a product's fields.
func (s *ProductService) Update(ctx context.Context, actor Actor, id int64, in ProductInput) (store.Product, error) {
	if !actor.IsAdmin() {
		return store.Product{}, ErrForbidden
	}
	in, html, err := s.prepare(in)
	if err != nil {
		return store.Product{}, err
	}

	p, err := s.queries.UpdateProduct(ctx, store.UpdateProductParams{
		ID:              id,
		Name:            in.Name,
		Description:     in.Description,
		DescriptionHTML: html,
		ImageURL:        in.ImageURL,
		DisplayOrder:    displayOrder(in.DisplayOrder),
		UpdatedAt:       time.Now().UTC(),
	})
	if err != nil {
		return store.Product{}, notFound(err, "product")
	}

	s.listings.Invalidate(ctx, cache.ScopeProducts)
	s.events.Audit(ctx, actor, model.EventCategoryProduct, "Product updated", map[string]any{"product_id": id})
	return p, nil
}

// Delete removes a product. Articles that referenced it keep existing without one.
func (s *ProductService) Delete(ctx context.Context, actor Actor, id int64) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := s.queries.DeleteProduct(ctx, id); err != nil {
		return notFound(err, "product")
	}

	s.listings.Invalidate(ctx, cache.ScopeProducts, cache.ScopeArticles)
	s.events.AuditWarning(ctx, actor, model.EventCategoryProduct, "Product deleted", map[string]any{"product_id": id})
	return nil
}

// List returns every product by display order.
func (s *ProductService) List(ctx context.Context) ([]store.Product, error) {
	return cache.Remember(ctx, s.listings, cache.ListingKey(cache.ScopeProducts, "list"), func() ([]store.Product, error) {
		products, err := s.queries.ListProducts(ctx)
		if products == nil {
			products = []store.Product{}
		}
		return products, err
	})
}

// Get returns a product with its approved articles, newest first.
func (s *ProductService) Get(ctx context.Context, id int64) (ProductPage, error) {
	key := cache.ListingKey(cache.ScopeProducts, "page", strconv.FormatInt(id, 10))
	return cache.Remember(ctx, s.listings, key, func() (ProductPage, error) {
		p, err := s.queries.GetProduct(ctx, id)
		if err != nil {
			return ProductPage{}, notFound(err, "product")
		}
		articles, err := s.queries.ListPublicContent(ctx, model.KindArticle, store.ListPublicContentParams{ProductID: id})
		if err != nil {
			return ProductPage{}, fmt.Errorf("listing product articles: %w", err)
		}
		if articles == nil {
			articles = []store.ContentWithAuthor{}
		}
		return ProductPage{Product: p, Articles: articles}, nil
	})
}

func (s *ProductService) prepare(in ProductInput) (ProductInput, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.Description = strings.TrimSpace(in.Description)

	var v validator
	v.check(in.Name != "", "name", "validation.required")
	v.check(utf8.RuneCountInString(in.Name) <= MaxProductNameLength, "name", "validation.max_length")
	v.check(in.ImageURL != "", "image_url", "validation.required")
	if in.ImageURL != "" {
		v.check(util.ValidateHTTPURL(in.ImageURL) == nil, "image_url", "validation.url")
	}
	if err := v.err(); err != nil {
		return in, "", err
	}

	html, err := sanitize.Markdown(in.Description)
	if err != nil {
		return in, "", fmt.Errorf("rendering description: %w", err)
	}
	return in, html, nil
}

func displayOrder(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
