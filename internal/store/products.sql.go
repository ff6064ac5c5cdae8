// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const productColumns = `id, name, description, description_html, image_url, display_order, created_at, updated_at`

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.DescriptionHTML,
		&p.ImageURL,
		&p.DisplayOrder,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const createProduct = `-- name: CreateProduct :one
INSERT INTO products (name, description, description_html, image_url, display_order, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + productColumns

// CreateProductParams holds the fields for CreateProduct.
type CreateProductParams struct {
	Name            string
	Description     string
	DescriptionHTML string
	ImageURL        string
	DisplayOrder    int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRowContext(ctx, createProduct,
		arg.Name,
		arg.Description,
		arg.DescriptionHTML,
		arg.ImageURL,
		arg.DisplayOrder,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanProduct(row)
}

const getProduct = `-- name: GetProduct :one
SELECT ` + productColumns + ` FROM products WHERE id = ?`

func (q *Queries) GetProduct(ctx context.Context, id int64) (Product, error) {
	return scanProduct(q.db.QueryRowContext(ctx, getProduct, id))
}

const listProducts = `-- name: ListProducts :many
SELECT ` + productColumns + ` FROM products ORDER BY display_order ASC, id ASC`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.QueryContext(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, scanProduct)
}

const updateProduct = `-- name: UpdateProduct :one
UPDATE products
SET name = ?, description = ?, description_html = ?, image_url = ?, display_order = ?, updated_at = ?
WHERE id = ?
RETURNING ` + productColumns

// UpdateProductParams holds the fields for UpdateProduct.
type UpdateProductParams struct {
	ID              int64
	Name            string
	Description     string
	DescriptionHTML string
	ImageURL        string
	DisplayOrder    int64
	UpdatedAt       time.Time
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRowContext(ctx, updateProduct,
		arg.Name,
		arg.Description,
		arg.DescriptionHTML,
		arg.ImageURL,
		arg.DisplayOrder,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanProduct(row)
}

const deleteProduct = `-- name: DeleteProduct :exec
DELETE FROM products WHERE id = ?`

func (q *Queries) DeleteProduct(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteProduct, id)
	if err != nil {
		return err
	}
	return affected(res)
}

const productExists = `-- name: ProductExists :one
SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)`

func (q *Queries) ProductExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := q.db.QueryRowContext(ctx, productExists, id).Scan(&ok)
	return ok, err
}
