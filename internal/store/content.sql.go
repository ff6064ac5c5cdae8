// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/almonhna/almonhna/internal/model"
)

// contentSQL holds the statements for one content table. Articles and news
// share a schema except for product_id, which news selects as NULL.
type contentSQL struct {
	create          string
	get             string
	getPublic       string
	list            string
	listByAuthor    string
	listPublic      string
	update          string
	transition      string
	delete          string
	deleteByAuthor  string
	incrementViews  string
	count           string
	countByAuthor   string
	hasProductField bool
}

var contentStatements = map[model.ContentKind]contentSQL{
	model.KindArticle: buildContentSQL(model.KindArticle),
	model.KindNews:    buildContentSQL(model.KindNews),
}

func buildContentSQL(kind model.ContentKind) contentSQL {
	table := kind.Table()
	product := "NULL"
	if kind.HasProduct() {
		product = "c.product_id"
	}

	cols := strings.Join([]string{
		"c.id", "c.title", "c.excerpt", "c.content", "c.cover_image_url", "c.author_id",
		product + " AS product_id",
		"c.views", "c.status", "c.rejection_reason", "c.created_at", "c.updated_at",
	}, ", ")
	joined := cols + ", p.name, p.photo_url"
	from := fmt.Sprintf("FROM %s c", table)
	fromJoined := fmt.Sprintf("FROM %s c JOIN profiles p ON p.id = c.author_id", table)

	s := contentSQL{hasProductField: kind.HasProduct()}

	if kind.HasProduct() {
		s.create = fmt.Sprintf(`INSERT INTO %s (title, excerpt, content, cover_image_url, author_id, product_id, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, 'pending', ?, ?)
RETURNING id`, table)
		s.update = fmt.Sprintf(`UPDATE %s SET title = ?, excerpt = ?, content = ?, cover_image_url = ?, product_id = ?,
    status = CASE WHEN ? THEN 'pending' ELSE status END,
    rejection_reason = CASE WHEN ? THEN NULL ELSE rejection_reason END,
    updated_at = ?
WHERE id = ?`, table)
	} else {
		s.create = fmt.Sprintf(`INSERT INTO %s (title, excerpt, content, cover_image_url, author_id, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 'pending', ?, ?)
RETURNING id`, table)
		s.update = fmt.Sprintf(`UPDATE %s SET title = ?, excerpt = ?, content = ?, cover_image_url = ?,
    status = CASE WHEN ? THEN 'pending' ELSE status END,
    rejection_reason = CASE WHEN ? THEN NULL ELSE rejection_reason END,
    updated_at = ?
WHERE id = ?`, table)
	}

	s.get = fmt.Sprintf("SELECT %s %s WHERE c.id = ?", cols, from)
	s.getPublic = fmt.Sprintf("SELECT %s %s WHERE c.id = ? AND c.status = 'approved'", joined, fromJoined)
	s.list = fmt.Sprintf("SELECT %s %s WHERE (? = '' OR c.status = ?) ORDER BY c.created_at DESC, c.id DESC", joined, fromJoined)
	s.listByAuthor = fmt.Sprintf("SELECT %s %s WHERE c.author_id = ? AND (? = '' OR c.status = ?) ORDER BY c.created_at DESC, c.id DESC", joined, fromJoined)

	productFilter := ""
	if kind.HasProduct() {
		productFilter = " AND (? = 0 OR c.product_id = ?)"
	}
	s.listPublic = fmt.Sprintf("SELECT %s %s WHERE c.status = 'approved' AND p.status = 'approved' AND (? = 0 OR c.author_id = ?)%s ORDER BY c.created_at DESC, c.id DESC LIMIT ?",
		joined, fromJoined, productFilter)

	s.transition = fmt.Sprintf("UPDATE %s SET status = ?, rejection_reason = ?, updated_at = ? WHERE id = ? AND status = ?", table)
	s.delete = fmt.Sprintf("DELETE FROM %s WHERE id = ?", table)
	s.deleteByAuthor = fmt.Sprintf("DELETE FROM %s WHERE author_id = ?", table)
	s.incrementViews = fmt.Sprintf("UPDATE %s SET views = views + 1 WHERE id = ? AND status = 'approved' RETURNING views", table)
	s.count = fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE (? = '' OR status = ?)", table)
	s.countByAuthor = fmt.Sprintf("SELECT status, COUNT(*) FROM %s WHERE author_id = ? GROUP BY status", table)
	return s
}

func statementsFor(kind model.ContentKind) (contentSQL, error) {
	s, ok := contentStatements[kind]
	if !ok {
		return contentSQL{}, fmt.Errorf("unknown content kind %q", kind)
	}
	return s, nil
}

func scanContent(row rowScanner) (Content, error) {
	var c Content
	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Excerpt,
		&c.Content,
		&c.CoverImageURL,
		&c.AuthorID,
		&c.ProductID,
		&c.Views,
		&c.Status,
		&c.RejectionReason,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

func scanContentWithAuthor(row rowScanner) (ContentWithAuthor, error) {
	var c ContentWithAuthor
	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Excerpt,
		&c.Content.Content,
		&c.CoverImageURL,
		&c.AuthorID,
		&c.ProductID,
		&c.Views,
		&c.Status,
		&c.RejectionReason,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.AuthorName,
		&c.AuthorPhotoURL,
	)
	return c, err
}

// CreateContentParams holds the fields for CreateContent. The status column is
// always written as pending; there is no parameter for it.
type CreateContentParams struct {
	Title         string
	Excerpt       string
	Content       string
	CoverImageURL string
	AuthorID      int64
	ProductID     sql.NullInt64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (q *Queries) CreateContent(ctx context.Context, kind model.ContentKind, arg CreateContentParams) (Content, error) {
	s, err := statementsFor(kind)
	if err != nil {
		return Content{}, err
	}

	args := []any{arg.Title, arg.Excerpt, arg.Content, arg.CoverImageURL, arg.AuthorID}
	if s.hasProductField {
		args = append(args, arg.ProductID)
	}
	args = append(args, arg.CreatedAt, arg.UpdatedAt)

	var id int64
	if err := q.db.QueryRowContext(ctx, s.create, args...).Scan(&id); err != nil {
		return Content{}, err
	}
	return q.GetContent(ctx, kind, id)
}

func (q *Queries) GetContent(ctx context.Context, kind model.ContentKind, id int64) (Content, error) {
	s, err := statementsFor(kind)
	if err != nil {
		return Content{}, err
	}
	return scanContent(q.db.QueryRowContext(ctx, s.get, id))
}

// GetPublicContent returns an approved item joined with its author.
func (q *Queries) GetPublicContent(ctx context.Context, kind model.ContentKind, id int64) (ContentWithAuthor, error) {
	s, err := statementsFor(kind)
	if err != nil {
		return ContentWithAuthor{}, err
	}
	return scanContentWithAuthor(q.db.QueryRowContext(ctx, s.getPublic, id))
}

// ListContent returns every item of a kind, optionally restricted to one
// status (empty string selects all), newest first.
func (q *Queries) ListContent(ctx context.Context, kind model.ContentKind, status string) ([]ContentWithAuthor, error) {
	s, err := statementsFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, s.list, status, status)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, scanContentWithAuthor)
}

// ListContentByAuthor is ListContent restricted to one author.
func (q *Queries) ListContentByAuthor(ctx context.Context, kind model.ContentKind, authorID int64, status string) ([]ContentWithAuthor, error) {
	s, err := statementsFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, s.listByAuthor, authorID, status, status)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, scanContentWithAuthor)
}

// ListPublicContentParams narrows the public listing. Zero values disable a filter;
// a Limit of zero or less means no limit.
type ListPublicContentParams struct {
	AuthorID  int64
	ProductID int64
	Limit     int64
}

// ListPublicContent returns approved items by approved authors, newest first.
func (q *Queries) ListPublicContent(ctx context.Context, kind model.ContentKind, arg ListPublicContentParams) ([]ContentWithAuthor, error) {
	s, err := statementsFor(kind)
	if err != nil {
		return nil, err
	}

	limit := arg.Limit
	if limit <= 0 {
		limit = -1
	}

	args := []any{arg.AuthorID, arg.AuthorID}
	if s.hasProductField {
		args = append(args, arg.ProductID, arg.ProductID)
	}
	args = append(args, limit)

	rows, err := q.db.QueryContext(ctx, s.listPublic, args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, scanContentWithAuthor)
}

// UpdateContentParams holds the editable fields. When Resubmit is set the row
// returns to pending and its rejection reason is cleared in the same statement.
type UpdateContentParams struct {
	ID            int64
	Title         string
	Excerpt       string
	Content       string
	CoverImageURL string
	ProductID     sql.NullInt64
	Resubmit      bool
	UpdatedAt     time.Time
}

func (q *Queries) UpdateContent(ctx context.Context, kind model.ContentKind, arg UpdateContentParams) (Content, error) {
	s, err := statementsFor(kind)
	if err != nil {
		return Content{}, err
	}

	args := []any{arg.Title, arg.Excerpt, arg.Content, arg.CoverImageURL}
	if s.hasProductField {
		args = append(args, arg.ProductID)
	}
	args = append(args, arg.Resubmit, arg.Resubmit, arg.UpdatedAt, arg.ID)

	res, err := q.db.ExecContext(ctx, s.update, args...)
	if err != nil {
		return Content{}, err
	}
	if err := affected(res); err != nil {
		return Content{}, err
	}
	return q.GetContent(ctx, kind, arg.ID)
}

// TransitionContentParams moves a row from one status to another.
type TransitionContentParams struct {
	ID              int64
	From            string
	To              string
	RejectionReason sql.NullString
	UpdatedAt       time.Time
}

// TransitionContent applies a status change only if the row is still in From.
// It returns sql.ErrNoRows when the row is missing or has already moved.
func (q *Queries) TransitionContent(ctx context.Context, kind model.ContentKind, arg TransitionContentParams) error {
	s, err := statementsFor(kind)
	if err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx, s.transition, arg.To, arg.RejectionReason, arg.UpdatedAt, arg.ID, arg.From)
	if err != nil {
		return err
	}
	return affected(res)
}

func (q *Queries) DeleteContent(ctx context.Context, kind model.ContentKind, id int64) error {
	s, err := statementsFor(kind)
	if err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx, s.delete, id)
	if err != nil {
		return err
	}
	return affected(res)
}

// DeleteContentByAuthor removes every item of a kind by one author and
// returns how many rows were deleted.
func (q *Queries) DeleteContentByAuthor(ctx context.Context, kind model.ContentKind, authorID int64) (int64, error) {
	s, err := statementsFor(kind)
	if err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, s.deleteByAuthor, authorID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// IncrementViews atomically bumps the view counter of an approved item and
// returns the new value.
func (q *Queries) IncrementViews(ctx context.Context, kind model.ContentKind, id int64) (int64, error) {
	s, err := statementsFor(kind)
	if err != nil {
		return 0, err
	}
	var views int64
	err = q.db.QueryRowContext(ctx, s.incrementViews, id).Scan(&views)
	return views, err
}

// CountContent counts items of a kind, optionally by status.
func (q *Queries) CountContent(ctx context.Context, kind model.ContentKind, status string) (int64, error) {
	s, err := statementsFor(kind)
	if err != nil {
		return 0, err
	}
	var n int64
	err = q.db.QueryRowContext(ctx, s.count, status, status).Scan(&n)
	return n, err
}

// CountContentByAuthor returns per-status counts for one author.
func (q *Queries) CountContentByAuthor(ctx context.Context, kind model.ContentKind, authorID int64) (map[string]int64, error) {
	s, err := statementsFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, s.countByAuthor, authorID)
	if err != nil {
		return nil, err
	}

	type statusCount struct {
		status string
		n      int64
	}
	counts, err := collectRows(rows, func(row rowScanner) (statusCount, error) {
		var sc statusCount
		err := row.Scan(&sc.status, &sc.n)
		return sc, err
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(counts))
	for _, sc := range counts {
		out[sc.status] = sc.n
	}
	return out, nil
}
