// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/store"
)

// AdminStats are the counters on the admin dashboard.
type AdminStats struct {
	TotalArticles     int64 `json:"total_articles"`
	TotalNews         int64 `json:"total_news"`
	ApprovedWriters   int64 `json:"approved_writers"`
	PendingArticles   int64 `json:"pending_articles"`
	PendingNews       int64 `json:"pending_news"`
	PendingWriters    int64 `json:"pending_writers"`
	DeadNotifications int64 `json:"dead_notifications"`
}

// StatusCounts maps a moderation status to a count. Every status is present.
type StatusCounts map[string]int64

// WriterStats are the counters on a writer's dashboard.
type WriterStats struct {
	Articles StatusCounts `json:"articles"`
	News     StatusCounts `json:"news"`
}

// StatsService computes dashboard counters.
type StatsService struct {
	queries *store.Queries
}

// NewStatsService creates a StatsService.
func NewStatsService(db *sql.DB) *StatsService {
	return &StatsService{queries: store.New(db)}
}

// Admin returns site-wide counters.
func (s *StatsService) Admin(ctx context.Context, actor Actor) (AdminStats, error) {
	if !actor.IsAdmin() {
		return AdminStats{}, ErrForbidden
	}

	var st AdminStats
	pending := string(model.StatusPending)
	counts := []struct {
		dst *int64
		fn  func() (int64, error)
	}{
		{&st.TotalArticles, func() (int64, error) { return s.queries.CountContent(ctx, model.KindArticle, "") }},
		{&st.TotalNews, func() (int64, error) { return s.queries.CountContent(ctx, model.KindNews, "") }},
		{&st.PendingArticles, func() (int64, error) { return s.queries.CountContent(ctx, model.KindArticle, pending) }},
		{&st.PendingNews, func() (int64, error) { return s.queries.CountContent(ctx, model.KindNews, pending) }},
		{&st.ApprovedWriters, func() (int64, error) { return s.queries.CountProfilesByStatus(ctx, string(model.StatusApproved)) }},
		{&st.PendingWriters, func() (int64, error) { return s.queries.CountProfilesByStatus(ctx, pending) }},
		{&st.DeadNotifications, func() (int64, error) { return s.queries.CountNotificationsByStatus(ctx, model.NotificationDead) }},
	}
	for _, c := range counts {
		n, err := c.fn()
		if err != nil {
			return AdminStats{}, fmt.Errorf("counting dashboard stats: %w", err)
		}
		*c.dst = n
	}
	return st, nil
}

// Writer returns the actor's own content counts by status.
func (s *StatsService) Writer(ctx context.Context, actor Actor) (WriterStats, error) {
	if actor.ProfileID == 0 {
		return WriterStats{}, ErrForbidden
	}

	var st WriterStats
	for _, kind := range model.ContentKinds {
		raw, err := s.queries.CountContentByAuthor(ctx, kind, actor.ProfileID)
		if err != nil {
			return WriterStats{}, fmt.Errorf("counting %s: %w", kind, err)
		}
		counts := StatusCounts{
			string(model.StatusPending):  0,
			string(model.StatusApproved): 0,
			string(model.StatusRejected): 0,
		}
		var total int64
		for status, n := range raw {
			counts[status] = n
			total += n
		}
		counts["total"] = total

		if kind == model.KindArticle {
			st.Articles = counts
		} else {
			st.News = counts
		}
	}
	return st, nil
}
