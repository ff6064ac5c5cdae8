// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/almonhna/almonhna/internal/auth"
	"github.com/almonhna/almonhna/internal/cache"
	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/notify"
	"github.com/almonhna/almonhna/internal/store"
	"github.com/almonhna/almonhna/internal/util"
)

// Profile field limits.
const (
	MinNameLength  = 3
	MinPhoneLength = 10
	MaxBioLength   = 150
	MaxNameLength  = 100

	// DefaultTopWriters is the size of the top writers list.
	DefaultTopWriters = 5
)

// Notifier hands a stored notification to a delivery worker.
type Notifier interface {
	Notify(id int64)
}

// ProfileInput holds the writer-editable profile fields.
type ProfileInput struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Bio         string `json:"bio"`
	PhotoURL    string `json:"photo_url"`
	LinkedinURL string `json:"linkedin_url"`
}

// RegisterInput is a public writer application.
type RegisterInput struct {
	ProfileInput
	Email string `json:"email"`
}

// WriterPage is a public writer with their approved content.
type WriterPage struct {
	Profile  store.Profile             `json:"profile"`
	Articles []store.ContentWithAuthor `json:"articles"`
	News     []store.ContentWithAuthor `json:"news"`
}

// WriterService manages writer applications and profiles.
type WriterService struct {
	db       *sql.DB
	queries  *store.Queries
	outbox   *notify.Outbox
	notifier Notifier
	links    *LinkBuilder
	listings *cache.Listings
	events   *EventService
	logger   *slog.Logger
	now      func() time.Time
}

// WriterDeps groups the optional collaborators of WriterService. Any of them may be nil.
type WriterDeps struct {
	Outbox   *notify.Outbox
	Notifier Notifier
	Links    *LinkBuilder
	Listings *cache.Listings
	Events   *EventService
	Logger   *slog.Logger
}

// NewWriterService creates a WriterService.
func NewWriterService(db *sql.DB, deps WriterDeps) *WriterService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WriterService{
		db:       db,
		queries:  store.New(db),
		outbox:   deps.Outbox,
		notifier: deps.Notifier,
		links:    deps.Links,
		listings: deps.Listings,
		events:   deps.Events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account with an unusable random password and a
// pending profile.
func (s *WriterService) Register(ctx context.Context, actor Actor, in RegisterInput) (store.Profile, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	p, v := normalizeProfile(in.ProfileInput)
	v.check(validEmail(in.Email), "email", "validation.email")
	if err := v.err(); err != nil {
		return store.Profile{}, err
	}

	password, err := auth.RandomPassword(32)
	if err != nil {
		return store.Profile{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return store.Profile{}, fmt.Errorf("hashing password: %w", err)
	}

	var profile store.Profile
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		_, err := q.GetAccountByEmail(ctx, in.Email)
		switch {
		case err == nil:
			return ErrConflict
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("checking email: %w", err)
		}

		now := s.now()
		account, err := q.CreateAccount(ctx, store.CreateAccountParams{
			Email:        in.Email,
			PasswordHash: hash,
			PasswordSet:  false,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return conflictOr(err, "creating account")
		}

		profile, err = q.CreateProfile(ctx, store.CreateProfileParams{
			AccountID:   account.ID,
			Name:        p.Name,
			Email:       in.Email,
			Phone:       p.Phone,
			Bio:         p.Bio,
			PhotoURL:    p.PhotoURL,
			LinkedinURL: p.LinkedinURL,
			Status:      string(model.StatusPending),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("creating profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.Profile{}, err
	}

	actor.AccountID = profile.AccountID
	s.events.Audit(ctx, actor, model.EventCategoryWriter, "Writer application received", map[string]any{"profile_id": profile.ID})
	return profile, nil
}

// ApproveWriter approves a profile, grants the writer role and queues the
// welcome email in one transaction. Approving an approved profile does nothing.
func (s *WriterService) ApproveWriter(ctx context.Context, actor Actor, profileID int64) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	var (
		notificationID int64
		already        bool
	)
	err := store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		profile, err := q.GetProfileByID(ctx, profileID)
		if err != nil {
			return notFound(err, "profile")
		}
		if profile.Status == string(model.StatusApproved) {
			already = true
			return nil
		}

		now := s.now()
		if err := q.UpdateProfileStatus(ctx, profileID, string(model.StatusApproved), now); err != nil {
			return fmt.Errorf("approving profile: %w", err)
		}
		if _, err := q.GrantRole(ctx, profile.AccountID, string(model.RoleWriter), now); err != nil {
			return fmt.Errorf("granting writer role: %w", err)
		}

		notificationID, err = s.enqueueWelcome(ctx, q, profile)
		return err
	})
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	if notificationID > 0 && s.notifier != nil {
		s.notifier.Notify(notificationID)
	}

	s.listings.Invalidate(ctx, cache.ScopeWriters, cache.ScopeArticles, cache.ScopeNews, cache.ScopeProducts)
	s.events.Audit(ctx, actor, model.EventCategoryModeration, "Writer approved", map[string]any{"profile_id": profileID})
	return nil
}

// enqueueWelcome stores the welcome email in the approval transaction. An
// unusable recipient is logged and skipped so it never blocks the approval.
func (s *WriterService) enqueueWelcome(ctx context.Context, q *store.Queries, profile store.Profile) (int64, error) {
	if s.outbox == nil {
		return 0, nil
	}

	email := notify.WelcomeEmail{Email: profile.Email, Name: profile.Name}

	account, err := q.GetAccountByID(ctx, profile.AccountID)
	if err != nil {
		return 0, notFound(err, "account")
	}
	if !account.PasswordSet && s.links != nil {
		link, err := s.links.PasswordLink(account)
		if err != nil {
			return 0, err
		}
		email.SetPasswordURL = link
	}

	id, err := s.outbox.EnqueueWelcome(ctx, q, email)
	if errors.Is(err, notify.ErrInvalidEmail) {
		s.logger.Warn("welcome email skipped", "category", model.EventCategoryNotify, "profile_id", profile.ID, "error", err)
		return 0, nil
	}
	return id, err
}

// SendWelcome queues a welcome email outside the approval flow.
func (s *WriterService) SendWelcome(ctx context.Context, actor Actor, email notify.WelcomeEmail) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if s.outbox == nil || !s.outbox.Configured() {
		return notify.ErrNotConfigured
	}

	var v validator
	v.check(strings.TrimSpace(email.Email) != "", "email", "validation.required")
	v.check(strings.TrimSpace(email.Name) != "", "name", "validation.required")
	if email.Email != "" {
		v.check(validEmail(strings.TrimSpace(email.Email)), "email", "validation.email")
	}
	if err := v.err(); err != nil {
		return err
	}

	id, err := s.outbox.EnqueueWelcome(ctx, nil, email)
	if err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.Notify(id)
	}

	s.events.Audit(ctx, actor, model.EventCategoryNotify, "Welcome email queued", map[string]any{"notification_id": id})
	return nil
}

// RejectWriter marks a profile rejected. Roles and email are untouched.
func (s *WriterService) RejectWriter(ctx context.Context, actor Actor, profileID int64) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := s.queries.UpdateProfileStatus(ctx, profileID, string(model.StatusRejected), s.now()); err != nil {
		return notFound(err, "profile")
	}

	s.listings.Invalidate(ctx, cache.ScopeWriters, cache.ScopeArticles, cache.ScopeNews, cache.ScopeProducts)
	s.events.Audit(ctx, actor, model.EventCategoryModeration, "Writer rejected", map[string]any{"profile_id": profileID})
	return nil
}

// DeleteWriter removes a writer's content, roles, profile and account in one transaction.
func (s *WriterService) DeleteWriter(ctx context.Context, actor Actor, profileID int64) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	removed := map[string]any{"profile_id": profileID}
	err := store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		profile, err := q.GetProfileByID(ctx, profileID)
		if err != nil {
			return notFound(err, "profile")
		}
		if profile.AccountID == actor.AccountID {
			return ErrSelfAction
		}

		for _, kind := range model.ContentKinds {
			n, err := q.DeleteContentByAuthor(ctx, kind, profile.ID)
			if err != nil {
				return fmt.Errorf("deleting %s: %w", kind, err)
			}
			removed[kind.Table()] = n
		}
		if err := q.RevokeAllRoles(ctx, profile.AccountID); err != nil {
			return fmt.Errorf("revoking roles: %w", err)
		}
		if err := q.DeleteProfile(ctx, profile.ID); err != nil {
			return fmt.Errorf("deleting profile: %w", err)
		}
		if err := q.DeleteAccount(ctx, profile.AccountID); err != nil {
			return fmt.Errorf("deleting account: %w", err)
		}
		removed["account_id"] = profile.AccountID
		return nil
	})
	if err != nil {
		return err
	}

	s.listings.Invalidate(ctx, cache.ScopeWriters, cache.ScopeArticles, cache.ScopeNews, cache.ScopeProducts)
	s.events.AuditWarning(ctx, actor, model.EventCategoryWriter, "Writer deleted", removed)
	return nil
}

// ListProfiles returns every profile matching filter, ordered by name.
func (s *WriterService) ListProfiles(ctx context.Context, actor Actor, filter model.StatusFilter) ([]store.Profile, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if filter.All() {
		return s.queries.ListProfiles(ctx)
	}
	return s.queries.ListProfilesByStatus(ctx, string(filter.Status))
}

// ListPublicWriters returns approved writers ordered by name.
func (s *WriterService) ListPublicWriters(ctx context.Context) ([]store.Profile, error) {
	return cache.Remember(ctx, s.listings, cache.ListingKey(cache.ScopeWriters, "list"), func() ([]store.Profile, error) {
		profiles, err := s.queries.ListProfilesByStatus(ctx, string(model.StatusApproved))
		if profiles == nil {
			profiles = []store.Profile{}
		}
		return profiles, err
	})
}

// GetPublicWriter returns an approved writer with the approved content selected by filter.
func (s *WriterService) GetPublicWriter(ctx context.Context, profileID int64, filter model.WriterContentFilter) (WriterPage, error) {
	key := cache.ListingKey(cache.ScopeWriters, "page", strconv.FormatInt(profileID, 10), string(filter))
	return cache.Remember(ctx, s.listings, key, func() (WriterPage, error) {
		profile, err := s.queries.GetApprovedProfile(ctx, profileID)
		if err != nil {
			return WriterPage{}, notFound(err, "writer")
		}

		page := WriterPage{
			Profile:  profile,
			Articles: []store.ContentWithAuthor{},
			News:     []store.ContentWithAuthor{},
		}
		for _, kind := range model.ContentKinds {
			if !filter.Includes(kind) {
				continue
			}
			items, err := s.queries.ListPublicContent(ctx, kind, store.ListPublicContentParams{AuthorID: profileID})
			if err != nil {
				return WriterPage{}, fmt.Errorf("listing %s: %w", kind, err)
			}
			if items == nil {
				continue
			}
			if kind == model.KindArticle {
				page.Articles = items
			} else {
				page.News = items
			}
		}
		return page, nil
	})
}

// TopWriters ranks approved writers by their approved articles plus news.
func (s *WriterService) TopWriters(ctx context.Context, n int64) ([]store.WriterCount, error) {
	if n <= 0 {
		n = DefaultTopWriters
	}
	key := cache.ListingKey(cache.ScopeWriters, "top", strconv.FormatInt(n, 10))
	return cache.Remember(ctx, s.listings, key, func() ([]store.WriterCount, error) {
		top, err := s.queries.TopWriters(ctx, n)
		if top == nil {
			top = []store.WriterCount{}
		}
		return top, err
	})
}

// GetOwnProfile returns the actor's profile in any state.
func (s *WriterService) GetOwnProfile(ctx context.Context, actor Actor) (store.Profile, error) {
	if actor.ProfileID == 0 {
		return store.Profile{}, ErrNotFound
	}
	p, err := s.queries.GetProfileByID(ctx, actor.ProfileID)
	if err != nil {
		return store.Profile{}, notFound(err, "profile")
	}
	return p, nil
}

// UpdateOwnProfile edits the actor's profile. Status and email are unchanged.
func (s *WriterService) UpdateOwnProfile(ctx context.Context, actor Actor, in ProfileInput) (store.Profile, error) {
	if actor.ProfileID == 0 {
		return store.Profile{}, ErrNotFound
	}
	in, v := normalizeProfile(in)
	if err := v.err(); err != nil {
		return store.Profile{}, err
	}

	p, err := s.queries.UpdateProfileDetails(ctx, store.UpdateProfileDetailsParams{
		ID:          actor.ProfileID,
		Name:        in.Name,
		Phone:       in.Phone,
		Bio:         in.Bio,
		PhotoURL:    in.PhotoURL,
		LinkedinURL: in.LinkedinURL,
		UpdatedAt:   s.now(),
	})
	if err != nil {
		return store.Profile{}, notFound(err, "profile")
	}

	s.listings.Invalidate(ctx, cache.ScopeWriters, cache.ScopeArticles, cache.ScopeNews, cache.ScopeProducts)
	s.events.Audit(ctx, actor, model.EventCategoryWriter, "Profile updated", map[string]any{"profile_id": p.ID})
	return p, nil
}

func normalizeProfile(in ProfileInput) (ProfileInput, *validator) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Bio = strings.TrimSpace(in.Bio)
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)
	in.LinkedinURL = strings.TrimSpace(in.LinkedinURL)

	v := &validator{}
	v.check(utf8.RuneCountInString(in.Name) >= MinNameLength, "name", "validation.min_length")
	v.check(utf8.RuneCountInString(in.Name) <= MaxNameLength, "name", "validation.max_length")
	v.check(utf8.RuneCountInString(in.Phone) >= MinPhoneLength, "phone", "validation.min_length")
	v.check(utf8.RuneCountInString(in.Bio) <= MaxBioLength, "bio", "validation.max_length")
	if in.PhotoURL != "" {
		v.check(util.ValidateHTTPURL(in.PhotoURL) == nil, "photo_url", "validation.url")
	}
	if in.LinkedinURL != "" {
		v.check(util.ValidateHTTPURL(in.LinkedinURL) == nil && !strings.HasPrefix(in.LinkedinURL, "/"), "linkedin_url", "validation.url")
	}
	return in, v
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// conflictOr maps a unique constraint failure onto ErrConflict.
func conflictOr(err error, op string) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
