// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/almonhna/almonhna/internal/auth"
	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/notify"
	"github.com/almonhna/almonhna/internal/store"
)

// ResetPath is the frontend route that consumes password tokens.
const ResetPath = "/auth/reset"

// LinkBuilder issues signed password links for accounts.
type LinkBuilder struct {
	tokens  *auth.TokenIssuer
	siteURL string
}

// NewLinkBuilder creates a LinkBuilder rooted at siteURL.
func NewLinkBuilder(tokens *auth.TokenIssuer, siteURL string) *LinkBuilder {
	return &LinkBuilder{tokens: tokens, siteURL: strings.TrimRight(siteURL, "/")}
}

// PasswordLink returns {siteURL}/auth/reset?token=... for account. The link
// stops working once the password changes.
func (b *LinkBuilder) PasswordLink(account store.Account) (string, error) {
	token, err := b.tokens.Issue(account.ID, auth.PurposePasswordReset, auth.PasswordStamp(account.PasswordHash))
	if err != nil {
		return "", err
	}
	return b.siteURL + ResetPath + "?token=" + url.QueryEscape(token), nil
}

// TTL returns how long issued links stay valid.
func (b *LinkBuilder) TTL() time.Duration {
	return b.tokens.TTL()
}

// AccountService handles authentication and password management.
type AccountService struct {
	db       *sql.DB
	queries  *store.Queries
	links    *LinkBuilder
	outbox   *notify.Outbox
	notifier Notifier
	events   *EventService
	logger   *slog.Logger
	now      func() time.Time
}

// NewAccountService creates an AccountService. outbox and notifier may be nil.
func NewAccountService(db *sql.DB, links *LinkBuilder, outbox *notify.Outbox, notifier Notifier, events *EventService, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		db:       db,
		queries:  store.New(db),
		links:    links,
		outbox:   outbox,
		notifier: notifier,
		events:   events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate verifies email and password. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, actor Actor, email, password string) (store.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	account, err := s.queries.GetAccountByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		s.logFailedLogin(ctx, actor, email, nil, "unknown email")
		return store.Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.Account{}, fmt.Errorf("loading account: %w", err)
	}

	ok, err := auth.CheckPassword(password, account.PasswordHash)
	if err != nil || !ok {
		s.logFailedLogin(ctx, actor, email, &account.ID, "invalid password")
		return store.Account{}, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.queries.UpdateAccountLastLogin(ctx, account.ID, now); err != nil {
		s.logger.Warn("failed to record last login", "account_id", account.ID, "error", err)
	}

	if auth.NeedsRehash(account.PasswordHash) {
		if hash, err := auth.HashPassword(password); err == nil {
			if err := s.queries.UpdateAccountPassword(ctx, account.ID, hash, now); err != nil {
				s.logger.Warn("failed to upgrade password hash", "account_id", account.ID, "error", err)
			}
		}
	}

	_ = s.events.LogAuthEvent(ctx, model.EventLevelInfo, "User logged in", &account.ID, actor.IP, actor.Path, map[string]any{"email": email})
	return account, nil
}

func (s *AccountService) logFailedLogin(ctx context.Context, actor Actor, email string, accountID *int64, reason string) {
	s.logger.Warn("failed login attempt", "category", model.EventCategoryAuth, "email", email, "ip", actor.IP, "reason", reason)
	_ = s.events.LogAuthEvent(ctx, model.EventLevelWarning, "Failed login attempt", accountID, actor.IP, actor.Path,
		map[string]any{"email": email, "reason": reason})
}

// RecordLogout audits a logout.
func (s *AccountService) RecordLogout(ctx context.Context, actor Actor) {
	if actor.AccountID == 0 {
		return
	}
	_ = s.events.LogAuthEvent(ctx, model.EventLevelInfo, "User logged out", actor.accountRef(), actor.IP, actor.Path, nil)
}

// RequestPasswordReset queues a reset link when email belongs to an account.
// It never reveals whether the account exists.
func (s *AccountService) RequestPasswordReset(ctx context.Context, actor Actor, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	account, err := s.queries.GetAccountByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debug("password reset for unknown email", "category", model.EventCategoryAuth)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading account: %w", err)
	}

	if err := s.sendReset(ctx, account); err != nil {
		if errors.Is(err, notify.ErrNotConfigured) {
			s.logger.Warn("password reset requested but mail is not configured", "account_id", account.ID)
			return nil
		}
		return err
	}

	actor.AccountID = account.ID
	s.events.Audit(ctx, actor, model.EventCategoryAuth, "Password reset requested", nil)
	return nil
}

// SendPasswordReset queues a reset link for any account on an admin's behalf.
func (s *AccountService) SendPasswordReset(ctx context.Context, actor Actor, accountID int64) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	account, err := s.queries.GetAccountByID(ctx, accountID)
	if err != nil {
		return notFound(err, "account")
	}
	if err := s.sendReset(ctx, account); err != nil {
		return err
	}

	s.events.Audit(ctx, actor, model.EventCategoryAuth, "Password reset sent", map[string]any{"account_id": accountID})
	return nil
}

func (s *AccountService) sendReset(ctx context.Context, account store.Account) error {
	if s.outbox == nil || !s.outbox.Configured() {
		return notify.ErrNotConfigured
	}

	link, err := s.links.PasswordLink(account)
	if err != nil {
		return err
	}

	name := account.Email
	if profile, err := s.queries.GetProfileByAccountID(ctx, account.ID); err == nil {
		name = profile.Name
	}

	id, err := s.outbox.EnqueuePasswordReset(ctx, nil, notify.PasswordResetEmail{
		Email:     account.Email,
		Name:      name,
		ResetURL:  link,
		ExpiresAt: s.now().Add(s.links.TTL()),
	})
	if err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.Notify(id)
	}
	return nil
}

// ResetPassword sets a new password from a signed link. Tokens issued
// before the last password change are refused.
func (s *AccountService) ResetPassword(ctx context.Context, actor Actor, token, password string) error {
	if err := auth.ValidatePassword(password); err != nil {
		return &ValidationError{Fields: map[string]string{"password": "validation.password_length"}}
	}

	claims, err := s.links.tokens.Verify(token, auth.PurposePasswordReset)
	if err != nil {
		return err
	}
	accountID, _ := claims.AccountID()

	account, err := s.queries.GetAccountByID(ctx, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("loading account: %w", err)
	}
	if claims.Stamp != auth.PasswordStamp(account.PasswordHash) {
		return auth.ErrInvalidToken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.queries.UpdateAccountPassword(ctx, account.ID, hash, s.now()); err != nil {
		return notFound(err, "account")
	}

	_ = s.events.LogAuthEvent(ctx, model.EventLevelInfo, "Password changed", &account.ID, actor.IP, actor.Path, nil)
	return nil
}
