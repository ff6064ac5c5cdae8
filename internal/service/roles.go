// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/almonhna/almonhna/internal/cache"
	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/store"
)

// UserWithRoles is an account as shown on the admin users screen.
type UserWithRoles struct {
	AccountID   int64        `json:"account_id"`
	Email       string       `json:"email"`
	PasswordSet bool         `json:"password_set"`
	ProfileID   *int64       `json:"profile_id"`
	Name        string       `json:"name"`
	Status      string       `json:"status"`
	Roles       []model.Role `json:"roles"`
	CreatedAt   time.Time    `json:"created_at"`
}

// RoleService grants and revokes roles.
type RoleService struct {
	queries  *store.Queries
	listings *cache.Listings
	events   *EventService
}

// NewRoleService creates a RoleService.
func NewRoleService(db *sql.DB, listings *cache.Listings, events *EventService) *RoleService {
	return &RoleService{queries: store.New(db), listings: listings, events: events}
}

// Grant gives role to an account. Granting a held role is a no-op.
func (s *RoleService) Grant(ctx context.Context, actor Actor, accountID int64, role model.Role) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if !role.Valid() {
		return &ValidationError{Fields: map[string]string{"role": "validation.role"}}
	}
	if _, err := s.queries.GetAccountByID(ctx, accountID); err != nil {
		return notFound(err, "account")
	}

	added, err := s.queries.GrantRole(ctx, accountID, string(role), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("granting role: %w", err)
	}
	if added {
		s.listings.Invalidate(ctx, cache.ScopeWriters)
		s.events.Audit(ctx, actor, model.EventCategoryRole, "Role granted", map[string]any{"account_id": accountID, "role": role})
	}
	return nil
}

// Revoke removes role from an account. Admins cannot revoke their own admin role.
func (s *RoleService) Revoke(ctx context.Context, actor Actor, accountID int64, role model.Role) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if !role.Valid() {
		return &ValidationError{Fields: map[string]string{"role": "validation.role"}}
	}
	if accountID == actor.AccountID && role == model.RoleAdmin {
		return ErrSelfAction
	}

	removed, err := s.queries.RevokeRole(ctx, accountID, string(role))
	if err != nil {
		return fmt.Errorf("revoking role: %w", err)
	}
	if removed {
		s.listings.Invalidate(ctx, cache.ScopeWriters)
		s.events.AuditWarning(ctx, actor, model.EventCategoryRole, "Role revoked", map[string]any{"account_id": accountID, "role": role})
	}
	return nil
}

// HasRole reports whether accountID holds role.
func (s *RoleService) HasRole(ctx context.Context, accountID int64, role model.Role) (bool, error) {
	return s.queries.HasRole(ctx, accountID, string(role))
}

// RolesFor returns every role accountID holds, sorted by name.
func (s *RoleService) RolesFor(ctx context.Context, accountID int64) ([]model.Role, error) {
	names, err := s.queries.ListRolesForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	roles := make([]model.Role, 0, len(names))
	for _, n := range names {
		if r, ok := model.ParseRole(n); ok {
			roles = append(roles, r)
		}
	}
	return roles, nil
}

// ListUsersWithRoles returns every account with its profile summary and roles.
func (s *RoleService) ListUsersWithRoles(ctx context.Context, actor Actor) ([]UserWithRoles, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	accounts, err := s.queries.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	profiles, err := s.queries.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	assignments, err := s.queries.ListRoleAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}

	byAccount := make(map[int64]store.Profile, len(profiles))
	for _, p := range profiles {
		byAccount[p.AccountID] = p
	}
	roles := make(map[int64][]model.Role)
	for _, a := range assignments {
		if r, ok := model.ParseRole(a.Role); ok {
			roles[a.AccountID] = append(roles[a.AccountID], r)
		}
	}

	users := make([]UserWithRoles, 0, len(accounts))
	for _, a := range accounts {
		u := UserWithRoles{
			AccountID:   a.ID,
			Email:       a.Email,
			PasswordSet: a.PasswordSet,
			Roles:       roles[a.ID],
			CreatedAt:   a.CreatedAt,
		}
		if u.Roles == nil {
			u.Roles = []model.Role{}
		}
		if p, ok := byAccount[a.ID]; ok {
			id := p.ID
			u.ProfileID = &id
			u.Name = p.Name
			u.Status = p.Status
		}
		users = append(users, u)
	}
	return users, nil
}
