// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/store"
)

// Actor identifies who performs an operation and where the request came from.
type Actor struct {
	AccountID int64
	ProfileID int64 // zero when the account has no profile
	Roles     []model.Role
	IP        string
	Path      string
}

// Has reports whether the actor holds role.
func (a Actor) Has(role model.Role) bool {
	return slices.Contains(a.Roles, role)
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Has(model.RoleAdmin)
}

func (a Actor) accountRef() *int64 {
	if a.AccountID == 0 {
		return nil
	}
	id := a.AccountID
	return &id
}

// Principal is the resolved identity of an authenticated account.
type Principal struct {
	Account store.Account
	Profile *store.Profile
	Roles   []model.Role
}

// Has reports whether the principal holds role.
func (p *Principal) Has(role model.Role) bool {
	return p != nil && slices.Contains(p.Roles, role)
}

// Dashboards lists the dashboard routes for every role held, admin first.
func (p *Principal) Dashboards() []string {
	var out []string
	for _, r := range model.Roles {
		if p.Has(r) {
			out = append(out, r.DashboardPath())
		}
	}
	return out
}

// Actor converts the principal into an Actor for service calls.
func (p *Principal) Actor(ip, path string) Actor {
	a := Actor{AccountID: p.Account.ID, Roles: p.Roles, IP: ip, Path: path}
	if p.Profile != nil {
		a.ProfileID = p.Profile.ID
	}
	return a
}

// DecisionStatus is the outcome of a guard check.
type DecisionStatus string

// Guard outcomes. The zero value means the check has not resolved yet.
const (
	DecisionLoading    DecisionStatus = ""
	DecisionAuthorized DecisionStatus = "authorized"
	DecisionRedirect   DecisionStatus = "redirect"
)

// Redirect targets and notices used by Guard.
const (
	LocationLogin      = "/auth"
	LocationHome       = "/"
	NoticeUnauthorized = "auth.unauthorized"
	NoticeGeneric      = "error.generic"
)

// Decision is the result of Guard.
type Decision struct {
	Status   DecisionStatus `json:"status"`
	Location string         `json:"location,omitempty"`
	Notice   string         `json:"notice,omitempty"`
}

// Authorizer resolves principals and answers role checks.
type Authorizer struct {
	queries *store.Queries
}

// NewAuthorizer creates an Authorizer.
func NewAuthorizer(db *sql.DB) *Authorizer {
	return &Authorizer{queries: store.New(db)}
}

// Resolve loads the account, its profile (if any) and every role it holds.
func (a *Authorizer) Resolve(ctx context.Context, accountID int64) (*Principal, error) {
	account, err := a.queries.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, notFound(err, "account")
	}

	p := &Principal{Account: account}

	profile, err := a.queries.GetProfileByAccountID(ctx, accountID)
	switch {
	case err == nil:
		p.Profile = &profile
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	names, err := a.queries.ListRolesForAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("loading roles: %w", err)
	}
	for _, n := range names {
		if r, ok := model.ParseRole(n); ok {
			p.Roles = append(p.Roles, r)
		}
	}
	return p, nil
}

// Guard decides whether accountID may enter an area protected by role.
// A zero accountID means no session. The principal is returned only when
// the decision is authorized.
func (a *Authorizer) Guard(ctx context.Context, accountID int64, role model.Role) (Decision, *Principal) {
	if accountID == 0 {
		return Decision{Status: DecisionRedirect, Location: LocationLogin}, nil
	}

	p, err := a.Resolve(ctx, accountID)
	if errors.Is(err, ErrNotFound) {
		// Session outlived its account.
		return Decision{Status: DecisionRedirect, Location: LocationLogin}, nil
	}
	if err != nil {
		return Decision{Status: DecisionRedirect, Location: LocationHome, Notice: NoticeGeneric}, nil
	}

	if !p.Has(role) {
		return Decision{Status: DecisionRedirect, Location: LocationHome, Notice: NoticeUnauthorized}, nil
	}
	return Decision{Status: DecisionAuthorized}, p
}
