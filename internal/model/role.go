// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "strings"

// Role is a capability granted to an account independently of its profile status.
type Role string

// Known roles.
const (
	RoleAdmin  Role = "admin"
	RoleWriter Role = "writer"
)

// Roles lists every grantable role.
var Roles = []Role{RoleAdmin, RoleWriter}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleWriter
}

func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role name, case-insensitively.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// DashboardPath returns the dashboard route for a role.
func (r Role) DashboardPath() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleWriter:
		return "/writer"
	default:
		return "/"
	}
}
