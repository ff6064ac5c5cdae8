// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/almonhna/almonhna/internal/auth"
	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/store"
)

// AdminCredentials configure the administrator created by setup. An empty
// Password means a random one is generated and logged once.
type AdminCredentials struct {
	Email    string
	Name     string
	Password string
}

// SetupResult reports the outcome of Setup.Run. The password is never included.
type SetupResult struct {
	AccountID int64  `json:"-"`
	Email     string `json:"email"`
	Created   bool   `json:"created"`
}

// SetupService creates the default administrator.
type SetupService struct {
	db     *sql.DB
	admin  AdminCredentials
	events *EventService
	logger *slog.Logger
}

// NewSetupService creates a SetupService.
func NewSetupService(db *sql.DB, admin AdminCredentials, events *EventService, logger *slog.Logger) *SetupService {
	if logger == nil {
		logger = slog.Default()
	}
	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
	return &SetupService{db: db, admin: admin, events: events, logger: logger}
}

// Run ensures the administrator exists with the admin role and an approved
// profile. Running it again leaves the existing password untouched.
func (s *SetupService) Run(ctx context.Context, actor Actor) (SetupResult, error) {
	if !validEmail(s.admin.Email) {
		return SetupResult{}, fmt.Errorf("invalid admin email %q", s.admin.Email)
	}

	password := s.admin.Password
	generated := password == ""
	if generated {
		var err error
		if password, err = auth.RandomPassword(12); err != nil {
			return SetupResult{}, err
		}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return SetupResult{}, fmt.Errorf("hashing admin password: %w", err)
	}

	name := s.admin.Name
	if strings.TrimSpace(name) == "" {
		name = "admin"
	}

	res, err := store.EnsureAdmin(ctx, s.db, store.AdminSeed{
		Email:        s.admin.Email,
		Name:         name,
		PasswordHash: hash,
	})
	if err != nil {
		return SetupResult{}, err
	}

	if res.Created {
		s.logger.Info("admin account created", "category", model.EventCategorySystem, "email", s.admin.Email)
		if generated {
			// Info level keeps the password out of the persisted event log.
			s.logger.Info("generated admin password, change it after first login",
				"email", s.admin.Email, "password", password)
		}
		actor.AccountID = res.AccountID
		s.events.Audit(ctx, actor, model.EventCategorySystem, "Admin account created", map[string]any{"email": s.admin.Email})
	}

	return SetupResult{AccountID: res.AccountID, Email: s.admin.Email, Created: res.Created}, nil
}
