// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/almonhna/almonhna/internal/cache"
	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/session"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDegraded  = "degraded"

	pingTimeout = 2 * time.Second
)

type healthChecker struct {
	db        *sql.DB
	listings  *cache.Listings
	version   string
	startTime time.Time
}

func newHealthChecker(db *sql.DB, listings *cache.Listings, version string) *healthChecker {
	return &healthChecker{db: db, listings: listings, version: version, startTime: time.Now()}
}

// HealthStatusPublic is the minimal health response for anonymous callers.
type HealthStatusPublic struct {
	Status string `json:"status"`
}

// HealthStatus is the full health response, shown to administrators.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check is a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains runtime information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

// Health handles GET /health. Anonymous callers get the overall status only;
// administrators also get the checks, and runtime info with ?verbose=true.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbCheck := h.health.checkDatabase(r.Context())

	overall := statusHealthy
	code := http.StatusOK
	if dbCheck.Status != statusHealthy {
		overall = statusDegraded
		code = http.StatusServiceUnavailable
	}

	if !h.isAdmin(r) {
		WriteJSON(w, code, HealthStatusPublic{Status: overall})
		return
	}

	checks := map[string]Check{"database": dbCheck}
	if h.health.listings != nil {
		cacheCheck := h.health.checkCache(r.Context())
		checks["cache"] = cacheCheck
		// Listings fall back to the database, so the API still serves.
		if cacheCheck.Status != statusHealthy && overall == statusHealthy {
			overall = statusDegraded
		}
	}

	status := HealthStatus{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.health.startTime).Round(time.Second).String(),
		Version:   h.health.version,
		Checks:    checks,
	}
	if r.URL.Query().Get("verbose") == "true" {
		status.System = systemInfo()
	}
	WriteJSON(w, code, status)
}

// Liveness handles GET /health/live.
func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.health.checkDatabase(r.Context()).Status != statusHealthy {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// isAdmin reports whether the session belongs to an administrator. It returns
// false when session data is not loaded into the request context.
func (h *Handler) isAdmin(r *http.Request) (admin bool) {
	if h.Sessions == nil || h.Authorizer == nil {
		return false
	}
	defer func() {
		if rec := recover(); rec != nil {
			admin = false
		}
	}()

	accountID := session.AccountID(r.Context(), h.Sessions)
	if accountID == 0 {
		return false
	}
	p, err := h.Authorizer.Resolve(r.Context(), accountID)
	return err == nil && p.Has(model.RoleAdmin)
}

func (c *healthChecker) checkDatabase(ctx context.Context) Check {
	if c.db == nil {
		return Check{Status: statusUnhealthy, Message: "no database"}
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	err := c.db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{Status: statusUnhealthy, Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: statusHealthy, Message: "Connected", Latency: latency.String()}
}

func (c *healthChecker) checkCache(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	stats, err := c.listings.Check(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{Status: statusUnhealthy, Message: err.Error(), Latency: latency.String()}
	}
	return Check{
		Status:  statusHealthy,
		Message: fmt.Sprintf("%d items, %.1f%% hit rate", stats.Items, stats.HitRate),
		Latency: latency.String(),
	}
}

func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     formatBytes(m.Alloc),
		MemSys:       formatBytes(m.Sys),
	}
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
