// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/almonhna/almonhna/internal/i18n"
)

const (
	maxLockout        = 24 * time.Hour
	maxTrackedIPs     = 10000
	loginSweepEvery   = 10 * time.Minute
	defaultIPRate     = 0.5
	defaultIPBurst    = 5
	defaultMaxFailed  = 5
	defaultLockWindow = 15 * time.Minute
)

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	// IPRateLimit is sign-in requests per second per IP.
	IPRateLimit float64
	IPBurst     int
	// MaxFailedAttempts within AttemptWindow locks the email.
	MaxFailedAttempts int
	// LockoutDuration doubles with each further lockout, capped at a day.
	LockoutDuration time.Duration
	AttemptWindow   time.Duration
}

// DefaultLoginProtectionConfig allows a burst of 5 sign-ins per IP and locks
// an email for 15 minutes after 5 wrong passwords.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       defaultIPRate,
		IPBurst:           defaultIPBurst,
		MaxFailedAttempts: defaultMaxFailed,
		LockoutDuration:   defaultLockWindow,
		AttemptWindow:     defaultLockWindow,
	}
}

func (c LoginProtectionConfig) withDefaults() LoginProtectionConfig {
	d := DefaultLoginProtectionConfig()
	if c.IPRateLimit <= 0 {
		c.IPRateLimit = d.IPRateLimit
	}
	if c.IPBurst <= 0 {
		c.IPBurst = d.IPBurst
	}
	if c.MaxFailedAttempts <= 0 {
		c.MaxFailedAttempts = d.MaxFailedAttempts
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = d.LockoutDuration
	}
	if c.AttemptWindow <= 0 {
		c.AttemptWindow = d.AttemptWindow
	}
	return c
}

// failureRecord is the sign-in history of one email address.
type failureRecord struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
	lockouts    int
}

// LoginProtection throttles sign-in requests per IP and locks an email
// address after repeated wrong passwords.
type LoginProtection struct {
	cfg      LoginProtectionConfig
	perIP    *limiterCache[string]
	now      func() time.Time
	mu       sync.Mutex
	records  map[string]*failureRecord
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLoginProtection starts a login protection instance. Call Stop to end
// its background sweep.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	cfg = cfg.withDefaults()
	lp := &LoginProtection{
		cfg:     cfg,
		perIP:   newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		now:     time.Now,
		records: make(map[string]*failureRecord),
		stop:    make(chan struct{}),
	}
	go lp.sweepLoop()
	return lp
}

// IsAccountLocked reports whether email is locked and for how much longer.
func (lp *LoginProtection) IsAccountLocked(email string) (bool, time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	rec, ok := lp.records[normalizeEmail(email)]
	if !ok {
		return false, 0
	}
	if left := rec.lockedUntil.Sub(lp.now()); left > 0 {
		return true, left
	}
	return false, 0
}

// RecordFailedAttempt counts a wrong password for email. It returns true
// with the lock duration when this failure locks the address.
func (lp *LoginProtection) RecordFailedAttempt(email string) (bool, time.Duration) {
	email = normalizeEmail(email)
	now := lp.now()

	lp.mu.Lock()
	defer lp.mu.Unlock()

	rec, ok := lp.records[email]
	if !ok {
		rec = &failureRecord{}
		lp.records[email] = rec
	}
	if rec.failures == 0 || now.Sub(rec.windowStart) > lp.cfg.AttemptWindow {
		rec.failures = 0
		rec.windowStart = now
	}
	rec.failures++

	if rec.failures < lp.cfg.MaxFailedAttempts {
		slog.Debug("failed sign-in recorded", "email", email, "failures", rec.failures)
		return false, 0
	}

	lock := lp.lockDuration(rec.lockouts)
	rec.lockedUntil = now.Add(lock)
	rec.lockouts++
	rec.failures = 0

	slog.Warn("account locked after failed sign-ins",
		"email", email, "lockouts", rec.lockouts, "duration", lock)
	return true, lock
}

// lockDuration doubles the base lockout for every earlier lockout.
func (lp *LoginProtection) lockDuration(previous int) time.Duration {
	d := lp.cfg.LockoutDuration
	for range previous {
		d *= 2
		if d >= maxLockout {
			return maxLockout
		}
	}
	return d
}

// RecordSuccessfulLogin forgets the failure history of email.
func (lp *LoginProtection) RecordSuccessfulLogin(email string) {
	lp.mu.Lock()
	delete(lp.records, normalizeEmail(email))
	lp.mu.Unlock()
}

// Stop ends the background sweep. It is safe to call more than once.
func (lp *LoginProtection) Stop() {
	lp.stopOnce.Do(func() { close(lp.stop) })
}

func (lp *LoginProtection) sweepLoop() {
	ticker := time.NewTicker(loginSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			lp.sweep()
		case <-lp.stop:
			return
		}
	}
}

// sweep drops expired failure records and resets the IP limiters when too
// many addresses are tracked.
func (lp *LoginProtection) sweep() {
	if lp.perIP.clearIfExceeds(maxTrackedIPs) {
		slog.Info("sign-in IP limiters reset", "max", maxTrackedIPs)
	}

	now := lp.now()
	lp.mu.Lock()
	defer lp.mu.Unlock()
	for email, rec := range lp.records {
		if now.After(rec.lockedUntil) && now.Sub(rec.windowStart) > lp.cfg.AttemptWindow {
			delete(lp.records, email)
		}
	}
}

// Middleware throttles POST requests per client IP. Mount it on the
// sign-in and password recovery routes.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				ip := GetClientIP(r)
				if !lp.perIP.get(ip).Allow() {
					slog.Warn("sign-in rate limit exceeded", "ip", ip, "path", r.URL.Path)
					WriteAPIError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
						i18n.T(GetLanguage(r), "auth.rate_limit"), nil)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetClientIP extracts the client IP from the request. The first
// X-Forwarded-For entry wins over X-Real-IP, which wins over RemoteAddr.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
