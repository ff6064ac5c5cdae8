// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source for lockout tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLoginProtection(t *testing.T, maxFailed int) (*LoginProtection, *fakeClock) {
	t.Helper()
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit:       10,
		IPBurst:           100,
		MaxFailedAttempts: maxFailed,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
	})
	t.Cleanup(lp.Stop)
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	lp.now = clock.now
	return lp, clock
}

func TestDefaultLoginProtectionConfig(t *testing.T) {
	cfg := DefaultLoginProtectionConfig()

	assert.Equal(t, 0.5, cfg.IPRateLimit)
	assert.Equal(t, 5, cfg.IPBurst)
	assert.Equal(t, 5, cfg.MaxFailedAttempts)
	assert.Equal(t, 15*time.Minute, cfg.LockoutDuration)
	assert.Equal(t, 15*time.Minute, cfg.AttemptWindow)
}

func TestNewLoginProtection_ZeroConfigUsesDefaults(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{})
	defer lp.Stop()

	assert.Equal(t, DefaultLoginProtectionConfig(), lp.cfg)
}

func TestLoginProtection_LocksAfterMaxFailures(t *testing.T) {
	lp, clock := newTestLoginProtection(t, 3)
	email := "writer@almonhna.sa"

	for range 2 {
		locked, _ := lp.RecordFailedAttempt(email)
		require.False(t, locked)
	}
	locked, _ := lp.IsAccountLocked(email)
	assert.False(t, locked)

	locked, d := lp.RecordFailedAttempt(email)
	require.True(t, locked)
	assert.Equal(t, time.Minute, d)

	locked, left := lp.IsAccountLocked(email)
	assert.True(t, locked)
	assert.Equal(t, time.Minute, left)

	clock.advance(time.Minute + time.Second)
	locked, _ = lp.IsAccountLocked(email)
	assert.False(t, locked, "lock expires")
}

func TestLoginProtection_SuccessClearsHistory(t *testing.T) {
	lp, _ := newTestLoginProtection(t, 2)
	email := "writer@almonhna.sa"

	lp.RecordFailedAttempt(email)
	lp.RecordSuccessfulLogin(email)

	locked, _ := lp.RecordFailedAttempt(email)
	assert.False(t, locked, "count restarted after a successful sign-in")
}

func TestLoginProtection_WindowReset(t *testing.T) {
	lp, clock := newTestLoginProtection(t, 2)
	email := "writer@almonhna.sa"

	lp.RecordFailedAttempt(email)
	clock.advance(2 * time.Minute)

	locked, _ := lp.RecordFailedAttempt(email)
	assert.False(t, locked, "failures outside the window do not add up")
}

func TestLoginProtection_ExponentialBackoff(t *testing.T) {
	lp, clock := newTestLoginProtection(t, 1)
	email := "writer@almonhna.sa"

	var got []time.Duration
	for range 3 {
		locked, d := lp.RecordFailedAttempt(email)
		require.True(t, locked)
		got = append(got, d)
		clock.advance(d + time.Second)
	}

	assert.Equal(t, []time.Duration{time.Minute, 2 * time.Minute, 4 * time.Minute}, got)
}

func TestLoginProtection_LockDurationCapped(t *testing.T) {
	lp, _ := newTestLoginProtection(t, 1)

	assert.Equal(t, maxLockout, lp.lockDuration(20))
}

func TestLoginProtection_NormalizesEmail(t *testing.T) {
	lp, _ := newTestLoginProtection(t, 2)

	lp.RecordFailedAttempt("Writer@Almonhna.sa ")
	locked, _ := lp.RecordFailedAttempt("writer@almonhna.sa")
	require.True(t, locked)

	locked, _ = lp.IsAccountLocked("WRITER@almonhna.sa")
	assert.True(t, locked)
}

func TestLoginProtection_SweepDropsExpiredRecords(t *testing.T) {
	lp, clock := newTestLoginProtection(t, 5)

	lp.RecordFailedAttempt("old@almonhna.sa")
	clock.advance(2 * time.Minute)
	lp.RecordFailedAttempt("fresh@almonhna.sa")

	lp.sweep()

	assert.NotContains(t, lp.records, "old@almonhna.sa")
	assert.Contains(t, lp.records, "fresh@almonhna.sa")
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xForwarded string
		xRealIP    string
		want       string
	}{
		{name: "remote addr", remoteAddr: "192.168.1.1:12345", want: "192.168.1.1"},
		{name: "forwarded single", remoteAddr: "127.0.0.1:8080", xForwarded: "10.0.0.1", want: "10.0.0.1"},
		{name: "forwarded chain", remoteAddr: "127.0.0.1:8080", xForwarded: "10.0.0.1, 10.0.0.2", want: "10.0.0.1"},
		{name: "real ip", remoteAddr: "127.0.0.1:8080", xRealIP: "10.0.0.5", want: "10.0.0.5"},
		{name: "forwarded wins", remoteAddr: "127.0.0.1:8080", xForwarded: "10.0.0.1", xRealIP: "10.0.0.5", want: "10.0.0.1"},
		{name: "forwarded padded", remoteAddr: "127.0.0.1:8080", xForwarded: "  10.0.0.1  ", want: "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xForwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.xForwarded)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}

func TestLoginProtectionMiddleware_OnlyThrottlesPost(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{IPRateLimit: 0.001, IPBurst: 1})
	defer lp.Stop()
	wrapped := lp.Middleware()(simpleOKHandler)

	for range 3 {
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestLoginProtectionMiddleware_RateLimited(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{IPRateLimit: 0.001, IPBurst: 1})
	defer lp.Stop()
	wrapped := lp.Middleware()(simpleOKHandler)

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, send("10.1.1.1:5000").Code)

	rr := send("10.1.1.1:5001")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "rate_limit_exceeded")

	assert.Equal(t, http.StatusOK, send("10.2.2.2:5000").Code, "other IPs keep their own budget")
}

func TestLoginProtectionStopIdempotent(t *testing.T) {
	lp := NewLoginProtection(DefaultLoginProtectionConfig())
	lp.Stop()
	lp.Stop()
}
