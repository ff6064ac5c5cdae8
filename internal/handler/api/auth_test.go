// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/service"
)

func TestRegister(t *testing.T) {
	f := newAPIFixture(t)
	c := f.client(t)

	in := service.RegisterInput{
		ProfileInput: service.ProfileInput{Name: "سارة", Phone: "0551234567", Bio: "كاتبة"},
		Email:        "Sara@Example.com",
	}
	rr := c.do(http.MethodPost, "/api/auth/register", in)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	profile := decode[ProfileResponse](t, rr)
	assert.Equal(t, "sara@example.com", profile.Email)
	assert.Equal(t, string(model.StatusPending), profile.Status)

	t.Run("duplicate email", func(t *testing.T) {
		rr := c.do(http.MethodPost, "/api/auth/register", in)
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "conflict", decodeError(t, rr).Error.Code)
	})

	t.Run("validation", func(t *testing.T) {
		rr := c.do(http.MethodPost, "/api/auth/register", service.RegisterInput{Email: "not-an-email"})
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		resp := decodeError(t, rr)
		assert.Equal(t, "validation_error", resp.Error.Code)
		assert.Equal(t, "validation.email", resp.Error.Details["email"])
	})

	t.Run("unknown field", func(t *testing.T) {
		rr := c.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "x@example.com", "status": "approved"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSignInAndSession(t *testing.T) {
	f := newAPIFixture(t)
	account, _ := f.seedAccount(t, "writer@almonhna.sa", "كاتب", model.StatusApproved, model.RoleWriter)

	c := f.client(t)
	rr := c.do(http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[SessionResponse](t, rr).Authenticated)

	rr = c.do(http.MethodPost, "/api/auth/login", LoginRequest{Email: "Writer@Almonhna.sa", Password: testPassword})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	sess := decode[SessionResponse](t, rr)
	assert.True(t, sess.Authenticated)
	assert.Equal(t, account.ID, sess.Account.ID)
	assert.Equal(t, []model.Role{model.RoleWriter}, sess.Roles)
	assert.Equal(t, []string{model.RoleWriter.DashboardPath()}, sess.Dashboards)
	require.NotNil(t, sess.Profile)

	rr = c.do(http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[SessionResponse](t, rr).Authenticated)

	rr = c.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = c.do(http.MethodGet, "/api/auth/session", nil)
	assert.False(t, decode[SessionResponse](t, rr).Authenticated)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	f := newAPIFixture(t)
	f.seedAccount(t, "writer@almonhna.sa", "كاتب", model.StatusApproved, model.RoleWriter)
	c := f.client(t)

	rr := c.do(http.MethodPost, "/api/auth/login", LoginRequest{Email: "writer@almonhna.sa", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid_credentials", decodeError(t, rr).Error.Code)

	rr = c.do(http.MethodPost, "/api/auth/login", LoginRequest{Email: "nobody@almonhna.sa", Password: testPassword})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGuardEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.seedAccount(t, "writer@almonhna.sa", "كاتب", model.StatusApproved, model.RoleWriter)

	anon := f.client(t)
	rr := anon.do(http.MethodGet, "/api/auth/guard?role=writer", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decision := decode[service.Decision](t, rr)
	assert.Equal(t, service.DecisionRedirect, decision.Status)
	assert.Equal(t, service.LocationLogin, decision.Location)

	writer := f.signIn(t, "writer@almonhna.sa")
	rr = writer.do(http.MethodGet, "/api/auth/guard?role=writer", nil)
	assert.Equal(t, service.DecisionAuthorized, decode[service.Decision](t, rr).Status)

	rr = writer.do(http.MethodGet, "/api/auth/guard?role=admin", nil)
	decision = decode[service.Decision](t, rr)
	assert.Equal(t, service.DecisionRedirect, decision.Status)
	assert.Equal(t, service.LocationHome, decision.Location)
	assert.Equal(t, service.NoticeUnauthorized, decision.Notice)

	rr = writer.do(http.MethodGet, "/api/auth/guard?role=editor", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestForgotPassword_SameResponseForUnknownEmail(t *testing.T) {
	f := newAPIFixture(t)
	f.seedAccount(t, "writer@almonhna.sa", "كاتب", model.StatusApproved, model.RoleWriter)
	c := f.client(t)

	known := c.do(http.MethodPost, "/api/auth/password/forgot", PasswordForgotRequest{Email: "writer@almonhna.sa"})
	unknown := c.do(http.MethodPost, "/api/auth/password/forgot", PasswordForgotRequest{Email: "ghost@almonhna.sa"})

	assert.Equal(t, http.StatusAccepted, known.Code)
	assert.Equal(t, known.Code, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
}

func TestResetPassword_InvalidToken(t *testing.T) {
	f := newAPIFixture(t)
	c := f.client(t)

	rr := c.do(http.MethodPost, "/api/auth/password/reset", PasswordResetRequest{Token: "garbage", Password: "a new long password"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_token", decodeError(t, rr).Error.Code)
}

func TestRunSetup(t *testing.T) {
	f := newAPIFixture(t)
	c := f.client(t)

	rr := c.do(http.MethodPost, "/api/setup", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	res := decode[service.SetupResult](t, rr)
	assert.True(t, res.Created)
	assert.Equal(t, "admin@almonhna.sa", res.Email)
	assert.NotContains(t, rr.Body.String(), testPassword)

	rr = c.do(http.MethodPost, "/api/setup", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[service.SetupResult](t, rr).Created)

	admin := f.signIn(t, "admin@almonhna.sa")
	rr = admin.do(http.MethodGet, "/api/admin/dashboard", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
