// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	ti := NewTokenIssuer([]byte("test-key"), time.Hour)

	token, err := ti.Issue(42, PurposePasswordReset, "stamp")
	require.NoError(t, err)

	claims, err := ti.Verify(token, PurposePasswordReset)
	require.NoError(t, err)

	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "stamp", claims.Stamp)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	ti := NewTokenIssuer([]byte("test-key"), time.Hour)
	token, err := ti.Issue(1, PurposePasswordReset, "s")
	require.NoError(t, err)

	t.Run("wrong purpose", func(t *testing.T) {
		_, err := ti.Verify(token, "other")
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("wrong key", func(t *testing.T) {
		other := NewTokenIssuer([]byte("other-key"), time.Hour)
		_, err := other.Verify(token, PurposePasswordReset)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokenIssuer([]byte("test-key"), time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Verify(token, PurposePasswordReset)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ti.Verify("not.a.token", PurposePasswordReset)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}
