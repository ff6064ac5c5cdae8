// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

// MaxURLLength is the maximum accepted length of a user-supplied URL.
const MaxURLLength = 2048

// ErrInvalidURL is returned by ValidateHTTPURL.
var ErrInvalidURL = errors.New("invalid URL")

// ValidateHTTPURL accepts absolute http(s) URLs with a host, and site-relative
// paths under /uploads/ produced by the media endpoint.
func ValidateHTTPURL(raw string) error {
	if raw == "" || len(raw) > MaxURLLength {
		return ErrInvalidURL
	}
	if strings.HasPrefix(raw, "/") {
		if path.Clean(raw) == raw && strings.HasPrefix(raw, "/uploads/") {
			return nil
		}
		return ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}
	if u.Hostname() == "" {
		return ErrInvalidURL
	}
	return nil
}
