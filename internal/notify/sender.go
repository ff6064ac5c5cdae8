// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package notify sends transactional email through a durable outbox.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/almonhna/almonhna/internal/config"
)

// ErrNotConfigured is returned when the selected mail provider has no credentials.
var ErrNotConfigured = errors.New("mail provider not configured")

// Message is a single rendered email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendError is a provider rejection. StatusCode is zero when the request never
// reached the provider.
type SendError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *SendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Retryable reports whether a failed send may succeed later: network errors,
// 408, 429 and 5xx responses. Configuration and template errors are permanent.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrInvalidEmail) {
		return false
	}
	var se *SendError
	if errors.As(err, &se) {
		if se.StatusCode == 0 {
			return true
		}
		return retryableStatus(se.StatusCode)
	}
	return true
}

func retryableStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}

// NewSender returns the sender selected by cfg.MailProvider.
func NewSender(cfg *config.Config, logger *slog.Logger) (Sender, error) {
	if logger == nil {
		logger = slog.Default()
	}
	from := Address{Email: cfg.MailFrom, Name: cfg.MailFromName}

	switch cfg.MailProvider {
	case config.MailProviderSendGrid:
		if cfg.SendGridAPIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewSendGridSender(cfg.SendGridAPIKey, from), nil
	case config.MailProviderResend:
		if cfg.ResendAPIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewResendSender(cfg.ResendAPIKey, from), nil
	case config.MailProviderLog:
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, cfg.MailProvider)
	}
}

// Address is an email address with an optional display name.
type Address struct {
	Email string
	Name  string
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email (log provider)",
		"to", msg.To,
		"subject", msg.Subject,
		"html_bytes", len(msg.HTML))
	return nil
}
