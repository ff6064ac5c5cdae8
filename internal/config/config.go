// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Mail providers accepted by ALMONHNA_MAIL_PROVIDER.
const (
	MailProviderSendGrid = "sendgrid"
	MailProviderResend   = "resend"
	MailProviderLog      = "log"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"ALMONHNA_DB_PATH" envDefault:"./data/almonhna.db"`
	SessionSecret string `env:"ALMONHNA_SESSION_SECRET,required"`
	ServerHost    string `env:"ALMONHNA_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"ALMONHNA_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"ALMONHNA_ENV" envDefault:"development"`
	LogLevel      string `env:"ALMONHNA_LOG_LEVEL" envDefault:"info"`
	SiteURL       string `env:"ALMONHNA_SITE_URL" envDefault:"http://localhost:8080"`

	// Uploads
	UploadsDir     string `env:"ALMONHNA_UPLOADS_DIR" envDefault:"./uploads"`
	UploadMaxBytes int64  `env:"ALMONHNA_UPLOAD_MAX_BYTES" envDefault:"5242880"` // 5 MiB

	// Cache configuration
	RedisURL     string `env:"ALMONHNA_REDIS_URL"`                              // Optional Redis URL for distributed caching
	CachePrefix  string `env:"ALMONHNA_CACHE_PREFIX" envDefault:"almonhna:"`    // Redis key prefix
	CacheTTL     int    `env:"ALMONHNA_CACHE_TTL" envDefault:"300"`             // Default cache TTL in seconds
	CacheMaxSize int    `env:"ALMONHNA_CACHE_MAX_SIZE" envDefault:"10000"`      // Max memory cache entries

	// Mail
	MailProvider   string `env:"ALMONHNA_MAIL_PROVIDER" envDefault:"log"`
	SendGridAPIKey string `env:"ALMONHNA_SENDGRID_API_KEY"`
	ResendAPIKey   string `env:"ALMONHNA_RESEND_API_KEY"`
	MailFrom       string `env:"ALMONHNA_MAIL_FROM" envDefault:"noreply@almonhna.com"`
	MailFromName   string `env:"ALMONHNA_MAIL_FROM_NAME" envDefault:"المنحنى"`

	// Signed links (password set/reset)
	TokenSecret string        `env:"ALMONHNA_TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"ALMONHNA_TOKEN_TTL" envDefault:"48h"`

	// Setup / seeding
	AdminEmail    string `env:"ALMONHNA_ADMIN_EMAIL" envDefault:"admin@almonhna.sa"`
	AdminName     string `env:"ALMONHNA_ADMIN_NAME" envDefault:"admin"`
	AdminPassword string `env:"ALMONHNA_ADMIN_PASSWORD"` // random when empty
	DoSeed        bool   `env:"ALMONHNA_DO_SEED" envDefault:"false"`

	EventRetentionDays int `env:"ALMONHNA_EVENT_RETENTION_DAYS" envDefault:"90"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// MailConfigured reports whether the selected provider has the credentials it needs.
func (c Config) MailConfigured() bool {
	switch c.MailProvider {
	case MailProviderSendGrid:
		return c.SendGridAPIKey != ""
	case MailProviderResend:
		return c.ResendAPIKey != ""
	case MailProviderLog:
		return true
	default:
		return false
	}
}

// TokenKey returns the HMAC key for signed links, falling back to the session secret.
func (c Config) TokenKey() []byte {
	if c.TokenSecret != "" {
		return []byte(c.TokenSecret)
	}
	return []byte(c.SessionSecret)
}

// MinSessionSecretLength is the minimum required length for the session secret.
// AES-256 requires 32 bytes minimum for secure encryption.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate session secret length
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("ALMONHNA_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("ALMONHNA_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("ALMONHNA_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	cfg.MailProvider = strings.ToLower(strings.TrimSpace(cfg.MailProvider))
	switch cfg.MailProvider {
	case MailProviderSendGrid, MailProviderResend, MailProviderLog:
	default:
		return nil, fmt.Errorf("ALMONHNA_MAIL_PROVIDER must be one of sendgrid, resend, log; got %q", cfg.MailProvider)
	}

	if cfg.UploadMaxBytes <= 0 {
		return nil, fmt.Errorf("ALMONHNA_UPLOAD_MAX_BYTES must be positive, got %d", cfg.UploadMaxBytes)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("ALMONHNA_TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}

	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
