// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package i18n provides the localized notices returned by the API.
// Arabic is the default language; English is the fallback for API clients.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"

	"golang.org/x/text/language"
)

//go:embed locales
var localesFS embed.FS

// DefaultLanguage is used when nothing better matches.
const DefaultLanguage = "ar"

// SupportedLanguages lists the languages we ship notices for. The first entry
// wins ties in the matcher.
var SupportedLanguages = []string{"ar", "en"}

// Message is one entry of a locale file. Message holds the English source
// text; Translation is what T returns.
type Message struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	Translation string `json:"translation"`
}

// MessageFile is the layout of locales/<lang>/messages.json.
type MessageFile struct {
	Language string    `json:"language"`
	Messages []Message `json:"messages"`
}

// catalog is read-only once built.
type catalog struct {
	messages map[string]map[string]string // lang -> id -> text
	matcher  language.Matcher
	logger   *slog.Logger
}

var current atomic.Pointer[catalog]

// Init loads every supported locale from the embedded files. A nil logger
// disables i18n logging.
func Init(logger *slog.Logger) error {
	c := &catalog{
		messages: make(map[string]map[string]string, len(SupportedLanguages)),
		logger:   logger,
	}

	tags := make([]language.Tag, 0, len(SupportedLanguages))
	for _, lang := range SupportedLanguages {
		tags = append(tags, language.MustParse(lang))

		file, err := readMessageFile(lang)
		if err != nil {
			return err
		}
		m := make(map[string]string, len(file.Messages))
		for _, msg := range file.Messages {
			m[msg.ID] = msg.Translation
		}
		c.messages[lang] = m
		c.debug("loaded translations", "language", lang, "count", len(m))
	}
	c.matcher = language.NewMatcher(tags)

	current.Store(c)
	return nil
}

func readMessageFile(lang string) (MessageFile, error) {
	var file MessageFile
	path := "locales/" + lang + "/messages.json"
	data, err := localesFS.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("parsing %s: %w", path, err)
	}
	return file, nil
}

func (c *catalog) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

// T returns the notice for key in lang, falling back to Arabic and then to
// the key itself. Args are applied with fmt.Sprintf.
func T(lang, key string, args ...any) string {
	c := current.Load()
	if c == nil {
		return key
	}

	text, ok := c.messages[lang][key]
	if !ok && lang != DefaultLanguage {
		text, ok = c.messages[DefaultLanguage][key]
		if ok {
			c.debug("missing translation, using default", "key", key, "lang", lang)
		}
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

// MatchLanguage picks the best supported language for an Accept-Language
// header or a bare language code.
func MatchLanguage(accept string) string {
	c := current.Load()
	if c == nil || strings.TrimSpace(accept) == "" {
		return DefaultLanguage
	}

	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		tag, err := language.Parse(accept)
		if err != nil {
			return DefaultLanguage
		}
		tags = []language.Tag{tag}
	}

	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(SupportedLanguages) {
		return DefaultLanguage
	}
	return SupportedLanguages[idx]
}

// IsSupported reports whether lang is one of SupportedLanguages, ignoring case.
func IsSupported(lang string) bool {
	return slices.Contains(SupportedLanguages, strings.ToLower(lang))
}

// TranslationCount returns the number of notices loaded for lang.
func TranslationCount(lang string) int {
	c := current.Load()
	if c == nil {
		return 0
	}
	return len(c.messages[lang])
}
