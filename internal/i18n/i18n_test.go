// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package i18n

import (
	"strings"
	"testing"
)

func TestInit(t *testing.T) {
	if err := Init(nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if TranslationCount("ar") == 0 {
		t.Error("Expected Arabic translations to be loaded")
	}
	if TranslationCount("en") == 0 {
		t.Error("Expected English translations to be loaded")
	}
}

func TestT(t *testing.T) {
	if err := Init(nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	tests := []struct {
		lang     string
		key      string
		args     []any
		expected string
	}{
		{"ar", "error.generic", nil, "حدث خطأ"},
		{"en", "error.generic", nil, "An error occurred"},
		{"ar", "auth.unauthorized", nil, "ليس لديك صلاحية للوصول إلى هذه الصفحة"},
		{"en", "validation.min_length", []any{3}, "Must be at least 3 characters"},
		{"ar", "validation.min_length", []any{10}, "يجب ألا يقل عن 10 أحرف"},
		// Fallback to Arabic for unknown language
		{"de", "content.approved", nil, "تمت الموافقة"},
		// Return key if not found
		{"en", "nonexistent.key", nil, "nonexistent.key"},
	}

	for _, tt := range tests {
		t.Run(tt.lang+"_"+tt.key, func(t *testing.T) {
			result := T(tt.lang, tt.key, tt.args...)
			if result != tt.expected {
				t.Errorf("T(%q, %q, %v) = %q, want %q", tt.lang, tt.key, tt.args, result, tt.expected)
			}
		})
	}
}

func TestMatchLanguage(t *testing.T) {
	if err := Init(nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"", "ar"},
		{"ar", "ar"},
		{"en", "en"},
		{"ar-SA", "ar"},
		{"en-US", "en"},
		{"de", "ar"},      // Falls back to default
		{"invalid", "ar"}, // Falls back to default
		{"en-US, ar;q=0.9, de;q=0.8", "en"},
		{"ar-SA, en;q=0.9", "ar"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := MatchLanguage(tt.input)
			if result != tt.expected {
				t.Errorf("MatchLanguage(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		lang     string
		expected bool
	}{
		{"ar", true},
		{"en", true},
		{"AR", true}, // Case insensitive
		{"ru", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			result := IsSupported(tt.lang)
			if result != tt.expected {
				t.Errorf("IsSupported(%q) = %v, want %v", tt.lang, result, tt.expected)
			}
		})
	}
}

func TestLocaleFiles(t *testing.T) {
	ids := make(map[string]map[string]bool, len(SupportedLanguages))

	for _, lang := range SupportedLanguages {
		file, err := readMessageFile(lang)
		if err != nil {
			t.Fatalf("readMessageFile(%s): %v", lang, err)
		}
		if file.Language != lang {
			t.Errorf("%s: language field is %q", lang, file.Language)
		}

		ids[lang] = make(map[string]bool, len(file.Messages))
		for _, msg := range file.Messages {
			if ids[lang][msg.ID] {
				t.Errorf("%s: duplicate id %q", lang, msg.ID)
			}
			if strings.TrimSpace(msg.Translation) == "" {
				t.Errorf("%s: empty translation for %q", lang, msg.ID)
			}
			ids[lang][msg.ID] = true
		}
	}

	ref := SupportedLanguages[0]
	for _, lang := range SupportedLanguages[1:] {
		for id := range ids[ref] {
			if !ids[lang][id] {
				t.Errorf("%q is in %s but missing in %s", id, ref, lang)
			}
		}
		for id := range ids[lang] {
			if !ids[ref][id] {
				t.Errorf("%q is in %s but missing in %s", id, lang, ref)
			}
		}
	}
}

func TestUninitialized(t *testing.T) {
	saved := current.Swap(nil)
	t.Cleanup(func() { current.Store(saved) })

	if got := T("ar", "error.generic"); got != "error.generic" {
		t.Errorf("T before Init = %q, want key", got)
	}
	if got := MatchLanguage("en"); got != DefaultLanguage {
		t.Errorf("MatchLanguage before Init = %q", got)
	}
	if TranslationCount("ar") != 0 {
		t.Error("TranslationCount before Init should be 0")
	}
}
