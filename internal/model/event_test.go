// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"
)

func TestEventLevelConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant string
		expected string
	}{
		{"info level", EventLevelInfo, "info"},
		{"warning level", EventLevelWarning, "warning"},
		{"error level", EventLevelError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.constant != tt.expected {
				t.Errorf("constant = %q, want %q", tt.constant, tt.expected)
			}
		})
	}
}

func TestParseStatusFilter(t *testing.T) {
	tests := []struct {
		raw     string
		want    Status
		wantAll bool
		wantErr bool
	}{
		{"", "", true, false},
		{"all", "", true, false},
		{"ALL", "", true, false},
		{"pending", StatusPending, false, false},
		{" approved ", StatusApproved, false, false},
		{"rejected", StatusRejected, false, false},
		{"draft", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			f, err := ParseStatusFilter(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStatusFilter(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if f.All() != tt.wantAll {
				t.Errorf("All() = %v, want %v", f.All(), tt.wantAll)
			}
			if f.Status != tt.want {
				t.Errorf("Status = %q, want %q", f.Status, tt.want)
			}
		})
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusApproved, StatusRejected} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Status("published").Valid() {
		t.Error("unknown status should be invalid")
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole("Admin"); !ok || r != RoleAdmin {
		t.Errorf("ParseRole(Admin) = %q, %v", r, ok)
	}
	if r, ok := ParseRole("writer"); !ok || r != RoleWriter {
		t.Errorf("ParseRole(writer) = %q, %v", r, ok)
	}
	if _, ok := ParseRole("editor"); ok {
		t.Error("editor should not be a valid role")
	}
	if RoleAdmin.DashboardPath() != "/admin" || RoleWriter.DashboardPath() != "/writer" {
		t.Error("unexpected dashboard paths")
	}
}

func TestParseContentKind(t *testing.T) {
	tests := []struct {
		segment string
		want    ContentKind
		ok      bool
	}{
		{"articles", KindArticle, true},
		{"article", KindArticle, true},
		{"news", KindNews, true},
		{"pages", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseContentKind(tt.segment)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseContentKind(%q) = %q, %v; want %q, %v", tt.segment, got, ok, tt.want, tt.ok)
		}
	}

	if KindArticle.Table() != "articles" || KindNews.Table() != "news" {
		t.Error("unexpected table names")
	}
	if ContentKind("x").Table() != "" {
		t.Error("unknown kind must not map to a table")
	}
	if !KindArticle.HasProduct() || KindNews.HasProduct() {
		t.Error("only articles reference products")
	}
}

func TestWriterContentFilter(t *testing.T) {
	if ParseWriterContentFilter("bogus") != WriterContentAll {
		t.Error("unknown filter should fall back to all")
	}
	f := ParseWriterContentFilter("news")
	if f.Includes(KindArticle) || !f.Includes(KindNews) {
		t.Error("news filter should only include news")
	}
	if !WriterContentAll.Includes(KindArticle) || !WriterContentAll.Includes(KindNews) {
		t.Error("all filter should include both kinds")
	}
}
