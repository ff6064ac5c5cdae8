// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHTML_StripsFontFamily(t *testing.T) {
	in := `<p style="font-family: Arial; color: red">نص</p>`
	out := ContentHTML(in)

	assert.NotContains(t, out, "font-family")
	assert.NotContains(t, out, "Arial")
	assert.Contains(t, out, "color")
	assert.Contains(t, out, "نص")
}

func TestContentHTML_FontElement(t *testing.T) {
	out := ContentHTML(`<font face="Times New Roman" color="blue" size="4">مرحبا</font>`)

	assert.NotContains(t, out, "face")
	assert.NotContains(t, out, "Times")
	assert.Contains(t, out, `color="blue"`)
	assert.Contains(t, out, `size="4"`)
}

func TestContentHTML_RemovesScripts(t *testing.T) {
	tests := []struct {
		name string
		in   string
		bad  string
	}{
		{"script tag", `<p>ok</p><script>alert(1)</script>`, "<script"},
		{"event handler", `<img src="/uploads/1/a.jpg" onerror="alert(1)">`, "onerror"},
		{"javascript url", `<a href="javascript:alert(1)">x</a>`, "javascript:"},
		{"iframe", `<iframe src="https://evil.example"></iframe>`, "<iframe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotContains(t, strings.ToLower(ContentHTML(tt.in)), tt.bad)
		})
	}
}

func TestContentHTML_KeepsDirection(t *testing.T) {
	out := ContentHTML(`<p dir="rtl" style="text-align: right">فقرة</p>`)
	assert.Contains(t, out, `dir="rtl"`)
	assert.Contains(t, out, "text-align")
}

func TestMarkdown(t *testing.T) {
	out, err := Markdown("# منتج\n\nوصف **مهم**\n\n<script>alert(1)</script>")
	require.NoError(t, err)

	assert.Contains(t, out, "<h1>منتج</h1>")
	assert.Contains(t, out, "<strong>مهم</strong>")
	assert.NotContains(t, out, "<script")
}
