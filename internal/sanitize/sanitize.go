// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sanitize cleans user supplied HTML and renders Markdown.
//
// Font faces are always removed from article and news bodies; colors and
// sizes are kept.
package sanitize

import (
	"bytes"
	"regexp"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// allowedStyles are the inline CSS properties kept on content elements.
// font-family is never allowed.
var allowedStyles = []string{
	"color",
	"background-color",
	"font-size",
	"font-weight",
	"font-style",
	"text-align",
	"text-decoration",
	"direction",
}

var fontSize = regexp.MustCompile(`^[1-7]$`)

var (
	contentOnce   sync.Once
	contentPolicy *bluemonday.Policy

	md = goldmark.New(goldmark.WithExtensions(extension.GFM))
)

func policy() *bluemonday.Policy {
	contentOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowStyles(allowedStyles...).Globally()
		p.AllowAttrs("dir").Matching(regexp.MustCompile(`^(rtl|ltr|auto)$`)).Globally()
		p.AllowAttrs("color").Matching(bluemonday.Paragraph).OnElements("font")
		p.AllowAttrs("size").Matching(fontSize).OnElements("font")
		p.AllowElements("font")
		p.RequireNoFollowOnLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		contentPolicy = p
	})
	return contentPolicy
}

// ContentHTML returns s with scripts, event handlers, unsafe URLs and font
// faces removed.
func ContentHTML(s string) string {
	return policy().Sanitize(s)
}

// Markdown renders s as GitHub flavoured Markdown and sanitizes the result.
func Markdown(s string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(s), &buf); err != nil {
		return "", err
	}
	return ContentHTML(buf.String()), nil
}
