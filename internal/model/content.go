// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// ContentKind distinguishes the two content entities that share one lifecycle.
type ContentKind string

// Content kinds.
const (
	KindArticle ContentKind = "article"
	KindNews    ContentKind = "news"
)

// ContentKinds lists every content kind.
var ContentKinds = []ContentKind{KindArticle, KindNews}

// Valid reports whether k is a known kind.
func (k ContentKind) Valid() bool {
	return k == KindArticle || k == KindNews
}

// Table returns the SQL table that stores this kind.
// Only known kinds map to a table; callers must check Valid first.
func (k ContentKind) Table() string {
	switch k {
	case KindArticle:
		return "articles"
	case KindNews:
		return "news"
	default:
		return ""
	}
}

// HasProduct reports whether this kind may reference a product.
func (k ContentKind) HasProduct() bool {
	return k == KindArticle
}

func (k ContentKind) String() string {
	return string(k)
}

// ParseContentKind maps a route segment ("articles", "news") or a kind name to a kind.
func ParseContentKind(segment string) (ContentKind, bool) {
	switch segment {
	case "articles", "article":
		return KindArticle, true
	case "news":
		return KindNews, true
	default:
		return "", false
	}
}

// WriterContentFilter selects which content a public writer page shows.
type WriterContentFilter string

// Writer page filters.
const (
	WriterContentAll      WriterContentFilter = "all"
	WriterContentArticles WriterContentFilter = "articles"
	WriterContentNews     WriterContentFilter = "news"
)

// ParseWriterContentFilter parses ?type= on the writer page; unknown values select all.
func ParseWriterContentFilter(s string) WriterContentFilter {
	switch WriterContentFilter(s) {
	case WriterContentArticles:
		return WriterContentArticles
	case WriterContentNews:
		return WriterContentNews
	default:
		return WriterContentAll
	}
}

// Includes reports whether the filter includes the given kind.
func (f WriterContentFilter) Includes(k ContentKind) bool {
	switch f {
	case WriterContentArticles:
		return k == KindArticle
	case WriterContentNews:
		return k == KindNews
	default:
		return true
	}
}
