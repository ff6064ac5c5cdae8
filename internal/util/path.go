// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathEscapes is returned when a path resolves outside its base directory.
var ErrPathEscapes = errors.New("path escapes base directory")

// SanitizeFilename keeps only the last element of an uploaded file name, so
// "../../etc/passwd" becomes "passwd".
func SanitizeFilename(filename string) (string, error) {
	base := filepath.Base(filename)
	switch base {
	case ".", "..", string(filepath.Separator):
		return "", fmt.Errorf("invalid filename: %q", filename)
	}
	return base, nil
}

// ValidatePathWithinBase returns ErrPathEscapes unless target is base or
// lies below it.
func ValidatePathWithinBase(base, target string) error {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("invalid base path: %w", err)
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("invalid target path: %w", err)
	}

	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ErrPathEscapes
	}
	return nil
}

// SafeJoinPath joins components onto base and rejects results outside it.
func SafeJoinPath(base string, components ...string) (string, error) {
	full := filepath.Join(append([]string{base}, components...)...)
	if err := ValidatePathWithinBase(base, full); err != nil {
		return "", err
	}
	return full, nil
}

// ContainsPathTraversal reports whether path still climbs upward after
// cleaning.
func ContainsPathTraversal(path string) bool {
	cleaned := filepath.ToSlash(filepath.Clean(path))
	return cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/../")
}
