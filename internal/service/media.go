// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/almonhna/almonhna/internal/imaging"
	"github.com/almonhna/almonhna/internal/model"
)

// Upload limits
const (
	DefaultMaxUploadSize = 5 << 20 // 5 MiB
	UploadsURLPrefix     = "/uploads/"
)

// UploadResult describes a stored image.
type UploadResult struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Size     int64  `json:"size"`
}

// MediaService stores uploaded images below a per-account directory.
type MediaService struct {
	processor *imaging.Processor
	maxSize   int64
	events    *EventService
	logger    *slog.Logger
}

// NewMediaService creates a MediaService writing to uploadDir.
func NewMediaService(uploadDir string, maxSize int64, events *EventService, logger *slog.Logger) *MediaService {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaService{
		processor: imaging.NewProcessor(uploadDir),
		maxSize:   maxSize,
		events:    events,
		logger:    logger,
	}
}

// MaxSize returns the upload size limit in bytes.
func (s *MediaService) MaxSize() int64 {
	return s.maxSize
}

// Upload validates and stores an image. The type is detected from the bytes;
// the client supplied name only contributes to the stored file name.
func (s *MediaService) Upload(ctx context.Context, actor Actor, r io.Reader, filename string) (UploadResult, error) {
	if actor.AccountID == 0 || !(actor.Has(model.RoleWriter) || actor.IsAdmin()) {
		return UploadResult{}, ErrForbidden
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return UploadResult{}, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return UploadResult{}, &ValidationError{Fields: map[string]string{"file": "upload.too_large"}}
	}
	if len(data) == 0 || !imaging.IsImage(imaging.DetectMimeType(data)) {
		return UploadResult{}, &ValidationError{Fields: map[string]string{"file": "upload.not_image"}}
	}

	res, err := s.processor.Process(data, actor.AccountID, filename)
	if errors.Is(err, imaging.ErrUnsupportedFormat) {
		return UploadResult{}, &ValidationError{Fields: map[string]string{"file": "upload.not_image"}}
	}
	if err != nil {
		return UploadResult{}, err
	}

	out := UploadResult{
		URL:      UploadsURLPrefix + res.RelPath,
		MimeType: res.MimeType,
		Width:    res.Width,
		Height:   res.Height,
		Size:     res.Size,
	}
	s.logger.Info("image uploaded", "account_id", actor.AccountID, "url", out.URL, "size", out.Size)
	s.events.Audit(ctx, actor, model.EventCategoryContent, "Image uploaded", map[string]any{"url": out.URL})
	return out, nil
}

// Delete removes an uploaded image by its public URL. Writers may only
// remove files below their own directory.
func (s *MediaService) Delete(ctx context.Context, actor Actor, url string) error {
	rel, ok := strings.CutPrefix(url, UploadsURLPrefix)
	if !ok || rel == "" {
		return ErrNotFound
	}
	owner := strconv.FormatInt(actor.AccountID, 10) + "/"
	if !actor.IsAdmin() && !strings.HasPrefix(rel, owner) {
		return ErrForbidden
	}

	if err := s.processor.Remove(rel); err != nil {
		return err
	}
	s.events.Audit(ctx, actor, model.EventCategoryContent, "Image deleted", map[string]any{"url": url})
	return nil
}
