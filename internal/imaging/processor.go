// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging decodes, normalizes and stores uploaded images.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/almonhna/almonhna/internal/util"
)

// Supported image MIME types.
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
)

// Limits applied to every stored image.
const (
	MaxDimension = 2400
	JPEGQuality  = 90
)

// ErrUnsupportedFormat is returned for anything that is not jpeg, png, gif or webp.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ProcessResult describes a stored image.
type ProcessResult struct {
	Width    int
	Height   int
	MimeType string
	Size     int64
	// RelPath is the path below the upload directory, slash separated.
	RelPath string
	// FilePath is the absolute path on disk.
	FilePath string
}

// Processor stores uploaded images below one directory, one subdirectory
// per account.
type Processor struct {
	uploadDir string
}

func NewProcessor(uploadDir string) *Processor {
	return &Processor{uploadDir: uploadDir}
}

// UploadDir returns the root directory images are written to.
func (p *Processor) UploadDir() string {
	return p.uploadDir
}

// Process decodes data, applies the EXIF orientation, scales it down to
// MaxDimension and stores the re-encoded image under {accountID}/{uuid}-{slug}.{ext}.
// Re-encoding strips all metadata from the original upload.
func (p *Processor) Process(data []byte, accountID int64, filename string) (*ProcessResult, error) {
	out, ok := outputFor(data)
	if !ok {
		return nil, ErrUnsupportedFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = applyOrientation(img, readExifOrientation(data))
	if b := img.Bounds(); b.Dx() > MaxDimension || b.Dy() > MaxDimension {
		img = imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := out.encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	name := storedName(filename, out.ext)
	subDir := strconv.FormatInt(accountID, 10)
	filePath, err := p.saveImageFile(subDir, name, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}

	final := img.Bounds()
	return &ProcessResult{
		Width:    final.Dx(),
		Height:   final.Dy(),
		MimeType: out.mime,
		Size:     int64(buf.Len()),
		RelPath:  subDir + "/" + name,
		FilePath: filePath,
	}, nil
}

// Remove deletes a stored image given its path relative to the upload directory.
func (p *Processor) Remove(relPath string) error {
	full, err := util.SafeJoinPath(p.uploadDir, filepath.FromSlash(relPath))
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting image: %w", err)
	}
	return nil
}

// IsImage reports whether mimeType is an upload format Process accepts.
func IsImage(mimeType string) bool {
	_, ok := outputs[mimeType]
	return ok
}

// DetectMimeType sniffs data and drops any parameters from the result.
func DetectMimeType(data []byte) string {
	mime, _, _ := strings.Cut(http.DetectContentType(data), ";")
	return strings.TrimSpace(mime)
}

// storedName builds "{uuid}-{slug}.{ext}" from the client supplied filename.
func storedName(filename, ext string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	slug := util.Slugify(base)
	if len(slug) > 60 {
		slug = strings.Trim(slug[:60], "-")
	}
	if slug == "" {
		slug = "image"
	}
	return uuid.NewString() + "-" + slug + "." + ext
}

// readExifOrientation returns the EXIF orientation tag, or 1 when the
// image has none.
func readExifOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	if o, err := tag.Int(0); err == nil {
		return o
	}
	return 1
}

// orientations maps EXIF orientation values 2..8 to the transform that
// makes the image upright.
var orientations = map[int]func(image.Image) *image.NRGBA{
	2: imaging.FlipH,
	3: imaging.Rotate180,
	4: imaging.FlipV,
	5: imaging.Transpose,
	6: imaging.Rotate270,
	7: imaging.Transverse,
	8: imaging.Rotate90,
}

func applyOrientation(img image.Image, orientation int) image.Image {
	if fix, ok := orientations[orientation]; ok {
		return fix(img)
	}
	return img
}

// outputFormat describes how a decoded image is written back.
type outputFormat struct {
	mime   string
	ext    string
	encode func(w io.Writer, img image.Image) error
}

var (
	jpegOutput = outputFormat{MimeTypeJPEG, "jpg", func(w io.Writer, img image.Image) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	}}
	pngOutput = outputFormat{MimeTypePNG, "png", func(w io.Writer, img image.Image) error {
		return png.Encode(w, img)
	}}
	gifOutput = outputFormat{MimeTypeGIF, "gif", func(w io.Writer, img image.Image) error {
		return gif.Encode(w, img, nil)
	}}
)

// outputs is keyed by detected MIME type. WebP has no pure Go encoder, so it
// is stored as JPEG.
var outputs = map[string]outputFormat{
	MimeTypeJPEG: jpegOutput,
	MimeTypePNG:  pngOutput,
	MimeTypeGIF:  gifOutput,
	MimeTypeWebP: jpegOutput,
}

// outputFor returns the output format for data. TIFF and everything else
// imaging cannot safely decode is rejected (CVE-2023-36308).
func outputFor(data []byte) (outputFormat, bool) {
	out, ok := outputs[DetectMimeType(data)]
	return out, ok
}

// saveImageFile creates subDir below the upload directory and writes data to it.
func (p *Processor) saveImageFile(subDir, filename string, data []byte) (string, error) {
	safeFilename, err := util.SanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	if util.ContainsPathTraversal(subDir) || filepath.IsAbs(subDir) {
		return "", fmt.Errorf("invalid subdirectory %q", subDir)
	}

	dir, err := util.SafeJoinPath(p.uploadDir, subDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	filePath, err := filepath.Abs(filepath.Join(dir, safeFilename))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", filePath, err)
	}
	return filePath, nil
}
