package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Store persists uploaded objects and returns the URL clients use to fetch them.
// Remove is a no-op for URLs the store did not produce.
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Remove(ctx context.Context, url string) error
}

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrImageTooLarge    = errors.New("image exceeds size limit")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

var allowedImageTypes = []string{
	"image/png",
	"image/jpeg",
	"image/webp",
	"image/gif",
}

// Image is a sniffed, size-checked upload ready to be stored.
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// ReadImage reads at most maxBytes from r and verifies the content is an
// allowed image format. The declared content type of the upload is ignored.
func ReadImage(r io.Reader, maxBytes int64) (*Image, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max image size must be positive")
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrImageTooLarge
	}

	detected := mimetype.Detect(data)
	for _, allowed := range allowedImageTypes {
		if detected.Is(allowed) {
			return &Image{
				Data:        data,
				ContentType: allowed,
				Extension:   detected.Extension(),
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, detected.String())
}

// ObjectKey builds a unique object key under prefix, e.g. materials/2026/10/<uuid>.png.
func ObjectKey(prefix, ext string, now time.Time) string {
	prefix = strings.Trim(prefix, "/")
	name := uuid.NewString() + ext
	return path.Join(prefix, now.UTC().Format("2006/01"), name)
}

// KeyFromURL recovers the object key from a URL produced by a Store whose
// public base is baseURL. It returns false for URLs the store does not own.
func KeyFromURL(baseURL, url string) (string, bool) {
	baseURL = strings.TrimRight(baseURL, "/") + "/"
	if baseURL == "/" || !strings.HasPrefix(url, baseURL) {
		return "", false
	}
	key := strings.TrimPrefix(url, baseURL)
	if key == "" {
		return "", false
	}
	return key, true
}
