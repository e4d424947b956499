// Package imagestore resolves corpus identifiers to the original image bytes.
package imagestore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no image is stored under an identifier.
var ErrNotFound = errors.New("image not found")

// Store reads corpus images by identifier.
type Store interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Close() error
}

// Extensions lists the image file extensions imported into a store.
var Extensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"}
