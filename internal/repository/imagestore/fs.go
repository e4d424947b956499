package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var _ Store = (*FS)(nil)

// FS serves images from a directory tree. Identifiers are slash-separated
// paths relative to the root and cannot escape it.
type FS struct {
	root *os.Root
}

// OpenFS opens dir as an image root.
func OpenFS(dir string) (*FS, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open image root %s: %w", dir, err)
	}
	return &FS{root: root}, nil
}

// Get reads the image stored at id.
func (s *FS) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrNotFound)
	}
	data, err := s.root.ReadFile(filepath.FromSlash(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read image %s: %w", id, err)
	}
	return data, nil
}

// Close releases the root directory handle.
func (s *FS) Close() error {
	return s.root.Close()
}
