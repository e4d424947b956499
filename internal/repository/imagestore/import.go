package imagestore

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Import copies every image under dir into the badger store. Identifiers are
// slash-separated paths relative to dir, matching corpus keys.
func (s *Badger) Import(ctx context.Context, dir string, logger *zap.Logger) (int, error) {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !isImage(path) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Skipping unreadable image", zap.String("path", path), zap.Error(err))
			return nil
		}
		if err := wb.Set([]byte(keyPrefix+filepath.ToSlash(rel)), data); err != nil {
			return fmt.Errorf("stage %s: %w", rel, err)
		}
		n++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", dir, err)
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("import %s: flush: %w", dir, err)
	}
	return n, nil
}

func isImage(path string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(path)))
}
