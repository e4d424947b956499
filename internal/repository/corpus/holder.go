package corpus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/posedex/internal/domain/corpus"
)

// Holder owns the currently served corpus. A failed load is remembered and
// reported to every caller until a reload succeeds.
type Holder struct {
	path   string
	logger *zap.Logger

	mu    sync.RWMutex
	store *Store
	err   error
}

// NewHolder loads path once. A load failure does not fail construction.
func NewHolder(path string, logger *zap.Logger) *Holder {
	h := &Holder{path: path, logger: logger}
	h.store, h.err = Load(path, logger)
	if h.err != nil {
		logger.Error("Corpus unavailable", zap.String("path", path), zap.Error(h.err))
	}
	return h
}

// NewHolderFromStore serves an already loaded store.
func NewHolderFromStore(s *Store) *Holder {
	return &Holder{path: s.Path(), logger: zap.NewNop(), store: s}
}

// Current returns the served corpus or the last load error.
func (h *Holder) Current() (corpus.Reader, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.store == nil {
		return nil, h.err
	}
	return h.store, nil
}

// Reload re-reads the corpus file. On failure the previous store, if any, keeps serving.
func (h *Holder) Reload() error {
	s, err := Load(h.path, h.logger)
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		if h.store == nil {
			h.err = err
		}
		return err
	}
	h.store, h.err = s, nil
	return nil
}
