package health

import (
	"context"

	"github.com/kailas-cloud/posedex/internal/domain/corpus"
)

// CorpusProvider reports whether a corpus is loaded.
type CorpusProvider interface {
	Current() (corpus.Reader, error)
}

// Checker checks remote dependency availability.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// PingerFunc adapts a Ping-style function to Checker.
type PingerFunc func(ctx context.Context) error

// HealthCheck calls f.
func (f PingerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }
