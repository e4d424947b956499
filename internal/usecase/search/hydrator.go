package search

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/domain/search/result"
	"github.com/kailas-cloud/posedex/internal/metrics"
)

// HydrationStats counts how many ranked results could not be loaded.
type HydrationStats struct {
	Requested int
	Missed    int
}

// Hydrator loads the image behind each ranked result.
type Hydrator struct {
	images ImageStore
	logger *zap.Logger
}

// NewHydrator creates a hydrator reading from images.
func NewHydrator(images ImageStore, logger *zap.Logger) *Hydrator {
	return &Hydrator{images: images, logger: logger}
}

// Hydrate attaches image bytes to ranked results, keeping their order.
// Unreadable images are dropped and counted. If every image is missing the
// call fails with ErrHydrationExhausted.
func (h *Hydrator) Hydrate(ctx context.Context, ranked []result.Ranked) ([]result.Hit, HydrationStats, error) {
	stats := HydrationStats{Requested: len(ranked)}
	hits := make([]result.Hit, 0, len(ranked))
	for _, r := range ranked {
		data, err := h.images.Get(ctx, r.ID())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil, stats, err
			}
			stats.Missed++
			metrics.SearchHydrationMissesTotal.Inc()
			h.logger.Warn("Result image unavailable",
				zap.String("id", r.ID()),
				zap.Error(err),
			)
			continue
		}
		hits = append(hits, result.NewHit(r, data))
	}
	if len(ranked) > 0 && len(hits) == 0 {
		return nil, stats, domain.ErrHydrationExhausted
	}
	return hits, stats, nil
}
