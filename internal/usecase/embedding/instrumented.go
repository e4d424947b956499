package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/domain/pixel"
)

// DefaultMaxAPIBatchSize is the largest number of texts sent in one provider call.
const DefaultMaxAPIBatchSize = 64

// InstrumentedEmbedder wraps a SemanticEmbedder with batching and logging.
// Transport metrics (requests, duration, errors) are recorded in the transport clients.
type InstrumentedEmbedder struct {
	inner     domain.SemanticEmbedder
	provider  string
	batchSize int
	logger    *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with chunking and observability.
func NewInstrumentedEmbedder(inner domain.SemanticEmbedder, provider string, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:     inner,
		provider:  provider,
		batchSize: DefaultMaxAPIBatchSize,
		logger:    logger,
	}
}

// EmbedTexts splits texts into provider-sized chunks and concatenates the results.
func (p *InstrumentedEmbedder) EmbedTexts(ctx context.Context, texts []string, normalize bool) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()
	out := make([][]float32, 0, len(texts))
	for offset := 0; offset < len(texts); offset += p.batchSize {
		end := min(offset+p.batchSize, len(texts))
		chunk := texts[offset:end]

		vecs, err := p.inner.EmbedTexts(ctx, chunk, normalize)
		if err != nil {
			p.logger.Error("Text embedding request failed",
				zap.String("provider", p.provider),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			return nil, fmt.Errorf("embed texts: %w", err)
		}
		if len(vecs) != len(chunk) {
			return nil, fmt.Errorf("embed texts: expected %d vectors, got %d", len(chunk), len(vecs))
		}
		out = append(out, vecs...)
	}

	p.logger.Debug("Text embedding completed",
		zap.String("provider", p.provider),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Bool("normalize", normalize),
	)
	return out, nil
}

// EmbedImage delegates to the inner embedder with logging.
func (p *InstrumentedEmbedder) EmbedImage(ctx context.Context, img pixel.Buffer, normalize bool) ([]float32, error) {
	start := time.Now()
	vec, err := p.inner.EmbedImage(ctx, img, normalize)
	duration := time.Since(start)
	if err != nil {
		p.logger.Error("Image embedding request failed",
			zap.String("provider", p.provider),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, fmt.Errorf("embed image: %w", err)
	}

	p.logger.Debug("Image embedding completed",
		zap.String("provider", p.provider),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(vec)),
	)
	return vec, nil
}
