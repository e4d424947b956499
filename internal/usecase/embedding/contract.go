package embedding

import (
	"context"

	"github.com/kailas-cloud/posedex/internal/domain/pixel"
)

// Embedder is the consumer interface for the semantic embedding provider chain.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string, normalize bool) ([][]float32, error)
	EmbedImage(ctx context.Context, img pixel.Buffer, normalize bool) ([]float32, error)
}
