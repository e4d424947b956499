package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/posedex/internal/codec"
	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/domain/pixel"
	"github.com/kailas-cloud/posedex/internal/domain/search/request"
)

// MaxTexts bounds the number of texts accepted in one call.
const MaxTexts = 256

// Service exposes standalone semantic embedding of texts or images.
type Service struct {
	embedder Embedder
}

// New creates an embedding service.
func New(embedder Embedder) *Service {
	return &Service{embedder: embedder}
}

// EmbedText embeds every text, preserving order. Blank texts are rejected.
func (s *Service) EmbedText(ctx context.Context, texts []string, normalize bool) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}
	if len(texts) > MaxTexts {
		return nil, fmt.Errorf("%w: too many texts (max %d)", domain.ErrInvalidInput, MaxTexts)
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: text[%d] is empty", domain.ErrInvalidInput, i)
		}
		if len(t) > request.MaxTextLength {
			return nil, fmt.Errorf("%w: text[%d] too long (max %d chars)", domain.ErrInvalidInput, i, request.MaxTextLength)
		}
	}

	vecs, err := s.embedder.EmbedTexts(ctx, texts, normalize)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	return vecs, nil
}

// EmbedImage decodes src and embeds it.
func (s *Service) EmbedImage(ctx context.Context, src pixel.Source, normalize bool) ([]float32, error) {
	if src.IsEmpty() {
		return nil, fmt.Errorf("%w: image is required", domain.ErrInvalidInput)
	}
	buf, err := codec.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	vec, err := s.embedder.EmbedImage(ctx, buf, normalize)
	if err != nil {
		return nil, fmt.Errorf("embed image: %w", err)
	}
	return vec, nil
}
