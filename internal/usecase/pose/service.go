// Package pose extracts keypoints and a pose embedding from a single image.
package pose

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/posedex/internal/codec"
	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/domain/pixel"
	"github.com/kailas-cloud/posedex/internal/domain/pose"
)

// Request is a pose extraction query.
type Request struct {
	Image       pixel.Source
	UseDetector bool
}

// Extraction is the outcome of a pose extraction.
// Detected is false when nobody was found; Keypoints and Embedding are then empty.
type Extraction struct {
	Detected  bool
	Keypoints pose.Keypoints
	Embedding []float32
	Shape     pose.Shape
}

// Service runs standalone pose extraction.
type Service struct {
	embedder Embedder
}

// New creates a pose extraction service.
func New(embedder Embedder) *Service {
	return &Service{embedder: embedder}
}

// Extract decodes the image, detects keypoints and embeds them.
// Finding nobody is not an error here: the result has Detected=false.
func (s *Service) Extract(ctx context.Context, req Request) (Extraction, error) {
	if req.Image.IsEmpty() {
		return Extraction{}, fmt.Errorf("%w: image is required", domain.ErrInvalidInput)
	}
	buf, err := codec.Decode(req.Image)
	if err != nil {
		return Extraction{}, fmt.Errorf("decode image: %w", err)
	}
	shape := pose.Shape{Height: buf.Height, Width: buf.Width}

	kp, err := s.embedder.DetectPose(ctx, buf, req.UseDetector)
	if err != nil {
		return Extraction{}, fmt.Errorf("detect pose: %w", err)
	}
	if kp.Empty() {
		return Extraction{Detected: false, Keypoints: pose.Keypoints{}, Shape: shape}, nil
	}

	vec, err := s.embedder.EmbedPose(ctx, kp, shape)
	if err != nil {
		return Extraction{}, fmt.Errorf("embed pose: %w", err)
	}
	return Extraction{Detected: true, Keypoints: kp, Embedding: vec, Shape: shape}, nil
}
