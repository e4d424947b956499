package domain

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/posedex/internal/domain/pixel"
	"github.com/kailas-cloud/posedex/internal/domain/pose"
)

// KeyPrefix namespaces every key this service writes to shared stores.
const KeyPrefix = "posedex:"

// PoseEmbedder is the pose estimation contract between layers.
type PoseEmbedder interface {
	// DetectPose returns detector keypoints; an empty map means no person was found.
	DetectPose(ctx context.Context, img pixel.Buffer, useDetector bool) (pose.Keypoints, error)
	// EmbedPose maps keypoints to a fixed-length pose vector.
	EmbedPose(ctx context.Context, kp pose.Keypoints, shape pose.Shape) ([]float32, error)
}

// TextEmbedder vectorizes texts into the semantic space, preserving order.
type TextEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string, normalize bool) ([][]float32, error)
}

// ImageEmbedder vectorizes an image into the semantic space.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, img pixel.Buffer, normalize bool) ([]float32, error)
}

// SemanticEmbedder covers both text and image inputs of the shared embedding space.
type SemanticEmbedder interface {
	TextEmbedder
	ImageEmbedder
}

// HealthChecker verifies remote provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbedText vectorizes a single text.
func EmbedText(ctx context.Context, e TextEmbedder, text string, normalize bool) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text}, normalize)
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed text: expected 1 vector, got %d", len(vecs))
	}
	return vecs[0], nil
}

// SemanticPair serves texts and images from different providers sharing one space.
type SemanticPair struct {
	Text  TextEmbedder
	Image ImageEmbedder
}

// EmbedTexts delegates to the text provider.
func (p SemanticPair) EmbedTexts(ctx context.Context, texts []string, normalize bool) ([][]float32, error) {
	return p.Text.EmbedTexts(ctx, texts, normalize)
}

// EmbedImage delegates to the image provider.
func (p SemanticPair) EmbedImage(ctx context.Context, img pixel.Buffer, normalize bool) ([]float32, error) {
	return p.Image.EmbedImage(ctx, img, normalize)
}

// PromptEmbedder is a domain decorator that prepends a prompt template to each text.
type PromptEmbedder struct {
	inner  TextEmbedder
	prompt string
}

// NewPromptEmbedder creates a decorator that prepends prompt.
func NewPromptEmbedder(inner TextEmbedder, prompt string) *PromptEmbedder {
	return &PromptEmbedder{inner: inner, prompt: prompt}
}

// EmbedTexts prepends the prompt and delegates to the inner embedder.
func (e *PromptEmbedder) EmbedTexts(ctx context.Context, texts []string, normalize bool) ([][]float32, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = e.prompt + t
	}
	vecs, err := e.inner.EmbedTexts(ctx, prefixed, normalize)
	if err != nil {
		return nil, fmt.Errorf("prompt embed: %w", err)
	}
	return vecs, nil
}
