package search

import (
	"context"

	"github.com/kailas-cloud/posedex/internal/domain/corpus"
	"github.com/kailas-cloud/posedex/internal/domain/pixel"
	"github.com/kailas-cloud/posedex/internal/domain/pose"
)

// CorpusProvider serves the currently loaded corpus.
type CorpusProvider interface {
	Current() (corpus.Reader, error)
}

// Corpus is the read-only view the ranker scores against.
type Corpus interface {
	Len() int
	At(i int) corpus.Entry
	Dims() (poseDim, semanticDim int)
}

// PoseEmbedder detects keypoints and embeds them.
type PoseEmbedder interface {
	DetectPose(ctx context.Context, img pixel.Buffer, useDetector bool) (pose.Keypoints, error)
	EmbedPose(ctx context.Context, kp pose.Keypoints, shape pose.Shape) ([]float32, error)
}

// TextEmbedder vectorizes query texts into the semantic space.
type TextEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string, normalize bool) ([][]float32, error)
}

// ImageStore reads result images by corpus identifier.
type ImageStore interface {
	Get(ctx context.Context, id string) ([]byte, error)
}
