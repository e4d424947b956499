package pose

import (
	"context"

	"github.com/kailas-cloud/posedex/internal/domain/pixel"
	"github.com/kailas-cloud/posedex/internal/domain/pose"
)

// Embedder detects keypoints and maps them to a pose vector.
type Embedder interface {
	DetectPose(ctx context.Context, img pixel.Buffer, useDetector bool) (pose.Keypoints, error)
	EmbedPose(ctx context.Context, kp pose.Keypoints, shape pose.Shape) ([]float32, error)
}
