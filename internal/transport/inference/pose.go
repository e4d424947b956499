package inference

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/domain/pixel"
	"github.com/kailas-cloud/posedex/internal/domain/pose"
)

// ServicePose is the service label used in errors and metrics.
const ServicePose = "pose"

var _ domain.PoseEmbedder = (*PoseClient)(nil)

// PoseClient calls the remote pose estimation and pose embedding service.
type PoseClient struct {
	c    *client
	dims int
}

// NewPoseClient creates a pose service client. cfg.Dimensions is the pose
// embedding size; it sizes the zero vector and validates remote responses.
func NewPoseClient(cfg *Config) *PoseClient {
	return &PoseClient{c: newClient(ServicePose, cfg), dims: cfg.Dimensions}
}

type detectRequest struct {
	Image           wireImage `json:"image"`
	UseBBoxDetector bool      `json:"use_bbox_detector"`
}

type detectResponse struct {
	Keypoints map[string][]float32 `json:"keypoints"`
}

type embedPoseRequest struct {
	Keypoints [][2]float32 `json:"keypoints"`
	Scores    []float32    `json:"scores"`
	ImgShape  [2]int       `json:"img_shape"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// DetectPose returns the detector keypoints for img. An empty map is a valid
// answer meaning nobody was found.
func (p *PoseClient) DetectPose(ctx context.Context, img pixel.Buffer, useDetector bool) (pose.Keypoints, error) {
	var resp detectResponse
	req := detectRequest{Image: toWireImage(img), UseBBoxDetector: useDetector}
	if err := p.c.postJSON(ctx, "detect", "/detect", req, &resp); err != nil {
		return nil, err
	}

	kp := make(pose.Keypoints, len(resp.Keypoints))
	for name, xy := range resp.Keypoints {
		if len(xy) != 2 {
			return nil, p.c.fail("detect", "decode", 0,
				fmt.Errorf("joint %q: expected [x, y], got %d values", name, len(xy)))
		}
		kp[name] = pose.Point{X: xy[0], Y: xy[1]}
	}
	return kp, nil
}

// EmbedPose embeds keypoints detected in an image of the given shape.
// Empty keypoints yield a zero vector without a remote call.
func (p *PoseClient) EmbedPose(ctx context.Context, kp pose.Keypoints, shape pose.Shape) ([]float32, error) {
	if kp.Empty() {
		return domain.ZeroVector(p.dims), nil
	}
	if !shape.Valid() {
		shape = pose.DefaultShape
	}

	skel := pose.ToCOCO17(kp)
	req := embedPoseRequest{
		Keypoints: make([][2]float32, pose.NumJoints),
		Scores:    skel.Scores[:],
		ImgShape:  [2]int{shape.Height, shape.Width},
	}
	for i, pt := range skel.Points {
		req.Keypoints[i] = [2]float32{pt.X, pt.Y}
	}

	var resp embeddingResponse
	if err := p.c.postJSON(ctx, "embed", "/embed", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, p.c.fail("embed", "empty_response", 0, fmt.Errorf("empty embedding"))
	}
	if err := domain.CheckDim(domain.KindPose, resp.Embedding, p.dims); err != nil {
		return nil, p.c.fail("embed", "dim_mismatch", 0, err)
	}
	return resp.Embedding, nil
}

// HealthCheck verifies the pose service is ready.
func (p *PoseClient) HealthCheck(ctx context.Context) error {
	return p.c.get(ctx, "health", "/health")
}
