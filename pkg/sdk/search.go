package posedex

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
)

// Search ranks the corpus against a sketch and a text description.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	if len(req.Sketch) == 0 {
		return SearchResult{}, fmt.Errorf("posedex: search: %w: sketch is required", ErrInvalidInput)
	}
	if req.Text == "" {
		return SearchResult{}, fmt.Errorf("posedex: search: %w: text is required", ErrInvalidInput)
	}

	var reply searchReply
	err := c.do(ctx, "search", http.MethodPost, "/search", searchBody{
		Sketch:          base64.StdEncoding.EncodeToString(req.Sketch),
		Text:            req.Text,
		K:               req.K,
		Lambda:          req.Lambda,
		UseBBoxDetector: req.UseBBoxDetector,
	}, &reply)
	if err != nil {
		return SearchResult{}, err
	}

	hits := make([]Hit, 0, len(reply.Results))
	for _, r := range reply.Results {
		img, err := base64.StdEncoding.DecodeString(r.Image)
		if err != nil {
			return SearchResult{}, fmt.Errorf("posedex: search: result %q: %w", r.Path, err)
		}
		hits = append(hits, Hit{Path: r.Path, Image: img, Score: r.Score})
	}
	return SearchResult{Results: hits, Skipped: reply.Skipped, Missed: reply.Missed}, nil
}

// ExtractPose detects the pose in image and returns its embedding.
// An image without a person yields Pose{Detected: false} and no error.
func (c *Client) ExtractPose(ctx context.Context, image []byte, useBBoxDetector *bool) (Pose, error) {
	if len(image) == 0 {
		return Pose{}, fmt.Errorf("posedex: pose: %w: image is required", ErrInvalidInput)
	}

	var reply poseReply
	err := c.do(ctx, "pose", http.MethodPost, "/pose", poseBody{
		Image:           base64.StdEncoding.EncodeToString(image),
		UseBBoxDetector: useBBoxDetector,
	}, &reply)
	if err != nil {
		return Pose{}, err
	}

	p := Pose{
		Detected:  reply.Success,
		Embedding: reply.Embedding,
		Keypoints: reply.Pose,
		Shape:     reply.ImgShape,
	}
	if reply.Error != nil {
		p.Message = *reply.Error
	}
	if !p.Detected && p.Message == "" {
		return Pose{}, errors.New("posedex: pose: unsuccessful response without error message")
	}
	return p, nil
}
