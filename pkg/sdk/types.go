package posedex

import (
	"encoding/json"

	"github.com/kailas-cloud/posedex/internal/domain/corpus"
)

// SearchRequest is a hybrid query. Sketch holds raw image bytes (PNG, JPEG, ...).
// Nil optional fields take the server defaults.
type SearchRequest struct {
	Sketch          []byte
	Text            string
	K               *int
	Lambda          *float64
	UseBBoxDetector *bool
}

// Hit is one ranked corpus image.
type Hit struct {
	Path  string
	Image []byte
	Score float64
}

// SearchResult is a successful search.
type SearchResult struct {
	Results []Hit
	// Skipped counts corpus entries without both vectors.
	Skipped int
	// Missed counts ranked results whose image could not be read.
	Missed int
}

// Pose is the outcome of a pose extraction. Detected is false when the image
// holds nobody; the server reports that as a soft failure.
type Pose struct {
	Detected  bool
	Embedding []float32
	Keypoints map[string][2]float32
	// Shape is the source image [height, width].
	Shape   [2]int
	Message string
}

// CorpusStats summarizes the served corpus.
type CorpusStats struct {
	Entries         int              `json:"entries"`
	Comparable      int              `json:"comparable"`
	MissingPose     int              `json:"missing_pose"`
	MissingSemantic int              `json:"missing_semantic"`
	Invalid         int              `json:"invalid"`
	PoseDims        int              `json:"pose_dims"`
	SemanticDims    int              `json:"semantic_dims"`
	Metadata        *corpus.Metadata `json:"metadata"`
}

// Entry describes one corpus item.
type Entry struct {
	ID           string    `json:"id"`
	HasPose      bool      `json:"has_pose"`
	HasSemantic  bool      `json:"has_semantic"`
	PoseDims     int       `json:"pose_dims"`
	SemanticDims int       `json:"semantic_dims"`
	Pose         []float32 `json:"pose_embedding,omitempty"`
	Semantic     []float32 `json:"clip_embedding,omitempty"`
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status  string            `json:"status"` // "ok", "degraded", "error"
	Checks  map[string]string `json:"checks"`
	Entries int               `json:"entries"`
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// wire types

type searchBody struct {
	Sketch          string   `json:"sketch"`
	Text            string   `json:"text"`
	K               *int     `json:"k,omitempty"`
	Lambda          *float64 `json:"lambda,omitempty"`
	UseBBoxDetector *bool    `json:"use_bbox_detector,omitempty"`
}

type searchReply struct {
	Results []struct {
		Path  string  `json:"path"`
		Image string  `json:"image"`
		Score float64 `json:"score"`
	} `json:"results"`
	Skipped int `json:"skipped"`
	Missed  int `json:"missed"`
}

type poseBody struct {
	Image           string `json:"image"`
	UseBBoxDetector *bool  `json:"use_bbox_detector,omitempty"`
}

type poseReply struct {
	Success   bool                  `json:"success"`
	Embedding []float32             `json:"embedding"`
	Pose      map[string][2]float32 `json:"pose"`
	ImgShape  [2]int                `json:"img_shape"`
	Error     *string               `json:"error"`
}

type embedBody struct {
	Text      any    `json:"text,omitempty"`
	Image     string `json:"image,omitempty"`
	Normalize bool   `json:"normalize,omitempty"`
}

type embedReply struct {
	Embedding  json.RawMessage `json:"embedding"`
	Dimensions int             `json:"dimensions"`
}

type errorReply struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}
