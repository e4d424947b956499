package chi

import (
	"encoding/json"

	"github.com/kailas-cloud/posedex/internal/domain/corpus"
)

// ErrorCode is a machine-readable failure class.
type ErrorCode string

// Error codes returned in the failure envelope.
const (
	ErrorCodeBadRequest          ErrorCode = "bad_request"
	ErrorCodeUnauthorized        ErrorCode = "unauthorized"
	ErrorCodeInvalidInput        ErrorCode = "invalid_input"
	ErrorCodeDecodeFailed        ErrorCode = "decode_failed"
	ErrorCodeNoSubjectDetected   ErrorCode = "no_subject_detected"
	ErrorCodeInferenceError      ErrorCode = "inference_error"
	ErrorCodeCorpusUnavailable   ErrorCode = "corpus_unavailable"
	ErrorCodeNoComparableEntries ErrorCode = "no_comparable_entries"
	ErrorCodeHydrationExhausted  ErrorCode = "hydration_exhausted"
	ErrorCodeVectorDimMismatch   ErrorCode = "vector_dim_mismatch"
	ErrorCodeNotFound            ErrorCode = "not_found"
	ErrorCodeInternalError       ErrorCode = "internal_error"
)

// NoPersonMessage is reported by the pose endpoint when nobody is detected.
const NoPersonMessage = "No person detected in image"

// ErrorResponse is the failure envelope shared by every endpoint.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   string    `json:"error"`
	Code    ErrorCode `json:"code"`
	Results []any     `json:"results"`
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Sketch          string   `json:"sketch"`
	Text            string   `json:"text"`
	K               *int     `json:"k,omitempty"`
	Lambda          *float64 `json:"lambda,omitempty"`
	UseBBoxDetector *bool    `json:"use_bbox_detector,omitempty"`
}

// SearchResult is one ranked image.
type SearchResult struct {
	Path  string  `json:"path"`
	Image string  `json:"image"`
	Score float64 `json:"score"`
}

// SearchResponse is the body returned by POST /search.
type SearchResponse struct {
	Success bool           `json:"success"`
	Results []SearchResult `json:"results"`
	Error   *string        `json:"error"`
	Skipped int            `json:"skipped"`
	Missed  int            `json:"missed"`
}

// PoseRequest is the body of POST /pose.
type PoseRequest struct {
	Image           string `json:"image"`
	UseBBoxDetector *bool  `json:"use_bbox_detector,omitempty"`
}

// PoseResponse is the body returned by POST /pose.
type PoseResponse struct {
	Success   bool                  `json:"success"`
	Embedding []float32             `json:"embedding"`
	Pose      map[string][2]float32 `json:"pose"`
	ImgShape  [2]int                `json:"img_shape"`
	Error     *string               `json:"error"`
}

// EmbedRequest is the body of POST /embed. Text is a string or an array of strings.
type EmbedRequest struct {
	Text      json.RawMessage `json:"text,omitempty"`
	Image     string          `json:"image,omitempty"`
	Normalize bool            `json:"normalize,omitempty"`
}

// EmbedResponse is the body returned by POST /embed.
// Embedding is a vector for a single input and a list of vectors for a text array.
type EmbedResponse struct {
	Success    bool    `json:"success"`
	Embedding  any     `json:"embedding"`
	Dimensions int     `json:"dimensions"`
	Error      *string `json:"error"`
}

// CorpusResponse is the body returned by GET /corpus.
type CorpusResponse struct {
	Success         bool             `json:"success"`
	Entries         int              `json:"entries"`
	Comparable      int              `json:"comparable"`
	MissingPose     int              `json:"missing_pose"`
	MissingSemantic int              `json:"missing_semantic"`
	Invalid         int              `json:"invalid"`
	PoseDims        int              `json:"pose_dims"`
	SemanticDims    int              `json:"semantic_dims"`
	Metadata        *corpus.Metadata `json:"metadata"`
}

// EntryResponse is the body returned by GET /corpus/entries/{id}.
type EntryResponse struct {
	Success      bool      `json:"success"`
	ID           string    `json:"id"`
	HasPose      bool      `json:"has_pose"`
	HasSemantic  bool      `json:"has_semantic"`
	PoseDims     int       `json:"pose_dims"`
	SemanticDims int       `json:"semantic_dims"`
	Pose         []float32 `json:"pose_embedding,omitempty"`
	Semantic     []float32 `json:"clip_embedding,omitempty"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Entries int               `json:"entries"`
}
