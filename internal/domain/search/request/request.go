package request

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/domain/pixel"
)

// Search parameter limits.
const (
	// MaxTextLength is the maximum allowed description length.
	MaxTextLength = 4096
	DefaultK      = 10
	MinK          = 1
	MaxK          = 100
	// DefaultLambda weighs pose and semantic similarity equally.
	DefaultLambda = 0.5
)

// Params are the raw, unvalidated search parameters as received by a transport.
type Params struct {
	Sketch      pixel.Source
	Text        string
	K           *int
	Lambda      *float64
	UseDetector *bool
}

// Request is a validated hybrid search query.
type Request struct {
	sketch      pixel.Source
	text        string
	k           int
	lambda      float64
	useDetector bool
}

// New validates and normalizes search parameters.
// Defaults: k=10, lambda=0.5, detector on. k and lambda are clamped, never rejected.
func New(p Params) (Request, error) {
	if p.Sketch.IsEmpty() {
		return Request{}, fmt.Errorf("%w: sketch is required", domain.ErrInvalidInput)
	}
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return Request{}, fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}
	if len(text) > MaxTextLength {
		return Request{}, fmt.Errorf("%w: text too long (max %d chars)", domain.ErrInvalidInput, MaxTextLength)
	}

	k := DefaultK
	if p.K != nil {
		k = ClampK(*p.K)
	}
	lambda := DefaultLambda
	if p.Lambda != nil {
		lambda = ClampLambda(*p.Lambda)
	}
	useDetector := true
	if p.UseDetector != nil {
		useDetector = *p.UseDetector
	}

	return Request{
		sketch:      p.Sketch,
		text:        text,
		k:           k,
		lambda:      lambda,
		useDetector: useDetector,
	}, nil
}

// ClampK bounds k to [MinK, MaxK].
func ClampK(k int) int {
	return max(MinK, min(k, MaxK))
}

// ClampLambda bounds the fusion weight to [0, 1]. NaN falls back to DefaultLambda.
func ClampLambda(l float64) float64 {
	if math.IsNaN(l) {
		return DefaultLambda
	}
	return math.Max(0, math.Min(l, 1))
}

// Sketch returns the query image.
func (r *Request) Sketch() pixel.Source { return r.sketch }

// Text returns the trimmed description.
func (r *Request) Text() string { return r.text }

// K returns the number of results to return.
func (r *Request) K() int { return r.k }

// Lambda returns the pose weight of the fused score.
func (r *Request) Lambda() float64 { return r.lambda }

// UseDetector reports whether the bounding-box detector runs before pose estimation.
func (r *Request) UseDetector() bool { return r.useDetector }
