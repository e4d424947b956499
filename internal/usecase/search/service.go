package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/posedex/internal/codec"
	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/domain/pixel"
	"github.com/kailas-cloud/posedex/internal/domain/pose"
	"github.com/kailas-cloud/posedex/internal/domain/search/request"
	"github.com/kailas-cloud/posedex/internal/domain/search/result"
	"github.com/kailas-cloud/posedex/internal/logger"
	"github.com/kailas-cloud/posedex/internal/metrics"
)

// Stage names a step of the query pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageParsingInput  Stage = "parsing_input"
	StageDetectingPose Stage = "detecting_pose"
	StageEmbeddingPose Stage = "embedding_pose"
	StageEmbeddingText Stage = "embedding_text"
	StageRanking       Stage = "ranking"
	StageHydrating     Stage = "hydrating"
)

// StageError records the stage at which a search failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Config tunes the query pipeline.
type Config struct {
	// ConcurrentTextEmbedding embeds the text while the pose chain runs.
	ConcurrentTextEmbedding bool
}

// Response is a successful search outcome.
type Response struct {
	Results []result.Hit
	// Skipped counts corpus entries excluded for a missing vector.
	Skipped int
	// Missed counts ranked results dropped because their image was unreadable.
	Missed int
}

// Service runs hybrid pose and text searches against the corpus.
type Service struct {
	corpus   CorpusProvider
	pose     PoseEmbedder
	text     TextEmbedder
	ranker   *Ranker
	hydrator *Hydrator
	cfg      Config
	logger   *zap.Logger
}

// New creates a search service.
func New(
	corpus CorpusProvider,
	poses PoseEmbedder,
	text TextEmbedder,
	ranker *Ranker,
	hydrator *Hydrator,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		corpus:   corpus,
		pose:     poses,
		text:     text,
		ranker:   ranker,
		hydrator: hydrator,
		cfg:      cfg,
		logger:   logger,
	}
}

// Search validates p, embeds the sketch and the text, ranks the corpus and
// loads the top result images. Failures are returned as *StageError.
func (s *Service) Search(ctx context.Context, p request.Params) (Response, error) {
	var req request.Request
	var buf pixel.Buffer
	err := s.stage(ctx, StageParsingInput, func() error {
		var err error
		if req, err = request.New(p); err != nil {
			return err
		}
		buf, err = codec.Decode(req.Sketch())
		return err
	})
	if err != nil {
		return Response{}, err
	}
	ctx = logger.With(ctx, zap.Int("k", req.K()), zap.Float64("lambda", req.Lambda()))
	parent := ctx

	var textVec []float32
	embedText := func(ctx context.Context) error {
		return s.stageIn(ctx, parent, StageEmbeddingText, func() error {
			v, err := domain.EmbedText(ctx, s.text, req.Text(), false)
			if err != nil {
				return err
			}
			textVec = v
			return nil
		})
	}

	var poseVec []float32
	if s.cfg.ConcurrentTextEmbedding {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			poseVec, err = s.embedSketch(gctx, parent, &req, buf)
			return err
		})
		g.Go(func() error { return embedText(gctx) })
		if err := g.Wait(); err != nil {
			return Response{}, err
		}
	} else {
		if poseVec, err = s.embedSketch(ctx, parent, &req, buf); err != nil {
			return Response{}, err
		}
		if err := embedText(ctx); err != nil {
			return Response{}, err
		}
	}

	var ranking Ranking
	err = s.stage(ctx, StageRanking, func() error {
		c, err := s.corpus.Current()
		if err != nil {
			return err
		}
		ranking, err = s.ranker.Rank(ctx, Query{
			Pose:     poseVec,
			Semantic: textVec,
			Lambda:   req.Lambda(),
			K:        req.K(),
		}, c)
		return err
	})
	if err != nil {
		return Response{}, err
	}
	if ranking.Skipped > 0 {
		metrics.SearchSkippedEntriesTotal.Add(float64(ranking.Skipped))
	}

	var hits []result.Hit
	var hs HydrationStats
	err = s.stage(ctx, StageHydrating, func() error {
		var err error
		hits, hs, err = s.hydrator.Hydrate(ctx, ranking.Results)
		return err
	})
	if err != nil {
		return Response{}, err
	}

	metrics.SearchResultsReturned.Observe(float64(len(hits)))
	logger.FromContext(ctx).Debug("Search completed",
		zap.Int("results", len(hits)),
		zap.Int("considered", ranking.Considered),
		zap.Int("skipped", ranking.Skipped),
		zap.Int("missed", hs.Missed),
	)
	return Response{Results: hits, Skipped: ranking.Skipped, Missed: hs.Missed}, nil
}

// embedSketch runs pose detection then pose embedding on the decoded sketch.
// Finding nobody in the sketch is a hard failure.
func (s *Service) embedSketch(
	ctx, parent context.Context,
	req *request.Request,
	buf pixel.Buffer,
) ([]float32, error) {
	var kp pose.Keypoints
	err := s.stageIn(ctx, parent, StageDetectingPose, func() error {
		var err error
		if kp, err = s.pose.DetectPose(ctx, buf, req.UseDetector()); err != nil {
			return err
		}
		if kp.Empty() {
			return domain.ErrNoSubjectDetected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var vec []float32
	err = s.stageIn(ctx, parent, StageEmbeddingPose, func() error {
		var err error
		vec, err = s.pose.EmbedPose(ctx, kp, pose.Shape{Height: buf.Height, Width: buf.Width})
		return err
	})
	return vec, err
}

// stage times fn and wraps its failure with the stage name.
func (s *Service) stage(ctx context.Context, st Stage, fn func() error) error {
	return s.stageIn(ctx, ctx, st, fn)
}

// stageIn is stage for work running under ctx, a child of the request context
// parent. A failure caused only by the cancellation of ctx means a sibling stage
// already failed and recorded itself, so it is returned without being counted.
func (s *Service) stageIn(ctx, parent context.Context, st Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.SearchStageDuration.WithLabelValues(string(st)).Observe(time.Since(start).Seconds())
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && parent.Err() == nil {
		return &StageError{Stage: st, Err: err}
	}
	reason := FailureReason(err)
	metrics.SearchFailuresTotal.WithLabelValues(string(st), reason).Inc()
	s.logger.Info("Search failed",
		zap.String("stage", string(st)),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return &StageError{Stage: st, Err: err}
}

// FailureReason classifies err into a short label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrDecode):
		return "decode"
	case errors.Is(err, domain.ErrNoSubjectDetected):
		return "no_subject"
	case errors.Is(err, domain.ErrVectorDimMismatch):
		return "dim_mismatch"
	case errors.Is(err, domain.ErrTransport):
		return "transport"
	case errors.Is(err, domain.ErrNoComparableEntries):
		return "no_comparable_entries"
	case errors.Is(err, domain.ErrCorpusEmpty):
		return "corpus_empty"
	case errors.Is(err, domain.ErrCorpus):
		return "corpus_unavailable"
	case errors.Is(err, domain.ErrHydrationExhausted):
		return "hydration_exhausted"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}
