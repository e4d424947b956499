package search

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/domain/search/request"
	"github.com/kailas-cloud/posedex/internal/domain/search/result"
)

// DefaultParallelThreshold is the corpus size from which scoring is spread over the pool.
const DefaultParallelThreshold = 20000

const minChunk = 1024

// Query is a fused similarity query.
type Query struct {
	Pose     []float32
	Semantic []float32
	Lambda   float64
	K        int
}

// Ranking is the outcome of scoring a corpus.
type Ranking struct {
	Results    []result.Ranked
	Considered int
	Skipped    int
}

// Ranker scores corpus entries against a query with fused cosine similarity.
type Ranker struct {
	pool      *ants.Pool
	workers   int
	threshold int
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithParallel scores corpora of at least threshold entries on a pool of workers goroutines.
func WithParallel(workers, threshold int) RankerOption {
	return func(r *Ranker) {
		r.workers = workers
		r.threshold = threshold
	}
}

// NewRanker creates a ranker. Without WithParallel it scores sequentially.
func NewRanker(opts ...RankerOption) (*Ranker, error) {
	r := &Ranker{}
	for _, o := range opts {
		o(r)
	}
	if r.workers > 1 {
		if r.threshold <= 0 {
			r.threshold = DefaultParallelThreshold
		}
		pool, err := ants.NewPool(r.workers)
		if err != nil {
			return nil, fmt.Errorf("create scoring pool: %w", err)
		}
		r.pool = pool
	}
	return r, nil
}

// Release frees the scoring pool.
func (r *Ranker) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}

// Fuse combines pose and semantic similarity with weight lambda on the pose side.
func Fuse(poseSim, semanticSim, lambda float64) float64 {
	return lambda*poseSim + (1-lambda)*semanticSim
}

// Rank scores every comparable entry of c and returns the top K by descending
// fused score. Ties keep corpus order. Entries missing either vector are skipped.
func (r *Ranker) Rank(ctx context.Context, q Query, c Corpus) (Ranking, error) {
	n := c.Len()
	if n == 0 {
		return Ranking{}, domain.ErrCorpusEmpty
	}
	lambda := request.ClampLambda(q.Lambda)
	k := request.ClampK(q.K)

	poseDim, semDim := c.Dims()
	if err := domain.CheckDim(domain.KindPose, q.Pose, poseDim); err != nil {
		return Ranking{}, err
	}
	if err := domain.CheckDim(domain.KindSemantic, q.Semantic, semDim); err != nil {
		return Ranking{}, err
	}

	scores := make([]float64, n)
	ok := make([]bool, n)
	score := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			e := c.At(i)
			if !e.Comparable() {
				continue
			}
			scores[i] = Fuse(domain.Cosine(q.Pose, e.Pose), domain.Cosine(q.Semantic, e.Semantic), lambda)
			ok[i] = true
		}
	}

	if r.pool != nil && n >= r.threshold {
		if err := r.scoreParallel(n, score); err != nil {
			return Ranking{}, err
		}
	} else {
		score(0, n)
	}
	if err := ctx.Err(); err != nil {
		return Ranking{}, err
	}

	ranked := make([]result.Ranked, 0, n)
	for i := range n {
		if ok[i] {
			ranked = append(ranked, result.NewRanked(c.At(i).ID, scores[i]))
		}
	}
	if len(ranked) == 0 {
		return Ranking{Skipped: n}, domain.ErrNoComparableEntries
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score() > ranked[b].Score()
	})

	out := Ranking{Considered: len(ranked), Skipped: n - len(ranked)}
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	out.Results = ranked
	return out, nil
}

func (r *Ranker) scoreParallel(n int, score func(lo, hi int)) error {
	chunk := max(minChunk, (n+r.workers-1)/r.workers)
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		if err := r.pool.Submit(func() {
			defer wg.Done()
			score(lo, hi)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return fmt.Errorf("submit scoring chunk: %w", err)
		}
	}
	wg.Wait()
	return nil
}
