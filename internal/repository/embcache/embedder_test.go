package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/posedex/internal/db"
)

func TestEmbedTexts_AllMisses(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{0.1, 0.2}}
	ce, ms := newTestCachedEmbedder(t, inner)

	var setCount int
	var gotTTL time.Duration
	ms.setFn = func(_ context.Context, _ string, _ []byte, ttl time.Duration) error {
		setCount++
		gotTTL = ttl
		return nil
	}

	vecs, err := ce.EmbedTexts(context.Background(), []string{"a", "b"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if setCount != 2 {
		t.Errorf("expected 2 cache puts, got %d", setCount)
	}
	if gotTTL != time.Hour {
		t.Errorf("ttl = %v, want 1h", gotTTL)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 batch call to inner, got %d", inner.calls)
	}
}

func TestEmbedTexts_AllHits(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{0.1}}
	ce, ms := newTestCachedEmbedder(t, inner)

	cached := vectorToCacheBytes([]float32{0.9, 0.8})
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return cached, nil
	}

	vecs, err := ce.EmbedTexts(context.Background(), []string{"a", "b"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 || vecs[1][0] != 0.9 {
		t.Fatalf("unexpected vectors: %v", vecs)
	}
	if inner.calls != 0 {
		t.Errorf("expected 0 calls (all cache hits), got %d", inner.calls)
	}
}

func TestEmbedTexts_MixedHitsMisses(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{0.5}}
	ce, ms := newTestCachedEmbedder(t, inner)

	cachedVec := vectorToCacheBytes([]float32{0.9})
	callNum := 0
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		callNum++
		if callNum == 2 { // second text is cached
			return cachedVec, nil
		}
		return nil, db.ErrKeyNotFound
	}

	vecs, err := ce.EmbedTexts(context.Background(), []string{"miss1", "hit1", "miss2"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vecs[1][0] != 0.9 {
		t.Errorf("expected cached vec for index 1, got %v", vecs[1])
	}
	if vecs[0][0] != 0.5 || vecs[2][0] != 0.5 {
		t.Errorf("expected inner vec for misses, got %v, %v", vecs[0], vecs[2])
	}
	if len(inner.got) != 1 || len(inner.got[0]) != 2 || inner.got[0][1] != "miss2" {
		t.Errorf("inner should see only misses, got %v", inner.got)
	}
}

func TestEmbedTexts_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("provider down")}
	ce, _ := newTestCachedEmbedder(t, inner)

	_, err := ce.EmbedTexts(context.Background(), []string{"a"}, false)
	if err == nil {
		t.Fatal("expected error from inner embedder")
	}
}

func TestEmbedTexts_StoreErrorFallsThrough(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{0.3}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, errors.New("connection refused")
	}
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		return errors.New("connection refused")
	}

	vecs, err := ce.EmbedTexts(context.Background(), []string{"a"}, false)
	if err != nil {
		t.Fatalf("cache failures must not fail the call: %v", err)
	}
	if vecs[0][0] != 0.3 {
		t.Errorf("unexpected vector: %v", vecs[0])
	}
}

func TestEmbedTexts_Empty(t *testing.T) {
	inner := &mockEmbedder{}
	ce, _ := newTestCachedEmbedder(t, inner)

	vecs, err := ce.EmbedTexts(context.Background(), nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vecs != nil || inner.calls != 0 {
		t.Errorf("expected nil and no inner calls")
	}
}

func TestCacheKey_SeparatesNormalizeAndNamespace(t *testing.T) {
	a := New(nil, nil, "clip", 0, nil, zap.NewNop())
	b := New(nil, nil, "openai/text-embedding-3-small", 0, nil, zap.NewNop())

	if a.cacheKey("x", true) == a.cacheKey("x", false) {
		t.Error("normalize flag must change the key")
	}
	if a.cacheKey("x", false) == b.cacheKey("x", false) {
		t.Error("namespace must change the key")
	}
	if a.cacheKey("x", false) != a.cacheKey("x", false) {
		t.Error("key must be deterministic")
	}
}

func TestEmbedTexts_CountsHitsAndMisses(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	inner := &mockEmbedder{vec: []float32{1}}
	ms := &mockKVStore{}
	ce := New(inner, ms, "clip", 0, counter, zap.NewNop())

	if _, err := ce.EmbedTexts(context.Background(), []string{"a", "b"}, false); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 2 {
		t.Errorf("miss count = %v, want 2", got)
	}
}

func TestBytesToVector_Invalid(t *testing.T) {
	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated data")
	}
}
