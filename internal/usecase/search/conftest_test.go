package search

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/kailas-cloud/posedex/internal/domain/corpus"
	"github.com/kailas-cloud/posedex/internal/domain/pixel"
	"github.com/kailas-cloud/posedex/internal/domain/pose"
	"github.com/kailas-cloud/posedex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterSearchMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type fakeCorpus struct {
	entries []corpus.Entry
	poseDim int
	semDim  int
}

func newFakeCorpus(entries ...corpus.Entry) *fakeCorpus {
	c := &fakeCorpus{entries: entries}
	for _, e := range entries {
		if len(e.Pose) > 0 {
			c.poseDim = len(e.Pose)
		}
		if len(e.Semantic) > 0 {
			c.semDim = len(e.Semantic)
		}
	}
	return c
}

func (c *fakeCorpus) Len() int                   { return len(c.entries) }
func (c *fakeCorpus) At(i int) corpus.Entry      { return c.entries[i] }
func (c *fakeCorpus) Dims() (p, s int)           { return c.poseDim, c.semDim }
func (c *fakeCorpus) Metadata() *corpus.Metadata { return nil }
func (c *fakeCorpus) Stats() corpus.Stats        { return corpus.Stats{Entries: len(c.entries)} }

func (c *fakeCorpus) Get(id string) (corpus.Entry, bool) {
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return corpus.Entry{}, false
}

type mockProvider struct {
	c   corpus.Reader
	err error
}

func (m *mockProvider) Current() (corpus.Reader, error) { return m.c, m.err }

type mockPose struct {
	kp        pose.Keypoints
	detectErr error
	vec       []float32
	embedErr  error

	// block makes DetectPose wait for ctx to end.
	block bool

	detected    bool
	useDetector bool
	shape       pose.Shape
}

func (m *mockPose) DetectPose(ctx context.Context, _ pixel.Buffer, useDetector bool) (pose.Keypoints, error) {
	m.detected = true
	m.useDetector = useDetector
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.kp, m.detectErr
}

func (m *mockPose) EmbedPose(_ context.Context, _ pose.Keypoints, shape pose.Shape) ([]float32, error) {
	m.shape = shape
	return m.vec, m.embedErr
}

type mockText struct {
	vec       []float32
	err       error
	texts     []string
	normalize bool
	calls     int

	// block makes EmbedTexts wait for ctx to end.
	block bool
}

func (m *mockText) EmbedTexts(ctx context.Context, texts []string, normalize bool) ([][]float32, error) {
	m.calls++
	m.texts = texts
	m.normalize = normalize
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return [][]float32{m.vec}, nil
}

type mockImages struct {
	data map[string][]byte
	err  error
	gets []string
}

func (m *mockImages) Get(_ context.Context, id string) ([]byte, error) {
	m.gets = append(m.gets, id)
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.data[id]
	if !ok {
		return nil, errNotFound
	}
	return b, nil
}

var errNotFound = errors.New("image not found")
