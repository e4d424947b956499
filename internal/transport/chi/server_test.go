package chi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/posedex/internal/codec"
	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/domain/pixel"
	"github.com/kailas-cloud/posedex/internal/domain/pose"
	corpusrepo "github.com/kailas-cloud/posedex/internal/repository/corpus"
	embeddinguc "github.com/kailas-cloud/posedex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/posedex/internal/usecase/health"
	poseuc "github.com/kailas-cloud/posedex/internal/usecase/pose"
	searchuc "github.com/kailas-cloud/posedex/internal/usecase/search"
)

const testCorpus = `{
	"embeddings": {
		"boards/a.jpg": {"pose_embedding": [1, 0], "clip_embedding": [1, 0]},
		"boards/b.jpg": {"pose_embedding": [0, 1], "clip_embedding": [0, 1]},
		"loose/c.jpg":  {"pose_embedding": [1, 1]}
	},
	"metadata": {"total_images": 4, "successful": 3, "failed": 1, "no_person_detected": 1}
}`

// --- Mocks ---

type mockPose struct {
	kp  pose.Keypoints
	err error
}

func (m *mockPose) DetectPose(_ context.Context, _ pixel.Buffer, _ bool) (pose.Keypoints, error) {
	return m.kp, m.err
}

func (m *mockPose) EmbedPose(_ context.Context, _ pose.Keypoints, _ pose.Shape) ([]float32, error) {
	return []float32{1, 0}, nil
}

type mockSemantic struct{}

func (mockSemantic) EmbedTexts(_ context.Context, texts []string, _ bool) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (mockSemantic) EmbedImage(_ context.Context, _ pixel.Buffer, _ bool) ([]float32, error) {
	return []float32{0, 1, 0}, nil
}

type mockImages struct{}

func (mockImages) Get(_ context.Context, id string) ([]byte, error) {
	return []byte("img:" + id), nil
}

type env struct {
	pose   *mockPose
	holder *corpusrepo.Holder
	path   string
	router http.Handler
}

func newEnv(t *testing.T, corpusBody string) *env {
	t.Helper()
	path := filepath.Join(t.TempDir(), "embeddings.json")
	if corpusBody != "" {
		if err := os.WriteFile(path, []byte(corpusBody), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	e := &env{
		pose: &mockPose{kp: pose.Keypoints{"nose": {X: 3, Y: 4}}},
		path: path,
	}
	e.holder = corpusrepo.NewHolder(path, zap.NewNop())

	ranker, err := searchuc.NewRanker()
	if err != nil {
		t.Fatal(err)
	}
	searchSvc := searchuc.New(e.holder, e.pose, mockSemantic{}, ranker,
		searchuc.NewHydrator(mockImages{}, zap.NewNop()), searchuc.Config{}, zap.NewNop())

	srv := NewServer(
		searchSvc,
		poseuc.New(e.pose),
		embeddinguc.New(mockSemantic{}),
		e.holder,
		healthuc.New(e.holder),
		zap.NewNop(),
	)
	r := chirouter.NewRouter()
	srv.Register(r)
	e.router = r
	return e
}

func (e *env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	return v
}

func sketch(t *testing.T) string {
	t.Helper()
	s, err := codec.EncodeBase64(pixel.New(4, 4))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSearch_OK(t *testing.T) {
	e := newEnv(t, testCorpus)
	rr := e.do(t, "POST", "/search", SearchRequest{Sketch: sketch(t), Text: "reaching up"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	resp := decode[SearchResponse](t, rr)
	if !resp.Success || resp.Error != nil {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if len(resp.Results) != 2 || resp.Results[0].Path != "boards/a.jpg" || resp.Results[0].Score != 1 {
		t.Fatalf("results = %+v", resp.Results)
	}
	img, err := base64.StdEncoding.DecodeString(resp.Results[0].Image)
	if err != nil || string(img) != "img:boards/a.jpg" {
		t.Errorf("image = %q, %v", img, err)
	}
	if resp.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", resp.Skipped)
	}
	if !strings.Contains(rr.Body.String(), `"error":null`) {
		t.Errorf("expected explicit null error: %s", rr.Body)
	}
}

func TestSearch_BadCorpusEntrySkipped(t *testing.T) {
	e := newEnv(t, `{"embeddings": {
		"good1.jpg": {"pose_embedding": [1, 0], "clip_embedding": [1, 0]},
		"good2.jpg": {"pose_embedding": [0, 1], "clip_embedding": [0, 1]},
		"bad.jpg":   {"pose_embedding": [1, 0, 0], "clip_embedding": [1, 0]}
	}}`)

	rr := e.do(t, "POST", "/search", SearchRequest{Sketch: sketch(t), Text: "reaching up"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	resp := decode[SearchResponse](t, rr)
	if len(resp.Results) != 2 || resp.Skipped != 1 {
		t.Fatalf("results = %+v, skipped = %d", resp.Results, resp.Skipped)
	}
	for _, r := range resp.Results {
		if r.Path == "bad.jpg" {
			t.Errorf("bad.jpg should not be ranked")
		}
	}

	stats := decode[CorpusResponse](t, e.do(t, "GET", "/corpus", nil))
	if stats.Invalid != 1 || stats.Comparable != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSearch_Failures(t *testing.T) {
	tests := []struct {
		name     string
		corpus   string
		setup    func(e *env)
		body     any
		status   int
		code     ErrorCode
		contains string
	}{
		{
			name: "empty sketch", corpus: testCorpus,
			body:   SearchRequest{Text: "x"},
			status: http.StatusBadRequest, code: ErrorCodeInvalidInput, contains: "sketch is required",
		},
		{
			name: "empty text", corpus: testCorpus,
			body:   map[string]any{"sketch": "aGVsbG8=", "text": "  "},
			status: http.StatusBadRequest, code: ErrorCodeInvalidInput, contains: "text is required",
		},
		{
			name: "undecodable sketch", corpus: testCorpus,
			body:   SearchRequest{Sketch: "aGVsbG8=", Text: "x"},
			status: http.StatusBadRequest, code: ErrorCodeDecodeFailed,
		},
		{
			name: "malformed json", corpus: testCorpus,
			body:   `{"sketch": `,
			status: http.StatusBadRequest, code: ErrorCodeBadRequest, contains: "Invalid request body",
		},
		{
			name: "no subject", corpus: testCorpus,
			setup:  func(e *env) { e.pose.kp = pose.Keypoints{} },
			status: http.StatusUnprocessableEntity, code: ErrorCodeNoSubjectDetected, contains: "no person",
		},
		{
			name: "pose service down", corpus: testCorpus,
			setup: func(e *env) {
				e.pose.err = domain.NewTransportError("pose", "detect", 503, errors.New("secret upstream body"))
			},
			status: http.StatusBadGateway, code: ErrorCodeInferenceError, contains: "pose detect",
		},
		{
			name:   "missing corpus",
			status: http.StatusServiceUnavailable, code: ErrorCodeCorpusUnavailable, contains: "embeddings.json",
		},
		{
			name:   "no comparable entries",
			corpus: `{"embeddings": {"a": {"pose_embedding": [1, 0]}}}`,
			status: http.StatusUnprocessableEntity, code: ErrorCodeNoComparableEntries,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t, tc.corpus)
			if tc.setup != nil {
				tc.setup(e)
			}
			body := tc.body
			if body == nil {
				body = SearchRequest{Sketch: sketch(t), Text: "x"}
			}
			rr := e.do(t, "POST", "/search", body)

			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tc.status, rr.Body)
			}
			resp := decode[ErrorResponse](t, rr)
			if resp.Success || resp.Code != tc.code || resp.Results == nil || len(resp.Results) != 0 {
				t.Errorf("unexpected envelope: %+v", resp)
			}
			if !strings.Contains(resp.Error, tc.contains) {
				t.Errorf("error %q does not contain %q", resp.Error, tc.contains)
			}
			if strings.Contains(resp.Error, "secret upstream body") {
				t.Errorf("upstream body leaked: %q", resp.Error)
			}
		})
	}
}

func TestExtractPose(t *testing.T) {
	e := newEnv(t, testCorpus)
	rr := e.do(t, "POST", "/pose", PoseRequest{Image: sketch(t)})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	resp := decode[PoseResponse](t, rr)
	if !resp.Success || resp.Error != nil || len(resp.Embedding) != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Pose["nose"] != [2]float32{3, 4} || resp.ImgShape != [2]int{4, 4} {
		t.Errorf("pose = %v shape = %v", resp.Pose, resp.ImgShape)
	}
}

func TestExtractPose_NoPersonIsSoft(t *testing.T) {
	e := newEnv(t, testCorpus)
	e.pose.kp = pose.Keypoints{}

	rr := e.do(t, "POST", "/pose", PoseRequest{Image: sketch(t)})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	body := rr.Body.String()
	for _, want := range []string{`"success":false`, `"embedding":null`, `"pose":{}`, NoPersonMessage} {
		if !strings.Contains(body, want) {
			t.Errorf("body %s does not contain %s", body, want)
		}
	}
}

func TestExtractPose_MissingImage(t *testing.T) {
	rr := newEnv(t, testCorpus).do(t, "POST", "/pose", PoseRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestEmbed(t *testing.T) {
	e := newEnv(t, testCorpus)

	rr := e.do(t, "POST", "/embed", map[string]any{"text": "hello"})
	if rr.Code != http.StatusOK {
		t.Fatalf("single text status = %d: %s", rr.Code, rr.Body)
	}
	single := decode[struct {
		Embedding  []float32 `json:"embedding"`
		Dimensions int       `json:"dimensions"`
	}](t, rr)
	if len(single.Embedding) != 2 || single.Dimensions != 2 {
		t.Errorf("single = %+v", single)
	}

	rr = e.do(t, "POST", "/embed", map[string]any{"text": []string{"a", "b", "c"}})
	batch := decode[struct {
		Embedding [][]float32 `json:"embedding"`
	}](t, rr)
	if rr.Code != http.StatusOK || len(batch.Embedding) != 3 {
		t.Errorf("batch status = %d, vectors = %d", rr.Code, len(batch.Embedding))
	}

	rr = e.do(t, "POST", "/embed", map[string]any{"image": sketch(t), "normalize": true})
	img := decode[struct {
		Embedding []float32 `json:"embedding"`
	}](t, rr)
	if rr.Code != http.StatusOK || len(img.Embedding) != 3 {
		t.Errorf("image status = %d, embedding = %v", rr.Code, img.Embedding)
	}
}

func TestEmbed_InvalidInput(t *testing.T) {
	e := newEnv(t, testCorpus)
	for _, body := range []any{
		map[string]any{},
		map[string]any{"text": "a", "image": "aGVsbG8="},
		map[string]any{"text": ""},
		map[string]any{"text": []string{"ok", " "}},
		map[string]any{"text": 42},
	} {
		rr := e.do(t, "POST", "/embed", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %v: status = %d, want 400", body, rr.Code)
		}
	}
}

func TestCorpusStats(t *testing.T) {
	rr := newEnv(t, testCorpus).do(t, "GET", "/corpus", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	resp := decode[CorpusResponse](t, rr)
	if resp.Entries != 3 || resp.Comparable != 2 || resp.MissingSemantic != 1 || resp.PoseDims != 2 {
		t.Errorf("stats = %+v", resp)
	}
	if resp.Metadata == nil || resp.Metadata.NoPersonDetected != 1 {
		t.Errorf("metadata = %+v", resp.Metadata)
	}
}

func TestGetEntry(t *testing.T) {
	e := newEnv(t, testCorpus)

	rr := e.do(t, "GET", "/corpus/entries/loose/c.jpg", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	resp := decode[EntryResponse](t, rr)
	if resp.ID != "loose/c.jpg" || !resp.HasPose || resp.HasSemantic || resp.Pose != nil {
		t.Errorf("entry = %+v", resp)
	}

	rr = e.do(t, "GET", "/corpus/entries/boards%2Fa.jpg?include_vectors=true", nil)
	resp = decode[EntryResponse](t, rr)
	if rr.Code != http.StatusOK || len(resp.Pose) != 2 || len(resp.Semantic) != 2 {
		t.Errorf("status = %d, entry = %+v", rr.Code, resp)
	}

	rr = e.do(t, "GET", "/corpus/entries/boards/a.jpg?include_vectors=maybe", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad include_vectors: status = %d", rr.Code)
	}

	rr = e.do(t, "GET", "/corpus/entries/nope.jpg", nil)
	if rr.Code != http.StatusNotFound || decode[ErrorResponse](t, rr).Code != ErrorCodeNotFound {
		t.Errorf("unknown entry: status = %d: %s", rr.Code, rr.Body)
	}
}

func TestReloadCorpus(t *testing.T) {
	e := newEnv(t, "")
	if rr := e.do(t, "GET", "/corpus", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("before reload: status = %d", rr.Code)
	}
	if err := os.WriteFile(e.path, []byte(testCorpus), 0o600); err != nil {
		t.Fatal(err)
	}
	rr := e.do(t, "POST", "/corpus/reload", nil)
	if rr.Code != http.StatusOK || decode[CorpusResponse](t, rr).Entries != 3 {
		t.Errorf("after reload: status = %d: %s", rr.Code, rr.Body)
	}
}

func TestHealthCheck(t *testing.T) {
	rr := newEnv(t, testCorpus).do(t, "GET", "/health", nil)
	resp := decode[HealthResponse](t, rr)
	if rr.Code != http.StatusOK || resp.Status != "ok" || resp.Checks["corpus"] != "ok" || resp.Entries != 3 {
		t.Errorf("status = %d, resp = %+v", rr.Code, resp)
	}

	rr = newEnv(t, "").do(t, "GET", "/health", nil)
	if rr.Code != http.StatusServiceUnavailable || decode[HealthResponse](t, rr).Status != "error" {
		t.Errorf("missing corpus: status = %d: %s", rr.Code, rr.Body)
	}
}

func TestUnknownRoute(t *testing.T) {
	rr := newEnv(t, testCorpus).do(t, "GET", "/collections", nil)
	if rr.Code != http.StatusNotFound || decode[ErrorResponse](t, rr).Success {
		t.Errorf("status = %d: %s", rr.Code, rr.Body)
	}
}
