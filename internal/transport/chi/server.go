// Package chi serves the posedex HTTP API on a chi router.
package chi

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/domain/corpus"
	"github.com/kailas-cloud/posedex/internal/domain/pixel"
	"github.com/kailas-cloud/posedex/internal/domain/search/request"
	embeddinguc "github.com/kailas-cloud/posedex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/posedex/internal/usecase/health"
	poseuc "github.com/kailas-cloud/posedex/internal/usecase/pose"
	searchuc "github.com/kailas-cloud/posedex/internal/usecase/search"
)

// MaxBodyBytes bounds request bodies; sketches arrive base64 encoded.
const MaxBodyBytes = 32 << 20

// CorpusSource serves and reloads the embedding corpus.
type CorpusSource interface {
	Current() (corpus.Reader, error)
	Reload() error
}

// Server holds the HTTP handlers of the API.
type Server struct {
	search        *searchuc.Service
	pose          *poseuc.Service
	embedding     *embeddinguc.Service
	corpus        CorpusSource
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler

	detectorDefault bool
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	pose *poseuc.Service,
	embedding *embeddinguc.Service,
	corpusSrc CorpusSource,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		search:        search,
		pose:          pose,
		embedding:     embedding,
		corpus:        corpusSrc,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),

		detectorDefault: true,
	}
}

// WithDetectorDefault sets use_bbox_detector for requests that omit it.
func (s *Server) WithDetectorDefault(on bool) *Server {
	s.detectorDefault = on
	return s
}

func (s *Server) useDetector(v *bool) bool {
	if v == nil {
		return s.detectorDefault
	}
	return *v
}

// Register mounts every route on r.
func (s *Server) Register(r chirouter.Router) {
	r.Post("/search", s.Search)
	r.Post("/pose", s.ExtractPose)
	r.Post("/embed", s.Embed)
	r.Get("/corpus", s.CorpusStats)
	r.Post("/corpus/reload", s.ReloadCorpus)
	r.Get("/corpus/entries/*", s.GetEntry)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	useDetector := s.useDetector(req.UseBBoxDetector)
	resp, err := s.search.Search(r.Context(), request.Params{
		Sketch:      pixel.FromBase64(req.Sketch),
		Text:        req.Text,
		K:           req.K,
		Lambda:      req.Lambda,
		UseDetector: &useDetector,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	results := make([]SearchResult, len(resp.Results))
	for i := range resp.Results {
		h := &resp.Results[i]
		results[i] = SearchResult{
			Path:  h.ID(),
			Image: base64.StdEncoding.EncodeToString(h.Image()),
			Score: h.Score(),
		}
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Success: true,
		Results: results,
		Skipped: resp.Skipped,
		Missed:  resp.Missed,
	})
}

// ExtractPose handles POST /pose. Finding nobody is reported with success=false and status 200.
func (s *Server) ExtractPose(w http.ResponseWriter, r *http.Request) {
	var req PoseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ext, err := s.pose.Extract(r.Context(), poseuc.Request{
		Image:       pixel.FromBase64(req.Image),
		UseDetector: s.useDetector(req.UseBBoxDetector),
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	joints := make(map[string][2]float32, len(ext.Keypoints))
	for name, p := range ext.Keypoints {
		joints[name] = [2]float32{p.X, p.Y}
	}
	resp := PoseResponse{
		Success:  ext.Detected,
		Pose:     joints,
		ImgShape: [2]int{ext.Shape.Height, ext.Shape.Width},
	}
	if ext.Detected {
		resp.Embedding = ext.Embedding
	} else {
		msg := NoPersonMessage
		resp.Error = &msg
	}
	writeJSON(w, http.StatusOK, resp)
}

// Embed handles POST /embed. Exactly one of text or image must be supplied.
func (s *Server) Embed(w http.ResponseWriter, r *http.Request) {
	var req EmbedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	hasText := len(req.Text) > 0 && string(req.Text) != "null"
	hasImage := req.Image != ""
	if hasText == hasImage {
		writeError(w, http.StatusBadRequest, ErrorCodeInvalidInput,
			domain.ErrInvalidInput.Error()+": provide exactly one of text or image")
		return
	}

	if hasImage {
		vec, err := s.embedding.EmbedImage(r.Context(), pixel.FromBase64(req.Image), req.Normalize)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, EmbedResponse{Success: true, Embedding: vec, Dimensions: len(vec)})
		return
	}

	texts, single, err := parseTexts(req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeInvalidInput, err.Error())
		return
	}
	vecs, err := s.embedding.EmbedText(r.Context(), texts, req.Normalize)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	resp := EmbedResponse{Success: true, Embedding: vecs}
	if len(vecs) > 0 {
		resp.Dimensions = len(vecs[0])
	}
	if single {
		resp.Embedding = vecs[0]
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseTexts accepts a JSON string or an array of strings.
func parseTexts(raw json.RawMessage) (texts []string, single bool, err error) {
	var one string
	if json.Unmarshal(raw, &one) == nil {
		return []string{one}, true, nil
	}
	if err := json.Unmarshal(raw, &texts); err != nil {
		return nil, false, fmt.Errorf("%w: text must be a string or an array of strings", domain.ErrInvalidInput)
	}
	return texts, false, nil
}

// CorpusStats handles GET /corpus.
func (s *Server) CorpusStats(w http.ResponseWriter, r *http.Request) {
	c, err := s.corpus.Current()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	st := c.Stats()
	writeJSON(w, http.StatusOK, CorpusResponse{
		Success:         true,
		Entries:         st.Entries,
		Comparable:      st.Comparable,
		MissingPose:     st.MissingPose,
		MissingSemantic: st.MissingSemantic,
		Invalid:         st.Invalid,
		PoseDims:        st.PoseDims,
		SemanticDims:    st.SemanticDims,
		Metadata:        c.Metadata(),
	})
}

// ReloadCorpus handles POST /corpus/reload. A failed reload keeps the previous corpus.
func (s *Server) ReloadCorpus(w http.ResponseWriter, r *http.Request) {
	if err := s.corpus.Reload(); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.CorpusStats(w, r)
}

// GetEntry handles GET /corpus/entries/{id}. Identifiers may contain slashes.
func (s *Server) GetEntry(w http.ResponseWriter, r *http.Request) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chirouter.URLParam(r, "*"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false})
	if err != nil || id == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter id")
		return
	}
	var includeVectors bool
	if err := runtime.BindQueryParameter("form", true, false, "include_vectors", r.URL.Query(), &includeVectors); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter include_vectors")
		return
	}

	c, err := s.corpus.Current()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	e, ok := c.Get(id)
	if !ok {
		s.handleDomainError(w, r, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, id))
		return
	}

	resp := EntryResponse{
		Success:      true,
		ID:           e.ID,
		HasPose:      len(e.Pose) > 0,
		HasSemantic:  len(e.Semantic) > 0,
		PoseDims:     len(e.Pose),
		SemanticDims: len(e.Semantic),
	}
	if includeVectors {
		resp.Pose, resp.Semantic = e.Pose, e.Semantic
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Entries: report.Entries,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
		Results: []any{},
	})
}
