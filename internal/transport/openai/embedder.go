package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/metrics"
)

const (
	service = "semantic"
	opEmbed = "openai_embed"
)

var _ domain.TextEmbedder = (*Embedder)(nil)

// Embedder is a text embedding provider using the OpenAI-compatible API.
// It only covers text; images still go to the CLIP service.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		logger:     cfg.Logger,
	}
}

// Model returns the configured embedding model name.
func (e *Embedder) Model() string { return string(e.model) }

// EmbedTexts implements domain.TextEmbedder in a single API call.
// Vectors are reordered by their response index and normalized locally when asked.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string, normalize bool) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	metrics.InferenceRequestDuration.WithLabelValues(service, opEmbed).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, e.fail("api_error", parseAPIError(err))
	}
	if len(resp.Data) != len(texts) {
		return nil, e.fail("empty_response",
			domain.NewTransportError(service, opEmbed, 0,
				fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, e.fail("bad_index",
				domain.NewTransportError(service, opEmbed, 0, fmt.Errorf("embedding index %d out of range", d.Index)))
		}
		if err := domain.CheckDim(domain.KindSemantic, d.Embedding, e.dimensions); err != nil {
			return nil, e.fail("dim_mismatch", domain.NewTransportError(service, opEmbed, 0, err))
		}
		vec := d.Embedding
		if normalize {
			vec = domain.Normalize(vec)
		}
		out[d.Index] = vec
	}

	metrics.InferenceRequestsTotal.WithLabelValues(service, opEmbed, "success").Inc()
	e.logger.Debug("OpenAI embeddings",
		zap.String("model", string(e.model)),
		zap.Int("texts", len(texts)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return out, nil
}

func (e *Embedder) fail(errType string, err error) error {
	metrics.InferenceRequestsTotal.WithLabelValues(service, opEmbed, "error").Inc()
	metrics.InferenceErrorsTotal.WithLabelValues(service, opEmbed, errType).Inc()
	e.logger.Warn("OpenAI embedding failed", zap.String("error_type", errType), zap.Error(err))
	return err
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return domain.NewTransportError(service, "list_models", 0, err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// Every error becomes a domain.TransportError for correct 502 mapping.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return domain.NewTransportError(service, opEmbed, reqErr.HTTPStatusCode, errors.New(detail))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewTransportError(service, opEmbed, apiErr.HTTPStatusCode, errors.New(apiErr.Message))
	}

	return domain.NewTransportError(service, opEmbed, 0, err)
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
