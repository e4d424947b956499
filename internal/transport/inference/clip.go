package inference

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/domain/pixel"
)

// ServiceSemantic is the service label used in errors and metrics.
const ServiceSemantic = "semantic"

var _ domain.SemanticEmbedder = (*CLIPClient)(nil)

// CLIPClient calls the remote CLIP text/image encoder.
type CLIPClient struct {
	c    *client
	dims int
}

// NewCLIPClient creates a CLIP service client.
func NewCLIPClient(cfg *Config) *CLIPClient {
	return &CLIPClient{c: newClient(ServiceSemantic, cfg), dims: cfg.Dimensions}
}

type encodeTextRequest struct {
	Texts     []string `json:"texts"`
	Normalize bool     `json:"normalize"`
}

type encodeTextResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type encodeImageRequest struct {
	Image     wireImage `json:"image"`
	Normalize bool      `json:"normalize"`
}

// EmbedTexts encodes texts in one call; the result order matches the input.
func (c *CLIPClient) EmbedTexts(ctx context.Context, texts []string, normalize bool) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var resp encodeTextResponse
	if err := c.c.postJSON(ctx, "encode_text", "/encode/text", encodeTextRequest{Texts: texts, Normalize: normalize}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, c.c.fail("encode_text", "decode", 0,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings)))
	}
	for i, v := range resp.Embeddings {
		if err := domain.CheckDim(domain.KindSemantic, v, c.dims); err != nil {
			return nil, c.c.fail("encode_text", "dim_mismatch", 0, err)
		}
		if normalize {
			resp.Embeddings[i] = domain.Normalize(v)
		}
	}
	return resp.Embeddings, nil
}

// EmbedImage encodes a single image.
func (c *CLIPClient) EmbedImage(ctx context.Context, img pixel.Buffer, normalize bool) ([]float32, error) {
	var resp embeddingResponse
	if err := c.c.postJSON(ctx, "encode_image", "/encode/image", encodeImageRequest{Image: toWireImage(img), Normalize: normalize}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, c.c.fail("encode_image", "empty_response", 0, fmt.Errorf("empty embedding"))
	}
	if err := domain.CheckDim(domain.KindSemantic, resp.Embedding, c.dims); err != nil {
		return nil, c.c.fail("encode_image", "dim_mismatch", 0, err)
	}
	if normalize {
		return domain.Normalize(resp.Embedding), nil
	}
	return resp.Embedding, nil
}

// HealthCheck verifies the CLIP service is ready.
func (c *CLIPClient) HealthCheck(ctx context.Context) error {
	return c.c.get(ctx, "health", "/health")
}
