package posedex

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
)

// EmbedText returns the semantic embedding of one text.
func (c *Client) EmbedText(ctx context.Context, text string, normalize bool) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("posedex: embed: %w: text is required", ErrInvalidInput)
	}
	var vec []float32
	if err := c.embed(ctx, embedBody{Text: text, Normalize: normalize}, &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedTexts returns one semantic embedding per text, in order.
func (c *Client) EmbedTexts(ctx context.Context, texts []string, normalize bool) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("posedex: embed: %w: texts are required", ErrInvalidInput)
	}
	var vecs [][]float32
	if err := c.embed(ctx, embedBody{Text: texts, Normalize: normalize}, &vecs); err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("posedex: embed: expected %d vectors, got %d", len(texts), len(vecs))
	}
	return vecs, nil
}

// EmbedImage returns the semantic embedding of raw image bytes.
func (c *Client) EmbedImage(ctx context.Context, image []byte, normalize bool) ([]float32, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("posedex: embed: %w: image is required", ErrInvalidInput)
	}
	var vec []float32
	body := embedBody{Image: base64.StdEncoding.EncodeToString(image), Normalize: normalize}
	if err := c.embed(ctx, body, &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func (c *Client) embed(ctx context.Context, body embedBody, out any) error {
	var reply embedReply
	if err := c.do(ctx, "embed", http.MethodPost, "/embed", body, &reply); err != nil {
		return err
	}
	if err := json.Unmarshal(reply.Embedding, out); err != nil {
		return fmt.Errorf("posedex: embed: decode embedding: %w", err)
	}
	return nil
}
