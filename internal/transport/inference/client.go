// Package inference talks to the remote pose and CLIP model services over JSON/HTTP.
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/domain/pixel"
	"github.com/kailas-cloud/posedex/internal/metrics"
)

// maxErrorBody caps how much of a failed response body ends up in an error message.
const maxErrorBody = 512

// Config holds the settings shared by both inference clients.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Dimensions int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// client is a minimal JSON-over-HTTP caller with metrics and typed transport errors.
type client struct {
	service string
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *zap.Logger
}

func newClient(service string, cfg *Config) *client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &client{
		service: service,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		http:    hc,
		logger:  logger.With(zap.String("service", service)),
	}
}

// wireImage is the raw RGB image payload accepted by both services.
type wireImage struct {
	Height int    `json:"height"`
	Width  int    `json:"width"`
	Data   string `json:"data"`
}

func toWireImage(b pixel.Buffer) wireImage {
	return wireImage{
		Height: b.Height,
		Width:  b.Width,
		Data:   base64.StdEncoding.EncodeToString(b.Pix),
	}
}

// errorResponse is the error body returned by the model services.
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (c *client) postJSON(ctx context.Context, op, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return c.fail(op, "encode", 0, fmt.Errorf("encode request: %w", err))
	}
	return c.do(ctx, op, http.MethodPost, path, bytes.NewReader(body), out)
}

func (c *client) get(ctx context.Context, op, path string) error {
	return c.do(ctx, op, http.MethodGet, path, http.NoBody, nil)
}

func (c *client) do(ctx context.Context, op, method, path string, body io.Reader, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return c.fail(op, "request", 0, fmt.Errorf("build request: %w", err))
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	metrics.InferenceRequestDuration.WithLabelValues(c.service, op).Observe(duration.Seconds())
	if err != nil {
		errType := "network"
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			errType = "timeout"
		}
		return c.fail(op, errType, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(op, "status", resp.StatusCode, errors.New(readErrorBody(resp.Body)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return c.fail(op, "decode", resp.StatusCode, fmt.Errorf("decode response: %w", err))
		}
	}

	metrics.InferenceRequestsTotal.WithLabelValues(c.service, op, "success").Inc()
	c.logger.Debug("Inference call",
		zap.String("op", op),
		zap.Duration("duration", duration),
	)
	return nil
}

// fail records the failure and returns it as a domain.TransportError.
func (c *client) fail(op, errType string, status int, err error) error {
	metrics.InferenceRequestsTotal.WithLabelValues(c.service, op, "error").Inc()
	metrics.InferenceErrorsTotal.WithLabelValues(c.service, op, errType).Inc()
	c.logger.Warn("Inference call failed",
		zap.String("op", op),
		zap.String("error_type", errType),
		zap.Int("status", status),
		zap.Error(err),
	)
	return domain.NewTransportError(c.service, op, status, err)
}

// readErrorBody extracts a short message from a failed response.
func readErrorBody(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var parsed errorResponse
	if json.Unmarshal(raw, &parsed) == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Detail != "" {
			return parsed.Detail
		}
	}
	if len(raw) == 0 {
		return "empty response body"
	}
	return strconv.Quote(string(raw))
}
