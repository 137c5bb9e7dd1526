// Package openai implements the embedding and chat provider clients over
// any OpenAI-compatible API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/roommatch/internal/domain"
	"github.com/kailas-cloud/roommatch/internal/metrics"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 2
	initialBackoff    = 500 * time.Millisecond
	maxBackoff        = 5 * time.Second
)

// Embedder is the embedding provider client. It enforces a per-call
// timeout, classifies failures, and retries only transient ones with
// bounded exponential backoff.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	timeout    time.Duration
	maxRetries int
	provider   string
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
	Provider   string
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider client.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		timeout:    timeout,
		maxRetries: maxRetries,
		provider:   cfg.Provider,
		logger:     cfg.Logger,
	}
}

// Embed implements domain.Embedder. Empty or whitespace-only text is a
// validation error and never reaches the provider. Only
// domain.ErrUpstreamUnavailable is retried; rejected and malformed
// responses propagate immediately.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: text must be non-empty", domain.ErrValidation)
	}

	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.EmbeddingRetriesTotal.WithLabelValues(e.provider, string(e.model)).Inc()
			select {
			case <-ctx.Done():
				return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		result, err := e.embedOnce(ctx, text)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrUpstreamUnavailable) {
			return domain.EmbeddingResult{}, err
		}
	}

	return domain.EmbeddingResult{}, fmt.Errorf("after %d retries: %w", e.maxRetries, lastErr)
}

func (e *Embedder) embedOnce(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		classified := classifyAPIError(err)
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), errorType(classified)).Inc()
		return domain.EmbeddingResult{}, classified
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "malformed").Inc()
		// Raw payload kept for diagnosis: the provider confirmed 200 but
		// produced nothing usable; retrying will not help.
		raw, _ := json.Marshal(resp)
		e.logger.Error("Embedding response missing vector", zap.ByteString("payload", raw))
		return domain.EmbeddingResult{}, fmt.Errorf("%w: response contains no embedding", domain.ErrUpstreamMalformed)
	}
	if e.dimensions > 0 && len(resp.Data[0].Embedding) != e.dimensions {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "malformed").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf(
			"%w: got %d dimensions, want %d", domain.ErrUpstreamMalformed, len(resp.Data[0].Embedding), e.dimensions)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, string(e.model)).Observe(duration.Seconds())

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// classifyAPIError maps provider failures onto the domain taxonomy:
// network errors, timeouts, 429 and 5xx are transient (retryable);
// any other 4xx is a permanent rejection.
func classifyAPIError(err error) error {
	status := 0

	var reqErr *openai.RequestError
	var apiErr *openai.APIError
	switch {
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	}

	switch {
	case status == 0:
		// Transport-level failure: no HTTP status at all.
		return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	case status >= 500 || status == 429:
		return fmt.Errorf("%w: provider status %d: %s", domain.ErrUpstreamUnavailable, status, errDetail(err))
	default:
		return fmt.Errorf("%w: provider status %d: %s", domain.ErrUpstreamRejected, status, errDetail(err))
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrUpstreamRejected):
		return "rejected"
	default:
		return "malformed"
	}
}

// errDetail extracts a human-readable message from the API error,
// preferring the JSON "detail"/"message" fields providers commonly use.
func errDetail(err error) string {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && len(reqErr.Body) > 0 {
		var parsed struct {
			Detail  string `json:"detail"`
			Message string `json:"message"`
		}
		if json.Unmarshal(reqErr.Body, &parsed) == nil {
			if parsed.Detail != "" {
				return parsed.Detail
			}
			if parsed.Message != "" {
				return parsed.Message
			}
		}
		return string(reqErr.Body)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
