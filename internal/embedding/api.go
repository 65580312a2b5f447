package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Upstream call outcomes reported to an Observer.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeRejected = "rejected"
)

// Observer receives the outcome and latency of every upstream call.
type Observer interface {
	ObserveUpstream(outcome string, elapsed time.Duration)
}

// APIProvider implements Provider against an OpenAI-compatible embeddings
// endpoint such as Zhipu's /api/paas/v4/embeddings.
type APIProvider struct {
	endpoint  string
	model     string
	apiKey    string
	dimension int

	client   *http.Client
	observer Observer
	logger   *zap.Logger
}

// Option customizes an APIProvider.
type Option func(*APIProvider)

// WithHTTPClient replaces the default client. Its Timeout is left untouched.
func WithHTTPClient(c *http.Client) Option {
	return func(p *APIProvider) { p.client = c }
}

// WithObserver attaches an upstream call observer.
func WithObserver(o Observer) Option {
	return func(p *APIProvider) { p.observer = o }
}

// NewAPIProvider creates a new APIProvider from the given Config.
func NewAPIProvider(cfg Config, logger *zap.Logger, opts ...Option) *APIProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &APIProvider{
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		dimension: cfg.Dimension,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type apiRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type apiEmbeddingData struct {
	Index     *int      `json:"index,omitempty"`
	Embedding []float64 `json:"embedding"`
}

// apiResponse covers both envelopes seen in the wild: OpenAI/Zhipu style
// {"data":[{"embedding":[...]}]} and the flat {"embeddings":[[...]]}.
type apiResponse struct {
	Data       []apiEmbeddingData `json:"data"`
	Embeddings [][]float64        `json:"embeddings"`
}

// Embed sends texts to the upstream endpoint and returns one vector per text,
// in input order.
func (p *APIProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, invalidInput("no text provided")
	}

	body, err := json.Marshal(apiRequest{
		Model: p.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrUnexpected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrUnexpected, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("X-Request-Id", requestID(ctx))

	start := time.Now()
	vectors, err := p.do(req)
	elapsed := time.Since(start)
	p.observe(err, elapsed)
	if err != nil {
		p.logger.Error("upstream embedding request failed",
			zap.Int("texts", len(texts)), zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, err
	}

	p.logger.Info("upstream embedding request completed",
		zap.Int("texts", len(texts)), zap.Duration("elapsed", elapsed))
	if len(vectors) != len(texts) {
		p.logger.Warn("upstream returned a different number of vectors",
			zap.Int("texts", len(texts)), zap.Int("vectors", len(vectors)))
	}
	if p.dimension > 0 && len(vectors) > 0 && len(vectors[0]) != p.dimension {
		p.logger.Warn("upstream vector dimension differs from configured dimension",
			zap.Int("configured", p.dimension), zap.Int("returned", len(vectors[0])))
	}
	return vectors, nil
}

func (p *APIProvider) do(req *http.Request) ([][]float64, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classify("send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			if classified := classify("read error response", err); errors.Is(classified, ErrUpstreamTimeout) {
				return nil, classified
			}
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, classify("decode response", err)
	}
	return result.vectors()
}

func (r apiResponse) vectors() ([][]float64, error) {
	switch {
	case r.Data != nil:
		for i, d := range r.Data {
			if d.Embedding == nil {
				return nil, fmt.Errorf("%w: upstream item %d has no embedding", ErrUnexpected, i)
			}
		}
		out := make([][]float64, len(r.Data))
		if indexed(r.Data) {
			for _, d := range r.Data {
				out[*d.Index] = d.Embedding
			}
			return out, nil
		}
		for i, d := range r.Data {
			out[i] = d.Embedding
		}
		return out, nil
	case r.Embeddings != nil:
		for i, v := range r.Embeddings {
			if v == nil {
				return nil, fmt.Errorf("%w: upstream item %d has no embedding", ErrUnexpected, i)
			}
		}
		return r.Embeddings, nil
	default:
		return nil, fmt.Errorf("%w: no embeddings in upstream response", ErrUnexpected)
	}
}

// indexed reports whether every item carries a distinct, in-range index.
func indexed(data []apiEmbeddingData) bool {
	seen := make([]bool, len(data))
	for _, d := range data {
		if d.Index == nil || *d.Index < 0 || *d.Index >= len(data) || seen[*d.Index] {
			return false
		}
		seen[*d.Index] = true
	}
	return true
}

func classify(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %v", ErrUpstreamTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnexpected, op, err)
}

func (p *APIProvider) observe(err error, elapsed time.Duration) {
	if p.observer == nil {
		return
	}
	var upErr *UpstreamError
	outcome := OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, ErrUpstreamTimeout):
		outcome = OutcomeTimeout
	case errors.As(err, &upErr):
		outcome = OutcomeRejected
	default:
		outcome = OutcomeError
	}
	p.observer.ObserveUpstream(outcome, elapsed)
}

func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// Dimension returns the configured embedding vector dimension.
func (p *APIProvider) Dimension() int {
	return p.dimension
}

// Ready returns ErrMissingCredential when no API key is configured.
func (p *APIProvider) Ready() error {
	if p.apiKey == "" {
		return ErrMissingCredential
	}
	return nil
}

// Model returns the upstream model identifier.
func (p *APIProvider) Model() string {
	return p.model
}
