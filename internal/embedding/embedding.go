package embedding

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout bounds a single upstream embedding call.
const DefaultTimeout = 30 * time.Second

// Provider generates vector embeddings from text.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Dimension() int
	Model() string
	// Ready reports ErrMissingCredential when no API key is configured.
	Ready() error
}

// Config holds embedding provider configuration.
type Config struct {
	Provider  string        `json:"provider"` // label reported by /health and /info
	Endpoint  string        `json:"endpoint"`
	Model     string        `json:"model"`
	APIKey    string        `json:"api_key"`
	Dimension int           `json:"dimension"`
	Timeout   time.Duration `json:"timeout"`
}

// Validate reports configuration that can never produce a working provider.
// A missing API key is not an error here: the service still starts and
// answers embed calls with ErrMissingCredential.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("embedding: endpoint is required")
	}
	if c.Model == "" {
		return errors.New("embedding: model is required")
	}
	if c.Dimension < 0 {
		return errors.New("embedding: dimension must not be negative")
	}
	if c.Timeout < 0 {
		return errors.New("embedding: timeout must not be negative")
	}
	return nil
}
