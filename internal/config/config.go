package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nidhogg/embedding-service/internal/embedding"
)

// Defaults match the Zhipu embedding API.
const (
	DefaultEndpoint  = "https://open.bigmodel.cn/api/paas/v4/embeddings"
	DefaultModel     = "embedding-2"
	DefaultDimension = 256
	DefaultProvider  = "zhipu"
	DefaultHost      = "0.0.0.0"
	DefaultPort      = 5001
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Embedding EmbeddingConfig `json:"embedding"`
}

type ServerConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Debug    bool   `json:"debug"`
	LogLevel string `json:"log_level"`
}

type EmbeddingConfig struct {
	Provider  string   `json:"provider"`
	Endpoint  string   `json:"endpoint"`
	Model     string   `json:"model"`
	APIKey    string   `json:"api_key"`
	Dimension int      `json:"dimension"`
	Timeout   Duration `json:"timeout"`
}

// Duration decodes from a JSON string such as "30s".
type Duration time.Duration

// UnmarshalJSON parses a time.ParseDuration string; "" means zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Addr returns the host:port the HTTP server binds to.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ProviderConfig converts the section into the embedding package's Config.
func (e EmbeddingConfig) ProviderConfig() embedding.Config {
	return embedding.Config{
		Provider:  e.Provider,
		Endpoint:  e.Endpoint,
		Model:     e.Model,
		APIKey:    e.APIKey,
		Dimension: e.Dimension,
		Timeout:   time.Duration(e.Timeout),
	}
}

// MaskedKey returns the first ten characters of the API key for logging.
func (e EmbeddingConfig) MaskedKey() string {
	if len(e.APIKey) <= 10 {
		return strings.Repeat("*", len(e.APIKey))
	}
	return e.APIKey[:10] + "..."
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:     DefaultHost,
			Port:     DefaultPort,
			LogLevel: "info",
		},
		Embedding: EmbeddingConfig{
			Provider:  DefaultProvider,
			Endpoint:  DefaultEndpoint,
			Model:     DefaultModel,
			Dimension: DefaultDimension,
			Timeout:   Duration(embedding.DefaultTimeout),
		},
	}
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load builds the configuration: defaults, then the optional JSON file at
// path (with ${VAR} substitution), then EMBEDDING_* environment variables.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	if err := json.Unmarshal([]byte(resolved), cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("EMBEDDING_API_URL"); ok {
		cfg.Embedding.Endpoint = v
	}
	if v, ok := get("EMBEDDING_API_KEY"); ok {
		cfg.Embedding.APIKey = v
	}
	if v, ok := get("EMBEDDING_MODEL"); ok {
		cfg.Embedding.Model = v
	}
	if v, ok := get("EMBEDDING_PROVIDER"); ok {
		cfg.Embedding.Provider = v
	}
	if v, ok := get("EMBEDDING_DIM"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse EMBEDDING_DIM %q: %w", v, err)
		}
		cfg.Embedding.Dimension = n
	}
	if v, ok := get("EMBEDDING_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse EMBEDDING_TIMEOUT %q: %w", v, err)
		}
		cfg.Embedding.Timeout = Duration(d)
	}
	if v, ok := get("EMBEDDING_HOST"); ok {
		cfg.Server.Host = v
	}
	if v, ok := get("EMBEDDING_PORT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse EMBEDDING_PORT %q: %w", v, err)
		}
		cfg.Server.Port = n
	}
	if v, ok := get("EMBEDDING_DEBUG"); ok {
		cfg.Server.Debug = strings.EqualFold(v, "true")
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.Server.LogLevel = v
	}
	return nil
}

// Validate checks ranges. An empty API key is allowed.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return c.Embedding.ProviderConfig().Validate()
}
