package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logger"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort            = 3000
	defaultVectorDBType    = "chroma"
	defaultVectorDBURL     = "http://localhost:8000"
	defaultQueryResults    = 2
	defaultQueryMax        = 100
	defaultHeartbeatSpec   = "@every 1m"
	defaultShutdownTimeout = 10
	defaultTokenTTLHours   = 24
	defaultEmbedding       = EmbeddingDefault
)

// Embedding providers. The default provider runs a local onnx model and
// fetches it on first start; hash needs nothing and suits tests only.
const (
	EmbeddingDefault = "default"
	EmbeddingHash    = "hash"
	EmbeddingOllama  = "ollama"
	EmbeddingOpenAI  = "openai"
)

type Config struct {
	Port      int              `json:"port"`
	LogConfig logger.LogConfig `json:"log_config"`
	VectorDB  VectorDBConfig   `json:"vectordb"`
	Query     QueryConfig      `json:"query"`
	Auth      AuthConfig       `json:"auth"`
	RateLimit RateLimitConfig  `json:"rate_limit"`
	Heartbeat HeartbeatConfig  `json:"heartbeat"`
	CORS      []string         `json:"cors_allowlist"`
	// ShutdownTimeout is in seconds.
	ShutdownTimeout int `json:"shutdown_timeout"`
}

type VectorDBConfig struct {
	Type       string            `json:"type"`
	URL        string            `json:"url"`
	Headers    map[string]string `json:"headers"`
	AutoCreate *bool             `json:"auto_create"`
	// Timeout bounds each backend call, in milliseconds. Zero means none.
	Timeout   int             `json:"timeout"`
	Embedding EmbeddingConfig `json:"embedding"`
}

// EmbeddingConfig selects how document and query texts are turned into
// vectors before they reach chroma.
type EmbeddingConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	URL      string `json:"url"`
	APIKey   string `json:"api_key"`
}

func (c VectorDBConfig) AutoCreateEnabled() bool {
	return c.AutoCreate == nil || *c.AutoCreate
}

type QueryConfig struct {
	DefaultResults int `json:"default_results"`
	MaxResults     int `json:"max_results"`
}

type AuthConfig struct {
	JWTSecret   string `json:"jwt_secret"`
	TokenTTLHrs int    `json:"token_ttl_hours"`
}

type RateLimitConfig struct {
	// WindowSeconds <= 0 disables the limiter.
	WindowSeconds int `json:"window_seconds"`
	Limit         int `json:"limit"`
	Capacity      int `json:"capacity"`
}

type HeartbeatConfig struct {
	Spec     string `json:"spec"`
	Disabled bool   `json:"disabled"`
}

func Default() *Config {
	return &Config{
		Port: defaultPort,
		VectorDB: VectorDBConfig{
			Type: defaultVectorDBType,
			URL:  defaultVectorDBURL,
			Embedding: EmbeddingConfig{
				Provider: defaultEmbedding,
			},
		},
		Query: QueryConfig{
			DefaultResults: defaultQueryResults,
			MaxResults:     defaultQueryMax,
		},
		Heartbeat: HeartbeatConfig{
			Spec: defaultHeartbeatSpec,
		},
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// Load builds the config from defaults, the optional file at path and the
// environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		// yaml goes through json so both formats share the json tags
		var doc interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode yaml config: %w", err)
		}
		if raw, err = json.Marshal(doc); err != nil {
			return fmt.Errorf("encode yaml config: %w", err)
		}
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHROMA_URL")); v != "" {
		cfg.VectorDB.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("VECTORDB_TYPE")); v != "" {
		cfg.VectorDB.Type = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_PROVIDER")); v != "" {
		cfg.VectorDB.Embedding.Provider = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.VectorDB.Embedding.APIKey == "" {
		cfg.VectorDB.Embedding.APIKey = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogConfig.Level = v
	}
}

func (c *Config) normalize() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.LogConfig.File == "" {
		c.LogConfig.Console = true
	}
	c.VectorDB.Type = strings.ToLower(strings.TrimSpace(c.VectorDB.Type))
	if c.VectorDB.Type == "" {
		c.VectorDB.Type = defaultVectorDBType
	}
	if c.VectorDB.Type == "chroma" && c.VectorDB.URL == "" {
		return fmt.Errorf("vectordb.url is required for chroma")
	}
	emb := &c.VectorDB.Embedding
	emb.Provider = strings.ToLower(strings.TrimSpace(emb.Provider))
	switch emb.Provider {
	case "":
		emb.Provider = defaultEmbedding
	case EmbeddingDefault, EmbeddingHash, EmbeddingOllama:
	case EmbeddingOpenAI:
		if c.VectorDB.Type == "chroma" && emb.APIKey == "" {
			return fmt.Errorf("vectordb.embedding.api_key is required for openai")
		}
	default:
		return fmt.Errorf("unknown vectordb.embedding.provider %q", emb.Provider)
	}
	if c.VectorDB.Timeout < 0 {
		return fmt.Errorf("vectordb.timeout must not be negative")
	}
	if c.Query.MaxResults <= 0 {
		c.Query.MaxResults = defaultQueryMax
	}
	if c.Query.DefaultResults <= 0 {
		c.Query.DefaultResults = defaultQueryResults
	}
	if c.Query.DefaultResults > c.Query.MaxResults {
		return fmt.Errorf("query.default_results must not exceed query.max_results")
	}
	if c.Auth.TokenTTLHrs == 0 {
		c.Auth.TokenTTLHrs = defaultTokenTTLHours
	}
	if c.RateLimit.WindowSeconds > 0 {
		if c.RateLimit.Limit <= 0 {
			c.RateLimit.Limit = 60
		}
		if c.RateLimit.Capacity <= 0 {
			c.RateLimit.Capacity = 4096
		}
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	return nil
}
