// Package config defines all configuration structures for ClaimScope.
// No I/O or parsing logic lives here — only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters for the result cache.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// MilvusConfig holds Milvus vector-index connection parameters.
type MilvusConfig struct {
	Addr               string `mapstructure:"addr"`
	DBName             string `mapstructure:"db_name"`
	EmbeddingDim       int    `mapstructure:"embedding_dim"`
	IndexType          string `mapstructure:"index_type"`
	HNSWM              int    `mapstructure:"hnsw_m"`
	HNSWEfConstruction int    `mapstructure:"hnsw_ef_construction"`
	DefaultTopK        int    `mapstructure:"default_top_k"`
	CollectionPrefix   string `mapstructure:"collection_prefix"`
}

// EmbeddingConfig holds parameters for the text-embedding model endpoint.
// Any OpenAI-compatible server works, including a local Ollama instance.
type EmbeddingConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ExplanationConfig holds parameters for the LLM that generates
// comparison explanations and prior-art analyses.
type ExplanationConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
}

// EngineConfig holds the scoring and matching parameters of the
// retrieval engine.
type EngineConfig struct {
	// VectorWeight is the weight of the vector-similarity component in the
	// combined score; the fuzzy component receives 1 - VectorWeight.
	VectorWeight float64 `mapstructure:"vector_weight"`

	// MatchFloor is the minimum combined similarity for a claim pair to be
	// reported as a match.
	MatchFloor float64 `mapstructure:"match_floor"`

	// TopK caps the number of claim matches returned per comparison.
	TopK int `mapstructure:"top_k"`

	// HighRiskThreshold and MediumRiskThreshold classify per-claim risk.
	HighRiskThreshold   float64 `mapstructure:"high_risk_threshold"`
	MediumRiskThreshold float64 `mapstructure:"medium_risk_threshold"`

	// Prior-art claim thresholds: a candidate claim scoring at or above
	// PriorArtHighThreshold is a strong anticipation signal, at or above
	// PriorArtMediumThreshold a partial one.  Patents whose best claim falls
	// below PriorArtPatentFloor are dropped from prior-art reports.
	PriorArtHighThreshold   float64 `mapstructure:"priorart_high_threshold"`
	PriorArtMediumThreshold float64 `mapstructure:"priorart_medium_threshold"`
	PriorArtPatentFloor     float64 `mapstructure:"priorart_patent_floor"`

	// MinDescriptionLength is the minimum character count accepted by
	// prior-art search descriptions.
	MinDescriptionLength int `mapstructure:"min_description_length"`

	// MatcherConcurrency is the worker-pool size for claim-matrix scoring.
	MatcherConcurrency int `mapstructure:"matcher_concurrency"`

	// Retries and RetryBackoff govern calls to the embedding and
	// explanation services.
	Retries      int           `mapstructure:"retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`

	// CacheTTL is the lifetime of cached search and comparison results.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string `mapstructure:"format"` // "json" | "console"
	Output           string `mapstructure:"output"`
	EnableCaller     bool   `mapstructure:"enable_caller"`
	EnableStacktrace bool   `mapstructure:"enable_stacktrace"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Namespace            string `mapstructure:"namespace"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics"`
}

// Config is the root configuration structure for the entire service.
// Every infrastructure component and engine stage reads its settings from the
// relevant sub-struct.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Milvus      MilvusConfig      `mapstructure:"milvus"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	Explanation ExplanationConfig `mapstructure:"explanation"`
	Engine      EngineConfig      `mapstructure:"engine"`
	Log         LogConfig         `mapstructure:"log"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required when redis.enabled is true")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
		}
	}

	// Milvus
	if c.Milvus.Addr == "" {
		return fmt.Errorf("config: milvus.addr is required")
	}
	if c.Milvus.EmbeddingDim < 1 {
		return fmt.Errorf("config: milvus.embedding_dim must be >= 1, got %d", c.Milvus.EmbeddingDim)
	}

	// Embedding
	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("config: embedding.base_url is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("config: embedding.model is required")
	}
	if c.Embedding.Dimension != c.Milvus.EmbeddingDim {
		return fmt.Errorf("config: embedding.dimension %d does not match milvus.embedding_dim %d",
			c.Embedding.Dimension, c.Milvus.EmbeddingDim)
	}

	// Explanation
	if c.Explanation.Enabled {
		if c.Explanation.BaseURL == "" {
			return fmt.Errorf("config: explanation.base_url is required when explanation.enabled is true")
		}
		if c.Explanation.Model == "" {
			return fmt.Errorf("config: explanation.model is required when explanation.enabled is true")
		}
	}

	// Engine
	if err := c.Engine.validate(); err != nil {
		return err
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

func (e *EngineConfig) validate() error {
	if e.VectorWeight < 0 || e.VectorWeight > 1 {
		return fmt.Errorf("config: engine.vector_weight %v is out of range [0, 1]", e.VectorWeight)
	}
	if e.MatchFloor < 0 || e.MatchFloor > 1 {
		return fmt.Errorf("config: engine.match_floor %v is out of range [0, 1]", e.MatchFloor)
	}
	if e.TopK < 1 {
		return fmt.Errorf("config: engine.top_k must be >= 1, got %d", e.TopK)
	}
	if e.HighRiskThreshold <= e.MediumRiskThreshold {
		return fmt.Errorf("config: engine.high_risk_threshold %v must exceed medium_risk_threshold %v",
			e.HighRiskThreshold, e.MediumRiskThreshold)
	}
	if e.PriorArtHighThreshold <= e.PriorArtMediumThreshold {
		return fmt.Errorf("config: engine.priorart_high_threshold %v must exceed priorart_medium_threshold %v",
			e.PriorArtHighThreshold, e.PriorArtMediumThreshold)
	}
	if e.MinDescriptionLength < 1 {
		return fmt.Errorf("config: engine.min_description_length must be >= 1, got %d", e.MinDescriptionLength)
	}
	if e.MatcherConcurrency < 1 {
		return fmt.Errorf("config: engine.matcher_concurrency must be >= 1, got %d", e.MatcherConcurrency)
	}
	if e.Retries < 0 {
		return fmt.Errorf("config: engine.retries must be >= 0, got %d", e.Retries)
	}
	return nil
}
