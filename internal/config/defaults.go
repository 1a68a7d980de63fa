package config

import "time"

// Default value constants.
const (
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBUser     = "claimscope"
	DefaultDBName     = "claimscope"
	DefaultDBMaxConns = 25

	DefaultRedisAddr = "localhost:6379"

	DefaultMilvusAddr       = "localhost:19530"
	DefaultEmbeddingDim     = 768
	DefaultMilvusIndexType  = "HNSW"
	DefaultMilvusTopK       = 20
	DefaultCollectionPrefix = "claimscope"

	DefaultEmbeddingBaseURL = "http://localhost:11434/v1"
	DefaultEmbeddingModel   = "nomic-embed-text"

	DefaultExplanationModel = "gpt-4o-mini"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "claimscope"
)

// Engine defaults.  The thresholds mirror the calibration the scoring model
// was tuned against; override them only with re-validated values.
const (
	DefaultVectorWeight            = 0.7
	DefaultMatchFloor              = 0.3
	DefaultTopK                    = 20
	DefaultHighRiskThreshold       = 0.8
	DefaultMediumRiskThreshold     = 0.6
	DefaultPriorArtHighThreshold   = 0.75
	DefaultPriorArtMediumThreshold = 0.55
	DefaultPriorArtPatentFloor     = 0.4
	DefaultMinDescriptionLength    = 50
	DefaultMatcherConcurrency      = 8
	DefaultEngineRetries           = 2
	DefaultRetryBackoff            = 200 * time.Millisecond
	DefaultCacheTTL                = 15 * time.Minute
)

// ApplyDefaults fills every zero-value field in cfg with the service default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.  It must be called
// after unmarshalling raw config data and before Validate().
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// Server
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.User == "" {
		cfg.Database.User = DefaultDBUser
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "internal/infrastructure/database/postgres/migrations"
	}

	// Redis
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultCacheTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "claimscope"
	}

	// Milvus
	if cfg.Milvus.Addr == "" {
		cfg.Milvus.Addr = DefaultMilvusAddr
	}
	if cfg.Milvus.EmbeddingDim == 0 {
		cfg.Milvus.EmbeddingDim = DefaultEmbeddingDim
	}
	if cfg.Milvus.IndexType == "" {
		cfg.Milvus.IndexType = DefaultMilvusIndexType
	}
	if cfg.Milvus.HNSWM == 0 {
		cfg.Milvus.HNSWM = 16
	}
	if cfg.Milvus.HNSWEfConstruction == 0 {
		cfg.Milvus.HNSWEfConstruction = 200
	}
	if cfg.Milvus.DefaultTopK == 0 {
		cfg.Milvus.DefaultTopK = DefaultMilvusTopK
	}
	if cfg.Milvus.CollectionPrefix == "" {
		cfg.Milvus.CollectionPrefix = DefaultCollectionPrefix
	}

	// Embedding
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = DefaultEmbeddingBaseURL
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = DefaultEmbeddingModel
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = cfg.Milvus.EmbeddingDim
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}

	// Explanation
	if cfg.Explanation.Model == "" {
		cfg.Explanation.Model = DefaultExplanationModel
	}
	if cfg.Explanation.Timeout == 0 {
		cfg.Explanation.Timeout = 60 * time.Second
	}
	if cfg.Explanation.MaxTokens == 0 {
		cfg.Explanation.MaxTokens = 1024
	}

	// Engine
	applyEngineDefaults(&cfg.Engine)

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// Metrics
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}

func applyEngineDefaults(e *EngineConfig) {
	if e.VectorWeight == 0 {
		e.VectorWeight = DefaultVectorWeight
	}
	if e.MatchFloor == 0 {
		e.MatchFloor = DefaultMatchFloor
	}
	if e.TopK == 0 {
		e.TopK = DefaultTopK
	}
	if e.HighRiskThreshold == 0 {
		e.HighRiskThreshold = DefaultHighRiskThreshold
	}
	if e.MediumRiskThreshold == 0 {
		e.MediumRiskThreshold = DefaultMediumRiskThreshold
	}
	if e.PriorArtHighThreshold == 0 {
		e.PriorArtHighThreshold = DefaultPriorArtHighThreshold
	}
	if e.PriorArtMediumThreshold == 0 {
		e.PriorArtMediumThreshold = DefaultPriorArtMediumThreshold
	}
	if e.PriorArtPatentFloor == 0 {
		e.PriorArtPatentFloor = DefaultPriorArtPatentFloor
	}
	if e.MinDescriptionLength == 0 {
		e.MinDescriptionLength = DefaultMinDescriptionLength
	}
	if e.MatcherConcurrency == 0 {
		e.MatcherConcurrency = DefaultMatcherConcurrency
	}
	if e.Retries == 0 {
		e.Retries = DefaultEngineRetries
	}
	if e.RetryBackoff == 0 {
		e.RetryBackoff = DefaultRetryBackoff
	}
	if e.CacheTTL == 0 {
		e.CacheTTL = DefaultCacheTTL
	}
}
