package config

import "os"

// Config is the root configuration structure for the application.
type Config struct {
	LogLevel    string            `yaml:"log_level" mapstructure:"log_level"`
	LogFile     string            `yaml:"log_file" mapstructure:"log_file"`
	LogRotation LogRotationConfig `yaml:"log_rotation" mapstructure:"log_rotation"`
	Graph       GraphConfig       `yaml:"graph" mapstructure:"graph"`
	Semantic    SemanticConfig    `yaml:"semantic" mapstructure:"semantic"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" mapstructure:"embeddings"`
	Chunking    ChunkingConfig    `yaml:"chunking" mapstructure:"chunking"`
	Ingest      IngestConfig      `yaml:"ingest" mapstructure:"ingest"`
	Bridge      BridgeConfig      `yaml:"bridge" mapstructure:"bridge"`
	Query       QueryConfig       `yaml:"query" mapstructure:"query"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
}

// LogRotationConfig holds rotation settings for the JSON log file.
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// GraphConfig holds FalkorDB graph database configuration.
type GraphConfig struct {
	Host           string `yaml:"host" mapstructure:"host"`
	Port           int    `yaml:"port" mapstructure:"port"`
	Name           string `yaml:"name" mapstructure:"name"`
	PasswordEnv    string `yaml:"password_env" mapstructure:"password_env"`
	MaxRetries     int    `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelayMs   int    `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
	WriteQueueSize int    `yaml:"write_queue_size" mapstructure:"write_queue_size"`
}

// SemanticConfig holds completion service provider configuration, used for
// both structural extraction and answer synthesis.
type SemanticConfig struct {
	Provider       string  `yaml:"provider" mapstructure:"provider"`
	Model          string  `yaml:"model" mapstructure:"model"`
	RateLimit      int     `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSeconds int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries"`
	APIKey         *string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	APIKeyEnv      string  `yaml:"api_key_env" mapstructure:"api_key_env"`
}

// ResolveAPIKey returns the API key from config or falls back to environment variable.
func (c *SemanticConfig) ResolveAPIKey() string {
	if c.APIKey != nil && *c.APIKey != "" {
		return *c.APIKey
	}
	return os.Getenv(c.APIKeyEnv)
}

// EmbeddingsConfig holds embedding service provider configuration.
type EmbeddingsConfig struct {
	Provider       string  `yaml:"provider" mapstructure:"provider"`
	Model          string  `yaml:"model" mapstructure:"model"`
	Dimensions     int     `yaml:"dimensions" mapstructure:"dimensions"`
	BatchSize      int     `yaml:"batch_size" mapstructure:"batch_size"`
	RateLimit      int     `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSeconds int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries"`
	APIKey         *string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	APIKeyEnv      string  `yaml:"api_key_env" mapstructure:"api_key_env"`
}

// ResolveAPIKey returns the API key from config or falls back to environment variable.
func (c *EmbeddingsConfig) ResolveAPIKey() string {
	if c.APIKey != nil && *c.APIKey != "" {
		return *c.APIKey
	}
	return os.Getenv(c.APIKeyEnv)
}

// ChunkingConfig holds chunk splitting configuration.
// Sizes are measured in characters.
type ChunkingConfig struct {
	Size       int      `yaml:"size" mapstructure:"size"`
	Overlap    int      `yaml:"overlap" mapstructure:"overlap"`
	Extensions []string `yaml:"extensions,flow" mapstructure:"extensions"`
}

// IngestConfig holds repository walking configuration.
type IngestConfig struct {
	Workers         int      `yaml:"workers" mapstructure:"workers"`
	ExtractWorkers  int      `yaml:"extract_workers" mapstructure:"extract_workers"`
	ExcludePatterns []string `yaml:"exclude_patterns,flow" mapstructure:"exclude_patterns"`
	MaxFileSizeMB   int      `yaml:"max_file_size_mb" mapstructure:"max_file_size_mb"`
	SkipHidden      bool     `yaml:"skip_hidden" mapstructure:"skip_hidden"`
}

// BridgeConfig holds chunk-to-entity linking configuration.
type BridgeConfig struct {
	MinConfidence float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
}

// QueryConfig holds hybrid query engine configuration.
type QueryConfig struct {
	TopK                int     `yaml:"top_k" mapstructure:"top_k"`
	SimilarityFloor     float64 `yaml:"similarity_floor" mapstructure:"similarity_floor"`
	TraversalDepth      int     `yaml:"traversal_depth" mapstructure:"traversal_depth"`
	IncludeGraphContext bool    `yaml:"include_graph_context" mapstructure:"include_graph_context"`
	TimeoutSeconds      int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// CacheConfig holds the embeddings cache configuration. The cache rides the
// same Redis server as the graph store.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled" mapstructure:"enabled"`
	TTLHours int  `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}
