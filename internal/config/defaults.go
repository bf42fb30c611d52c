package config

import "github.com/spf13/viper"

// Default configuration values.
const (
	LogLevel = "info"
	LogFile  = "~/.config/codegraph/codegraph.log"

	LogRotationMaxSizeMB  = 50
	LogRotationMaxBackups = 5
	LogRotationMaxAgeDays = 30

	GraphHost           = "localhost"
	GraphPort           = 6379
	GraphName           = "codegraph"
	GraphPasswordEnv    = "CODEGRAPH_GRAPH_PASSWORD"
	GraphMaxRetries     = 3
	GraphRetryDelayMs   = 1000
	GraphWriteQueueSize = 1000

	SemanticProvider       = "openai"
	SemanticModel          = "gpt-4o"
	SemanticRateLimit      = 60 // requests per minute
	SemanticTimeoutSeconds = 120
	SemanticMaxRetries     = 3
	SemanticAPIKeyEnv      = "OPENAI_API_KEY"

	EmbeddingsProvider       = "openai"
	EmbeddingsModel          = "text-embedding-3-large"
	EmbeddingsDimensions     = 3072
	EmbeddingsBatchSize      = 64
	EmbeddingsRateLimit      = 300 // requests per minute
	EmbeddingsTimeoutSeconds = 60
	EmbeddingsMaxRetries     = 3
	EmbeddingsAPIKeyEnv      = "OPENAI_API_KEY"

	ChunkSize    = 500
	ChunkOverlap = 50

	IngestWorkers        = 4
	IngestExtractWorkers = 4
	IngestMaxFileSizeMB  = 10

	BridgeMinConfidence = 0.35

	QueryTopK            = 5
	QuerySimilarityFloor = 0.0
	QueryTraversalDepth  = 2
	QueryTimeoutSeconds  = 60

	CacheTTLHours = 720
)

// DefaultExtensions are the file extensions indexed when none are configured.
var DefaultExtensions = []string{".py", ".java", ".js", ".ts"}

// DefaultExcludePatterns are path fragments skipped during repository walks.
var DefaultExcludePatterns = []string{
	".git", "node_modules", "__pycache__", "vendor",
	"dist", "build", "target", ".venv", "venv",
}

// setDefaults registers all default configuration values with viper.
// Called during Init() before reading config files.
func setDefaults() {
	viper.SetDefault("log_level", LogLevel)
	viper.SetDefault("log_file", LogFile)
	viper.SetDefault("log_rotation.max_size_mb", LogRotationMaxSizeMB)
	viper.SetDefault("log_rotation.max_backups", LogRotationMaxBackups)
	viper.SetDefault("log_rotation.max_age_days", LogRotationMaxAgeDays)
	viper.SetDefault("log_rotation.compress", false)

	viper.SetDefault("graph.host", GraphHost)
	viper.SetDefault("graph.port", GraphPort)
	viper.SetDefault("graph.name", GraphName)
	viper.SetDefault("graph.password_env", GraphPasswordEnv)
	viper.SetDefault("graph.max_retries", GraphMaxRetries)
	viper.SetDefault("graph.retry_delay_ms", GraphRetryDelayMs)
	viper.SetDefault("graph.write_queue_size", GraphWriteQueueSize)

	viper.SetDefault("semantic.provider", SemanticProvider)
	viper.SetDefault("semantic.model", SemanticModel)
	viper.SetDefault("semantic.rate_limit", SemanticRateLimit)
	viper.SetDefault("semantic.timeout_seconds", SemanticTimeoutSeconds)
	viper.SetDefault("semantic.max_retries", SemanticMaxRetries)
	viper.SetDefault("semantic.api_key_env", SemanticAPIKeyEnv)

	viper.SetDefault("embeddings.provider", EmbeddingsProvider)
	viper.SetDefault("embeddings.model", EmbeddingsModel)
	viper.SetDefault("embeddings.dimensions", EmbeddingsDimensions)
	viper.SetDefault("embeddings.batch_size", EmbeddingsBatchSize)
	viper.SetDefault("embeddings.rate_limit", EmbeddingsRateLimit)
	viper.SetDefault("embeddings.timeout_seconds", EmbeddingsTimeoutSeconds)
	viper.SetDefault("embeddings.max_retries", EmbeddingsMaxRetries)
	viper.SetDefault("embeddings.api_key_env", EmbeddingsAPIKeyEnv)

	viper.SetDefault("chunking.size", ChunkSize)
	viper.SetDefault("chunking.overlap", ChunkOverlap)
	viper.SetDefault("chunking.extensions", DefaultExtensions)

	viper.SetDefault("ingest.workers", IngestWorkers)
	viper.SetDefault("ingest.extract_workers", IngestExtractWorkers)
	viper.SetDefault("ingest.exclude_patterns", DefaultExcludePatterns)
	viper.SetDefault("ingest.max_file_size_mb", IngestMaxFileSizeMB)
	viper.SetDefault("ingest.skip_hidden", true)

	viper.SetDefault("bridge.min_confidence", BridgeMinConfidence)

	viper.SetDefault("query.top_k", QueryTopK)
	viper.SetDefault("query.similarity_floor", QuerySimilarityFloor)
	viper.SetDefault("query.traversal_depth", QueryTraversalDepth)
	viper.SetDefault("query.include_graph_context", true)
	viper.SetDefault("query.timeout_seconds", QueryTimeoutSeconds)

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.ttl_hours", CacheTTLHours)
}

// setViperDefaults registers defaults on a dedicated viper instance.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("log_level", LogLevel)
	v.SetDefault("log_file", LogFile)
	v.SetDefault("log_rotation.max_size_mb", LogRotationMaxSizeMB)
	v.SetDefault("log_rotation.max_backups", LogRotationMaxBackups)
	v.SetDefault("log_rotation.max_age_days", LogRotationMaxAgeDays)
	v.SetDefault("log_rotation.compress", false)

	v.SetDefault("graph.host", GraphHost)
	v.SetDefault("graph.port", GraphPort)
	v.SetDefault("graph.name", GraphName)
	v.SetDefault("graph.password_env", GraphPasswordEnv)
	v.SetDefault("graph.max_retries", GraphMaxRetries)
	v.SetDefault("graph.retry_delay_ms", GraphRetryDelayMs)
	v.SetDefault("graph.write_queue_size", GraphWriteQueueSize)

	v.SetDefault("semantic.provider", SemanticProvider)
	v.SetDefault("semantic.model", SemanticModel)
	v.SetDefault("semantic.rate_limit", SemanticRateLimit)
	v.SetDefault("semantic.timeout_seconds", SemanticTimeoutSeconds)
	v.SetDefault("semantic.max_retries", SemanticMaxRetries)
	v.SetDefault("semantic.api_key_env", SemanticAPIKeyEnv)

	v.SetDefault("embeddings.provider", EmbeddingsProvider)
	v.SetDefault("embeddings.model", EmbeddingsModel)
	v.SetDefault("embeddings.dimensions", EmbeddingsDimensions)
	v.SetDefault("embeddings.batch_size", EmbeddingsBatchSize)
	v.SetDefault("embeddings.rate_limit", EmbeddingsRateLimit)
	v.SetDefault("embeddings.timeout_seconds", EmbeddingsTimeoutSeconds)
	v.SetDefault("embeddings.max_retries", EmbeddingsMaxRetries)
	v.SetDefault("embeddings.api_key_env", EmbeddingsAPIKeyEnv)

	v.SetDefault("chunking.size", ChunkSize)
	v.SetDefault("chunking.overlap", ChunkOverlap)
	v.SetDefault("chunking.extensions", DefaultExtensions)

	v.SetDefault("ingest.workers", IngestWorkers)
	v.SetDefault("ingest.extract_workers", IngestExtractWorkers)
	v.SetDefault("ingest.exclude_patterns", DefaultExcludePatterns)
	v.SetDefault("ingest.max_file_size_mb", IngestMaxFileSizeMB)
	v.SetDefault("ingest.skip_hidden", true)

	v.SetDefault("bridge.min_confidence", BridgeMinConfidence)

	v.SetDefault("query.top_k", QueryTopK)
	v.SetDefault("query.similarity_floor", QuerySimilarityFloor)
	v.SetDefault("query.traversal_depth", QueryTraversalDepth)
	v.SetDefault("query.include_graph_context", true)
	v.SetDefault("query.timeout_seconds", QueryTimeoutSeconds)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl_hours", CacheTTLHours)
}

// NewDefaultConfig returns a Config populated with default values.
func NewDefaultConfig() Config {
	return Config{
		LogLevel: LogLevel,
		LogFile:  LogFile,
		LogRotation: LogRotationConfig{
			MaxSizeMB:  LogRotationMaxSizeMB,
			MaxBackups: LogRotationMaxBackups,
			MaxAgeDays: LogRotationMaxAgeDays,
		},
		Graph: GraphConfig{
			Host:           GraphHost,
			Port:           GraphPort,
			Name:           GraphName,
			PasswordEnv:    GraphPasswordEnv,
			MaxRetries:     GraphMaxRetries,
			RetryDelayMs:   GraphRetryDelayMs,
			WriteQueueSize: GraphWriteQueueSize,
		},
		Semantic: SemanticConfig{
			Provider:       SemanticProvider,
			Model:          SemanticModel,
			RateLimit:      SemanticRateLimit,
			TimeoutSeconds: SemanticTimeoutSeconds,
			MaxRetries:     SemanticMaxRetries,
			APIKeyEnv:      SemanticAPIKeyEnv,
		},
		Embeddings: EmbeddingsConfig{
			Provider:       EmbeddingsProvider,
			Model:          EmbeddingsModel,
			Dimensions:     EmbeddingsDimensions,
			BatchSize:      EmbeddingsBatchSize,
			RateLimit:      EmbeddingsRateLimit,
			TimeoutSeconds: EmbeddingsTimeoutSeconds,
			MaxRetries:     EmbeddingsMaxRetries,
			APIKeyEnv:      EmbeddingsAPIKeyEnv,
		},
		Chunking: ChunkingConfig{
			Size:       ChunkSize,
			Overlap:    ChunkOverlap,
			Extensions: append([]string(nil), DefaultExtensions...),
		},
		Ingest: IngestConfig{
			Workers:         IngestWorkers,
			ExtractWorkers:  IngestExtractWorkers,
			ExcludePatterns: append([]string(nil), DefaultExcludePatterns...),
			MaxFileSizeMB:   IngestMaxFileSizeMB,
			SkipHidden:      true,
		},
		Bridge: BridgeConfig{
			MinConfidence: BridgeMinConfidence,
		},
		Query: QueryConfig{
			TopK:                QueryTopK,
			SimilarityFloor:     QuerySimilarityFloor,
			TraversalDepth:      QueryTraversalDepth,
			IncludeGraphContext: true,
			TimeoutSeconds:      QueryTimeoutSeconds,
		},
		Cache: CacheConfig{
			Enabled:  false,
			TTLHours: CacheTTLHours,
		},
	}
}
