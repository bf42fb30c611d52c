package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a config validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("config validation failed:\n")
	for _, err := range e {
		b.WriteString("  - ")
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

// validProviders lists recognized completion/embedding providers.
var validProviders = []string{"openai", "google"}

// Validate checks a Config for invalid values. Returns ValidationErrors
// listing every failure, or nil when the config is valid.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if _, ok := ParseLogLevel(cfg.LogLevel); !ok {
		errs = append(errs, ValidationError{"log_level", fmt.Sprintf("unrecognized level %q", cfg.LogLevel)})
	}

	if cfg.Graph.Host == "" {
		errs = append(errs, ValidationError{"graph.host", "must not be empty"})
	}
	if cfg.Graph.Port <= 0 || cfg.Graph.Port > 65535 {
		errs = append(errs, ValidationError{"graph.port", fmt.Sprintf("invalid port %d", cfg.Graph.Port)})
	}
	if cfg.Graph.Name == "" {
		errs = append(errs, ValidationError{"graph.name", "must not be empty"})
	}
	if cfg.Graph.MaxRetries < 0 {
		errs = append(errs, ValidationError{"graph.max_retries", "must not be negative"})
	}
	if cfg.Graph.WriteQueueSize <= 0 {
		errs = append(errs, ValidationError{"graph.write_queue_size", "must be positive"})
	}

	if !isValidProvider(cfg.Semantic.Provider) {
		errs = append(errs, ValidationError{"semantic.provider", fmt.Sprintf("unrecognized provider %q", cfg.Semantic.Provider)})
	}
	if !isValidProvider(cfg.Embeddings.Provider) {
		errs = append(errs, ValidationError{"embeddings.provider", fmt.Sprintf("unrecognized provider %q", cfg.Embeddings.Provider)})
	}
	if cfg.Embeddings.Dimensions <= 0 {
		errs = append(errs, ValidationError{"embeddings.dimensions", "must be positive"})
	}
	if cfg.Embeddings.BatchSize <= 0 {
		errs = append(errs, ValidationError{"embeddings.batch_size", "must be positive"})
	}

	if cfg.Chunking.Size <= 0 {
		errs = append(errs, ValidationError{"chunking.size", "must be positive"})
	}
	if cfg.Chunking.Overlap < 0 {
		errs = append(errs, ValidationError{"chunking.overlap", "must not be negative"})
	}
	if cfg.Chunking.Overlap >= cfg.Chunking.Size && cfg.Chunking.Size > 0 {
		errs = append(errs, ValidationError{"chunking.overlap", "must be strictly less than chunking.size"})
	}

	if cfg.Ingest.Workers <= 0 {
		errs = append(errs, ValidationError{"ingest.workers", "must be positive"})
	}
	if cfg.Ingest.ExtractWorkers <= 0 {
		errs = append(errs, ValidationError{"ingest.extract_workers", "must be positive"})
	}
	if cfg.Ingest.MaxFileSizeMB <= 0 {
		errs = append(errs, ValidationError{"ingest.max_file_size_mb", "must be positive"})
	}

	if cfg.Bridge.MinConfidence <= 0 || cfg.Bridge.MinConfidence > 1 {
		errs = append(errs, ValidationError{"bridge.min_confidence", "must be in (0, 1]"})
	}

	if cfg.Query.TopK <= 0 {
		errs = append(errs, ValidationError{"query.top_k", "must be positive"})
	}
	if cfg.Query.SimilarityFloor < -1 || cfg.Query.SimilarityFloor > 1 {
		errs = append(errs, ValidationError{"query.similarity_floor", "must be in [-1, 1]"})
	}
	if cfg.Query.TraversalDepth < 0 {
		errs = append(errs, ValidationError{"query.traversal_depth", "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func isValidProvider(name string) bool {
	for _, p := range validProviders {
		if name == p {
			return true
		}
	}
	return false
}

// ParseLogLevel reports whether the given level name is recognized.
// Kept here so validation does not depend on the logging package.
func ParseLogLevel(s string) (string, bool) {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "error":
		return strings.ToLower(s), true
	default:
		return "", false
	}
}
