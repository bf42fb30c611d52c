package graph

import (
	"context"
	"fmt"
)

// Schema indexes for the graph database.
// These indexes improve query performance for common lookups.

// coreIndexes are indexes on the primary node types.
var coreIndexes = []string{
	// File indexes
	"CREATE INDEX FOR (f:File) ON (f.path)",

	// Chunk indexes
	"CREATE INDEX FOR (c:CodeChunk) ON (c.chunk_id)",
	"CREATE INDEX FOR (c:CodeChunk) ON (c.file_path)",

	// Structural entity indexes
	"CREATE INDEX FOR (e:Class) ON (e.normalized_name)",
	"CREATE INDEX FOR (e:Class) ON (e.file_path)",
	"CREATE INDEX FOR (e:Function) ON (e.normalized_name)",
	"CREATE INDEX FOR (e:Function) ON (e.file_path)",
	"CREATE INDEX FOR (e:Interface) ON (e.normalized_name)",
	"CREATE INDEX FOR (e:Interface) ON (e.file_path)",
	"CREATE INDEX FOR (e:Package) ON (e.normalized_name)",
}

// initSchema creates all indexes for the graph.
// Safe to call multiple times - existing indexes are ignored.
func (s *FalkorDBStore) initSchema(ctx context.Context) error {
	for _, query := range coreIndexes {
		if _, err := s.execQuery(query); err != nil {
			// Ignore errors for existing indexes
			s.logger.Debug("schema query", "query", query, "error", err)
		}
	}

	if err := s.initVectorIndex(ctx); err != nil {
		s.logger.Warn("failed to create vector index", "error", err)
	}

	return nil
}

// initVectorIndex creates the HNSW cosine index over CodeChunk.embedding.
// The dimension is fixed for the lifetime of the store instance.
func (s *FalkorDBStore) initVectorIndex(ctx context.Context) error {
	dim := s.config.EmbeddingDimension
	if dim == 0 {
		dim = 3072 // text-embedding-3-large
	}

	query := fmt.Sprintf(`
		CREATE VECTOR INDEX FOR (c:CodeChunk) ON (c.embedding)
		OPTIONS {
			indexType: 'HNSW',
			dimension: %d,
			similarityFunction: 'cosine'
		}
	`, dim)

	if _, err := s.execQuery(query); err != nil {
		// Try alternative syntax for older FalkorDB versions
		altQuery := fmt.Sprintf(
			"CALL db.idx.vector.createNodeIndex('CodeChunk', 'embedding', %d, 'cosine')", dim)
		if _, altErr := s.execQuery(altQuery); altErr != nil {
			s.logger.Debug("vector index creation failed",
				"primary_error", err,
				"alt_error", altErr)
			// Index may already exist, not fatal
		}
	}

	s.logger.Info("vector index created/verified",
		"label", "CodeChunk",
		"property", "embedding",
		"dimension", dim)

	return nil
}
