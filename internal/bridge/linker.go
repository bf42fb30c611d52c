// Package bridge links embedded chunks to the structural entities they
// cover, connecting the semantic layer to the graph layer. Every embedded
// chunk ends up with at least one bridge edge: REPRESENTS plus an
// entity-level PART_OF_FILE when a confident match exists, a file-level
// PART_OF_FILE otherwise.
package bridge

import (
	"context"
	"log/slog"
	"strings"

	"github.com/codegraph-labs/codegraph/internal/graph"
)

// DefaultMinConfidence is the match threshold applied when none is
// configured.
const DefaultMinConfidence = 0.35

// Linker computes chunk-to-entity bridges for ingested files.
type Linker struct {
	store         graph.Store
	minConfidence float64
	logger        *slog.Logger
}

// Option configures a Linker.
type Option func(*Linker)

// WithMinConfidence sets the minimum match score for an entity-level
// bridge.
func WithMinConfidence(c float64) Option {
	return func(l *Linker) {
		if c > 0 {
			l.minConfidence = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Linker) {
		l.logger = logger
	}
}

// New creates a Linker writing bridges to store.
func New(store graph.Store, opts ...Option) *Linker {
	l := &Linker{
		store:         store,
		minConfidence: DefaultMinConfidence,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Report summarizes one linking run.
type Report struct {
	// ChunksLinked counts chunks bridged to an entity.
	ChunksLinked int `json:"chunks_linked"`

	// FileFallbacks counts chunks bridged to their file only.
	FileFallbacks int `json:"file_fallbacks"`

	// Ties counts chunks where two entities scored identically and the
	// shorter identifier won.
	Ties int `json:"ties"`
}

// Run bridges every embedded chunk of the given files. Re-running replaces
// prior bridge edges rather than accumulating them: ReplaceBridge is a
// delete-then-create per chunk.
func (l *Linker) Run(ctx context.Context, filePaths []string) (*Report, error) {
	report := &Report{}

	for _, path := range filePaths {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		entities, err := l.store.EntitiesForFile(ctx, path)
		if err != nil {
			return report, err
		}
		chunks, err := l.store.EmbeddedChunksForFile(ctx, path)
		if err != nil {
			return report, err
		}

		for _, chunk := range chunks {
			best, tie := l.bestMatch(chunk, entities)
			if tie {
				report.Ties++
			}

			if best == nil {
				if err := l.store.ReplaceBridge(ctx, chunk.ChunkID, path, nil); err != nil {
					return report, err
				}
				report.FileFallbacks++
				continue
			}

			if err := l.store.ReplaceBridge(ctx, chunk.ChunkID, path, best); err != nil {
				return report, err
			}
			report.ChunksLinked++
		}
	}

	l.logger.Info("bridge linking complete",
		"linked", report.ChunksLinked,
		"file_fallbacks", report.FileFallbacks,
		"ties", report.Ties)

	return report, nil
}

// bestMatch scores every entity against the chunk and returns the single
// best one above the confidence threshold, or nil when none qualifies.
// Score ties are resolved toward the shortest normalized identifier and
// reported for audit.
func (l *Linker) bestMatch(chunk graph.ChunkNode, entities []graph.EntityNode) (*graph.EntityNode, bool) {
	var best *graph.EntityNode
	bestScore := 0.0
	tie := false

	for i := range entities {
		entity := &entities[i]
		score := matchScore(chunk, *entity)
		if score < l.minConfidence {
			continue
		}

		switch {
		case best == nil || score > bestScore:
			best = entity
			bestScore = score
			tie = false
		case score == bestScore:
			tie = true
			if len(entity.NormalizedName) < len(best.NormalizedName) {
				best = entity
			}
		}
	}

	if tie && best != nil {
		l.logger.Debug("bridge tie resolved",
			"chunk_id", chunk.ChunkID,
			"winner", best.NormalizedName,
			"score", bestScore)
	}
	return best, tie
}

// matchScore scores one entity against one chunk. Entities with a declared
// span are scored by line overlap; the rest by identifier occurrence in
// the chunk text.
func matchScore(chunk graph.ChunkNode, entity graph.EntityNode) float64 {
	if entity.HasSpan() {
		return spanScore(chunk.StartLine, chunk.EndLine, entity.StartLine, entity.EndLine)
	}
	return occurrenceScore(chunk.Text, entity.NormalizedName)
}

// spanScore is the fraction of the chunk's line range covered by the
// entity's declared span.
func spanScore(chunkStart, chunkEnd, entityStart, entityEnd int) float64 {
	if chunkEnd < chunkStart {
		return 0
	}
	lo := chunkStart
	if entityStart > lo {
		lo = entityStart
	}
	hi := chunkEnd
	if entityEnd < hi {
		hi = entityEnd
	}
	if hi < lo {
		return 0
	}
	return float64(hi-lo+1) / float64(chunkEnd-chunkStart+1)
}

// occurrenceScore scores how strongly the chunk text mentions the
// identifier: each case-insensitive occurrence contributes 0.4, plus a
// 0.2 bonus when at least one occurrence sits on word boundaries, capped
// at 1.0.
func occurrenceScore(text, identifier string) float64 {
	if identifier == "" {
		return 0
	}
	lower := strings.ToLower(text)
	matches := strings.Count(lower, identifier)
	if matches == 0 {
		return 0
	}

	bonus := 0.0
	if hasWordBoundaryMatch(lower, identifier) {
		bonus = 0.2
	}

	score := float64(matches)*0.4 + bonus
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// hasWordBoundaryMatch reports whether identifier occurs in text bounded
// by non-identifier characters on both sides.
func hasWordBoundaryMatch(text, identifier string) bool {
	for at := 0; ; {
		i := strings.Index(text[at:], identifier)
		if i < 0 {
			return false
		}
		start := at + i
		end := start + len(identifier)
		if (start == 0 || !isIdentChar(text[start-1])) &&
			(end == len(text) || !isIdentChar(text[end])) {
			return true
		}
		at = start + 1
	}
}

func isIdentChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
