// Package pipeline orchestrates a full ingestion pass: file and chunk
// upserts, then structural extraction and embedding in parallel, then
// bridge linking.
package pipeline

import (
	"context"
	"log/slog"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codegraph-labs/codegraph/internal/bridge"
	"github.com/codegraph-labs/codegraph/internal/chunker"
	"github.com/codegraph-labs/codegraph/internal/extract"
	"github.com/codegraph-labs/codegraph/internal/graph"
	"github.com/codegraph-labs/codegraph/internal/index"
	"github.com/codegraph-labs/codegraph/internal/ingest"

	"github.com/google/uuid"
)

// Pipeline runs ingestion passes. The extractor and indexer are optional;
// a nil stage is skipped, which backs the --skip-extract and --skip-embed
// flags.
type Pipeline struct {
	store     graph.Store
	splitter  *chunker.Splitter
	extractor *extract.Extractor
	indexer   *index.Indexer
	linker    *bridge.Linker
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithExtractor enables the structural extraction stage.
func WithExtractor(e *extract.Extractor) Option {
	return func(p *Pipeline) {
		p.extractor = e
	}
}

// WithIndexer enables the embedding stage.
func WithIndexer(ix *index.Indexer) Option {
	return func(p *Pipeline) {
		p.indexer = ix
	}
}

// WithLinker enables the bridge linking stage. Linking needs embedded
// chunks, so it only runs when the indexer ran too.
func WithLinker(l *bridge.Linker) Option {
	return func(p *Pipeline) {
		p.linker = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a Pipeline writing to store, splitting with splitter.
func New(store graph.Store, splitter *chunker.Splitter, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    store,
		splitter: splitter,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Report summarizes one ingestion run. TokensEstimate is the approximate
// token volume of the chunked text, for gauging extraction cost.
type Report struct {
	RunID          string          `json:"run_id"`
	Files          int             `json:"files"`
	Chunks         int             `json:"chunks"`
	TokensEstimate int             `json:"tokens_estimate"`
	Extract        *extract.Report `json:"extract,omitempty"`
	Index          *index.Report   `json:"index,omitempty"`
	Bridge         *bridge.Report  `json:"bridge,omitempty"`
	Duration       time.Duration   `json:"duration"`
}

// Run ingests the documents. Re-running over unchanged content merges by
// natural key everywhere, so node and edge counts stay put.
func (p *Pipeline) Run(ctx context.Context, docs []ingest.Document) (*Report, error) {
	started := time.Now()
	report := &Report{RunID: uuid.NewString()}
	logger := p.logger.With("run_id", report.RunID)

	logger.Info("ingestion run starting", "files", len(docs))

	var allChunks []chunker.Chunk
	var filePaths []string

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		chunks := p.splitter.Split(doc.Path, doc.Language, doc.Content)
		if len(chunks) == 0 {
			continue
		}

		file := fileNode(doc, len(chunks))
		if err := p.store.UpsertFile(ctx, file); err != nil {
			return report, err
		}
		for _, chunk := range chunks {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := p.store.UpsertChunk(ctx, chunkNode(chunk)); err != nil {
				return report, err
			}
			report.TokensEstimate += chunker.EstimateTokens(chunk.Text)
		}

		report.Files++
		report.Chunks += len(chunks)
		allChunks = append(allChunks, chunks...)
		filePaths = append(filePaths, doc.Path)
	}

	logger.Info("chunks written",
		"files", report.Files,
		"chunks", report.Chunks,
		"est_tokens", report.TokensEstimate)

	// Extraction and embedding touch disjoint properties, so they run
	// concurrently against the same chunk set.
	g, gctx := errgroup.WithContext(ctx)
	if p.extractor != nil {
		g.Go(func() error {
			r, err := p.extractor.Run(gctx, allChunks)
			report.Extract = r
			return err
		})
	}
	if p.indexer != nil {
		g.Go(func() error {
			r, err := p.indexer.Run(gctx, allChunks)
			report.Index = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	if p.linker != nil && p.indexer != nil {
		r, err := p.linker.Run(ctx, filePaths)
		report.Bridge = r
		if err != nil {
			return report, err
		}
	}

	report.Duration = time.Since(started)
	logger.Info("ingestion run complete",
		"files", report.Files,
		"chunks", report.Chunks,
		"duration", report.Duration)

	return report, nil
}

func fileNode(doc ingest.Document, totalChunks int) *graph.FileNode {
	return &graph.FileNode{
		Path:        doc.Path,
		Name:        path.Base(doc.Path),
		Extension:   path.Ext(doc.Path),
		Language:    doc.Language,
		TotalChunks: totalChunks,
		TotalLines:  doc.Lines,
	}
}

func chunkNode(c chunker.Chunk) *graph.ChunkNode {
	return &graph.ChunkNode{
		ChunkID:   c.ChunkID,
		FilePath:  c.FilePath,
		Text:      c.Text,
		Language:  c.Language,
		Index:     c.Index,
		StartLine: c.StartLine,
		EndLine:   c.EndLine,
	}
}

