// Package ingest implements the ingest command: walk a repository, chunk
// its files, extract structure, embed, and bridge the two layers.
package ingest

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/codegraph-labs/codegraph/internal/bridge"
	"github.com/codegraph-labs/codegraph/internal/chunker"
	"github.com/codegraph-labs/codegraph/internal/cmdutil"
	"github.com/codegraph-labs/codegraph/internal/config"
	"github.com/codegraph-labs/codegraph/internal/extract"
	"github.com/codegraph-labs/codegraph/internal/index"
	"github.com/codegraph-labs/codegraph/internal/ingest"
	"github.com/codegraph-labs/codegraph/internal/pipeline"
)

// Flag variables for the ingest command.
var (
	ingestExtensions   []string
	ingestExclude      []string
	ingestChunkSize    int
	ingestChunkOverlap int
	ingestSkipExtract  bool
	ingestSkipEmbed    bool
)

// IngestCmd runs a full ingestion pass over a repository.
var IngestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Ingest a repository into the knowledge graph",
	Long: "Ingest a repository into the knowledge graph.\n\n" +
		"Files are split into chunks, each chunk is analyzed for structural " +
		"entities and relationships, embedded, and bridged to the entity it " +
		"covers. Re-running over unchanged content is idempotent: nodes and " +
		"edges merge by natural key rather than duplicating.",
	Example: `  # Ingest a project with defaults
  codegraph ingest ~/projects/myapp

  # Restrict to Python and set a larger chunk size
  codegraph ingest ~/projects/myapp --ext .py --chunk-size 800

  # Skip the structural extraction stage
  codegraph ingest ~/projects/myapp --skip-extract`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateIngest,
	RunE:    runIngest,
}

func init() {
	IngestCmd.Flags().StringSliceVar(&ingestExtensions, "ext", nil,
		"File extensions to ingest (default from config)")
	IngestCmd.Flags().StringSliceVar(&ingestExclude, "exclude", nil,
		"Additional path fragments or *.ext patterns to skip")
	IngestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 0,
		"Chunk size in characters (default from config)")
	IngestCmd.Flags().IntVar(&ingestChunkOverlap, "chunk-overlap", -1,
		"Chunk overlap in characters (default from config)")
	IngestCmd.Flags().BoolVar(&ingestSkipExtract, "skip-extract", false,
		"Skip structural extraction")
	IngestCmd.Flags().BoolVar(&ingestSkipEmbed, "skip-embed", false,
		"Skip embedding (also skips bridge linking)")
}

func validateIngest(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	root, err := cmdutil.ResolvePath(args[0])
	if err != nil {
		return err
	}

	// Walk the repository first; a store connection is pointless when the
	// tree yields nothing.
	opts := ingest.DefaultOptions()
	opts.Workers = cfg.Ingest.Workers
	opts.ExcludePatterns = append(cfg.Ingest.ExcludePatterns, ingestExclude...)
	if cfg.Ingest.MaxFileSizeMB > 0 {
		opts.MaxFileSize = int64(cfg.Ingest.MaxFileSizeMB) * 1024 * 1024
	}
	if len(ingestExtensions) > 0 {
		opts.Extensions = ingestExtensions
	} else if len(cfg.Chunking.Extensions) > 0 {
		opts.Extensions = cfg.Chunking.Extensions
	}

	source, err := ingest.NewFolderSource(root, opts, logger)
	if err != nil {
		return err
	}
	docs, err := source.Load(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching files found.")
		return nil
	}

	chunkSize := cfg.Chunking.Size
	if ingestChunkSize > 0 {
		chunkSize = ingestChunkSize
	}
	chunkOverlap := cfg.Chunking.Overlap
	if ingestChunkOverlap >= 0 {
		chunkOverlap = ingestChunkOverlap
	}
	splitter, err := chunker.New(chunker.Options{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	})
	if err != nil {
		return err
	}

	store, err := cmdutil.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Stop(ctx) }()

	var pipelineOpts []pipeline.Option
	pipelineOpts = append(pipelineOpts, pipeline.WithLogger(logger))

	if !ingestSkipExtract {
		semProvider, err := cmdutil.NewSemanticProvider(cfg)
		if err != nil {
			return err
		}
		pipelineOpts = append(pipelineOpts, pipeline.WithExtractor(extract.New(store, semProvider,
			extract.WithWorkers(cfg.Ingest.ExtractWorkers),
			extract.WithRateLimiter(cmdutil.RateLimiterFor(cfg.Semantic.RateLimit)),
			extract.WithRetryPolicy(cmdutil.RetryPolicyFor(cfg.Semantic.MaxRetries, cfg.Semantic.TimeoutSeconds)),
			extract.WithLogger(logger),
		)))
	}

	if !ingestSkipEmbed {
		embProvider, err := cmdutil.NewEmbeddingsProvider(cfg)
		if err != nil {
			return err
		}
		embCache := cmdutil.NewEmbeddingsCache(cfg, logger)
		defer func() {
			if embCache != nil {
				_ = embCache.Close()
			}
		}()
		pipelineOpts = append(pipelineOpts,
			pipeline.WithIndexer(index.New(store, embProvider,
				index.WithBatchSize(cfg.Embeddings.BatchSize),
				index.WithCache(embCache),
				index.WithRateLimiter(cmdutil.RateLimiterFor(cfg.Embeddings.RateLimit)),
				index.WithRetryPolicy(cmdutil.RetryPolicyFor(cfg.Embeddings.MaxRetries, cfg.Embeddings.TimeoutSeconds)),
				index.WithLogger(logger),
			)),
			pipeline.WithLinker(bridge.New(store,
				bridge.WithMinConfidence(cfg.Bridge.MinConfidence),
				bridge.WithLogger(logger),
			)),
		)
	}

	p := pipeline.New(store, splitter, pipelineOpts...)
	report, err := p.Run(ctx, docs)
	if err != nil {
		return err
	}

	printReport(cmd, report, source.Skipped())
	return nil
}

func printReport(cmd *cobra.Command, report *pipeline.Report, skippedFiles int) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s finished in %s\n", report.RunID, report.Duration.Round(10*time.Millisecond))
	fmt.Fprintf(out, "  files:  %d ingested, %d skipped\n", report.Files, skippedFiles)
	fmt.Fprintf(out, "  chunks: %d (~%d tokens)\n", report.Chunks, report.TokensEstimate)
	if report.Extract != nil {
		fmt.Fprintf(out, "  extracted: %d entities, %d relationships (%d chunks skipped, %d quarantined)\n",
			report.Extract.Entities, report.Extract.Relationships,
			report.Extract.ChunksSkipped, report.Extract.Quarantined)
	}
	if report.Index != nil {
		fmt.Fprintf(out, "  embedded: %d/%d (%.0f%% coverage, %d cache hits)\n",
			report.Index.Embedded, report.Index.Total,
			report.Index.Coverage()*100, report.Index.CacheHits)
	}
	if report.Bridge != nil {
		fmt.Fprintf(out, "  bridged: %d to entities, %d file-level\n",
			report.Bridge.ChunksLinked, report.Bridge.FileFallbacks)
	}
}
