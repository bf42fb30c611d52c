// Package query implements the one-shot query command.
package query

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codegraph-labs/codegraph/internal/cmdutil"
	"github.com/codegraph-labs/codegraph/internal/config"
	"github.com/codegraph-labs/codegraph/internal/engine"
)

// Flag variables for the query command.
var (
	queryK       int
	queryGraph   bool
	queryDepth   int
	queryTimeout int
	queryJSON    bool
)

// QueryCmd answers a single question against the ingested graph.
var QueryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question about the ingested code",
	Long: "Ask a question about the ingested code.\n\n" +
		"The question is embedded and matched against chunk vectors; the " +
		"best-matching chunks are expanded through the structural graph and " +
		"both layers feed the synthesized answer. When the graph is " +
		"unavailable mid-query, the answer degrades to vector-only context " +
		"rather than failing.",
	Example: `  # Ask with defaults
  codegraph query "where is authentication handled?"

  # More context, deeper traversal, machine-readable output
  codegraph query "what calls the scheduler?" -k 10 --depth 3 --json

  # Vector search only
  codegraph query "parse configuration" --graph=false`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: validateQuery,
	RunE:    runQuery,
}

func init() {
	QueryCmd.Flags().IntVarP(&queryK, "top-k", "k", 0,
		"Number of chunks to retrieve (default from config)")
	QueryCmd.Flags().BoolVar(&queryGraph, "graph", true,
		"Include graph context (entity mapping and traversal)")
	QueryCmd.Flags().IntVar(&queryDepth, "depth", 0,
		"Traversal depth for graph expansion (default from config)")
	QueryCmd.Flags().IntVar(&queryTimeout, "timeout", 0,
		"Query timeout in seconds (default from config)")
	QueryCmd.Flags().BoolVar(&queryJSON, "json", false,
		"Emit the full result as JSON")
}

func validateQuery(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := cmdutil.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Stop(ctx) }()

	embProvider, err := cmdutil.NewEmbeddingsProvider(cfg)
	if err != nil {
		return err
	}
	semProvider, err := cmdutil.NewSemanticProvider(cfg)
	if err != nil {
		return err
	}
	eng := engine.New(store, embProvider, semProvider, engine.WithLogger(logger))

	result, err := eng.Query(ctx, buildRequest(cfg, strings.Join(args, " ")))
	if err != nil {
		return err
	}

	if queryJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(cmd, result)
	return nil
}

func buildRequest(cfg *config.Config, question string) engine.Request {
	req := engine.Request{
		Query:               question,
		K:                   cfg.Query.TopK,
		SimilarityFloor:     cfg.Query.SimilarityFloor,
		IncludeGraphContext: cfg.Query.IncludeGraphContext && queryGraph,
		TraversalDepth:      cfg.Query.TraversalDepth,
		Timeout:             time.Duration(cfg.Query.TimeoutSeconds) * time.Second,
	}
	if queryK > 0 {
		req.K = queryK
	}
	if queryDepth > 0 {
		req.TraversalDepth = queryDepth
	}
	if queryTimeout > 0 {
		req.Timeout = time.Duration(queryTimeout) * time.Second
	}
	return req
}

func printResult(cmd *cobra.Command, result *engine.Result) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, result.Answer)
	if result.Degraded {
		fmt.Fprintln(out, "\n(graph context unavailable; answer based on vector search only)")
	}
	if len(result.Chunks) > 0 {
		fmt.Fprintln(out, "\nSources:")
		for _, m := range result.Chunks {
			fmt.Fprintf(out, "  %.2f  %s (lines %d-%d)\n",
				m.Score, m.Chunk.FilePath, m.Chunk.StartLine, m.Chunk.EndLine)
		}
	}
	if len(result.Entities) > 0 {
		names := make([]string, 0, len(result.Entities))
		for _, e := range result.Entities {
			names = append(names, e.Name)
		}
		fmt.Fprintf(out, "\nRelated: %s\n", strings.Join(names, ", "))
	}
}
