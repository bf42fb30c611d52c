// Package chat implements the interactive chat command.
package chat

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/codegraph-labs/codegraph/internal/cmdutil"
	"github.com/codegraph-labs/codegraph/internal/config"
	"github.com/codegraph-labs/codegraph/internal/engine"
	"github.com/codegraph-labs/codegraph/internal/tui/chat"
)

// ChatCmd starts an interactive question-answering session.
var ChatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question-answering over the ingested code",
	Long: "Interactive question-answering over the ingested code.\n\n" +
		"Each question runs through the same hybrid retrieval pipeline as " +
		"the query command; answers show their supporting chunks and whether " +
		"graph context was available.",
	Example: `  codegraph chat`,
	Args:    cobra.NoArgs,
	PreRunE: validateChat,
	RunE:    runChat,
}

func validateChat(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
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

	return chat.Run(eng, engine.Request{
		K:                   cfg.Query.TopK,
		SimilarityFloor:     cfg.Query.SimilarityFloor,
		IncludeGraphContext: cfg.Query.IncludeGraphContext,
		TraversalDepth:      cfg.Query.TraversalDepth,
		Timeout:             time.Duration(cfg.Query.TimeoutSeconds) * time.Second,
	})
}
