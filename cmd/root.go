package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/codegraph-labs/codegraph/cmd/chat"
	"github.com/codegraph-labs/codegraph/cmd/clear"
	"github.com/codegraph-labs/codegraph/cmd/ingest"
	"github.com/codegraph-labs/codegraph/cmd/initialize"
	"github.com/codegraph-labs/codegraph/cmd/query"
	"github.com/codegraph-labs/codegraph/cmd/stats"
	versioncmd "github.com/codegraph-labs/codegraph/cmd/version"
	"github.com/codegraph-labs/codegraph/cmd/watch"
	"github.com/codegraph-labs/codegraph/internal/config"
	"github.com/codegraph-labs/codegraph/internal/logging"
)

// logManager is the global logging manager, created in init() and
// upgraded to file logging once config is loaded.
var logManager *logging.Manager

var rootCmd = &cobra.Command{
	Use:   "codegraph",
	Short: "Hybrid graph and vector retrieval over source code",
	Long: "Codegraph ingests a repository into a dual-layer knowledge representation: " +
		"a structural graph of classes, functions, interfaces, and packages, plus semantic " +
		"embeddings of the raw code. Questions are answered by combining cosine similarity " +
		"search with bounded traversal of the structural graph.",
	PersistentPreRunE: runInitialize,
}

func init() {
	logManager = logging.NewManager()

	rootCmd.AddCommand(initialize.InitCmd)
	rootCmd.AddCommand(ingest.IngestCmd)
	rootCmd.AddCommand(query.QueryCmd)
	rootCmd.AddCommand(chat.ChatCmd)
	rootCmd.AddCommand(stats.StatsCmd)
	rootCmd.AddCommand(clear.ClearCmd)
	rootCmd.AddCommand(watch.WatchCmd)
	rootCmd.AddCommand(versioncmd.VersionCmd)
}

func runInitialize(cmd *cobra.Command, args []string) error {
	logger := logManager.Logger()

	if err := config.Init(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok {
		level = logging.DefaultLevel
		if cfg.LogLevel != "" {
			logger.Warn("invalid log level configured, using default",
				"configured", cfg.LogLevel, "default", "info")
		}
	}

	err = logManager.Upgrade(logging.FileOptions{
		Path:       config.GetPath("log_file"),
		Level:      level,
		MaxSizeMB:  cfg.LogRotation.MaxSizeMB,
		MaxBackups: cfg.LogRotation.MaxBackups,
		MaxAgeDays: cfg.LogRotation.MaxAgeDays,
		Compress:   cfg.LogRotation.Compress,
	})
	if err != nil {
		logger.Warn("failed to enable file logging, continuing with stderr only", "error", err)
	}

	// Commands reach the managed logger through the default.
	slog.SetDefault(logManager.Logger())

	return nil
}

// Execute runs the root command.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	defer func() { _ = logManager.Close() }()

	err := rootCmd.Execute()
	if err != nil {
		sub, _, _ := rootCmd.Find(os.Args[1:])
		if sub == nil {
			sub = rootCmd
		}

		fmt.Printf("Error: %v\n", err)
		if !sub.SilenceUsage {
			fmt.Printf("\n")
			sub.SetOut(os.Stdout)
			_ = sub.Usage()
		}

		return err
	}

	return nil
}
