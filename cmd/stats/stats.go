// Package stats implements the stats command.
package stats

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/codegraph-labs/codegraph/internal/cmdutil"
	"github.com/codegraph-labs/codegraph/internal/config"
)

var statsJSON bool

// StatsCmd summarizes graph contents.
var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge graph statistics",
	Long: "Show knowledge graph statistics: node counts per label, " +
		"relationship counts per kind, embedded chunk count, and whether " +
		"the vector index is present.",
	Example: `  codegraph stats
  codegraph stats --json`,
	Args:    cobra.NoArgs,
	PreRunE: validateStats,
	RunE:    runStats,
}

func init() {
	StatsCmd.Flags().BoolVar(&statsJSON, "json", false, "Emit statistics as JSON")
}

func validateStats(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := cmdutil.OpenStore(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = store.Stop(ctx) }()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Fprintln(out, "Nodes:")
	for _, label := range sortedKeys(stats.Nodes) {
		fmt.Fprintf(out, "  %-12s %d\n", label, stats.Nodes[label])
	}
	fmt.Fprintln(out, "Relationships:")
	for _, kind := range sortedKeys(stats.Relationships) {
		fmt.Fprintf(out, "  %-16s %d\n", kind, stats.Relationships[kind])
	}
	fmt.Fprintf(out, "Embedded chunks: %d\n", stats.EmbeddedChunks)
	fmt.Fprintf(out, "Vector index:    %v\n", stats.VectorIndexPresent)
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
