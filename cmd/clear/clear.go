// Package clear implements the clear command.
package clear

import (
	"bufio"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codegraph-labs/codegraph/internal/cmdutil"
	"github.com/codegraph-labs/codegraph/internal/config"
)

var clearForce bool

// ClearCmd wipes the knowledge graph.
var ClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every node and relationship from the graph",
	Long: "Delete every node and relationship from the graph.\n\n" +
		"This removes all ingested files, chunks, entities, embeddings, and " +
		"bridges. It cannot be undone; re-ingest to rebuild.",
	Example: `  # Clear with confirmation prompt
  codegraph clear

  # Clear without prompting
  codegraph clear --force`,
	Args:    cobra.NoArgs,
	PreRunE: validateClear,
	RunE:    runClear,
}

func init() {
	ClearCmd.Flags().BoolVar(&clearForce, "force", false, "Skip the confirmation prompt")
}

func validateClear(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if !clearForce {
		fmt.Fprint(cmd.OutOrStdout(), "This deletes the entire knowledge graph. Type 'yes' to continue: ")
		reader := bufio.NewReader(cmd.InOrStdin())
		line, _ := reader.ReadString('\n')
		if strings.TrimSpace(line) != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := cmdutil.OpenStore(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = store.Stop(ctx) }()

	if err := store.Clear(ctx); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Graph cleared.")
	return nil
}
