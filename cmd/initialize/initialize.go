// Package initialize implements the init command for writing a starter
// configuration file.
package initialize

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codegraph-labs/codegraph/internal/config"
)

var (
	initForce bool
	initPath  string
)

// InitCmd writes a default configuration file.
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: "Write a starter configuration file with commented defaults.\n\n" +
		"The file is written to ~/.config/codegraph/config.yaml unless --path " +
		"is given. API keys are never stored in the file; set the environment " +
		"variables named by the semantic and embeddings sections instead.",
	Example: `  # Write the default config
  codegraph init

  # Overwrite an existing config
  codegraph init --force

  # Write to a custom location
  codegraph init --path ./config.yaml`,
	PreRunE: validateInit,
	RunE:    runInit,
}

func init() {
	InitCmd.Flags().BoolVar(&initForce, "force", false,
		"Overwrite an existing config file")
	InitCmd.Flags().StringVar(&initPath, "path", "",
		"Config file location (default ~/.config/codegraph/config.yaml)")
}

func validateInit(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	path := initPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s; use --force to overwrite", path)
	}

	cfg := config.NewDefaultConfig()
	if err := config.Write(&cfg, path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote config to %s\n", path)
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s before ingesting or querying.\n", cfg.Embeddings.APIKeyEnv)
	return nil
}
