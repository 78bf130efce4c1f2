// Package commands wires the reconciliation engine into the concilia CLI.
package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/buildinfo"
	"github.com/concilia-dev/concilia/internal/config"
	"github.com/concilia-dev/concilia/internal/logging"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var workspace string

	rootCmd := &cobra.Command{
		Use:     "concilia",
		Short:   "Card-network settlement reconciliation",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newCaptureCommand())
	rootCmd.AddCommand(newSettleCommand())
	rootCmd.AddCommand(newAllocateCommand())
	rootCmd.AddCommand(newConfirmCommand())
	rootCmd.AddCommand(newDeleteCommand())
	rootCmd.AddCommand(newStatusCommand())

	return rootCmd
}

// env bundles everything a run command needs from the workspace.
type env struct {
	dir      string
	settings *config.Settings
	log      zerolog.Logger
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	dir, err := cmd.Flags().GetString("workspace")
	if err != nil {
		return nil, err
	}

	settings, err := config.LoadSettings(dir)
	if err != nil {
		return nil, err
	}

	return &env{
		dir:      dir,
		settings: settings,
		log:      logging.New(settings.LogLevel),
	}, nil
}
