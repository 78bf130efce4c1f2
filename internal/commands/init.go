package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/config"
	"github.com/concilia-dev/concilia/internal/provider"
)

func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new reconciliation workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(absDir)
		},
	}

	return cmd
}

func runInit(dir string) error {
	profiles := provider.BuiltIn()

	dirs := []string{
		"import",
		filepath.Join("import", "processed"),
		"exports",
		"logs",
		"records",
	}
	for _, p := range profiles {
		dirs = append(dirs, filepath.Join("records", string(p.Code)))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.SaveSettings(dir, config.DefaultSettings()); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := config.SaveProviders(dir, profiles); err != nil {
		return fmt.Errorf("writing providers: %w", err)
	}
	if err := config.SaveFeeRules(dir, nil); err != nil {
		return fmt.Errorf("writing fee rules: %w", err)
	}
	if err := config.SaveHolidays(dir, nil); err != nil {
		return fmt.Errorf("writing calendar: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	fmt.Printf("Initialized concilia workspace at %s\n", dir)
	return nil
}
