package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/config"
	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/period"
	"github.com/concilia-dev/concilia/internal/provider"
	"github.com/concilia-dev/concilia/internal/report"
)

// runScope is the resolved target of a reconciliation command: one
// provider profile and one month.
type runScope struct {
	profile provider.Profile
	period  period.Period
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "", "provider code, e.g. ALELO (required)")
	cmd.Flags().String("month", "", "month to reconcile, YYYY-MM (required)")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("month")
}

func resolveScope(cmd *cobra.Command, e *env) (runScope, error) {
	code, _ := cmd.Flags().GetString("provider")
	month, _ := cmd.Flags().GetString("month")

	per, err := period.Parse(month)
	if err != nil {
		return runScope{}, fmt.Errorf("invalid --month: %w", err)
	}

	profiles, err := config.LoadProviders(e.dir)
	if err != nil {
		return runScope{}, err
	}
	reg := provider.NewRegistry(profiles)
	prof := reg.Get(model.Provider(strings.ToUpper(code)))

	return runScope{profile: prof, period: per}, nil
}

func (e *env) reportWriter() (*report.Writer, error) {
	return report.NewWriter(filepath.Join(e.dir, e.settings.ExportDir))
}
