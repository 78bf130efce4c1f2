package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/allocation"
	"github.com/concilia-dev/concilia/internal/calendar"
	"github.com/concilia-dev/concilia/internal/config"
	"github.com/concilia-dev/concilia/internal/feerule"
	"github.com/concilia-dev/concilia/internal/report"
	"github.com/concilia-dev/concilia/internal/store"
)

func newAllocateCommand() *cobra.Command {
	var window int
	var spillover int

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Allocate bank credits to expected receivables day by day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			scope, err := resolveScope(cmd, e)
			if err != nil {
				return err
			}
			return runAllocate(e, scope, window, spillover)
		},
	}

	addRunFlags(cmd)
	cmd.Flags().IntVar(&window, "window", -1, "allocation window in days (default: provider profile)")
	cmd.Flags().IntVar(&spillover, "spillover", -1, "forward spillover in days (default: provider profile)")

	return cmd
}

func runAllocate(e *env, scope runScope, window, spillover int) error {
	if window < 0 {
		window = scope.profile.BankWindow
	}
	if spillover < 0 {
		spillover = scope.profile.Spillover
	}
	p := scope.profile.Code
	per := scope.period

	holidays, err := config.LoadHolidays(e.dir)
	if err != nil {
		return err
	}
	cal := calendar.New(holidays...)

	rules, err := config.LoadFeeRules(e.dir)
	if err != nil {
		return err
	}

	st := store.New(e.dir)
	// Receivables just outside the month can still be funded by this
	// month's credits, so the effective-date range is widened by the
	// window on both ends.
	pad := window + spillover
	receivables, err := st.QueryReceivables(p, per.Start().AddDate(0, 0, -pad), per.End().AddDate(0, 0, pad))
	if err != nil {
		return err
	}
	bank, err := st.QueryBank(p, per.Start(), per.End())
	if err != nil {
		return err
	}

	opening, err := store.NewCarryoverStore(e.dir).Opening(p, per)
	if err != nil {
		return err
	}

	res := allocation.RunWithRetry(bank, receivables, allocation.Options{
		Calendar:      cal,
		WindowDays:    window,
		SpilloverDays: spillover,
		MemoFilters:   scope.profile.MemoFilters,
		BatchOriented: scope.profile.BatchOriented,
		Provider:      p,
		Rules:         feerule.NewResolver(rules),
		TransferFee:   scope.profile.TransferFee,
		Opening:       opening,
	})

	e.log.Info().
		Str("provider", string(p)).
		Str("month", per.String()).
		Str("expected", res.TotalExpected.StringFixed(2)).
		Str("banked", res.TotalBanked.StringFixed(2)).
		Int("allocations", len(res.Allocations)).
		Msg("allocation run complete")

	w, err := e.reportWriter()
	if err != nil {
		return err
	}
	paths, err := w.WriteAllocation(p, per, &res)
	if err != nil {
		return err
	}

	for _, path := range paths {
		fmt.Printf("Report: %s\n", path)
	}
	fmt.Printf("Suggested closing balance for %s: %s (confirm with `concilia confirm`)\n",
		per, report.CarryoverSuggestion(&res).StringFixed(2))
	return nil
}
