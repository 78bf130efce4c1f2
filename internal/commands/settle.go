package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/config"
	"github.com/concilia-dev/concilia/internal/feerule"
	"github.com/concilia-dev/concilia/internal/settlement"
	"github.com/concilia-dev/concilia/internal/store"
)

func newSettleCommand() *cobra.Command {
	var window int

	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Verify receivables against portal sales and the fee schedule",
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
			return runSettle(e, scope, window)
		},
	}

	addRunFlags(cmd)
	cmd.Flags().IntVar(&window, "window", -1, "subset-sum window in days (default: provider profile)")

	return cmd
}

func runSettle(e *env, scope runScope, window int) error {
	if window < 0 {
		window = scope.profile.SettleWindow
	}
	p := scope.profile.Code
	per := scope.period

	rules, err := config.LoadFeeRules(e.dir)
	if err != nil {
		return err
	}

	st := store.New(e.dir)
	receivables, err := st.QueryReceivablesByDate(p, per.Start(), per.End())
	if err != nil {
		return err
	}
	sales, err := st.QuerySales(p, per.Start().AddDate(0, 0, -window), per.End().AddDate(0, 0, window))
	if err != nil {
		return err
	}

	rows := settlement.Run(sales, receivables, settlement.Options{
		WindowDays: window,
		MaxGroup:   e.settings.MaxGroup,
		Resolver:   feerule.NewResolver(rules),
		Nets:       scope.profile.Nets(),
	})

	counts := map[settlement.Status]int{}
	for _, r := range rows {
		counts[r.Status]++
	}
	e.log.Info().
		Str("provider", string(p)).
		Str("month", per.String()).
		Int("match", counts[settlement.StatusMatch]).
		Int("mismatch", counts[settlement.StatusMismatch]).
		Int("no_rule", counts[settlement.StatusNoRule]).
		Int("no_receivable", counts[settlement.StatusNoReceivable]).
		Msg("settlement run complete")

	w, err := e.reportWriter()
	if err != nil {
		return err
	}
	path, err := w.WriteSettlement(p, per, rows)
	if err != nil {
		return err
	}

	fmt.Printf("Report: %s\n", path)
	return nil
}
