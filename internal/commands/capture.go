package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/capture"
	"github.com/concilia-dev/concilia/internal/store"
)

func newCaptureCommand() *cobra.Command {
	var window int

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Check that every ledger sale was captured by the network portal",
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
			return runCapture(e, scope, window)
		},
	}

	addRunFlags(cmd)
	cmd.Flags().IntVar(&window, "window", -1, "candidate window in days (default: provider profile)")

	return cmd
}

func runCapture(e *env, scope runScope, window int) error {
	if window < 0 {
		window = scope.profile.CaptureWindow
	}
	p := scope.profile.Code
	per := scope.period

	st := store.New(e.dir)
	ledger, err := st.QueryLedger(p, per.Start(), per.End())
	if err != nil {
		return err
	}
	// Sales may be booked a few days off the ledger date, so the query
	// range is widened by the window on both sides.
	sales, err := st.QuerySales(p, per.Start().AddDate(0, 0, -window), per.End().AddDate(0, 0, window))
	if err != nil {
		return err
	}

	rows := capture.Run(ledger, sales, capture.Options{
		WindowDays: window,
		MaxGroup:   e.settings.MaxGroup,
	})

	counts := map[capture.Status]int{}
	for _, r := range rows {
		counts[r.Status]++
	}
	e.log.Info().
		Str("provider", string(p)).
		Str("month", per.String()).
		Int("matched", counts[capture.StatusMatched]).
		Int("unmatched_ledger", counts[capture.StatusUnmatchedLedger]).
		Int("ledger_missing", counts[capture.StatusLedgerMissing]).
		Msg("capture run complete")

	w, err := e.reportWriter()
	if err != nil {
		return err
	}
	path, err := w.WriteCapture(p, per, rows)
	if err != nil {
		return err
	}

	fmt.Printf("Report: %s\n", path)
	return nil
}
