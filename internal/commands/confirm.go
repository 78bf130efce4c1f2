package commands

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/auditlog"
	"github.com/concilia-dev/concilia/internal/store"
)

func newConfirmCommand() *cobra.Command {
	var amount string
	var note string

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm a period's closing balance so the next month opens with it",
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
			return runConfirm(e, scope, amount, note)
		},
	}

	addRunFlags(cmd)
	cmd.Flags().StringVar(&amount, "amount", "", "closing balance to confirm (required)")
	cmd.Flags().StringVar(&note, "note", "", "free-text note recorded in the audit log")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runConfirm(e *env, scope runScope, amount, note string) error {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Errorf("invalid --amount: %w", err)
	}
	p := scope.profile.Code
	per := scope.period

	cs := store.NewCarryoverStore(e.dir)
	if err := cs.Confirm(p, per, value, time.Now().UTC()); err != nil {
		return err
	}

	entry := auditlog.Entry{
		Timestamp: time.Now().UTC(),
		Action:    auditlog.ActionConfirmCarryover,
		Provider:  string(p),
		Period:    per.String(),
		Amount:    value.StringFixed(2),
		Note:      note,
	}
	if err := auditlog.Append(e.dir, []auditlog.Entry{entry}); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}

	fmt.Printf("Confirmed %s closing balance for %s: %s\n", p, per, value.StringFixed(2))
	return nil
}
