package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/config"
	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/store"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show record counts and confirmed balances per provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			return runStatus(e)
		},
	}
}

func runStatus(e *env) error {
	profiles, err := config.LoadProviders(e.dir)
	if err != nil {
		return err
	}

	st := store.New(e.dir)
	for _, prof := range profiles {
		ledger, err := st.Ledger(prof.Code)
		if err != nil {
			return err
		}
		sales, err := st.Sales(prof.Code)
		if err != nil {
			return err
		}
		receivables, err := st.Receivables(prof.Code)
		if err != nil {
			return err
		}
		bank, err := st.Bank(prof.Code)
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s): ledger %d, sales %d, receivables %d, bank %d\n",
			prof.Code, prof.Label,
			countActiveLedger(ledger), countActiveSales(sales),
			countActiveReceivables(receivables), countActiveBank(bank))
	}

	balances, err := store.NewCarryoverStore(e.dir).All()
	if err != nil {
		return err
	}
	if len(balances) > 0 {
		fmt.Println("Confirmed balances:")
		for _, b := range balances {
			fmt.Printf("  %s %s: %s\n", b.Provider, b.Period, b.Amount.StringFixed(2))
		}
	}
	return nil
}

func countActiveLedger(entries []model.LedgerEntry) int {
	n := 0
	for _, e := range entries {
		if !e.Lifecycle.Deleted() {
			n++
		}
	}
	return n
}

func countActiveSales(entries []model.PortalSaleEntry) int {
	n := 0
	for _, e := range entries {
		if !e.Lifecycle.Deleted() {
			n++
		}
	}
	return n
}

func countActiveReceivables(entries []model.ReceivableEntry) int {
	n := 0
	for _, e := range entries {
		if !e.Lifecycle.Deleted() {
			n++
		}
	}
	return n
}

func countActiveBank(entries []model.BankEntry) int {
	n := 0
	for _, e := range entries {
		if !e.Lifecycle.Deleted() {
			n++
		}
	}
	return n
}
