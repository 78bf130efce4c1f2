package store

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/period"
)

const carryoverFile = "carryover.csv"

// CarryoverStore persists confirmed month-end balances, the only state the
// engine itself writes. One row per provider+period, upserted on explicit
// confirmation.
type CarryoverStore struct {
	path string
}

// NewCarryoverStore creates a CarryoverStore inside a workspace directory.
func NewCarryoverStore(root string) *CarryoverStore {
	return &CarryoverStore{path: filepath.Join(root, carryoverFile)}
}

// All returns every confirmed carryover balance.
func (c *CarryoverStore) All() ([]model.CarryoverBalance, error) {
	records, err := readFile(c.path, strings.Count(carryoverHeader, ",")+1)
	if err != nil {
		return nil, err
	}
	var balances []model.CarryoverBalance
	for _, rec := range records {
		if b, ok := unmarshalCarryover(rec); ok {
			balances = append(balances, b)
		}
	}
	return balances, nil
}

// Confirm upserts the end-of-period balance for a provider. Confirming the
// same period twice simply replaces the row, so re-running a confirmation
// is always safe.
func (c *CarryoverStore) Confirm(p model.Provider, per period.Period, amount decimal.Decimal, at time.Time) error {
	balances, err := c.All()
	if err != nil {
		return err
	}

	row := model.CarryoverBalance{
		Provider:    p,
		Period:      per.String(),
		Amount:      amount,
		ConfirmedAt: at,
	}
	replaced := false
	for i, b := range balances {
		if b.Provider == p && b.Period == per.String() {
			balances[i] = row
			replaced = true
			break
		}
	}
	if !replaced {
		balances = append(balances, row)
	}

	rows := make([][]string, len(balances))
	for i, b := range balances {
		rows[i] = marshalCarryover(b)
	}
	return writeFile(c.path, carryoverHeader, rows)
}

// Confirmed returns the confirmed balance for a provider+period, or false
// when none was ever confirmed.
func (c *CarryoverStore) Confirmed(p model.Provider, per period.Period) (decimal.Decimal, bool, error) {
	balances, err := c.All()
	if err != nil {
		return decimal.Zero, false, err
	}
	for _, b := range balances {
		if b.Provider == p && b.Period == per.String() {
			return b.Amount, true, nil
		}
	}
	return decimal.Zero, false, nil
}

// Opening returns the balance a period starts with: the previous period's
// confirmed carryover, or zero when nothing was confirmed.
func (c *CarryoverStore) Opening(p model.Provider, per period.Period) (decimal.Decimal, error) {
	amount, _, err := c.Confirmed(p, per.Prev())
	return amount, err
}
