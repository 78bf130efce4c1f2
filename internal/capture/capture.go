// Package capture implements stage 1 of the reconciliation: matching
// internal ledger entries against the portal's reported sales by amount,
// within a date window.
package capture

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/subset"
)

// DefaultWindowDays is the default date window around a ledger entry when
// collecting candidate portal sales.
const DefaultWindowDays = 2

// Status classifies one capture row.
type Status string

const (
	// StatusMatched means the ledger entry was covered exactly by one sale
	// or by a sale group.
	StatusMatched Status = "matched"
	// StatusUnmatchedLedger means no sale or sale group covered the entry.
	StatusUnmatchedLedger Status = "unmatched_ledger"
	// StatusLedgerMissing means the portal reported a sale the ledger never
	// did. Treated as provisionally reconciled: the ledger export usually
	// lags the portal by a few days.
	StatusLedgerMissing Status = "ledger_missing"
)

// Row is one line of the capture report.
type Row struct {
	Status     Status
	Provider   model.Provider
	Date       time.Time
	LedgerID   uuid.UUID
	Document   string
	Gross      decimal.Decimal
	GroupSum   decimal.Decimal
	GroupSize  int
	Difference decimal.Decimal // GroupSum - Gross
	SaleIDs    []uuid.UUID
}

// Options tunes a capture run.
type Options struct {
	WindowDays int // candidate window in days around the ledger date
	MaxGroup   int // subset-sum group cap, 0 = subset.MaxGroupDefault
}

func (o Options) normalized() Options {
	if o.WindowDays < 0 {
		o.WindowDays = 0
	}
	if o.MaxGroup <= 0 {
		o.MaxGroup = subset.MaxGroupDefault
	}
	return o
}

// Run matches ledger entries to portal sales. Each ledger entry prefers an
// exact 1:1 amount match (smallest date delta, then input order); failing
// that, a subset of candidate sales summing exactly to its gross is
// consumed as one group. Soft-deleted and zero-amount records are excluded
// upfront. Never-consumed sales are emitted as ledger_missing rows.
func Run(ledger []model.LedgerEntry, sales []model.PortalSaleEntry, opts Options) []Row {
	opts = opts.normalized()

	pool := make([]model.PortalSaleEntry, 0, len(sales))
	for _, s := range sales {
		if s.Lifecycle.Deleted() || s.Date.IsZero() || model.Cents(s.Gross) == 0 {
			continue
		}
		pool = append(pool, s)
	}
	consumed := make([]bool, len(pool))

	var rows []Row
	for _, entry := range ledger {
		if entry.Lifecycle.Deleted() || entry.Date.IsZero() || model.Cents(entry.Gross) == 0 {
			continue
		}
		rows = append(rows, matchEntry(entry, pool, consumed, opts))
	}

	for i, s := range pool {
		if consumed[i] {
			continue
		}
		rows = append(rows, Row{
			Status:     StatusLedgerMissing,
			Provider:   s.Provider,
			Date:       s.Date,
			Gross:      decimal.Zero,
			GroupSum:   s.Gross,
			GroupSize:  1,
			Difference: s.Gross,
			SaleIDs:    []uuid.UUID{s.ID},
		})
	}

	return rows
}

func matchEntry(entry model.LedgerEntry, pool []model.PortalSaleEntry, consumed []bool, opts Options) Row {
	target := model.Cents(entry.Gross)

	// Candidate sales inside the date window, in input order.
	var candidates []int
	for i, s := range pool {
		if consumed[i] {
			continue
		}
		delta := model.DaysBetween(entry.Date, s.Date)
		if delta < -opts.WindowDays || delta > opts.WindowDays {
			continue
		}
		candidates = append(candidates, i)
	}

	row := Row{
		Status:   StatusMatched,
		Provider: entry.Provider,
		Date:     entry.Date,
		LedgerID: entry.ID,
		Document: entry.Document,
		Gross:    entry.Gross,
	}

	// Exact 1:1 beats any group: smallest date delta wins, input order
	// breaks ties.
	best := -1
	bestDelta := 0
	for _, i := range candidates {
		if model.Cents(pool[i].Gross) != target {
			continue
		}
		delta := model.DaysBetween(entry.Date, pool[i].Date)
		if delta < 0 {
			delta = -delta
		}
		if best < 0 || delta < bestDelta {
			best, bestDelta = i, delta
		}
	}
	if best >= 0 {
		consumed[best] = true
		row.GroupSum = pool[best].Gross
		row.GroupSize = 1
		row.Difference = decimal.Zero
		row.SaleIDs = []uuid.UUID{pool[best].ID}
		return row
	}

	amounts := make([]int64, len(candidates))
	for j, i := range candidates {
		amounts[j] = model.Cents(pool[i].Gross)
	}
	if group := subset.Find(amounts, target, opts.MaxGroup); group != nil {
		sum := decimal.Zero
		for _, j := range group {
			i := candidates[j]
			consumed[i] = true
			sum = sum.Add(pool[i].Gross)
			row.SaleIDs = append(row.SaleIDs, pool[i].ID)
		}
		row.GroupSum = sum
		row.GroupSize = len(group)
		row.Difference = sum.Sub(entry.Gross)
		return row
	}

	row.Status = StatusUnmatchedLedger
	row.GroupSum = decimal.Zero
	row.Difference = entry.Gross.Neg()
	return row
}
