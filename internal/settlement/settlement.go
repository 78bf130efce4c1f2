// Package settlement implements stage 2 of the reconciliation: matching
// portal sales to the network's receivables report and verifying the
// applied settlement fee against the configured fee rules.
package settlement

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/feerule"
	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/subset"
)

// Status classifies one settlement row.
type Status string

const (
	// StatusMatch means the sale group covers the receivable's gross and
	// the applied net is plausible.
	StatusMatch Status = "match"
	// StatusMismatch means gross or net diverge from what the sales and
	// fee rules predict.
	StatusMismatch Status = "mismatch"
	// StatusNoRule means no active fee rule matched the category; the
	// expected side could not be computed.
	StatusNoRule Status = "no_rule"
	// StatusNoReceivable flags a sale the network never settled. Unlike a
	// lagging ledger, a missing settlement is a hard failure.
	StatusNoReceivable Status = "no_receivable"
)

// Row is one line of the settlement report.
type Row struct {
	Status          Status
	Provider        model.Provider
	Date            time.Time
	ReceivableID    uuid.UUID
	AuthKey         string
	SaleIDs         []uuid.UUID
	GroupSize       int
	GrossFromSales  decimal.Decimal
	ReceivableGross decimal.Decimal
	AppliedNet      decimal.Decimal
	AppliedFee      decimal.Decimal
	RuleLabel       string
	ExpectedFee     decimal.Decimal
	ExpectedNet     decimal.Decimal
	Difference      decimal.Decimal // AppliedNet - ExpectedNet
}

// NetComputer derives the net amount a receivable is judged by. It is
// swappable per provider: most report a trustworthy net, some require it
// modeled purely from the fee schedule.
type NetComputer interface {
	Net(r model.ReceivableEntry, rule feerule.Rule, haveRule bool, grossFromSales decimal.Decimal, count int) decimal.Decimal
}

// ReportedNet trusts the net column of the receivables report.
type ReportedNet struct{}

// Net returns the receivable's own net amount.
func (ReportedNet) Net(r model.ReceivableEntry, _ feerule.Rule, _ bool, _ decimal.Decimal, _ int) decimal.Decimal {
	return r.Net
}

// ModeledNet ignores the reported net and recomputes it from the fee rule
// over the matched sales gross.
type ModeledNet struct{}

// Net returns the fee-schedule net for the matched gross, falling back to
// the reported net when no rule resolved.
func (ModeledNet) Net(r model.ReceivableEntry, rule feerule.Rule, haveRule bool, grossFromSales decimal.Decimal, count int) decimal.Decimal {
	if !haveRule {
		return r.Net
	}
	return rule.Net(grossFromSales, count)
}

// Options tunes a settlement run.
type Options struct {
	WindowDays int               // fallback subset-sum window, 0 = same day
	MaxGroup   int               // subset-sum group cap, 0 = subset.MaxGroupDefault
	Resolver   *feerule.Resolver // required for fee verification
	Nets       NetComputer       // nil = ReportedNet
}

func (o Options) normalized() Options {
	if o.WindowDays < 0 {
		o.WindowDays = 0
	}
	if o.MaxGroup <= 0 {
		o.MaxGroup = subset.MaxGroupDefault
	}
	if o.Resolver == nil {
		o.Resolver = feerule.NewResolver(nil)
	}
	if o.Nets == nil {
		o.Nets = ReportedNet{}
	}
	return o
}

// Run matches portal sales to receivables and verifies fees. Each
// receivable first consumes every unconsumed sale sharing its exact
// non-empty authorization key; without a key (or key hits) it falls back to
// the bounded subset-sum search over its date window. Leftover sales are
// emitted as no_receivable rows.
func Run(sales []model.PortalSaleEntry, receivables []model.ReceivableEntry, opts Options) []Row {
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
	for _, recv := range receivables {
		if recv.Lifecycle.Deleted() || recv.Date.IsZero() {
			continue
		}
		rows = append(rows, matchReceivable(recv, pool, consumed, opts))
	}

	for i, s := range pool {
		if consumed[i] {
			continue
		}
		rows = append(rows, Row{
			Status:         StatusNoReceivable,
			Provider:       s.Provider,
			Date:           s.Date,
			AuthKey:        s.AuthKey,
			SaleIDs:        []uuid.UUID{s.ID},
			GroupSize:      1,
			GrossFromSales: s.Gross,
		})
	}

	return rows
}

func matchReceivable(recv model.ReceivableEntry, pool []model.PortalSaleEntry, consumed []bool, opts Options) Row {
	row := Row{
		Provider:        recv.Provider,
		Date:            recv.Date,
		ReceivableID:    recv.ID,
		AuthKey:         recv.AuthKey,
		ReceivableGross: recv.Gross,
	}

	var group []int
	if recv.AuthKey != "" {
		for i, s := range pool {
			if !consumed[i] && s.AuthKey == recv.AuthKey {
				group = append(group, i)
			}
		}
	}

	if group == nil {
		// Fallback: amount group against gross, or net when the report
		// carries no gross column.
		target := model.Cents(recv.Gross)
		if target == 0 {
			target = model.Cents(recv.Net)
		}

		var candidates []int
		for i, s := range pool {
			if consumed[i] {
				continue
			}
			delta := model.DaysBetween(recv.Date, s.Date)
			if delta < -opts.WindowDays || delta > opts.WindowDays {
				continue
			}
			candidates = append(candidates, i)
		}
		amounts := make([]int64, len(candidates))
		for j, i := range candidates {
			amounts[j] = model.Cents(pool[i].Gross)
		}
		for _, j := range subset.Find(amounts, target, opts.MaxGroup) {
			group = append(group, candidates[j])
		}
	}

	grossFromSales := decimal.Zero
	category := recv.Category
	for _, i := range group {
		consumed[i] = true
		grossFromSales = grossFromSales.Add(pool[i].Gross)
		row.SaleIDs = append(row.SaleIDs, pool[i].ID)
		if category == "" {
			category = pool[i].Category
		}
	}
	row.GroupSize = len(group)
	row.GrossFromSales = grossFromSales
	row.AppliedFee = recv.Gross.Sub(recv.Net)

	rule, err := opts.Resolver.Resolve(recv.Provider, category)
	haveRule := err == nil
	row.AppliedNet = opts.Nets.Net(recv, rule, haveRule, grossFromSales, len(group))

	if !haveRule {
		if errors.Is(err, feerule.ErrNoRule) {
			row.Status = StatusNoRule
		} else {
			row.Status = StatusMismatch
		}
		return row
	}

	row.RuleLabel = rule.Label
	row.ExpectedFee = rule.Fee(grossFromSales, len(group))
	row.ExpectedNet = grossFromSales.Sub(row.ExpectedFee)
	row.Difference = row.AppliedNet.Sub(row.ExpectedNet)

	grossCovered := model.SameAmount(grossFromSales, recv.Gross) &&
		model.Cents(row.AppliedNet) <= model.Cents(recv.Gross)
	if grossCovered && model.Cents(row.Difference) == 0 {
		row.Status = StatusMatch
	} else {
		row.Status = StatusMismatch
	}
	return row
}
