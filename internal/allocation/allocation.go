// Package allocation implements stage 3 of the reconciliation: allocating
// bank statement credits to expected receivables using business-day-shifted
// dates, a primary window and a forward-only spillover window, and
// projecting a daily expected/banked/balance timeline with monthly
// carryover.
package allocation

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/calendar"
	"github.com/concilia-dev/concilia/internal/feerule"
	"github.com/concilia-dev/concilia/internal/model"
)

// BatchTolerance is the fixed amount tolerance for the batch-oriented
// exact-match step. Settlement batches occasionally land a few cents off
// their reported total.
var BatchTolerance = decimal.NewFromFloat(0.05)

// DayStatus classifies one day of the projection.
type DayStatus string

const (
	DayOK               DayStatus = "ok"
	DayLate             DayStatus = "late"
	DayUnexpectedCredit DayStatus = "unexpected_credit"
	DayMismatch         DayStatus = "day_mismatch"
	// DayCarryover marks a day with no expectation and no funds that is
	// rendered only because the running balance has not cleared.
	DayCarryover DayStatus = "carryover"
)

// DailyRow is one day of the expected/banked/balance timeline.
type DailyRow struct {
	Date             time.Time
	Expected         decimal.Decimal // receivables effective-dated this day
	Banked           decimal.Decimal // allocated funds for this day's receivables plus unclaimed credits dated this day
	Allocated        decimal.Decimal
	Difference       decimal.Decimal // Banked - Expected
	Balance          decimal.Decimal // running, seeded by the opening carryover
	Status           DayStatus
	UnreconciledBank bool // secondary flag: some credit this day kept a residual
}

// BankRow reports how much of one bank credit was explained.
type BankRow struct {
	BankID    uuid.UUID
	Date      time.Time
	Amount    decimal.Decimal
	Memo      string
	Allocated decimal.Decimal
	Remaining decimal.Decimal
}

// Allocation links an expected receivable (or settlement batch) to the bank
// credit that funded it. Partial allocations are permitted.
type Allocation struct {
	BankID       uuid.UUID
	ReceivableID uuid.UUID // zero when the unit is an aggregated batch
	Batch        string    // batch reference, blank for individual receivables
	Amount       decimal.Decimal
}

// Result bundles the three outputs of an allocation run.
type Result struct {
	Daily         []DailyRow
	Bank          []BankRow
	Allocations   []Allocation
	TotalExpected decimal.Decimal
	TotalBanked   decimal.Decimal
}

// Options tunes an allocation run.
type Options struct {
	Calendar      calendar.Calendar
	WindowDays    int               // primary window around the credit date
	SpilloverDays int               // forward-only extension, 0 disables spillover
	MemoFilters   []string          // keep only credits whose memo contains one (normalized); empty keeps all
	BatchOriented bool
	Provider      model.Provider    // rule lookups for the per-batch transfer fee
	Rules         *feerule.Resolver // nil = no fee schedule configured
	TransferFee   decimal.Decimal   // profile override; non-zero wins over the rule's fee
	Opening       decimal.Decimal   // confirmed prior-period carryover
}

func (o Options) normalized() Options {
	if o.WindowDays < 0 {
		o.WindowDays = 0
	}
	if o.SpilloverDays < 0 {
		o.SpilloverDays = 0
	}
	return o
}

// unit is one allocatable expectation: a single receivable, or a whole
// settlement batch pre-aggregated for batch-oriented providers.
type unit struct {
	receivableID uuid.UUID
	batch        string
	effective    time.Time
	amount       decimal.Decimal
	remaining    decimal.Decimal
}

// RunWithRetry applies the caller retry policy: a strict first pass with
// spillover disabled, re-run once with the configured spillover only when
// the period under-banked.
func RunWithRetry(bank []model.BankEntry, receivables []model.ReceivableEntry, opts Options) Result {
	strict := opts
	strict.SpilloverDays = 0
	res := Run(bank, receivables, strict)
	if opts.SpilloverDays > 0 && model.Cents(res.TotalBanked) < model.Cents(res.TotalExpected) {
		return Run(bank, receivables, opts)
	}
	return res
}

// Run allocates bank credits to expected receivables and projects the
// daily timeline. Credits are processed in ascending date order; each one
// allocates from receivables whose effective date falls in the primary
// window, then — strictly forward, never backward — from the spillover
// window, so one period can never borrow funds belonging to a closed
// earlier period.
func Run(bank []model.BankEntry, receivables []model.ReceivableEntry, opts Options) Result {
	opts = opts.normalized()

	units := buildUnits(receivables, opts)
	credits := filterCredits(bank, opts.MemoFilters)

	var allocations []Allocation
	bankRows := make([]BankRow, 0, len(credits))

	for _, b := range credits {
		remaining := b.Amount

		if opts.BatchOriented && model.Cents(remaining) != 0 {
			if u := findBatchMatch(units, b.Date, remaining, opts); u != nil {
				// Tolerance hit: both sides close in full.
				allocations = append(allocations, Allocation{
					BankID:       b.ID,
					ReceivableID: u.receivableID,
					Batch:        u.batch,
					Amount:       u.remaining,
				})
				u.remaining = decimal.Zero
				remaining = decimal.Zero
			}
		}

		if model.Cents(remaining) != 0 {
			remaining = allocateWindow(b, remaining, units,
				b.Date.AddDate(0, 0, -opts.WindowDays),
				b.Date.AddDate(0, 0, opts.WindowDays),
				&allocations)
		}
		if model.Cents(remaining) != 0 && opts.SpilloverDays > 0 {
			remaining = allocateWindow(b, remaining, units,
				b.Date.AddDate(0, 0, opts.WindowDays+1),
				b.Date.AddDate(0, 0, opts.SpilloverDays),
				&allocations)
		}

		bankRows = append(bankRows, BankRow{
			BankID:    b.ID,
			Date:      model.Day(b.Date),
			Amount:    b.Amount,
			Memo:      b.Memo,
			Allocated: b.Amount.Sub(remaining),
			Remaining: remaining,
		})
	}

	res := Result{
		Bank:        bankRows,
		Allocations: allocations,
	}
	res.Daily = project(units, bankRows, opts.Opening)
	for _, u := range units {
		res.TotalExpected = res.TotalExpected.Add(u.amount)
	}
	for _, b := range bankRows {
		res.TotalBanked = res.TotalBanked.Add(b.Amount)
	}
	return res
}

// buildUnits turns receivables into allocatable units: effective date
// shifted to the next business day, nets summed per batch for
// batch-oriented providers, transfer fee charged once per batch.
func buildUnits(receivables []model.ReceivableEntry, opts Options) []*unit {
	var units []*unit
	batches := make(map[string]*unit)

	for _, r := range receivables {
		if r.Lifecycle.Deleted() || r.Date.IsZero() {
			continue
		}
		amount := r.Net
		if model.Cents(amount) == 0 {
			amount = r.Gross
		}
		if model.Cents(amount) == 0 {
			continue
		}
		effective := opts.Calendar.NextBusinessDay(r.EffectiveBase())

		if opts.BatchOriented && r.Batch != "" {
			if u, ok := batches[r.Batch]; ok {
				u.amount = u.amount.Add(amount)
				u.remaining = u.amount
				if effective.Before(u.effective) {
					u.effective = effective
				}
				continue
			}
			u := &unit{batch: r.Batch, effective: effective, amount: amount}
			if fee := batchTransferFee(r, opts); model.Cents(fee) != 0 {
				u.amount = u.amount.Sub(fee)
			}
			u.remaining = u.amount
			batches[r.Batch] = u
			units = append(units, u)
			continue
		}

		units = append(units, &unit{
			receivableID: r.ID,
			effective:    effective,
			amount:       amount,
			remaining:    amount,
		})
	}

	sort.SliceStable(units, func(i, j int) bool { return units[i].effective.Before(units[j].effective) })
	return units
}

// batchTransferFee is the once-per-batch debit: the profile override when
// set, otherwise the transfer fee of the rule matching the batch's first
// receivable category.
func batchTransferFee(r model.ReceivableEntry, opts Options) decimal.Decimal {
	if model.Cents(opts.TransferFee) != 0 {
		return opts.TransferFee
	}
	if opts.Rules == nil {
		return decimal.Zero
	}
	rule, err := opts.Rules.Resolve(opts.Provider, r.Category)
	if err != nil {
		return decimal.Zero
	}
	return rule.TransferFee
}

func filterCredits(bank []model.BankEntry, memoFilters []string) []model.BankEntry {
	var filters []string
	for _, f := range memoFilters {
		if n := feerule.Normalize(f); n != "" {
			filters = append(filters, n)
		}
	}

	var credits []model.BankEntry
	for _, b := range bank {
		if b.Lifecycle.Deleted() || b.Date.IsZero() || b.Amount.Sign() <= 0 {
			continue
		}
		if len(filters) > 0 {
			memo := feerule.Normalize(b.Memo)
			keep := false
			for _, f := range filters {
				if strings.Contains(memo, f) {
					keep = true
					break
				}
			}
			if !keep {
				continue
			}
		}
		credits = append(credits, b)
	}
	sort.SliceStable(credits, func(i, j int) bool { return credits[i].Date.Before(credits[j].Date) })
	return credits
}

// findBatchMatch looks for one unconsumed unit whose remaining amount is
// within BatchTolerance of the credit's remaining amount and whose
// effective date lies in [date-W, date+S].
func findBatchMatch(units []*unit, date time.Time, remaining decimal.Decimal, opts Options) *unit {
	lo := date.AddDate(0, 0, -opts.WindowDays)
	hi := date.AddDate(0, 0, opts.SpilloverDays)
	for _, u := range units {
		if model.Cents(u.remaining) == 0 {
			continue
		}
		if u.effective.Before(model.Day(lo)) || u.effective.After(model.Day(hi)) {
			continue
		}
		if u.remaining.Sub(remaining).Abs().Cmp(BatchTolerance) <= 0 {
			return u
		}
	}
	return nil
}

func allocateWindow(b model.BankEntry, remaining decimal.Decimal, units []*unit, lo, hi time.Time, out *[]Allocation) decimal.Decimal {
	lo, hi = model.Day(lo), model.Day(hi)
	for _, u := range units {
		if model.Cents(remaining) == 0 {
			break
		}
		if model.Cents(u.remaining) == 0 {
			continue
		}
		if u.effective.Before(lo) || u.effective.After(hi) {
			continue
		}
		take := decimal.Min(u.remaining, remaining)
		*out = append(*out, allocate(b.ID, u, take))
		remaining = remaining.Sub(take)
	}
	return remaining
}

func allocate(bankID uuid.UUID, u *unit, amount decimal.Decimal) Allocation {
	u.remaining = u.remaining.Sub(amount)
	return Allocation{
		BankID:       bankID,
		ReceivableID: u.receivableID,
		Batch:        u.batch,
		Amount:       amount,
	}
}

// project renders the daily timeline. Every day between the first and last
// activity is considered; a day is omitted only when expected, banked,
// allocated and the residual running balance are all zero.
func project(units []*unit, bankRows []BankRow, opening decimal.Decimal) []DailyRow {
	type agg struct {
		expected  decimal.Decimal
		banked    decimal.Decimal
		allocated decimal.Decimal
		residual  bool
	}
	days := make(map[time.Time]*agg)
	get := func(d time.Time) *agg {
		d = model.Day(d)
		a, ok := days[d]
		if !ok {
			a = &agg{
				expected:  decimal.Zero,
				banked:    decimal.Zero,
				allocated: decimal.Zero,
			}
			days[d] = a
		}
		return a
	}

	// Allocated funds count on the day they were expected; only credit
	// residue nothing claimed lands on its own statement date.
	for _, u := range units {
		a := get(u.effective)
		a.expected = a.expected.Add(u.amount)
		covered := u.amount.Sub(u.remaining)
		a.banked = a.banked.Add(covered)
		a.allocated = a.allocated.Add(covered)
	}
	for _, b := range bankRows {
		if model.Cents(b.Remaining) != 0 {
			a := get(b.Date)
			a.banked = a.banked.Add(b.Remaining)
			a.residual = true
		}
	}

	if len(days) == 0 {
		return nil
	}

	var first, last time.Time
	for d := range days {
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}
	}

	var rows []DailyRow
	balance := opening
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		a := days[d]
		if a == nil {
			a = &agg{expected: decimal.Zero, banked: decimal.Zero, allocated: decimal.Zero}
		}
		diff := a.banked.Sub(a.expected)
		balance = balance.Add(diff)

		if model.Cents(a.expected) == 0 && model.Cents(a.banked) == 0 &&
			model.Cents(a.allocated) == 0 && model.Cents(balance) == 0 {
			continue
		}

		rows = append(rows, DailyRow{
			Date:             d,
			Expected:         a.expected,
			Banked:           a.banked,
			Allocated:        a.allocated,
			Difference:       diff,
			Balance:          balance,
			Status:           dayStatus(a.expected, a.banked),
			UnreconciledBank: a.residual,
		})
	}
	return rows
}

func dayStatus(expected, banked decimal.Decimal) DayStatus {
	e, b := model.Cents(expected), model.Cents(banked)
	switch {
	case e == 0 && b == 0:
		return DayCarryover
	case e == b:
		return DayOK
	case e > 0 && b == 0:
		return DayLate
	case e == 0 && b > 0:
		return DayUnexpectedCredit
	default:
		return DayMismatch
	}
}
