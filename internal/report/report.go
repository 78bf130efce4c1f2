// Package report renders the outputs of reconciliation runs as CSV files
// under the workspace export directory.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/allocation"
	"github.com/concilia-dev/concilia/internal/capture"
	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/period"
	"github.com/concilia-dev/concilia/internal/settlement"
)

const (
	captureHeader    = "status,provider,date,ledger_id,document,gross,group_sum,group_size,difference,sale_ids"
	settlementHeader = "status,provider,date,receivable_id,auth_key,group_size,gross_from_sales,receivable_gross,applied_net,applied_fee,rule,expected_fee,expected_net,difference"
	dailyHeader      = "date,expected,banked,allocated,difference,balance,status,unreconciled_bank"
	bankHeader       = "bank_id,date,amount,memo,allocated,remaining"
	allocationHeader = "bank_id,receivable_id,batch,amount"
)

const dateFormat = "2006-01-02"

// Writer emits report files into a single export directory.
type Writer struct {
	dir string
}

// NewWriter creates the export directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// WriteCapture writes capture-<provider>-<period>.csv and returns its path.
func (w *Writer) WriteCapture(p model.Provider, per period.Period, rows []capture.Row) (string, error) {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			string(r.Status),
			string(r.Provider),
			formatDate(r.Date),
			formatID(r.LedgerID),
			r.Document,
			r.Gross.StringFixed(2),
			r.GroupSum.StringFixed(2),
			strconv.Itoa(r.GroupSize),
			r.Difference.StringFixed(2),
			joinIDs(r.SaleIDs),
		})
	}
	return w.write(fileName("capture", p, per), captureHeader, records)
}

// WriteSettlement writes settlement-<provider>-<period>.csv.
func (w *Writer) WriteSettlement(p model.Provider, per period.Period, rows []settlement.Row) (string, error) {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			string(r.Status),
			string(r.Provider),
			formatDate(r.Date),
			formatID(r.ReceivableID),
			r.AuthKey,
			strconv.Itoa(r.GroupSize),
			r.GrossFromSales.StringFixed(2),
			r.ReceivableGross.StringFixed(2),
			r.AppliedNet.StringFixed(2),
			r.AppliedFee.StringFixed(2),
			r.RuleLabel,
			r.ExpectedFee.StringFixed(2),
			r.ExpectedNet.StringFixed(2),
			r.Difference.StringFixed(2),
		})
	}
	return w.write(fileName("settlement", p, per), settlementHeader, records)
}

// WriteAllocation writes the three files of an allocation run: the daily
// summary, the per-credit bank view and the allocation links. It returns
// the paths in that order.
func (w *Writer) WriteAllocation(p model.Provider, per period.Period, res *allocation.Result) ([]string, error) {
	daily := make([][]string, 0, len(res.Daily))
	for _, d := range res.Daily {
		daily = append(daily, []string{
			formatDate(d.Date),
			d.Expected.StringFixed(2),
			d.Banked.StringFixed(2),
			d.Allocated.StringFixed(2),
			d.Difference.StringFixed(2),
			d.Balance.StringFixed(2),
			string(d.Status),
			strconv.FormatBool(d.UnreconciledBank),
		})
	}
	dailyPath, err := w.write(fileName("allocation-daily", p, per), dailyHeader, daily)
	if err != nil {
		return nil, err
	}

	bank := make([][]string, 0, len(res.Bank))
	for _, b := range res.Bank {
		bank = append(bank, []string{
			formatID(b.BankID),
			formatDate(b.Date),
			b.Amount.StringFixed(2),
			b.Memo,
			b.Allocated.StringFixed(2),
			b.Remaining.StringFixed(2),
		})
	}
	bankPath, err := w.write(fileName("allocation-bank", p, per), bankHeader, bank)
	if err != nil {
		return nil, err
	}

	links := make([][]string, 0, len(res.Allocations))
	for _, a := range res.Allocations {
		links = append(links, []string{
			formatID(a.BankID),
			formatID(a.ReceivableID),
			a.Batch,
			a.Amount.StringFixed(2),
		})
	}
	linksPath, err := w.write(fileName("allocation-links", p, per), allocationHeader, links)
	if err != nil {
		return nil, err
	}

	return []string{dailyPath, bankPath, linksPath}, nil
}

// CarryoverSuggestion is the closing balance an allocation run proposes
// for the period, shown to the operator before confirm.
func CarryoverSuggestion(res *allocation.Result) decimal.Decimal {
	if len(res.Daily) == 0 {
		return decimal.Zero
	}
	return res.Daily[len(res.Daily)-1].Balance
}

func (w *Writer) write(name, header string, records [][]string) (string, error) {
	path := filepath.Join(w.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write(strings.Split(header, ",")); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}
	for i, rec := range records {
		if err := cw.Write(rec); err != nil {
			return "", fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", err
	}
	return path, nil
}

func fileName(kind string, p model.Provider, per period.Period) string {
	return fmt.Sprintf("%s-%s-%s.csv", kind, strings.ToLower(string(p)), per)
}

func formatDate(t time.Time) string {
	return t.Format(dateFormat)
}

func formatID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id.String())
	}
	return strings.Join(parts, " ")
}
