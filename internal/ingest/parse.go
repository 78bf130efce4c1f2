package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/model"
)

// The exports arrive with a header row. Column order is fixed per kind;
// extra columns are rejected so silent truncation never slips through.
const (
	ledgerFields      = 5 // date,gross,category,document,auth_key
	salesFields       = 5 // date,gross,category,terminal,auth_key
	receivablesFields = 7 // date,payment_date,gross,net,category,batch,auth_key
	bankFields        = 4 // date,amount,memo,reference
)

// ParseLedger reads a merchant accounting export.
func ParseLedger(r io.Reader, p model.Provider) ([]model.LedgerEntry, error) {
	rows, err := readRows(r, ledgerFields)
	if err != nil {
		return nil, err
	}

	var entries []model.LedgerEntry
	for i, rec := range rows {
		date, err := parseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		gross, err := parseAmount(rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: gross: %w", i+2, err)
		}
		entries = append(entries, model.LedgerEntry{
			Provider: p,
			Date:     date,
			Gross:    gross,
			Category: rec[2],
			Document: rec[3],
			AuthKey:  rec[4],
		})
	}
	return entries, nil
}

// ParseSales reads a network portal sales export.
func ParseSales(r io.Reader, p model.Provider) ([]model.PortalSaleEntry, error) {
	rows, err := readRows(r, salesFields)
	if err != nil {
		return nil, err
	}

	var entries []model.PortalSaleEntry
	for i, rec := range rows {
		date, err := parseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		gross, err := parseAmount(rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: gross: %w", i+2, err)
		}
		entries = append(entries, model.PortalSaleEntry{
			Provider: p,
			Date:     date,
			Gross:    gross,
			Category: rec[2],
			Terminal: rec[3],
			AuthKey:  rec[4],
		})
	}
	return entries, nil
}

// ParseReceivables reads a network settlement report. payment_date may be
// blank when the provider omits it.
func ParseReceivables(r io.Reader, p model.Provider) ([]model.ReceivableEntry, error) {
	rows, err := readRows(r, receivablesFields)
	if err != nil {
		return nil, err
	}

	var entries []model.ReceivableEntry
	for i, rec := range rows {
		date, err := parseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		var payment time.Time
		if rec[1] != "" {
			payment, err = parseDate(rec[1])
			if err != nil {
				return nil, fmt.Errorf("row %d: payment_date: %w", i+2, err)
			}
		}
		gross, err := parseAmount(rec[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: gross: %w", i+2, err)
		}
		net, err := parseAmount(rec[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: net: %w", i+2, err)
		}
		entries = append(entries, model.ReceivableEntry{
			Provider:    p,
			Date:        date,
			PaymentDate: payment,
			Gross:       gross,
			Net:         net,
			Category:    rec[4],
			Batch:       rec[5],
			AuthKey:     rec[6],
		})
	}
	return entries, nil
}

// ParseBank reads a bank statement export. Only credit lines matter to
// reconciliation; debits are dropped here.
func ParseBank(r io.Reader, p model.Provider) ([]model.BankEntry, error) {
	rows, err := readRows(r, bankFields)
	if err != nil {
		return nil, err
	}

	var entries []model.BankEntry
	for i, rec := range rows {
		date, err := parseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		amount, err := parseAmount(rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: amount: %w", i+2, err)
		}
		if amount.Sign() <= 0 {
			continue
		}
		entries = append(entries, model.BankEntry{
			Provider:  p,
			Date:      date,
			Amount:    amount,
			Memo:      rec[2],
			Reference: rec[3],
		})
	}
	return entries, nil
}

func readRows(r io.Reader, fields int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil
}

var dateFormats = []string{"02/01/2006", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, f := range dateFormats {
		if d, err := time.Parse(f, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q", s)
}

// parseAmount accepts both "1234.56" and the Brazilian "1.234,56".
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}
