package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/model"
)

const dateFormat = "2006-01-02"

// CSV headers for the per-provider record snapshots.
const (
	ledgerHeader     = "id,provider,date,gross,category,document,auth_key,lifecycle"
	salesHeader      = "id,provider,date,gross,category,auth_key,terminal,lifecycle"
	receivableHeader = "id,provider,date,payment_date,gross,net,category,auth_key,batch,lifecycle"
	bankHeader       = "id,provider,date,amount,memo,reference,lifecycle"
	carryoverHeader  = "provider,period,amount,confirmed_at"
)

func marshalLedger(e model.LedgerEntry) []string {
	return []string{
		e.ID.String(),
		string(e.Provider),
		e.Date.Format(dateFormat),
		e.Gross.StringFixed(2),
		e.Category,
		e.Document,
		e.AuthKey,
		string(e.Lifecycle),
	}
}

func unmarshalLedger(rec []string) (model.LedgerEntry, bool) {
	id, date, ok := parseIdentity(rec[0], rec[2])
	if !ok {
		return model.LedgerEntry{}, false
	}
	gross, err := decimal.NewFromString(rec[3])
	if err != nil {
		return model.LedgerEntry{}, false
	}
	return model.LedgerEntry{
		ID:        id,
		Provider:  model.Provider(rec[1]),
		Date:      date,
		Gross:     gross,
		Category:  rec[4],
		Document:  rec[5],
		AuthKey:   rec[6],
		Lifecycle: parseLifecycle(rec[7]),
	}, true
}

func marshalSale(e model.PortalSaleEntry) []string {
	return []string{
		e.ID.String(),
		string(e.Provider),
		e.Date.Format(dateFormat),
		e.Gross.StringFixed(2),
		e.Category,
		e.AuthKey,
		e.Terminal,
		string(e.Lifecycle),
	}
}

func unmarshalSale(rec []string) (model.PortalSaleEntry, bool) {
	id, date, ok := parseIdentity(rec[0], rec[2])
	if !ok {
		return model.PortalSaleEntry{}, false
	}
	gross, err := decimal.NewFromString(rec[3])
	if err != nil {
		return model.PortalSaleEntry{}, false
	}
	return model.PortalSaleEntry{
		ID:        id,
		Provider:  model.Provider(rec[1]),
		Date:      date,
		Gross:     gross,
		Category:  rec[4],
		AuthKey:   rec[5],
		Terminal:  rec[6],
		Lifecycle: parseLifecycle(rec[7]),
	}, true
}

func marshalReceivable(e model.ReceivableEntry) []string {
	paymentDate := ""
	if !e.PaymentDate.IsZero() {
		paymentDate = e.PaymentDate.Format(dateFormat)
	}
	return []string{
		e.ID.String(),
		string(e.Provider),
		e.Date.Format(dateFormat),
		paymentDate,
		e.Gross.StringFixed(2),
		e.Net.StringFixed(2),
		e.Category,
		e.AuthKey,
		e.Batch,
		string(e.Lifecycle),
	}
}

func unmarshalReceivable(rec []string) (model.ReceivableEntry, bool) {
	id, date, ok := parseIdentity(rec[0], rec[2])
	if !ok {
		return model.ReceivableEntry{}, false
	}
	gross, err := decimal.NewFromString(rec[4])
	if err != nil {
		return model.ReceivableEntry{}, false
	}
	net, err := decimal.NewFromString(rec[5])
	if err != nil {
		return model.ReceivableEntry{}, false
	}
	var paymentDate time.Time
	if rec[3] != "" {
		paymentDate, err = time.Parse(dateFormat, rec[3])
		if err != nil {
			return model.ReceivableEntry{}, false
		}
	}
	return model.ReceivableEntry{
		ID:          id,
		Provider:    model.Provider(rec[1]),
		Date:        date,
		PaymentDate: paymentDate,
		Gross:       gross,
		Net:         net,
		Category:    rec[6],
		AuthKey:     rec[7],
		Batch:       rec[8],
		Lifecycle:   parseLifecycle(rec[9]),
	}, true
}

func marshalBank(e model.BankEntry) []string {
	return []string{
		e.ID.String(),
		string(e.Provider),
		e.Date.Format(dateFormat),
		e.Amount.StringFixed(2),
		e.Memo,
		e.Reference,
		string(e.Lifecycle),
	}
}

func unmarshalBank(rec []string) (model.BankEntry, bool) {
	id, date, ok := parseIdentity(rec[0], rec[2])
	if !ok {
		return model.BankEntry{}, false
	}
	amount, err := decimal.NewFromString(rec[3])
	if err != nil {
		return model.BankEntry{}, false
	}
	return model.BankEntry{
		ID:        id,
		Provider:  model.Provider(rec[1]),
		Date:      date,
		Amount:    amount,
		Memo:      rec[4],
		Reference: rec[5],
		Lifecycle: parseLifecycle(rec[6]),
	}, true
}

func marshalCarryover(c model.CarryoverBalance) []string {
	return []string{
		string(c.Provider),
		c.Period,
		c.Amount.StringFixed(2),
		c.ConfirmedAt.UTC().Format(time.RFC3339),
	}
}

func unmarshalCarryover(rec []string) (model.CarryoverBalance, bool) {
	amount, err := decimal.NewFromString(rec[2])
	if err != nil {
		return model.CarryoverBalance{}, false
	}
	confirmedAt, err := time.Parse(time.RFC3339, rec[3])
	if err != nil {
		return model.CarryoverBalance{}, false
	}
	return model.CarryoverBalance{
		Provider:    model.Provider(rec[0]),
		Period:      rec[1],
		Amount:      amount,
		ConfirmedAt: confirmedAt,
	}, true
}

// parseIdentity parses the id and date columns shared by all record kinds.
// Malformed rows are dropped, not fatal: one bad import line must not block
// a whole reconciliation run.
func parseIdentity(rawID, rawDate string) (uuid.UUID, time.Time, bool) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.UUID{}, time.Time{}, false
	}
	date, err := time.Parse(dateFormat, rawDate)
	if err != nil {
		return uuid.UUID{}, time.Time{}, false
	}
	return id, date, true
}

func parseLifecycle(s string) model.Lifecycle {
	if strings.EqualFold(s, string(model.LifecycleDeleted)) {
		return model.LifecycleDeleted
	}
	return model.LifecycleActive
}
