package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Provider is a payment-network code, e.g. "ALELO" or "TICKET".
type Provider string

// Lifecycle represents the soft-delete state of a record.
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleDeleted Lifecycle = "deleted"
)

// LedgerEntry is a sale as recorded by the merchant's own accounting export.
type LedgerEntry struct {
	ID        uuid.UUID
	Provider  Provider
	Date      time.Time
	Gross     decimal.Decimal
	Category  string
	Document  string // source document reference (invoice/coupon number)
	AuthKey   string
	Lifecycle Lifecycle
}

// PortalSaleEntry is a sale as reported by the network's merchant portal.
type PortalSaleEntry struct {
	ID        uuid.UUID
	Provider  Provider
	Date      time.Time
	Gross     decimal.Decimal
	Category  string
	AuthKey   string
	Terminal  string
	Lifecycle Lifecycle
}

// ReceivableEntry is a settlement record from the network carrying gross,
// net and the implied fee. PaymentDate is zero when the report omitted it.
type ReceivableEntry struct {
	ID          uuid.UUID
	Provider    Provider
	Date        time.Time
	PaymentDate time.Time
	Gross       decimal.Decimal
	Net         decimal.Decimal
	Category    string
	AuthKey     string
	Batch       string // settlement batch reference, blank if the provider has none
	Lifecycle   Lifecycle
}

// EffectiveBase returns the payment date, falling back to the transaction
// date when the report carried none.
func (r ReceivableEntry) EffectiveBase() time.Time {
	if r.PaymentDate.IsZero() {
		return r.Date
	}
	return r.PaymentDate
}

// BankEntry is a credit line from the merchant's bank statement. Bank rows
// have no gross/net split, only the settled amount and free text.
type BankEntry struct {
	ID        uuid.UUID
	Provider  Provider
	Date      time.Time
	Amount    decimal.Decimal
	Memo      string
	Reference string
	Lifecycle Lifecycle
}

// Deleted reports whether a lifecycle marks a soft-deleted record.
func (l Lifecycle) Deleted() bool { return l == LifecycleDeleted }
