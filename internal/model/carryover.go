package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CarryoverBalance is the signed over/under-settlement amount confirmed at
// the end of a period, rolled into the next period's opening balance.
// One row per provider+period; only written on explicit confirmation.
type CarryoverBalance struct {
	Provider    Provider
	Period      string // "YYYY-MM"
	Amount      decimal.Decimal
	ConfirmedAt time.Time
}
