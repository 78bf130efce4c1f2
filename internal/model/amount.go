package model

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Cents collapses an amount to integer-cent granularity. All engine
// comparisons go through this so repeated decimal arithmetic cannot drift.
func Cents(d decimal.Decimal) int64 {
	return d.Round(2).Mul(hundred).IntPart()
}

// SameAmount reports whether two amounts are equal at cent granularity.
func SameAmount(a, b decimal.Decimal) bool {
	return Cents(a) == Cents(b)
}

// Day strips the time-of-day component, keeping the date in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns b-a in whole days. Positive when b is after a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
