package feerule

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/concilia-dev/concilia/internal/model"
)

// ErrNoRule means no active rule matched the transaction category. Callers
// must surface this as an explicit status, never default the fee to zero.
var ErrNoRule = errors.New("no rule configured")

// Rule is one negotiated fee schedule line for a provider. Match is a
// substring predicate over the normalized transaction category; the longest
// matching active rule wins.
type Rule struct {
	Provider    model.Provider
	Label       string
	Match       string
	Rate        decimal.Decimal // percent over gross
	FixedPerTxn decimal.Decimal // per transaction
	TransferFee decimal.Decimal // once per settlement batch
	Active      bool
}

// Fee returns the expected settlement fee for a gross amount covering
// count transactions. The per-batch transfer fee is NOT included here;
// it applies once per batch at the allocation stage.
func (r Rule) Fee(gross decimal.Decimal, count int) decimal.Decimal {
	pct := gross.Mul(r.Rate).Div(decimal.NewFromInt(100))
	fixed := r.FixedPerTxn.Mul(decimal.NewFromInt(int64(count)))
	return pct.Add(fixed).Round(2)
}

// Net returns gross minus the expected fee.
func (r Rule) Net(gross decimal.Decimal, count int) decimal.Decimal {
	return gross.Sub(r.Fee(gross, count))
}

// Resolver picks the best-matching active rule for a category string.
type Resolver struct {
	rules []Rule
}

// NewResolver builds a Resolver over a rule list. Rule order is preserved
// and breaks ties between equally specific matches.
func NewResolver(rules []Rule) *Resolver {
	return &Resolver{rules: rules}
}

// Resolve returns the active rule for the provider whose match text is the
// longest substring of the normalized category. A rule with an empty match
// text acts as the provider's catch-all. Returns ErrNoRule when nothing
// matches.
func (r *Resolver) Resolve(provider model.Provider, category string) (Rule, error) {
	in := Normalize(category)

	best := -1
	bestLen := -1
	for i, rule := range r.rules {
		if !rule.Active || rule.Provider != provider {
			continue
		}
		m := Normalize(rule.Match)
		if !strings.Contains(in, m) {
			continue
		}
		if len(m) > bestLen {
			best, bestLen = i, len(m)
		}
	}

	if best < 0 {
		return Rule{}, ErrNoRule
	}
	return r.rules[best], nil
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, trims and strips diacritics so "Alimentação" and
// "ALIMENTACAO" compare equal.
func Normalize(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
