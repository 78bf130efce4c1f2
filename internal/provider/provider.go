// Package provider holds per-network configuration profiles. Each payment
// network settles differently — batch vs. individual receivables, memo
// wording on the bank statement, whether its reported net can be trusted —
// and the profile isolates those differences so adding a network never
// touches the engine.
package provider

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/settlement"
)

// NetMode selects how a provider's settlement net is derived.
type NetMode string

const (
	// NetReported trusts the net column of the receivables report.
	NetReported NetMode = "reported"
	// NetModeled recomputes the net from the fee schedule; for providers
	// whose reports never carry a trustworthy net.
	NetModeled NetMode = "modeled"
)

// Profile is one provider's reconciliation configuration.
type Profile struct {
	Code          model.Provider
	Label         string
	BatchOriented bool
	NetMode       NetMode
	MemoFilters   []string
	CaptureWindow int
	SettleWindow  int
	BankWindow    int
	Spillover     int
	TransferFee   decimal.Decimal
}

// Nets returns the settlement net computer for this profile.
func (p Profile) Nets() settlement.NetComputer {
	if p.NetMode == NetModeled {
		return settlement.ModeledNet{}
	}
	return settlement.ReportedNet{}
}

// Registry resolves provider codes to profiles.
type Registry struct {
	profiles map[model.Provider]Profile
	fallback Profile
}

// NewRegistry builds a registry from configured profiles. Lookup is by
// upper-cased code.
func NewRegistry(profiles []Profile) *Registry {
	r := &Registry{
		profiles: make(map[model.Provider]Profile, len(profiles)),
		fallback: Defaults(""),
	}
	for _, p := range profiles {
		r.profiles[normalize(p.Code)] = p
	}
	return r
}

// Get returns the profile for a code. Unknown codes get a default profile
// so a newly imported provider keeps working before it is configured.
func (r *Registry) Get(code model.Provider) Profile {
	if p, ok := r.profiles[normalize(code)]; ok {
		return p
	}
	p := r.fallback
	p.Code = normalize(code)
	p.Label = string(p.Code)
	return p
}

// Defaults returns the baseline profile for a provider code.
func Defaults(code model.Provider) Profile {
	return Profile{
		Code:          normalize(code),
		Label:         string(normalize(code)),
		NetMode:       NetReported,
		CaptureWindow: 2,
		SettleWindow:  0,
		BankWindow:    2,
		Spillover:     5,
	}
}

// BuiltIn returns the profiles shipped for the known networks.
func BuiltIn() []Profile {
	alelo := Defaults("ALELO")
	alelo.Label = "Alelo"
	alelo.BatchOriented = true
	alelo.MemoFilters = []string{"alelo"}

	ticket := Defaults("TICKET")
	ticket.Label = "Ticket"
	ticket.MemoFilters = []string{"ticket"}

	farmapp := Defaults("FARMACIASAPP")
	farmapp.Label = "FarmaciasApp"
	farmapp.NetMode = NetModeled
	farmapp.MemoFilters = []string{"farmacias app", "farmaciasapp"}

	return []Profile{alelo, ticket, farmapp}
}

func normalize(code model.Provider) model.Provider {
	return model.Provider(strings.ToUpper(strings.TrimSpace(string(code))))
}
