// Package config loads the two configuration layers of a workspace:
// tool-level settings (viper, with env overrides) and the domain files —
// provider profiles, fee rules and extra calendar holidays (plain YAML).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/concilia-dev/concilia/internal/feerule"
	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/provider"
	"github.com/concilia-dev/concilia/internal/subset"
)

const (
	settingsFile  = "concilia.yaml"
	providersFile = "providers.yaml"
	feeRulesFile  = "fee-rules.yaml"
	calendarFile  = "calendar.yaml"
)

// Settings are the tool-level knobs, loaded from concilia.yaml with
// CONCILIA_* environment overrides.
type Settings struct {
	MaxGroup  int    `yaml:"max_group"`  // subset-sum group cap
	LogLevel  string `yaml:"log_level"`  // zerolog level name
	ExportDir string `yaml:"export_dir"` // report CSVs land here, relative to the workspace
}

// LoadSettings reads concilia.yaml from the workspace directory.
func LoadSettings(dir string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, settingsFile))
	v.SetEnvPrefix("CONCILIA")
	v.AutomaticEnv()

	v.SetDefault("max_group", subset.MaxGroupDefault)
	v.SetDefault("log_level", "info")
	v.SetDefault("export_dir", "exports")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading settings: %w", err)
		}
	}

	return &Settings{
		MaxGroup:  v.GetInt("max_group"),
		LogLevel:  v.GetString("log_level"),
		ExportDir: v.GetString("export_dir"),
	}, nil
}

// SaveSettings writes concilia.yaml.
func SaveSettings(dir string, s *Settings) error {
	return saveYAML(filepath.Join(dir, settingsFile), s)
}

// DefaultSettings returns the settings a fresh workspace starts with.
func DefaultSettings() *Settings {
	return &Settings{
		MaxGroup:  subset.MaxGroupDefault,
		LogLevel:  "info",
		ExportDir: "exports",
	}
}

// Amounts live as strings in the YAML files so the decimal values survive
// the round trip exactly.
type profileDoc struct {
	Code          string   `yaml:"code"`
	Label         string   `yaml:"label"`
	BatchOriented bool     `yaml:"batch_oriented"`
	NetMode       string   `yaml:"net_mode"`
	MemoFilters   []string `yaml:"memo_filters,omitempty"`
	CaptureWindow int      `yaml:"capture_window"`
	SettleWindow  int      `yaml:"settle_window"`
	BankWindow    int      `yaml:"bank_window"`
	Spillover     int      `yaml:"spillover"`
	TransferFee   string   `yaml:"transfer_fee,omitempty"`
}

type providersDoc struct {
	Providers []profileDoc `yaml:"providers"`
}

// LoadProviders reads providers.yaml, falling back to the built-in
// profiles when the file does not exist.
func LoadProviders(dir string) ([]provider.Profile, error) {
	path := filepath.Join(dir, providersFile)
	var doc providersDoc
	ok, err := loadYAML(path, &doc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return provider.BuiltIn(), nil
	}

	profiles := make([]provider.Profile, 0, len(doc.Providers))
	for _, d := range doc.Providers {
		fee, err := parseAmount(d.TransferFee)
		if err != nil {
			return nil, fmt.Errorf("provider %s in %s: %w", d.Code, path, err)
		}
		profiles = append(profiles, provider.Profile{
			Code:          model.Provider(d.Code),
			Label:         d.Label,
			BatchOriented: d.BatchOriented,
			NetMode:       provider.NetMode(d.NetMode),
			MemoFilters:   d.MemoFilters,
			CaptureWindow: d.CaptureWindow,
			SettleWindow:  d.SettleWindow,
			BankWindow:    d.BankWindow,
			Spillover:     d.Spillover,
			TransferFee:   fee,
		})
	}
	return profiles, nil
}

// SaveProviders writes providers.yaml.
func SaveProviders(dir string, profiles []provider.Profile) error {
	doc := providersDoc{}
	for _, p := range profiles {
		doc.Providers = append(doc.Providers, profileDoc{
			Code:          string(p.Code),
			Label:         p.Label,
			BatchOriented: p.BatchOriented,
			NetMode:       string(p.NetMode),
			MemoFilters:   p.MemoFilters,
			CaptureWindow: p.CaptureWindow,
			SettleWindow:  p.SettleWindow,
			BankWindow:    p.BankWindow,
			Spillover:     p.Spillover,
			TransferFee:   formatAmount(p.TransferFee),
		})
	}
	return saveYAML(filepath.Join(dir, providersFile), doc)
}

type feeRuleDoc struct {
	Provider    string `yaml:"provider"`
	Label       string `yaml:"label"`
	Match       string `yaml:"match"`
	Rate        string `yaml:"rate"`
	FixedPerTxn string `yaml:"fixed_per_txn,omitempty"`
	TransferFee string `yaml:"transfer_fee,omitempty"`
	Active      bool   `yaml:"active"`
}

type feeRulesDoc struct {
	Rules []feeRuleDoc `yaml:"rules"`
}

// LoadFeeRules reads fee-rules.yaml. A missing file means no rules are
// configured yet, which is valid: runs then report no_rule statuses.
func LoadFeeRules(dir string) ([]feerule.Rule, error) {
	path := filepath.Join(dir, feeRulesFile)
	var doc feeRulesDoc
	if _, err := loadYAML(path, &doc); err != nil {
		return nil, err
	}

	rules := make([]feerule.Rule, 0, len(doc.Rules))
	for i, d := range doc.Rules {
		rate, err := parseAmount(d.Rate)
		if err != nil {
			return nil, fmt.Errorf("rule %d in %s: rate: %w", i+1, path, err)
		}
		fixed, err := parseAmount(d.FixedPerTxn)
		if err != nil {
			return nil, fmt.Errorf("rule %d in %s: fixed_per_txn: %w", i+1, path, err)
		}
		transfer, err := parseAmount(d.TransferFee)
		if err != nil {
			return nil, fmt.Errorf("rule %d in %s: transfer_fee: %w", i+1, path, err)
		}
		rules = append(rules, feerule.Rule{
			Provider:    model.Provider(d.Provider),
			Label:       d.Label,
			Match:       d.Match,
			Rate:        rate,
			FixedPerTxn: fixed,
			TransferFee: transfer,
			Active:      d.Active,
		})
	}
	return rules, nil
}

// SaveFeeRules writes fee-rules.yaml.
func SaveFeeRules(dir string, rules []feerule.Rule) error {
	doc := feeRulesDoc{}
	for _, r := range rules {
		doc.Rules = append(doc.Rules, feeRuleDoc{
			Provider:    string(r.Provider),
			Label:       r.Label,
			Match:       r.Match,
			Rate:        r.Rate.String(),
			FixedPerTxn: formatAmount(r.FixedPerTxn),
			TransferFee: formatAmount(r.TransferFee),
			Active:      r.Active,
		})
	}
	return saveYAML(filepath.Join(dir, feeRulesFile), doc)
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func formatAmount(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

type calendarDoc struct {
	Holidays []string `yaml:"holidays"` // extra dates, "2006-01-02"
}

// LoadHolidays reads calendar.yaml and returns the extra holiday dates to
// layer over the national set. Unparseable dates are skipped.
func LoadHolidays(dir string) ([]time.Time, error) {
	var doc calendarDoc
	if _, err := loadYAML(filepath.Join(dir, calendarFile), &doc); err != nil {
		return nil, err
	}
	var dates []time.Time
	for _, s := range doc.Holidays {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// SaveHolidays writes calendar.yaml.
func SaveHolidays(dir string, dates []time.Time) error {
	doc := calendarDoc{}
	for _, d := range dates {
		doc.Holidays = append(doc.Holidays, d.Format("2006-01-02"))
	}
	return saveYAML(filepath.Join(dir, calendarFile), doc)
}

func loadYAML(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("parsing %s: %w", path, err)
	}
	return true, nil
}

func saveYAML(path string, in any) error {
	data, err := yaml.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
