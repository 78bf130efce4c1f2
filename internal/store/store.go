// Package store is the passive typed repository behind the engine: four
// record collections per provider, kept as CSV snapshots in the workspace,
// queryable by date range and respecting soft-delete. Importers hand it
// normalized records; the engine only ever reads.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/model"
)

const (
	recordsDir      = "records"
	ledgerFile      = "ledger.csv"
	salesFile       = "sales.csv"
	receivablesFile = "receivables.csv"
	bankFile        = "bank.csv"
)

// ErrNotFound is returned when a soft-delete targets an unknown record.
var ErrNotFound = errors.New("record not found")

// Store reads and writes the per-provider record snapshots under a
// workspace directory.
type Store struct {
	root string
}

// New creates a Store rooted at a workspace directory.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) path(p model.Provider, file string) string {
	return filepath.Join(s.root, recordsDir, strings.ToUpper(string(p)), file)
}

// Ledger returns every ledger entry stored for a provider, including
// soft-deleted ones.
func (s *Store) Ledger(p model.Provider) ([]model.LedgerEntry, error) {
	records, err := readFile(s.path(p, ledgerFile), strings.Count(ledgerHeader, ",")+1)
	if err != nil {
		return nil, err
	}
	var entries []model.LedgerEntry
	for _, rec := range records {
		if e, ok := unmarshalLedger(rec); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// QueryLedger returns active ledger entries dated within [from, to].
func (s *Store) QueryLedger(p model.Provider, from, to time.Time) ([]model.LedgerEntry, error) {
	all, err := s.Ledger(p)
	if err != nil {
		return nil, err
	}
	var out []model.LedgerEntry
	for _, e := range all {
		if !e.Lifecycle.Deleted() && inRange(e.Date, from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// AddLedger appends entries, rejecting exact duplicates by the import
// identity rule. Returns how many were actually added.
func (s *Store) AddLedger(p model.Provider, entries []model.LedgerEntry) (int, error) {
	existing, err := s.Ledger(p)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[identity(e.Provider, e.Date, e.Gross, e.AuthKey)] = true
	}
	added := 0
	for _, e := range entries {
		key := identity(e.Provider, e.Date, e.Gross, e.AuthKey)
		if seen[key] {
			continue
		}
		seen[key] = true
		existing = append(existing, withLedgerDefaults(e))
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, s.SaveLedger(p, existing)
}

// SaveLedger rewrites the provider's ledger snapshot.
func (s *Store) SaveLedger(p model.Provider, entries []model.LedgerEntry) error {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = marshalLedger(e)
	}
	return writeFile(s.path(p, ledgerFile), ledgerHeader, rows)
}

// SoftDeleteLedger marks one ledger entry deleted (manual correction).
func (s *Store) SoftDeleteLedger(p model.Provider, id uuid.UUID) error {
	entries, err := s.Ledger(p)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].ID == id {
			entries[i].Lifecycle = model.LifecycleDeleted
			return s.SaveLedger(p, entries)
		}
	}
	return fmt.Errorf("ledger entry %s: %w", id, ErrNotFound)
}

// Sales returns every portal sale stored for a provider.
func (s *Store) Sales(p model.Provider) ([]model.PortalSaleEntry, error) {
	records, err := readFile(s.path(p, salesFile), strings.Count(salesHeader, ",")+1)
	if err != nil {
		return nil, err
	}
	var entries []model.PortalSaleEntry
	for _, rec := range records {
		if e, ok := unmarshalSale(rec); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// QuerySales returns active portal sales dated within [from, to].
func (s *Store) QuerySales(p model.Provider, from, to time.Time) ([]model.PortalSaleEntry, error) {
	all, err := s.Sales(p)
	if err != nil {
		return nil, err
	}
	var out []model.PortalSaleEntry
	for _, e := range all {
		if !e.Lifecycle.Deleted() && inRange(e.Date, from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// AddSales appends portal sales with duplicate rejection.
func (s *Store) AddSales(p model.Provider, entries []model.PortalSaleEntry) (int, error) {
	existing, err := s.Sales(p)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[identity(e.Provider, e.Date, e.Gross, e.AuthKey)] = true
	}
	added := 0
	for _, e := range entries {
		key := identity(e.Provider, e.Date, e.Gross, e.AuthKey)
		if seen[key] {
			continue
		}
		seen[key] = true
		existing = append(existing, withSaleDefaults(e))
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, s.SaveSales(p, existing)
}

// SaveSales rewrites the provider's sales snapshot.
func (s *Store) SaveSales(p model.Provider, entries []model.PortalSaleEntry) error {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = marshalSale(e)
	}
	return writeFile(s.path(p, salesFile), salesHeader, rows)
}

// SoftDeleteSale marks one portal sale deleted.
func (s *Store) SoftDeleteSale(p model.Provider, id uuid.UUID) error {
	entries, err := s.Sales(p)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].ID == id {
			entries[i].Lifecycle = model.LifecycleDeleted
			return s.SaveSales(p, entries)
		}
	}
	return fmt.Errorf("sale %s: %w", id, ErrNotFound)
}

// Receivables returns every receivable stored for a provider.
func (s *Store) Receivables(p model.Provider) ([]model.ReceivableEntry, error) {
	records, err := readFile(s.path(p, receivablesFile), strings.Count(receivableHeader, ",")+1)
	if err != nil {
		return nil, err
	}
	var entries []model.ReceivableEntry
	for _, rec := range records {
		if e, ok := unmarshalReceivable(rec); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// QueryReceivables returns active receivables whose payment date (or
// transaction date, when payment date is missing) falls within [from, to].
func (s *Store) QueryReceivables(p model.Provider, from, to time.Time) ([]model.ReceivableEntry, error) {
	all, err := s.Receivables(p)
	if err != nil {
		return nil, err
	}
	var out []model.ReceivableEntry
	for _, e := range all {
		if !e.Lifecycle.Deleted() && inRange(e.EffectiveBase(), from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// QueryReceivablesByDate returns active receivables whose transaction
// date falls within [from, to], regardless of payment date.
func (s *Store) QueryReceivablesByDate(p model.Provider, from, to time.Time) ([]model.ReceivableEntry, error) {
	all, err := s.Receivables(p)
	if err != nil {
		return nil, err
	}
	var out []model.ReceivableEntry
	for _, e := range all {
		if !e.Lifecycle.Deleted() && inRange(e.Date, from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// AddReceivables appends receivables with duplicate rejection.
func (s *Store) AddReceivables(p model.Provider, entries []model.ReceivableEntry) (int, error) {
	existing, err := s.Receivables(p)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[identity(e.Provider, e.Date, e.Gross, e.AuthKey)] = true
	}
	added := 0
	for _, e := range entries {
		key := identity(e.Provider, e.Date, e.Gross, e.AuthKey)
		if seen[key] {
			continue
		}
		seen[key] = true
		existing = append(existing, withReceivableDefaults(e))
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, s.SaveReceivables(p, existing)
}

// SaveReceivables rewrites the provider's receivables snapshot.
func (s *Store) SaveReceivables(p model.Provider, entries []model.ReceivableEntry) error {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = marshalReceivable(e)
	}
	return writeFile(s.path(p, receivablesFile), receivableHeader, rows)
}

// SoftDeleteReceivable marks one receivable deleted.
func (s *Store) SoftDeleteReceivable(p model.Provider, id uuid.UUID) error {
	entries, err := s.Receivables(p)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].ID == id {
			entries[i].Lifecycle = model.LifecycleDeleted
			return s.SaveReceivables(p, entries)
		}
	}
	return fmt.Errorf("receivable %s: %w", id, ErrNotFound)
}

// Bank returns every bank entry stored for a provider.
func (s *Store) Bank(p model.Provider) ([]model.BankEntry, error) {
	records, err := readFile(s.path(p, bankFile), strings.Count(bankHeader, ",")+1)
	if err != nil {
		return nil, err
	}
	var entries []model.BankEntry
	for _, rec := range records {
		if e, ok := unmarshalBank(rec); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// QueryBank returns active bank entries dated within [from, to].
func (s *Store) QueryBank(p model.Provider, from, to time.Time) ([]model.BankEntry, error) {
	all, err := s.Bank(p)
	if err != nil {
		return nil, err
	}
	var out []model.BankEntry
	for _, e := range all {
		if !e.Lifecycle.Deleted() && inRange(e.Date, from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// AddBank appends bank entries with duplicate rejection. Bank rows have no
// authorization key; the statement reference takes its place in the
// identity rule.
func (s *Store) AddBank(p model.Provider, entries []model.BankEntry) (int, error) {
	existing, err := s.Bank(p)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[identity(e.Provider, e.Date, e.Amount, e.Reference)] = true
	}
	added := 0
	for _, e := range entries {
		key := identity(e.Provider, e.Date, e.Amount, e.Reference)
		if seen[key] {
			continue
		}
		seen[key] = true
		existing = append(existing, withBankDefaults(e))
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, s.SaveBank(p, existing)
}

// SaveBank rewrites the provider's bank snapshot.
func (s *Store) SaveBank(p model.Provider, entries []model.BankEntry) error {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = marshalBank(e)
	}
	return writeFile(s.path(p, bankFile), bankHeader, rows)
}

// SoftDeleteBank marks one bank entry deleted.
func (s *Store) SoftDeleteBank(p model.Provider, id uuid.UUID) error {
	entries, err := s.Bank(p)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].ID == id {
			entries[i].Lifecycle = model.LifecycleDeleted
			return s.SaveBank(p, entries)
		}
	}
	return fmt.Errorf("bank entry %s: %w", id, ErrNotFound)
}

// identity implements the import-boundary duplicate rule: same
// provider+date+amount+key, or same provider+date+amount when the key is
// blank.
func identity(p model.Provider, date time.Time, amount decimal.Decimal, key string) string {
	base := fmt.Sprintf("%s|%s|%d", p, model.Day(date).Format(dateFormat), model.Cents(amount))
	if key == "" {
		return base
	}
	return base + "|" + key
}

func inRange(d, from, to time.Time) bool {
	day := model.Day(d)
	return !day.Before(model.Day(from)) && !day.After(model.Day(to))
}

func withLedgerDefaults(e model.LedgerEntry) model.LedgerEntry {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Lifecycle == "" {
		e.Lifecycle = model.LifecycleActive
	}
	return e
}

func withSaleDefaults(e model.PortalSaleEntry) model.PortalSaleEntry {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Lifecycle == "" {
		e.Lifecycle = model.LifecycleActive
	}
	return e
}

func withReceivableDefaults(e model.ReceivableEntry) model.ReceivableEntry {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Lifecycle == "" {
		e.Lifecycle = model.LifecycleActive
	}
	return e
}

func withBankDefaults(e model.BankEntry) model.BankEntry {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Lifecycle == "" {
		e.Lifecycle = model.LifecycleActive
	}
	return e
}

// readFile reads a CSV snapshot, returning nil when the file does not
// exist yet. The header row is skipped.
func readFile(path string, fields int) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = fields
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil
}

func writeFile(path, header string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write(strings.Split(header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}
