package commands

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concilia-dev/concilia/internal/auditlog"
	"github.com/concilia-dev/concilia/internal/config"
	"github.com/concilia-dev/concilia/internal/feerule"
	"github.com/concilia-dev/concilia/internal/logging"
	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/period"
	"github.com/concilia-dev/concilia/internal/provider"
	"github.com/concilia-dev/concilia/internal/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, runInit(dir))

	settings, err := config.LoadSettings(dir)
	require.NoError(t, err)

	return &env{
		dir:      dir,
		settings: settings,
		log:      logging.NewWithWriter(io.Discard),
	}
}

func aleloScope(t *testing.T) runScope {
	t.Helper()
	per, err := period.Parse("2024-03")
	require.NoError(t, err)
	return runScope{profile: provider.BuiltIn()[0], period: per}
}

func TestRunInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, runInit(dir))

	for _, d := range []string{
		"import",
		filepath.Join("import", "processed"),
		"exports",
		"logs",
		filepath.Join("records", "ALELO"),
		filepath.Join("records", "TICKET"),
		filepath.Join("records", "FARMACIASAPP"),
	} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir())
	}

	for _, f := range []string{"concilia.yaml", "providers.yaml", "fee-rules.yaml", "calendar.yaml"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "%s should exist", f)
	}
}

func TestRunImport_LoadsAndMovesFile(t *testing.T) {
	e := newTestEnv(t)

	csvIn := "date,gross,category,terminal,auth_key\n" +
		"01/03/2024,\"40,00\",Alimentação,T01,K1\n" +
		"01/03/2024,\"60,00\",Alimentação,T02,K2\n"
	name := "alelo-sales-march.csv"
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, "import", name), []byte(csvIn), 0o644))

	require.NoError(t, runImport(e, false))

	sales, err := store.New(e.dir).Sales("ALELO")
	require.NoError(t, err)
	assert.Len(t, sales, 2)

	_, err = os.Stat(filepath.Join(e.dir, "import", name))
	assert.True(t, os.IsNotExist(err), "file should have moved to processed/")
	_, err = os.Stat(filepath.Join(e.dir, "import", "processed", name))
	assert.NoError(t, err)
}

func TestRunImport_Rerunnable(t *testing.T) {
	e := newTestEnv(t)

	csvIn := "date,gross,category,terminal,auth_key\n" +
		"01/03/2024,\"40,00\",Alimentação,T01,K1\n"
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, "import", "alelo-sales-a.csv"), []byte(csvIn), 0o644))
	require.NoError(t, runImport(e, false))
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, "import", "alelo-sales-b.csv"), []byte(csvIn), 0o644))
	require.NoError(t, runImport(e, false))

	sales, err := store.New(e.dir).Sales("ALELO")
	require.NoError(t, err)
	assert.Len(t, sales, 1, "duplicate rows are rejected on the second import")
}

func TestRunCapture_WritesReport(t *testing.T) {
	e := newTestEnv(t)
	st := store.New(e.dir)

	_, err := st.AddLedger("ALELO", []model.LedgerEntry{{
		Provider: "ALELO", Date: date(2024, time.March, 1), Gross: dec("100.00"), Document: "NF-1",
	}})
	require.NoError(t, err)
	_, err = st.AddSales("ALELO", []model.PortalSaleEntry{
		{Provider: "ALELO", Date: date(2024, time.March, 1), Gross: dec("40.00"), AuthKey: "K1"},
		{Provider: "ALELO", Date: date(2024, time.March, 1), Gross: dec("60.00"), AuthKey: "K2"},
	})
	require.NoError(t, err)

	require.NoError(t, runCapture(e, aleloScope(t), -1))

	data, err := os.ReadFile(filepath.Join(e.dir, "exports", "capture-alelo-2024-03.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "matched")
}

func TestRunSettle_WritesReport(t *testing.T) {
	e := newTestEnv(t)
	st := store.New(e.dir)

	require.NoError(t, config.SaveFeeRules(e.dir, []feerule.Rule{{
		Provider:    "ALELO",
		Label:       "Alimentação",
		Rate:        dec("4.5"),
		FixedPerTxn: dec("0.52"),
		Active:      true,
	}}))

	_, err := st.AddSales("ALELO", []model.PortalSaleEntry{{
		Provider: "ALELO", Date: date(2024, time.March, 1), Gross: dec("1000.00"), AuthKey: "K1",
	}})
	require.NoError(t, err)
	// 1000 - (4.5% * 1000 + 0.52) = 954.48
	_, err = st.AddReceivables("ALELO", []model.ReceivableEntry{{
		Provider: "ALELO", Date: date(2024, time.March, 1),
		Gross: dec("1000.00"), Net: dec("954.48"), AuthKey: "K1",
	}})
	require.NoError(t, err)

	require.NoError(t, runSettle(e, aleloScope(t), -1))

	data, err := os.ReadFile(filepath.Join(e.dir, "exports", "settlement-alelo-2024-03.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "match")
	assert.NotContains(t, string(data), "no_rule")
}

func TestRunAllocate_WritesReports(t *testing.T) {
	e := newTestEnv(t)
	st := store.New(e.dir)

	_, err := st.AddReceivables("ALELO", []model.ReceivableEntry{{
		Provider: "ALELO", Date: date(2024, time.March, 1),
		PaymentDate: date(2024, time.March, 4),
		Gross:       dec("125.50"), Net: dec("120.50"), Batch: "L1",
	}})
	require.NoError(t, err)
	_, err = st.AddBank("ALELO", []model.BankEntry{{
		Provider: "ALELO", Date: date(2024, time.March, 4),
		Amount: dec("120.50"), Memo: "CRED ALELO REF", Reference: "R1",
	}})
	require.NoError(t, err)

	require.NoError(t, runAllocate(e, aleloScope(t), -1, -1))

	daily, err := os.ReadFile(filepath.Join(e.dir, "exports", "allocation-daily-alelo-2024-03.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(daily), "ok")

	for _, f := range []string{"allocation-bank-alelo-2024-03.csv", "allocation-links-alelo-2024-03.csv"} {
		_, err := os.Stat(filepath.Join(e.dir, "exports", f))
		assert.NoError(t, err, "%s should exist", f)
	}
}

func TestRunAllocate_TransferFeeFromRuleSchedule(t *testing.T) {
	e := newTestEnv(t)
	st := store.New(e.dir)

	require.NoError(t, config.SaveFeeRules(e.dir, []feerule.Rule{{
		Provider:    "ALELO",
		Label:       "Alimentação",
		TransferFee: dec("1.90"),
		Active:      true,
	}}))

	_, err := st.AddReceivables("ALELO", []model.ReceivableEntry{{
		Provider: "ALELO", Date: date(2024, time.March, 1),
		PaymentDate: date(2024, time.March, 4),
		Gross:       dec("510.00"), Net: dec("500.00"), Batch: "L1",
	}})
	require.NoError(t, err)
	// The bank credits the batch net minus the per-batch transfer fee.
	_, err = st.AddBank("ALELO", []model.BankEntry{{
		Provider: "ALELO", Date: date(2024, time.March, 4),
		Amount: dec("498.10"), Memo: "CRED ALELO", Reference: "R1",
	}})
	require.NoError(t, err)

	require.NoError(t, runAllocate(e, aleloScope(t), -1, -1))

	daily, err := os.ReadFile(filepath.Join(e.dir, "exports", "allocation-daily-alelo-2024-03.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(daily), "498.10,498.10")
	assert.Contains(t, string(daily), "ok")
	assert.NotContains(t, string(daily), "day_mismatch")
}

func TestRunConfirm_PersistsAndAudits(t *testing.T) {
	e := newTestEnv(t)
	scope := aleloScope(t)

	require.NoError(t, runConfirm(e, scope, "12.34", "reviewed"))

	cs := store.NewCarryoverStore(e.dir)
	amount, ok, err := cs.Confirmed("ALELO", scope.period)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, amount.Equal(dec("12.34")))

	opening, err := cs.Opening("ALELO", scope.period.Next())
	require.NoError(t, err)
	assert.True(t, opening.Equal(dec("12.34")))

	entries, err := auditlog.Read(e.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, auditlog.ActionConfirmCarryover, entries[0].Action)
	assert.Equal(t, "2024-03", entries[0].Period)
}

func TestRunConfirm_BadAmount(t *testing.T) {
	e := newTestEnv(t)
	assert.Error(t, runConfirm(e, aleloScope(t), "abc", ""))
}

func TestRunDelete_ExcludesFromQueries(t *testing.T) {
	e := newTestEnv(t)
	st := store.New(e.dir)

	_, err := st.AddSales("ALELO", []model.PortalSaleEntry{{
		Provider: "ALELO", Date: date(2024, time.March, 1), Gross: dec("40.00"), AuthKey: "K1",
	}})
	require.NoError(t, err)
	sales, err := st.Sales("ALELO")
	require.NoError(t, err)
	require.Len(t, sales, 1)

	require.NoError(t, runDelete(e, "ALELO", "sales", sales[0].ID.String(), "typo"))

	active, err := st.QuerySales("ALELO", date(2024, time.March, 1), date(2024, time.March, 31))
	require.NoError(t, err)
	assert.Empty(t, active)

	entries, err := auditlog.Read(e.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, auditlog.ActionSoftDelete, entries[0].Action)
}

func TestRunStatus_EmptyWorkspace(t *testing.T) {
	e := newTestEnv(t)
	assert.NoError(t, runStatus(e))
}
