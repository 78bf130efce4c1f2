package capture

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concilia-dev/concilia/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ledger(d time.Time, gross string) model.LedgerEntry {
	return model.LedgerEntry{
		ID:        uuid.New(),
		Provider:  "ALELO",
		Date:      d,
		Gross:     dec(gross),
		Lifecycle: model.LifecycleActive,
	}
}

func sale(d time.Time, gross string) model.PortalSaleEntry {
	return model.PortalSaleEntry{
		ID:        uuid.New(),
		Provider:  "ALELO",
		Date:      d,
		Gross:     dec(gross),
		Lifecycle: model.LifecycleActive,
	}
}

func TestRun_GroupMatch(t *testing.T) {
	d := date(2024, time.March, 1)
	rows := Run(
		[]model.LedgerEntry{ledger(d, "100.00")},
		[]model.PortalSaleEntry{sale(d, "40.00"), sale(d, "60.00")},
		Options{WindowDays: DefaultWindowDays},
	)

	require.Len(t, rows, 1)
	assert.Equal(t, StatusMatched, rows[0].Status)
	assert.True(t, rows[0].GroupSum.Equal(dec("100.00")), "got %s", rows[0].GroupSum)
	assert.True(t, rows[0].Difference.IsZero())
	assert.Equal(t, 2, rows[0].GroupSize)
}

func TestRun_NoCandidate(t *testing.T) {
	rows := Run(
		[]model.LedgerEntry{ledger(date(2024, time.March, 1), "100.00")},
		nil,
		Options{WindowDays: 2},
	)

	require.Len(t, rows, 1)
	assert.Equal(t, StatusUnmatchedLedger, rows[0].Status)
	assert.True(t, rows[0].Difference.Equal(dec("-100.00")), "got %s", rows[0].Difference)
}

func TestRun_ExactBeatsGroup(t *testing.T) {
	d := date(2024, time.March, 1)
	exact := sale(d.AddDate(0, 0, 1), "100.00")
	rows := Run(
		[]model.LedgerEntry{ledger(d, "100.00")},
		[]model.PortalSaleEntry{sale(d, "40.00"), sale(d, "60.00"), exact},
		Options{WindowDays: 2},
	)

	matched := rows[0]
	require.Equal(t, StatusMatched, matched.Status)
	require.Len(t, matched.SaleIDs, 1, "1:1 preferred over the 40+60 group")
	assert.Equal(t, exact.ID, matched.SaleIDs[0])
}

func TestRun_ExactPrefersSmallestDateDelta(t *testing.T) {
	d := date(2024, time.March, 5)
	far := sale(d.AddDate(0, 0, -2), "50.00")
	near := sale(d, "50.00")
	rows := Run(
		[]model.LedgerEntry{ledger(d, "50.00")},
		[]model.PortalSaleEntry{far, near},
		Options{WindowDays: 2},
	)

	require.Len(t, rows, 2)
	assert.Equal(t, near.ID, rows[0].SaleIDs[0])
	assert.Equal(t, StatusLedgerMissing, rows[1].Status)
}

func TestRun_WindowExcludesCandidates(t *testing.T) {
	d := date(2024, time.March, 10)
	rows := Run(
		[]model.LedgerEntry{ledger(d, "75.00")},
		[]model.PortalSaleEntry{sale(d.AddDate(0, 0, 3), "75.00")},
		Options{WindowDays: 2},
	)

	assert.Equal(t, StatusUnmatchedLedger, rows[0].Status)
	assert.Equal(t, StatusLedgerMissing, rows[1].Status)
}

func TestRun_LeftoverSalesProvisionallyReconciled(t *testing.T) {
	d := date(2024, time.March, 1)
	rows := Run(nil, []model.PortalSaleEntry{sale(d, "25.00")}, Options{WindowDays: 2})

	require.Len(t, rows, 1)
	assert.Equal(t, StatusLedgerMissing, rows[0].Status)
	assert.True(t, rows[0].Difference.Equal(dec("25.00")))
}

func TestRun_SkipsDeletedAndZeroAmount(t *testing.T) {
	d := date(2024, time.March, 1)
	deleted := sale(d, "100.00")
	deleted.Lifecycle = model.LifecycleDeleted
	rows := Run(
		[]model.LedgerEntry{ledger(d, "100.00")},
		[]model.PortalSaleEntry{deleted, sale(d, "0.00")},
		Options{WindowDays: 2},
	)

	require.Len(t, rows, 1)
	assert.Equal(t, StatusUnmatchedLedger, rows[0].Status)
}

func TestRun_Conservation(t *testing.T) {
	d := date(2024, time.March, 4)
	sales := []model.PortalSaleEntry{
		sale(d, "40.00"), sale(d, "60.00"), sale(d, "15.50"),
		sale(d.AddDate(0, 0, 1), "99.99"), sale(d.AddDate(0, 0, 5), "7.00"),
	}
	entries := []model.LedgerEntry{
		ledger(d, "100.00"), ledger(d, "200.00"),
	}

	for _, window := range []int{0, 1, 2, 5} {
		rows := Run(entries, sales, Options{WindowDays: window})

		total := decimal.Zero
		for _, r := range rows {
			total = total.Add(r.GroupSum)
		}
		want := decimal.Zero
		for _, s := range sales {
			want = want.Add(s.Gross)
		}
		assert.True(t, total.Equal(want), "window %d: %s != %s", window, total, want)
	}
}

func TestRun_Idempotent(t *testing.T) {
	d := date(2024, time.March, 1)
	entries := []model.LedgerEntry{ledger(d, "100.00"), ledger(d, "55.00")}
	sales := []model.PortalSaleEntry{sale(d, "40.00"), sale(d, "60.00"), sale(d, "55.00")}

	first := Run(entries, sales, Options{WindowDays: 2})
	second := Run(entries, sales, Options{WindowDays: 2})
	assert.Equal(t, first, second)
}

func TestRun_NegativeWindowClamped(t *testing.T) {
	d := date(2024, time.March, 1)
	rows := Run(
		[]model.LedgerEntry{ledger(d, "10.00")},
		[]model.PortalSaleEntry{sale(d, "10.00")},
		Options{WindowDays: -3},
	)

	require.Len(t, rows, 1)
	assert.Equal(t, StatusMatched, rows[0].Status)
}
