package settlement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concilia-dev/concilia/internal/feerule"
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

func sale(d time.Time, gross, key string) model.PortalSaleEntry {
	return model.PortalSaleEntry{
		ID:        uuid.New(),
		Provider:  "ALELO",
		Date:      d,
		Gross:     dec(gross),
		Category:  "alimentacao",
		AuthKey:   key,
		Lifecycle: model.LifecycleActive,
	}
}

func receivable(d time.Time, gross, net, key string) model.ReceivableEntry {
	return model.ReceivableEntry{
		ID:        uuid.New(),
		Provider:  "ALELO",
		Date:      d,
		Gross:     dec(gross),
		Net:       dec(net),
		Category:  "alimentacao",
		AuthKey:   key,
		Lifecycle: model.LifecycleActive,
	}
}

func resolver(rate, fixed string) *feerule.Resolver {
	return feerule.NewResolver([]feerule.Rule{{
		Provider:    "ALELO",
		Label:       "alimentacao",
		Match:       "alimentacao",
		Rate:        dec(rate),
		FixedPerTxn: dec(fixed),
		Active:      true,
	}})
}

func TestRun_FeeVerificationMismatch(t *testing.T) {
	d := date(2024, time.March, 1)
	rows := Run(
		[]model.PortalSaleEntry{sale(d, "600.00", "K1"), sale(d, "400.00", "K1")},
		[]model.ReceivableEntry{receivable(d, "1000.00", "950.00", "K1")},
		Options{Resolver: resolver("4.5", "0.52")},
	)

	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, StatusMismatch, r.Status)
	assert.True(t, r.GrossFromSales.Equal(dec("1000.00")))
	assert.True(t, r.AppliedFee.Equal(dec("50.00")))
	assert.True(t, r.ExpectedFee.Equal(dec("46.04")), "got %s", r.ExpectedFee)
	assert.True(t, r.ExpectedNet.Equal(dec("953.96")))
	assert.True(t, r.Difference.Equal(dec("-3.96")), "got %s", r.Difference)
}

func TestRun_KeyMatchConsumesAllSales(t *testing.T) {
	d := date(2024, time.March, 1)
	rows := Run(
		[]model.PortalSaleEntry{sale(d, "600.00", "K1"), sale(d, "400.00", "K1"), sale(d, "70.00", "K2")},
		[]model.ReceivableEntry{receivable(d, "1000.00", "953.96", "K1")},
		Options{Resolver: resolver("4.5", "0.52")},
	)

	require.Len(t, rows, 2)
	assert.Equal(t, StatusMatch, rows[0].Status)
	assert.Equal(t, 2, rows[0].GroupSize)
	assert.Equal(t, StatusNoReceivable, rows[1].Status)
}

func TestRun_EmptyKeyNeverMatchesEmptyKey(t *testing.T) {
	d := date(2024, time.March, 1)
	rows := Run(
		[]model.PortalSaleEntry{sale(d, "100.00", "")},
		[]model.ReceivableEntry{receivable(d, "100.00", "95.50", "")},
		Options{Resolver: resolver("4.5", "0")},
	)

	// The keyless receivable still matches, but via the amount fallback.
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].GroupSize)
	assert.True(t, rows[0].GrossFromSales.Equal(dec("100.00")))
}

func TestRun_FallbackWindowSameDayByDefault(t *testing.T) {
	d := date(2024, time.March, 1)
	rows := Run(
		[]model.PortalSaleEntry{sale(d.AddDate(0, 0, 1), "100.00", "")},
		[]model.ReceivableEntry{receivable(d, "100.00", "95.50", "")},
		Options{Resolver: resolver("4.5", "0")},
	)

	require.Len(t, rows, 2)
	assert.Equal(t, StatusMismatch, rows[0].Status, "sale is outside the 0-day window")
	assert.Equal(t, 0, rows[0].GroupSize)
	assert.Equal(t, StatusNoReceivable, rows[1].Status)
}

func TestRun_NoRuleConfigured(t *testing.T) {
	d := date(2024, time.March, 1)
	rows := Run(
		[]model.PortalSaleEntry{sale(d, "100.00", "K9")},
		[]model.ReceivableEntry{receivable(d, "100.00", "95.00", "K9")},
		Options{Resolver: feerule.NewResolver(nil)},
	)

	require.Len(t, rows, 1)
	assert.Equal(t, StatusNoRule, rows[0].Status)
	assert.True(t, rows[0].ExpectedFee.IsZero(), "no silent zero-fee default presented as expected")
}

func TestRun_ModeledNet(t *testing.T) {
	d := date(2024, time.March, 1)
	// Provider reports garbage net; ModeledNet recomputes it from the rule.
	rows := Run(
		[]model.PortalSaleEntry{sale(d, "1000.00", "K1"), sale(d, "0.00", "")},
		[]model.ReceivableEntry{receivable(d, "1000.00", "0.01", "K1")},
		Options{Resolver: resolver("4.5", "0.52"), Nets: ModeledNet{}},
	)

	r := rows[0]
	assert.Equal(t, StatusMatch, r.Status)
	assert.True(t, r.AppliedNet.Equal(dec("954.48")), "4.5%%+0.52x1 on 1000.00, got %s", r.AppliedNet)
	assert.True(t, r.Difference.IsZero())
}

func TestRun_GrossAbsentFallsBackToNetTarget(t *testing.T) {
	d := date(2024, time.March, 1)
	recv := receivable(d, "0.00", "100.00", "")
	rows := Run(
		[]model.PortalSaleEntry{sale(d, "100.00", "")},
		[]model.ReceivableEntry{recv},
		Options{Resolver: resolver("0", "0")},
	)

	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].GroupSize)
}

func TestRun_Idempotent(t *testing.T) {
	d := date(2024, time.March, 1)
	sales := []model.PortalSaleEntry{sale(d, "600.00", "K1"), sale(d, "400.00", "K1")}
	recvs := []model.ReceivableEntry{receivable(d, "1000.00", "953.96", "K1")}
	opts := Options{Resolver: resolver("4.5", "0.52")}

	assert.Equal(t, Run(sales, recvs, opts), Run(sales, recvs, opts))
}
