package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concilia-dev/concilia/internal/feerule"
	"github.com/concilia-dev/concilia/internal/provider"
)

func TestSettings_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := DefaultSettings()
	s.MaxGroup = 4
	require.NoError(t, SaveSettings(dir, s))

	got, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, got.MaxGroup)
	assert.Equal(t, "info", got.LogLevel)
}

func TestLoadSettings_MissingFileUsesDefaults(t *testing.T) {
	got, err := LoadSettings(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), got)
}

func TestProviders_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	in := provider.BuiltIn()
	in[0].TransferFee = decimal.RequireFromString("1.90")
	require.NoError(t, SaveProviders(dir, in))

	got, err := LoadProviders(dir)
	require.NoError(t, err)
	require.Len(t, got, len(in))
	assert.Equal(t, in[0].Code, got[0].Code)
	assert.True(t, got[0].TransferFee.Equal(decimal.RequireFromString("1.90")))
	assert.Equal(t, in[0].MemoFilters, got[0].MemoFilters)
}

func TestLoadProviders_MissingFileFallsBackToBuiltIn(t *testing.T) {
	got, err := LoadProviders(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, provider.BuiltIn(), got)
}

func TestFeeRules_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	in := []feerule.Rule{{
		Provider:    "ALELO",
		Label:       "Alimentação",
		Match:       "alimentacao",
		Rate:        decimal.RequireFromString("4.5"),
		FixedPerTxn: decimal.RequireFromString("0.52"),
		Active:      true,
	}}
	require.NoError(t, SaveFeeRules(dir, in))

	got, err := LoadFeeRules(dir)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Rate.Equal(decimal.RequireFromString("4.5")))
	assert.True(t, got[0].FixedPerTxn.Equal(decimal.RequireFromString("0.52")))
	assert.True(t, got[0].Active)
}

func TestLoadFeeRules_MissingFileMeansNoRules(t *testing.T) {
	got, err := LoadFeeRules(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHolidays_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	in := []time.Time{time.Date(2024, time.July, 9, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, SaveHolidays(dir, in))

	got, err := LoadHolidays(dir)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, in[0], got[0])
}
