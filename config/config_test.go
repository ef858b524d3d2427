package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
service_name: marketsim
feed:
  symbols: ["AAPL", "MSFT"]
  initial_prices:
    AAPL: 150.0
  volatility: 0.02
  tick_size: 0.01
  lot_size: 100
  update_interval: 250ms
  seed: 42
  market_open: 13h30m
  market_close: 20h
engine:
  slippage: 0.0005
  commission: 0.0005
  limit_fill_probability: 0.9
  starting_cash: 1000000
backtest:
  poll_interval: 10ms
risk:
  confidence: 0.99
  window: 252
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "marketsim", cfg.ServiceName)
	require.NotNil(t, cfg.Feed)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Feed.Symbols)
	assert.Equal(t, 150.0, cfg.Feed.InitialPrices["AAPL"])
	assert.Equal(t, 250*time.Millisecond, cfg.Feed.UpdateInterval.Std())
	assert.Equal(t, 13*time.Hour+30*time.Minute, cfg.Feed.MarketOpen.Std())
	assert.Equal(t, 20*time.Hour, cfg.Feed.MarketClose.Std())

	require.NotNil(t, cfg.Engine)
	require.NotNil(t, cfg.Engine.Slippage)
	assert.Equal(t, 0.0005, *cfg.Engine.Slippage)
	require.NotNil(t, cfg.Engine.StartingCash)
	assert.Equal(t, float64(1000000), *cfg.Engine.StartingCash)

	require.NotNil(t, cfg.Backtest)
	assert.Equal(t, 10*time.Millisecond, cfg.Backtest.PollInterval.Std())

	require.NotNil(t, cfg.Risk)
	assert.Equal(t, 0.99, cfg.Risk.Confidence)
	assert.Equal(t, 252, cfg.Risk.Window)
}

func TestLoadKeepsExplicitZeros(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
engine:
  slippage: 0
  limit_fill_probability: 0
  starting_cash: 0
`))
	require.NoError(t, err)

	require.NotNil(t, cfg.Engine.Slippage)
	assert.Zero(t, *cfg.Engine.Slippage)
	require.NotNil(t, cfg.Engine.LimitFillProbability)
	assert.Zero(t, *cfg.Engine.LimitFillProbability)
	require.NotNil(t, cfg.Engine.StartingCash)
	assert.Zero(t, *cfg.Engine.StartingCash)

	assert.Nil(t, cfg.Engine.Commission, "omitted keys stay nil")
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("MARKETSIM_SERVICE", "marketsim-test")
	cfg, err := Load(writeConfig(t, "service_name: ${MARKETSIM_SERVICE}\n"))
	require.NoError(t, err)
	assert.Equal(t, "marketsim-test", cfg.ServiceName)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadBadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "feed:\n  update_interval: soon\n"))
	assert.Error(t, err)
}
