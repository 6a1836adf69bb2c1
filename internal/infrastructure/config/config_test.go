package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
[auth]
secret = "test-secret"

[[symbols]]
symbol = "SOL/USDC"
jupiter_mint = "So11111111111111111111111111111111111111112"
coingecko_id = "solana"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 5, cfg.App.IntervalSec)
	assert.Equal(t, 10, cfg.App.FetchTimeoutSec)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, 10, cfg.Session.AuthGraceSec)
	assert.Equal(t, 60, cfg.Session.StaleAfterSec)
	assert.Equal(t, 30, cfg.Session.ReaperIntervalSec)
	assert.Equal(t, 1000, cfg.History.MaxPoints)
	assert.Equal(t, 168, cfg.History.MaxHours)
	assert.Equal(t, []string{"jupiter", "coingecko"}, cfg.Sources.Priority)
	assert.Equal(t, "https://api.jup.ag/price/v2", cfg.Sources.Jupiter.BaseURL)
	assert.Equal(t, "hydra", cfg.Redis.Prefix)
}

func TestLoadExplicitValuesWin(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[app]
log_level = "debug"
aggregation_interval_sec = 2

[server]
listen_addr = ":9090"

[history]
max_points = 500
max_hours = 48

[sources]
priority = ["coingecko", "jupiter"]
`+minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 2, cfg.App.IntervalSec)
	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.Equal(t, 500, cfg.History.MaxPoints)
	assert.Equal(t, 48, cfg.History.MaxHours)
	assert.Equal(t, []string{"coingecko", "jupiter"}, cfg.Sources.Priority)
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	_, err := Load(writeConfig(t, `
[[symbols]]
symbol = "SOL/USDC"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.secret")
}

func TestLoadRejectsEmptySymbols(t *testing.T) {
	_, err := Load(writeConfig(t, `
[auth]
secret = "s"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbols")
}

func TestLoadRejectsUnknownPrioritySource(t *testing.T) {
	_, err := Load(writeConfig(t, `
[sources]
priority = ["binance"]
`+minimalConfig))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "binance")
}

func TestLoadRejectsSyntheticWithoutBasePrice(t *testing.T) {
	_, err := Load(writeConfig(t, `
[auth]
secret = "s"

[[symbols]]
symbol = "HYDRA/USDC"
synthetic = true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_price")
}

func TestLoadNormalizesAndDedupesSymbols(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[auth]
secret = "s"

[[symbols]]
symbol = " sol/usdc "
coingecko_id = "solana"

[[symbols]]
symbol = "SOL/USDC"
coingecko_id = "ignored-duplicate"

[[symbols]]
symbol = "btc/usdc"
coingecko_id = "bitcoin"
`))
	require.NoError(t, err)

	require.Len(t, cfg.Symbols, 2)
	assert.Equal(t, "SOL/USDC", cfg.Symbols[0].Symbol)
	assert.Equal(t, "solana", cfg.Symbols[0].CoingeckoID)
	assert.Equal(t, "BTC/USDC", cfg.Symbols[1].Symbol)
}

func TestTrackedSymbols(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[auth]
secret = "s"

[[symbols]]
symbol = "HYDRA/USDC"
synthetic = true
base_price = 0.042
`))
	require.NoError(t, err)

	syms := cfg.TrackedSymbols()
	require.Len(t, syms, 1)
	assert.Equal(t, "HYDRA/USDC", syms[0].Symbol)
	assert.True(t, syms[0].Synthetic)
	assert.Equal(t, 0.042, syms[0].BasePrice)
}
