package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		h, m, s int
		wantErr bool
	}{
		{"13:00:00", 13, 0, 0, false},
		{"12:59:30", 12, 59, 30, false},
		{"09:00", 9, 0, 0, false},
		{"0:0:0", 0, 0, 0, false},
		{"23:59:59", 23, 59, 59, false},
		{"24:00:00", 0, 0, 0, true},
		{"12:60", 0, 0, 0, true},
		{"noon", 0, 0, 0, true},
		{"", 0, 0, 0, true},
	}

	for _, tt := range tests {
		h, m, s, err := ParseClock(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.h, h)
		assert.Equal(t, tt.m, m)
		assert.Equal(t, tt.s, s)
	}
}

func TestLoadCreatesTemplates(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	// Templates appear on first load.
	_, err = os.Stat(filepath.Join(dir, "config.toml"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "credentials.toml"))
	assert.NoError(t, err)

	// Defaults hold without any file edits.
	assert.Equal(t, "virtual", cfg.Trading.Mode)
	assert.Equal(t, "NSE:NIFTY 50", cfg.Trading.Underlying)
	assert.Equal(t, 50, cfg.Trading.LotSize)
	assert.Equal(t, 50.0, cfg.Trading.StrikeStep)
	assert.Equal(t, "12:45:00", cfg.Trading.ExitTime)
	assert.Equal(t, "12:59:30", cfg.Trading.SelectionTime)
	assert.Equal(t, "13:00:00", cfg.Trading.EntryTime)
	assert.True(t, cfg.IsVirtual())
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[trading]
mode = "live"
target_pnl = 5000.0
stop_loss_pnl = -2500.0
`), 0600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "live", cfg.Trading.Mode)
	assert.False(t, cfg.IsVirtual())
	assert.Equal(t, 5000.0, cfg.Trading.TargetPnl)
	assert.Equal(t, -2500.0, cfg.Trading.StopLossPnl)
	// Unset keys keep their defaults.
	assert.Equal(t, "NIFTY", cfg.Trading.ChainName)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ZERODHA_API_KEY", "env-key")
	t.Setenv("ZERODHA_ACCESS_TOKEN", "env-token")
	t.Setenv("TRADING_MODE", "live")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Credentials.Zerodha.APIKey)
	assert.Equal(t, "env-token", cfg.Credentials.Zerodha.AccessToken)
	assert.Equal(t, "live", cfg.Trading.Mode)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		return &Config{Trading: TradingConfig{
			Mode:          "virtual",
			LotSize:       50,
			StrikeStep:    50,
			StopLossPnl:   -2000,
			EvalTime:      "09:00:00",
			ExitTime:      "12:45:00",
			SelectionTime: "12:59:30",
			EntryTime:     "13:00:00",
		}}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Trading.Mode = "dry-run"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Trading.LotSize = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Trading.StopLossPnl = 100
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Trading.EntryTime = "25:00:00"
	assert.Error(t, cfg.Validate())
}
