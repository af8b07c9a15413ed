package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/CookieClicker/internal/domain/progression"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookie.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, 60, cfg.Ticker.FrameRate)
	assert.Equal(t, "default", cfg.Tuning.Profile)
	require.NoError(t, cfg.Validate())

	pc, err := cfg.ToProgression()
	require.NoError(t, err)
	assert.Equal(t, progression.DefaultConfig(), pc)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesSelectedKeys(t *testing.T) {
	path := writeFile(t, `
[server]
addr = ":9090"

[game]
initial_upgrade_cost = 50
cps_sample_interval = "500ms"

[[game.tiers]]
unlock_cost = 10
production_rate = 1

[[game.tiers]]
unlock_cost = 40
production_rate = 3

[ticker]
frame_rate = 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 30, cfg.Ticker.FrameRate)
	assert.Equal(t, time.Second/30, cfg.FrameInterval())
	assert.True(t, cfg.Storage.Enabled, "untouched section keeps defaults")

	pc, err := cfg.ToProgression()
	require.NoError(t, err)
	assert.Equal(t, int64(50), pc.InitialUpgradeCost)
	assert.Equal(t, int64(2), pc.CostMultiplier)
	assert.Equal(t, 500*time.Millisecond, pc.CPSSampleInterval)
	assert.Equal(t, []progression.Tier{{UnlockCost: 10, ProductionRate: 1}, {UnlockCost: 40, ProductionRate: 3}}, pc.Tiers)
}

func TestLoadRejectsInvalidGame(t *testing.T) {
	path := writeFile(t, `
[game]
cost_multiplier = 1
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, progression.ErrInvalidConfig))
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, `
[server]
adress = ":1"
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown config keys")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeFile(t, `
[game]
auto_production_interval = "soon"
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "invalid duration")
}

func TestValidateFrameRate(t *testing.T) {
	cfg := Default()
	cfg.Ticker.FrameRate = 0
	assert.Error(t, cfg.Validate())
}
