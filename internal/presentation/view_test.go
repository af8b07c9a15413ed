package presentation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/CookieClicker/internal/domain/progression"
)

func newGame(t *testing.T, cfg progression.Config) *progression.Engine {
	t.Helper()
	g, err := progression.New(cfg)
	require.NoError(t, err)
	return g
}

func clickN(g *progression.Engine, n int) {
	for i := 0; i < n; i++ {
		g.Click()
	}
}

func TestRenderInitial(t *testing.T) {
	v := Render(newGame(t, progression.DefaultConfig()).Snapshot())

	assert.Equal(t, "Cookies: 0", v.Cookies)
	assert.Equal(t, "Next upgrade: 100 cookies, click power x2!", v.Upgrade.Label)
	assert.False(t, v.Upgrade.Enabled)
	assert.Equal(t, AutoLocked, v.AutoState)
	assert.Equal(t, "Unlock auto production (100 cookies, +1/s)", v.Auto.Label)
	assert.False(t, v.Auto.Enabled)
	assert.Equal(t, "Clicks per second: 0.0", v.ClicksPerSec)
	assert.Equal(t, "Cookies per second: 0.0", v.CookiesPerSec)
	assert.Equal(t, progression.NoTier, v.AutoTierIndex)
}

func TestRenderThousandsAndEnabled(t *testing.T) {
	g := newGame(t, progression.DefaultConfig())
	clickN(g, 1234)

	v := Render(g.Snapshot())
	assert.Equal(t, "Cookies: 1,234", v.Cookies)
	assert.Equal(t, int64(1234), v.ResourceCount)
	assert.True(t, v.Upgrade.Enabled)
	assert.True(t, v.Auto.Enabled)
}

func TestRenderActiveTier(t *testing.T) {
	g := newGame(t, progression.DefaultConfig())
	clickN(g, 100)
	require.Equal(t, progression.AutoAdvanced, g.PurchaseOrAdvanceAutoProduction().Outcome)

	v := Render(g.Snapshot())
	assert.Equal(t, AutoActive, v.AutoState)
	assert.Equal(t, "Auto production Lv1, next Lv (500 cookies, +2/s)", v.Auto.Label)
	assert.False(t, v.Auto.Enabled)
	assert.Equal(t, "Cookies per second: 1.0", v.CookiesPerSec)
}

func TestRenderMaxed(t *testing.T) {
	cfg := progression.DefaultConfig()
	cfg.Tiers = []progression.Tier{{UnlockCost: 1, ProductionRate: 1}}
	g := newGame(t, cfg)
	g.Click()
	g.PurchaseOrAdvanceAutoProduction()

	v := Render(g.Snapshot())
	assert.Equal(t, AutoMaxed, v.AutoState)
	assert.Equal(t, MaxLevelText, v.Auto.Label)
	assert.False(t, v.Auto.Enabled)
}

func TestRenderFractionalRates(t *testing.T) {
	cfg := progression.DefaultConfig()
	cfg.AutoProductionInterval = 2 * time.Second
	g := newGame(t, cfg)

	v := Render(g.Snapshot())
	assert.Equal(t, "Unlock auto production (100 cookies, +0.5/s)", v.Auto.Label)

	clickN(g, 3)
	g.Tick(2 * time.Second)
	v = Render(g.Snapshot())
	assert.Equal(t, "Clicks per second: 1.5", v.ClicksPerSec)
	assert.Equal(t, "Cookies per second: 1.5", v.CookiesPerSec)
}
