package progression

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioConfig() Config {
	return Config{
		InitialUpgradeCost:     100,
		CostMultiplier:         2,
		PowerMultiplier:        2,
		CPSSampleInterval:      time.Second,
		AutoProductionInterval: time.Second,
		Tiers:                  []Tier{{UnlockCost: 100, ProductionRate: 1}, {UnlockCost: 500, ProductionRate: 2}},
	}
}

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func clickN(e *Engine, n int) {
	for i := 0; i < n; i++ {
		e.Click()
	}
}

func TestNewStartingState(t *testing.T) {
	e := newEngine(t, scenarioConfig())
	st := e.State()

	assert.Equal(t, int64(0), st.ResourceCount)
	assert.Equal(t, int64(1), st.ClickPower)
	assert.Equal(t, int64(100), st.NextUpgradeCost)
	assert.Equal(t, NoTier, st.AutoTierIndex)
	assert.Equal(t, int64(0), st.AutoProductionRate)
	assert.Zero(t, st.MeasuredCPS)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero upgrade cost", func(c *Config) { c.InitialUpgradeCost = 0 }},
		{"cost multiplier 1", func(c *Config) { c.CostMultiplier = 1 }},
		{"power multiplier 0", func(c *Config) { c.PowerMultiplier = 0 }},
		{"zero sample interval", func(c *Config) { c.CPSSampleInterval = 0 }},
		{"negative auto interval", func(c *Config) { c.AutoProductionInterval = -time.Second }},
		{"no tiers", func(c *Config) { c.Tiers = nil }},
		{"tier zero cost", func(c *Config) { c.Tiers[0].UnlockCost = 0 }},
		{"tier zero rate", func(c *Config) { c.Tiers[1].ProductionRate = 0 }},
		{"tiers not increasing", func(c *Config) { c.Tiers[1].UnlockCost = 100 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := scenarioConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "want ErrInvalidConfig, got %v", err)
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	assert.Len(t, DefaultConfig().Tiers, 5)
}

func TestConfigIsCopiedOnConstruction(t *testing.T) {
	cfg := scenarioConfig()
	e := newEngine(t, cfg)
	cfg.Tiers[0].UnlockCost = 1

	tier, ok := e.NextTier()
	require.True(t, ok)
	assert.Equal(t, int64(100), tier.UnlockCost)

	got := e.Config()
	got.Tiers[0].UnlockCost = 2
	tier, _ = e.NextTier()
	assert.Equal(t, int64(100), tier.UnlockCost)
}

func TestClickAddsClickPower(t *testing.T) {
	e := newEngine(t, scenarioConfig())
	for i := 1; i <= 10; i++ {
		e.Click()
		assert.Equal(t, int64(i), e.ResourceCount())
	}
	assert.Equal(t, int64(10), e.State().ClickSampleCount)
}

func TestUpgradeScenario(t *testing.T) {
	e := newEngine(t, scenarioConfig())

	clickN(e, 99)
	require.Equal(t, int64(99), e.ResourceCount())

	before := e.State()
	assert.False(t, e.PurchaseUpgrade())
	assert.Equal(t, before, e.State(), "rejected upgrade must not change state")

	e.Click()
	require.Equal(t, int64(100), e.ResourceCount())
	assert.True(t, e.PurchaseUpgrade())
	assert.Equal(t, int64(0), e.ResourceCount())
	assert.Equal(t, int64(2), e.ClickPower())
	assert.Equal(t, int64(200), e.NextUpgradeCost())

	e.Click()
	assert.Equal(t, int64(2), e.ResourceCount(), "click should use upgraded power")
}

func TestUpgradeDeductsExactCost(t *testing.T) {
	e := newEngine(t, scenarioConfig())
	clickN(e, 350)

	require.True(t, e.PurchaseUpgrade())
	assert.Equal(t, int64(250), e.ResourceCount())
	require.True(t, e.PurchaseUpgrade())
	assert.Equal(t, int64(50), e.ResourceCount())
	assert.Equal(t, int64(4), e.ClickPower())
	assert.Equal(t, int64(400), e.NextUpgradeCost())
	assert.False(t, e.PurchaseUpgrade())
}

func TestAutoProductionScenario(t *testing.T) {
	e := newEngine(t, scenarioConfig())
	clickN(e, 100)

	res := e.PurchaseOrAdvanceAutoProduction()
	assert.Equal(t, AutoResult{Outcome: AutoAdvanced, TierIndex: 0}, res)
	assert.Equal(t, int64(0), e.ResourceCount())
	assert.Equal(t, int64(1), e.State().AutoProductionRate)

	res = e.PurchaseOrAdvanceAutoProduction()
	assert.Equal(t, AutoRejected, res.Outcome)
	assert.Equal(t, 0, e.AutoTierIndex())
}

func TestAutoProductionMaxedIsIdempotent(t *testing.T) {
	e := newEngine(t, scenarioConfig())
	clickN(e, 600)

	require.Equal(t, AutoAdvanced, e.PurchaseOrAdvanceAutoProduction().Outcome)
	res := e.PurchaseOrAdvanceAutoProduction()
	require.Equal(t, AutoResult{Outcome: AutoAdvanced, TierIndex: 1}, res)
	assert.Equal(t, int64(2), e.State().AutoProductionRate)

	clickN(e, 1000)
	before := e.State()
	for i := 0; i < 3; i++ {
		assert.Equal(t, AutoAlreadyMaxed, e.PurchaseOrAdvanceAutoProduction().Outcome)
		assert.Equal(t, before, e.State())
	}
}

func TestAutoProductionAdvancesOneTierPerCall(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	clickN(e, 100000)

	prev := e.AutoTierIndex()
	for i := 0; i < len(DefaultConfig().Tiers); i++ {
		res := e.PurchaseOrAdvanceAutoProduction()
		require.Equal(t, AutoAdvanced, res.Outcome)
		assert.Equal(t, prev+1, e.AutoTierIndex())
		prev = e.AutoTierIndex()
	}
	assert.Equal(t, AutoAlreadyMaxed, e.PurchaseOrAdvanceAutoProduction().Outcome)
}

func TestTierChangeRestartsAutoTimer(t *testing.T) {
	e := newEngine(t, scenarioConfig())
	clickN(e, 600)
	require.Equal(t, AutoAdvanced, e.PurchaseOrAdvanceAutoProduction().Outcome)

	e.Tick(900 * time.Millisecond)
	require.Equal(t, 900*time.Millisecond, e.State().AutoElapsed)

	require.Equal(t, AutoAdvanced, e.PurchaseOrAdvanceAutoProduction().Outcome)
	assert.Zero(t, e.State().AutoElapsed)

	before := e.ResourceCount()
	e.Tick(900 * time.Millisecond)
	assert.Equal(t, before, e.ResourceCount(), "timer restarted, no payout yet")
	e.Tick(100 * time.Millisecond)
	assert.Equal(t, before+2, e.ResourceCount())
}

func TestTickWithoutAutoProductionPaysNothing(t *testing.T) {
	e := newEngine(t, scenarioConfig())
	res := e.Tick(10 * time.Second)
	assert.Zero(t, res.Paid)
	assert.Zero(t, e.ResourceCount())
	assert.Zero(t, e.State().AutoElapsed)
}

func TestTickPaysOncePerBoundary(t *testing.T) {
	e := newEngine(t, scenarioConfig())
	clickN(e, 100)
	require.Equal(t, AutoAdvanced, e.PurchaseOrAdvanceAutoProduction().Outcome)

	var paid int64
	for i := 0; i < 4; i++ {
		paid += e.Tick(300 * time.Millisecond).Paid
	}
	// 1.2s crosses exactly one 1s boundary.
	assert.Equal(t, int64(1), paid)
	assert.Equal(t, int64(1), e.ResourceCount())
	assert.Zero(t, e.State().AutoElapsed)
}

func TestTickDoesNotCompoundPayouts(t *testing.T) {
	e := newEngine(t, scenarioConfig())
	clickN(e, 100)
	require.Equal(t, AutoAdvanced, e.PurchaseOrAdvanceAutoProduction().Outcome)

	res := e.Tick(5 * time.Second)
	assert.Equal(t, int64(1), res.Paid)
	assert.Equal(t, int64(1), e.ResourceCount())
}

func TestTickMeasuresClicksOverActualElapsed(t *testing.T) {
	e := newEngine(t, scenarioConfig())
	clickN(e, 6)

	res := e.Tick(700 * time.Millisecond)
	assert.False(t, res.Sampled)
	assert.Zero(t, e.MeasuredClicksPerSecond())

	res = e.Tick(800 * time.Millisecond)
	require.True(t, res.Sampled)
	// 6 clicks over 1.5s actually elapsed.
	assert.InDelta(t, 4.0, e.MeasuredClicksPerSecond(), 1e-9)
	assert.InDelta(t, 4.0, res.SampledCPS, 1e-9)

	st := e.State()
	assert.Zero(t, st.ClickSampleCount)
	assert.Zero(t, st.SampleElapsed)
}

func TestTickClampsNegativeDelta(t *testing.T) {
	e := newEngine(t, scenarioConfig())
	e.Tick(500 * time.Millisecond)
	e.Tick(-time.Hour)
	assert.Equal(t, 500*time.Millisecond, e.State().SampleElapsed)
}

func TestEffectiveResourcePerSecond(t *testing.T) {
	cfg := scenarioConfig()
	cfg.AutoProductionInterval = 500 * time.Millisecond
	e := newEngine(t, cfg)

	clickN(e, 200)
	require.True(t, e.PurchaseUpgrade()) // power 2, 100 left
	require.Equal(t, AutoAdvanced, e.PurchaseOrAdvanceAutoProduction().Outcome)
	e.Tick(time.Second) // closes the window holding the first 200 clicks

	clickN(e, 3)
	e.Tick(time.Second) // cps 3

	// 3 cps * 2 power + 1 per 0.5s
	assert.InDelta(t, 8.0, e.EffectiveResourcePerSecond(), 1e-9)
}

func TestSnapshot(t *testing.T) {
	e := newEngine(t, scenarioConfig())
	snap := e.Snapshot()
	require.NotNil(t, snap.NextTier)
	assert.Equal(t, int64(100), snap.NextTier.UnlockCost)
	assert.Equal(t, 2, snap.TierCount)
	assert.False(t, snap.AutoMaxed())
	assert.False(t, snap.CanUpgrade())
	assert.False(t, snap.CanAdvanceAuto())

	clickN(e, 600)
	e.PurchaseOrAdvanceAutoProduction()
	e.PurchaseOrAdvanceAutoProduction()
	snap = e.Snapshot()
	assert.Nil(t, snap.NextTier)
	assert.True(t, snap.AutoMaxed())
	assert.False(t, snap.CanAdvanceAuto())
}

func TestAutoResultString(t *testing.T) {
	assert.Equal(t, "advanced(3)", AutoResult{Outcome: AutoAdvanced, TierIndex: 3}.String())
	assert.Equal(t, "rejected", AutoResult{Outcome: AutoRejected}.String())
	assert.Equal(t, "already_maxed", AutoAlreadyMaxed.String())
}
