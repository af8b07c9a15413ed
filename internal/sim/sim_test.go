package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/CookieClicker/internal/domain/progression"
	"github.com/MRamiBalles/CookieClicker/internal/events"
)

func opts(s Strategy, d time.Duration, cps float64) Options {
	o := DefaultOptions()
	o.Strategy = s
	o.Duration = d
	o.ClicksPerSecond = cps
	return o
}

func TestIdleOnlyClicks(t *testing.T) {
	rep, err := Run(opts(Idle, time.Minute, 10))
	require.NoError(t, err)

	assert.Equal(t, "idle", rep.Strategy)
	assert.Equal(t, int64(600), rep.Clicks)
	assert.Equal(t, int64(600), rep.FinalCookies)
	assert.Equal(t, int64(1), rep.ClickPower)
	assert.Equal(t, progression.NoTier, rep.AutoTier)
	assert.Zero(t, rep.Spent)
	assert.Empty(t, rep.Milestones)
}

func TestFractionalClickRate(t *testing.T) {
	rep, err := Run(opts(Idle, 10*time.Second, 0.5))
	require.NoError(t, err)
	assert.Equal(t, int64(5), rep.Clicks)
}

func TestUpgradeFirst(t *testing.T) {
	rep, err := Run(opts(UpgradeFirst, time.Minute, 10))
	require.NoError(t, err)

	assert.Greater(t, rep.Upgrades, 0)
	assert.Greater(t, rep.ClickPower, int64(1))
	assert.Zero(t, rep.AutoUnlocks)
	assert.Equal(t, rep.TotalEarned()-rep.Spent, rep.FinalCookies)
}

func TestAutoFirstUnlocksTiers(t *testing.T) {
	rep, err := Run(opts(AutoFirst, 2*time.Minute, 10))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, rep.AutoTier, 0)
	assert.Equal(t, rep.AutoTier+1, rep.AutoUnlocks, "tiers are unlocked one at a time")
	assert.Greater(t, rep.PayoutCookies, int64(0))
	assert.Equal(t, rep.TotalEarned()-rep.Spent, rep.FinalCookies)
}

func TestGreedyOutearnsIdle(t *testing.T) {
	reports, err := Compare(opts(Greedy, 5*time.Minute, 5))
	require.NoError(t, err)
	require.Len(t, reports, 4)

	byName := map[string]Report{}
	for _, r := range reports {
		byName[r.Strategy] = r
	}
	assert.Greater(t, byName["greedy"].TotalEarned(), byName["idle"].TotalEarned())
	assert.Equal(t, byName["idle"].Clicks, byName["greedy"].Clicks)
}

func TestRunJournalsEvents(t *testing.T) {
	log := events.NewEventLog(nil, 0)
	o := opts(Idle, time.Second, 2)
	o.EventLog = log

	rep, err := Run(o)
	require.NoError(t, err)

	evs := log.Replay()
	require.NotEmpty(t, evs)
	assert.Equal(t, events.EventTypeSessionStarted, evs[0].Type)
	assert.Equal(t, events.EventTypeSessionEnded, evs[len(evs)-1].Type)
	assert.Len(t, log.GetBySession(rep.SessionID), len(evs))
}

func TestOptionsValidation(t *testing.T) {
	_, err := Run(Options{Game: progression.DefaultConfig()})
	assert.Error(t, err)

	o := opts(Idle, time.Second, -1)
	_, err = Run(o)
	assert.Error(t, err)

	o = opts(Idle, time.Second, 1)
	o.Game.CostMultiplier = 0
	_, err = Run(o)
	assert.ErrorIs(t, err, progression.ErrInvalidConfig)
}

func TestStrategyByName(t *testing.T) {
	s, err := StrategyByName("Greedy")
	require.NoError(t, err)
	assert.Equal(t, Greedy.Name(), s.Name())

	_, err = StrategyByName("yolo")
	assert.ErrorContains(t, err, "auto-first, greedy, idle, upgrade-first")
}

func TestGreedyPrefersCheaper(t *testing.T) {
	snap := progression.Snapshot{
		State:    progression.State{ResourceCount: 1000, NextUpgradeCost: 400},
		NextTier: &progression.Tier{UnlockCost: 300, ProductionRate: 1},
	}
	assert.Equal(t, BuyAuto, Greedy.Decide(snap))

	snap.NextTier.UnlockCost = 500
	assert.Equal(t, BuyUpgrade, Greedy.Decide(snap))

	snap.ResourceCount = 10
	assert.Equal(t, Wait, Greedy.Decide(snap))
}
