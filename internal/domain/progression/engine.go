package progression

import (
	"time"

	"github.com/MRamiBalles/CookieClicker/internal/domain/rules"
)

// Engine owns the progression state and applies the game's rules to it.
// It is not safe for concurrent use; callers sharing an Engine across
// goroutines must synchronize externally.
type Engine struct {
	cfg Config
	st  State
}

// New validates cfg and returns an engine in its starting state.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.clone()
	return &Engine{cfg: cfg, st: newState(cfg)}, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg.clone()
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	return e.st
}

// Tick advances the CPS sample window and the auto production timer by dt.
// A negative dt is treated as zero. At most one auto production payout is
// made per call, even when dt spans several intervals.
func (e *Engine) Tick(dt time.Duration) TickResult {
	if dt < 0 {
		dt = 0
	}
	var res TickResult

	e.st.SampleElapsed += dt
	if e.st.SampleElapsed >= e.cfg.CPSSampleInterval {
		// Divide by the time actually accrued, not the nominal interval.
		e.st.MeasuredCPS = float64(e.st.ClickSampleCount) / e.st.SampleElapsed.Seconds()
		e.st.ClickSampleCount = 0
		e.st.SampleElapsed = 0
		res.Sampled = true
		res.SampledCPS = e.st.MeasuredCPS
	}

	if !e.st.AutoUnlocked() {
		return res
	}

	e.st.AutoElapsed += dt
	if e.st.AutoElapsed >= e.cfg.AutoProductionInterval {
		e.st.ResourceCount = rules.AddSaturating(e.st.ResourceCount, e.st.AutoProductionRate)
		e.st.AutoElapsed = 0
		res.Paid = e.st.AutoProductionRate
	}
	return res
}

// Click adds the current click power to the resource count.
func (e *Engine) Click() {
	e.st.ResourceCount = rules.AddSaturating(e.st.ResourceCount, e.st.ClickPower)
	e.st.ClickSampleCount++
}

// PurchaseUpgrade buys the next click power upgrade if it is affordable.
// Insufficient funds leave the state untouched and return false.
func (e *Engine) PurchaseUpgrade() bool {
	if e.st.ResourceCount < e.st.NextUpgradeCost {
		return false
	}
	e.st.ResourceCount -= e.st.NextUpgradeCost
	e.st.ClickPower = rules.MulSaturating(e.st.ClickPower, e.cfg.PowerMultiplier)
	e.st.NextUpgradeCost = rules.MulSaturating(e.st.NextUpgradeCost, e.cfg.CostMultiplier)
	return true
}

// PurchaseOrAdvanceAutoProduction unlocks the next auto production tier.
// Tiers are taken strictly in order, one per call.
func (e *Engine) PurchaseOrAdvanceAutoProduction() AutoResult {
	next := e.st.AutoTierIndex + 1
	if next >= len(e.cfg.Tiers) {
		return AutoResult{Outcome: AutoAlreadyMaxed, TierIndex: e.st.AutoTierIndex}
	}

	tier := e.cfg.Tiers[next]
	if e.st.ResourceCount < tier.UnlockCost {
		return AutoResult{Outcome: AutoRejected, TierIndex: e.st.AutoTierIndex}
	}

	e.st.ResourceCount -= tier.UnlockCost
	e.st.AutoTierIndex = next
	e.st.AutoProductionRate = tier.ProductionRate
	e.st.AutoElapsed = 0
	return AutoResult{Outcome: AutoAdvanced, TierIndex: next}
}

// ResourceCount returns the cookies currently held.
func (e *Engine) ResourceCount() int64 { return e.st.ResourceCount }

// ClickPower returns the cookies granted per click.
func (e *Engine) ClickPower() int64 { return e.st.ClickPower }

// NextUpgradeCost returns the price of the next click power upgrade.
func (e *Engine) NextUpgradeCost() int64 { return e.st.NextUpgradeCost }

// MeasuredClicksPerSecond returns the rate of the last completed window.
func (e *Engine) MeasuredClicksPerSecond() float64 { return e.st.MeasuredCPS }

// AutoTierIndex returns the active tier, or NoTier.
func (e *Engine) AutoTierIndex() int { return e.st.AutoTierIndex }

// EffectiveResourcePerSecond blends the measured manual rate with the
// configured automatic rate. Informational only.
func (e *Engine) EffectiveResourcePerSecond() float64 {
	perSecond := e.st.MeasuredCPS * float64(e.st.ClickPower)
	if e.st.AutoUnlocked() {
		perSecond += rules.RatePerSecond(e.st.AutoProductionRate, e.cfg.AutoProductionInterval)
	}
	return perSecond
}

// NextTier returns the tier the next auto production purchase would unlock.
func (e *Engine) NextTier() (Tier, bool) {
	next := e.st.AutoTierIndex + 1
	if next >= len(e.cfg.Tiers) {
		return Tier{}, false
	}
	return e.cfg.Tiers[next], true
}
