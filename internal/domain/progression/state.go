package progression

import "time"

// NoTier is the auto tier index before any tier has been unlocked.
const NoTier = -1

// State is the mutable simulation state. Only Engine mutates it.
type State struct {
	ResourceCount      int64         `json:"resource_count"`
	ClickPower         int64         `json:"click_power"`
	NextUpgradeCost    int64         `json:"next_upgrade_cost"`
	AutoTierIndex      int           `json:"auto_tier_index"`
	AutoProductionRate int64         `json:"auto_production_rate"`
	ClickSampleCount   int64         `json:"click_sample_count"`
	SampleElapsed      time.Duration `json:"sample_elapsed"`
	AutoElapsed        time.Duration `json:"auto_elapsed"`
	MeasuredCPS        float64       `json:"measured_cps"`
}

func newState(cfg Config) State {
	return State{
		ClickPower:      1,
		NextUpgradeCost: cfg.InitialUpgradeCost,
		AutoTierIndex:   NoTier,
	}
}

// AutoUnlocked reports whether any auto production tier is active.
func (s State) AutoUnlocked() bool {
	return s.AutoTierIndex >= 0
}
