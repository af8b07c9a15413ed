package progression

import "time"

// Snapshot is the read-only query surface handed to presenters.
type Snapshot struct {
	State
	EffectivePerSecond     float64       `json:"effective_per_second"`
	PowerMultiplier        int64         `json:"power_multiplier"`
	AutoProductionInterval time.Duration `json:"auto_production_interval"`
	TierCount              int           `json:"tier_count"`
	NextTier               *Tier         `json:"next_tier,omitempty"` // nil once every tier is unlocked
}

// Snapshot captures the state together with the derived queries.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		State:                  e.st,
		EffectivePerSecond:     e.EffectiveResourcePerSecond(),
		PowerMultiplier:        e.cfg.PowerMultiplier,
		AutoProductionInterval: e.cfg.AutoProductionInterval,
		TierCount:              len(e.cfg.Tiers),
	}
	if tier, ok := e.NextTier(); ok {
		snap.NextTier = &tier
	}
	return snap
}

// AutoMaxed reports whether every tier has been unlocked.
func (s Snapshot) AutoMaxed() bool {
	return s.AutoTierIndex >= s.TierCount-1
}

// CanUpgrade reports whether the next click upgrade is affordable.
func (s Snapshot) CanUpgrade() bool {
	return s.ResourceCount >= s.NextUpgradeCost
}

// CanAdvanceAuto reports whether the next tier is affordable.
func (s Snapshot) CanAdvanceAuto() bool {
	return s.NextTier != nil && s.ResourceCount >= s.NextTier.UnlockCost
}
