// Package progression defines the idle-game progression simulation: the
// resource counter, click-power upgrades, tiered automatic production and
// click-rate measurement.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package progression

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned when a Config violates its constraints.
var ErrInvalidConfig = errors.New("invalid progression config")

// Tier is one sequentially unlocked level of automatic production.
type Tier struct {
	UnlockCost     int64 `json:"unlock_cost" toml:"unlock_cost"`
	ProductionRate int64 `json:"production_rate" toml:"production_rate"` // Cookies per auto-production interval
}

// Config is immutable after the engine is constructed.
type Config struct {
	InitialUpgradeCost     int64
	CostMultiplier         int64
	PowerMultiplier        int64
	CPSSampleInterval      time.Duration
	AutoProductionInterval time.Duration
	Tiers                  []Tier
}

// DefaultConfig returns the stock balance of the game.
func DefaultConfig() Config {
	return Config{
		InitialUpgradeCost:     100,
		CostMultiplier:         2,
		PowerMultiplier:        2,
		CPSSampleInterval:      time.Second,
		AutoProductionInterval: time.Second,
		Tiers: []Tier{
			{UnlockCost: 100, ProductionRate: 1},
			{UnlockCost: 500, ProductionRate: 2},
			{UnlockCost: 1000, ProductionRate: 5},
			{UnlockCost: 5000, ProductionRate: 10},
			{UnlockCost: 20000, ProductionRate: 20},
		},
	}
}

// Validate checks every constraint and reports the first violation.
func (c Config) Validate() error {
	switch {
	case c.InitialUpgradeCost <= 0:
		return fmt.Errorf("%w: initial upgrade cost must be positive, got %d", ErrInvalidConfig, c.InitialUpgradeCost)
	case c.CostMultiplier < 2:
		return fmt.Errorf("%w: cost multiplier must be >= 2, got %d", ErrInvalidConfig, c.CostMultiplier)
	case c.PowerMultiplier < 2:
		return fmt.Errorf("%w: power multiplier must be >= 2, got %d", ErrInvalidConfig, c.PowerMultiplier)
	case c.CPSSampleInterval <= 0:
		return fmt.Errorf("%w: cps sample interval must be positive, got %s", ErrInvalidConfig, c.CPSSampleInterval)
	case c.AutoProductionInterval <= 0:
		return fmt.Errorf("%w: auto production interval must be positive, got %s", ErrInvalidConfig, c.AutoProductionInterval)
	case len(c.Tiers) == 0:
		return fmt.Errorf("%w: at least one auto production tier is required", ErrInvalidConfig)
	}

	for i, tier := range c.Tiers {
		if tier.UnlockCost <= 0 {
			return fmt.Errorf("%w: tier %d unlock cost must be positive, got %d", ErrInvalidConfig, i, tier.UnlockCost)
		}
		if tier.ProductionRate <= 0 {
			return fmt.Errorf("%w: tier %d production rate must be positive, got %d", ErrInvalidConfig, i, tier.ProductionRate)
		}
		if i > 0 && tier.UnlockCost <= c.Tiers[i-1].UnlockCost {
			return fmt.Errorf("%w: tier %d unlock cost %d must exceed tier %d cost %d",
				ErrInvalidConfig, i, tier.UnlockCost, i-1, c.Tiers[i-1].UnlockCost)
		}
	}
	return nil
}

// clone copies the tier table so callers cannot mutate engine config.
func (c Config) clone() Config {
	out := c
	out.Tiers = append([]Tier(nil), c.Tiers...)
	return out
}
