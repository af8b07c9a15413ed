// Package sim plays the game headlessly at accelerated speed to compare
// purchasing strategies.
package sim

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MRamiBalles/CookieClicker/internal/domain/progression"
)

// Decision is what a strategy wants to buy next.
type Decision int

const (
	Wait Decision = iota
	BuyUpgrade
	BuyAuto
)

// Strategy picks purchases from the current snapshot.
type Strategy interface {
	Name() string
	Decide(snap progression.Snapshot) Decision
}

type strategyFunc struct {
	name   string
	decide func(progression.Snapshot) Decision
}

func (s strategyFunc) Name() string                              { return s.name }
func (s strategyFunc) Decide(snap progression.Snapshot) Decision { return s.decide(snap) }

// Idle never buys anything.
var Idle Strategy = strategyFunc{"idle", func(progression.Snapshot) Decision { return Wait }}

// UpgradeFirst only buys click upgrades.
var UpgradeFirst Strategy = strategyFunc{"upgrade-first", func(s progression.Snapshot) Decision {
	if s.CanUpgrade() {
		return BuyUpgrade
	}
	return Wait
}}

// AutoFirst unlocks tiers whenever it can and upgrades only once every
// tier is bought.
var AutoFirst Strategy = strategyFunc{"auto-first", func(s progression.Snapshot) Decision {
	if s.CanAdvanceAuto() {
		return BuyAuto
	}
	if s.AutoMaxed() && s.CanUpgrade() {
		return BuyUpgrade
	}
	return Wait
}}

// Greedy buys whichever affordable purchase is cheapest.
var Greedy Strategy = strategyFunc{"greedy", func(s progression.Snapshot) Decision {
	switch {
	case s.CanUpgrade() && s.CanAdvanceAuto():
		if s.NextTier.UnlockCost < s.NextUpgradeCost {
			return BuyAuto
		}
		return BuyUpgrade
	case s.CanUpgrade():
		return BuyUpgrade
	case s.CanAdvanceAuto():
		return BuyAuto
	}
	return Wait
}}

var strategies = map[string]Strategy{
	Idle.Name():         Idle,
	UpgradeFirst.Name(): UpgradeFirst,
	AutoFirst.Name():    AutoFirst,
	Greedy.Name():       Greedy,
}

// StrategyByName looks up a built-in strategy.
func StrategyByName(name string) (Strategy, error) {
	s, ok := strategies[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (want one of %s)", name, strings.Join(StrategyNames(), ", "))
	}
	return s, nil
}

// StrategyNames lists the built-in strategies in sorted order.
func StrategyNames() []string {
	names := make([]string, 0, len(strategies))
	for n := range strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
