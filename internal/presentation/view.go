// Package presentation turns engine snapshots into display text. The
// engine never formats anything; hosts call Render after each operation
// and push the View into whatever widgets they own.
package presentation

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/CookieClicker/internal/domain/progression"
	"github.com/MRamiBalles/CookieClicker/internal/domain/rules"
)

// AutoState names the three states of the auto production button.
type AutoState string

const (
	AutoLocked AutoState = "locked"
	AutoActive AutoState = "active"
	AutoMaxed  AutoState = "maxed"
)

// MaxLevelText is shown once every tier is unlocked.
const MaxLevelText = "Max level!"

// Button is a labelled, possibly disabled control.
type Button struct {
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

// View is everything a host needs to draw one frame.
type View struct {
	Cookies       string    `json:"cookies"`
	Upgrade       Button    `json:"upgrade"`
	Auto          Button    `json:"auto"`
	AutoState     AutoState `json:"auto_state"`
	ClicksPerSec  string    `json:"clicks_per_second"`
	CookiesPerSec string    `json:"cookies_per_second"`

	// Raw values for clients that format on their own.
	ResourceCount      int64   `json:"resource_count"`
	ClickPower         int64   `json:"click_power"`
	NextUpgradeCost    int64   `json:"next_upgrade_cost"`
	AutoTierIndex      int     `json:"auto_tier_index"`
	MeasuredCPS        float64 `json:"measured_cps"`
	EffectivePerSecond float64 `json:"effective_per_second"`
}

// Render formats snap.
func Render(snap progression.Snapshot) View {
	v := View{
		Cookies: fmt.Sprintf("Cookies: %s", humanize.Comma(snap.ResourceCount)),
		Upgrade: Button{
			Label: fmt.Sprintf("Next upgrade: %s cookies, click power x%s!",
				humanize.Comma(snap.NextUpgradeCost), humanize.Comma(snap.PowerMultiplier)),
			Enabled: snap.CanUpgrade(),
		},
		ClicksPerSec:  fmt.Sprintf("Clicks per second: %.1f", snap.MeasuredCPS),
		CookiesPerSec: fmt.Sprintf("Cookies per second: %.1f", snap.EffectivePerSecond),

		ResourceCount:      snap.ResourceCount,
		ClickPower:         snap.ClickPower,
		NextUpgradeCost:    snap.NextUpgradeCost,
		AutoTierIndex:      snap.AutoTierIndex,
		MeasuredCPS:        snap.MeasuredCPS,
		EffectivePerSecond: snap.EffectivePerSecond,
	}
	v.AutoState, v.Auto = autoButton(snap)
	return v
}

func autoButton(snap progression.Snapshot) (AutoState, Button) {
	if snap.NextTier == nil {
		return AutoMaxed, Button{Label: MaxLevelText}
	}

	offer := fmt.Sprintf("%s cookies, +%s/s",
		humanize.Comma(snap.NextTier.UnlockCost),
		formatRate(rules.RatePerSecond(snap.NextTier.ProductionRate, snap.AutoProductionInterval)))
	btn := Button{Enabled: snap.CanAdvanceAuto()}

	if !snap.AutoUnlocked() {
		btn.Label = fmt.Sprintf("Unlock auto production (%s)", offer)
		return AutoLocked, btn
	}
	// Levels are shown one-based.
	btn.Label = fmt.Sprintf("Auto production Lv%d, next Lv (%s)", snap.AutoTierIndex+1, offer)
	return AutoActive, btn
}

// formatRate drops the decimal for whole rates.
func formatRate(perSecond float64) string {
	if perSecond == math.Trunc(perSecond) && math.Abs(perSecond) < math.MaxInt64 {
		return humanize.Comma(int64(perSecond))
	}
	return fmt.Sprintf("%.1f", perSecond)
}
