package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/MRamiBalles/CookieClicker/internal/domain/progression"
	"github.com/MRamiBalles/CookieClicker/internal/engine"
	"github.com/MRamiBalles/CookieClicker/internal/events"
)

// maxPurchasesPerStep bounds the buy loop inside one step.
const maxPurchasesPerStep = 64

// Options configures a run.
type Options struct {
	Game            progression.Config
	Strategy        Strategy
	Duration        time.Duration // Simulated play time
	Step            time.Duration // Simulated frame length
	ClicksPerSecond float64
	EventLog        *events.EventLog // Optional; receives the run's events
}

// DefaultOptions simulates ten minutes of greedy play at 5 clicks/s.
func DefaultOptions() Options {
	return Options{
		Game:            progression.DefaultConfig(),
		Strategy:        Greedy,
		Duration:        10 * time.Minute,
		Step:            100 * time.Millisecond,
		ClicksPerSecond: 5,
	}
}

// Milestone is a purchase made during the run.
type Milestone struct {
	At          time.Duration `json:"at"`
	Description string        `json:"description"`
}

// Report summarizes a run.
type Report struct {
	Strategy      string        `json:"strategy"`
	SessionID     string        `json:"session_id"`
	Duration      time.Duration `json:"duration"`
	FinalCookies  int64         `json:"final_cookies"`
	ClickPower    int64         `json:"click_power"`
	AutoTier      int           `json:"auto_tier"`
	Clicks        int64         `json:"clicks"`
	Upgrades      int           `json:"upgrades"`
	AutoUnlocks   int           `json:"auto_unlocks"`
	ClickCookies  int64         `json:"click_cookies"`
	PayoutCookies int64         `json:"payout_cookies"`
	Spent         int64         `json:"spent"`
	Milestones    []Milestone   `json:"milestones"`
}

// TotalEarned is every cookie produced, spent or not.
func (r Report) TotalEarned() int64 {
	return r.ClickCookies + r.PayoutCookies
}

func (o Options) validate() error {
	switch {
	case o.Strategy == nil:
		return errors.New("strategy is required")
	case o.Duration <= 0:
		return errors.New("duration must be positive")
	case o.Step <= 0:
		return errors.New("step must be positive")
	case o.ClicksPerSecond < 0:
		return errors.New("clicks per second must not be negative")
	}
	return nil
}

// Run plays one session and reports the outcome.
func Run(opts Options) (Report, error) {
	if err := opts.validate(); err != nil {
		return Report{}, err
	}
	game, err := engine.NewEngine(opts.Game, opts.EventLog, nil, nil)
	if err != nil {
		return Report{}, err
	}

	start := time.Unix(0, 0)
	clock := engine.NewMockTimeProvider(start)
	ticker := engine.NewTicker(game, clock, nil, opts.Step)

	rep := Report{Strategy: opts.Strategy.Name(), SessionID: game.SessionID()}
	game.StartSession()

	for elapsed := time.Duration(0); elapsed < opts.Duration; {
		step := opts.Step
		if remaining := opts.Duration - elapsed; step > remaining {
			step = remaining
		}

		// Clicks owed by the end of this step; the epsilon absorbs float
		// error so whole-number rates land exactly.
		due := int64(opts.ClicksPerSecond*(elapsed+step).Seconds() + 1e-9)
		for rep.Clicks < due {
			snap := game.Click()
			rep.Clicks++
			rep.ClickCookies += snap.ClickPower
		}

		clock.Advance(step)
		elapsed += step
		_, res := ticker.Step()
		rep.PayoutCookies += res.Paid

		rep.buy(game, opts.Strategy, elapsed)
	}

	game.EndSession()
	final := game.Snapshot()
	rep.Duration = opts.Duration
	rep.FinalCookies = final.ResourceCount
	rep.ClickPower = final.ClickPower
	rep.AutoTier = final.AutoTierIndex
	return rep, nil
}

func (r *Report) buy(game *engine.Engine, strategy Strategy, at time.Duration) {
	for i := 0; i < maxPurchasesPerStep; i++ {
		snap := game.Snapshot()
		switch strategy.Decide(snap) {
		case BuyUpgrade:
			ok, after := game.PurchaseUpgrade()
			if !ok {
				return
			}
			r.Upgrades++
			r.Spent += snap.NextUpgradeCost
			r.Milestones = append(r.Milestones, Milestone{at, fmt.Sprintf("click power x%d", after.ClickPower)})
		case BuyAuto:
			res, _ := game.PurchaseOrAdvanceAutoProduction()
			if res.Outcome != progression.AutoAdvanced {
				return
			}
			r.AutoUnlocks++
			r.Spent += snap.NextTier.UnlockCost
			r.Milestones = append(r.Milestones, Milestone{at, fmt.Sprintf("auto production Lv%d", res.TierIndex+1)})
		default:
			return
		}
	}
}

// Compare runs every strategy with otherwise identical options.
func Compare(opts Options, list ...Strategy) ([]Report, error) {
	if len(list) == 0 {
		list = []Strategy{Idle, UpgradeFirst, AutoFirst, Greedy}
	}
	reports := make([]Report, 0, len(list))
	for _, s := range list {
		o := opts
		o.Strategy = s
		o.EventLog = nil
		rep, err := Run(o)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", s.Name(), err)
		}
		reports = append(reports, rep)
	}
	return reports, nil
}
