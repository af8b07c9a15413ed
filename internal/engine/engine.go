package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/CookieClicker/internal/domain/progression"
	"github.com/MRamiBalles/CookieClicker/internal/events"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
)

// Recorder receives engine measurements. *metrics.Collector satisfies it.
type Recorder interface {
	RecordTick(latency time.Duration)
	RecordClick()
	RecordUpgrade(accepted bool)
	RecordAutoPurchase(outcome string)
	RecordPayout(cookies int64)
	RecordState(cookies, clickPower int64, tier int, cps, perSecond float64)
}

// DefaultEventRetention bounds the in-memory log NewEngine creates when the
// caller does not supply one.
const DefaultEventRetention = 50000

type nopRecorder struct{}

func (nopRecorder) RecordTick(time.Duration)                        {}
func (nopRecorder) RecordClick()                                    {}
func (nopRecorder) RecordUpgrade(bool)                              {}
func (nopRecorder) RecordAutoPurchase(string)                       {}
func (nopRecorder) RecordPayout(int64)                              {}
func (nopRecorder) RecordState(int64, int64, int, float64, float64) {}

// Engine is the central orchestrator. It serializes every operation on the
// progression state, journals what happened to the EventLog and notifies
// listeners that the state changed.
type Engine struct {
	mu       sync.Mutex
	game     *progression.Engine
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  Recorder

	sessionID string
	started   bool
	ended     bool

	changes chan struct{}
}

// NewEngine builds an engine for cfg. eventLog and rec may be nil; a nil
// eventLog becomes an unpersisted log holding the last DefaultEventRetention
// events.
func NewEngine(cfg progression.Config, eventLog *events.EventLog, log *logger.Logger, rec Recorder) (*Engine, error) {
	game, err := progression.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	if eventLog == nil {
		eventLog = events.NewEventLog(nil, DefaultEventRetention)
	}
	if log == nil {
		log = logger.Discard()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Engine{
		game:      game,
		eventLog:  eventLog,
		logger:    log,
		metrics:   rec,
		sessionID: uuid.NewString(),
		changes:   make(chan struct{}, 1),
	}, nil
}

// SessionID identifies this run in the journal.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// EventLog exposes the journal.
func (e *Engine) EventLog() *events.EventLog {
	return e.eventLog
}

// Changes delivers a signal after any operation that altered the state.
// Signals coalesce: a slow reader sees one pending notification, not one
// per change.
func (e *Engine) Changes() <-chan struct{} {
	return e.changes
}

// StartSession journals the session start. Calling it twice is a no-op.
func (e *Engine) StartSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	e.appendLocked(events.EventTypeSessionStarted, e.sessionPayloadLocked())
	e.logger.Event("SESSION_STARTED", e.sessionID, "cookie session opened")
}

// EndSession journals the session end. Calling it twice is a no-op.
func (e *Engine) EndSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return
	}
	e.ended = true
	e.appendLocked(events.EventTypeSessionEnded, e.sessionPayloadLocked())
	e.logger.Event("SESSION_ENDED", e.sessionID,
		fmt.Sprintf("cookies=%d power=%d tier=%d", e.game.ResourceCount(), e.game.ClickPower(), e.game.AutoTierIndex()))
}

// Click applies one click and returns the resulting snapshot.
func (e *Engine) Click() progression.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.game.Click()
	e.metrics.RecordClick()
	e.appendLocked(events.EventTypeClick, events.ClickPayload{
		Gained:        e.game.ClickPower(),
		ResourceCount: e.game.ResourceCount(),
	})
	return e.changedLocked()
}

// PurchaseUpgrade attempts a click power upgrade.
func (e *Engine) PurchaseUpgrade() (bool, progression.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cost := e.game.NextUpgradeCost()
	ok := e.game.PurchaseUpgrade()
	e.metrics.RecordUpgrade(ok)

	payload := events.UpgradePayload{
		Cost:          cost,
		ClickPower:    e.game.ClickPower(),
		ResourceCount: e.game.ResourceCount(),
	}
	if !ok {
		e.appendLocked(events.EventTypeUpgradeRejected, payload)
		return false, e.game.Snapshot()
	}
	e.appendLocked(events.EventTypeUpgradePurchased, payload)
	e.logger.Event("UPGRADE_PURCHASED", e.sessionID, fmt.Sprintf("cost=%d power=%d", cost, payload.ClickPower))
	return true, e.changedLocked()
}

// PurchaseOrAdvanceAutoProduction attempts to unlock the next tier.
func (e *Engine) PurchaseOrAdvanceAutoProduction() (progression.AutoResult, progression.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tier, hasNext := e.game.NextTier()
	res := e.game.PurchaseOrAdvanceAutoProduction()
	e.metrics.RecordAutoPurchase(res.Outcome.String())

	payload := events.AutoPayload{
		TierIndex:      res.TierIndex,
		ProductionRate: e.game.State().AutoProductionRate,
		ResourceCount:  e.game.ResourceCount(),
	}
	if hasNext {
		payload.Cost = tier.UnlockCost
	}

	switch res.Outcome {
	case progression.AutoAdvanced:
		e.appendLocked(events.EventTypeAutoAdvanced, payload)
		e.logger.Event("AUTO_ADVANCED", e.sessionID,
			fmt.Sprintf("tier=%d cost=%d rate=%d", res.TierIndex, tier.UnlockCost, tier.ProductionRate))
		return res, e.changedLocked()
	case progression.AutoAlreadyMaxed:
		e.appendLocked(events.EventTypeAutoMaxed, payload)
	default:
		e.appendLocked(events.EventTypeAutoRejected, payload)
	}
	return res, e.game.Snapshot()
}

// Advance moves game time forward by dt. Payouts and closed CPS windows
// are journaled.
func (e *Engine) Advance(dt time.Duration) progression.TickResult {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	res := e.game.Tick(dt)
	if res.Sampled {
		e.appendLocked(events.EventTypeCPSSampled, events.SamplePayload{CPS: res.SampledCPS})
	}
	if res.Paid > 0 {
		e.metrics.RecordPayout(res.Paid)
		e.appendLocked(events.EventTypeAutoPayout, events.PayoutPayload{
			Amount:        res.Paid,
			ResourceCount: e.game.ResourceCount(),
		})
	}
	if res.Sampled || res.Paid > 0 {
		e.changedLocked()
	}
	e.metrics.RecordTick(time.Since(start))
	return res
}

// Snapshot returns the current state and derived queries.
func (e *Engine) Snapshot() progression.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.game.Snapshot()
}

// Config returns the progression configuration in use.
func (e *Engine) Config() progression.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.game.Config()
}

func (e *Engine) appendLocked(t events.EventType, payload interface{}) {
	e.eventLog.Append(events.GameEvent{
		Type:      t,
		SessionID: e.sessionID,
		Payload:   payload,
	})
}

func (e *Engine) sessionPayloadLocked() events.SessionPayload {
	return events.SessionPayload{
		ResourceCount: e.game.ResourceCount(),
		ClickPower:    e.game.ClickPower(),
		AutoTierIndex: e.game.AutoTierIndex(),
	}
}

// changedLocked records gauges, signals listeners and returns the snapshot.
func (e *Engine) changedLocked() progression.Snapshot {
	snap := e.game.Snapshot()
	e.metrics.RecordState(snap.ResourceCount, snap.ClickPower, snap.AutoTierIndex, snap.MeasuredCPS, snap.EffectivePerSecond)
	select {
	case e.changes <- struct{}{}:
	default:
	}
	return snap
}
