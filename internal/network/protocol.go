// Package network exposes the engine to remote players over WebSocket.
// Clients send actions; every client receives the rendered state whenever
// the engine changes.
package network

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MRamiBalles/CookieClicker/internal/domain/progression"
	"github.com/MRamiBalles/CookieClicker/internal/presentation"
)

// Action types accepted from clients.
const (
	ActionClick   = "CLICK"
	ActionUpgrade = "UPGRADE"
	ActionAuto    = "AUTO"
	ActionSync    = "SYNC"
)

// Message kinds sent to clients.
const (
	KindState        = "state"
	KindActionResult = "action_result"
)

// Outcome names for ActionResult.
const (
	OutcomeClicked     = "clicked"
	OutcomePurchased   = "purchased"
	OutcomeRejected    = "rejected"
	OutcomeSynced      = "synced"
	OutcomeRateLimited = "rate_limited"
)

// ErrUnknownAction is returned by Apply for unrecognized action types.
var ErrUnknownAction = errors.New("unknown action")

// ActionHandler is the engine surface the transport drives.
// *engine.Engine satisfies it.
type ActionHandler interface {
	Click() progression.Snapshot
	PurchaseUpgrade() (bool, progression.Snapshot)
	PurchaseOrAdvanceAutoProduction() (progression.AutoResult, progression.Snapshot)
	Snapshot() progression.Snapshot
	Changes() <-chan struct{}
}

// Action is an incoming command from a client.
type Action struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"` // Echoed back in the result
}

// ActionResult reports what an action did.
type ActionResult struct {
	RequestID string `json:"request_id,omitempty"`
	Action    string `json:"action"`
	Accepted  bool   `json:"accepted"`
	Outcome   string `json:"outcome"`
	TierIndex int    `json:"tier_index"`
	Error     string `json:"error,omitempty"`
}

// Message is the envelope for everything sent to clients.
type Message struct {
	Kind   string             `json:"kind"`
	State  *presentation.View `json:"state,omitempty"`
	Result *ActionResult      `json:"result,omitempty"`
}

// Apply runs one action against game.
func Apply(game ActionHandler, actionType string) (ActionResult, progression.Snapshot, error) {
	res := ActionResult{Action: actionType}
	var snap progression.Snapshot

	switch actionType {
	case ActionClick:
		snap = game.Click()
		res.Accepted, res.Outcome = true, OutcomeClicked
	case ActionUpgrade:
		var ok bool
		ok, snap = game.PurchaseUpgrade()
		res.Accepted = ok
		res.Outcome = OutcomeRejected
		if ok {
			res.Outcome = OutcomePurchased
		}
	case ActionAuto:
		var auto progression.AutoResult
		auto, snap = game.PurchaseOrAdvanceAutoProduction()
		res.Accepted = auto.Outcome == progression.AutoAdvanced
		res.Outcome = auto.Outcome.String()
		res.TierIndex = auto.TierIndex
	case ActionSync:
		snap = game.Snapshot()
		res.Accepted, res.Outcome = true, OutcomeSynced
	default:
		return ActionResult{}, progression.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownAction, actionType)
	}
	if actionType != ActionAuto {
		res.TierIndex = snap.AutoTierIndex
	}
	return res, snap, nil
}

func encodeState(snap progression.Snapshot) ([]byte, error) {
	view := presentation.Render(snap)
	return json.Marshal(Message{Kind: KindState, State: &view})
}

func encodeResult(res ActionResult) ([]byte, error) {
	return json.Marshal(Message{Kind: KindActionResult, Result: &res})
}
