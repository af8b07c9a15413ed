// Package storage - reconstructor.go
// Session recap: rebuilds what happened in a session from the journal.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/CookieClicker/internal/domain/progression"
	"github.com/MRamiBalles/CookieClicker/internal/events"
)

// newSummary returns an empty summary for sessionID.
func newSummary(sessionID string) SessionSummary {
	return SessionSummary{SessionID: sessionID, AutoTier: progression.NoTier}
}

// ApplyEvent folds one journal event into s. Rejected purchases are
// counted in EventCount but do not change the rolled-up state.
func ApplyEvent(s *SessionSummary, e GameEvent) error {
	s.EventCount++
	if s.StartedAt.IsZero() {
		s.StartedAt = e.Timestamp
	}
	if e.Timestamp.After(s.LastEventAt) {
		s.LastEventAt = e.Timestamp
	}

	switch events.EventType(e.EventType) {
	case events.EventTypeSessionStarted, events.EventTypeSessionEnded:
		var p events.SessionPayload
		if err := decode(e, &p); err != nil {
			return err
		}
		s.Cookies, s.ClickPower, s.AutoTier = p.ResourceCount, p.ClickPower, p.AutoTierIndex
		if e.EventType == string(events.EventTypeSessionStarted) {
			s.StartedAt = e.Timestamp
		} else {
			s.EndedAt = e.Timestamp
		}

	case events.EventTypeClick:
		var p events.ClickPayload
		if err := decode(e, &p); err != nil {
			return err
		}
		s.Clicks++
		s.Cookies, s.ClickPower = p.ResourceCount, p.Gained

	case events.EventTypeUpgradePurchased:
		var p events.UpgradePayload
		if err := decode(e, &p); err != nil {
			return err
		}
		s.Upgrades++
		s.Cookies, s.ClickPower = p.ResourceCount, p.ClickPower

	case events.EventTypeAutoAdvanced:
		var p events.AutoPayload
		if err := decode(e, &p); err != nil {
			return err
		}
		s.AutoUnlocks++
		s.Cookies, s.AutoTier = p.ResourceCount, p.TierIndex

	case events.EventTypeAutoPayout:
		var p events.PayoutPayload
		if err := decode(e, &p); err != nil {
			return err
		}
		s.Payouts++
		s.PayoutCookies += p.Amount
		s.Cookies = p.ResourceCount

	case events.EventTypeCPSSampled:
		var p events.SamplePayload
		if err := decode(e, &p); err != nil {
			return err
		}
		if p.CPS > s.PeakCPS {
			s.PeakCPS = p.CPS
		}
	}
	return nil
}

func decode(e GameEvent, v interface{}) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("bad %s payload in event %s: %w", e.EventType, e.ID, err)
	}
	return nil
}

// Reconstructor rebuilds session history from the event journal.
// Used for the recap endpoint and the stats command.
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new session reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RecapEvent is a simplified milestone for the recap screen.
type RecapEvent struct {
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	Summary   string `json:"summary"` // Human-readable description
}

// Recap is the full story of one session.
type Recap struct {
	Summary  SessionSummary `json:"summary"`
	Duration time.Duration  `json:"duration"`
	Counts   map[string]int `json:"counts"`
	Timeline []RecapEvent   `json:"timeline"`
}

// Recap rebuilds a session from its events. It returns nil, nil when the
// session has no journaled events.
func (r *Reconstructor) Recap(ctx context.Context, sessionID string) (*Recap, error) {
	evs, err := r.eventRepo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for session: %w", err)
	}
	if len(evs) == 0 {
		return nil, nil
	}

	recap := &Recap{
		Summary: newSummary(sessionID),
		Counts:  make(map[string]int),
	}
	for _, e := range evs {
		if err := ApplyEvent(&recap.Summary, e); err != nil {
			return nil, err
		}
		recap.Counts[e.EventType]++
		if line, ok := describe(e); ok {
			recap.Timeline = append(recap.Timeline, RecapEvent{
				Timestamp: e.Timestamp.Format(time.RFC3339),
				EventType: e.EventType,
				Summary:   line,
			})
		}
	}

	end := recap.Summary.LastEventAt
	if recap.Summary.Ended() {
		end = recap.Summary.EndedAt
	}
	recap.Duration = end.Sub(recap.Summary.StartedAt)
	return recap, nil
}

// describe returns a timeline line for milestone events only.
func describe(e GameEvent) (string, bool) {
	switch events.EventType(e.EventType) {
	case events.EventTypeSessionStarted:
		return "Session started", true
	case events.EventTypeSessionEnded:
		var p events.SessionPayload
		if decode(e, &p) != nil {
			return "", false
		}
		return fmt.Sprintf("Session ended with %s cookies", humanize.Comma(p.ResourceCount)), true
	case events.EventTypeUpgradePurchased:
		var p events.UpgradePayload
		if decode(e, &p) != nil {
			return "", false
		}
		return fmt.Sprintf("Click power raised to %s for %s cookies",
			humanize.Comma(p.ClickPower), humanize.Comma(p.Cost)), true
	case events.EventTypeAutoAdvanced:
		var p events.AutoPayload
		if decode(e, &p) != nil {
			return "", false
		}
		return fmt.Sprintf("Auto production Lv%d unlocked for %s cookies (+%s per payout)",
			p.TierIndex+1, humanize.Comma(p.Cost), humanize.Comma(p.ProductionRate)), true
	}
	return "", false
}
