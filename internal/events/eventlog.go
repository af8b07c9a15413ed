// Package events provides the append-only journal of player actions.
// Every state-changing operation on the engine is recorded here and
// optionally flushed to durable storage by PersistLoop.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypeSessionStarted   EventType = "SESSION_STARTED"
	EventTypeSessionEnded     EventType = "SESSION_ENDED"
	EventTypeClick            EventType = "CLICK"
	EventTypeUpgradePurchased EventType = "UPGRADE_PURCHASED"
	EventTypeUpgradeRejected  EventType = "UPGRADE_REJECTED"
	EventTypeAutoAdvanced     EventType = "AUTO_ADVANCED"
	EventTypeAutoRejected     EventType = "AUTO_REJECTED"
	EventTypeAutoMaxed        EventType = "AUTO_MAXED"
	EventTypeAutoPayout       EventType = "AUTO_PAYOUT"
	EventTypeCPSSampled       EventType = "CPS_SAMPLED"
)

// ClickPayload records the cookies gained from one click.
type ClickPayload struct {
	Gained        int64 `json:"gained"`
	ResourceCount int64 `json:"resource_count"`
}

// UpgradePayload records an upgrade attempt.
type UpgradePayload struct {
	Cost          int64 `json:"cost"`
	ClickPower    int64 `json:"click_power"`
	ResourceCount int64 `json:"resource_count"`
}

// AutoPayload records an auto-production purchase attempt.
type AutoPayload struct {
	TierIndex      int   `json:"tier_index"`
	Cost           int64 `json:"cost,omitempty"`
	ProductionRate int64 `json:"production_rate"`
	ResourceCount  int64 `json:"resource_count"`
}

// PayoutPayload records one auto-production payout.
type PayoutPayload struct {
	Amount        int64 `json:"amount"`
	ResourceCount int64 `json:"resource_count"`
}

// SamplePayload records a closed clicks-per-second window.
type SamplePayload struct {
	CPS float64 `json:"cps"`
}

// SessionPayload records session boundaries.
type SessionPayload struct {
	ResourceCount int64 `json:"resource_count"`
	ClickPower    int64 `json:"click_power"`
	AutoTierIndex int   `json:"auto_tier_index"`
}

// GameEvent represents an immutable record of an action in the game.
type GameEvent struct {
	ID        string      `json:"id"`
	Offset    int64       `json:"offset"` // Position in the log, assigned on Append
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id"`
	Payload   interface{} `json:"payload"`
}

// EventPersister defines how a batch of events is durably stored.
// Batches are delivered in log order.
type EventPersister interface {
	AppendBatch(ctx context.Context, events []GameEvent) error
}

// EventLog is the in-memory append-only log of game events.
// Offsets are absolute: trimming old events for retention never renumbers
// the ones that remain.
type EventLog struct {
	mu        sync.RWMutex
	flushMu   sync.Mutex // Serializes Flush so a batch is handed over once
	events    []GameEvent
	base      int64 // Offset of events[0]
	retention int
	persisted int64 // Next offset to hand to the persister
	persister EventPersister
	now       func() time.Time
}

// NewEventLog creates a new event log with an optional persister.
// retention <= 0 keeps every event in memory.
func NewEventLog(persister EventPersister, retention int) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		retention: retention,
		persister: persister,
		now:       time.Now,
	}
}

// Append adds a new event to the log, filling in ID, offset and timestamp
// when they are unset. Events are immutable once appended.
func (el *EventLog) Append(event GameEvent) GameEvent {
	el.mu.Lock()
	defer el.mu.Unlock()

	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = el.now()
	}
	event.Offset = el.base + int64(len(el.events))
	el.events = append(el.events, event)
	el.trimLocked()
	return event
}

// trimLocked drops events beyond the retention window that the persister
// has already taken.
func (el *EventLog) trimLocked() {
	if el.retention <= 0 || len(el.events) <= el.retention {
		return
	}
	drop := len(el.events) - el.retention
	if el.persister != nil {
		if unpersisted := int(el.persisted - el.base); unpersisted < drop {
			drop = unpersisted
		}
	}
	if drop <= 0 {
		return
	}
	// Reslice; append reallocates once the backing array fills, releasing
	// the dropped prefix.
	el.events = el.events[drop:]
	el.base += int64(drop)
}

// Len returns the absolute offset of the next event.
func (el *EventLog) Len() int64 {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.base + int64(len(el.events))
}

// Since returns a copy of every retained event with Offset >= offset.
func (el *EventLog) Since(offset int64) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.sinceLocked(offset)
}

// GetBySession returns all retained events of one session.
func (el *EventLog) GetBySession(sessionID string) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.SessionID == sessionID {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of every retained event.
func (el *EventLog) Replay() []GameEvent {
	return el.Since(0)
}

// Flush hands every event not yet persisted to the persister, in order.
// On error nothing is marked persisted and the same batch is retried next time.
// Concurrent calls run one at a time.
func (el *EventLog) Flush(ctx context.Context) (int, error) {
	if el.persister == nil {
		return 0, nil
	}
	el.flushMu.Lock()
	defer el.flushMu.Unlock()

	el.mu.RLock()
	from := el.persisted
	batch := el.sinceLocked(from)
	el.mu.RUnlock()

	if len(batch) == 0 {
		return 0, nil
	}
	if err := el.persister.AppendBatch(ctx, batch); err != nil {
		return 0, err
	}

	el.mu.Lock()
	el.persisted = from + int64(len(batch))
	el.trimLocked()
	el.mu.Unlock()
	return len(batch), nil
}

func (el *EventLog) sinceLocked(offset int64) []GameEvent {
	start := offset - el.base
	if start < 0 {
		start = 0
	}
	if start >= int64(len(el.events)) {
		return nil
	}
	out := make([]GameEvent, len(el.events)-int(start))
	copy(out, el.events[start:])
	return out
}

// PersistLoop flushes the log every interval until ctx is done, then flushes
// once more. onErr, when non-nil, is called for each failed flush.
func (el *EventLog) PersistLoop(ctx context.Context, interval time.Duration, onErr func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, err := el.Flush(context.Background()); err != nil && onErr != nil {
				onErr(err)
			}
			return
		case <-ticker.C:
			if _, err := el.Flush(ctx); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
