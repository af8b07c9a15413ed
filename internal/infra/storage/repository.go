// Package storage provides the persistence layer for the cookie journal.
// This package implements the repository pattern so the engine never
// depends on a database.
package storage

import (
	"context"
	"encoding/json"
	"time"
)

// GameEvent mirrors the journal event structure for persistence.
type GameEvent struct {
	ID        string          `json:"id" db:"id"`
	SessionID string          `json:"session_id" db:"session_id"`
	Offset    int64           `json:"offset" db:"log_offset"`
	Timestamp time.Time       `json:"timestamp" db:"ts"`
	EventType string          `json:"event_type" db:"event_type"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// AppendBatch adds events to the immutable ledger. Events already
	// stored (same ID) are skipped.
	AppendBatch(ctx context.Context, events []GameEvent) error

	// GetBySession retrieves all events of a session in log order.
	GetBySession(ctx context.Context, sessionID string) ([]GameEvent, error)

	// GetByEventType retrieves all events of a specific type in a session.
	GetByEventType(ctx context.Context, sessionID string, eventType string) ([]GameEvent, error)

	// CountByType returns how many events of each type a session has.
	CountByType(ctx context.Context, sessionID string) (map[string]int, error)
}

// SessionSummary is the rolled-up view of one play session.
type SessionSummary struct {
	SessionID     string    `json:"session_id" db:"session_id"`
	StartedAt     time.Time `json:"started_at" db:"started_at"`
	EndedAt       time.Time `json:"ended_at,omitempty" db:"ended_at"` // Zero while the session is open
	LastEventAt   time.Time `json:"last_event_at" db:"last_event_at"`
	Cookies       int64     `json:"cookies" db:"cookies"`
	ClickPower    int64     `json:"click_power" db:"click_power"`
	AutoTier      int       `json:"auto_tier" db:"auto_tier"`
	Clicks        int64     `json:"clicks" db:"clicks"`
	Upgrades      int64     `json:"upgrades" db:"upgrades"`
	AutoUnlocks   int64     `json:"auto_unlocks" db:"auto_unlocks"`
	Payouts       int64     `json:"payouts" db:"payouts"`
	PayoutCookies int64     `json:"payout_cookies" db:"payout_cookies"`
	PeakCPS       float64   `json:"peak_cps" db:"peak_cps"`
	EventCount    int64     `json:"event_count" db:"event_count"`
}

// Ended reports whether a SESSION_ENDED event was seen.
func (s SessionSummary) Ended() bool {
	return !s.EndedAt.IsZero()
}

// SessionRepository defines the interface for session summaries.
type SessionRepository interface {
	// Upsert updates or inserts a summary.
	Upsert(ctx context.Context, summary SessionSummary) error

	// GetBySessionID retrieves one summary, or nil if unknown.
	GetBySessionID(ctx context.Context, sessionID string) (*SessionSummary, error)

	// ListRecent returns the most recently active sessions first.
	ListRecent(ctx context.Context, limit int) ([]SessionSummary, error)
}
