package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/MRamiBalles/CookieClicker/internal/events"
)

// Journal persists the in-memory event log to SQLite. Each batch is
// written together with the rolled-up session summaries in one
// transaction, so a summary never counts an event that was not stored.
type Journal struct {
	db       *sql.DB
	Events   *SQLiteEventRepository
	Sessions *SQLiteSessionRepository
}

// NewJournal wires the repositories onto db.
func NewJournal(db *sql.DB) *Journal {
	return &Journal{
		db:       db,
		Events:   NewSQLiteEventRepository(db),
		Sessions: NewSQLiteSessionRepository(db),
	}
}

// FromEvent converts a log event into its stored form.
func FromEvent(e events.GameEvent) (GameEvent, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return GameEvent{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return GameEvent{
		ID:        e.ID,
		SessionID: e.SessionID,
		Offset:    e.Offset,
		Timestamp: e.Timestamp,
		EventType: string(e.Type),
		Payload:   payload,
	}, nil
}

// AppendBatch implements events.EventPersister.
func (j *Journal) AppendBatch(ctx context.Context, batch []events.GameEvent) error {
	rows := make([]GameEvent, 0, len(batch))
	for _, e := range batch {
		row, err := FromEvent(e)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin journal tx: %w", err)
	}
	defer tx.Rollback()

	evRepo := &SQLiteEventRepository{db: tx}
	sessRepo := &SQLiteSessionRepository{db: tx}

	// Only new rows feed the summaries, so a redelivered batch is a no-op.
	inserted, err := evRepo.insertNew(ctx, rows)
	if err != nil {
		return err
	}

	summaries := make(map[string]*SessionSummary)
	var order []string
	for _, row := range inserted {
		s, ok := summaries[row.SessionID]
		if !ok {
			existing, err := sessRepo.GetBySessionID(ctx, row.SessionID)
			if err != nil {
				return fmt.Errorf("failed to load session %s: %w", row.SessionID, err)
			}
			if existing == nil {
				fresh := newSummary(row.SessionID)
				existing = &fresh
			}
			s = existing
			summaries[row.SessionID] = s
			order = append(order, row.SessionID)
		}
		if err := ApplyEvent(s, row); err != nil {
			return err
		}
	}
	for _, id := range order {
		if err := sessRepo.Upsert(ctx, *summaries[id]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit journal tx: %w", err)
	}
	return nil
}
