package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Timestamps are stored as unix nanoseconds; 0 means unset.
func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db dbtx
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) AppendBatch(ctx context.Context, events []GameEvent) error {
	_, err := r.insertNew(ctx, events)
	return err
}

// insertNew stores events and returns the ones that were not already in
// the table.
func (r *SQLiteEventRepository) insertNew(ctx context.Context, events []GameEvent) ([]GameEvent, error) {
	query := `
		INSERT OR IGNORE INTO events (id, session_id, log_offset, ts, event_type, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	inserted := make([]GameEvent, 0, len(events))
	for _, e := range events {
		payload := string(e.Payload)
		if payload == "" {
			payload = "null"
		}
		res, err := r.db.ExecContext(ctx, query,
			e.ID, e.SessionID, e.Offset, toUnix(e.Timestamp), e.EventType, payload,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to append event %s: %w", e.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to append event %s: %w", e.ID, err)
		}
		if n == 1 {
			inserted = append(inserted, e)
		}
	}
	return inserted, nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]GameEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []GameEvent
	for rows.Next() {
		var e GameEvent
		var ts int64
		var payload string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Offset, &ts, &e.EventType, &payload); err != nil {
			return nil, err
		}
		e.Timestamp = fromUnix(ts)
		e.Payload = []byte(payload)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetBySession(ctx context.Context, sessionID string) ([]GameEvent, error) {
	query := `SELECT id, session_id, log_offset, ts, event_type, payload FROM events WHERE session_id = ? ORDER BY log_offset ASC`
	return r.getMany(ctx, query, sessionID)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, sessionID string, eventType string) ([]GameEvent, error) {
	query := `SELECT id, session_id, log_offset, ts, event_type, payload FROM events WHERE session_id = ? AND event_type = ? ORDER BY log_offset ASC`
	return r.getMany(ctx, query, sessionID, eventType)
}

func (r *SQLiteEventRepository) CountByType(ctx context.Context, sessionID string) (map[string]int, error) {
	query := `SELECT event_type, COUNT(*) FROM events WHERE session_id = ? GROUP BY event_type`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

// ---------------------------------------------------------
// SQLiteSessionRepository
// ---------------------------------------------------------

type SQLiteSessionRepository struct {
	db dbtx
}

func NewSQLiteSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

const sessionColumns = `session_id, started_at, ended_at, last_event_at, cookies, click_power, auto_tier,
	clicks, upgrades, auto_unlocks, payouts, payout_cookies, peak_cps, event_count`

func (r *SQLiteSessionRepository) Upsert(ctx context.Context, s SessionSummary) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			started_at=excluded.started_at,
			ended_at=excluded.ended_at,
			last_event_at=excluded.last_event_at,
			cookies=excluded.cookies,
			click_power=excluded.click_power,
			auto_tier=excluded.auto_tier,
			clicks=excluded.clicks,
			upgrades=excluded.upgrades,
			auto_unlocks=excluded.auto_unlocks,
			payouts=excluded.payouts,
			payout_cookies=excluded.payout_cookies,
			peak_cps=excluded.peak_cps,
			event_count=excluded.event_count
	`
	_, err := r.db.ExecContext(ctx, query,
		s.SessionID, toUnix(s.StartedAt), toUnix(s.EndedAt), toUnix(s.LastEventAt),
		s.Cookies, s.ClickPower, s.AutoTier, s.Clicks, s.Upgrades, s.AutoUnlocks,
		s.Payouts, s.PayoutCookies, s.PeakCPS, s.EventCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session %s: %w", s.SessionID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (SessionSummary, error) {
	var s SessionSummary
	var started, ended, last int64
	err := row.Scan(
		&s.SessionID, &started, &ended, &last, &s.Cookies, &s.ClickPower, &s.AutoTier,
		&s.Clicks, &s.Upgrades, &s.AutoUnlocks, &s.Payouts, &s.PayoutCookies, &s.PeakCPS, &s.EventCount,
	)
	if err != nil {
		return SessionSummary{}, err
	}
	s.StartedAt = fromUnix(started)
	s.EndedAt = fromUnix(ended)
	s.LastEventAt = fromUnix(last)
	return s, nil
}

func (r *SQLiteSessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*SessionSummary, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_id = ?`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteSessionRepository) ListRecent(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY last_event_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
