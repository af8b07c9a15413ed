package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxOpenConns int
	MaxIdleConns int
}

// InitSQLite initializes the local SQLite database and creates the schemas
// for the event journal and the session summaries.
func InitSQLite(dbPath string, pool PoolConfig) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL DEFAULT 0,
			ended_at INTEGER NOT NULL DEFAULT 0,
			last_event_at INTEGER NOT NULL DEFAULT 0,
			cookies INTEGER NOT NULL DEFAULT 0,
			click_power INTEGER NOT NULL DEFAULT 0,
			auto_tier INTEGER NOT NULL DEFAULT -1,
			clicks INTEGER NOT NULL DEFAULT 0,
			upgrades INTEGER NOT NULL DEFAULT 0,
			auto_unlocks INTEGER NOT NULL DEFAULT 0,
			payouts INTEGER NOT NULL DEFAULT 0,
			payout_cookies INTEGER NOT NULL DEFAULT 0,
			peak_cps REAL NOT NULL DEFAULT 0,
			event_count INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			log_offset INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, log_offset);`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(session_id, event_type);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_last_event ON sessions(last_event_at);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
