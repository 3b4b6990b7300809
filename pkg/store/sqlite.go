package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

// NewStore initializes the SQLite database connection.
// It enables WAL mode for concurrency and durability.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	// Enable WAL mode (Write-Ahead Logging)
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db}

	// Initialize schema
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	// Parameters are stored as columns for querying; the series stays a
	// JSON blob, written exactly once when the run reaches a terminal
	// state.
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,

		-- Parameters
		transmission_rate REAL NOT NULL,
		recovery_rate REAL NOT NULL,
		population INTEGER NOT NULL,
		initial_infected INTEGER NOT NULL,
		scenario TEXT NOT NULL,
		duration_days INTEGER NOT NULL,

		-- Outputs
		series JSON,
		error TEXT,

		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	-- Listings return newest first
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	return nil
}
