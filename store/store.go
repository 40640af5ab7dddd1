// Package store persists agent run history, knowledge snippets and model
// usage in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store is a SQLite database holding runs, knowledge and usage tables.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open initializes the database at path. ":memory:" keeps everything in
// memory for the life of the Store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	runsTable := `
	CREATE TABLE IF NOT EXISTS agent_runs (
		id TEXT PRIMARY KEY,
		agent TEXT NOT NULL,
		session_id TEXT,
		params TEXT,
		result TEXT,
		error TEXT,
		error_kind TEXT,
		model TEXT,
		turns INTEGER DEFAULT 0,
		retries INTEGER DEFAULT 0,
		tool_calls INTEGER DEFAULT 0,
		total_tokens INTEGER DEFAULT 0,
		duration_ms INTEGER DEFAULT 0,
		cached INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_agent ON agent_runs(agent);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON agent_runs(created_at);
	`

	knowledgeTable := `
	CREATE TABLE IF NOT EXISTS knowledge (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		embedding TEXT,
		metadata TEXT,
		created_at INTEGER NOT NULL
	);
	`

	usageTable := `
	CREATE TABLE IF NOT EXISTS model_usage (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		model TEXT NOT NULL,
		agent TEXT NOT NULL,
		input_tokens INTEGER DEFAULT 0,
		output_tokens INTEGER DEFAULT 0,
		total_tokens INTEGER DEFAULT 0,
		cost REAL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_usage_model ON model_usage(model);
	`

	for _, table := range []string{runsTable, knowledgeTable, usageTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
