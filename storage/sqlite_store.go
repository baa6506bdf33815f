// Package storage persists the controller state.
// This file contains the SQLite-backed store.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/yllada/proxy-tray/common"
)

// SQLiteStore keeps the state in a SQLite database. Every save replaces the
// configuration list and the state row in one transaction.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// NewSQLiteStore opens (and creates if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Create the file with restrictive permissions before sqlite does
	if _, statErr := os.Stat(dbPath); os.IsNotExist(statErr) {
		f, ferr := os.OpenFile(dbPath, os.O_CREATE|os.O_RDONLY, 0600)
		if ferr == nil {
			_ = f.Close()
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	common.LogDebug("Storage: SQLite state store initialized at %s", dbPath)
	return store, nil
}

func (s *SQLiteStore) initializeSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS configs (
		position INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		label TEXT NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS controller_state (
		singleton INTEGER PRIMARY KEY CHECK (singleton = 1),
		selected INTEGER NOT NULL,
		enabled INTEGER NOT NULL,
		auto_launch INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Load reads the state. Read failures degrade to DefaultState.
func (s *SQLiteStore) Load() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		common.LogWarn("Storage: %v", &common.IOError{Op: "read state", Path: s.dbPath, Err: err})
		return DefaultState()
	}
	return state
}

// Reload reads the state, returning read failures.
func (s *SQLiteStore) Reload() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return State{}, &common.IOError{Op: "read state", Path: s.dbPath, Err: err}
	}
	return state, nil
}

func (s *SQLiteStore) load() (State, error) {
	state := DefaultState()

	tx, err := s.db.Begin()
	if err != nil {
		return state, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT selected, enabled, auto_launch FROM controller_state WHERE singleton = 1`)
	if err := row.Scan(&state.Selected, &state.Enabled, &state.AutoLaunch); err != nil {
		if err == sql.ErrNoRows {
			return DefaultState(), nil
		}
		return state, err
	}

	rows, err := tx.Query(`SELECT id, label, payload FROM configs ORDER BY position`)
	if err != nil {
		return state, err
	}
	defer rows.Close()

	for rows.Next() {
		var cfg ClientConfig
		var payload string
		if err := rows.Scan(&cfg.ID, &cfg.Label, &payload); err != nil {
			return state, err
		}
		if payload != "" && payload != "null" {
			if err := json.Unmarshal([]byte(payload), &cfg.Payload); err != nil {
				return state, fmt.Errorf("config %s: %w", cfg.ID, err)
			}
		}
		state.Configs = append(state.Configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return state, err
	}

	if state.Normalize() {
		common.LogWarn("Storage: persisted state was inconsistent and has been normalized")
	}
	return state, nil
}

// Save replaces the state in a single transaction.
func (s *SQLiteStore) Save(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(state); err != nil {
		return &common.IOError{Op: "write state", Path: s.dbPath, Err: err}
	}
	return nil
}

func (s *SQLiteStore) save(state State) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM configs`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO configs (position, id, label, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, cfg := range state.Configs {
		payload, err := json.Marshal(cfg.Payload)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(i, cfg.ID, cfg.Label, string(payload)); err != nil {
			return err
		}
	}

	_, err = tx.Exec(`
		INSERT INTO controller_state (singleton, selected, enabled, auto_launch)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(singleton) DO UPDATE SET
			selected = excluded.selected,
			enabled = excluded.enabled,
			auto_launch = excluded.auto_launch`,
		state.Selected, state.Enabled, state.AutoLaunch)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
