// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable per-user session store.
//
// The store is a single-table key-value layout: one row per user key holding
// the entire serialized session list as a JSON payload. Every save is a
// wholesale overwrite of that payload; there is no incremental diffing, the
// dataset is bounded and local-only. Concurrent writers against the same key
// are last-write-wins, an accepted limitation.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/duetchat/duet-tui/internal/model"
)

// =============================================================================
// USER KEYS
// =============================================================================

// GuestIdentity is the fallback identity when no user is known.
const GuestIdentity = "guest"

// keyPrefix versions the storage partition; bumping it orphans old payloads
// instead of corrupting them.
const keyPrefix = "ai_sessions_v2_"

// UserKey derives the durable partition key for an identity. An empty
// identity maps to the shared guest partition, so switching logged-in
// identity transparently changes the partition.
func UserKey(identity string) string {
	if identity == "" {
		identity = GuestIdentity
	}
	return keyPrefix + identity
}

// =============================================================================
// STORE
// =============================================================================

// Store persists session lists keyed by user.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS session_lists (
	user_key   TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Open opens (creating if needed) the store at the given database path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load returns the session list for a user key.
//
// Load fails soft: a missing row, a read error, or a malformed payload all
// yield an empty list. Storage problems are recovered locally and never
// surfaced to the caller.
func (s *Store) Load(userKey string) []*model.Session {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM session_lists WHERE user_key = ?`, userKey,
	).Scan(&payload)
	if err != nil {
		return []*model.Session{}
	}

	var sessions []*model.Session
	if err := json.Unmarshal([]byte(payload), &sessions); err != nil {
		return []*model.Session{}
	}
	if sessions == nil {
		sessions = []*model.Session{}
	}
	return sessions
}

// Save overwrites the entire session list for a user key.
func (s *Store) Save(userKey string, sessions []*model.Session) error {
	if sessions == nil {
		sessions = []*model.Session{}
	}
	payload, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to serialize sessions: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO session_lists (user_key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		userKey, string(payload), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save sessions: %w", err)
	}
	return nil
}

// Clear removes the stored session list for a user key.
func (s *Store) Clear(userKey string) error {
	_, err := s.db.Exec(`DELETE FROM session_lists WHERE user_key = ?`, userKey)
	if err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	return nil
}
