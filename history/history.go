/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package history persists the dialed-target list and the last used
// account credentials in a local sqlite database.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// maxEntries caps the dialed-target list.
const maxEntries = 50

const schema = `
CREATE TABLE IF NOT EXISTS call_history (
	uri       TEXT PRIMARY KEY,
	dialed_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS credentials (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	account_id TEXT NOT NULL,
	password   TEXT NOT NULL
);
`

// Store is a sqlite-backed history store. Safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the store at path. An empty path opens
// an in-memory database, used by tests and guest sessions.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With().Str("module", "history").Logger(),
		now:    time.Now,
	}, nil
}

// AddEntry records a dialed target. Re-dialing an existing target moves it
// to the front; the list stays capped.
func (s *Store) AddEntry(uri string) error {
	if uri == "" {
		return nil
	}
	_, err := s.db.Exec(`
		INSERT INTO call_history (uri, dialed_at) VALUES (?, ?)
		ON CONFLICT(uri) DO UPDATE SET dialed_at = excluded.dialed_at`,
		uri, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}

	_, err = s.db.Exec(`
		DELETE FROM call_history WHERE uri NOT IN (
			SELECT uri FROM call_history ORDER BY dialed_at DESC LIMIT ?)`,
		maxEntries)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}

// Entries returns the dialed targets, most recent first.
func (s *Store) Entries() ([]string, error) {
	rows, err := s.db.Query(`SELECT uri FROM call_history ORDER BY dialed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, err
		}
		out = append(out, uri)
	}
	return out, rows.Err()
}

// SaveAccount stores the last successfully registered credentials.
func (s *Store) SaveAccount(accountID, password string) error {
	_, err := s.db.Exec(`
		INSERT INTO credentials (id, account_id, password) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			password   = excluded.password`,
		accountID, password)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// LoadAccount returns the stored credentials. ok is false when none were
// saved yet.
func (s *Store) LoadAccount() (accountID, password string, ok bool, err error) {
	row := s.db.QueryRow(`SELECT account_id, password FROM credentials WHERE id = 1`)
	switch err := row.Scan(&accountID, &password); err {
	case nil:
		return accountID, password, true, nil
	case sql.ErrNoRows:
		return "", "", false, nil
	default:
		return "", "", false, fmt.Errorf("load account: %w", err)
	}
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
