// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package archive records consensus messages in a SQLite database. The
// engine's in-memory vote collector prunes aggressively once a height is
// committed; the archive keeps the full message history for audits and as
// equivocation evidence.
package archive

import (
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
)

// Entry is one archived consensus message.
type Entry struct {
	Height     uint64
	View       uint64
	ViewChange bool
	BlockHash  common.Hash
	Sender     common.Address
	Signature  []byte
	Raw        []byte
}

// Archive is a persistent consensus message log.
type Archive struct {
	db *sql.DB
}

// Open opens (or creates) an archive at the given file path.
func Open(path string) (*Archive, error) {
	dsn := "file:" + path + "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	archive := &Archive{db: db}
	if err := archive.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}
	return archive, nil
}

func (a *Archive) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			height INTEGER NOT NULL,
			view INTEGER NOT NULL,
			view_change INTEGER NOT NULL,
			block_hash BLOB NOT NULL,
			sender BLOB NOT NULL,
			signature BLOB NOT NULL UNIQUE,
			raw BLOB NOT NULL,
			recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_height ON messages (height)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages (sender)`,
	}
	for _, query := range queries {
		if _, err := a.db.Exec(query); err != nil {
			return fmt.Errorf("executing %q: %w", query, err)
		}
	}
	return nil
}

// Record inserts a message into the archive. Messages already recorded, as
// identified by their signature, are ignored.
func (a *Archive) Record(entry Entry) error {
	_, err := a.db.Exec(
		`INSERT OR IGNORE INTO messages (height, view, view_change, block_hash, sender, signature, raw)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		int64(entry.Height), int64(entry.View), entry.ViewChange,
		entry.BlockHash[:], entry.Sender[:], entry.Signature, entry.Raw,
	)
	if err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}
	return nil
}

// MessagesAt returns all archived messages for the given height, in the order
// they were recorded.
func (a *Archive) MessagesAt(height uint64) ([]Entry, error) {
	rows, err := a.db.Query(
		`SELECT height, view, view_change, block_hash, sender, signature, raw
		 FROM messages WHERE height = ? ORDER BY id`,
		int64(height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// MessagesBy returns all archived messages signed by the given validator, in
// the order they were recorded.
func (a *Archive) MessagesBy(sender common.Address) ([]Entry, error) {
	rows, err := a.db.Query(
		`SELECT height, view, view_change, block_hash, sender, signature, raw
		 FROM messages WHERE sender = ? ORDER BY id`,
		sender[:],
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var entry Entry
		var height, view int64
		var blockHash, sender []byte
		if err := rows.Scan(&height, &view, &entry.ViewChange,
			&blockHash, &sender, &entry.Signature, &entry.Raw); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		entry.Height = uint64(height)
		entry.View = uint64(view)
		entry.BlockHash = common.BytesToHash(blockHash)
		entry.Sender = common.BytesToAddress(sender)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the total number of archived messages.
func (a *Archive) Count() (uint64, error) {
	var count int64
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return uint64(count), nil
}

// Prune removes all messages below the given height.
func (a *Archive) Prune(below uint64) error {
	if _, err := a.db.Exec(`DELETE FROM messages WHERE height < ?`, int64(below)); err != nil {
		return fmt.Errorf("failed to prune messages: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}
