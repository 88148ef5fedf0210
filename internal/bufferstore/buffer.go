// Package bufferstore implements the durable, bounded FIFO queue of unsent
// scan events (the Event Buffer, component C1).
package bufferstore

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Event is a scan accepted while offline and persisted for later replay.
type Event struct {
	ID        int64
	Tag       string
	Terminal  string
	Timestamp time.Time
	Synced    bool
}

// Buffer is the durable, bounded FIFO queue backed by a single sqlite file.
// It is shared between the event-loop context and the sync worker; every
// exported method serializes through the embedded *sql.DB, which already
// guards its own connection pool, so no additional locking is layered on top.
type Buffer struct {
	db      *sql.DB
	maxSize uint32
}

// Open creates (or reuses) a sqlite-backed buffer at path, creating any
// missing parent directories. Pass ":memory:" for an in-memory buffer with
// identical semantics — the fallback path a caller may take when the
// configured store cannot be opened (see §4.1, §7).
func Open(path string, maxSize uint32) (*Buffer, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("bufferstore: creating %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("bufferstore: opening %s: %w", path, err)
	}
	// The embedded store is a single file; serialize writers to avoid
	// SQLITE_BUSY under the event-loop + sync-worker access pattern.
	db.SetMaxOpenConns(1)

	b := &Buffer{db: db, maxSize: maxSize}
	if err := b.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *Buffer) initialize() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS buffered_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tag TEXT NOT NULL,
			terminal TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			synced INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
		CREATE INDEX IF NOT EXISTS idx_buffered_events_synced ON buffered_events(synced);
	`)
	if err != nil {
		return fmt.Errorf("bufferstore: initializing schema: %w", err)
	}
	log.Println("event buffer database initialized")
	return nil
}

// Close releases the underlying database handle.
func (b *Buffer) Close() error {
	return b.db.Close()
}

// Push inserts a new unsynced event for tag/terminal, dropping the oldest
// unsynced event first if the buffer is already at capacity. Returns the
// new row's id.
func (b *Buffer) Push(tag, terminal string) (int64, error) {
	var count uint32
	if err := b.db.QueryRow(`SELECT COUNT(*) FROM buffered_events WHERE synced = 0`).Scan(&count); err != nil {
		return 0, fmt.Errorf("bufferstore: counting pending: %w", err)
	}

	if count >= b.maxSize {
		log.Printf("event buffer is full (%d events), dropping oldest event", b.maxSize)
		if _, err := b.db.Exec(`DELETE FROM buffered_events WHERE id = (SELECT MIN(id) FROM buffered_events WHERE synced = 0)`); err != nil {
			return 0, fmt.Errorf("bufferstore: dropping oldest event: %w", err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := b.db.Exec(`INSERT INTO buffered_events (tag, terminal, timestamp) VALUES (?, ?, ?)`, tag, terminal, now)
	if err != nil {
		return 0, fmt.Errorf("bufferstore: inserting event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("bufferstore: reading inserted id: %w", err)
	}
	return id, nil
}

// GetPending returns all unsynced events ordered by id ascending (FIFO). A
// stored timestamp that fails to parse is substituted with the current
// wall-clock instant rather than failing the query.
func (b *Buffer) GetPending() ([]Event, error) {
	rows, err := b.db.Query(`SELECT id, tag, terminal, timestamp, synced FROM buffered_events WHERE synced = 0 ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("bufferstore: querying pending: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var tsStr string
		var synced int
		if err := rows.Scan(&e.ID, &e.Tag, &e.Terminal, &tsStr, &synced); err != nil {
			return nil, fmt.Errorf("bufferstore: scanning row: %w", err)
		}
		ts, parseErr := time.Parse(time.RFC3339, tsStr)
		if parseErr != nil {
			ts = time.Now().UTC()
		}
		e.Timestamp = ts
		e.Synced = synced != 0
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bufferstore: iterating pending: %w", err)
	}
	return events, nil
}

// MarkSynced sets synced=1 for id. Idempotent.
func (b *Buffer) MarkSynced(id int64) error {
	if _, err := b.db.Exec(`UPDATE buffered_events SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("bufferstore: marking %d synced: %w", id, err)
	}
	return nil
}

// PendingCount returns the number of unsynced events.
func (b *Buffer) PendingCount() (uint32, error) {
	var count uint32
	if err := b.db.QueryRow(`SELECT COUNT(*) FROM buffered_events WHERE synced = 0`).Scan(&count); err != nil {
		return 0, fmt.Errorf("bufferstore: counting pending: %w", err)
	}
	return count, nil
}
