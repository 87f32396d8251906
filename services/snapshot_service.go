package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"stockwatch_backend/services/signalpage"
)

// SnapshotDBPath is the local SQLite database holding historical signal
// snapshots, one row per fetch cycle per symbol.
const SnapshotDBPath = "data/signals.db"

// SignalSnapshot is one archived fetch result.
type SignalSnapshot struct {
	ID         int64                   `json:"id"`
	Symbol     string                  `json:"symbol"`
	Suggestion string                  `json:"suggestion,omitempty"`
	Record     signalpage.SignalRecord `json:"record"`
	FetchedAt  time.Time               `json:"fetched_at"`
}

// SnapshotStore archives fetched signal records locally so suggestion
// changes can be inspected after the fact.
type SnapshotStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// Global snapshot store instance
var GlobalSnapshotStore *SnapshotStore

// InitSnapshotStore initializes the local snapshot database.
func InitSnapshotStore() error {
	dir := filepath.Dir(SnapshotDBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", SnapshotDBPath)
	if err != nil {
		return fmt.Errorf("failed to open snapshot database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping snapshot database: %w", err)
	}

	GlobalSnapshotStore = &SnapshotStore{db: db}

	if err := GlobalSnapshotStore.createTables(); err != nil {
		return fmt.Errorf("failed to create snapshot tables: %w", err)
	}

	log.Printf("Snapshot store initialized at %s", SnapshotDBPath)
	return nil
}

// Close closes the snapshot database.
func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SnapshotStore) createTables() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS signal_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			suggestion TEXT,
			payload TEXT NOT NULL,
			fetched_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_symbol_time
			ON signal_snapshots(symbol, fetched_at DESC);
	`)
	return err
}

// SaveSignalSnapshot archives one fetched record. Error records are archived
// too; a failed fetch is part of the symbol's history.
func (s *SnapshotStore) SaveSignalSnapshot(record signalpage.SignalRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		`INSERT INTO signal_snapshots (symbol, suggestion, payload, fetched_at) VALUES (?, ?, ?, ?)`,
		record.Symbol, record.Suggestion, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// SignalSnapshots returns the most recent archived records for a symbol,
// newest first.
func (s *SnapshotStore) SignalSnapshots(symbol string, limit int) ([]SignalSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, symbol, suggestion, payload, fetched_at
		 FROM signal_snapshots WHERE symbol = ?
		 ORDER BY fetched_at DESC LIMIT ?`,
		symbol, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []SignalSnapshot
	for rows.Next() {
		var snap SignalSnapshot
		var payload string
		if err := rows.Scan(&snap.ID, &snap.Symbol, &snap.Suggestion, &payload, &snap.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &snap.Record); err != nil {
			log.Printf("Warning: corrupt snapshot payload for %s (id=%d): %v", snap.Symbol, snap.ID, err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// PruneSnapshots deletes snapshots older than the retention window.
func (s *SnapshotStore) PruneSnapshots(olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM signal_snapshots WHERE fetched_at < ?`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

// DeleteSymbolSnapshots removes all archived records for a symbol, used when
// a symbol leaves the watchlist.
func (s *SnapshotStore) DeleteSymbolSnapshots(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM signal_snapshots WHERE symbol = ?`, symbol)
	return err
}
