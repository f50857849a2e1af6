package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	_ "modernc.org/sqlite"
)

// OpenDb opens (creating if needed) the sqlite event cache.
func OpenDb(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	schema := []string{
		`CREATE TABLE IF NOT EXISTS Event (
			Id TEXT PRIMARY KEY,
			PubKey TEXT NOT NULL,
			Kind INTEGER NOT NULL,
			CreatedAt INTEGER NOT NULL,
			Raw TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS EventKind ON Event (Kind, CreatedAt);`,
		`CREATE TABLE IF NOT EXISTS Since (
			Kind INTEGER PRIMARY KEY,
			UpdatedAt INTEGER NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return db, nil
}

// SaveEvent caches one event. Existing ids are left untouched; events are
// immutable once observed.
func SaveEvent(db *sql.DB, event nostr.Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = db.Exec(
		"INSERT INTO Event (Id,PubKey,Kind,CreatedAt,Raw) VALUES (?,?,?,?,?) ON CONFLICT DO NOTHING;",
		event.ID, event.PubKey, event.Kind, event.CreatedAt.Unix(), string(raw),
	)
	if err != nil {
		return fmt.Errorf("insert event failed: %w", err)
	}
	return nil
}

// LoadEvents reads every cached event back. Rows that no longer parse are
// skipped rather than failing the whole load.
func LoadEvents(db *sql.DB) ([]nostr.Event, error) {
	rows, err := db.Query("SELECT Raw FROM Event ORDER BY CreatedAt, Id")
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []nostr.Event
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		var event nostr.Event
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// UpdateSince advances the per-kind resume timestamp, never moving backwards.
func UpdateSince(db *sql.DB, kind int, updatedAt int64) error {
	_, err := db.Exec(
		"INSERT INTO Since (Kind,UpdatedAt) VALUES (?,?) ON CONFLICT DO UPDATE SET UpdatedAt=? WHERE UpdatedAt<?;",
		kind, updatedAt, updatedAt, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert since failed: %w", err)
	}
	return nil
}

// GetSince returns the per-kind resume timestamps, shifted back one hour to
// absorb relay clock skew. A timestamp more than 24 hours stale is reset to
// one hour ago so the daemon does not replay weeks of history after downtime.
func GetSince(db *sql.DB) (map[int]*time.Time, error) {
	rows, err := db.Query("SELECT Kind,UpdatedAt FROM Since")
	if err != nil {
		return nil, fmt.Errorf("query since: %w", err)
	}
	defer rows.Close()

	since := make(map[int]*time.Time)
	now := time.Now()
	for rows.Next() {
		var kind int
		var updatedAt int64
		if err := rows.Scan(&kind, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan since row: %w", err)
		}
		t := time.Unix(updatedAt, 0).Add(-1 * time.Hour)
		if now.Sub(t) > 24*time.Hour {
			t = now.Add(-1 * time.Hour)
		}
		since[kind] = &t
	}
	return since, rows.Err()
}
