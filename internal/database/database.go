package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"standup/internal/models"
)

// SQLiteStore persists meetings as JSON documents in a local SQLite database.
// Functionally equivalent to the file store; chosen via DATABASE_PATH when a
// single-file database is preferable to a directory tree.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; keep the pool small
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("✅ [STORE] SQLite store ready at %s", path)
	return store, nil
}

// initialize creates the meetings table if it does not exist
func (s *SQLiteStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS meetings (
			id         TEXT PRIMARY KEY,
			doc        TEXT NOT NULL,
			is_closed  INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create meetings table: %w", err)
	}
	return nil
}

// Get loads a meeting record, or ErrNotFound
func (s *SQLiteStore) Get(id string) (*models.Meeting, error) {
	var doc string
	err := s.db.QueryRow("SELECT doc FROM meetings WHERE id = ?", id).Scan(&doc)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load meeting %s: %w", id, err)
	}

	var meeting models.Meeting
	if err := json.Unmarshal([]byte(doc), &meeting); err != nil {
		return nil, fmt.Errorf("failed to parse meeting %s: %w", id, err)
	}
	return &meeting, nil
}

// Put upserts the full meeting record in a single statement
func (s *SQLiteStore) Put(meeting *models.Meeting) error {
	doc, err := json.Marshal(meeting)
	if err != nil {
		return fmt.Errorf("failed to serialize meeting %s: %w", meeting.ID, err)
	}

	closed := 0
	if meeting.IsClosed {
		closed = 1
	}

	_, err = s.db.Exec(`
		INSERT INTO meetings (id, doc, is_closed, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, is_closed = excluded.is_closed, updated_at = excluded.updated_at
	`, meeting.ID, string(doc), closed, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store meeting %s: %w", meeting.ID, err)
	}
	return nil
}

// Exists reports whether a record exists for id
func (s *SQLiteStore) Exists(id string) (bool, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM meetings WHERE id = ?", id).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check meeting %s: %w", id, err)
	}
	return count > 0, nil
}

// List returns all stored meeting IDs in insertion order
func (s *SQLiteStore) List() ([]string, error) {
	rows, err := s.db.Query("SELECT id FROM meetings ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan meeting id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meetings: %w", err)
	}
	return ids, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
