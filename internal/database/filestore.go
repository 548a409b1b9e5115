package database

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"standup/internal/models"
)

// meetingFileName is the record file inside each meeting directory
const meetingFileName = "meeting.json"

// FileStore persists one JSON record per meeting at <dir>/<id>/meeting.json.
// The directory listing doubles as the meeting index; date-prefixed IDs keep
// it chronologically scannable.
type FileStore struct {
	dir string
}

// NewFileStore creates the storage directory if needed and returns the store
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	log.Printf("📦 [STORE] File store ready at %s", dir)
	return &FileStore{dir: dir}, nil
}

// meetingPath returns the record path for a meeting ID
func (s *FileStore) meetingPath(id string) string {
	return filepath.Join(s.dir, id, meetingFileName)
}

// Get loads a meeting record, or ErrNotFound
func (s *FileStore) Get(id string) (*models.Meeting, error) {
	data, err := os.ReadFile(s.meetingPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read meeting %s: %w", id, err)
	}

	var meeting models.Meeting
	if err := json.Unmarshal(data, &meeting); err != nil {
		return nil, fmt.Errorf("failed to parse meeting %s: %w", id, err)
	}
	return &meeting, nil
}

// Put writes the full meeting record. The write goes to a temp file in the
// meeting directory and is renamed into place so readers never observe a
// partial record.
func (s *FileStore) Put(meeting *models.Meeting) error {
	meetingDir := filepath.Join(s.dir, meeting.ID)
	if err := os.MkdirAll(meetingDir, 0o755); err != nil {
		return fmt.Errorf("failed to create meeting directory: %w", err)
	}

	data, err := json.MarshalIndent(meeting, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize meeting %s: %w", meeting.ID, err)
	}

	tmp, err := os.CreateTemp(meetingDir, meetingFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write meeting %s: %w", meeting.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.meetingPath(meeting.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace meeting %s: %w", meeting.ID, err)
	}
	return nil
}

// Exists reports whether a record exists for id
func (s *FileStore) Exists(id string) (bool, error) {
	_, err := os.Stat(s.meetingPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat meeting %s: %w", id, err)
	}
	return true, nil
}

// List returns all meeting IDs with a stored record
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage directory: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(s.meetingPath(entry.Name())); err == nil {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}

// Close is a no-op for the file store
func (s *FileStore) Close() error {
	return nil
}
