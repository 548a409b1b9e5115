package database

import (
	"errors"

	"standup/internal/models"
)

// ErrNotFound is returned when no meeting exists for the requested ID
var ErrNotFound = errors.New("meeting not found")

// MeetingStore is the durable key-addressed store for meetings.
// Put is a full overwrite; readers observe either the pre- or post-write
// record, never a partial one.
type MeetingStore interface {
	// Get loads the meeting for id, or ErrNotFound.
	Get(id string) (*models.Meeting, error)
	// Put writes the full meeting record, replacing any previous one.
	Put(meeting *models.Meeting) error
	// Exists reports whether a record exists for id.
	Exists(id string) (bool, error)
	// List returns all stored meeting IDs.
	List() ([]string, error)
	// Close releases underlying resources.
	Close() error
}
