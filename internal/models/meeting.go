package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxFieldLength is the maximum length for update text fields
	MaxFieldLength = 500
	// MaxNameLength is the maximum length for a meeting name
	MaxNameLength = 50
	// MaxLinkLength is the maximum length for a meeting link
	MaxLinkLength = 500
)

// Lifecycle errors returned when a mutation targets a closed meeting
var (
	ErrMeetingClosed = errors.New("meeting is closed")
	ErrAlreadyClosed = errors.New("meeting is already closed")
)

// ValidationError reports which field violated which rule.
// The caller can fix the input and resubmit; nothing was stored.
type ValidationError struct {
	Field string
	Rule  string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Rule)
}

// Update represents a single participant's status update in a meeting
type Update struct {
	User      string    `json:"user"`
	Progress  string    `json:"progress"`
	Blockers  string    `json:"blockers"`
	Goals     string    `json:"goals"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUpdate validates and constructs an Update. All three text fields must be
// non-empty after trimming and at most MaxFieldLength characters. On a
// violation no Update is produced and a *ValidationError names the field
// and rule that failed.
func NewUpdate(user, progress, blockers, goals string, now time.Time) (Update, error) {
	progress = strings.TrimSpace(progress)
	blockers = strings.TrimSpace(blockers)
	goals = strings.TrimSpace(goals)

	fields := []struct {
		name  string
		value string
	}{
		{"progress", progress},
		{"blockers", blockers},
		{"goals", goals},
	}
	for _, f := range fields {
		if f.value == "" {
			return Update{}, &ValidationError{Field: f.name, Rule: "is required"}
		}
		if utf8.RuneCountInString(f.value) > MaxFieldLength {
			return Update{}, &ValidationError{Field: f.name, Rule: fmt.Sprintf("must be %d characters or less", MaxFieldLength)}
		}
	}

	return Update{
		User:      user,
		Progress:  progress,
		Blockers:  blockers,
		Goals:     goals,
		Timestamp: now,
	}, nil
}

// Meeting is the aggregate tracking one round of status collection.
// Updates hold at most one entry per distinct user, in first-insertion order.
type Meeting struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Link      string     `json:"link,omitempty"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	Updates   []Update   `json:"updates"`
	IsClosed  bool       `json:"is_closed"`
	ClosedAt  *time.Time `json:"closed_at"`
}

// NewMeeting creates a new open meeting with a date-prefixed unique ID.
// Name and link are optional; when present they are trimmed and length-checked.
func NewMeeting(createdBy, name, link string, now time.Time) (*Meeting, error) {
	name = strings.TrimSpace(name)
	link = strings.TrimSpace(link)

	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, &ValidationError{Field: "name", Rule: fmt.Sprintf("must be %d characters or less", MaxNameLength)}
	}
	if utf8.RuneCountInString(link) > MaxLinkLength {
		return nil, &ValidationError{Field: "link", Rule: fmt.Sprintf("must be %d characters or less", MaxLinkLength)}
	}

	return &Meeting{
		ID:        newMeetingID(now),
		Name:      name,
		Link:      link,
		CreatedBy: createdBy,
		CreatedAt: now,
		Updates:   []Update{},
	}, nil
}

// newMeetingID builds an ID like "26-8-30-1f8a9c02": a yy-m-d date prefix
// keeps meeting directories chronologically scannable, the random suffix
// keeps same-day IDs unique.
func newMeetingID(now time.Time) string {
	datePrefix := fmt.Sprintf("%d-%d-%d", now.Year()%100, int(now.Month()), now.Day())
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s", datePrefix, suffix)
}

// UpdateFor returns the current update for a user, if any
func (m *Meeting) UpdateFor(user string) (Update, bool) {
	for _, u := range m.Updates {
		if u.User == user {
			return u, true
		}
	}
	return Update{}, false
}

// PutUpdate validates and stores a user's update. If the user already has an
// update it is replaced in place (same position, new content and timestamp);
// otherwise the update is appended. Returns ErrMeetingClosed once the
// meeting is closed and a *ValidationError on bad input; in both cases
// the meeting is left untouched.
func (m *Meeting) PutUpdate(user, progress, blockers, goals string, now time.Time) (Update, error) {
	if m.IsClosed {
		return Update{}, ErrMeetingClosed
	}

	update, err := NewUpdate(user, progress, blockers, goals, now)
	if err != nil {
		return Update{}, err
	}

	for i, existing := range m.Updates {
		if existing.User == user {
			m.Updates[i] = update
			return update, nil
		}
	}
	m.Updates = append(m.Updates, update)
	return update, nil
}

// Close transitions the meeting to its terminal closed state, freezing the
// update collection. Returns ErrAlreadyClosed on a second call.
func (m *Meeting) Close(now time.Time) error {
	if m.IsClosed {
		return ErrAlreadyClosed
	}
	m.IsClosed = true
	m.ClosedAt = &now
	return nil
}

// Clone returns a deep copy of the meeting, used to hand out snapshots
// without exposing the store's canonical copy to mutation.
func (m *Meeting) Clone() *Meeting {
	c := *m
	c.Updates = make([]Update, len(m.Updates))
	copy(c.Updates, m.Updates)
	if m.ClosedAt != nil {
		t := *m.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}
