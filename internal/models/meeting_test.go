package models

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestNewUpdate_TrimsWhitespace(t *testing.T) {
	update, err := NewUpdate("alice", "  shipped the parser  ", "\tnone\t", " write docs \n", time.Now())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if update.Progress != "shipped the parser" {
		t.Errorf("Expected trimmed progress, got %q", update.Progress)
	}
	if update.Blockers != "none" {
		t.Errorf("Expected trimmed blockers, got %q", update.Blockers)
	}
	if update.Goals != "write docs" {
		t.Errorf("Expected trimmed goals, got %q", update.Goals)
	}
}

func TestNewUpdate_RejectsEmptyFields(t *testing.T) {
	cases := []struct {
		name     string
		progress string
		blockers string
		goals    string
		field    string
	}{
		{"empty progress", "", "none", "docs", "progress"},
		{"whitespace progress", "   ", "none", "docs", "progress"},
		{"empty blockers", "work", "", "docs", "blockers"},
		{"empty goals", "work", "none", " \t ", "goals"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewUpdate("alice", tc.progress, tc.blockers, tc.goals, time.Now())

			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if validationErr.Field != tc.field {
				t.Errorf("Expected field %q, got %q", tc.field, validationErr.Field)
			}
		})
	}
}

func TestNewUpdate_LengthLimitCountsRunes(t *testing.T) {
	// 500 runes exactly is allowed even in a multibyte script
	atLimit := strings.Repeat("я", MaxFieldLength)
	if _, err := NewUpdate("alice", atLimit, "none", "docs", time.Now()); err != nil {
		t.Errorf("Expected %d runes to pass, got %v", MaxFieldLength, err)
	}

	overLimit := strings.Repeat("я", MaxFieldLength+1)
	_, err := NewUpdate("alice", "work", overLimit, "docs", time.Now())

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if validationErr.Field != "blockers" {
		t.Errorf("Expected field blockers, got %q", validationErr.Field)
	}
}

func TestNewUpdate_TrimBeforeLengthCheck(t *testing.T) {
	// Padding that would push past the limit is trimmed away first
	padded := "  " + strings.Repeat("a", MaxFieldLength) + "  "
	if _, err := NewUpdate("alice", padded, "none", "docs", time.Now()); err != nil {
		t.Errorf("Expected padded input at limit to pass, got %v", err)
	}
}

func TestNewMeeting_IDFormat(t *testing.T) {
	now := time.Date(2026, time.March, 7, 10, 0, 0, 0, time.UTC)
	meeting, err := NewMeeting("alice", "", "", now)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Date prefix is unpadded: 26-3-7-<8 hex chars>
	pattern := regexp.MustCompile(`^26-3-7-[0-9a-f]{8}$`)
	if !pattern.MatchString(meeting.ID) {
		t.Errorf("ID %q does not match expected format", meeting.ID)
	}
}

func TestNewMeeting_IDsAreUnique(t *testing.T) {
	now := time.Now().UTC()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		meeting, err := NewMeeting("alice", "", "", now)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if seen[meeting.ID] {
			t.Fatalf("Duplicate ID generated: %s", meeting.ID)
		}
		seen[meeting.ID] = true
	}
}

func TestNewMeeting_ValidatesNameAndLink(t *testing.T) {
	now := time.Now().UTC()

	_, err := NewMeeting("alice", strings.Repeat("x", MaxNameLength+1), "", now)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "name" {
		t.Errorf("Expected name validation error, got %v", err)
	}

	_, err = NewMeeting("alice", "sprint", strings.Repeat("x", MaxLinkLength+1), now)
	if !errors.As(err, &validationErr) || validationErr.Field != "link" {
		t.Errorf("Expected link validation error, got %v", err)
	}

	meeting, err := NewMeeting("alice", "  sprint 12  ", "", now)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if meeting.Name != "sprint 12" {
		t.Errorf("Expected trimmed name, got %q", meeting.Name)
	}
}

func TestPutUpdate_ReplacesInPlace(t *testing.T) {
	now := time.Now().UTC()
	meeting, _ := NewMeeting("alice", "", "", now)

	meeting.PutUpdate("alice", "a1", "none", "g1", now)
	meeting.PutUpdate("bob", "b1", "none", "g1", now)
	meeting.PutUpdate("carol", "c1", "none", "g1", now)

	// Alice resubmits; her slot must keep its position
	later := now.Add(time.Minute)
	if _, err := meeting.PutUpdate("alice", "a2", "still none", "g2", later); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(meeting.Updates) != 3 {
		t.Fatalf("Expected 3 updates, got %d", len(meeting.Updates))
	}

	order := []string{"alice", "bob", "carol"}
	for i, user := range order {
		if meeting.Updates[i].User != user {
			t.Errorf("Expected %s at position %d, got %s", user, i, meeting.Updates[i].User)
		}
	}

	if meeting.Updates[0].Progress != "a2" {
		t.Errorf("Expected replaced content, got %q", meeting.Updates[0].Progress)
	}
	if !meeting.Updates[0].Timestamp.Equal(later) {
		t.Errorf("Expected replacement timestamp, got %v", meeting.Updates[0].Timestamp)
	}
}

func TestPutUpdate_ValidationLeavesMeetingUntouched(t *testing.T) {
	now := time.Now().UTC()
	meeting, _ := NewMeeting("alice", "", "", now)
	meeting.PutUpdate("alice", "a1", "none", "g1", now)

	_, err := meeting.PutUpdate("alice", "", "none", "g2", now.Add(time.Minute))
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}

	if meeting.Updates[0].Progress != "a1" {
		t.Errorf("Rejected submission must not modify the stored update, got %q", meeting.Updates[0].Progress)
	}
}

func TestPutUpdate_ClosedMeeting(t *testing.T) {
	now := time.Now().UTC()
	meeting, _ := NewMeeting("alice", "", "", now)
	meeting.Close(now)

	_, err := meeting.PutUpdate("bob", "work", "none", "docs", now)
	if !errors.Is(err, ErrMeetingClosed) {
		t.Errorf("Expected ErrMeetingClosed, got %v", err)
	}
}

func TestClose_IsIdempotentError(t *testing.T) {
	now := time.Now().UTC()
	meeting, _ := NewMeeting("alice", "", "", now)

	if err := meeting.Close(now); err != nil {
		t.Fatalf("Expected first close to succeed, got %v", err)
	}
	if meeting.ClosedAt == nil || !meeting.ClosedAt.Equal(now) {
		t.Errorf("Expected ClosedAt %v, got %v", now, meeting.ClosedAt)
	}

	if err := meeting.Close(now.Add(time.Minute)); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("Expected ErrAlreadyClosed, got %v", err)
	}
	if !meeting.ClosedAt.Equal(now) {
		t.Errorf("Second close must not move ClosedAt, got %v", meeting.ClosedAt)
	}
}

func TestMeeting_JSONRoundTrip(t *testing.T) {
	now := time.Date(2026, time.August, 30, 9, 30, 0, 0, time.UTC)
	meeting, _ := NewMeeting("alice", "sprint 12", "https://example.com/notes", now)
	meeting.PutUpdate("bob", "work", "none", "docs", now)

	// Open meeting serializes closed_at as null
	data, err := json.Marshal(meeting)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(string(data), `"closed_at":null`) {
		t.Errorf("Expected closed_at null for open meeting, got %s", data)
	}

	meeting.Close(now.Add(time.Hour))
	data, _ = json.Marshal(meeting)

	var decoded Meeting
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if decoded.ID != meeting.ID || decoded.Name != meeting.Name || !decoded.IsClosed {
		t.Errorf("Round trip lost fields: %+v", decoded)
	}
	if decoded.ClosedAt == nil || !decoded.ClosedAt.Equal(*meeting.ClosedAt) {
		t.Errorf("Round trip lost closed_at: %v", decoded.ClosedAt)
	}
	if len(decoded.Updates) != 1 || decoded.Updates[0].User != "bob" {
		t.Errorf("Round trip lost updates: %+v", decoded.Updates)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	now := time.Now().UTC()
	meeting, _ := NewMeeting("alice", "", "", now)
	meeting.PutUpdate("alice", "a1", "none", "g1", now)

	clone := meeting.Clone()
	clone.Updates[0].Progress = "mutated"
	clone.PutUpdate("bob", "b1", "none", "g1", now)

	if meeting.Updates[0].Progress != "a1" {
		t.Errorf("Clone mutation leaked into the original")
	}
	if len(meeting.Updates) != 1 {
		t.Errorf("Clone append leaked into the original")
	}
}
