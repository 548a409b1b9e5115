package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "standup.db"))
	if err != nil {
		t.Fatalf("Failed to open SQLite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_PutGetRoundTrip(t *testing.T) {
	store := newSQLiteTestStore(t)

	meeting := newTestMeeting(t)
	meeting.PutUpdate("bob", "work", "none", "docs", time.Now().UTC())

	if err := store.Put(meeting); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	loaded, err := store.Get(meeting.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded.ID != meeting.ID {
		t.Errorf("Expected ID %s, got %s", meeting.ID, loaded.ID)
	}
	if len(loaded.Updates) != 1 || loaded.Updates[0].Progress != "work" {
		t.Errorf("Loaded updates differ: %+v", loaded.Updates)
	}
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := newSQLiteTestStore(t)

	_, err := store.Get("26-1-1-deadbeef")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_PutUpserts(t *testing.T) {
	store := newSQLiteTestStore(t)

	meeting := newTestMeeting(t)
	store.Put(meeting)

	meeting.Close(time.Now().UTC())
	if err := store.Put(meeting); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	loaded, _ := store.Get(meeting.ID)
	if !loaded.IsClosed {
		t.Errorf("Expected upserted record to be closed")
	}

	ids, _ := store.List()
	if len(ids) != 1 {
		t.Errorf("Upsert must not duplicate rows, got %v", ids)
	}
}

func TestSQLiteStore_ExistsAndListOrder(t *testing.T) {
	store := newSQLiteTestStore(t)

	exists, err := store.Exists("26-1-1-deadbeef")
	if err != nil || exists {
		t.Errorf("Expected missing meeting to not exist, got %v / %v", exists, err)
	}

	first := newTestMeeting(t)
	second := newTestMeeting(t)
	store.Put(first)
	store.Put(second)

	exists, _ = store.Exists(first.ID)
	if !exists {
		t.Errorf("Expected stored meeting to exist")
	}

	ids, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != first.ID || ids[1] != second.ID {
		t.Errorf("Expected insertion order [%s %s], got %v", first.ID, second.ID, ids)
	}
}
