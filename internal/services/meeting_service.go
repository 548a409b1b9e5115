package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"standup/internal/database"
	"standup/internal/logging"
	"standup/internal/models"
)

// MeetingService is the meeting lifecycle engine. All mutations of a given
// meeting are serialized behind a per-meeting lock; operations on different
// meetings proceed in parallel.
type MeetingService struct {
	store   database.MeetingStore
	cache   *cache.Cache // read cache keyed by meeting ID
	locks   sync.Map     // meeting ID -> *sync.Mutex
	metrics *Metrics

	// onClosed is invoked (on its own goroutine, after the per-meeting lock
	// is released) with a snapshot of every meeting that transitions to
	// closed. Archival hangs off this hook; its outcome never affects the
	// close itself.
	onClosed func(meeting *models.Meeting)
}

// NewMeetingService creates a new meeting lifecycle engine
func NewMeetingService(store database.MeetingStore, metrics *Metrics) *MeetingService {
	return &MeetingService{
		store:   store,
		cache:   cache.New(30*time.Minute, 10*time.Minute),
		metrics: metrics,
	}
}

// SetClosedHandler sets the callback fired after a meeting closes
func (s *MeetingService) SetClosedHandler(handler func(meeting *models.Meeting)) {
	s.onClosed = handler
}

// lockFor returns the mutex serializing mutations of one meeting
func (s *MeetingService) lockFor(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// load fetches a meeting through the read cache
func (s *MeetingService) load(id string) (*models.Meeting, error) {
	if cached, found := s.cache.Get(id); found {
		return cached.(*models.Meeting), nil
	}
	meeting, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(id, meeting, cache.DefaultExpiration)
	return meeting, nil
}

// persist writes the meeting and refreshes the cache
func (s *MeetingService) persist(meeting *models.Meeting) error {
	if err := s.store.Put(meeting); err != nil {
		return err
	}
	s.cache.Set(meeting.ID, meeting, cache.DefaultExpiration)
	return nil
}

// Create allocates a fresh meeting in the open state. Name and link are
// optional and validated when present.
func (s *MeetingService) Create(createdBy, name, link string) (*models.Meeting, error) {
	meeting, err := models.NewMeeting(createdBy, name, link, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	mu := s.lockFor(meeting.ID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.persist(meeting); err != nil {
		return nil, fmt.Errorf("failed to persist meeting: %w", err)
	}

	log.Printf("📋 [MEETING] Created meeting %s by %s", meeting.ID, createdBy)
	if s.metrics != nil {
		s.metrics.MeetingsCreated.Inc()
	}
	return meeting.Clone(), nil
}

// SubmitUpdate validates and stores a user's status update on an open
// meeting. A resubmission by the same user replaces their previous update in
// place. On any failure the meeting is left exactly as it was.
func (s *MeetingService) SubmitUpdate(meetingID, user, progress, blockers, goals string) (models.Update, error) {
	mu := s.lockFor(meetingID)
	mu.Lock()
	defer mu.Unlock()

	meeting, err := s.load(meetingID)
	if err != nil {
		return models.Update{}, err
	}

	// Mutate a clone so the cached meeting never exposes state that was
	// not durably written.
	working := meeting.Clone()
	update, err := working.PutUpdate(user, progress, blockers, goals, time.Now().UTC())
	if err != nil {
		if s.metrics != nil {
			if _, ok := err.(*models.ValidationError); ok {
				s.metrics.ValidationFailures.Inc()
			}
		}
		return models.Update{}, err
	}

	if err := s.persist(working); err != nil {
		logging.WithMeeting(meetingID, user).Error("failed to persist update", "error", err)
		return models.Update{}, fmt.Errorf("failed to persist update: %w", err)
	}

	log.Printf("📋 [MEETING] Update from %s on meeting %s (%d total)", user, meetingID, len(working.Updates))
	if s.metrics != nil {
		s.metrics.UpdatesSubmitted.Inc()
	}
	return update, nil
}

// Close irreversibly transitions a meeting to the closed state and returns
// the frozen snapshot. Report generation and archival are triggered after
// the transition commits; their outcome does not affect the close.
func (s *MeetingService) Close(meetingID, closedBy string) (*models.Meeting, error) {
	mu := s.lockFor(meetingID)
	mu.Lock()

	meeting, err := s.load(meetingID)
	if err != nil {
		mu.Unlock()
		return nil, err
	}

	working := meeting.Clone()
	if err := working.Close(time.Now().UTC()); err != nil {
		mu.Unlock()
		return nil, err
	}

	if err := s.persist(working); err != nil {
		mu.Unlock()
		logging.WithMeeting(meetingID, closedBy).Error("failed to persist close", "error", err)
		return nil, fmt.Errorf("failed to persist closed meeting: %w", err)
	}

	snapshot := working.Clone()
	mu.Unlock()

	log.Printf("📋 [MEETING] Closed meeting %s by %s (%d updates)", meetingID, closedBy, len(snapshot.Updates))
	if s.metrics != nil {
		s.metrics.MeetingsClosed.Inc()
	}

	// Archival is best-effort and must never block or fail a close, so it
	// runs outside the per-meeting lock.
	if s.onClosed != nil {
		go s.onClosed(snapshot)
	}

	return snapshot, nil
}

// Get returns a snapshot of a meeting
func (s *MeetingService) Get(meetingID string) (*models.Meeting, error) {
	mu := s.lockFor(meetingID)
	mu.Lock()
	defer mu.Unlock()

	meeting, err := s.load(meetingID)
	if err != nil {
		return nil, err
	}
	return meeting.Clone(), nil
}

// List returns all stored meeting IDs
func (s *MeetingService) List() ([]string, error) {
	return s.store.List()
}
