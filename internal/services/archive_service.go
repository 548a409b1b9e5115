package services

import (
	"context"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"standup/internal/database"
)

// Artifact names under the per-meeting archive path
const (
	ArtifactSnapshot = "meeting.json"
	ArtifactReport   = "index.html"

	// archiveRoot namespaces artifact paths in the remote store
	archiveRoot = "meetings"

	// archiveWriteTimeout bounds each remote write so a slow store cannot
	// stall the process; a timeout is an archival failure like any other.
	archiveWriteTimeout = 15 * time.Second

	// maxArchiveAttempts caps janitor retries before a publish is dropped
	maxArchiveAttempts = 5
)

// pendingArchive is a failed publish waiting for a retry sweep
type pendingArchive struct {
	meetingID string
	snapshot  []byte
	report    []byte
	attempts  int
}

// ArchiveService pushes closed-meeting artifacts to durable remote storage.
// Archival is strictly best-effort: every failure is logged and swallowed,
// and the meeting's local closed state stays authoritative regardless.
// Availability is resolved once at construction; callers can check
// IsAvailable rather than relying on errors for the unconfigured case.
type ArchiveService struct {
	db      *database.ArchiveDB // nil when archival is not configured
	metrics *Metrics

	mu      sync.Mutex
	pending map[string]*pendingArchive
}

// NewArchiveService connects to the remote archive if a MongoDB URI is
// configured. An empty URI or a failed connection disables archival with a
// single warning; it never fails construction.
func NewArchiveService(mongoURI string, metrics *Metrics) *ArchiveService {
	s := &ArchiveService{
		metrics: metrics,
		pending: make(map[string]*pendingArchive),
	}

	if mongoURI == "" {
		log.Println("⚠️ [ARCHIVE] MONGODB_URI not set - meeting archival disabled")
		return s
	}

	db, err := database.NewArchiveDB(mongoURI)
	if err != nil {
		log.Printf("⚠️ [ARCHIVE] Failed to connect to archive store: %v - meeting archival disabled", err)
		return s
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Initialize(ctx); err != nil {
		log.Printf("⚠️ [ARCHIVE] Failed to initialize archive indexes: %v", err)
	}

	s.db = db
	return s
}

// IsAvailable reports whether remote archival is configured and connected
func (s *ArchiveService) IsAvailable() bool {
	return s.db != nil
}

// Close disconnects from the remote archive
func (s *ArchiveService) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close(ctx)
}

// Publish writes the JSON snapshot and rendered report for a closed meeting
// to the remote archive. The two writes are independent: each is attempted
// even if the other fails. Failures are logged, counted, queued for the
// retry sweep, and never returned to the caller.
func (s *ArchiveService) Publish(meetingID string, snapshot, report []byte) {
	if !s.IsAvailable() {
		log.Printf("☁️ [ARCHIVE] Archival unavailable, skipping upload for meeting %s", meetingID)
		if s.metrics != nil {
			s.metrics.ArchiveWrites.WithLabelValues("snapshot", "skipped").Inc()
			s.metrics.ArchiveWrites.WithLabelValues("report", "skipped").Inc()
		}
		return
	}

	snapshotOK := s.putArtifact(meetingID, ArtifactSnapshot, "application/json", snapshot, "snapshot")
	reportOK := true
	if report != nil {
		reportOK = s.putArtifact(meetingID, ArtifactReport, "text/html", report, "report")
	}

	if !snapshotOK || !reportOK {
		s.enqueueRetry(meetingID, snapshot, report)
	}
}

// putArtifact upserts one artifact document; returns false on failure
func (s *ArchiveService) putArtifact(meetingID, name, contentType string, body []byte, label string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), archiveWriteTimeout)
	defer cancel()

	path := archiveRoot + "/" + meetingID + "/" + name
	filter := bson.M{"meetingId": meetingID, "name": name}
	doc := bson.M{
		"meetingId":   meetingID,
		"name":        name,
		"path":        path,
		"contentType": contentType,
		"body":        body,
		"archivedAt":  time.Now().UTC(),
	}

	_, err := s.db.Artifacts().ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		log.Printf("❌ [ARCHIVE] Failed to upload %s for meeting %s: %v", name, meetingID, err)
		if s.metrics != nil {
			s.metrics.ArchiveWrites.WithLabelValues(label, "error").Inc()
		}
		return false
	}

	log.Printf("☁️ [ARCHIVE] Uploaded %s for meeting %s", path, meetingID)
	if s.metrics != nil {
		s.metrics.ArchiveWrites.WithLabelValues(label, "ok").Inc()
	}
	return true
}

// enqueueRetry records a failed publish for the janitor's retry sweep
func (s *ArchiveService) enqueueRetry(meetingID string, snapshot, report []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[meetingID]
	if !ok {
		entry = &pendingArchive{meetingID: meetingID, snapshot: snapshot, report: report}
		s.pending[meetingID] = entry
	}
	// Keep the newest artifacts in case a retry was already queued
	entry.snapshot = snapshot
	entry.report = report
}

// PendingCount returns the number of publishes waiting for retry
func (s *ArchiveService) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// RetryPending re-attempts every queued publish and returns how many
// succeeded. Entries that keep failing are dropped after maxArchiveAttempts;
// the local store still holds the closed meeting either way.
func (s *ArchiveService) RetryPending() int {
	if !s.IsAvailable() {
		return 0
	}

	s.mu.Lock()
	queue := make([]*pendingArchive, 0, len(s.pending))
	for _, entry := range s.pending {
		queue = append(queue, entry)
	}
	s.mu.Unlock()

	succeeded := 0
	for _, entry := range queue {
		snapshotOK := s.putArtifact(entry.meetingID, ArtifactSnapshot, "application/json", entry.snapshot, "snapshot")
		reportOK := true
		if entry.report != nil {
			reportOK = s.putArtifact(entry.meetingID, ArtifactReport, "text/html", entry.report, "report")
		}

		s.mu.Lock()
		if snapshotOK && reportOK {
			delete(s.pending, entry.meetingID)
			succeeded++
			log.Printf("☁️ [ARCHIVE] Retry succeeded for meeting %s", entry.meetingID)
		} else {
			entry.attempts++
			if entry.attempts >= maxArchiveAttempts {
				delete(s.pending, entry.meetingID)
				log.Printf("❌ [ARCHIVE] Giving up on meeting %s after %d attempts", entry.meetingID, entry.attempts)
			}
		}
		s.mu.Unlock()
	}
	return succeeded
}
