package services

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// JanitorService runs periodic housekeeping: retrying failed archive writes
// and flagging meetings that have stayed open past the staleness threshold.
type JanitorService struct {
	scheduler  gocron.Scheduler
	meetings   *MeetingService
	archive    *ArchiveService
	instanceID string
	cronExpr   string
	staleAfter time.Duration
}

// NewJanitorService creates a janitor with a validated cron expression
func NewJanitorService(meetings *MeetingService, archive *ArchiveService, cronExpr string, staleAfter time.Duration) (*JanitorService, error) {
	// Validate before handing to the scheduler so a bad expression fails at startup
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(cronExpr); err != nil {
		return nil, fmt.Errorf("invalid janitor cron expression %q: %w", cronExpr, err)
	}

	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &JanitorService{
		scheduler:  scheduler,
		meetings:   meetings,
		archive:    archive,
		instanceID: uuid.New().String(),
		cronExpr:   cronExpr,
		staleAfter: staleAfter,
	}, nil
}

// Start registers the sweep job and starts the scheduler
func (s *JanitorService) Start() error {
	log.Println("⏰ Starting janitor service...")

	_, err := s.scheduler.NewJob(
		gocron.CronJob(s.cronExpr, false),
		gocron.NewTask(func() {
			s.sweep()
		}),
		gocron.WithName(fmt.Sprintf("janitor-%s", s.instanceID)),
	)
	if err != nil {
		return fmt.Errorf("failed to register janitor job: %w", err)
	}

	s.scheduler.Start()
	log.Printf("✅ Janitor service started (cron: %s)", s.cronExpr)
	return nil
}

// Stop shuts down the scheduler
func (s *JanitorService) Stop() error {
	log.Println("⏹️ Stopping janitor service...")
	return s.scheduler.Shutdown()
}

// sweep runs one housekeeping pass
func (s *JanitorService) sweep() {
	start := time.Now()

	retried := 0
	if s.archive != nil && s.archive.PendingCount() > 0 {
		retried = s.archive.RetryPending()
	}

	stale := s.auditStaleMeetings()

	if retried > 0 || stale > 0 {
		log.Printf("🧹 [JANITOR] Sweep done in %v (archives retried: %d, stale meetings: %d)",
			time.Since(start).Round(time.Millisecond), retried, stale)
	}
}

// auditStaleMeetings logs open meetings older than the staleness threshold.
// It never closes them; closing is a human decision.
func (s *JanitorService) auditStaleMeetings() int {
	if s.staleAfter <= 0 {
		return 0
	}

	ids, err := s.meetings.List()
	if err != nil {
		log.Printf("⚠️ [JANITOR] Failed to list meetings: %v", err)
		return 0
	}

	cutoff := time.Now().Add(-s.staleAfter)
	stale := 0
	for _, id := range ids {
		meeting, err := s.meetings.Get(id)
		if err != nil {
			continue
		}
		if !meeting.IsClosed && meeting.CreatedAt.Before(cutoff) {
			log.Printf("🧹 [JANITOR] Meeting %s has been open since %s",
				meeting.ID, meeting.CreatedAt.Format(time.RFC3339))
			stale++
		}
	}
	return stale
}
