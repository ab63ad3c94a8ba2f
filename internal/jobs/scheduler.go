package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"jobprep-backend/internal/models"
	"jobprep-backend/internal/repository"
	"jobprep-backend/internal/worker"
)

// Scheduler runs the housekeeping jobs: abandoning idle sessions, rolling
// monthly usage counters, and expiring lapsed trials.
type Scheduler struct {
	cron           *cron.Cron
	sessions       *repository.SessionRepo
	subscriptions  *repository.SubscriptionRepo
	queue          *worker.Queue
	timeoutMinutes int
}

func NewScheduler(sessions *repository.SessionRepo, subscriptions *repository.SubscriptionRepo, queue *worker.Queue, timeoutMinutes int) *Scheduler {
	return &Scheduler{
		cron:           cron.New(),
		sessions:       sessions,
		subscriptions:  subscriptions,
		queue:          queue,
		timeoutMinutes: timeoutMinutes,
	}
}

func (s *Scheduler) Start() {
	s.cron.AddFunc("*/5 * * * *", s.sweepStaleSessions)
	s.cron.AddFunc("10 0 * * *", s.resetMonthlyUsage)
	s.cron.AddFunc("30 0 * * *", s.expireLapsedTrials)
	s.cron.Start()
	log.Println("Scheduler started (stale-session sweep, usage reset, trial expiry)")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// sweepStaleSessions abandons sessions idle past the timeout. Users learn
// about it over the websocket so an open interview page can react.
func (s *Scheduler) sweepStaleSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	abandoned, err := s.sessions.AbandonStale(ctx, s.timeoutMinutes)
	if err != nil {
		log.Printf("Stale-session sweep failed: %v", err)
		return
	}
	if len(abandoned) == 0 {
		return
	}

	log.Printf("Stale-session sweep abandoned %d session(s)", len(abandoned))
	for _, entry := range abandoned {
		s.queue.PublishUpdate(ctx, entry.UserID, models.WSMessage{
			Type: "session_abandoned",
			Payload: models.SessionAbandonedEvent{
				SessionID: entry.SessionID,
				Reason:    "inactivity_timeout",
			},
		})
	}
}

func (s *Scheduler) resetMonthlyUsage() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.subscriptions.ResetAllDueMonthlyUsage(ctx)
	if err != nil {
		log.Printf("Monthly usage reset failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Monthly usage reset for %d subscription(s)", n)
	}
}

func (s *Scheduler) expireLapsedTrials() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.subscriptions.ExpireLapsedTrials(ctx)
	if err != nil {
		log.Printf("Trial expiry failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Expired %d lapsed trial(s)", n)
	}
}
