package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"jobprep-backend/internal/models"
	"jobprep-backend/internal/repository"
	"jobprep-backend/internal/services"
)

const maxJobRetries = 3

// Pool consumes feedback-generation jobs from Redis. Each job is processed
// by at most one worker at a time thanks to a SetNX lock keyed by session.
type Pool struct {
	redis       *redis.Client
	queue       *Queue
	feedback    *services.FeedbackService
	email       *services.EmailService
	userRepo    *repository.UserRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	queue *Queue,
	feedback *services.FeedbackService,
	email *services.EmailService,
	userRepo *repository.UserRepo,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		queue:       queue,
		feedback:    feedback,
		email:       email,
		userRepo:    userRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d feedback worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, feedbackQueueName).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.FeedbackJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("feedback_lock:%s", job.SessionID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: generating feedback for session %s", id, job.SessionID)

		feedback, processErr := p.feedback.GenerateForSession(ctx, job.SessionID)
		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.handleSuccess(ctx, &job, feedback)
		}

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.FeedbackJob, feedback *models.InterviewFeedback) {
	p.queue.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "feedback_ready",
		Payload: models.FeedbackReadyEvent{
			SessionID:    job.SessionID,
			OverallScore: feedback.OverallScore,
		},
	})

	go p.sendFeedbackReadyEmail(context.Background(), job, feedback)

	log.Printf("Feedback for session %s generated successfully", job.SessionID)
}

func (p *Pool) sendFeedbackReadyEmail(ctx context.Context, job *models.FeedbackJob, feedback *models.InterviewFeedback) {
	if p.email == nil || p.userRepo == nil {
		return
	}

	user, err := p.userRepo.GetByID(ctx, job.UserID)
	if err != nil {
		log.Printf("failed to load user %s for feedback-ready email: %v", job.UserID, err)
		return
	}

	if err := p.email.SendFeedbackReadyEmail(user.Email, feedback.OverallScore); err != nil {
		log.Printf("failed to send feedback-ready email to %s for session %s: %v", user.Email, job.SessionID, err)
	}
}

func (p *Pool) handleFailure(ctx context.Context, job *models.FeedbackJob, err error) {
	job.RetryCount++
	errMsg := err.Error()

	if job.RetryCount < maxJobRetries {
		// Re-queue with backoff
		log.Printf("Feedback job for session %s failed (attempt %d): %s — retrying", job.SessionID, job.RetryCount, errMsg)

		jobBytes, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), feedbackQueueName, string(jobBytes))
		})
		return
	}

	// Max retries reached
	log.Printf("Feedback job for session %s failed permanently: %s", job.SessionID, errMsg)
	p.queue.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "error",
		Payload: map[string]string{
			"session_id":    job.SessionID.String(),
			"error_code":    "FEEDBACK_FAILED",
			"error_message": "Feedback generation failed. Please try again from the interview page.",
		},
	})
}
