package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"jobprep-backend/internal/models"
	"jobprep-backend/internal/prompts"
	"jobprep-backend/internal/repository"
)

const (
	maxMessageLength = 5000

	// Minutes of remaining session time under which responses start
	// carrying a warning.
	timeWarningThresholdMinutes = 5

	completionMessage = "Thank you for your answers. The interview is now complete. We are generating your feedback."
)

type sessionStore interface {
	CreateWithQuota(ctx context.Context, s *models.InterviewSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.InterviewSession, error)
	AppendTurn(ctx context.Context, id uuid.UUID, turn models.Turn, tokens int) (bool, error)
	Complete(ctx context.Context, id uuid.UUID, completedAt time.Time, durationSeconds int) (bool, error)
	Abandon(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status *models.SessionStatus, limit, offset int) ([]models.InterviewHistoryItem, int, error)
}

type categoryStore interface {
	GetActiveByID(ctx context.Context, id uuid.UUID) (*models.JobCategory, error)
}

type profileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type subscriptionStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	ResetMonthlyUsageIfDue(ctx context.Context, userID uuid.UUID) (bool, error)
}

type feedbackGenerator interface {
	GenerateForSession(ctx context.Context, sessionID uuid.UUID) (*models.InterviewFeedback, error)
}

type jobQueue interface {
	EnqueueFeedback(ctx context.Context, job models.FeedbackJob) error
}

// InterviewService drives the interview session lifecycle: creation behind
// the subscription gate, the question/answer loop against the completion
// model, and termination with feedback kickoff.
type InterviewService struct {
	sessions      sessionStore
	categories    categoryStore
	users         profileStore
	subscriptions subscriptionStore
	completion    CompletionClient
	feedback      feedbackGenerator
	queue         jobQueue

	sessionTimeout time.Duration
	maxTokens      int
}

func NewInterviewService(
	sessions sessionStore,
	categories categoryStore,
	users profileStore,
	subscriptions subscriptionStore,
	completion CompletionClient,
	feedback feedbackGenerator,
	queue jobQueue,
	sessionTimeout time.Duration,
	maxTokens int,
) *InterviewService {
	return &InterviewService{
		sessions:       sessions,
		categories:     categories,
		users:          users,
		subscriptions:  subscriptions,
		completion:     completion,
		feedback:       feedback,
		queue:          queue,
		sessionTimeout: sessionTimeout,
		maxTokens:      maxTokens,
	}
}

// Start creates a new in-progress session with the opening question already
// in its history. Quota consumption and session creation commit atomically.
func (s *InterviewService) Start(ctx context.Context, userID uuid.UUID, req models.StartInterviewRequest) (*models.InterviewSession, error) {
	difficulty := models.Difficulty(req.Difficulty)
	if req.Difficulty == "" {
		difficulty = models.DifficultyIntermediate
	}
	if !difficulty.Valid() {
		return nil, &ValidationError{Fields: map[string]string{
			"difficulty": "must be one of: beginner, intermediate, advanced",
		}}
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"category_id": "must be a valid UUID"}}
	}

	category, err := s.categories.GetActiveByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Job category not found"}
		}
		return nil, fmt.Errorf("failed to load job category: %w", err)
	}

	// Lazy monthly reset so a user whose month rolled over is not blocked
	// until the scheduled sweep runs.
	if _, err := s.subscriptions.ResetMonthlyUsageIfDue(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to reset monthly usage: %w", err)
	}

	sub, err := s.subscriptions.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ForbiddenError{Message: "No subscription found for this account"}
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if !sub.IsActive() {
		return nil, &ForbiddenError{Message: "Your subscription is not active. Please renew to start interviews."}
	}
	if !sub.CanStartInterview() {
		return nil, &QuotaExceededError{Remaining: 0}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	opening, tokens := s.openingQuestion(ctx, user, category, difficulty)

	now := time.Now().UTC()
	modelName := s.completion.ModelName()
	session := &models.InterviewSession{
		UserID:     userID,
		CategoryID: &categoryID,
		Status:     models.StatusInProgress,
		Difficulty: difficulty,
		History: []models.Turn{
			{Role: models.RoleInterviewer, Content: opening, Timestamp: now},
		},
		StartedAt:       now,
		TotalTokensUsed: tokens,
		ModelUsed:       &modelName,
	}

	if err := s.sessions.CreateWithQuota(ctx, session); err != nil {
		if errors.Is(err, repository.ErrQuotaExceeded) {
			return nil, &QuotaExceededError{Remaining: 0}
		}
		return nil, fmt.Errorf("failed to create interview session: %w", err)
	}

	session.CategoryName = &category.Name
	return session, nil
}

// openingQuestion asks the model for a personalized opener and falls back to
// a canned one when the model is unavailable. Starting an interview never
// fails on a completion error.
func (s *InterviewService) openingQuestion(ctx context.Context, user *models.User, category *models.JobCategory, difficulty models.Difficulty) (string, int) {
	result, err := s.completion.Complete(ctx, CompletionRequest{
		System:     prompts.InterviewerSystem(category.Name, difficulty),
		UserPrompt: prompts.OpeningQuestion(prompts.CandidateContext(user)),
		MaxTokens:  s.maxTokens,
	})
	if err != nil {
		log.Printf("Opening question generation failed, using fallback: %v", err)
		return prompts.FallbackOpeningQuestion(category.Name), 0
	}
	return result.Content, result.TokensUsed
}

// Message processes one candidate answer: it appends the answer, asks the
// model for the next question, and reports progress and time budget.
func (s *InterviewService) Message(ctx context.Context, userID, sessionID uuid.UUID, content string) (*models.InterviewMessageResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ValidationError{Fields: map[string]string{"content": "must not be empty"}}
	}
	if len(content) > maxMessageLength {
		return nil, &ValidationError{Fields: map[string]string{
			"content": fmt.Sprintf("must be at most %d characters", maxMessageLength),
		}}
	}

	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return nil, &InvalidStateError{Message: "This interview session has already ended"}
	}

	now := time.Now().UTC()

	// Inactivity timeout: the session is gone before this message counts.
	if now.Sub(session.LastTurnAt()) > s.sessionTimeout {
		if _, err := s.sessions.Abandon(ctx, sessionID, now); err != nil {
			log.Printf("Failed to abandon expired session %s: %v", sessionID, err)
		}
		return nil, &TimeoutError{Message: "Interview session expired due to inactivity"}
	}

	maxQuestions := session.Difficulty.MaxQuestions()
	asked := session.InterviewerTurns()
	userTurn := models.Turn{Role: models.RoleUser, Content: content, Timestamp: now}

	// Question budget spent: record the final answer, complete the session
	// and hand off to feedback. No model call is made.
	if asked >= maxQuestions {
		return s.finishAfterFinalAnswer(ctx, session, userTurn, now)
	}

	isFinal := asked >= maxQuestions-1

	result, err := s.completion.Complete(ctx, CompletionRequest{
		System:     prompts.InterviewerSystem(s.categoryName(session), session.Difficulty),
		History:    append(session.History, userTurn),
		UserPrompt: prompts.FollowUpQuestion(asked, isFinal),
		MaxTokens:  s.maxTokens,
	})
	if err != nil {
		return nil, &CompletionError{Err: err}
	}

	if ok, err := s.sessions.AppendTurn(ctx, sessionID, userTurn, 0); err != nil {
		return nil, fmt.Errorf("failed to record answer: %w", err)
	} else if !ok {
		return nil, &InvalidStateError{Message: "This interview session has already ended"}
	}

	interviewerTurn := models.Turn{Role: models.RoleInterviewer, Content: result.Content, Timestamp: time.Now().UTC()}
	if _, err := s.sessions.AppendTurn(ctx, sessionID, interviewerTurn, result.TokensUsed); err != nil {
		return nil, fmt.Errorf("failed to record question: %w", err)
	}

	resp := &models.InterviewMessageResponse{
		Message:       result.Content,
		IsFinal:       isFinal,
		TokensUsed:    result.TokensUsed,
		SessionStatus: models.StatusInProgress,
		Progress:      progress(asked+1, maxQuestions),
	}
	s.attachTimeBudget(resp, session.StartedAt, now)
	return resp, nil
}

// finishAfterFinalAnswer handles the message arriving after the last
// question was already asked and answered up to the budget.
func (s *InterviewService) finishAfterFinalAnswer(ctx context.Context, session *models.InterviewSession, userTurn models.Turn, now time.Time) (*models.InterviewMessageResponse, error) {
	if ok, err := s.sessions.AppendTurn(ctx, session.ID, userTurn, 0); err != nil {
		return nil, fmt.Errorf("failed to record answer: %w", err)
	} else if !ok {
		return nil, &InvalidStateError{Message: "This interview session has already ended"}
	}

	duration := int(now.Sub(session.StartedAt).Seconds())
	if ok, err := s.sessions.Complete(ctx, session.ID, now, duration); err != nil {
		return nil, fmt.Errorf("failed to complete session: %w", err)
	} else if !ok {
		return nil, &InvalidStateError{Message: "This interview session has already ended"}
	}

	feedbackGenerated := false
	if _, err := s.feedback.GenerateForSession(ctx, session.ID); err != nil {
		// The session is already complete; a feedback failure only
		// shows up in the flag.
		log.Printf("Feedback generation failed for session %s: %v", session.ID, err)
	} else {
		feedbackGenerated = true
	}

	maxQuestions := session.Difficulty.MaxQuestions()
	return &models.InterviewMessageResponse{
		Message:       completionMessage,
		IsFinal:       true,
		TokensUsed:    0,
		SessionStatus: models.StatusCompleted,
		Progress: models.InterviewProgress{
			QuestionsAsked: maxQuestions,
			TotalQuestions: maxQuestions,
			Percentage:     100,
		},
		Completion: &models.EndInterviewResult{
			Message:           "Interview completed",
			SessionID:         session.ID,
			DurationSeconds:   duration,
			FeedbackGenerated: feedbackGenerated,
		},
	}, nil
}

// End terminates an in-progress session on the candidate's request and
// optionally generates feedback, inline or through the worker queue.
func (s *InterviewService) End(ctx context.Context, userID, sessionID uuid.UUID, req models.EndInterviewRequest) (*models.EndInterviewResult, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return nil, &InvalidStateError{Message: "This interview session has already ended"}
	}

	now := time.Now().UTC()
	duration := int(now.Sub(session.StartedAt).Seconds())
	if ok, err := s.sessions.Complete(ctx, sessionID, now, duration); err != nil {
		return nil, fmt.Errorf("failed to complete session: %w", err)
	} else if !ok {
		return nil, &InvalidStateError{Message: "This interview session has already ended"}
	}

	if req.Reason != nil && *req.Reason != "" {
		log.Printf("Session %s ended by user: %s", sessionID, *req.Reason)
	}

	result := &models.EndInterviewResult{
		Message:         "Interview session ended successfully",
		SessionID:       sessionID,
		DurationSeconds: duration,
	}

	generate := req.GenerateFeedback == nil || *req.GenerateFeedback
	if !generate {
		return result, nil
	}

	if req.FeedbackInBackground {
		s.enqueueFeedback(ctx, session)
		return result, nil
	}

	if _, err := s.feedback.GenerateForSession(ctx, sessionID); err != nil {
		// Ending the interview succeeded; feedback failure is reported
		// through the flag, not an error.
		log.Printf("Inline feedback generation failed for session %s: %v", sessionID, err)
		return result, nil
	}
	result.FeedbackGenerated = true
	return result, nil
}

func (s *InterviewService) Get(ctx context.Context, userID, sessionID uuid.UUID) (*models.InterviewSession, error) {
	return s.ownedSession(ctx, userID, sessionID)
}

// List returns the user's interview history, newest first.
func (s *InterviewService) List(ctx context.Context, userID uuid.UUID, statusFilter string, page, size int) (*models.PaginatedResponse, error) {
	var status *models.SessionStatus
	if statusFilter != "" {
		st := models.SessionStatus(statusFilter)
		if st != models.StatusInProgress && !st.IsTerminal() {
			return nil, &ValidationError{Fields: map[string]string{
				"status": "must be one of: in_progress, completed, abandoned",
			}}
		}
		status = &st
	}

	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	items, total, err := s.sessions.ListByUser(ctx, userID, status, size, (page-1)*size)
	if err != nil {
		return nil, fmt.Errorf("failed to list interview sessions: %w", err)
	}

	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	return &models.PaginatedResponse{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
		Pages: pages,
	}, nil
}

func (s *InterviewService) ownedSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.InterviewSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Interview session not found"}
		}
		return nil, fmt.Errorf("failed to load interview session: %w", err)
	}
	if session.UserID != userID {
		return nil, &ForbiddenError{Message: "You do not have access to this interview session"}
	}
	return session, nil
}

func (s *InterviewService) enqueueFeedback(ctx context.Context, session *models.InterviewSession) {
	job := models.FeedbackJob{SessionID: session.ID, UserID: session.UserID}
	if err := s.queue.EnqueueFeedback(ctx, job); err != nil {
		log.Printf("Failed to enqueue feedback job for session %s: %v", session.ID, err)
	}
}

func (s *InterviewService) categoryName(session *models.InterviewSession) string {
	if session.CategoryName != nil {
		return *session.CategoryName
	}
	return "this role"
}

// attachTimeBudget fills time_remaining_minutes and the low-time warning.
func (s *InterviewService) attachTimeBudget(resp *models.InterviewMessageResponse, startedAt, now time.Time) {
	remaining := s.sessionTimeout - now.Sub(startedAt)
	minutes := int(remaining.Minutes())
	if minutes < 0 {
		minutes = 0
	}
	resp.TimeRemainingMinutes = &minutes
	if minutes < timeWarningThresholdMinutes {
		warning := fmt.Sprintf("Only %d minutes remaining in this session", minutes)
		resp.TimeWarning = &warning
	}
}

func progress(asked, total int) models.InterviewProgress {
	pct := asked * 100 / total
	if pct > 100 {
		pct = 100
	}
	return models.InterviewProgress{
		QuestionsAsked: asked,
		TotalQuestions: total,
		Percentage:     pct,
	}
}
