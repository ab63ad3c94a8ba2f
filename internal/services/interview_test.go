package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"jobprep-backend/internal/models"
	"jobprep-backend/internal/repository"
)

// ──── Fakes ────

type fakeSessionStore struct {
	sessions map[uuid.UUID]*models.InterviewSession
	quotaErr error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[uuid.UUID]*models.InterviewSession)}
}

func (f *fakeSessionStore) CreateWithQuota(_ context.Context, s *models.InterviewSession) error {
	if f.quotaErr != nil {
		return f.quotaErr
	}
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	copied := *s
	f.sessions[s.ID] = &copied
	return nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id uuid.UUID) (*models.InterviewSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *s
	copied.History = append([]models.Turn(nil), s.History...)
	return &copied, nil
}

func (f *fakeSessionStore) AppendTurn(_ context.Context, id uuid.UUID, turn models.Turn, tokens int) (bool, error) {
	s, ok := f.sessions[id]
	if !ok || s.Status != models.StatusInProgress {
		return false, nil
	}
	s.History = append(s.History, turn)
	s.TotalTokensUsed += tokens
	return true, nil
}

func (f *fakeSessionStore) Complete(_ context.Context, id uuid.UUID, completedAt time.Time, durationSeconds int) (bool, error) {
	s, ok := f.sessions[id]
	if !ok || s.Status != models.StatusInProgress {
		return false, nil
	}
	s.Status = models.StatusCompleted
	s.CompletedAt = &completedAt
	s.DurationSeconds = &durationSeconds
	return true, nil
}

func (f *fakeSessionStore) Abandon(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s, ok := f.sessions[id]
	if !ok || s.Status != models.StatusInProgress {
		return false, nil
	}
	s.Status = models.StatusAbandoned
	s.CompletedAt = &at
	return true, nil
}

func (f *fakeSessionStore) ListByUser(_ context.Context, userID uuid.UUID, status *models.SessionStatus, limit, offset int) ([]models.InterviewHistoryItem, int, error) {
	var items []models.InterviewHistoryItem
	for _, s := range f.sessions {
		if s.UserID != userID {
			continue
		}
		if status != nil && s.Status != *status {
			continue
		}
		items = append(items, models.InterviewHistoryItem{ID: s.ID, Status: s.Status, Difficulty: s.Difficulty})
	}
	total := len(items)
	if offset > len(items) {
		items = nil
	} else if offset+limit < len(items) {
		items = items[offset : offset+limit]
	} else {
		items = items[offset:]
	}
	return items, total, nil
}

type fakeCategoryStore struct {
	categories map[uuid.UUID]*models.JobCategory
}

func (f *fakeCategoryStore) GetActiveByID(_ context.Context, id uuid.UUID) (*models.JobCategory, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

type fakeProfileStore struct {
	user *models.User
}

func (f *fakeProfileStore) GetByID(context.Context, uuid.UUID) (*models.User, error) {
	return f.user, nil
}

type fakeSubscriptionStore struct {
	sub *models.Subscription
	err error
}

func (f *fakeSubscriptionStore) GetByUserID(context.Context, uuid.UUID) (*models.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

func (f *fakeSubscriptionStore) ResetMonthlyUsageIfDue(context.Context, uuid.UUID) (bool, error) {
	return false, nil
}

type fakeCompletion struct {
	result   *CompletionResult
	err      error
	requests []CompletionRequest
}

func (f *fakeCompletion) Complete(_ context.Context, req CompletionRequest) (*CompletionResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeCompletion) ModelName() string { return "test-model" }

type fakeFeedbackGen struct {
	feedback *models.InterviewFeedback
	err      error
	calls    int
}

func (f *fakeFeedbackGen) GenerateForSession(context.Context, uuid.UUID) (*models.InterviewFeedback, error) {
	f.calls++
	return f.feedback, f.err
}

type fakeQueue struct {
	jobs []models.FeedbackJob
}

func (f *fakeQueue) EnqueueFeedback(_ context.Context, job models.FeedbackJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

// ──── Fixture ────

type interviewFixture struct {
	svc        *InterviewService
	sessions   *fakeSessionStore
	subs       *fakeSubscriptionStore
	completion *fakeCompletion
	feedback   *fakeFeedbackGen
	queue      *fakeQueue
	userID     uuid.UUID
	categoryID uuid.UUID
}

func newInterviewFixture() *interviewFixture {
	userID := uuid.New()
	categoryID := uuid.New()
	maxInterviews := 5

	sessions := newFakeSessionStore()
	subs := &fakeSubscriptionStore{sub: &models.Subscription{
		UserID:                userID,
		Plan:                  models.PlanFree,
		Status:                models.SubscriptionTrial,
		MaxInterviewsPerMonth: &maxInterviews,
	}}
	completion := &fakeCompletion{result: &CompletionResult{Content: "Tell me about yourself.", TokensUsed: 42, Model: "test-model"}}
	feedback := &fakeFeedbackGen{feedback: &models.InterviewFeedback{OverallScore: 80}}
	queue := &fakeQueue{}

	svc := NewInterviewService(
		sessions,
		&fakeCategoryStore{categories: map[uuid.UUID]*models.JobCategory{
			categoryID: {ID: categoryID, Name: "Software Engineer", IsActive: true},
		}},
		&fakeProfileStore{user: &models.User{ID: userID, FullName: "Test User"}},
		subs,
		completion,
		feedback,
		queue,
		30*time.Minute,
		1000,
	)

	return &interviewFixture{
		svc:        svc,
		sessions:   sessions,
		subs:       subs,
		completion: completion,
		feedback:   feedback,
		queue:      queue,
		userID:     userID,
		categoryID: categoryID,
	}
}

// seedSession installs an in-progress session with the given interviewer
// turn count directly into the store.
func (fx *interviewFixture) seedSession(difficulty models.Difficulty, interviewerTurns int, startedAt time.Time) uuid.UUID {
	id := uuid.New()
	name := "Software Engineer"
	history := make([]models.Turn, 0, interviewerTurns*2)
	ts := startedAt
	for i := 0; i < interviewerTurns; i++ {
		history = append(history, models.Turn{Role: models.RoleInterviewer, Content: "Question", Timestamp: ts})
		if i < interviewerTurns-1 {
			ts = ts.Add(time.Minute)
			history = append(history, models.Turn{Role: models.RoleUser, Content: "Answer", Timestamp: ts})
		}
	}
	fx.sessions.sessions[id] = &models.InterviewSession{
		ID:           id,
		UserID:       fx.userID,
		CategoryID:   &fx.categoryID,
		CategoryName: &name,
		Status:       models.StatusInProgress,
		Difficulty:   difficulty,
		History:      history,
		StartedAt:    startedAt,
	}
	return id
}

// ──── Start ────

func TestStartInterview(t *testing.T) {
	fx := newInterviewFixture()

	session, err := fx.svc.Start(context.Background(), fx.userID, models.StartInterviewRequest{
		CategoryID: fx.categoryID.String(),
		Difficulty: "beginner",
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if session.Status != models.StatusInProgress {
		t.Errorf("status = %s, want in_progress", session.Status)
	}
	if len(session.History) != 1 || session.History[0].Role != models.RoleInterviewer {
		t.Fatalf("expected one interviewer turn, got %+v", session.History)
	}
	if session.History[0].Content != "Tell me about yourself." {
		t.Errorf("opening question = %q", session.History[0].Content)
	}
	if session.TotalTokensUsed != 42 {
		t.Errorf("tokens = %d, want 42", session.TotalTokensUsed)
	}
	if session.CategoryName == nil || *session.CategoryName != "Software Engineer" {
		t.Errorf("category name = %v", session.CategoryName)
	}
}

func TestStartInterviewDefaultsToIntermediate(t *testing.T) {
	fx := newInterviewFixture()

	session, err := fx.svc.Start(context.Background(), fx.userID, models.StartInterviewRequest{
		CategoryID: fx.categoryID.String(),
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if session.Difficulty != models.DifficultyIntermediate {
		t.Errorf("difficulty = %s, want intermediate", session.Difficulty)
	}
}

func TestStartInterviewFallbackOpening(t *testing.T) {
	fx := newInterviewFixture()
	fx.completion.err = errors.New("upstream down")

	session, err := fx.svc.Start(context.Background(), fx.userID, models.StartInterviewRequest{
		CategoryID: fx.categoryID.String(),
		Difficulty: "intermediate",
	})
	if err != nil {
		t.Fatalf("Start() should not fail on completion error, got %v", err)
	}
	if !strings.Contains(session.History[0].Content, "Software Engineer position") {
		t.Errorf("expected fallback opening, got %q", session.History[0].Content)
	}
	if session.TotalTokensUsed != 0 {
		t.Errorf("fallback opening should cost 0 tokens, got %d", session.TotalTokensUsed)
	}
}

func TestStartInterviewRejections(t *testing.T) {
	t.Run("invalid difficulty", func(t *testing.T) {
		fx := newInterviewFixture()
		_, err := fx.svc.Start(context.Background(), fx.userID, models.StartInterviewRequest{
			CategoryID: fx.categoryID.String(),
			Difficulty: "expert",
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("want ValidationError, got %v", err)
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		fx := newInterviewFixture()
		_, err := fx.svc.Start(context.Background(), fx.userID, models.StartInterviewRequest{
			CategoryID: uuid.NewString(),
		})
		var nfErr *NotFoundError
		if !errors.As(err, &nfErr) {
			t.Errorf("want NotFoundError, got %v", err)
		}
	})

	t.Run("quota exhausted", func(t *testing.T) {
		fx := newInterviewFixture()
		fx.subs.sub.InterviewsUsedThisMonth = *fx.subs.sub.MaxInterviewsPerMonth
		_, err := fx.svc.Start(context.Background(), fx.userID, models.StartInterviewRequest{
			CategoryID: fx.categoryID.String(),
		})
		var qErr *QuotaExceededError
		if !errors.As(err, &qErr) {
			t.Errorf("want QuotaExceededError, got %v", err)
		}
	})

	t.Run("quota race surfaces through guarded insert", func(t *testing.T) {
		fx := newInterviewFixture()
		fx.sessions.quotaErr = repository.ErrQuotaExceeded
		_, err := fx.svc.Start(context.Background(), fx.userID, models.StartInterviewRequest{
			CategoryID: fx.categoryID.String(),
		})
		var qErr *QuotaExceededError
		if !errors.As(err, &qErr) {
			t.Errorf("want QuotaExceededError, got %v", err)
		}
	})

	t.Run("inactive subscription", func(t *testing.T) {
		fx := newInterviewFixture()
		fx.subs.sub.Status = models.SubscriptionExpired
		_, err := fx.svc.Start(context.Background(), fx.userID, models.StartInterviewRequest{
			CategoryID: fx.categoryID.String(),
		})
		var fErr *ForbiddenError
		if !errors.As(err, &fErr) {
			t.Errorf("want ForbiddenError, got %v", err)
		}
	})
}

// ──── Message ────

func TestMessageAdvancesInterview(t *testing.T) {
	fx := newInterviewFixture()
	sessionID := fx.seedSession(models.DifficultyBeginner, 1, time.Now().Add(-2*time.Minute))
	fx.completion.result = &CompletionResult{Content: "What drew you to this role?", TokensUsed: 30}

	resp, err := fx.svc.Message(context.Background(), fx.userID, sessionID, "I build APIs in Go.")
	if err != nil {
		t.Fatalf("Message() error = %v", err)
	}

	if resp.IsFinal {
		t.Error("second of five questions should not be final")
	}
	if resp.Message != "What drew you to this role?" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.TokensUsed != 30 {
		t.Errorf("tokens = %d, want 30", resp.TokensUsed)
	}
	if resp.Progress.QuestionsAsked != 2 || resp.Progress.TotalQuestions != 5 || resp.Progress.Percentage != 40 {
		t.Errorf("progress = %+v", resp.Progress)
	}
	if resp.SessionStatus != models.StatusInProgress {
		t.Errorf("status = %s", resp.SessionStatus)
	}

	stored := fx.sessions.sessions[sessionID]
	if len(stored.History) != 3 {
		t.Fatalf("history length = %d, want 3", len(stored.History))
	}
	if stored.History[1].Role != models.RoleUser || stored.History[2].Role != models.RoleInterviewer {
		t.Errorf("history roles wrong: %+v", stored.History)
	}
}

func TestMessageFinalQuestionFlag(t *testing.T) {
	fx := newInterviewFixture()
	// 4 of 5 beginner questions asked; the next one is the closer.
	sessionID := fx.seedSession(models.DifficultyBeginner, 4, time.Now().Add(-10*time.Minute))

	resp, err := fx.svc.Message(context.Background(), fx.userID, sessionID, "My final project answer.")
	if err != nil {
		t.Fatalf("Message() error = %v", err)
	}

	if !resp.IsFinal {
		t.Error("fifth of five questions should carry the final flag")
	}
	if resp.SessionStatus != models.StatusInProgress {
		t.Errorf("session should stay in progress for the final answer, got %s", resp.SessionStatus)
	}
	if resp.Progress.Percentage != 100 {
		t.Errorf("progress = %+v", resp.Progress)
	}

	lastReq := fx.completion.requests[len(fx.completion.requests)-1]
	if !strings.Contains(lastReq.UserPrompt, "final question") {
		t.Errorf("expected final-question prompt, got %q", lastReq.UserPrompt)
	}
}

func TestMessageAfterBudgetCompletesSession(t *testing.T) {
	fx := newInterviewFixture()
	sessionID := fx.seedSession(models.DifficultyBeginner, 5, time.Now().Add(-15*time.Minute))

	resp, err := fx.svc.Message(context.Background(), fx.userID, sessionID, "Thanks, that is everything.")
	if err != nil {
		t.Fatalf("Message() error = %v", err)
	}

	if len(fx.completion.requests) != 0 {
		t.Error("no model call expected once the budget is spent")
	}
	if !resp.IsFinal || resp.TokensUsed != 0 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.SessionStatus != models.StatusCompleted {
		t.Errorf("status = %s, want completed", resp.SessionStatus)
	}
	if resp.Message != completionMessage {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.Progress.Percentage != 100 {
		t.Errorf("progress = %+v", resp.Progress)
	}
	if resp.Completion == nil {
		t.Fatal("completion data missing")
	}

	if fx.sessions.sessions[sessionID].Status != models.StatusCompleted {
		t.Error("session not completed in store")
	}
	if fx.feedback.calls != 1 {
		t.Errorf("generator calls = %d, want 1", fx.feedback.calls)
	}
	if !resp.Completion.FeedbackGenerated {
		t.Error("completion data should report feedback as generated")
	}
	if len(fx.queue.jobs) != 0 {
		t.Errorf("no queue job expected for the inline path, got %+v", fx.queue.jobs)
	}
}

func TestMessageAfterBudgetToleratesFeedbackFailure(t *testing.T) {
	fx := newInterviewFixture()
	sessionID := fx.seedSession(models.DifficultyBeginner, 5, time.Now().Add(-15*time.Minute))
	fx.feedback.err = errors.New("model unavailable")

	resp, err := fx.svc.Message(context.Background(), fx.userID, sessionID, "Thanks, that is everything.")
	if err != nil {
		t.Fatalf("Message() error = %v", err)
	}
	if resp.SessionStatus != models.StatusCompleted {
		t.Errorf("status = %s, want completed", resp.SessionStatus)
	}
	if resp.Completion == nil || resp.Completion.FeedbackGenerated {
		t.Errorf("failed feedback must not be reported as generated: %+v", resp.Completion)
	}
}

func TestMessageExpiredSessionIsAbandoned(t *testing.T) {
	fx := newInterviewFixture()
	sessionID := fx.seedSession(models.DifficultyIntermediate, 2, time.Now().Add(-45*time.Minute))

	_, err := fx.svc.Message(context.Background(), fx.userID, sessionID, "Hello, are you still there?")
	var tErr *TimeoutError
	if !errors.As(err, &tErr) {
		t.Fatalf("want TimeoutError, got %v", err)
	}
	if fx.sessions.sessions[sessionID].Status != models.StatusAbandoned {
		t.Error("expired session should be abandoned")
	}
}

func TestMessageGuards(t *testing.T) {
	t.Run("terminal session", func(t *testing.T) {
		fx := newInterviewFixture()
		sessionID := fx.seedSession(models.DifficultyBeginner, 1, time.Now())
		fx.sessions.sessions[sessionID].Status = models.StatusCompleted

		_, err := fx.svc.Message(context.Background(), fx.userID, sessionID, "One more thing")
		var isErr *InvalidStateError
		if !errors.As(err, &isErr) {
			t.Errorf("want InvalidStateError, got %v", err)
		}
	})

	t.Run("empty content", func(t *testing.T) {
		fx := newInterviewFixture()
		sessionID := fx.seedSession(models.DifficultyBeginner, 1, time.Now())

		_, err := fx.svc.Message(context.Background(), fx.userID, sessionID, "   ")
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("want ValidationError, got %v", err)
		}
	})

	t.Run("other user's session", func(t *testing.T) {
		fx := newInterviewFixture()
		sessionID := fx.seedSession(models.DifficultyBeginner, 1, time.Now())

		_, err := fx.svc.Message(context.Background(), uuid.New(), sessionID, "Hi")
		var fErr *ForbiddenError
		if !errors.As(err, &fErr) {
			t.Errorf("want ForbiddenError, got %v", err)
		}
	})
}

func TestMessageCompletionFailureLeavesHistoryIntact(t *testing.T) {
	fx := newInterviewFixture()
	sessionID := fx.seedSession(models.DifficultyBeginner, 2, time.Now().Add(-5*time.Minute))
	fx.completion.err = errors.New("rate limited")

	_, err := fx.svc.Message(context.Background(), fx.userID, sessionID, "My answer")
	var cErr *CompletionError
	if !errors.As(err, &cErr) {
		t.Fatalf("want CompletionError, got %v", err)
	}

	// The answer is not persisted; retrying the message sees the same state.
	if got := len(fx.sessions.sessions[sessionID].History); got != 3 {
		t.Errorf("history length = %d, want 3", got)
	}
}

func TestMessageTimeWarning(t *testing.T) {
	fx := newInterviewFixture()
	startedAt := time.Now().Add(-26 * time.Minute)
	sessionID := fx.seedSession(models.DifficultyIntermediate, 2, startedAt)
	// Keep the last turn fresh so the session has not expired.
	s := fx.sessions.sessions[sessionID]
	s.History[len(s.History)-1].Timestamp = time.Now().Add(-time.Minute)

	resp, err := fx.svc.Message(context.Background(), fx.userID, sessionID, "Still here")
	if err != nil {
		t.Fatalf("Message() error = %v", err)
	}

	if resp.TimeRemainingMinutes == nil || *resp.TimeRemainingMinutes > 4 {
		t.Errorf("time remaining = %v, want <= 4", resp.TimeRemainingMinutes)
	}
	if resp.TimeWarning == nil || !strings.Contains(*resp.TimeWarning, "minutes remaining") {
		t.Errorf("time warning = %v", resp.TimeWarning)
	}
}

// ──── End ────

func TestEndInterview(t *testing.T) {
	t.Run("default generates feedback inline", func(t *testing.T) {
		fx := newInterviewFixture()
		sessionID := fx.seedSession(models.DifficultyBeginner, 3, time.Now().Add(-10*time.Minute))

		result, err := fx.svc.End(context.Background(), fx.userID, sessionID, models.EndInterviewRequest{})
		if err != nil {
			t.Fatalf("End() error = %v", err)
		}
		if !result.FeedbackGenerated {
			t.Error("feedback should have been generated")
		}
		if fx.feedback.calls != 1 {
			t.Errorf("generator calls = %d, want 1", fx.feedback.calls)
		}
		if result.DurationSeconds <= 0 {
			t.Errorf("duration = %d", result.DurationSeconds)
		}
		if fx.sessions.sessions[sessionID].Status != models.StatusCompleted {
			t.Error("session not completed")
		}
	})

	t.Run("feedback disabled", func(t *testing.T) {
		fx := newInterviewFixture()
		sessionID := fx.seedSession(models.DifficultyBeginner, 3, time.Now().Add(-10*time.Minute))
		generate := false

		result, err := fx.svc.End(context.Background(), fx.userID, sessionID, models.EndInterviewRequest{GenerateFeedback: &generate})
		if err != nil {
			t.Fatalf("End() error = %v", err)
		}
		if result.FeedbackGenerated || fx.feedback.calls != 0 {
			t.Errorf("feedback should be skipped, calls = %d", fx.feedback.calls)
		}
	})

	t.Run("background feedback", func(t *testing.T) {
		fx := newInterviewFixture()
		sessionID := fx.seedSession(models.DifficultyBeginner, 3, time.Now().Add(-10*time.Minute))

		result, err := fx.svc.End(context.Background(), fx.userID, sessionID, models.EndInterviewRequest{FeedbackInBackground: true})
		if err != nil {
			t.Fatalf("End() error = %v", err)
		}
		if result.FeedbackGenerated {
			t.Error("background mode reports feedback as not yet generated")
		}
		if len(fx.queue.jobs) != 1 {
			t.Errorf("jobs enqueued = %d, want 1", len(fx.queue.jobs))
		}
	})

	t.Run("feedback failure does not fail the end call", func(t *testing.T) {
		fx := newInterviewFixture()
		sessionID := fx.seedSession(models.DifficultyBeginner, 3, time.Now().Add(-10*time.Minute))
		fx.feedback.err = errors.New("model unavailable")

		result, err := fx.svc.End(context.Background(), fx.userID, sessionID, models.EndInterviewRequest{})
		if err != nil {
			t.Fatalf("End() error = %v", err)
		}
		if result.FeedbackGenerated {
			t.Error("failed feedback must not be reported as generated")
		}
	})

	t.Run("already ended", func(t *testing.T) {
		fx := newInterviewFixture()
		sessionID := fx.seedSession(models.DifficultyBeginner, 3, time.Now())
		fx.sessions.sessions[sessionID].Status = models.StatusAbandoned

		_, err := fx.svc.End(context.Background(), fx.userID, sessionID, models.EndInterviewRequest{})
		var isErr *InvalidStateError
		if !errors.As(err, &isErr) {
			t.Errorf("want InvalidStateError, got %v", err)
		}
	})
}

// ──── List ────

func TestListInterviews(t *testing.T) {
	fx := newInterviewFixture()
	for i := 0; i < 3; i++ {
		fx.seedSession(models.DifficultyBeginner, 1, time.Now())
	}

	resp, err := fx.svc.List(context.Background(), fx.userID, "", 1, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if resp.Total != 3 || resp.Pages != 2 {
		t.Errorf("total = %d pages = %d, want 3/2", resp.Total, resp.Pages)
	}

	t.Run("invalid status filter", func(t *testing.T) {
		_, err := fx.svc.List(context.Background(), fx.userID, "paused", 1, 20)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("want ValidationError, got %v", err)
		}
	})
}
