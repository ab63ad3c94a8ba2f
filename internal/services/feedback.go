package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"jobprep-backend/internal/models"
	"jobprep-backend/internal/prompts"
	"jobprep-backend/internal/repository"
)

// fillerWordPattern matches the tracked filler vocabulary on word
// boundaries. Multi-word phrases come first so they win over their parts.
var fillerWordPattern = regexp.MustCompile(
	`(?i)\b(you know|sort of|kind of|i mean|um|uh|like|basically|actually|literally|well|so|right|okay|yeah)\b`)

// jsonObjectPattern pulls the outermost JSON object out of a response that
// wrapped it in prose or markdown fences.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Free-text extraction patterns for analyses that came back structured but
// not as JSON ("Overall: 85/100" lines, bulleted strength lists).
var (
	overallScorePattern    = regexp.MustCompile(`(?i)overall.*?(\d+)`)
	relevanceScorePattern  = regexp.MustCompile(`(?i)relevance.*?(\d+)`)
	confidenceScorePattern = regexp.MustCompile(`(?i)confidence.*?(\d+)`)
	positivityScorePattern = regexp.MustCompile(`(?i)positivity.*?(\d+)`)
	strengthsListPattern   = regexp.MustCompile(`(?i)strengths?:?\s*\n((?:[-•*]\s*.+\n?)+)`)
	weaknessesListPattern  = regexp.MustCompile(`(?i)weaknesses?:?\s*\n((?:[-•*]\s*.+\n?)+)`)
	tipsListPattern        = regexp.MustCompile(`(?i)(?:actionable tips|tips|recommendations):?\s*\n((?:[-•*]\s*.+\n?)+)`)
	summaryPattern         = regexp.MustCompile(`(?is)summary:?\s*(.+?)(?:\n\n|\z)`)
)

type feedbackStore interface {
	Create(ctx context.Context, f *models.InterviewFeedback) (bool, error)
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*models.InterviewFeedback, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]repository.UserFeedbackRow, error)
}

type feedbackSessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.InterviewSession, error)
	AddTokens(ctx context.Context, id uuid.UUID, tokens int) error
}

// FeedbackService scores finished interviews: it sends the transcript to the
// completion model for the qualitative analysis and computes the
// deterministic delivery metrics locally.
type FeedbackService struct {
	sessions   feedbackSessionStore
	store      feedbackStore
	completion CompletionClient
	maxTokens  int
}

func NewFeedbackService(sessions feedbackSessionStore, store feedbackStore, completion CompletionClient, maxTokens int) *FeedbackService {
	return &FeedbackService{
		sessions:   sessions,
		store:      store,
		completion: completion,
		maxTokens:  maxTokens,
	}
}

// GenerateForSession produces and persists feedback for a session. It is
// idempotent: when feedback already exists it is returned unchanged, so
// worker retries and inline/background races are safe.
func (s *FeedbackService) GenerateForSession(ctx context.Context, sessionID uuid.UUID) (*models.InterviewFeedback, error) {
	if existing, err := s.store.GetBySessionID(ctx, sessionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing feedback: %w", err)
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Interview session not found"}
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	categoryName := "this role"
	if session.CategoryName != nil {
		categoryName = *session.CategoryName
	}

	result, err := s.completion.Complete(ctx, CompletionRequest{
		UserPrompt: prompts.FeedbackAnalysis(session.History, categoryName, session.Difficulty),
		MaxTokens:  s.maxTokens,
	})
	if err != nil {
		return nil, &CompletionError{Err: err}
	}

	feedback := parseFeedback(result.Content)
	feedback.SessionID = sessionID
	feedback.FillerWordsCount = CountFillerWords(session.History)
	feedback.AvgResponseLength = averageResponseLength(session.History)
	feedback.ResponseTimeAvg = averageResponseTime(session.History)

	created, err := s.store.Create(ctx, feedback)
	if err != nil {
		return nil, fmt.Errorf("failed to store feedback: %w", err)
	}
	if !created {
		// Lost the insert race; the winner's row is authoritative.
		return s.store.GetBySessionID(ctx, sessionID)
	}

	if err := s.sessions.AddTokens(ctx, sessionID, result.TokensUsed); err != nil {
		log.Printf("Failed to record feedback token usage for session %s: %v", sessionID, err)
	}
	return feedback, nil
}

// GetForSession returns stored feedback, scoped to the requesting user.
func (s *FeedbackService) GetForSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.InterviewFeedback, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Interview session not found"}
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID != userID {
		return nil, &ForbiddenError{Message: "You do not have access to this interview session"}
	}

	feedback, err := s.store.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &FeedbackPendingError{Message: "Feedback is not available for this session yet"}
		}
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}
	return feedback, nil
}

// Summary aggregates a user's feedback across all scored interviews.
func (s *FeedbackService) Summary(ctx context.Context, userID uuid.UUID) (*models.FeedbackSummary, error) {
	rows, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback history: %w", err)
	}

	if len(rows) == 0 {
		return &models.FeedbackSummary{
			TotalInterviews: 0,
			Message:         "Complete your first interview to see feedback insights",
		}, nil
	}

	avg := &models.AverageScores{}
	for _, row := range rows {
		avg.Overall += row.OverallScore
		avg.Relevance += row.RelevanceScore
		avg.Confidence += row.ConfidenceScore
		avg.Positivity += row.PositivityScore
	}
	n := float64(len(rows))
	avg.Overall /= n
	avg.Relevance /= n
	avg.Confidence /= n
	avg.Positivity /= n

	latest := rows[len(rows)-1].OverallScore
	summary := &models.FeedbackSummary{
		TotalInterviews: len(rows),
		AverageScores:   avg,
		LatestScore:     &latest,
		CommonStrengths: topRecurring(rows, func(r repository.UserFeedbackRow) []string { return r.Strengths }),
		CommonWeaknesses: topRecurring(rows, func(r repository.UserFeedbackRow) []string { return r.Weaknesses }),
	}

	// Improvement is the overall-score delta between the first and the most
	// recent interview, in points.
	if len(rows) >= 2 {
		rate := latest - rows[0].OverallScore
		summary.ImprovementRate = &rate
	}
	return summary, nil
}

// CountFillerWords counts filler occurrences across the candidate's answers.
// Matching is case-insensitive on whole words.
func CountFillerWords(history []models.Turn) int {
	count := 0
	for _, turn := range history {
		if turn.Role != models.RoleUser {
			continue
		}
		count += len(fillerWordPattern.FindAllString(turn.Content, -1))
	}
	return count
}

// averageResponseLength is the mean answer length in words, truncated.
// Returns nil when the candidate never answered.
func averageResponseLength(history []models.Turn) *int {
	totalWords, responses := 0, 0
	for _, turn := range history {
		if turn.Role != models.RoleUser {
			continue
		}
		totalWords += len(strings.Fields(turn.Content))
		responses++
	}
	if responses == 0 {
		return nil
	}
	avg := totalWords / responses
	return &avg
}

// averageResponseTime is the mean seconds between a question and its answer,
// or nil when no question/answer pair has usable timestamps.
func averageResponseTime(history []models.Turn) *float64 {
	var total float64
	pairs := 0
	for i := 1; i < len(history); i++ {
		if history[i].Role != models.RoleUser || history[i-1].Role != models.RoleInterviewer {
			continue
		}
		delta := history[i].Timestamp.Sub(history[i-1].Timestamp)
		if delta <= 0 {
			continue
		}
		total += delta.Seconds()
		pairs++
	}
	if pairs == 0 {
		return nil
	}
	avg := total / float64(pairs)
	return &avg
}

// rawFeedback mirrors the JSON schema the feedback prompt requests.
type rawFeedback struct {
	OverallScore    float64  `json:"overall_score"`
	RelevanceScore  float64  `json:"relevance_score"`
	ConfidenceScore float64  `json:"confidence_score"`
	PositivityScore float64  `json:"positivity_score"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Summary         string   `json:"summary"`
	ActionableTips  []string `json:"actionable_tips"`
}

// parseFeedback decodes the model's analysis. It tries the raw text as JSON,
// then a JSON object extracted from surrounding prose, then score/list
// extraction from structured free text, and finally falls back to neutral
// feedback so a malformed response never loses an interview.
func parseFeedback(content string) *models.InterviewFeedback {
	cleaned := stripCodeFences(content)

	var raw rawFeedback
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		match := jsonObjectPattern.FindString(cleaned)
		if match == "" || json.Unmarshal([]byte(match), &raw) != nil {
			extracted, ok := extractTextFeedback(cleaned)
			if !ok {
				log.Printf("Feedback response was not parseable, using neutral fallback")
				return neutralFeedback()
			}
			raw = *extracted
		}
	}

	f := &models.InterviewFeedback{
		OverallScore:    clampScore(raw.OverallScore),
		RelevanceScore:  clampScore(raw.RelevanceScore),
		ConfidenceScore: clampScore(raw.ConfidenceScore),
		PositivityScore: clampScore(raw.PositivityScore),
		Strengths:       raw.Strengths,
		Weaknesses:      raw.Weaknesses,
		Summary:         raw.Summary,
		ActionableTips:  raw.ActionableTips,
	}
	if len(f.Strengths) == 0 {
		f.Strengths = []string{"Completed the interview"}
	}
	if len(f.Weaknesses) == 0 {
		f.Weaknesses = []string{"No specific weaknesses identified"}
	}
	if f.Summary == "" {
		f.Summary = "Interview completed."
	}
	if len(f.ActionableTips) == 0 {
		f.ActionableTips = []string{"Continue practicing"}
	}
	return f
}

// extractTextFeedback pulls scores and bullet lists out of a structured
// free-text analysis. Reports false when no score is present at all, which
// is the signal to give up and go neutral.
func extractTextFeedback(content string) (*rawFeedback, bool) {
	raw := &rawFeedback{}
	found := false
	for _, sp := range []struct {
		re  *regexp.Regexp
		dst *float64
	}{
		{overallScorePattern, &raw.OverallScore},
		{relevanceScorePattern, &raw.RelevanceScore},
		{confidenceScorePattern, &raw.ConfidenceScore},
		{positivityScorePattern, &raw.PositivityScore},
	} {
		m := sp.re.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			*sp.dst = v
			found = true
		}
	}
	if !found {
		return nil, false
	}

	raw.Strengths = extractBulletList(strengthsListPattern, content)
	raw.Weaknesses = extractBulletList(weaknessesListPattern, content)
	raw.ActionableTips = extractBulletList(tipsListPattern, content)
	if m := summaryPattern.FindStringSubmatch(content); m != nil {
		raw.Summary = strings.TrimSpace(m[1])
	}
	return raw, true
}

func extractBulletList(re *regexp.Regexp, content string) []string {
	m := re.FindStringSubmatch(content)
	if m == nil {
		return nil
	}
	var items []string
	for _, line := range strings.Split(m[1], "\n") {
		item := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-•* "))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// neutralFeedback is the safe default for unparseable model output.
func neutralFeedback() *models.InterviewFeedback {
	return &models.InterviewFeedback{
		OverallScore:    70,
		RelevanceScore:  70,
		ConfidenceScore: 70,
		PositivityScore: 70,
		Strengths:       []string{"Completed the interview"},
		Weaknesses:      []string{"Feedback parsing error"},
		Summary:         "Interview completed. Detailed feedback unavailable.",
		ActionableTips:  []string{"Continue practicing"},
	}
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// topRecurring returns the up-to-three most frequent entries across rows.
func topRecurring(rows []repository.UserFeedbackRow, pick func(repository.UserFeedbackRow) []string) []string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, row := range rows {
		for _, entry := range pick(row) {
			key := strings.TrimSpace(entry)
			if key == "" {
				continue
			}
			if counts[key] == 0 {
				order = append(order, key)
			}
			counts[key]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > 3 {
		order = order[:3]
	}
	return order
}
