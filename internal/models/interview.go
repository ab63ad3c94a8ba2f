package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the interview session lifecycle state. in_progress is the
// only non-terminal state; completed and abandoned never transition further.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Difficulty controls tone guidance and the question budget of a session.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// MaxQuestions returns the fixed question budget for a difficulty level.
// Unknown values fall back to the intermediate budget.
func (d Difficulty) MaxQuestions() int {
	switch d {
	case DifficultyBeginner:
		return 5
	case DifficultyAdvanced:
		return 10
	default:
		return 7
	}
}

func (d Difficulty) Valid() bool {
	return d == DifficultyBeginner || d == DifficultyIntermediate || d == DifficultyAdvanced
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleUser        Role = "user"
)

// Turn is one message in the conversation history. History is append-only
// while the session is in progress and immutable afterward.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// InterviewSession is a single interview attempt by one user.
type InterviewSession struct {
	ID              uuid.UUID     `json:"id"`
	UserID          uuid.UUID     `json:"user_id"`
	CategoryID      *uuid.UUID    `json:"category_id"`
	CategoryName    *string       `json:"category_name,omitempty"`
	Status          SessionStatus `json:"status"`
	Difficulty      Difficulty    `json:"difficulty"`
	History         []Turn        `json:"conversation_history"`
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	DurationSeconds *int          `json:"duration_seconds,omitempty"`
	TotalTokensUsed int           `json:"total_tokens_used"`
	ModelUsed       *string       `json:"model_used,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// InterviewerTurns counts the questions asked so far.
func (s *InterviewSession) InterviewerTurns() int {
	n := 0
	for _, t := range s.History {
		if t.Role == RoleInterviewer {
			n++
		}
	}
	return n
}

// LastTurnAt returns the timestamp of the most recent turn, or the session
// start time for an empty history.
func (s *InterviewSession) LastTurnAt() time.Time {
	if len(s.History) == 0 {
		return s.StartedAt
	}
	return s.History[len(s.History)-1].Timestamp
}

type StartInterviewRequest struct {
	CategoryID string `json:"category_id"`
	Difficulty string `json:"difficulty"`
}

type InterviewMessageRequest struct {
	Content string `json:"content"`
}

// InterviewProgress reports how far through the question budget a session is.
type InterviewProgress struct {
	QuestionsAsked int `json:"questions_asked"`
	TotalQuestions int `json:"total_questions"`
	Percentage     int `json:"percentage"`
}

// InterviewMessageResponse is returned for each processed user message.
type InterviewMessageResponse struct {
	Message              string             `json:"message"`
	IsFinal              bool               `json:"is_final"`
	TokensUsed           int                `json:"tokens_used"`
	SessionStatus        SessionStatus      `json:"session_status"`
	Progress             InterviewProgress  `json:"progress"`
	TimeRemainingMinutes *int                `json:"time_remaining_minutes,omitempty"`
	TimeWarning          *string             `json:"time_warning,omitempty"`
	Completion           *EndInterviewResult `json:"completion_data,omitempty"`
}

type EndInterviewRequest struct {
	Reason               *string `json:"reason,omitempty"`
	GenerateFeedback     *bool   `json:"generate_feedback,omitempty"`
	FeedbackInBackground bool    `json:"feedback_in_background,omitempty"`
}

type EndInterviewResult struct {
	Message           string    `json:"message"`
	SessionID         uuid.UUID `json:"session_id"`
	DurationSeconds   int       `json:"duration_seconds"`
	FeedbackGenerated bool      `json:"feedback_generated"`
}

// InterviewHistoryItem is the condensed listing row for interview history.
type InterviewHistoryItem struct {
	ID              uuid.UUID     `json:"id"`
	CategoryName    *string       `json:"job_category_name"`
	Difficulty      Difficulty    `json:"difficulty"`
	Status          SessionStatus `json:"status"`
	OverallScore    *float64      `json:"overall_score"`
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     *time.Time    `json:"completed_at"`
	DurationSeconds *int          `json:"duration_seconds"`
}
