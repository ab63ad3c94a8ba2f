package models

import (
	"time"

	"github.com/google/uuid"
)

// InterviewFeedback is the scored evaluation of a completed session.
// At most one row exists per session; rows are immutable after creation.
type InterviewFeedback struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`

	// Scores in [0,100].
	OverallScore    float64 `json:"overall_score"`
	RelevanceScore  float64 `json:"relevance_score"`
	ConfidenceScore float64 `json:"confidence_score"`
	PositivityScore float64 `json:"positivity_score"`

	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	Summary        string   `json:"summary"`
	ActionableTips []string `json:"actionable_tips"`

	FillerWordsCount  int      `json:"filler_words_count"`
	AvgResponseLength *int     `json:"avg_response_length"` // words; nil when no user turns
	ResponseTimeAvg   *float64 `json:"response_time_avg"`   // seconds; nil unless measurable

	CreatedAt time.Time `json:"created_at"`
}

// FeedbackSummary aggregates a user's feedback across completed interviews.
type FeedbackSummary struct {
	TotalInterviews  int            `json:"total_interviews"`
	AverageScores    *AverageScores `json:"average_scores"`
	CommonStrengths  []string       `json:"common_strengths,omitempty"`
	CommonWeaknesses []string       `json:"common_weaknesses,omitempty"`
	ImprovementRate  *float64       `json:"improvement_rate,omitempty"`
	LatestScore      *float64       `json:"latest_score,omitempty"`
	Message          string         `json:"message,omitempty"`
}

type AverageScores struct {
	Overall    float64 `json:"overall"`
	Relevance  float64 `json:"relevance"`
	Confidence float64 `json:"confidence"`
	Positivity float64 `json:"positivity"`
}
