package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobprep-backend/internal/models"
)

type FeedbackRepo struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepo(pool *pgxpool.Pool) *FeedbackRepo {
	return &FeedbackRepo{pool: pool}
}

// Create inserts feedback for a session. The unique index on session_id makes
// duplicate generation attempts a no-op; the bool reports whether this call
// won the insert.
func (r *FeedbackRepo) Create(ctx context.Context, f *models.InterviewFeedback) (bool, error) {
	strengths, err := json.Marshal(f.Strengths)
	if err != nil {
		return false, fmt.Errorf("failed to encode strengths: %w", err)
	}
	weaknesses, err := json.Marshal(f.Weaknesses)
	if err != nil {
		return false, fmt.Errorf("failed to encode weaknesses: %w", err)
	}
	tips, err := json.Marshal(f.ActionableTips)
	if err != nil {
		return false, fmt.Errorf("failed to encode actionable tips: %w", err)
	}

	f.ID = uuid.New()
	err = r.pool.QueryRow(ctx, `
		INSERT INTO interview_feedback
			(id, session_id, overall_score, relevance_score, confidence_score,
			 positivity_score, strengths, weaknesses, summary, actionable_tips,
			 filler_words_count, avg_response_length, response_time_avg)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (session_id) DO NOTHING
		RETURNING created_at
	`, f.ID, f.SessionID, f.OverallScore, f.RelevanceScore, f.ConfidenceScore,
		f.PositivityScore, strengths, weaknesses, f.Summary, tips,
		f.FillerWordsCount, f.AvgResponseLength, f.ResponseTimeAvg,
	).Scan(&f.CreatedAt)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *FeedbackRepo) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*models.InterviewFeedback, error) {
	f := &models.InterviewFeedback{}
	var strengths, weaknesses, tips []byte

	err := r.pool.QueryRow(ctx, `
		SELECT id, session_id, overall_score, relevance_score, confidence_score,
		       positivity_score, strengths, weaknesses, summary, actionable_tips,
		       filler_words_count, avg_response_length, response_time_avg, created_at
		FROM interview_feedback
		WHERE session_id = $1
	`, sessionID).Scan(
		&f.ID, &f.SessionID, &f.OverallScore, &f.RelevanceScore, &f.ConfidenceScore,
		&f.PositivityScore, &strengths, &weaknesses, &f.Summary, &tips,
		&f.FillerWordsCount, &f.AvgResponseLength, &f.ResponseTimeAvg, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(strengths, &f.Strengths); err != nil {
		return nil, fmt.Errorf("failed to decode strengths: %w", err)
	}
	if err := json.Unmarshal(weaknesses, &f.Weaknesses); err != nil {
		return nil, fmt.Errorf("failed to decode weaknesses: %w", err)
	}
	if err := json.Unmarshal(tips, &f.ActionableTips); err != nil {
		return nil, fmt.Errorf("failed to decode actionable tips: %w", err)
	}
	return f, nil
}

// UserFeedbackRow is one feedback record joined with its session timing,
// ordered oldest first so callers can measure improvement over time.
type UserFeedbackRow struct {
	OverallScore    float64
	RelevanceScore  float64
	ConfidenceScore float64
	PositivityScore float64
	Strengths       []string
	Weaknesses      []string
	CompletedAt     time.Time
}

func (r *FeedbackRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]UserFeedbackRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT f.overall_score, f.relevance_score, f.confidence_score,
		       f.positivity_score, f.strengths, f.weaknesses, s.completed_at
		FROM interview_feedback f
		JOIN interview_sessions s ON s.id = f.session_id
		WHERE s.user_id = $1 AND s.completed_at IS NOT NULL
		ORDER BY s.completed_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserFeedbackRow
	for rows.Next() {
		var row UserFeedbackRow
		var strengths, weaknesses []byte
		if err := rows.Scan(
			&row.OverallScore, &row.RelevanceScore, &row.ConfidenceScore,
			&row.PositivityScore, &strengths, &weaknesses, &row.CompletedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(strengths, &row.Strengths); err != nil {
			return nil, fmt.Errorf("failed to decode strengths: %w", err)
		}
		if err := json.Unmarshal(weaknesses, &row.Weaknesses); err != nil {
			return nil, fmt.Errorf("failed to decode weaknesses: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
