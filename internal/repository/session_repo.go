package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobprep-backend/internal/models"
)

// ErrQuotaExceeded is returned when the subscription usage guard rejects a
// session creation inside CreateWithQuota.
var ErrQuotaExceeded = errors.New("interview quota exhausted")

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// CreateWithQuota consumes one interview unit and inserts the session in a
// single transaction. Either both happen or neither: a crash between the
// two writes can never leave a consumed unit without a session.
func (r *SessionRepo) CreateWithQuota(ctx context.Context, s *models.InterviewSession) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE subscriptions
		SET interviews_used_this_month = interviews_used_this_month + 1
		WHERE user_id = $1
		  AND status IN ('trial', 'active')
		  AND (max_interviews_per_month IS NULL
		       OR interviews_used_this_month < max_interviews_per_month)
	`, s.UserID)
	if err != nil {
		return fmt.Errorf("failed to consume interview quota: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrQuotaExceeded
	}

	historyJSON, err := json.Marshal(s.History)
	if err != nil {
		return fmt.Errorf("failed to encode conversation history: %w", err)
	}

	s.ID = uuid.New()
	err = tx.QueryRow(ctx, `
		INSERT INTO interview_sessions
			(id, user_id, category_id, status, difficulty, conversation_history,
			 started_at, total_tokens_used, model_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, s.ID, s.UserID, s.CategoryID, s.Status, s.Difficulty, historyJSON,
		s.StartedAt, s.TotalTokensUsed, s.ModelUsed,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert interview session: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.InterviewSession, error) {
	s := &models.InterviewSession{}
	var historyJSON []byte

	query := `
		SELECT s.id, s.user_id, s.category_id, c.name, s.status, s.difficulty,
		       s.conversation_history, s.started_at, s.completed_at,
		       s.duration_seconds, s.total_tokens_used, s.model_used, s.created_at
		FROM interview_sessions s
		LEFT JOIN job_categories c ON c.id = s.category_id
		WHERE s.id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.CategoryID, &s.CategoryName, &s.Status, &s.Difficulty,
		&historyJSON, &s.StartedAt, &s.CompletedAt,
		&s.DurationSeconds, &s.TotalTokensUsed, &s.ModelUsed, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(historyJSON, &s.History); err != nil {
		return nil, fmt.Errorf("failed to decode conversation history: %w", err)
	}

	return s, nil
}

// AppendTurn appends one turn and adds tokens in a single guarded statement.
// Returns false when the session is no longer in progress; history is
// immutable for terminal sessions.
func (r *SessionRepo) AppendTurn(ctx context.Context, id uuid.UUID, turn models.Turn, tokens int) (bool, error) {
	turnJSON, err := json.Marshal([]models.Turn{turn})
	if err != nil {
		return false, fmt.Errorf("failed to encode turn: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE interview_sessions
		SET conversation_history = conversation_history || $2::jsonb,
		    total_tokens_used = total_tokens_used + $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'in_progress'
	`, id, turnJSON, tokens)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Complete transitions in_progress -> completed. Returns false if the
// session was already terminal; concurrent enders race on this guard.
func (r *SessionRepo) Complete(ctx context.Context, id uuid.UUID, completedAt time.Time, durationSeconds int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE interview_sessions
		SET status = 'completed',
		    completed_at = $2,
		    duration_seconds = $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'in_progress'
	`, id, completedAt, durationSeconds)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Abandon transitions in_progress -> abandoned (inactivity timeout).
func (r *SessionRepo) Abandon(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE interview_sessions
		SET status = 'abandoned',
		    completed_at = $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'in_progress'
	`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// AddTokens folds feedback-generation token usage into the session total.
func (r *SessionRepo) AddTokens(ctx context.Context, id uuid.UUID, tokens int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE interview_sessions
		SET total_tokens_used = total_tokens_used + $2,
		    updated_at = NOW()
		WHERE id = $1
	`, id, tokens)
	return err
}

// AbandonStale abandons every in-progress session idle for longer than
// timeoutMinutes and returns the affected session/user pairs so callers can
// notify their owners.
func (r *SessionRepo) AbandonStale(ctx context.Context, timeoutMinutes int) ([]models.FeedbackJob, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE interview_sessions
		SET status = 'abandoned',
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE status = 'in_progress'
		  AND updated_at < NOW() - ($1 * INTERVAL '1 minute')
		RETURNING id, user_id
	`, timeoutMinutes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var affected []models.FeedbackJob
	for rows.Next() {
		var j models.FeedbackJob
		if err := rows.Scan(&j.SessionID, &j.UserID); err != nil {
			return nil, err
		}
		affected = append(affected, j)
	}
	return affected, rows.Err()
}

// ListByUser returns condensed history items plus the total count for
// pagination. The feedback join surfaces the overall score when present.
func (r *SessionRepo) ListByUser(ctx context.Context, userID uuid.UUID, status *models.SessionStatus, limit, offset int) ([]models.InterviewHistoryItem, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM interview_sessions WHERE user_id = $1 AND ($2::text IS NULL OR status = $2)`
	if err := r.pool.QueryRow(ctx, countQuery, userID, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT s.id, c.name, s.difficulty, s.status, f.overall_score,
		       s.started_at, s.completed_at, s.duration_seconds
		FROM interview_sessions s
		LEFT JOIN job_categories c ON c.id = s.category_id
		LEFT JOIN interview_feedback f ON f.session_id = s.id
		WHERE s.user_id = $1
		  AND ($2::text IS NULL OR s.status = $2)
		ORDER BY s.started_at DESC
		LIMIT $3 OFFSET $4
	`, userID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]models.InterviewHistoryItem, 0)
	for rows.Next() {
		var item models.InterviewHistoryItem
		if err := rows.Scan(
			&item.ID, &item.CategoryName, &item.Difficulty, &item.Status,
			&item.OverallScore, &item.StartedAt, &item.CompletedAt, &item.DurationSeconds,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}
