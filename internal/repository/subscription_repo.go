package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobprep-backend/internal/models"
)

type SubscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

// CreateTrial provisions the default free trial for a new user: 5 interviews
// per month, trial window of 30 days.
func (r *SubscriptionRepo) CreateTrial(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	s := &models.Subscription{
		ID:     uuid.New(),
		UserID: userID,
		Plan:   models.PlanFree,
		Status: models.SubscriptionTrial,
	}
	maxInterviews := 5
	s.MaxInterviewsPerMonth = &maxInterviews

	err := r.pool.QueryRow(ctx, `
		INSERT INTO subscriptions
			(id, user_id, plan, status, starts_at, trial_ends_at,
			 max_interviews_per_month, interviews_used_this_month, last_usage_reset_date)
		VALUES ($1, $2, $3, $4, NOW(), NOW() + INTERVAL '30 days', $5, 0, NOW())
		RETURNING starts_at, trial_ends_at, last_usage_reset_date, created_at
	`, s.ID, s.UserID, s.Plan, s.Status, s.MaxInterviewsPerMonth,
	).Scan(&s.StartsAt, &s.TrialEndsAt, &s.LastUsageResetDate, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SubscriptionRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	s := &models.Subscription{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, plan, status, starts_at, expires_at, trial_ends_at,
		       max_interviews_per_month, interviews_used_this_month,
		       last_usage_reset_date, created_at
		FROM subscriptions
		WHERE user_id = $1
	`, userID).Scan(
		&s.ID, &s.UserID, &s.Plan, &s.Status, &s.StartsAt, &s.ExpiresAt, &s.TrialEndsAt,
		&s.MaxInterviewsPerMonth, &s.InterviewsUsedThisMonth,
		&s.LastUsageResetDate, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ResetMonthlyUsageIfDue zeroes the counter when the last reset happened in an
// earlier calendar month. The month guard in the WHERE clause makes concurrent
// calls idempotent. Returns whether a reset happened.
func (r *SubscriptionRepo) ResetMonthlyUsageIfDue(ctx context.Context, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET interviews_used_this_month = 0,
		    last_usage_reset_date = NOW()
		WHERE user_id = $1
		  AND date_trunc('month', last_usage_reset_date) < date_trunc('month', NOW())
	`, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ResetAllDueMonthlyUsage is the scheduled sweep counterpart of
// ResetMonthlyUsageIfDue across every subscription.
func (r *SubscriptionRepo) ResetAllDueMonthlyUsage(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET interviews_used_this_month = 0,
		    last_usage_reset_date = NOW()
		WHERE date_trunc('month', last_usage_reset_date) < date_trunc('month', NOW())
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ExpireLapsedTrials moves trial subscriptions past their trial window to
// expired. Run from the scheduler.
func (r *SubscriptionRepo) ExpireLapsedTrials(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET status = 'expired'
		WHERE status = 'trial'
		  AND trial_ends_at IS NOT NULL
		  AND trial_ends_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ChangePlan swaps a user's plan and limits in place, keeping current usage.
func (r *SubscriptionRepo) ChangePlan(ctx context.Context, userID uuid.UUID, plan models.SubscriptionPlan, maxInterviews *int, expiresAt *time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET plan = $2,
		    status = 'active',
		    max_interviews_per_month = $3,
		    expires_at = $4
		WHERE user_id = $1
	`, userID, plan, maxInterviews, expiresAt)
	return err
}
