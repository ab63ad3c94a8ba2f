package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"jobprep-backend/internal/models"
	"jobprep-backend/internal/repository"
)

// SubscriptionService exposes the user's plan state and the plan catalog.
// Quota enforcement itself lives in session creation; this is the read side.
type SubscriptionService struct {
	subRepo *repository.SubscriptionRepo
}

func NewSubscriptionService(subRepo *repository.SubscriptionRepo) *SubscriptionService {
	return &SubscriptionService{subRepo: subRepo}
}

// Get returns the caller's subscription with usage already rolled over if a
// new month started.
func (s *SubscriptionService) Get(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	if _, err := s.subRepo.ResetMonthlyUsageIfDue(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to reset monthly usage: %w", err)
	}

	sub, err := s.subRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "No subscription found for this account"}
		}
		return nil, err
	}
	return sub, nil
}

// ChangePlan moves the caller onto a paid plan from the catalog, replacing
// the monthly limit in place and keeping current usage. Payment collection
// is out of scope; this is the subscription-row side of a plan switch.
func (s *SubscriptionService) ChangePlan(ctx context.Context, userID uuid.UUID, plan string) (*models.Subscription, error) {
	target := models.SubscriptionPlan(plan)
	if target == models.PlanFree {
		return nil, &ValidationError{Fields: map[string]string{"plan": "the trial plan cannot be purchased"}}
	}

	var info *models.PlanInfo
	plans := s.Plans()
	for i := range plans {
		if plans[i].Plan == target {
			info = &plans[i]
			break
		}
	}
	if info == nil {
		return nil, &ValidationError{Fields: map[string]string{"plan": "must be one of: starter, pro, enterprise"}}
	}

	expiresAt := time.Now().UTC().AddDate(0, 1, 0)
	if err := s.subRepo.ChangePlan(ctx, userID, target, info.MaxInterviews, &expiresAt); err != nil {
		return nil, fmt.Errorf("failed to change plan: %w", err)
	}
	return s.Get(ctx, userID)
}

// Plans is the static plan catalog.
func (s *SubscriptionService) Plans() []models.PlanInfo {
	freeMax, starterMax := 5, 20
	return []models.PlanInfo{
		{
			Plan:          models.PlanFree,
			Name:          "Free Trial",
			PriceMonthly:  0,
			MaxInterviews: &freeMax,
			TrialDays:     30,
			Features: []string{
				"5 practice interviews per month",
				"AI-generated feedback",
				"All job categories",
			},
		},
		{
			Plan:          models.PlanStarter,
			Name:          "Starter",
			PriceMonthly:  9.99,
			MaxInterviews: &starterMax,
			Popular:       true,
			Features: []string{
				"20 practice interviews per month",
				"AI-generated feedback",
				"Progress tracking across interviews",
			},
		},
		{
			Plan:         models.PlanPro,
			Name:         "Pro",
			PriceMonthly: 24.99,
			Features: []string{
				"Unlimited practice interviews",
				"AI-generated feedback",
				"Progress tracking across interviews",
				"Priority support",
			},
		},
		{
			Plan:         models.PlanEnterprise,
			Name:         "Enterprise",
			PriceMonthly: 99.99,
			Features: []string{
				"Unlimited practice interviews for your team",
				"AI-generated feedback",
				"Dedicated account manager",
			},
		},
	}
}
