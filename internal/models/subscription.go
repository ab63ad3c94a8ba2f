package models

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionPlan string

const (
	PlanFree       SubscriptionPlan = "free"
	PlanStarter    SubscriptionPlan = "starter"
	PlanPro        SubscriptionPlan = "pro"
	PlanEnterprise SubscriptionPlan = "enterprise"
)

type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionSuspended SubscriptionStatus = "suspended"
)

// Subscription tracks one user's plan and monthly interview usage.
type Subscription struct {
	ID     uuid.UUID          `json:"id"`
	UserID uuid.UUID          `json:"user_id"`
	Plan   SubscriptionPlan   `json:"plan"`
	Status SubscriptionStatus `json:"status"`

	StartsAt    time.Time  `json:"starts_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`

	// nil means unlimited.
	MaxInterviewsPerMonth   *int      `json:"max_interviews_per_month"`
	InterviewsUsedThisMonth int       `json:"interviews_used_this_month"`
	LastUsageResetDate      time.Time `json:"last_usage_reset_date"`

	CreatedAt time.Time `json:"created_at"`
}

// IsActive reports whether the subscription grants access (trial or paid).
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionTrial || s.Status == SubscriptionActive
}

func (s *Subscription) HasUnlimitedInterviews() bool {
	return s.MaxInterviewsPerMonth == nil
}

// InterviewsRemaining returns the units left this month, or nil for unlimited.
func (s *Subscription) InterviewsRemaining() *int {
	if s.HasUnlimitedInterviews() {
		return nil
	}
	left := *s.MaxInterviewsPerMonth - s.InterviewsUsedThisMonth
	if left < 0 {
		left = 0
	}
	return &left
}

// CanStartInterview is the admission check used by the usage gate.
func (s *Subscription) CanStartInterview() bool {
	if !s.IsActive() {
		return false
	}
	if s.HasUnlimitedInterviews() {
		return true
	}
	return *s.MaxInterviewsPerMonth > s.InterviewsUsedThisMonth
}

// PlanInfo describes a purchasable plan for the catalog endpoint.
type PlanInfo struct {
	Plan          SubscriptionPlan `json:"plan"`
	Name          string           `json:"name"`
	PriceMonthly  float64          `json:"price_monthly"`
	MaxInterviews *int             `json:"max_interviews"` // nil = unlimited
	Features      []string         `json:"features"`
	TrialDays     int              `json:"trial_days,omitempty"`
	Popular       bool             `json:"popular,omitempty"`
}
