package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestChangePlanRejectsNonPurchasablePlans(t *testing.T) {
	// Invalid plans are rejected before any storage access.
	svc := NewSubscriptionService(nil)

	tests := []struct {
		name string
		plan string
	}{
		{"trial plan", "free"},
		{"unknown plan", "platinum"},
		{"empty plan", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ChangePlan(context.Background(), uuid.New(), tt.plan)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("want ValidationError, got %v", err)
			}
		})
	}
}

func TestPlansCatalog(t *testing.T) {
	plans := NewSubscriptionService(nil).Plans()
	if len(plans) != 4 {
		t.Fatalf("catalog size = %d, want 4", len(plans))
	}

	byName := make(map[string]int)
	for i, p := range plans {
		byName[string(p.Plan)] = i
	}

	starter := plans[byName["starter"]]
	if starter.MaxInterviews == nil || *starter.MaxInterviews != 20 {
		t.Errorf("starter limit = %v, want 20", starter.MaxInterviews)
	}
	pro := plans[byName["pro"]]
	if pro.MaxInterviews != nil {
		t.Errorf("pro should be unlimited, got %v", *pro.MaxInterviews)
	}
}
