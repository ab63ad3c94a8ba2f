package handlers

import (
	"encoding/json"
	"net/http"

	"jobprep-backend/internal/middleware"
	"jobprep-backend/internal/services"
)

type SubscriptionHandler struct {
	subscriptionService *services.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

func (h *SubscriptionHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sub, err := h.subscriptionService.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"subscription":         sub,
		"interviews_remaining": sub.InterviewsRemaining(),
		"can_start_interview":  sub.CanStartInterview(),
	})
}

func (h *SubscriptionHandler) Plans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.subscriptionService.Plans())
}

func (h *SubscriptionHandler) ChangePlan(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		Plan string `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	sub, err := h.subscriptionService.ChangePlan(r.Context(), userID, req.Plan)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}
