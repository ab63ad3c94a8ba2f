package handlers

import (
	"encoding/json"
	"net/http"

	"jobprep-backend/internal/middleware"
	"jobprep-backend/internal/models"
	"jobprep-backend/internal/repository"
)

type UserHandler struct {
	userRepo *repository.UserRepo
}

func NewUserHandler(userRepo *repository.UserRepo) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}

	if req.FullName != nil {
		if *req.FullName == "" {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"full_name": "must not be empty"}, r))
			return
		}
		user.FullName = *req.FullName
	}
	if req.CurrentJobTitle != nil {
		user.CurrentJobTitle = req.CurrentJobTitle
	}
	if req.TargetJobRole != nil {
		user.TargetJobRole = req.TargetJobRole
	}
	if req.YearsOfExperience != nil {
		if *req.YearsOfExperience < 0 || *req.YearsOfExperience > 60 {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"years_of_experience": "must be between 0 and 60"}, r))
			return
		}
		user.YearsOfExperience = req.YearsOfExperience
	}

	if err := h.userRepo.UpdateProfile(r.Context(), user); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update profile", r))
		return
	}

	writeJSON(w, http.StatusOK, user)
}
