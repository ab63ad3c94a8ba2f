package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"jobprep-backend/internal/middleware"
	"jobprep-backend/internal/models"
	"jobprep-backend/internal/services"
)

type InterviewHandler struct {
	interviewService *services.InterviewService
}

func NewInterviewHandler(interviewService *services.InterviewService) *InterviewHandler {
	return &InterviewHandler{interviewService: interviewService}
}

func (h *InterviewHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.StartInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	session, err := h.interviewService.Start(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *InterviewHandler) Message(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	var req models.InterviewMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	resp, err := h.interviewService.Message(r.Context(), userID, sessionID, req.Content)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *InterviewHandler) End(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	// Body is optional; an empty body means default behavior.
	var req models.EndInterviewRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.interviewService.End(r.Context(), userID, sessionID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *InterviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	session, err := h.interviewService.Get(r.Context(), userID, sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *InterviewHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	status := r.URL.Query().Get("status")

	resp, err := h.interviewService.List(r.Context(), userID, status, page, size)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
