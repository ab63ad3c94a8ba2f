package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobprep-backend/internal/models"
	"jobprep-backend/internal/services"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation",
			err:        &services.ValidationError{Fields: map[string]string{"content": "must not be empty"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "not found",
			err:        &services.NotFoundError{Message: "Interview session not found"},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "feedback pending",
			err:        &services.FeedbackPendingError{Message: "Feedback is not available for this session yet"},
			wantStatus: http.StatusNotFound,
			wantCode:   "FEEDBACK_PENDING",
		},
		{
			name:       "invalid state",
			err:        &services.InvalidStateError{Message: "This interview session has already ended"},
			wantStatus: http.StatusConflict,
			wantCode:   "INVALID_STATE",
		},
		{
			name:       "session timeout",
			err:        &services.TimeoutError{Message: "Interview session expired due to inactivity"},
			wantStatus: http.StatusRequestTimeout,
			wantCode:   "SESSION_EXPIRED",
		},
		{
			name:       "quota exceeded",
			err:        &services.QuotaExceededError{Remaining: 0},
			wantStatus: http.StatusForbidden,
			wantCode:   "QUOTA_EXCEEDED",
		},
		{
			name:       "completion failure",
			err:        &services.CompletionError{Err: errors.New("upstream 503")},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "AI_UNAVAILABLE",
		},
		{
			name:       "unauthorized",
			err:        &services.UnauthorizedError{Message: "Invalid credentials"},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:       "unknown errors stay opaque",
			err:        errors.New("pgx: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", "req-123")

			handleServiceError(rec, req, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp models.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid error body: %v", err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.wantCode)
			}
			if resp.Error.RequestID != "req-123" {
				t.Errorf("request id = %q", resp.Error.RequestID)
			}
			if tt.name == "unknown errors stay opaque" && resp.Error.Message == "pgx: connection refused" {
				t.Error("internal error detail leaked to the client")
			}
		})
	}
}
