package models

import "github.com/google/uuid"

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// WSMessage is the envelope pushed to connected websocket clients.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// FeedbackReadyEvent is published when background feedback generation finishes.
type FeedbackReadyEvent struct {
	SessionID    uuid.UUID `json:"session_id"`
	OverallScore float64   `json:"overall_score"`
}

// SessionAbandonedEvent is published when the stale-session sweep abandons a session.
type SessionAbandonedEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	Reason    string    `json:"reason"`
}

// FeedbackJob is the payload queued for the background worker pool.
type FeedbackJob struct {
	SessionID  uuid.UUID `json:"session_id"`
	UserID     uuid.UUID `json:"user_id"`
	RetryCount int       `json:"retry_count,omitempty"`
}

type PaginatedResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
	Pages int         `json:"pages"`
}
