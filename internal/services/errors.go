package services

import "fmt"

// Service-level errors. Handlers translate these to HTTP status codes in a
// single switch; everything else surfaces as a 500.

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

// InvalidStateError means the operation is illegal for the session's current
// status, e.g. messaging a completed interview.
type InvalidStateError struct{ Message string }

func (e *InvalidStateError) Error() string { return e.Message }

// TimeoutError means the session expired from inactivity and was abandoned.
type TimeoutError struct{ Message string }

func (e *TimeoutError) Error() string { return e.Message }

// FeedbackPendingError means the session exists but its feedback has not
// been generated yet. Distinct from NotFoundError so clients can poll.
type FeedbackPendingError struct{ Message string }

func (e *FeedbackPendingError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// QuotaExceededError means the usage gate denied a new session.
type QuotaExceededError struct {
	Remaining int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("Monthly interview limit reached. Interviews remaining: %d. Upgrade your plan for more interviews.", e.Remaining)
}

// CompletionError is a fatal completion-service failure, raised after
// retries are exhausted or immediately for non-retryable upstream errors.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion service error: %v", e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }
