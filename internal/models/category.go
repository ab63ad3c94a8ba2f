package models

import (
	"time"

	"github.com/google/uuid"
)

// JobCategory is a practice track, e.g. "Software Engineer".
type JobCategory struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Industry    *string   `json:"industry"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}
