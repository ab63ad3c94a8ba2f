package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	IsVerified   bool      `json:"is_verified"`
	IsActive     bool      `json:"is_active"`

	// Candidate profile, folded into the opening interview prompt.
	CurrentJobTitle   *string `json:"current_job_title"`
	TargetJobRole     *string `json:"target_job_role"`
	YearsOfExperience *int    `json:"years_of_experience"`

	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UpdateProfileRequest struct {
	FullName          *string `json:"full_name,omitempty"`
	CurrentJobTitle   *string `json:"current_job_title,omitempty"`
	TargetJobRole     *string `json:"target_job_role,omitempty"`
	YearsOfExperience *int    `json:"years_of_experience,omitempty"`
}
