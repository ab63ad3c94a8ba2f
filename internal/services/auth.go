package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"jobprep-backend/internal/middleware"
	"jobprep-backend/internal/models"
	"jobprep-backend/internal/repository"
)

type AuthService struct {
	userRepo *repository.UserRepo
	subRepo  *repository.SubscriptionRepo
	redis    *redis.Client
	jwt      *middleware.JWTAuth
	email    *EmailService
}

func NewAuthService(userRepo *repository.UserRepo, subRepo *repository.SubscriptionRepo, redisClient *redis.Client, jwt *middleware.JWTAuth, email *EmailService) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		subRepo:  subRepo,
		redis:    redisClient,
		jwt:      jwt,
		email:    email,
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, string, error) {
	// Validate all fields at once
	fieldErrors := make(map[string]string)

	if req.FullName == "" {
		fieldErrors["full_name"] = "Full name is required"
	}
	if !emailRegex.MatchString(req.Email) {
		fieldErrors["email"] = "Invalid email format"
	}
	if err := validatePassword(req.Password); err != nil {
		fieldErrors["password"] = err.Error()
	}

	if len(fieldErrors) > 0 {
		return nil, "", &ValidationError{Fields: fieldErrors}
	}

	// Check uniqueness
	_, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err == nil {
		return nil, "", &ConflictError{Message: "Email already in use"}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", err
	}

	// Hash password (bcrypt cost 12)
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		IsVerified:   false,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	// Every account starts on the free trial
	if _, err := s.subRepo.CreateTrial(ctx, user.ID); err != nil {
		log.Printf("Failed to provision trial subscription for %s: %v", user.ID, err)
	}

	// Generate verification token
	token, err := generateToken(32)
	if err != nil {
		return nil, "", err
	}

	// Store in Redis with 24-hour TTL
	err = s.redis.Set(ctx, "email_verify:"+token, user.ID.String(), 24*time.Hour).Err()
	if err != nil {
		return nil, "", fmt.Errorf("failed to store verification token: %w", err)
	}

	// Send verification email
	go s.email.SendVerificationEmail(user.Email, token)

	return user, token, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.AuthTokens, error) {
	userIDStr, err := s.redis.Get(ctx, "email_verify:"+token).Result()
	if err != nil {
		return nil, &NotFoundError{Message: "Invalid or expired verification token"}
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in token: %w", err)
	}

	if err := s.userRepo.VerifyEmail(ctx, userID); err != nil {
		return nil, err
	}

	// Delete used token
	s.redis.Del(ctx, "email_verify:"+token)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &UnauthorizedError{Message: "Invalid email or password"}
		}
		return nil, err
	}

	if !user.IsVerified {
		return nil, &ForbiddenError{Message: "Please verify your email before signing in."}
	}

	if !user.IsActive {
		return nil, &UnauthorizedError{Message: "Account is deactivated"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &UnauthorizedError{Message: "Invalid email or password"}
	}

	s.userRepo.UpdateLastLogin(ctx, user.ID)

	return s.issueTokens(ctx, user)
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	userIDStr, err := s.redis.Get(ctx, "refresh:"+refreshToken).Result()
	if err != nil {
		return nil, &UnauthorizedError{Message: "Invalid or expired refresh token. Please log in again."}
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	// Delete old token (rotation)
	s.redis.Del(ctx, "refresh:"+refreshToken)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, &UnauthorizedError{Message: "Account is deactivated"}
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.redis.Del(ctx, "refresh:"+refreshToken).Err()
}

func (s *AuthService) ResendVerification(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", &NotFoundError{Message: "Email not found"}
	}

	if user.IsVerified {
		return "", &ConflictError{Message: "Email is already verified"}
	}

	// Rate limit check
	rateLimitKey := fmt.Sprintf("resend_limit:%s", user.ID.String())
	exists, _ := s.redis.Exists(ctx, rateLimitKey).Result()
	if exists > 0 {
		return "", &RateLimitError{Message: "Please wait 60 seconds before requesting another verification email"}
	}

	token, err := generateToken(32)
	if err != nil {
		return "", err
	}

	s.redis.Set(ctx, "email_verify:"+token, user.ID.String(), 24*time.Hour)
	s.redis.Set(ctx, rateLimitKey, "1", 60*time.Second)

	go s.email.SendVerificationEmail(user.Email, token)

	return token, nil
}

// ForgotPassword issues a reset token. It does not reveal whether the email
// exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	token, err := generateToken(32)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, "pwd_reset:"+token, user.ID.String(), time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	go s.email.SendPasswordResetEmail(user.Email, token)
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return &ValidationError{Fields: map[string]string{"password": err.Error()}}
	}

	userIDStr, err := s.redis.Get(ctx, "pwd_reset:"+token).Result()
	if err != nil {
		return &NotFoundError{Message: "Invalid or expired reset token"}
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return fmt.Errorf("invalid user ID in token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), 12)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	s.redis.Del(ctx, "pwd_reset:"+token)
	return nil
}

// ChangePassword replaces the password of a logged-in user after verifying
// the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Message: "User not found"}
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return &UnauthorizedError{Message: "Current password is incorrect"}
	}

	if err := validatePassword(newPassword); err != nil {
		return &ValidationError{Fields: map[string]string{"new_password": err.Error()}}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), 12)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.userRepo.UpdatePassword(ctx, userID, string(hash))
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := generateToken(64)
	if err != nil {
		return nil, err
	}

	// Store refresh token in Redis (7 days)
	err = s.redis.Set(ctx, "refresh:"+refreshToken, user.ID.String(), 7*24*time.Hour).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    900,
	}, nil
}

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func validatePassword(pw string) error {
	if len(pw) < 8 {
		return fmt.Errorf("Password must be at least 8 characters")
	}
	hasNumber := false
	for _, ch := range pw {
		if unicode.IsDigit(ch) {
			hasNumber = true
			break
		}
	}
	if !hasNumber {
		return fmt.Errorf("Password must contain at least one number")
	}
	return nil
}
