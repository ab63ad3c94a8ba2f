package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobprep-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, is_verified)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	user.ID = uuid.New()
	user.IsActive = true

	return r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.IsVerified,
	).Scan(&user.CreatedAt)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, password_hash, full_name, is_verified, is_active,
			current_job_title, target_job_role, years_of_experience, created_at, last_login_at
		FROM users WHERE email = $1`

	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.IsVerified, &user.IsActive,
		&user.CurrentJobTitle, &user.TargetJobRole, &user.YearsOfExperience,
		&user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, password_hash, full_name, is_verified, is_active,
			current_job_title, target_job_role, years_of_experience, created_at, last_login_at
		FROM users WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.IsVerified, &user.IsActive,
		&user.CurrentJobTitle, &user.TargetJobRole, &user.YearsOfExperience,
		&user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) VerifyEmail(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET is_verified = TRUE WHERE id = $1", userID)
	return err
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET last_login_at = $1 WHERE id = $2", time.Now(), userID)
	return err
}

func (r *UserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET full_name = $1, current_job_title = $2, target_job_role = $3, years_of_experience = $4
		WHERE id = $5`,
		user.FullName, user.CurrentJobTitle, user.TargetJobRole, user.YearsOfExperience, user.ID,
	)
	return err
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", passwordHash, userID)
	return err
}

func (r *UserRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", userID)
	return err
}
