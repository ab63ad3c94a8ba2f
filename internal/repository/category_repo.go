package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobprep-backend/internal/models"
)

type CategoryRepo struct {
	pool *pgxpool.Pool
}

func NewCategoryRepo(pool *pgxpool.Pool) *CategoryRepo {
	return &CategoryRepo{pool: pool}
}

// GetActiveByID returns the category only when it exists and is active.
func (r *CategoryRepo) GetActiveByID(ctx context.Context, id uuid.UUID) (*models.JobCategory, error) {
	c := &models.JobCategory{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, industry, is_active, created_at
		FROM job_categories
		WHERE id = $1 AND is_active = TRUE
	`, id).Scan(&c.ID, &c.Name, &c.Description, &c.Industry, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CategoryRepo) ListActive(ctx context.Context) ([]models.JobCategory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, industry, is_active, created_at
		FROM job_categories
		WHERE is_active = TRUE
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]models.JobCategory, 0)
	for rows.Next() {
		var c models.JobCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Industry, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
