package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskfi/marketplace/internal/domain"
	"github.com/taskfi/marketplace/internal/repository"
)

const (
	CategoryResource = "category"
)

type CategoryRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// GetCategoryByID retrieves a category by its ID.
func (r *CategoryRepository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	const query = `SELECT id, name, icon, is_active FROM categories WHERE id = $1`

	var category domain.Category
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.Icon,
		&category.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &repository.NotFoundError{
				Resource: CategoryResource,
				Key:      "id",
				Value:    id.String(),
			}
		}
		return nil, fmt.Errorf("query category %s: %w", id, err)
	}

	return &category, nil
}
