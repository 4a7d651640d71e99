package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/taskfi/marketplace/internal/domain"
	"github.com/taskfi/marketplace/internal/repository"
)

const (
	GigResource = "gig"
)

// GigRepository provides database operations for gigs
type GigRepository struct {
	pool *pgxpool.Pool
}

// NewGigRepository creates a new GigRepository instance
func NewGigRepository(pool *pgxpool.Pool) *GigRepository {
	return &GigRepository{pool: pool}
}

// CreateGig creates a new gig. The package catalog is stored as a JSON
// document inside the gig row.
func (r *GigRepository) CreateGig(ctx context.Context, gig *domain.Gig) error {
	packages, err := json.Marshal(gig.Packages)
	if err != nil {
		return fmt.Errorf("encode packages for gig %s: %w", gig.ID, err)
	}

	const query = `
INSERT INTO gigs (id, title, description, deliverables, packages, gallery, tags, freelancer_id, category_id, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at`

	err = r.pool.QueryRow(ctx, query,
		gig.ID,
		gig.Title,
		gig.Description,
		gig.Deliverables,
		packages,
		gig.Gallery,
		gig.Tags,
		gig.FreelancerID,
		gig.CategoryID,
		gig.Status,
	).Scan(&gig.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create gig: %w", err)
	}

	return nil
}

// GetGigByID retrieves a gig by its ID.
func (r *GigRepository) GetGigByID(ctx context.Context, id uuid.UUID) (*domain.Gig, error) {
	const query = `
SELECT id, title, description, deliverables, packages, gallery, tags,
       freelancer_id, category_id, status, rating, order_count, view_count, created_at
FROM gigs
WHERE id = $1`

	return r.scanGig(r.pool.QueryRow(ctx, query, id), id)
}

// GetGigWithFreelancer retrieves a gig together with the freelancer summary
// needed to assemble order responses and notifications.
func (r *GigRepository) GetGigWithFreelancer(ctx context.Context, id uuid.UUID) (*domain.Gig, *domain.UserSummary, error) {
	const query = `
SELECT g.id, g.title, g.description, g.deliverables, g.packages, g.gallery, g.tags,
       g.freelancer_id, g.category_id, g.status, g.rating, g.order_count, g.view_count, g.created_at,
       u.id, u.name, u.username, u.wallet_address, u.avatar_url, u.rating, u.is_verified
FROM gigs g
JOIN users u ON u.id = g.freelancer_id
WHERE g.id = $1`

	var (
		gig          domain.Gig
		packagesData []byte
		freelancer   domain.UserSummary
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&gig.ID, &gig.Title, &gig.Description, &gig.Deliverables, &packagesData,
		&gig.Gallery, &gig.Tags, &gig.FreelancerID, &gig.CategoryID, &gig.Status,
		&gig.Rating, &gig.OrderCount, &gig.ViewCount, &gig.CreatedAt,
		&freelancer.ID, &freelancer.Name, &freelancer.Username, &freelancer.WalletAddress,
		&freelancer.AvatarURL, &freelancer.Rating, &freelancer.IsVerified,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, &repository.NotFoundError{
				Resource: GigResource,
				Key:      "id",
				Value:    id.String(),
			}
		}
		return nil, nil, fmt.Errorf("query gig %s with freelancer: %w", id, err)
	}

	if err := json.Unmarshal(packagesData, &gig.Packages); err != nil {
		return nil, nil, fmt.Errorf("decode packages for gig %s: %w", id, err)
	}

	return &gig, &freelancer, nil
}

// CountActiveByFreelancer returns the number of ACTIVE gigs owned by a
// freelancer, used to enforce the per-freelancer gig cap.
func (r *GigRepository) CountActiveByFreelancer(ctx context.Context, freelancerID uuid.UUID) (int, error) {
	const query = `SELECT count(*) FROM gigs WHERE freelancer_id = $1 AND status = $2`

	var count int
	err := r.pool.QueryRow(ctx, query, freelancerID, domain.GigStatusActive).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active gigs for freelancer %s: %w", freelancerID, err)
	}

	return count, nil
}

// IncrementViewCount bumps a gig's view counter. Callers treat this as
// fire-and-forget; a miss on a deleted gig is not an error.
func (r *GigRepository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE gigs SET view_count = view_count + 1 WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("increment view count for gig %s: %w", id, err)
	}

	return nil
}

// derivedPackages computes min/max price and min delivery from the JSONB
// package catalog so price and delivery predicates run in the database,
// before pagination.
const derivedPackages = `
CROSS JOIN LATERAL (
    SELECT min((p->>'price')::float8)       AS min_price,
           max((p->>'price')::float8)       AS max_price,
           min((p->>'deliveryDays')::int)   AS min_delivery
    FROM jsonb_array_elements(g.packages) AS p
) dp`

// ListGigs returns one page of gigs matching the filter plus the total count
// of the full matching set. Every predicate is part of the SQL query, so the
// total is consistent with the page contents.
func (r *GigRepository) ListGigs(ctx context.Context, filter repository.GigFilter) ([]repository.GigListItem, int, error) {
	where, args := buildGigPredicates(filter)

	base := `
FROM gigs g
JOIN users u ON u.id = g.freelancer_id
JOIN categories c ON c.id = g.category_id` + derivedPackages + `
WHERE ` + where

	listQuery := `
SELECT g.id, g.title, g.description, g.deliverables, g.packages, g.gallery, g.tags,
       g.freelancer_id, g.category_id, g.status, g.rating, g.order_count, g.view_count, g.created_at,
       u.id, u.name, u.username, u.wallet_address, u.avatar_url, u.rating, u.is_verified,
       c.id, c.name, c.icon,
       dp.min_price, dp.max_price, dp.min_delivery` +
		base +
		orderClause(filter.SortBy, filter.SortOrder) +
		fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, (filter.Page-1)*filter.Limit)

	countQuery := `SELECT count(*)` + base

	var (
		items []repository.GigListItem
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, listQuery, args...)
		if err != nil {
			return fmt.Errorf("query gig page: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			item, err := scanGigListItem(rows)
			if err != nil {
				return err
			}
			items = append(items, *item)
		}
		return rows.Err()
	})
	g.Go(func() error {
		if err := r.pool.QueryRow(gctx, countQuery, args...).Scan(&total); err != nil {
			return fmt.Errorf("count gigs: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// buildGigPredicates assembles the WHERE clause and its ordered arguments.
func buildGigPredicates(filter repository.GigFilter) (string, []any) {
	conds := make([]string, 0, 8)
	args := make([]any, 0, 8)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	status := filter.Status
	if status == "" {
		status = domain.GigStatusActive
	}
	conds = append(conds, "g.status = "+arg(status))

	if filter.CategoryID != nil {
		conds = append(conds, "g.category_id = "+arg(*filter.CategoryID))
	}
	if filter.FreelancerID != nil {
		conds = append(conds, "g.freelancer_id = "+arg(*filter.FreelancerID))
	}
	if filter.Search != "" {
		pattern := arg("%" + filter.Search + "%")
		exact := arg(filter.Search)
		conds = append(conds, fmt.Sprintf(
			"(g.title ILIKE %s OR g.description ILIKE %s OR %s = ANY(g.tags))",
			pattern, pattern, exact,
		))
	}
	if filter.MinRating != nil {
		conds = append(conds, "g.rating >= "+arg(*filter.MinRating))
	}
	if filter.MinPrice != nil {
		conds = append(conds, "dp.min_price >= "+arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		conds = append(conds, "dp.max_price <= "+arg(*filter.MaxPrice))
	}
	if filter.MaxDeliveryDays != nil {
		conds = append(conds, "dp.min_delivery <= "+arg(*filter.MaxDeliveryDays))
	}

	return strings.Join(conds, " AND "), args
}

// orderClause maps the API sort keys onto columns. Sort inputs are validated
// upstream; anything unexpected falls back to newest-first.
func orderClause(sortBy, sortOrder string) string {
	direction := "DESC"
	if sortOrder == repository.SortAsc {
		direction = "ASC"
	}

	var column string
	switch sortBy {
	case repository.SortByPrice:
		if direction == "ASC" {
			column = "dp.min_price"
		} else {
			column = "dp.max_price"
		}
	case repository.SortByRating:
		column = "g.rating"
	case repository.SortByOrderCount:
		column = "g.order_count"
	case repository.SortByViewCount:
		column = "g.view_count"
	default:
		column = "g.created_at"
	}

	return fmt.Sprintf(" ORDER BY %s %s, g.id", column, direction)
}

type gigRow interface {
	Scan(dest ...any) error
}

func (r *GigRepository) scanGig(row gigRow, id uuid.UUID) (*domain.Gig, error) {
	var (
		gig          domain.Gig
		packagesData []byte
	)
	err := row.Scan(
		&gig.ID, &gig.Title, &gig.Description, &gig.Deliverables, &packagesData,
		&gig.Gallery, &gig.Tags, &gig.FreelancerID, &gig.CategoryID, &gig.Status,
		&gig.Rating, &gig.OrderCount, &gig.ViewCount, &gig.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &repository.NotFoundError{
				Resource: GigResource,
				Key:      "id",
				Value:    id.String(),
			}
		}
		return nil, fmt.Errorf("query gig %s: %w", id, err)
	}

	if err := json.Unmarshal(packagesData, &gig.Packages); err != nil {
		return nil, fmt.Errorf("decode packages for gig %s: %w", id, err)
	}

	return &gig, nil
}

func scanGigListItem(rows pgx.Rows) (*repository.GigListItem, error) {
	var (
		item         repository.GigListItem
		packagesData []byte
	)
	err := rows.Scan(
		&item.ID, &item.Title, &item.Description, &item.Deliverables, &packagesData,
		&item.Gallery, &item.Tags, &item.FreelancerID, &item.CategoryID, &item.Status,
		&item.Rating, &item.OrderCount, &item.ViewCount, &item.CreatedAt,
		&item.Freelancer.ID, &item.Freelancer.Name, &item.Freelancer.Username,
		&item.Freelancer.WalletAddress, &item.Freelancer.AvatarURL,
		&item.Freelancer.Rating, &item.Freelancer.IsVerified,
		&item.Category.ID, &item.Category.Name, &item.Category.Icon,
		&item.MinPrice, &item.MaxPrice, &item.MinDelivery,
	)
	if err != nil {
		return nil, fmt.Errorf("scan gig listing row: %w", err)
	}

	if err := json.Unmarshal(packagesData, &item.Packages); err != nil {
		return nil, fmt.Errorf("decode packages for gig %s: %w", item.ID, err)
	}

	return &item, nil
}
