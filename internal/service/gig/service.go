// Package gig implements gig creation rules and the listing query.
package gig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskfi/marketplace/internal/domain"
	"github.com/taskfi/marketplace/internal/repository"
)

// MaxActiveGigs caps how many ACTIVE gigs one freelancer may hold.
const MaxActiveGigs = 10

const (
	DefaultPageLimit = 12
	MaxPageLimit     = 50
)

// GigStore is the storage surface the service needs for gigs.
type GigStore interface {
	CreateGig(ctx context.Context, gig *domain.Gig) error
	GetGigWithFreelancer(ctx context.Context, id uuid.UUID) (*domain.Gig, *domain.UserSummary, error)
	CountActiveByFreelancer(ctx context.Context, freelancerID uuid.UUID) (int, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
	ListGigs(ctx context.Context, filter repository.GigFilter) ([]repository.GigListItem, int, error)
}

// CategoryStore resolves categories for creation checks.
type CategoryStore interface {
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
}

// RoleStore resolves the caller's role.
type RoleStore interface {
	GetUserRole(ctx context.Context, id uuid.UUID) (domain.Role, error)
}

// PermissionChecker answers whether a role may manage gigs.
type PermissionChecker interface {
	CanManageGigs(role domain.Role) (bool, error)
}

type Service struct {
	gigs       GigStore
	categories CategoryStore
	roles      RoleStore
	perms      PermissionChecker
	logger     *slog.Logger
}

func NewService(gigs GigStore, categories CategoryStore, roles RoleStore, perms PermissionChecker, logger *slog.Logger) *Service {
	return &Service{
		gigs:       gigs,
		categories: categories,
		roles:      roles,
		perms:      perms,
		logger:     logger,
	}
}

// CreateGigInput is the validated shape of a gig creation request.
type CreateGigInput struct {
	Title        string
	Description  string
	Deliverables []string
	Packages     []domain.Package
	Gallery      []string
	Tags         []string
	CategoryID   uuid.UUID
}

// CreateGig validates the input and persists a new ACTIVE gig for the
// freelancer. Package prices must be strictly ascending and the freelancer
// may not exceed the active gig cap.
func (s *Service) CreateGig(ctx context.Context, freelancerID uuid.UUID, in CreateGigInput) (*repository.GigListItem, error) {
	if freelancerID == uuid.Nil {
		return nil, domain.NewError(domain.ErrUnauthorized, "authentication required")
	}

	role, err := s.roles.GetUserRole(ctx, freelancerID)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			return nil, domain.NewError(domain.ErrNotFound, "user not found")
		}
		return nil, fmt.Errorf("load role for user %s: %w", freelancerID, err)
	}

	allowed, err := s.perms.CanManageGigs(role)
	if err != nil {
		return nil, fmt.Errorf("check gig permission for role %s: %w", role, err)
	}
	if !allowed {
		return nil, domain.NewError(domain.ErrInvalidOperation, "only freelancers can create gigs")
	}

	if fields := validateCreateGig(in); len(fields) > 0 {
		return nil, domain.NewValidationError("gig validation failed", fields)
	}

	for i := 1; i < len(in.Packages); i++ {
		if in.Packages[i].Price <= in.Packages[i-1].Price {
			return nil, domain.NewError(domain.ErrInvalidOperation, "package prices must be in ascending order")
		}
	}

	category, err := s.categories.GetCategoryByID(ctx, in.CategoryID)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			return nil, domain.NewError(domain.ErrNotFound, "category not found")
		}
		return nil, fmt.Errorf("load category %s: %w", in.CategoryID, err)
	}
	if !category.IsActive {
		return nil, domain.NewError(domain.ErrInvalidState, "category is not active")
	}

	activeCount, err := s.gigs.CountActiveByFreelancer(ctx, freelancerID)
	if err != nil {
		return nil, fmt.Errorf("count active gigs for %s: %w", freelancerID, err)
	}
	if activeCount >= MaxActiveGigs {
		return nil, domain.NewError(domain.ErrInvalidOperation,
			fmt.Sprintf("maximum active gigs limit reached (%d)", MaxActiveGigs))
	}

	gig := &domain.Gig{
		ID:           uuid.New(),
		Title:        in.Title,
		Description:  in.Description,
		Deliverables: in.Deliverables,
		Packages:     in.Packages,
		Gallery:      orEmpty(in.Gallery),
		Tags:         orEmpty(in.Tags),
		FreelancerID: freelancerID,
		CategoryID:   in.CategoryID,
		Status:       domain.GigStatusActive,
	}
	if err := s.gigs.CreateGig(ctx, gig); err != nil {
		return nil, fmt.Errorf("create gig: %w", err)
	}

	s.logger.Info("gig_created", "gig_id", gig.ID, "freelancer_id", freelancerID, "category_id", in.CategoryID)

	return &repository.GigListItem{
		Gig:         *gig,
		Category:    repository.CategorySummary{ID: category.ID, Name: category.Name, Icon: category.Icon},
		MinPrice:    gig.MinPrice(),
		MaxPrice:    gig.MaxPrice(),
		MinDelivery: gig.MinDelivery(),
	}, nil
}

// Pagination describes one listing page against the true filtered total.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// ListResult is one page of gigs plus pagination metadata.
type ListResult struct {
	Gigs       []repository.GigListItem `json:"gigs"`
	Pagination Pagination               `json:"pagination"`
}

// ListGigs normalizes paging and sorting, then runs the filtered query.
func (s *Service) ListGigs(ctx context.Context, filter repository.GigFilter) (*ListResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = DefaultPageLimit
	}
	if filter.Limit > MaxPageLimit {
		filter.Limit = MaxPageLimit
	}

	switch filter.SortBy {
	case repository.SortByCreatedAt, repository.SortByPrice, repository.SortByRating,
		repository.SortByOrderCount, repository.SortByViewCount:
	case "":
		filter.SortBy = repository.SortByCreatedAt
	default:
		return nil, domain.NewValidationError("invalid query", map[string]string{"sortBy": "unknown sort key"})
	}

	switch filter.SortOrder {
	case repository.SortAsc, repository.SortDesc:
	case "":
		filter.SortOrder = repository.SortDesc
	default:
		return nil, domain.NewValidationError("invalid query", map[string]string{"sortOrder": "must be asc or desc"})
	}

	items, total, err := s.gigs.ListGigs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list gigs: %w", err)
	}
	if items == nil {
		items = []repository.GigListItem{}
	}

	pages := (total + filter.Limit - 1) / filter.Limit

	return &ListResult{
		Gigs: items,
		Pagination: Pagination{
			Page:  filter.Page,
			Limit: filter.Limit,
			Total: total,
			Pages: pages,
		},
	}, nil
}

// GigDetail is a single gig with its freelancer and derived price fields.
type GigDetail struct {
	domain.Gig
	Freelancer  domain.UserSummary `json:"freelancer"`
	MinPrice    float64            `json:"minPrice"`
	MaxPrice    float64            `json:"maxPrice"`
	MinDelivery int                `json:"minDelivery"`
}

// GetGig loads one gig and bumps its view counter. The counter bump is
// fire-and-forget: a failure is logged, not surfaced.
func (s *Service) GetGig(ctx context.Context, id uuid.UUID) (*GigDetail, error) {
	gig, freelancer, err := s.gigs.GetGigWithFreelancer(ctx, id)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			return nil, domain.NewError(domain.ErrNotFound, "gig not found")
		}
		return nil, fmt.Errorf("load gig %s: %w", id, err)
	}

	if err := s.gigs.IncrementViewCount(ctx, id); err != nil {
		s.logger.Warn("view_count_increment_failed", "gig_id", id, "error", err)
	}

	return &GigDetail{
		Gig:         *gig,
		Freelancer:  *freelancer,
		MinPrice:    gig.MinPrice(),
		MaxPrice:    gig.MaxPrice(),
		MinDelivery: gig.MinDelivery(),
	}, nil
}

func validateCreateGig(in CreateGigInput) map[string]string {
	fields := make(map[string]string)

	if n := len(in.Title); n < 10 || n > 100 {
		fields["title"] = "must be 10-100 characters"
	}
	if n := len(in.Description); n < 100 || n > 2000 {
		fields["description"] = "must be 100-2000 characters"
	}
	if n := len(in.Deliverables); n < 1 || n > 10 {
		fields["deliverables"] = "must list 1-10 deliverables"
	}
	if n := len(in.Gallery); n > 10 {
		fields["gallery"] = "must list at most 10 images"
	}
	if n := len(in.Tags); n > 10 {
		fields["tags"] = "must list at most 10 tags"
	}
	if in.CategoryID == uuid.Nil {
		fields["categoryId"] = "is required"
	}

	if n := len(in.Packages); n < 1 || n > 3 {
		fields["packages"] = "must define 1-3 packages"
		return fields
	}
	for i, p := range in.Packages {
		prefix := fmt.Sprintf("packages[%d].", i)
		if n := len(p.Name); n < 1 || n > 50 {
			fields[prefix+"name"] = "must be 1-50 characters"
		}
		if n := len(p.Description); n < 10 || n > 500 {
			fields[prefix+"description"] = "must be 10-500 characters"
		}
		if p.Price < 5 || p.Price > 100000 {
			fields[prefix+"price"] = "must be between 5 and 100000"
		}
		if p.DeliveryDays < 1 || p.DeliveryDays > 90 {
			fields[prefix+"deliveryDays"] = "must be between 1 and 90 days"
		}
		if p.Revisions < 0 || p.Revisions > 10 {
			fields[prefix+"revisions"] = "must be between 0 and 10"
		}
		if n := len(p.Features); n < 1 || n > 20 {
			fields[prefix+"features"] = "must list 1-20 features"
		}
	}

	return fields
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
