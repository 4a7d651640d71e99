package repository

import (
	"github.com/google/uuid"

	"github.com/taskfi/marketplace/internal/domain"
)

// Sort keys accepted by the gig listing. Price sorting uses the derived
// minimum package price ascending, maximum descending.
const (
	SortByCreatedAt  = "createdAt"
	SortByPrice      = "price"
	SortByRating     = "rating"
	SortByOrderCount = "orderCount"
	SortByViewCount  = "viewCount"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// GigFilter carries every listing predicate. All predicates are applied in
// the storage query ahead of pagination, so the reported total reflects the
// full matching set.
type GigFilter struct {
	CategoryID      *uuid.UUID
	FreelancerID    *uuid.UUID
	Status          domain.GigStatus
	Search          string
	MinPrice        *float64
	MaxPrice        *float64
	MaxDeliveryDays *int
	MinRating       *float64
	Page            int
	Limit           int
	SortBy          string
	SortOrder       string
}

// CategorySummary is the category slice embedded in listings.
type CategorySummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Icon string    `json:"icon,omitempty"`
}

// GigListItem is one listing row with its derived price and delivery fields.
type GigListItem struct {
	domain.Gig
	Freelancer  domain.UserSummary `json:"freelancer"`
	Category    CategorySummary    `json:"category"`
	MinPrice    float64            `json:"minPrice"`
	MaxPrice    float64            `json:"maxPrice"`
	MinDelivery int                `json:"minDelivery"`
}
