package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/taskfi/marketplace/internal/api/rest/middleware"
	"github.com/taskfi/marketplace/internal/domain"
	"github.com/taskfi/marketplace/internal/repository"
	"github.com/taskfi/marketplace/internal/service/gig"
)

// GigService is the interface the handler needs from the gig service.
type GigService interface {
	CreateGig(ctx context.Context, freelancerID uuid.UUID, in gig.CreateGigInput) (*repository.GigListItem, error)
	ListGigs(ctx context.Context, filter repository.GigFilter) (*gig.ListResult, error)
	GetGig(ctx context.Context, id uuid.UUID) (*gig.GigDetail, error)
}

// GigHandler handles HTTP requests for gig operations
type GigHandler struct {
	gigs   GigService
	logger *slog.Logger
}

// NewGigHandler creates a new GigHandler instance
func NewGigHandler(gigs GigService, logger *slog.Logger) *GigHandler {
	return &GigHandler{
		gigs:   gigs,
		logger: logger,
	}
}

// CreateGigRequest is the request payload for creating a gig.
type CreateGigRequest struct {
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Deliverables []string         `json:"deliverables"`
	Packages     []domain.Package `json:"packages"`
	Gallery      []string         `json:"gallery"`
	Tags         []string         `json:"tags"`
	CategoryID   uuid.UUID        `json:"categoryId"`
}

// CreateGig handles POST /gigs.
func (h *GigHandler) CreateGig(w http.ResponseWriter, r *http.Request) {
	var req CreateGigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "invalid_input", "Invalid request body")
		return
	}

	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "unauthorized", "User authentication is required")
		return
	}

	created, err := h.gigs.CreateGig(r.Context(), userID, gig.CreateGigInput{
		Title:        req.Title,
		Description:  req.Description,
		Deliverables: req.Deliverables,
		Packages:     req.Packages,
		Gallery:      req.Gallery,
		Tags:         req.Tags,
		CategoryID:   req.CategoryID,
	})
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	WriteJSONResponse(w, http.StatusCreated, map[string]any{"gig": created})
}

// ListGigs handles GET /gigs with filtering, sorting and pagination.
func (h *GigHandler) ListGigs(w http.ResponseWriter, r *http.Request) {
	filter, fields := parseGigFilter(r)
	if len(fields) > 0 {
		WriteJSONResponse(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid query",
			Details: fields,
		})
		return
	}

	result, err := h.gigs.ListGigs(r.Context(), filter)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	WriteJSONResponse(w, http.StatusOK, result)
}

// GetGig handles GET /gigs/{id}.
func (h *GigHandler) GetGig(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "invalid_input", "Gig ID must be a valid UUID")
		return
	}

	detail, err := h.gigs.GetGig(r.Context(), id)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	WriteJSONResponse(w, http.StatusOK, map[string]any{"gig": detail})
}

func parseGigFilter(r *http.Request) (repository.GigFilter, map[string]string) {
	q := r.URL.Query()
	fields := make(map[string]string)
	filter := repository.GigFilter{
		Search:    q.Get("search"),
		Status:    domain.GigStatus(q.Get("status")),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}

	if v := q.Get("category"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			fields["category"] = "must be a valid UUID"
		} else {
			filter.CategoryID = &id
		}
	}
	if v := q.Get("freelancer"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			fields["freelancer"] = "must be a valid UUID"
		} else {
			filter.FreelancerID = &id
		}
	}
	if v := q.Get("minPrice"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fields["minPrice"] = "must be a number"
		} else {
			filter.MinPrice = &f
		}
	}
	if v := q.Get("maxPrice"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fields["maxPrice"] = "must be a number"
		} else {
			filter.MaxPrice = &f
		}
	}
	if v := q.Get("rating"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fields["rating"] = "must be a number"
		} else {
			filter.MinRating = &f
		}
	}
	if v := q.Get("deliveryTime"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fields["deliveryTime"] = "must be an integer"
		} else {
			filter.MaxDeliveryDays = &n
		}
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			fields["page"] = "must be a positive integer"
		} else {
			filter.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			fields["limit"] = "must be a positive integer"
		} else {
			filter.Limit = n
		}
	}

	return filter, fields
}
