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
	"github.com/taskfi/marketplace/internal/service/job"
)

// JobService is the interface the handler needs from the job service.
type JobService interface {
	CreateJob(ctx context.Context, hirerID uuid.UUID, in job.CreateJobInput) (*domain.Job, error)
	ListJobs(ctx context.Context, status domain.JobStatus, categoryID *uuid.UUID, page, limit int) ([]domain.Job, error)
	Apply(ctx context.Context, in job.ApplyInput) (*domain.Application, error)
}

type JobHandler struct {
	jobs   JobService
	logger *slog.Logger
}

func NewJobHandler(jobs JobService, logger *slog.Logger) *JobHandler {
	return &JobHandler{
		jobs:   jobs,
		logger: logger,
	}
}

// CreateJobRequest is the request payload for posting a job.
type CreateJobRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Budget      float64   `json:"budget"`
	CategoryID  uuid.UUID `json:"categoryId"`
}

// CreateJob handles POST /jobs.
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "invalid_input", "Invalid request body")
		return
	}

	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "unauthorized", "User authentication is required")
		return
	}

	created, err := h.jobs.CreateJob(r.Context(), userID, job.CreateJobInput{
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	WriteJSONResponse(w, http.StatusCreated, map[string]any{"job": created})
}

// ListJobs handles GET /jobs.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var categoryID *uuid.UUID
	if v := q.Get("category"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "invalid_input", "Category must be a valid UUID")
			return
		}
		categoryID = &id
	}

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	jobs, err := h.jobs.ListJobs(r.Context(), domain.JobStatus(q.Get("status")), categoryID, page, limit)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	WriteJSONResponse(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// ApplyRequest is the request payload for applying to a job.
type ApplyRequest struct {
	CoverLetter    string   `json:"coverLetter"`
	ProposedBudget float64  `json:"proposedBudget"`
	EstimatedDays  int      `json:"estimatedDays"`
	Attachments    []string `json:"attachments"`
}

// Apply handles POST /jobs/{id}/apply.
func (h *JobHandler) Apply(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "invalid_input", "Job ID must be a valid UUID")
		return
	}

	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "invalid_input", "Invalid request body")
		return
	}

	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "unauthorized", "User authentication is required")
		return
	}

	application, err := h.jobs.Apply(r.Context(), job.ApplyInput{
		FreelancerID:   userID,
		JobID:          jobID,
		CoverLetter:    req.CoverLetter,
		ProposedBudget: req.ProposedBudget,
		EstimatedDays:  req.EstimatedDays,
		Attachments:    req.Attachments,
	})
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	WriteJSONResponse(w, http.StatusCreated, map[string]any{"application": application})
}
