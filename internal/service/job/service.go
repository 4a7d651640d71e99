// Package job implements job postings and the job application flow. Unlike
// gig orders, job applications are created pending and wait for the hirer's
// approval.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskfi/marketplace/internal/domain"
	"github.com/taskfi/marketplace/internal/outbox"
	"github.com/taskfi/marketplace/internal/repository"
)

const (
	DefaultPageLimit = 12
	MaxPageLimit     = 50
)

// JobStore is the storage surface for job postings.
type JobStore interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJobByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	ListJobs(ctx context.Context, status domain.JobStatus, categoryID *uuid.UUID, page, limit int) ([]domain.Job, error)
	HasApplication(ctx context.Context, jobID, freelancerID uuid.UUID) (bool, error)
}

type CategoryStore interface {
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
}

type RoleStore interface {
	GetUserRole(ctx context.Context, id uuid.UUID) (domain.Role, error)
}

type UserStore interface {
	GetUserSummary(ctx context.Context, id uuid.UUID) (*domain.UserSummary, error)
}

// PermissionChecker answers role questions for job operations.
type PermissionChecker interface {
	CanPostJobs(role domain.Role) (bool, error)
	CanApplyToJobs(role domain.Role) (bool, error)
}

type Service struct {
	jobs       JobStore
	categories CategoryStore
	roles      RoleStore
	users      UserStore
	perms      PermissionChecker
	tx         repository.TxRunner
	logger     *slog.Logger
}

func NewService(
	jobs JobStore,
	categories CategoryStore,
	roles RoleStore,
	users UserStore,
	perms PermissionChecker,
	tx repository.TxRunner,
	logger *slog.Logger,
) *Service {
	return &Service{
		jobs:       jobs,
		categories: categories,
		roles:      roles,
		users:      users,
		perms:      perms,
		tx:         tx,
		logger:     logger,
	}
}

// CreateJobInput is the validated shape of a job posting request.
type CreateJobInput struct {
	Title       string
	Description string
	Budget      float64
	CategoryID  uuid.UUID
}

// CreateJob validates and persists a new OPEN job for the hirer.
func (s *Service) CreateJob(ctx context.Context, hirerID uuid.UUID, in CreateJobInput) (*domain.Job, error) {
	if hirerID == uuid.Nil {
		return nil, domain.NewError(domain.ErrUnauthorized, "authentication required")
	}

	role, err := s.roles.GetUserRole(ctx, hirerID)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			return nil, domain.NewError(domain.ErrNotFound, "user not found")
		}
		return nil, fmt.Errorf("load role for user %s: %w", hirerID, err)
	}

	allowed, err := s.perms.CanPostJobs(role)
	if err != nil {
		return nil, fmt.Errorf("check job permission for role %s: %w", role, err)
	}
	if !allowed {
		return nil, domain.NewError(domain.ErrInvalidOperation, "only hirers can post jobs")
	}

	if fields := validateCreateJob(in); len(fields) > 0 {
		return nil, domain.NewValidationError("job validation failed", fields)
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

	job := &domain.Job{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: in.Description,
		Budget:      in.Budget,
		CategoryID:  in.CategoryID,
		HirerID:     hirerID,
		Status:      domain.JobStatusOpen,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.logger.Info("job_created", "job_id", job.ID, "hirer_id", hirerID)

	return job, nil
}

// ListJobs returns one page of OPEN jobs unless another status is asked for.
func (s *Service) ListJobs(ctx context.Context, status domain.JobStatus, categoryID *uuid.UUID, page, limit int) ([]domain.Job, error) {
	if status == "" {
		status = domain.JobStatusOpen
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	jobs, err := s.jobs.ListJobs(ctx, status, categoryID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}

	return jobs, nil
}

// ApplyInput is a freelancer's application to a job.
type ApplyInput struct {
	FreelancerID   uuid.UUID
	JobID          uuid.UUID
	CoverLetter    string
	ProposedBudget float64
	EstimatedDays  int
	Attachments    []string
}

// Apply creates a pending application and notifies the hirer, in one
// transaction with the notification's outbox record.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (*domain.Application, error) {
	if in.FreelancerID == uuid.Nil {
		return nil, domain.NewError(domain.ErrUnauthorized, "authentication required")
	}

	role, err := s.roles.GetUserRole(ctx, in.FreelancerID)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			return nil, domain.NewError(domain.ErrNotFound, "user not found")
		}
		return nil, fmt.Errorf("load role for user %s: %w", in.FreelancerID, err)
	}

	allowed, err := s.perms.CanApplyToJobs(role)
	if err != nil {
		return nil, fmt.Errorf("check apply permission for role %s: %w", role, err)
	}
	if !allowed {
		return nil, domain.NewError(domain.ErrInvalidOperation, "only freelancers can apply to jobs")
	}

	job, err := s.jobs.GetJobByID(ctx, in.JobID)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			return nil, domain.NewError(domain.ErrNotFound, "job not found")
		}
		return nil, fmt.Errorf("load job %s: %w", in.JobID, err)
	}

	if job.Status != domain.JobStatusOpen {
		return nil, domain.NewError(domain.ErrInvalidState, "job is not open for applications")
	}
	if job.HirerID == in.FreelancerID {
		return nil, domain.NewError(domain.ErrInvalidOperation, "cannot apply to your own job")
	}

	if fields := validateApply(in); len(fields) > 0 {
		return nil, domain.NewValidationError("application validation failed", fields)
	}

	applied, err := s.jobs.HasApplication(ctx, in.JobID, in.FreelancerID)
	if err != nil {
		return nil, fmt.Errorf("check existing application: %w", err)
	}
	if applied {
		return nil, domain.NewError(domain.ErrInvalidOperation, "already applied to this job")
	}

	freelancer, err := s.users.GetUserSummary(ctx, in.FreelancerID)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			return nil, domain.NewError(domain.ErrNotFound, "user not found")
		}
		return nil, fmt.Errorf("load freelancer %s: %w", in.FreelancerID, err)
	}

	jobID := in.JobID
	application := &domain.Application{
		ID:             uuid.New(),
		Kind:           domain.KindJobApplication,
		FreelancerID:   in.FreelancerID,
		JobID:          &jobID,
		CoverLetter:    in.CoverLetter,
		ProposedBudget: in.ProposedBudget,
		EstimatedDays:  in.EstimatedDays,
		Attachments:    orEmpty(in.Attachments),
		IsAccepted:     false, // job applications wait for the hirer
	}
	note := &domain.Notification{
		ID:      uuid.New(),
		Title:   "New Job Application",
		Message: fmt.Sprintf("%s applied to your %q job", freelancer.Name, job.Title),
		Type:    domain.NotificationJobApplication,
		UserID:  job.HirerID,
		Data: map[string]any{
			"jobId":         in.JobID,
			"applicationId": application.ID,
			"budget":        in.ProposedBudget,
		},
	}

	err = s.tx.RunInTx(ctx, func(tx repository.TxWrites) error {
		if err := tx.CreateApplication(ctx, application); err != nil {
			return err
		}
		if err := tx.CreateNotification(ctx, note); err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, outbox.TopicNotifications, note.UserID.String(), note)
	})
	if err != nil {
		return nil, fmt.Errorf("apply to job %s: %w", in.JobID, err)
	}

	s.logger.Info("job_application_created",
		"job_id", in.JobID,
		"application_id", application.ID,
		"freelancer_id", in.FreelancerID,
	)

	return application, nil
}

func validateCreateJob(in CreateJobInput) map[string]string {
	fields := make(map[string]string)

	if n := len(in.Title); n < 10 || n > 100 {
		fields["title"] = "must be 10-100 characters"
	}
	if n := len(in.Description); n < 50 || n > 5000 {
		fields["description"] = "must be 50-5000 characters"
	}
	if in.Budget <= 0 {
		fields["budget"] = "must be positive"
	}
	if in.CategoryID == uuid.Nil {
		fields["categoryId"] = "is required"
	}

	return fields
}

func validateApply(in ApplyInput) map[string]string {
	fields := make(map[string]string)

	if in.CoverLetter == "" {
		fields["coverLetter"] = "is required"
	}
	if in.ProposedBudget <= 0 {
		fields["proposedBudget"] = "must be positive"
	}
	if in.EstimatedDays < 1 {
		fields["estimatedDays"] = "must be at least 1 day"
	}

	return fields
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
