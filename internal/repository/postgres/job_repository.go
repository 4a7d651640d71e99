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
	JobResource = "job"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

// CreateJob creates a new job posting.
func (r *JobRepository) CreateJob(ctx context.Context, job *domain.Job) error {
	const query = `
INSERT INTO jobs (id, title, description, budget, category_id, hirer_id, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		job.ID,
		job.Title,
		job.Description,
		job.Budget,
		job.CategoryID,
		job.HirerID,
		job.Status,
	).Scan(&job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJobByID retrieves a job by its ID.
func (r *JobRepository) GetJobByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	const query = `
SELECT id, title, description, budget, category_id, hirer_id, status, created_at
FROM jobs
WHERE id = $1`

	var job domain.Job
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.Title,
		&job.Description,
		&job.Budget,
		&job.CategoryID,
		&job.HirerID,
		&job.Status,
		&job.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &repository.NotFoundError{
				Resource: JobResource,
				Key:      "id",
				Value:    id.String(),
			}
		}
		return nil, fmt.Errorf("query job %s: %w", id, err)
	}

	return &job, nil
}

// ListJobs returns one page of jobs, newest first, optionally narrowed by
// status and category.
func (r *JobRepository) ListJobs(ctx context.Context, status domain.JobStatus, categoryID *uuid.UUID, page, limit int) ([]domain.Job, error) {
	query := `
SELECT id, title, description, budget, category_id, hirer_id, status, created_at
FROM jobs
WHERE status = $1`
	args := []any{status}

	if categoryID != nil {
		args = append(args, *categoryID)
		query += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT %d OFFSET %d", limit, (page-1)*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var job domain.Job
		if err := rows.Scan(
			&job.ID, &job.Title, &job.Description, &job.Budget,
			&job.CategoryID, &job.HirerID, &job.Status, &job.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// HasApplication reports whether a freelancer already applied to a job.
func (r *JobRepository) HasApplication(ctx context.Context, jobID, freelancerID uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM applications WHERE job_id = $1 AND freelancer_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, jobID, freelancerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check application for job %s: %w", jobID, err)
	}

	return exists, nil
}
