package domain

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusOpen       JobStatus = "OPEN"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusCancelled  JobStatus = "CANCELLED"
)

// Job is a hirer-authored posting that freelancers apply to. Unlike gig
// orders, job applications are not pre-accepted.
type Job struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Budget      float64   `json:"budget"`
	CategoryID  uuid.UUID `json:"categoryId"`
	HirerID     uuid.UUID `json:"hirerId"`
	Status      JobStatus `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}
