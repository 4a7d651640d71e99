package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationKind tags the two variants sharing the applications table: a
// freelancer applying to a job, and a buyer ordering a gig package. Gig
// orders are always created pre-accepted; job applications wait for the
// hirer's approval.
type ApplicationKind string

const (
	KindJobApplication ApplicationKind = "JOB_APPLICATION"
	KindGigOrder       ApplicationKind = "GIG_ORDER"
)

type Application struct {
	ID             uuid.UUID       `json:"id"`
	Kind           ApplicationKind `json:"kind"`
	FreelancerID   uuid.UUID       `json:"freelancerId"`
	JobID          *uuid.UUID      `json:"jobId,omitempty"`
	GigID          *uuid.UUID      `json:"gigId,omitempty"`
	CoverLetter    string          `json:"coverLetter"`
	ProposedBudget float64         `json:"proposedBudget"`
	EstimatedDays  int             `json:"estimatedDays"`
	Attachments    []string        `json:"attachments"`
	IsAccepted     bool            `json:"isAccepted"`
	CreatedAt      time.Time       `json:"createdAt"`
}
