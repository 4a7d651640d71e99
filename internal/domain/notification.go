package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationGigOrder          NotificationType = "GIG_ORDER"
	NotificationOrderConfirmation NotificationType = "ORDER_CONFIRMATION"
	NotificationJobApplication    NotificationType = "JOB_APPLICATION"
)

type Notification struct {
	ID        uuid.UUID        `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	UserID    uuid.UUID        `json:"userId"`
	Data      map[string]any   `json:"data,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}
