package domain

import "github.com/google/uuid"

type Category struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Icon     string    `json:"icon,omitempty"`
	IsActive bool      `json:"isActive"`
}
