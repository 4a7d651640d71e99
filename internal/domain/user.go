package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleFreelancer Role = "FREELANCER"
	RoleHirer      Role = "HIRER"
	RoleAdmin      Role = "ADMIN"
)

// User is a marketplace account keyed by a Solana wallet address.
type User struct {
	ID            uuid.UUID `json:"id"`
	WalletAddress string    `json:"walletAddress"`
	Name          string    `json:"name"`
	Username      string    `json:"username"`
	Bio           string    `json:"bio,omitempty"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	Role          Role      `json:"role"`
	IsVerified    bool      `json:"isVerified"`
	Rating        float64   `json:"rating"`
	TotalEarned   float64   `json:"totalEarned"`
	TotalSpent    float64   `json:"totalSpent"`
	CreatedAt     time.Time `json:"createdAt"`
}

// UserSummary is the denormalized slice of a user embedded in listings and
// order responses.
type UserSummary struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Username      string    `json:"username"`
	WalletAddress string    `json:"walletAddress"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	Rating        float64   `json:"rating"`
	IsVerified    bool      `json:"isVerified"`
}
