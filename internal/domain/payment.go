package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusEscrow   PaymentStatus = "ESCROW"
	PaymentStatusReleased PaymentStatus = "RELEASED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// CurrencyUSDC is the only currency the gig order flow settles in.
const CurrencyUSDC = "USDC"

// Payment tracks funds held for a gig order. The escrow address is an opaque
// handle referencing the external escrow account; it is unique per order and
// never reused.
type Payment struct {
	ID            uuid.UUID     `json:"id"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	Status        PaymentStatus `json:"status"`
	FromUserID    uuid.UUID     `json:"fromUserId"`
	ToUserID      uuid.UUID     `json:"toUserId"`
	GigID         *uuid.UUID    `json:"gigId,omitempty"`
	EscrowAddress string        `json:"escrowAddress"`
	CreatedAt     time.Time     `json:"createdAt"`
}
