package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskfi/marketplace/internal/domain"
)

// TxWrites groups the write operations available inside one storage
// transaction. A function handed to a TxRunner either succeeds as a whole or
// leaves no trace: partial visibility (a payment without its order, a counter
// increment without a payment) is never an acceptable intermediate state.
type TxWrites interface {
	CreateApplication(ctx context.Context, app *domain.Application) error
	CreatePayment(ctx context.Context, payment *domain.Payment) error
	IncrementGigOrderCount(ctx context.Context, gigID uuid.UUID) error
	CreateNotification(ctx context.Context, n *domain.Notification) error
	AppendOutbox(ctx context.Context, topic, key string, payload any) error
}

// TxRunner executes fn inside a single all-or-nothing transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx TxWrites) error) error
}
