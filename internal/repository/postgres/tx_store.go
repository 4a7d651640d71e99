package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskfi/marketplace/internal/domain"
	"github.com/taskfi/marketplace/internal/repository"
)

// TxStore runs grouped writes inside a single database transaction. It backs
// the order/escrow coordinator and the job application flow: either every
// write in the function commits, or none do.
type TxStore struct {
	pool *pgxpool.Pool
}

func NewTxStore(pool *pgxpool.Pool) *TxStore {
	return &TxStore{pool: pool}
}

// RunInTx begins a transaction, hands its write surface to fn, and commits
// only if fn returns nil. Any error rolls the whole unit back.
func (s *TxStore) RunInTx(ctx context.Context, fn func(tx repository.TxWrites) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&txWrites{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

type txWrites struct {
	tx pgx.Tx
}

func (w *txWrites) CreateApplication(ctx context.Context, app *domain.Application) error {
	const query = `
INSERT INTO applications (id, kind, freelancer_id, job_id, gig_id, cover_letter, proposed_budget, estimated_days, attachments, is_accepted)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at`

	err := w.tx.QueryRow(ctx, query,
		app.ID,
		app.Kind,
		app.FreelancerID,
		app.JobID,
		app.GigID,
		app.CoverLetter,
		app.ProposedBudget,
		app.EstimatedDays,
		app.Attachments,
		app.IsAccepted,
	).Scan(&app.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return nil
}

func (w *txWrites) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	const query = `
INSERT INTO payments (id, amount, currency, status, from_user_id, to_user_id, gig_id, escrow_address)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at`

	err := w.tx.QueryRow(ctx, query,
		payment.ID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.FromUserID,
		payment.ToUserID,
		payment.GigID,
		payment.EscrowAddress,
	).Scan(&payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// IncrementGigOrderCount applies the counter bump as an atomic
// read-modify-write in the row, so concurrent orders on the same gig never
// lose increments.
func (w *txWrites) IncrementGigOrderCount(ctx context.Context, gigID uuid.UUID) error {
	const query = `UPDATE gigs SET order_count = order_count + 1 WHERE id = $1`

	tag, err := w.tx.Exec(ctx, query, gigID)
	if err != nil {
		return fmt.Errorf("increment order count for gig %s: %w", gigID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("increment order count: gig %s not found", gigID)
	}

	return nil
}

func (w *txWrites) CreateNotification(ctx context.Context, n *domain.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("encode notification data: %w", err)
	}

	const query = `
INSERT INTO notifications (id, title, message, type, user_id, data)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at`

	err = w.tx.QueryRow(ctx, query,
		n.ID,
		n.Title,
		n.Message,
		n.Type,
		n.UserID,
		data,
	).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// AppendOutbox records an event for the relay to deliver after commit.
// Delivery is at-least-once; the financial writes never wait on a broker.
func (w *txWrites) AppendOutbox(ctx context.Context, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode outbox payload: %w", err)
	}

	const query = `INSERT INTO outbox (event_id, topic, key, payload) VALUES ($1, $2, $3, $4)`

	if _, err := w.tx.Exec(ctx, query, uuid.NewString(), topic, key, data); err != nil {
		return fmt.Errorf("failed to append outbox record: %w", err)
	}

	return nil
}
