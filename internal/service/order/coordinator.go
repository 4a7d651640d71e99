// Package order implements the gig order/escrow transaction coordinator:
// validation of the buyer's package selection against the stored catalog,
// then an all-or-nothing write group creating the order, the escrow payment,
// the gig counter increment and the notification fan-out.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskfi/marketplace/internal/domain"
	"github.com/taskfi/marketplace/internal/outbox"
	"github.com/taskfi/marketplace/internal/repository"
	"github.com/taskfi/marketplace/pkg/escrow"
)

// StatusInProgress is the derived display status of a freshly placed order.
// It is not persisted: payment in escrow implies the order is in progress.
const StatusInProgress = "IN_PROGRESS"

// MaxPackageIndex is the highest selectable package tier.
const MaxPackageIndex = 2

// GigStore loads the gig and its owning freelancer.
type GigStore interface {
	GetGigWithFreelancer(ctx context.Context, id uuid.UUID) (*domain.Gig, *domain.UserSummary, error)
}

// UserStore resolves the buyer's profile.
type UserStore interface {
	GetUserSummary(ctx context.Context, id uuid.UUID) (*domain.UserSummary, error)
}

// Coordinator validates and executes gig orders.
type Coordinator struct {
	gigs   GigStore
	users  UserStore
	tx     repository.TxRunner
	logger *slog.Logger
}

func NewCoordinator(gigs GigStore, users UserStore, tx repository.TxRunner, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		gigs:   gigs,
		users:  users,
		tx:     tx,
		logger: logger,
	}
}

// PlaceOrderInput carries the buyer identity and the client-asserted package
// snapshot. The snapshot is untrusted and is validated against the stored
// catalog before any write.
type PlaceOrderInput struct {
	BuyerID      uuid.UUID
	GigID        uuid.UUID
	PackageIndex int
	Package      domain.Package
}

// Summary is the denormalized order view returned to the buyer.
type Summary struct {
	ID             uuid.UUID `json:"id"`
	GigTitle       string    `json:"gigTitle"`
	FreelancerName string    `json:"freelancerName"`
	PackageName    string    `json:"packageName"`
	Amount         float64   `json:"amount"`
	DeliveryDays   int       `json:"deliveryDays"`
	Status         string    `json:"status"`
}

// Result is the outcome of a successfully placed order.
type Result struct {
	OrderID   uuid.UUID
	PaymentID uuid.UUID
	Order     Summary
}

// PlaceOrder validates the selection and, if every precondition holds,
// creates the order, the escrow payment, the gig counter increment and both
// notifications in one transaction. Validation failures never touch storage;
// a failure inside the transaction rolls back every write.
func (c *Coordinator) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Result, error) {
	if in.BuyerID == uuid.Nil {
		return nil, domain.NewError(domain.ErrUnauthorized, "authentication required")
	}

	gig, freelancer, err := c.gigs.GetGigWithFreelancer(ctx, in.GigID)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			return nil, domain.NewError(domain.ErrNotFound, "gig not found")
		}
		return nil, fmt.Errorf("load gig %s: %w", in.GigID, err)
	}

	if gig.Status != domain.GigStatusActive {
		return nil, domain.NewError(domain.ErrInvalidState, "gig is not available for ordering")
	}

	if gig.FreelancerID == in.BuyerID {
		return nil, domain.NewError(domain.ErrInvalidOperation, "cannot order your own gig")
	}

	buyer, err := c.users.GetUserSummary(ctx, in.BuyerID)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			return nil, domain.NewError(domain.ErrNotFound, "user not found")
		}
		return nil, fmt.Errorf("load buyer %s: %w", in.BuyerID, err)
	}

	// The claim price must match the catalog at the selected index. This
	// guards against a stale or forged client-side price.
	if in.PackageIndex < 0 || in.PackageIndex > MaxPackageIndex || in.PackageIndex >= len(gig.Packages) {
		return nil, domain.NewError(domain.ErrInvalidInput, "invalid package selection")
	}
	if gig.Packages[in.PackageIndex].Price != in.Package.Price {
		return nil, domain.NewError(domain.ErrInvalidInput, "invalid package selection")
	}

	escrowAddress, err := escrow.NewHandle()
	if err != nil {
		return nil, fmt.Errorf("generate escrow handle: %w", err)
	}

	gigID := in.GigID
	application := &domain.Application{
		ID:             uuid.New(),
		Kind:           domain.KindGigOrder,
		FreelancerID:   gig.FreelancerID,
		GigID:          &gigID,
		CoverLetter:    fmt.Sprintf("Gig order: %s package", in.Package.Name),
		ProposedBudget: in.Package.Price,
		EstimatedDays:  in.Package.DeliveryDays,
		Attachments:    []string{},
		IsAccepted:     true, // gig orders are auto-accepted
	}
	payment := &domain.Payment{
		ID:            uuid.New(),
		Amount:        in.Package.Price,
		Currency:      domain.CurrencyUSDC,
		Status:        domain.PaymentStatusEscrow,
		FromUserID:    in.BuyerID,
		ToUserID:      gig.FreelancerID,
		GigID:         &gigID,
		EscrowAddress: escrowAddress,
	}

	data := map[string]any{
		"gigId":       in.GigID,
		"orderId":     application.ID,
		"packageName": in.Package.Name,
		"amount":      in.Package.Price,
	}
	sellerNote := &domain.Notification{
		ID:      uuid.New(),
		Title:   "New Gig Order!",
		Message: fmt.Sprintf("%s ordered your %q gig (%s package)", buyer.Name, gig.Title, in.Package.Name),
		Type:    domain.NotificationGigOrder,
		UserID:  gig.FreelancerID,
		Data:    data,
	}
	buyerNote := &domain.Notification{
		ID:      uuid.New(),
		Title:   "Order Confirmed",
		Message: fmt.Sprintf("Your order for %q has been confirmed. %s will start working on it.", gig.Title, freelancer.Name),
		Type:    domain.NotificationOrderConfirmation,
		UserID:  in.BuyerID,
		Data:    data,
	}

	err = c.tx.RunInTx(ctx, func(tx repository.TxWrites) error {
		if err := tx.CreateApplication(ctx, application); err != nil {
			return err
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}
		if err := tx.IncrementGigOrderCount(ctx, in.GigID); err != nil {
			return err
		}
		for _, n := range []*domain.Notification{sellerNote, buyerNote} {
			if err := tx.CreateNotification(ctx, n); err != nil {
				return err
			}
			if err := tx.AppendOutbox(ctx, outbox.TopicNotifications, n.UserID.String(), n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("place order for gig %s: %w", in.GigID, err)
	}

	c.logger.Info("gig_order_placed",
		"gig_id", in.GigID,
		"order_id", application.ID,
		"payment_id", payment.ID,
		"buyer_id", in.BuyerID,
		"amount", in.Package.Price,
	)

	return &Result{
		OrderID:   application.ID,
		PaymentID: payment.ID,
		Order: Summary{
			ID:             application.ID,
			GigTitle:       gig.Title,
			FreelancerName: freelancer.Name,
			PackageName:    in.Package.Name,
			Amount:         in.Package.Price,
			DeliveryDays:   in.Package.DeliveryDays,
			Status:         StatusInProgress,
		},
	}, nil
}
