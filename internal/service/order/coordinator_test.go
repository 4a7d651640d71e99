package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taskfi/marketplace/internal/domain"
	"github.com/taskfi/marketplace/internal/repository"
)

type mockGigStore struct {
	mock.Mock
}

func (m *mockGigStore) GetGigWithFreelancer(ctx context.Context, id uuid.UUID) (*domain.Gig, *domain.UserSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Gig), args.Get(1).(*domain.UserSummary), args.Error(2)
}

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) GetUserSummary(ctx context.Context, id uuid.UUID) (*domain.UserSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserSummary), args.Error(1)
}

// recordingTx captures every write handed to the transaction so tests can
// assert exactly what would be committed.
type recordingTx struct {
	applications  []*domain.Application
	payments      []*domain.Payment
	increments    []uuid.UUID
	notifications []*domain.Notification
	outbox        []string

	failPayment error
}

func (tx *recordingTx) CreateApplication(_ context.Context, app *domain.Application) error {
	tx.applications = append(tx.applications, app)
	return nil
}

func (tx *recordingTx) CreatePayment(_ context.Context, payment *domain.Payment) error {
	if tx.failPayment != nil {
		return tx.failPayment
	}
	tx.payments = append(tx.payments, payment)
	return nil
}

func (tx *recordingTx) IncrementGigOrderCount(_ context.Context, gigID uuid.UUID) error {
	tx.increments = append(tx.increments, gigID)
	return nil
}

func (tx *recordingTx) CreateNotification(_ context.Context, n *domain.Notification) error {
	tx.notifications = append(tx.notifications, n)
	return nil
}

func (tx *recordingTx) AppendOutbox(_ context.Context, topic, key string, _ any) error {
	tx.outbox = append(tx.outbox, topic+"/"+key)
	return nil
}

// recordingRunner mimics the all-or-nothing contract: when fn errors, the
// recorded writes are discarded.
type recordingRunner struct {
	tx     *recordingTx
	called int
}

func (r *recordingRunner) RunInTx(ctx context.Context, fn func(tx repository.TxWrites) error) error {
	r.called++
	staging := *r.tx
	if err := fn(r.tx); err != nil {
		*r.tx = staging
		return err
	}
	return nil
}

func basicPackage() domain.Package {
	return domain.Package{
		Name:         "Basic",
		Price:        500,
		DeliveryDays: 7,
		Features:     []string{"Simple smart contract"},
	}
}

func activeGig(freelancerID uuid.UUID) *domain.Gig {
	return &domain.Gig{
		ID:           uuid.New(),
		Title:        "Logo Design",
		FreelancerID: freelancerID,
		Status:       domain.GigStatusActive,
		Packages: []domain.Package{
			basicPackage(),
			{Name: "Standard", Price: 1200, DeliveryDays: 14, Features: []string{"Complex smart contract"}},
		},
	}
}

func testCoordinator(gigs *mockGigStore, users *mockUserStore, runner *recordingRunner) *Coordinator {
	return NewCoordinator(gigs, users, runner, slog.New(slog.DiscardHandler))
}

func TestCoordinator_PlaceOrder(t *testing.T) {
	freelancerID := uuid.New()
	buyerID := uuid.New()
	gig := activeGig(freelancerID)
	freelancer := &domain.UserSummary{ID: freelancerID, Name: "Alex Chen", Username: "alexchen_dev"}
	buyer := &domain.UserSummary{ID: buyerID, Name: "TechCorp Ventures", Username: "techcorp_vc"}

	gigs := new(mockGigStore)
	gigs.On("GetGigWithFreelancer", mock.Anything, gig.ID).Return(gig, freelancer, nil)
	users := new(mockUserStore)
	users.On("GetUserSummary", mock.Anything, buyerID).Return(buyer, nil)

	tx := &recordingTx{}
	runner := &recordingRunner{tx: tx}
	coordinator := testCoordinator(gigs, users, runner)

	result, err := coordinator.PlaceOrder(context.Background(), PlaceOrderInput{
		BuyerID:      buyerID,
		GigID:        gig.ID,
		PackageIndex: 0,
		Package:      basicPackage(),
	})
	require.NoError(t, err)

	// Exactly one order, one payment, one counter increment.
	require.Len(t, tx.applications, 1)
	require.Len(t, tx.payments, 1)
	require.Equal(t, []uuid.UUID{gig.ID}, tx.increments)

	app := tx.applications[0]
	assert.Equal(t, domain.KindGigOrder, app.Kind)
	assert.Equal(t, freelancerID, app.FreelancerID)
	assert.Equal(t, gig.ID, *app.GigID)
	assert.Equal(t, "Gig order: Basic package", app.CoverLetter)
	assert.Equal(t, 500.0, app.ProposedBudget)
	assert.Equal(t, 7, app.EstimatedDays)
	assert.True(t, app.IsAccepted, "gig orders are auto-accepted")

	payment := tx.payments[0]
	assert.Equal(t, 500.0, payment.Amount)
	assert.Equal(t, domain.CurrencyUSDC, payment.Currency)
	assert.Equal(t, domain.PaymentStatusEscrow, payment.Status)
	assert.Equal(t, buyerID, payment.FromUserID)
	assert.Equal(t, freelancerID, payment.ToUserID)
	assert.True(t, strings.HasPrefix(payment.EscrowAddress, "escrow_"))

	// Seller and buyer notifications, each with an outbox record.
	require.Len(t, tx.notifications, 2)
	seller, buyerNote := tx.notifications[0], tx.notifications[1]
	assert.Equal(t, "New Gig Order!", seller.Title)
	assert.Equal(t, domain.NotificationGigOrder, seller.Type)
	assert.Equal(t, freelancerID, seller.UserID)
	assert.Contains(t, seller.Message, "TechCorp Ventures")
	assert.Contains(t, seller.Message, "Logo Design")
	assert.Equal(t, "Order Confirmed", buyerNote.Title)
	assert.Equal(t, domain.NotificationOrderConfirmation, buyerNote.Type)
	assert.Equal(t, buyerID, buyerNote.UserID)
	assert.Contains(t, buyerNote.Message, "Alex Chen")
	for _, n := range tx.notifications {
		assert.Equal(t, app.ID, n.Data["orderId"])
		assert.Equal(t, "Basic", n.Data["packageName"])
		assert.Equal(t, 500.0, n.Data["amount"])
	}
	assert.Len(t, tx.outbox, 2)

	// Response assembly.
	assert.Equal(t, app.ID, result.OrderID)
	assert.Equal(t, payment.ID, result.PaymentID)
	assert.Equal(t, "Logo Design", result.Order.GigTitle)
	assert.Equal(t, "Alex Chen", result.Order.FreelancerName)
	assert.Equal(t, "Basic", result.Order.PackageName)
	assert.Equal(t, 500.0, result.Order.Amount)
	assert.Equal(t, 7, result.Order.DeliveryDays)
	assert.Equal(t, StatusInProgress, result.Order.Status)
}

func TestCoordinator_PlaceOrder_ValidationFailures(t *testing.T) {
	freelancerID := uuid.New()
	buyerID := uuid.New()

	testCases := map[string]struct {
		input          func(gigID uuid.UUID) PlaceOrderInput
		gig            func() *domain.Gig
		gigErr         error
		buyer          *domain.UserSummary
		buyerErr       error
		expectedKind   domain.ErrorKind
		expectedDetail string
	}{
		"should reject missing buyer identity": {
			input: func(gigID uuid.UUID) PlaceOrderInput {
				return PlaceOrderInput{GigID: gigID, Package: basicPackage()}
			},
			gig:          func() *domain.Gig { return activeGig(freelancerID) },
			expectedKind: domain.ErrUnauthorized,
		},
		"should reject missing gig": {
			input: func(gigID uuid.UUID) PlaceOrderInput {
				return PlaceOrderInput{BuyerID: buyerID, GigID: gigID, Package: basicPackage()}
			},
			gig:            func() *domain.Gig { return nil },
			gigErr:         &repository.NotFoundError{Resource: "gig", Key: "id", Value: "x"},
			expectedKind:   domain.ErrNotFound,
			expectedDetail: "gig not found",
		},
		"should reject paused gig": {
			input: func(gigID uuid.UUID) PlaceOrderInput {
				return PlaceOrderInput{BuyerID: buyerID, GigID: gigID, Package: basicPackage()}
			},
			gig: func() *domain.Gig {
				g := activeGig(freelancerID)
				g.Status = domain.GigStatusPaused
				return g
			},
			expectedKind:   domain.ErrInvalidState,
			expectedDetail: "gig is not available for ordering",
		},
		"should reject inactive gig": {
			input: func(gigID uuid.UUID) PlaceOrderInput {
				return PlaceOrderInput{BuyerID: buyerID, GigID: gigID, Package: basicPackage()}
			},
			gig: func() *domain.Gig {
				g := activeGig(freelancerID)
				g.Status = domain.GigStatusInactive
				return g
			},
			expectedKind:   domain.ErrInvalidState,
			expectedDetail: "gig is not available for ordering",
		},
		"should reject ordering own gig": {
			input: func(gigID uuid.UUID) PlaceOrderInput {
				return PlaceOrderInput{BuyerID: freelancerID, GigID: gigID, Package: basicPackage()}
			},
			gig:            func() *domain.Gig { return activeGig(freelancerID) },
			expectedKind:   domain.ErrInvalidOperation,
			expectedDetail: "cannot order your own gig",
		},
		"should reject unknown buyer": {
			input: func(gigID uuid.UUID) PlaceOrderInput {
				return PlaceOrderInput{BuyerID: buyerID, GigID: gigID, Package: basicPackage()}
			},
			gig:            func() *domain.Gig { return activeGig(freelancerID) },
			buyerErr:       &repository.NotFoundError{Resource: "user", Key: "id", Value: "x"},
			expectedKind:   domain.ErrNotFound,
			expectedDetail: "user not found",
		},
		"should reject package index out of bounds": {
			input: func(gigID uuid.UUID) PlaceOrderInput {
				return PlaceOrderInput{BuyerID: buyerID, GigID: gigID, PackageIndex: 2, Package: basicPackage()}
			},
			gig:            func() *domain.Gig { return activeGig(freelancerID) },
			buyer:          &domain.UserSummary{ID: buyerID, Name: "Buyer"},
			expectedKind:   domain.ErrInvalidInput,
			expectedDetail: "invalid package selection",
		},
		"should reject forged package price": {
			input: func(gigID uuid.UUID) PlaceOrderInput {
				pkg := basicPackage()
				pkg.Price = 1
				return PlaceOrderInput{BuyerID: buyerID, GigID: gigID, PackageIndex: 0, Package: pkg}
			},
			gig:            func() *domain.Gig { return activeGig(freelancerID) },
			buyer:          &domain.UserSummary{ID: buyerID, Name: "Buyer"},
			expectedKind:   domain.ErrInvalidInput,
			expectedDetail: "invalid package selection",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			gig := tc.gig()
			gigID := uuid.New()
			if gig != nil {
				gigID = gig.ID
			}

			gigs := new(mockGigStore)
			if gig != nil {
				gigs.On("GetGigWithFreelancer", mock.Anything, gigID).Return(gig, &domain.UserSummary{ID: freelancerID, Name: "Alex Chen"}, nil)
			} else {
				gigs.On("GetGigWithFreelancer", mock.Anything, gigID).Return(nil, nil, tc.gigErr)
			}

			users := new(mockUserStore)
			if tc.buyerErr != nil {
				users.On("GetUserSummary", mock.Anything, buyerID).Return(nil, tc.buyerErr)
			} else {
				buyer := tc.buyer
				if buyer == nil {
					buyer = &domain.UserSummary{ID: buyerID, Name: "Buyer"}
				}
				users.On("GetUserSummary", mock.Anything, buyerID).Return(buyer, nil)
			}

			tx := &recordingTx{}
			runner := &recordingRunner{tx: tx}
			coordinator := testCoordinator(gigs, users, runner)

			result, err := coordinator.PlaceOrder(context.Background(), tc.input(gigID))

			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tc.expectedKind, domain.KindOf(err))
			if tc.expectedDetail != "" {
				assert.ErrorContains(t, err, tc.expectedDetail)
			}

			// Validation failures never touch storage.
			assert.Zero(t, runner.called, "transaction must not start")
			assert.Empty(t, tx.applications)
			assert.Empty(t, tx.payments)
			assert.Empty(t, tx.increments)
			assert.Empty(t, tx.notifications)
		})
	}
}

func TestCoordinator_PlaceOrder_TransactionRollback(t *testing.T) {
	freelancerID := uuid.New()
	buyerID := uuid.New()
	gig := activeGig(freelancerID)

	gigs := new(mockGigStore)
	gigs.On("GetGigWithFreelancer", mock.Anything, gig.ID).Return(gig, &domain.UserSummary{ID: freelancerID, Name: "Alex Chen"}, nil)
	users := new(mockUserStore)
	users.On("GetUserSummary", mock.Anything, buyerID).Return(&domain.UserSummary{ID: buyerID, Name: "Buyer"}, nil)

	// Storage fails after order creation, before payment creation.
	tx := &recordingTx{failPayment: errors.New("connection reset")}
	runner := &recordingRunner{tx: tx}
	coordinator := testCoordinator(gigs, users, runner)

	result, err := coordinator.PlaceOrder(context.Background(), PlaceOrderInput{
		BuyerID:      buyerID,
		GigID:        gig.ID,
		PackageIndex: 0,
		Package:      basicPackage(),
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, domain.ErrInternal, domain.KindOf(err))

	// No partial commit: the rolled-back attempt leaves nothing visible.
	assert.Equal(t, 1, runner.called)
	assert.Empty(t, tx.applications)
	assert.Empty(t, tx.payments)
	assert.Empty(t, tx.increments)
	assert.Empty(t, tx.notifications)
	assert.Empty(t, tx.outbox)
}

func TestCoordinator_PlaceOrder_UniqueEscrowHandles(t *testing.T) {
	freelancerID := uuid.New()
	gig := activeGig(freelancerID)

	gigs := new(mockGigStore)
	gigs.On("GetGigWithFreelancer", mock.Anything, gig.ID).Return(gig, &domain.UserSummary{ID: freelancerID, Name: "Alex Chen"}, nil)

	tx := &recordingTx{}
	runner := &recordingRunner{tx: tx}

	const orders = 20
	seen := make(map[string]bool, orders)
	for i := 0; i < orders; i++ {
		buyerID := uuid.New()
		users := new(mockUserStore)
		users.On("GetUserSummary", mock.Anything, buyerID).Return(&domain.UserSummary{ID: buyerID, Name: fmt.Sprintf("Buyer %d", i)}, nil)

		coordinator := testCoordinator(gigs, users, runner)
		_, err := coordinator.PlaceOrder(context.Background(), PlaceOrderInput{
			BuyerID:      buyerID,
			GigID:        gig.ID,
			PackageIndex: 0,
			Package:      basicPackage(),
		})
		require.NoError(t, err)
	}

	require.Len(t, tx.payments, orders)
	for _, p := range tx.payments {
		assert.False(t, seen[p.EscrowAddress], "escrow handle reused: %s", p.EscrowAddress)
		seen[p.EscrowAddress] = true
	}
}
