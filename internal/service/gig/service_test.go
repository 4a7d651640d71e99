package gig

import (
	"context"
	"errors"
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

func (m *mockGigStore) CreateGig(ctx context.Context, gig *domain.Gig) error {
	return m.Called(ctx, gig).Error(0)
}

func (m *mockGigStore) GetGigWithFreelancer(ctx context.Context, id uuid.UUID) (*domain.Gig, *domain.UserSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Gig), args.Get(1).(*domain.UserSummary), args.Error(2)
}

func (m *mockGigStore) CountActiveByFreelancer(ctx context.Context, freelancerID uuid.UUID) (int, error) {
	args := m.Called(ctx, freelancerID)
	return args.Int(0), args.Error(1)
}

func (m *mockGigStore) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockGigStore) ListGigs(ctx context.Context, filter repository.GigFilter) ([]repository.GigListItem, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]repository.GigListItem), args.Int(1), args.Error(2)
}

type mockCategoryStore struct {
	mock.Mock
}

func (m *mockCategoryStore) GetCategoryByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

type mockRoleStore struct {
	mock.Mock
}

func (m *mockRoleStore) GetUserRole(ctx context.Context, id uuid.UUID) (domain.Role, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Role), args.Error(1)
}

type allowAllPerms struct{}

func (allowAllPerms) CanManageGigs(domain.Role) (bool, error) { return true, nil }

type denyAllPerms struct{}

func (denyAllPerms) CanManageGigs(domain.Role) (bool, error) { return false, nil }

func validCreateInput(categoryID uuid.UUID) CreateGigInput {
	return CreateGigInput{
		Title:        "Solidity smart contract audit",
		Description:  strings.Repeat("Thorough line-by-line review of your contracts. ", 4),
		Deliverables: []string{"Audit report", "Fix recommendations"},
		Packages: []domain.Package{
			{Name: "Basic", Description: "Single contract review", Price: 500, DeliveryDays: 7, Revisions: 1, Features: []string{"1 contract"}},
			{Name: "Standard", Description: "Full protocol review", Price: 1500, DeliveryDays: 14, Revisions: 2, Features: []string{"Up to 5 contracts"}},
		},
		Tags:       []string{"solidity", "audit"},
		CategoryID: categoryID,
	}
}

func TestService_CreateGig(t *testing.T) {
	freelancerID := uuid.New()
	categoryID := uuid.New()
	category := &domain.Category{ID: categoryID, Name: "Smart Contracts", Icon: "contract", IsActive: true}

	t.Run("should create active gig with derived price fields", func(t *testing.T) {
		gigs := new(mockGigStore)
		gigs.On("CountActiveByFreelancer", mock.Anything, freelancerID).Return(3, nil)
		gigs.On("CreateGig", mock.Anything, mock.MatchedBy(func(g *domain.Gig) bool {
			return g.Status == domain.GigStatusActive && g.FreelancerID == freelancerID
		})).Return(nil)
		categories := new(mockCategoryStore)
		categories.On("GetCategoryByID", mock.Anything, categoryID).Return(category, nil)
		roles := new(mockRoleStore)
		roles.On("GetUserRole", mock.Anything, freelancerID).Return(domain.RoleFreelancer, nil)

		svc := NewService(gigs, categories, roles, allowAllPerms{}, slog.New(slog.DiscardHandler))
		item, err := svc.CreateGig(context.Background(), freelancerID, validCreateInput(categoryID))

		require.NoError(t, err)
		assert.Equal(t, domain.GigStatusActive, item.Status)
		assert.Equal(t, 500.0, item.MinPrice)
		assert.Equal(t, 1500.0, item.MaxPrice)
		assert.Equal(t, 7, item.MinDelivery)
		assert.Equal(t, "Smart Contracts", item.Category.Name)
		gigs.AssertExpectations(t)
	})

	t.Run("should reject callers without gig permission", func(t *testing.T) {
		roles := new(mockRoleStore)
		roles.On("GetUserRole", mock.Anything, freelancerID).Return(domain.RoleHirer, nil)

		svc := NewService(new(mockGigStore), new(mockCategoryStore), roles, denyAllPerms{}, slog.New(slog.DiscardHandler))
		_, err := svc.CreateGig(context.Background(), freelancerID, validCreateInput(categoryID))

		require.Error(t, err)
		assert.Equal(t, domain.ErrInvalidOperation, domain.KindOf(err))
		assert.ErrorContains(t, err, "only freelancers can create gigs")
	})

	t.Run("should reject non-ascending package prices", func(t *testing.T) {
		roles := new(mockRoleStore)
		roles.On("GetUserRole", mock.Anything, freelancerID).Return(domain.RoleFreelancer, nil)

		in := validCreateInput(categoryID)
		in.Packages[1].Price = 500

		svc := NewService(new(mockGigStore), new(mockCategoryStore), roles, allowAllPerms{}, slog.New(slog.DiscardHandler))
		_, err := svc.CreateGig(context.Background(), freelancerID, in)

		require.Error(t, err)
		assert.Equal(t, domain.ErrInvalidOperation, domain.KindOf(err))
		assert.ErrorContains(t, err, "ascending order")
	})

	t.Run("should reject at the active gig cap", func(t *testing.T) {
		gigs := new(mockGigStore)
		gigs.On("CountActiveByFreelancer", mock.Anything, freelancerID).Return(MaxActiveGigs, nil)
		categories := new(mockCategoryStore)
		categories.On("GetCategoryByID", mock.Anything, categoryID).Return(category, nil)
		roles := new(mockRoleStore)
		roles.On("GetUserRole", mock.Anything, freelancerID).Return(domain.RoleFreelancer, nil)

		svc := NewService(gigs, categories, roles, allowAllPerms{}, slog.New(slog.DiscardHandler))
		_, err := svc.CreateGig(context.Background(), freelancerID, validCreateInput(categoryID))

		require.Error(t, err)
		assert.Equal(t, domain.ErrInvalidOperation, domain.KindOf(err))
		assert.ErrorContains(t, err, "maximum active gigs limit reached (10)")
		gigs.AssertNotCalled(t, "CreateGig", mock.Anything, mock.Anything)
	})

	t.Run("should reject inactive category", func(t *testing.T) {
		categories := new(mockCategoryStore)
		categories.On("GetCategoryByID", mock.Anything, categoryID).
			Return(&domain.Category{ID: categoryID, Name: "Legacy", IsActive: false}, nil)
		roles := new(mockRoleStore)
		roles.On("GetUserRole", mock.Anything, freelancerID).Return(domain.RoleFreelancer, nil)

		svc := NewService(new(mockGigStore), categories, roles, allowAllPerms{}, slog.New(slog.DiscardHandler))
		_, err := svc.CreateGig(context.Background(), freelancerID, validCreateInput(categoryID))

		require.Error(t, err)
		assert.Equal(t, domain.ErrInvalidState, domain.KindOf(err))
	})
}

func TestService_CreateGig_FieldValidation(t *testing.T) {
	freelancerID := uuid.New()
	categoryID := uuid.New()

	testCases := map[string]struct {
		mutate        func(in *CreateGigInput)
		expectedField string
	}{
		"should reject short title": {
			mutate:        func(in *CreateGigInput) { in.Title = "Too short" },
			expectedField: "title",
		},
		"should reject short description": {
			mutate:        func(in *CreateGigInput) { in.Description = "Not nearly long enough." },
			expectedField: "description",
		},
		"should reject empty packages": {
			mutate:        func(in *CreateGigInput) { in.Packages = nil },
			expectedField: "packages",
		},
		"should reject four packages": {
			mutate: func(in *CreateGigInput) {
				p := in.Packages[0]
				in.Packages = []domain.Package{p, p, p, p}
			},
			expectedField: "packages",
		},
		"should reject price below the floor": {
			mutate:        func(in *CreateGigInput) { in.Packages[0].Price = 4 },
			expectedField: "packages[0].price",
		},
		"should reject price above the ceiling": {
			mutate:        func(in *CreateGigInput) { in.Packages[1].Price = 100001 },
			expectedField: "packages[1].price",
		},
		"should reject delivery beyond 90 days": {
			mutate:        func(in *CreateGigInput) { in.Packages[0].DeliveryDays = 91 },
			expectedField: "packages[0].deliveryDays",
		},
		"should reject more than 10 revisions": {
			mutate:        func(in *CreateGigInput) { in.Packages[0].Revisions = 11 },
			expectedField: "packages[0].revisions",
		},
		"should reject package without features": {
			mutate:        func(in *CreateGigInput) { in.Packages[0].Features = nil },
			expectedField: "packages[0].features",
		},
		"should reject too many tags": {
			mutate:        func(in *CreateGigInput) { in.Tags = make([]string, 11) },
			expectedField: "tags",
		},
		"should reject too many gallery images": {
			mutate:        func(in *CreateGigInput) { in.Gallery = make([]string, 11) },
			expectedField: "gallery",
		},
		"should reject missing category": {
			mutate:        func(in *CreateGigInput) { in.CategoryID = uuid.Nil },
			expectedField: "categoryId",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			roles := new(mockRoleStore)
			roles.On("GetUserRole", mock.Anything, freelancerID).Return(domain.RoleFreelancer, nil)

			in := validCreateInput(categoryID)
			tc.mutate(&in)

			svc := NewService(new(mockGigStore), new(mockCategoryStore), roles, allowAllPerms{}, slog.New(slog.DiscardHandler))
			_, err := svc.CreateGig(context.Background(), freelancerID, in)

			require.Error(t, err)
			var de *domain.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, domain.ErrInvalidInput, de.Kind)
			assert.Contains(t, de.Fields, tc.expectedField)
		})
	}
}

func TestService_ListGigs(t *testing.T) {
	t.Run("should normalize paging and compute pages from the true total", func(t *testing.T) {
		gigs := new(mockGigStore)
		gigs.On("ListGigs", mock.Anything, mock.MatchedBy(func(f repository.GigFilter) bool {
			return f.Page == 1 && f.Limit == DefaultPageLimit &&
				f.SortBy == repository.SortByCreatedAt && f.SortOrder == repository.SortDesc
		})).Return([]repository.GigListItem{}, 25, nil)

		svc := NewService(gigs, new(mockCategoryStore), new(mockRoleStore), allowAllPerms{}, slog.New(slog.DiscardHandler))
		result, err := svc.ListGigs(context.Background(), repository.GigFilter{})

		require.NoError(t, err)
		assert.Equal(t, 25, result.Pagination.Total)
		assert.Equal(t, 3, result.Pagination.Pages)
		assert.NotNil(t, result.Gigs)
	})

	t.Run("should cap limit at the maximum", func(t *testing.T) {
		gigs := new(mockGigStore)
		gigs.On("ListGigs", mock.Anything, mock.MatchedBy(func(f repository.GigFilter) bool {
			return f.Limit == MaxPageLimit
		})).Return([]repository.GigListItem{}, 0, nil)

		svc := NewService(gigs, new(mockCategoryStore), new(mockRoleStore), allowAllPerms{}, slog.New(slog.DiscardHandler))
		_, err := svc.ListGigs(context.Background(), repository.GigFilter{Limit: 500})

		require.NoError(t, err)
		gigs.AssertExpectations(t)
	})

	t.Run("should reject unknown sort key", func(t *testing.T) {
		svc := NewService(new(mockGigStore), new(mockCategoryStore), new(mockRoleStore), allowAllPerms{}, slog.New(slog.DiscardHandler))
		_, err := svc.ListGigs(context.Background(), repository.GigFilter{SortBy: "popularity"})

		require.Error(t, err)
		assert.Equal(t, domain.ErrInvalidInput, domain.KindOf(err))
	})

	t.Run("should reject unknown sort order", func(t *testing.T) {
		svc := NewService(new(mockGigStore), new(mockCategoryStore), new(mockRoleStore), allowAllPerms{}, slog.New(slog.DiscardHandler))
		_, err := svc.ListGigs(context.Background(), repository.GigFilter{SortOrder: "sideways"})

		require.Error(t, err)
		assert.Equal(t, domain.ErrInvalidInput, domain.KindOf(err))
	})
}

func TestService_GetGig(t *testing.T) {
	gigID := uuid.New()
	freelancer := domain.UserSummary{ID: uuid.New(), Name: "Alex Chen", Username: "alexchen_dev"}
	gig := &domain.Gig{
		ID:     gigID,
		Title:  "Tokenomics model design",
		Status: domain.GigStatusActive,
		Packages: []domain.Package{
			{Name: "Basic", Price: 300, DeliveryDays: 5},
			{Name: "Premium", Price: 900, DeliveryDays: 10},
		},
	}

	t.Run("should return detail and bump the view counter", func(t *testing.T) {
		gigs := new(mockGigStore)
		gigs.On("GetGigWithFreelancer", mock.Anything, gigID).Return(gig, &freelancer, nil)
		gigs.On("IncrementViewCount", mock.Anything, gigID).Return(nil)

		svc := NewService(gigs, new(mockCategoryStore), new(mockRoleStore), allowAllPerms{}, slog.New(slog.DiscardHandler))
		detail, err := svc.GetGig(context.Background(), gigID)

		require.NoError(t, err)
		assert.Equal(t, "Tokenomics model design", detail.Title)
		assert.Equal(t, "Alex Chen", detail.Freelancer.Name)
		assert.Equal(t, 300.0, detail.MinPrice)
		assert.Equal(t, 900.0, detail.MaxPrice)
		assert.Equal(t, 5, detail.MinDelivery)
		gigs.AssertExpectations(t)
	})

	t.Run("should not fail when the view counter bump fails", func(t *testing.T) {
		gigs := new(mockGigStore)
		gigs.On("GetGigWithFreelancer", mock.Anything, gigID).Return(gig, &freelancer, nil)
		gigs.On("IncrementViewCount", mock.Anything, gigID).Return(errors.New("connection reset"))

		svc := NewService(gigs, new(mockCategoryStore), new(mockRoleStore), allowAllPerms{}, slog.New(slog.DiscardHandler))
		detail, err := svc.GetGig(context.Background(), gigID)

		require.NoError(t, err)
		assert.NotNil(t, detail)
	})

	t.Run("should map missing gig to not found", func(t *testing.T) {
		missing := uuid.New()
		gigs := new(mockGigStore)
		gigs.On("GetGigWithFreelancer", mock.Anything, missing).
			Return(nil, nil, &repository.NotFoundError{Resource: "gig", Key: "id", Value: missing.String()})

		svc := NewService(gigs, new(mockCategoryStore), new(mockRoleStore), allowAllPerms{}, slog.New(slog.DiscardHandler))
		_, err := svc.GetGig(context.Background(), missing)

		require.Error(t, err)
		assert.Equal(t, domain.ErrNotFound, domain.KindOf(err))
	})
}
