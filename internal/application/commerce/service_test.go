package commerce

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/domain/commerce"
	"github.com/vendora/backend/internal/domain/tenant"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateProduct(ctx context.Context, p *commerce.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockRepo) CreateCustomer(ctx context.Context, c *commerce.Customer) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockRepo) CreateOrder(ctx context.Context, o *commerce.Order) error {
	return m.Called(ctx, o).Error(0)
}

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) RefreshUsage(ctx context.Context, tenantID string) (*billing.UsageRecord, error) {
	args := m.Called(ctx, tenantID)
	if rec := args.Get(0); rec != nil {
		return rec.(*billing.UsageRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func sellerCtx(tenantID string) context.Context {
	return tenant.WithIdentity(context.Background(), tenant.Identity{
		TenantID: tenantID,
		UserID:   "u1",
		Role:     tenant.RoleSeller,
	})
}

func TestService_CreateProduct(t *testing.T) {
	repo := new(mockRepo)
	usage := new(mockRefresher)
	svc := NewService(repo, usage, nil)
	ctx := sellerCtx("acme")

	repo.On("CreateProduct", ctx, mock.MatchedBy(func(p *commerce.Product) bool {
		return p.TenantID == "acme" && p.Name == "Caneca" && p.Price.Equal(decimal.RequireFromString("19.90"))
	})).Return(nil).Once()
	usage.On("RefreshUsage", ctx, "acme").Return(&billing.UsageRecord{}, nil).Once()

	resp, err := svc.CreateProduct(ctx, CreateProductRequest{Name: " Caneca ", Price: decimal.RequireFromString("19.90")})
	require.NoError(t, err)
	assert.Equal(t, "product", resp.Kind)
	assert.NotEmpty(t, resp.ID)

	repo.AssertExpectations(t)
	usage.AssertExpectations(t)
}

func TestService_CreateProduct_InvalidInput(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo, nil, nil)

	_, err := svc.CreateProduct(sellerCtx("acme"), CreateProductRequest{Name: "x", Price: decimal.NewFromInt(-1)})
	require.Error(t, err)
	repo.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
}

func TestService_RequiresTenant(t *testing.T) {
	svc := NewService(new(mockRepo), nil, nil)

	_, err := svc.CreateCustomer(context.Background(), CreateCustomerRequest{Name: "Ana"})
	assert.ErrorIs(t, err, tenant.ErrNoTenant)
}

func TestService_CreateCustomer_RefreshFailureIsNotFatal(t *testing.T) {
	repo := new(mockRepo)
	usage := new(mockRefresher)
	svc := NewService(repo, usage, nil)
	ctx := sellerCtx("acme")

	repo.On("CreateCustomer", ctx, mock.AnythingOfType("*commerce.Customer")).Return(nil)
	usage.On("RefreshUsage", ctx, "acme").Return(nil, errors.New("db down"))

	resp, err := svc.CreateCustomer(ctx, CreateCustomerRequest{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "customer", resp.Kind)
}

func TestService_CreateOrder_RepositoryError(t *testing.T) {
	repo := new(mockRepo)
	usage := new(mockRefresher)
	svc := NewService(repo, usage, nil)
	ctx := sellerCtx("acme")

	repo.On("CreateOrder", ctx, mock.AnythingOfType("*commerce.Order")).Return(errors.New("insert failed"))

	_, err := svc.CreateOrder(ctx, CreateOrderRequest{Total: decimal.NewFromInt(10)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert failed")
	usage.AssertNotCalled(t, "RefreshUsage", mock.Anything, mock.Anything)
}
