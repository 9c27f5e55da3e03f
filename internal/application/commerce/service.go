// Package commerce creates the quota-counted entities. Admission is decided
// before these calls by the billing gate; this service only persists and
// keeps the usage snapshot current.
package commerce

import (
	"context"
	"fmt"

	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/domain/commerce"
	"github.com/vendora/backend/internal/domain/tenant"
	"go.uber.org/zap"
)

// UsageRefresher recounts a tenant's usage snapshot
type UsageRefresher interface {
	RefreshUsage(ctx context.Context, tenantID string) (*billing.UsageRecord, error)
}

// Service handles creation of products, customers and orders
type Service struct {
	repo   commerce.Repository
	usage  UsageRefresher
	logger *zap.Logger
}

// NewService creates a new commerce Service. usage may be nil.
func NewService(repo commerce.Repository, usage UsageRefresher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, usage: usage, logger: logger}
}

// CreateProduct creates a product for the bound tenant
func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (*CreatedResponse, error) {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}
	product, err := commerce.NewProduct(tenantID, req.Name, req.Price)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.afterCreate(ctx, tenantID, billing.ResourceProduct)
	return &CreatedResponse{ID: product.ID.String(), Kind: billing.ResourceProduct.String(), CreatedAt: product.CreatedAt}, nil
}

// CreateCustomer creates an active customer for the bound tenant
func (s *Service) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*CreatedResponse, error) {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}
	customer, err := commerce.NewCustomer(tenantID, req.Name, req.Email)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	s.afterCreate(ctx, tenantID, billing.ResourceCustomer)
	return &CreatedResponse{ID: customer.ID.String(), Kind: billing.ResourceCustomer.String(), CreatedAt: customer.CreatedAt}, nil
}

// CreateOrder creates an order for the bound tenant
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreatedResponse, error) {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}
	order, err := commerce.NewOrder(tenantID, req.CustomerID, req.Total)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	s.afterCreate(ctx, tenantID, billing.ResourceOrder)
	return &CreatedResponse{ID: order.ID.String(), Kind: billing.ResourceOrder.String(), CreatedAt: order.CreatedAt}, nil
}

// afterCreate recounts the snapshot so the next admission sees the new row.
// A failed recount leaves the snapshot stale until the next refresh; the
// create itself already succeeded.
func (s *Service) afterCreate(ctx context.Context, tenantID string, kind billing.ResourceKind) {
	if s.usage == nil {
		return
	}
	if _, err := s.usage.RefreshUsage(ctx, tenantID); err != nil {
		s.logger.Warn("Failed to refresh usage after create",
			zap.String("tenant_id", tenantID),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
	}
}
