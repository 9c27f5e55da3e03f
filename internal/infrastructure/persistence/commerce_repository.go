package persistence

import (
	"context"

	"github.com/vendora/backend/internal/domain/commerce"
	"github.com/vendora/backend/internal/infrastructure/persistence/models"
	"github.com/vendora/backend/internal/infrastructure/persistence/tenant"
)

// GormCommerceRepository writes products, customers and orders through the
// tenant scope, so a seller can only create rows for its own tenant.
type GormCommerceRepository struct {
	db *tenant.TenantDB
}

// NewGormCommerceRepository creates a new GormCommerceRepository
func NewGormCommerceRepository(db *tenant.TenantDB) *GormCommerceRepository {
	return &GormCommerceRepository{db: db}
}

// CreateProduct inserts a product
func (r *GormCommerceRepository) CreateProduct(ctx context.Context, p *commerce.Product) error {
	m := &models.ProductModel{Name: p.Name, Price: p.Price}
	m.FromDomainBaseEntity(p.BaseEntity)
	m.TenantID = p.TenantID
	return r.db.WithContext(ctx).Create(m).Error
}

// CreateCustomer inserts a customer
func (r *GormCommerceRepository) CreateCustomer(ctx context.Context, c *commerce.Customer) error {
	m := &models.CustomerModel{Name: c.Name, Email: c.Email, Active: c.Active}
	m.FromDomainBaseEntity(c.BaseEntity)
	m.TenantID = c.TenantID
	return r.db.WithContext(ctx).Create(m).Error
}

// CreateOrder inserts an order
func (r *GormCommerceRepository) CreateOrder(ctx context.Context, o *commerce.Order) error {
	m := &models.OrderModel{CustomerID: o.CustomerID, Total: o.Total}
	m.FromDomainBaseEntity(o.BaseEntity)
	m.TenantID = o.TenantID
	return r.db.WithContext(ctx).Create(m).Error
}

var _ commerce.Repository = (*GormCommerceRepository)(nil)
