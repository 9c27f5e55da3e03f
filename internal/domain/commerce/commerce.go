// Package commerce holds the quota-counted entities a seller creates. They
// carry no behaviour beyond validation; usage accounting only counts them.
package commerce

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vendora/backend/internal/domain/shared"
)

// Product is a catalog item
type Product struct {
	shared.BaseEntity
	TenantID string
	Name     string
	Price    decimal.Decimal
}

// NewProduct creates a product
func NewProduct(tenantID, name string, price decimal.Decimal) (*Product, error) {
	name = strings.TrimSpace(name)
	if tenantID == "" {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	return &Product{BaseEntity: shared.NewBaseEntity(), TenantID: tenantID, Name: name, Price: price}, nil
}

// Customer is a buyer known to the seller. Inactive customers do not count against the quota.
type Customer struct {
	shared.BaseEntity
	TenantID string
	Name     string
	Email    string
	Active   bool
}

// NewCustomer creates an active customer
func NewCustomer(tenantID, name, email string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if tenantID == "" {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}
	return &Customer{BaseEntity: shared.NewBaseEntity(), TenantID: tenantID, Name: name, Email: email, Active: true}, nil
}

// Order is a sale. Orders count against the monthly quota by creation time.
type Order struct {
	shared.BaseEntity
	TenantID   string
	CustomerID string
	Total      decimal.Decimal
}

// NewOrder creates an order
func NewOrder(tenantID, customerID string, total decimal.Decimal) (*Order, error) {
	if tenantID == "" {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if total.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TOTAL", "Order total cannot be negative")
	}
	return &Order{BaseEntity: shared.NewBaseEntity(), TenantID: tenantID, CustomerID: customerID, Total: total}, nil
}

// Repository persists commerce entities
type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	CreateCustomer(ctx context.Context, c *Customer) error
	CreateOrder(ctx context.Context, o *Order) error
}
