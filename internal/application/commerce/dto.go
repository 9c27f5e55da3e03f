package commerce

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Name  string          `json:"name" binding:"required,min=1,max=200"`
	Price decimal.Decimal `json:"price"`
}

// CreateCustomerRequest represents a request to create a customer
type CreateCustomerRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=200"`
	Email string `json:"email" binding:"omitempty,email,max=200"`
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	CustomerID string          `json:"customer_id" binding:"omitempty,max=64"`
	Total      decimal.Decimal `json:"total"`
}

// CreatedResponse is returned for every created entity
type CreatedResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}
