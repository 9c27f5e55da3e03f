package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	commerceapp "github.com/vendora/backend/internal/application/commerce"
	"github.com/vendora/backend/internal/interfaces/http/middleware"
)

// QuotaRemainingHeader reports how many more resources of the kind the plan allows
const QuotaRemainingHeader = "X-Quota-Remaining"

// ResourceCreator creates the quota-counted resources
type ResourceCreator interface {
	CreateProduct(ctx context.Context, req commerceapp.CreateProductRequest) (*commerceapp.CreatedResponse, error)
	CreateCustomer(ctx context.Context, req commerceapp.CreateCustomerRequest) (*commerceapp.CreatedResponse, error)
	CreateOrder(ctx context.Context, req commerceapp.CreateOrderRequest) (*commerceapp.CreatedResponse, error)
}

// ResourceHandler handles the gated creation endpoints. Admission has already
// run in RequireQuota by the time these handlers execute.
type ResourceHandler struct {
	BaseHandler
	svc ResourceCreator
}

// NewResourceHandler creates a new ResourceHandler
func NewResourceHandler(svc ResourceCreator) *ResourceHandler {
	return &ResourceHandler{svc: svc}
}

// CreateProduct handles POST /products
func (h *ResourceHandler) CreateProduct(c *gin.Context) {
	var req commerceapp.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	created, err := h.svc.CreateProduct(c.Request.Context(), req)
	h.respondCreated(c, created, err)
}

// CreateCustomer handles POST /customers
func (h *ResourceHandler) CreateCustomer(c *gin.Context) {
	var req commerceapp.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	created, err := h.svc.CreateCustomer(c.Request.Context(), req)
	h.respondCreated(c, created, err)
}

// CreateOrder handles POST /orders
func (h *ResourceHandler) CreateOrder(c *gin.Context) {
	var req commerceapp.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	created, err := h.svc.CreateOrder(c.Request.Context(), req)
	h.respondCreated(c, created, err)
}

func (h *ResourceHandler) respondCreated(c *gin.Context, created *commerceapp.CreatedResponse, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if check := middleware.GetLimitInfo(c); check != nil && !check.Unlimited {
		// the admitted check counted usage before this create
		remaining := max(check.Remaining-1, 0)
		c.Header(QuotaRemainingHeader, strconv.FormatInt(remaining, 10))
	}
	h.Created(c, created)
}
