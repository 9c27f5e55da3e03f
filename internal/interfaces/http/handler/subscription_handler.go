package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	billingapp "github.com/vendora/backend/internal/application/billing"
	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/domain/shared"
	"github.com/vendora/backend/internal/interfaces/http/dto"
)

// UsageQuerier is the usage side of the billing service
type UsageQuerier interface {
	GetCurrentUsage(ctx context.Context, tenantID string) (*billing.UsageRecord, error)
	RefreshUsage(ctx context.Context, tenantID string) (*billing.UsageRecord, error)
	CheckLimit(ctx context.Context, tenantID string, kind billing.ResourceKind) (*billing.LimitCheck, error)
	GetSubscriptionInfo(ctx context.Context, tenantID string) (*billingapp.SubscriptionInfo, error)
}

// SubscriptionQuerier reads a tenant's plan and subscription
type SubscriptionQuerier interface {
	GetAccountPlan(ctx context.Context, tenantID string) (billing.PlanID, error)
	GetActiveSubscription(ctx context.Context, tenantID string) (*billing.Subscription, error)
}

// SubscriptionHandler serves the tenant's own plan and usage
type SubscriptionHandler struct {
	BaseHandler
	usage  UsageQuerier
	ledger SubscriptionQuerier
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(usage UsageQuerier, ledger SubscriptionQuerier) *SubscriptionHandler {
	return &SubscriptionHandler{usage: usage, ledger: ledger}
}

// CurrentSubscriptionResponse is the plan plus the active subscription, if any
type CurrentSubscriptionResponse struct {
	Plan         string                    `json:"plan"`
	Subscription *dto.SubscriptionResponse `json:"subscription"`
}

// ListPlans returns the plan catalog
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	plans := billing.Plans()
	out := make([]dto.PlanResponse, len(plans))
	for i, p := range plans {
		out[i] = dto.NewPlanResponse(p)
	}
	h.Success(c, out)
}

// GetInfo returns plan, usage per kind and features of the bound tenant
func (h *SubscriptionHandler) GetInfo(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	info, err := h.usage.GetSubscriptionInfo(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, info)
}

// GetUsage returns the current period's usage snapshot
func (h *SubscriptionHandler) GetUsage(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	record, err := h.usage.GetCurrentUsage(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewUsageResponse(record))
}

// RefreshUsage recounts the tenant's resources and stores a fresh snapshot
func (h *SubscriptionHandler) RefreshUsage(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	record, err := h.usage.RefreshUsage(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewUsageResponse(record))
}

// CheckLimit reports whether one more resource of :kind would be admitted
func (h *SubscriptionHandler) CheckLimit(c *gin.Context) {
	kind, valid := billing.ParseResourceKind(c.Param("kind"))
	if !valid {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalid, "Unknown resource kind: "+c.Param("kind"))
		return
	}
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	check, err := h.usage.CheckLimit(c.Request.Context(), tenantID, kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, check)
}

// GetCurrent returns the account plan and the newest active subscription.
// A tenant without one gets a null subscription.
func (h *SubscriptionHandler) GetCurrent(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	plan, err := h.ledger.GetAccountPlan(ctx, tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := CurrentSubscriptionResponse{Plan: plan.String()}

	sub, err := h.ledger.GetActiveSubscription(ctx, tenantID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
	case err != nil:
		h.HandleError(c, err)
		return
	default:
		out := dto.NewSubscriptionResponse(sub)
		resp.Subscription = &out
	}
	h.Success(c, resp)
}
