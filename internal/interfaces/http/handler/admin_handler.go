package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/interfaces/http/dto"
	"github.com/vendora/backend/internal/interfaces/http/middleware"
)

// LedgerAdmin is the write side of the ledger service
type LedgerAdmin interface {
	UpdatePlan(ctx context.Context, tenantID string, plan billing.PlanID) error
	CreateSubscription(ctx context.Context, in billing.NewSubscriptionInput) (*billing.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID uuid.UUID, atPeriodEnd bool) (*billing.Subscription, error)
}

// UsageRefresher recomputes a tenant's usage snapshot
type UsageRefresher interface {
	RefreshUsage(ctx context.Context, tenantID string) (*billing.UsageRecord, error)
}

// AdminHandler exposes operator actions on any tenant's account
type AdminHandler struct {
	BaseHandler
	ledger LedgerAdmin
	usage  UsageRefresher
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(ledger LedgerAdmin, usage UsageRefresher) *AdminHandler {
	return &AdminHandler{ledger: ledger, usage: usage}
}

// PlanChangeResponse confirms a plan assignment
type PlanChangeResponse struct {
	TenantID string `json:"tenant_id"`
	Plan     string `json:"plan"`
}

// UpdatePlan handles PUT /admin/accounts/:id/plan
func (h *AdminHandler) UpdatePlan(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	var req dto.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	plan := billing.PlanID(req.Plan)
	if err := h.ledger.UpdatePlan(c.Request.Context(), uri.ID, plan); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, PlanChangeResponse{TenantID: uri.ID, Plan: plan.String()})
}

// CreateSubscription handles POST /admin/accounts/:id/subscriptions
func (h *AdminHandler) CreateSubscription(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if (req.PeriodStart == nil) != (req.PeriodEnd == nil) {
		h.BadRequest(c, "period_start and period_end must be given together")
		return
	}

	in := billing.NewSubscriptionInput{
		TenantID:               uri.ID,
		PlanID:                 billing.PlanID(req.Plan),
		Provider:               billing.Provider(req.Provider),
		ProviderSubscriptionID: req.ProviderSubscriptionID,
		ProviderCustomerID:     req.ProviderCustomerID,
		TrialEnd:               req.TrialEnd,
	}
	if req.PeriodStart != nil {
		in.PeriodStart, in.PeriodEnd = *req.PeriodStart, *req.PeriodEnd
	}

	sub, err := h.ledger.CreateSubscription(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewSubscriptionResponse(sub))
}

// CancelSubscription handles POST /admin/subscriptions/:id/cancel
func (h *AdminHandler) CancelSubscription(c *gin.Context) {
	var uri dto.UUIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	var req dto.CancelSubscriptionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	sub, err := h.ledger.CancelSubscription(c.Request.Context(), uuid.MustParse(uri.ID), req.AtPeriodEnd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewSubscriptionResponse(sub))
}

// RefreshUsage handles POST /admin/accounts/:id/usage/refresh
func (h *AdminHandler) RefreshUsage(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	record, err := h.usage.RefreshUsage(c.Request.Context(), uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewUsageResponse(record))
}
