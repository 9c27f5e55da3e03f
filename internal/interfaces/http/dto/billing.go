package dto

import (
	"time"

	"github.com/vendora/backend/internal/domain/billing"
)

// PlanResponse is one catalog entry
type PlanResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      string          `json:"price"`
	PriceCents int64           `json:"price_cents"`
	Limits     PlanLimits      `json:"limits"`
	Features   map[string]bool `json:"features"`
}

// PlanLimits lists a plan's quotas; -1 is unlimited
type PlanLimits struct {
	MaxProducts        int64 `json:"max_products"`
	MaxOrdersPerPeriod int64 `json:"max_orders_per_month"`
	MaxCustomers       int64 `json:"max_customers"`
}

// NewPlanResponse converts a plan definition
func NewPlanResponse(p billing.PlanDefinition) PlanResponse {
	features := make(map[string]bool, len(billing.AllFeatures))
	for f, on := range p.Features() {
		features[string(f)] = on
	}
	return PlanResponse{
		ID:         p.ID.String(),
		Name:       p.Name,
		Price:      p.Price.StringFixed(2),
		PriceCents: p.PriceCents(),
		Limits: PlanLimits{
			MaxProducts:        p.MaxProducts,
			MaxOrdersPerPeriod: p.MaxOrdersPerPeriod,
			MaxCustomers:       p.MaxCustomers,
		},
		Features: features,
	}
}

// UsageResponse is the current period's usage snapshot
type UsageResponse struct {
	TenantID    string    `json:"tenant_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Products    int64     `json:"products_count"`
	Orders      int64     `json:"orders_count"`
	Customers   int64     `json:"customers_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewUsageResponse converts a usage record
func NewUsageResponse(r *billing.UsageRecord) UsageResponse {
	return UsageResponse{
		TenantID:    r.TenantID,
		PeriodStart: r.PeriodStart,
		PeriodEnd:   r.PeriodEnd,
		Products:    r.ProductsCount,
		Orders:      r.OrdersCount,
		Customers:   r.CustomersCount,
		UpdatedAt:   r.UpdatedAt,
	}
}

// SubscriptionResponse is a subscription row
type SubscriptionResponse struct {
	ID                     string     `json:"id"`
	TenantID               string     `json:"tenant_id"`
	Plan                   string     `json:"plan"`
	Status                 string     `json:"status"`
	Provider               string     `json:"provider"`
	ProviderSubscriptionID string     `json:"provider_subscription_id,omitempty"`
	CurrentPeriodStart     time.Time  `json:"current_period_start"`
	CurrentPeriodEnd       time.Time  `json:"current_period_end"`
	TrialEnd               *time.Time `json:"trial_end,omitempty"`
	CancelAtPeriodEnd      bool       `json:"cancel_at_period_end"`
	CanceledAt             *time.Time `json:"canceled_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

// NewSubscriptionResponse converts a subscription
func NewSubscriptionResponse(s *billing.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:                     s.ID.String(),
		TenantID:               s.TenantID,
		Plan:                   s.PlanID.String(),
		Status:                 string(s.Status),
		Provider:               string(s.Provider),
		ProviderSubscriptionID: s.ProviderSubscriptionID,
		CurrentPeriodStart:     s.CurrentPeriodStart,
		CurrentPeriodEnd:       s.CurrentPeriodEnd,
		TrialEnd:               s.TrialEnd,
		CancelAtPeriodEnd:      s.CancelAtPeriodEnd,
		CanceledAt:             s.CanceledAt,
		CreatedAt:              s.CreatedAt,
	}
}

// QuotaExceededResponse is the error envelope of a refused creation
type QuotaExceededResponse struct {
	Success bool              `json:"success"`
	Error   QuotaExceededInfo `json:"error"`
}

// QuotaExceededInfo carries the upgrade prompt and the numbers behind it
type QuotaExceededInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Kind      string `json:"kind"`
	Current   int64  `json:"current"`
	Limit     int64  `json:"limit"`
	Plan      string `json:"plan"`
	RequestID string `json:"request_id,omitempty"`
}

// UpdatePlanRequest changes an account's plan
type UpdatePlanRequest struct {
	Plan string `json:"plan" binding:"required,oneof=free pro enterprise"`
}

// CreateSubscriptionRequest records a subscription for an account
type CreateSubscriptionRequest struct {
	Plan                   string     `json:"plan" binding:"required,oneof=free pro enterprise"`
	Provider               string     `json:"provider" binding:"omitempty,oneof=stripe pagseguro paddle manual"`
	ProviderSubscriptionID string     `json:"provider_subscription_id" binding:"omitempty,max=255"`
	ProviderCustomerID     string     `json:"provider_customer_id" binding:"omitempty,max=255"`
	PeriodStart            *time.Time `json:"period_start"`
	PeriodEnd              *time.Time `json:"period_end"`
	TrialEnd               *time.Time `json:"trial_end"`
}

// CancelSubscriptionRequest cancels now or at period end
type CancelSubscriptionRequest struct {
	AtPeriodEnd bool `json:"at_period_end"`
}

// WebhookAck is the body of every accepted webhook delivery
type WebhookAck struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
	Error     string `json:"error,omitempty"`
}
