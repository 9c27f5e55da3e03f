package billing

import (
	"time"

	"github.com/vendora/backend/internal/domain/shared"
)

// SubscriptionStatus is the canonical subscription state
type SubscriptionStatus string

const (
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
	StatusPaused   SubscriptionStatus = "paused"
)

// IsValid returns true for a canonical status
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case StatusTrialing, StatusActive, StatusPastDue, StatusCanceled, StatusPaused:
		return true
	}
	return false
}

// GrantsPlan reports whether entering s assigns the subscription's plan to the account
func (s SubscriptionStatus) GrantsPlan() bool {
	return s == StatusActive || s == StatusTrialing
}

// IsTerminal reports whether s no longer drives the account plan
func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCanceled
}

// Provider is a payment provider
type Provider string

const (
	ProviderStripe    Provider = "stripe"
	ProviderPagSeguro Provider = "pagseguro"
	ProviderPaddle    Provider = "paddle"
	ProviderManual    Provider = "manual"
)

// IsValid returns true for a known provider
func (p Provider) IsValid() bool {
	switch p {
	case ProviderStripe, ProviderPagSeguro, ProviderPaddle, ProviderManual:
		return true
	}
	return false
}

// Subscription is a provider-backed subscription row. A tenant may have many
// historical rows; the newest non-canceled one drives the account plan.
type Subscription struct {
	shared.BaseEntity
	TenantID               string
	PlanID                 PlanID
	Status                 SubscriptionStatus
	Provider               Provider
	ProviderSubscriptionID string
	ProviderCustomerID     string
	CurrentPeriodStart     time.Time
	CurrentPeriodEnd       time.Time
	TrialStart             *time.Time
	TrialEnd               *time.Time
	CancelAtPeriodEnd      bool
	CanceledAt             *time.Time
}

// NewSubscriptionInput holds the fields for a new subscription
type NewSubscriptionInput struct {
	TenantID               string
	PlanID                 PlanID
	Provider               Provider
	ProviderSubscriptionID string
	ProviderCustomerID     string
	PeriodStart            time.Time
	PeriodEnd              time.Time
	TrialStart             *time.Time
	TrialEnd               *time.Time
	// Status overrides the derived initial status when set
	Status SubscriptionStatus
}

// NewSubscription creates a subscription. Without an explicit status it
// starts trialing when a trial end is given and active otherwise.
func NewSubscription(in NewSubscriptionInput) (*Subscription, error) {
	if in.TenantID == "" {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !in.PlanID.IsValid() {
		return nil, shared.NewDomainError("INVALID_PLAN", "Unknown plan: "+in.PlanID.String())
	}
	if !in.Provider.IsValid() {
		return nil, shared.NewDomainError("INVALID_PROVIDER", "Unknown payment provider: "+string(in.Provider))
	}
	if !in.PeriodEnd.IsZero() && in.PeriodEnd.Before(in.PeriodStart) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period end cannot be before period start")
	}

	status := in.Status
	if status == "" {
		status = StatusActive
		if in.TrialEnd != nil {
			status = StatusTrialing
		}
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Unknown subscription status: "+string(status))
	}

	return &Subscription{
		BaseEntity:             shared.NewBaseEntity(),
		TenantID:               in.TenantID,
		PlanID:                 in.PlanID,
		Status:                 status,
		Provider:               in.Provider,
		ProviderSubscriptionID: in.ProviderSubscriptionID,
		ProviderCustomerID:     in.ProviderCustomerID,
		CurrentPeriodStart:     in.PeriodStart,
		CurrentPeriodEnd:       in.PeriodEnd,
		TrialStart:             in.TrialStart,
		TrialEnd:               in.TrialEnd,
	}, nil
}

// SetStatus records a provider-reported status. Any status may follow any other.
func (s *Subscription) SetStatus(status SubscriptionStatus) {
	s.Status = status
	s.Touch()
}

// SetPeriod updates the current period bounds; zero values leave a bound unchanged
func (s *Subscription) SetPeriod(start, end time.Time) {
	if !start.IsZero() {
		s.CurrentPeriodStart = start
	}
	if !end.IsZero() {
		s.CurrentPeriodEnd = end
	}
	s.Touch()
}

// Cancel marks the subscription canceled at the given instant. Canceling an
// already canceled subscription keeps the original timestamp.
func (s *Subscription) Cancel(at time.Time) {
	s.Status = StatusCanceled
	if s.CanceledAt == nil {
		s.CanceledAt = &at
	}
	s.Touch()
}

// ScheduleCancel flags the subscription to end with its current period
func (s *Subscription) ScheduleCancel() {
	s.CancelAtPeriodEnd = true
	s.Touch()
}
